// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package governance

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestProposalStore_Create(t *testing.T) {
	s := NewProposalStore()
	data := []byte{1, 2, 3}
	target := common.HexToAddress("0x1")

	id := s.Create(alice, "first", target, data, 100)
	if id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}
	data[0] = 9 // caller's buffer is not retained

	p, err := s.Get(id)
	if err != nil {
		t.Fatalf("failed to get proposal: %v", err)
	}
	if !p.IsOpen || p.CreatedAt != 100 || p.Target != target || p.Proposer != alice {
		t.Errorf("unexpected proposal: %+v", p)
	}
	if !bytes.Equal(p.Payload, []byte{1, 2, 3}) {
		t.Errorf("payload not copied: %x", p.Payload)
	}
	if !p.VotesFor.IsZero() || !p.VotesAgainst.IsZero() {
		t.Error("new proposal must have empty tallies")
	}
	if next := s.Create(bob, "second", target, nil, 101); next != 1 {
		t.Errorf("expected id 1, got %d", next)
	}
	if _, err := s.Get(2); err != ErrProposalNotFound {
		t.Errorf("expected %v, got %v", ErrProposalNotFound, err)
	}
}

func TestProposalStore_GetReturnsCopy(t *testing.T) {
	s := NewProposalStore()
	id := s.Create(alice, "p", common.Address{}, []byte{1}, 0)

	p, _ := s.Get(id)
	p.VotesFor.SetUint64(99)
	p.Payload[0] = 2
	p.IsOpen = false

	again, _ := s.Get(id)
	if !again.VotesFor.IsZero() || again.Payload[0] != 1 || !again.IsOpen {
		t.Error("mutating a returned proposal changed the store")
	}
}

func TestProposalStore_Votes(t *testing.T) {
	s := NewProposalStore()
	id := s.Create(alice, "p", common.Address{}, nil, 0)

	if err := s.AddVotesFor(id, uint256.NewInt(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddVotesAgainst(id, uint256.NewInt(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.AddVotesFor(id, uint256.NewInt(1))

	p, _ := s.Get(id)
	if p.VotesFor.Uint64() != 6 || p.VotesAgainst.Uint64() != 3 {
		t.Errorf("unexpected tallies: for=%s against=%s", p.VotesFor.Dec(), p.VotesAgainst.Dec())
	}
	if err := s.AddVotesFor(id, new(uint256.Int).SetAllOne()); err != ErrOverflow {
		t.Errorf("expected %v, got %v", ErrOverflow, err)
	}
	if p, _ := s.Get(id); p.VotesFor.Uint64() != 6 {
		t.Error("overflowing add must not change the tally")
	}
	if err := s.AddVotesFor(7, uint256.NewInt(1)); err != ErrProposalNotFound {
		t.Errorf("expected %v, got %v", ErrProposalNotFound, err)
	}
}

func TestProposalStore_Close(t *testing.T) {
	s := NewProposalStore()
	id := s.Create(alice, "p", common.Address{}, nil, 0)

	if err := s.Close(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(id); err != ErrAlreadyClosed {
		t.Errorf("expected %v, got %v", ErrAlreadyClosed, err)
	}
	if err := s.AddVotesFor(id, uint256.NewInt(1)); err != ErrAlreadyClosed {
		t.Errorf("closed tallies must be frozen, got %v", err)
	}
}

func TestProposalStore_Range(t *testing.T) {
	s := NewProposalStore()
	if _, err := s.Range(0, 0); err != ErrInvalidRange {
		t.Errorf("empty store: expected %v, got %v", ErrInvalidRange, err)
	}
	for i := 0; i < 5; i++ {
		s.Create(alice, "p", common.Address{}, nil, uint64(i))
	}
	list, err := s.Range(1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(list))
	}
	for i, p := range list {
		if p.ID != uint64(i+1) {
			t.Errorf("position %d: expected id %d, got %d", i, i+1, p.ID)
		}
	}
	if list, _ := s.Range(4, 4); len(list) != 1 {
		t.Error("single element range must work")
	}
	if _, err := s.Range(3, 1); err != ErrInvalidRange {
		t.Errorf("expected %v, got %v", ErrInvalidRange, err)
	}
	if _, err := s.Range(0, 5); err != ErrInvalidRange {
		t.Errorf("expected %v, got %v", ErrInvalidRange, err)
	}
}
