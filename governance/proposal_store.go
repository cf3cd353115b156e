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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ProposalStore owns the proposal records. Ids are assigned sequentially
// from zero and records are never removed.
//
// ProposalStore is not safe for concurrent use; the Engine serializes access.
type ProposalStore struct {
	proposals []*Proposal
}

// NewProposalStore creates an empty proposal store
func NewProposalStore() *ProposalStore {
	return &ProposalStore{}
}

// Count returns the number of proposals created so far.
func (s *ProposalStore) Count() uint64 {
	return uint64(len(s.proposals))
}

// Create stores a new open proposal and returns its id.
func (s *ProposalStore) Create(proposer common.Address, description string, target common.Address, payload []byte, now uint64) uint64 {
	id := uint64(len(s.proposals))
	s.proposals = append(s.proposals, &Proposal{
		ID:           id,
		Proposer:     proposer,
		Description:  description,
		Target:       target,
		Payload:      common.CopyBytes(payload),
		VotesFor:     new(uint256.Int),
		VotesAgainst: new(uint256.Int),
		CreatedAt:    now,
		IsOpen:       true,
	})
	return id
}

// Get returns a copy of the proposal.
func (s *ProposalStore) Get(id uint64) (*Proposal, error) {
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return p.Copy(), nil
}

// Range returns copies of proposals start..end inclusive, in creation order.
func (s *ProposalStore) Range(start, end uint64) ([]*Proposal, error) {
	if start > end || end >= s.Count() {
		return nil, ErrInvalidRange
	}
	result := make([]*Proposal, 0, end-start+1)
	for _, p := range s.proposals[start : end+1] {
		result = append(result, p.Copy())
	}
	return result, nil
}

// AddVotesFor adds amount to the proposal's votes in favour.
func (s *ProposalStore) AddVotesFor(id uint64, amount *uint256.Int) error {
	return s.addVotes(id, true, amount)
}

// AddVotesAgainst adds amount to the proposal's votes against.
func (s *ProposalStore) AddVotesAgainst(id uint64, amount *uint256.Int) error {
	return s.addVotes(id, false, amount)
}

// Close marks the proposal as finished.
func (s *ProposalStore) Close(id uint64) error {
	p, err := s.get(id)
	if err != nil {
		return err
	}
	if !p.IsOpen {
		return ErrAlreadyClosed
	}
	p.IsOpen = false
	return nil
}

// setOutcome records the finish result on a closed proposal.
func (s *ProposalStore) setOutcome(id uint64, passed, executed bool, execErr error) {
	p := s.proposals[id]
	p.Passed = passed
	p.Executed = executed
	if execErr != nil {
		p.ExecutionError = execErr.Error()
	}
}

// checkVotes reports whether adding amount to the given side would overflow.
func (s *ProposalStore) checkVotes(id uint64, supporting bool, amount *uint256.Int) error {
	p, err := s.get(id)
	if err != nil {
		return err
	}
	tally := p.VotesAgainst
	if supporting {
		tally = p.VotesFor
	}
	if _, overflow := new(uint256.Int).AddOverflow(tally, amount); overflow {
		return ErrOverflow
	}
	return nil
}

func (s *ProposalStore) addVotes(id uint64, supporting bool, amount *uint256.Int) error {
	p, err := s.get(id)
	if err != nil {
		return err
	}
	if !p.IsOpen {
		return ErrAlreadyClosed
	}
	tally := p.VotesAgainst
	if supporting {
		tally = p.VotesFor
	}
	sum, overflow := new(uint256.Int).AddOverflow(tally, amount)
	if overflow {
		return ErrOverflow
	}
	tally.Set(sum)
	return nil
}

func (s *ProposalStore) get(id uint64) (*Proposal, error) {
	if id >= s.Count() {
		return nil, ErrProposalNotFound
	}
	return s.proposals[id], nil
}
