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
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/mccoysc/tokengov/payload"
)

func TestDecisionLabel(t *testing.T) {
	labels := map[Decision]string{
		DecisionNotParticipated: "Not participated",
		DecisionYes:             "Yes",
		DecisionNo:              "No",
		DecisionDelegate:        "Delegate",
	}
	for d, want := range labels {
		got, err := DecisionLabel(d)
		if err != nil || got != want {
			t.Errorf("decision %d: got %q, %v, want %q", d, got, err, want)
		}
	}
	if _, err := DecisionLabel(Decision(4)); err != ErrUnknownDecision {
		t.Errorf("expected %v, got %v", ErrUnknownDecision, err)
	}
	if Decision(200).String() != "Unknown" {
		t.Errorf("unexpected string for unknown decision: %s", Decision(200))
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (&Config{VotingPeriod: 1, MinQuorumBps: BasisPoints + 1}).Validate(); err != ErrInvalidQuorum {
		t.Errorf("expected %v, got %v", ErrInvalidQuorum, err)
	}
	if err := (&Config{VotingPeriod: 0, MinQuorumBps: 0}).Validate(); err != ErrInvalidVotingPeriod {
		t.Errorf("expected %v, got %v", ErrInvalidVotingPeriod, err)
	}
	if _, err := NewEngine(engineAddr, &Config{}, newMockWeightSource(engineAddr), nil); err != ErrInvalidVotingPeriod {
		t.Errorf("engine must reject invalid config, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{ErrZeroAmount, KindValidation},
		{ErrInvalidRange, KindValidation},
		{ErrSelfDelegation, KindValidation},
		{ErrUnknownDecision, KindValidation},
		{ErrAlreadyParticipated, KindState},
		{ErrVotingEnded, KindState},
		{ErrVotingInProgress, KindState},
		{ErrAlreadyClosed, KindState},
		{ErrWithdrawLocked, KindState},
		{ErrInsufficientBalance, KindState},
		{ErrInsufficientAllowance, KindState},
		{ErrDelegationCycle, KindIntegrity},
		{ErrOverflow, KindIntegrity},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("context: %w", tt.err)
		if got := KindOf(wrapped); got != tt.kind {
			t.Errorf("%v: expected kind %v, got %v", tt.err, tt.kind, got)
		}
		if !errors.Is(wrapped, tt.err) {
			t.Errorf("%v: lost identity through wrapping", tt.err)
		}
		if !errors.Is(wrapped, tt.kind.sentinel()) {
			t.Errorf("%v: does not match its kind sentinel", tt.err)
		}
	}
	if errors.Is(ErrOverflow, ErrValidation) {
		t.Error("integrity error must not match validation sentinel")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("foreign errors have no kind")
	}
}

func TestProposalCopy(t *testing.T) {
	p := &Proposal{
		Payload:      []byte{1},
		VotesFor:     uint256.NewInt(1),
		VotesAgainst: uint256.NewInt(2),
	}
	cpy := p.Copy()
	cpy.Payload[0] = 5
	cpy.VotesFor.SetUint64(7)
	if p.Payload[0] != 1 || p.VotesFor.Uint64() != 1 {
		t.Error("copy shares memory with original")
	}
	target := common.HexToAddress("0x1")
	v := &Vote{Weight: new(uint256.Int), DelegateWeight: new(uint256.Int), DelegateTarget: &target}
	vc := v.Copy()
	*vc.DelegateTarget = common.HexToAddress("0x2")
	if *v.DelegateTarget != target {
		t.Error("vote copy shares delegate target")
	}
}

func TestDispatcher_Execute(t *testing.T) {
	d := NewDispatcher()
	target := common.HexToAddress("0x77")
	rec := &recordingExecutor{}
	d.Register(target, rec)

	if ok, err := d.Execute(engineAddr, target, nil); !ok || err != nil {
		t.Errorf("empty payload must succeed, got %v %v", ok, err)
	}
	if len(rec.calls) != 0 {
		t.Error("empty payload must not reach the executor")
	}
	data, _ := payload.Encode(&payload.SetFrozen{Account: alice, Frozen: true})
	ok, err := d.Execute(engineAddr, target, data)
	if !ok || err != nil {
		t.Fatalf("dispatch failed: %v %v", ok, err)
	}
	if len(rec.calls) != 1 || rec.callers[0] != engineAddr {
		t.Fatalf("executor not called correctly: %+v", rec)
	}
	if cmd, isFrozen := rec.calls[0].(*payload.SetFrozen); !isFrozen || cmd.Account != alice || !cmd.Frozen {
		t.Errorf("unexpected command: %#v", rec.calls[0])
	}
	if ok, err := d.Execute(engineAddr, alice, data); ok || !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected %v, got %v %v", ErrUnknownTarget, ok, err)
	}
	if len(d.Targets()) != 1 {
		t.Errorf("expected one target, got %v", d.Targets())
	}
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	d := NewDispatcher()
	target := common.HexToAddress("0x78")
	d.Register(target, panickingExecutor{})

	data, _ := payload.Encode(&payload.SetFrozen{Account: alice})
	ok, err := d.Execute(engineAddr, target, data)
	if ok || err == nil {
		t.Errorf("panicking executor must be reported as failure, got %v %v", ok, err)
	}
}

type recordingExecutor struct {
	callers []common.Address
	calls   []payload.Command
}

func (r *recordingExecutor) Execute(caller common.Address, cmd payload.Command) error {
	r.callers = append(r.callers, caller)
	r.calls = append(r.calls, cmd)
	return nil
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(common.Address, payload.Command) error {
	panic("boom")
}
