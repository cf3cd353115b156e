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

// BasisPoints is the denominator of quorum and fee rates.
const BasisPoints = 10000

// MaxDelegationDepth bounds how many delegate hops are followed when
// resolving a vote or crediting delegated weight.
const MaxDelegationDepth = 32

// Decision is an account's recorded stance on a proposal
type Decision uint8

const (
	DecisionNotParticipated Decision = 0x00
	DecisionYes             Decision = 0x01
	DecisionNo              Decision = 0x02
	DecisionDelegate        Decision = 0x03
)

var decisionLabels = [...]string{
	DecisionNotParticipated: "Not participated",
	DecisionYes:             "Yes",
	DecisionNo:              "No",
	DecisionDelegate:        "Delegate",
}

// DecisionLabel returns the human readable label of a decision.
func DecisionLabel(d Decision) (string, error) {
	if int(d) >= len(decisionLabels) {
		return "", ErrUnknownDecision
	}
	return decisionLabels[d], nil
}

func (d Decision) String() string {
	label, err := DecisionLabel(d)
	if err != nil {
		return "Unknown"
	}
	return label
}

// terminal reports whether the decision casts weight directly.
func (d Decision) terminal() bool {
	return d == DecisionYes || d == DecisionNo
}

func decisionOf(supporting bool) Decision {
	if supporting {
		return DecisionYes
	}
	return DecisionNo
}

// ProposalState is the lifecycle position of a proposal at a given time
type ProposalState uint8

const (
	ProposalStateOpen       ProposalState = 0x00 // accepting votes
	ProposalStateFinishable ProposalState = 0x01 // period elapsed, not finished yet
	ProposalStateClosed     ProposalState = 0x02 // finished
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStateOpen:
		return "open"
	case ProposalStateFinishable:
		return "finishable"
	case ProposalStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Proposal represents a governance proposal
type Proposal struct {
	ID           uint64         // sequential, starting at 0
	Proposer     common.Address // account that raised it
	Description  string         // free text
	Target       common.Address // dispatch target on pass
	Payload      []byte         // encoded command, see package payload
	VotesFor     *uint256.Int   // weight in favour
	VotesAgainst *uint256.Int   // weight against
	CreatedAt    uint64         // creation time, seconds
	IsOpen       bool           // false once finished

	// Outcome, set by FinishVoting
	Passed         bool   // quorum reached and majority in favour
	Executed       bool   // dispatch succeeded
	ExecutionError string // dispatch failure, if any
}

// Copy returns a deep copy of the proposal.
func (p *Proposal) Copy() *Proposal {
	cpy := *p
	cpy.Payload = common.CopyBytes(p.Payload)
	cpy.VotesFor = new(uint256.Int).Set(p.VotesFor)
	cpy.VotesAgainst = new(uint256.Int).Set(p.VotesAgainst)
	return &cpy
}

// Deadline returns the first instant at which voting is over for the
// given voting period.
func (p *Proposal) Deadline(votingPeriod uint64) uint64 {
	return p.CreatedAt + votingPeriod
}

// Vote is an account's participation record on one proposal
type Vote struct {
	Decision       Decision        // stance
	Weight         *uint256.Int    // own deposited balance at the time of the call
	DelegateWeight *uint256.Int    // weight received from delegators
	DelegateTarget *common.Address // set only for DecisionDelegate
}

func newVote() *Vote {
	return &Vote{
		Decision:       DecisionNotParticipated,
		Weight:         new(uint256.Int),
		DelegateWeight: new(uint256.Int),
	}
}

// Copy returns a deep copy of the vote.
func (v *Vote) Copy() *Vote {
	cpy := &Vote{
		Decision:       v.Decision,
		Weight:         new(uint256.Int).Set(v.Weight),
		DelegateWeight: new(uint256.Int).Set(v.DelegateWeight),
	}
	if v.DelegateTarget != nil {
		target := *v.DelegateTarget
		cpy.DelegateTarget = &target
	}
	return cpy
}

// Outcome is the result of finishing a proposal. The governance decision
// and the success of its dispatch are reported separately.
type Outcome struct {
	ProposalID uint64
	Passed     bool  // quorum reached and votes for > votes against
	Executed   bool  // payload dispatched without error
	Err        error // dispatch failure; never set when Passed is false
	Quorum     *uint256.Int
}

// Config holds the voting rules
type Config struct {
	VotingPeriod uint64 // seconds a proposal accepts votes
	MinQuorumBps uint16 // minimum participation in basis points of total supply
}

// DefaultConfig returns the default voting rules
func DefaultConfig() *Config {
	return &Config{
		VotingPeriod: 3 * 24 * 60 * 60, // 3 days
		MinQuorumBps: 5000,             // 50%
	}
}

// Validate checks the voting rules for consistency.
func (c *Config) Validate() error {
	if c.MinQuorumBps > BasisPoints {
		return ErrInvalidQuorum
	}
	if c.VotingPeriod == 0 {
		return ErrInvalidVotingPeriod
	}
	return nil
}
