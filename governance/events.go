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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind identifies the type of an engine event
type EventKind uint8

const (
	EventNewProposal        EventKind = 0x01
	EventDeposit            EventKind = 0x02
	EventWithdraw           EventKind = 0x03
	EventVoted              EventKind = 0x04
	EventDelegate           EventKind = 0x05
	EventVotingFinished     EventKind = 0x06
	EventVotingRulesChanged EventKind = 0x07
)

func (k EventKind) String() string {
	switch k {
	case EventNewProposal:
		return "NewProposal"
	case EventDeposit:
		return "Deposit"
	case EventWithdraw:
		return "Withdraw"
	case EventVoted:
		return "Voted"
	case EventDelegate:
		return "Delegate"
	case EventVotingFinished:
		return "VotingFinished"
	case EventVotingRulesChanged:
		return "VotingRulesChanged"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a record of a state change. Which fields are meaningful depends
// on Kind:
//
//	NewProposal:        ProposalID, Account (creator), Counterpart (target), Description
//	Deposit, Withdraw:  Account, Amount
//	Voted:              ProposalID, Account (voter), Supporting
//	Delegate:           ProposalID, Account (delegator), Counterpart (delegate)
//	VotingFinished:     ProposalID, Passed, Executed
//	VotingRulesChanged: Quorum, Period
type Event struct {
	Seq         uint64 // engine-wide sequence number, starting at 1
	Kind        EventKind
	ProposalID  uint64
	Account     common.Address
	Counterpart common.Address
	Amount      *uint256.Int
	Supporting  bool
	Passed      bool
	Executed    bool
	Description string
	Quorum      uint16
	Period      uint64
}

func (ev Event) String() string {
	switch ev.Kind {
	case EventNewProposal:
		return fmt.Sprintf("#%d NewProposal(id=%d creator=%s target=%s %q)", ev.Seq, ev.ProposalID, ev.Account.Hex(), ev.Counterpart.Hex(), ev.Description)
	case EventDeposit, EventWithdraw:
		return fmt.Sprintf("#%d %s(account=%s amount=%s)", ev.Seq, ev.Kind, ev.Account.Hex(), amountString(ev.Amount))
	case EventVoted:
		return fmt.Sprintf("#%d Voted(id=%d voter=%s supporting=%t)", ev.Seq, ev.ProposalID, ev.Account.Hex(), ev.Supporting)
	case EventDelegate:
		return fmt.Sprintf("#%d Delegate(id=%d delegator=%s delegate=%s)", ev.Seq, ev.ProposalID, ev.Account.Hex(), ev.Counterpart.Hex())
	case EventVotingFinished:
		return fmt.Sprintf("#%d VotingFinished(id=%d passed=%t executed=%t)", ev.Seq, ev.ProposalID, ev.Passed, ev.Executed)
	case EventVotingRulesChanged:
		return fmt.Sprintf("#%d VotingRulesChanged(quorum=%d period=%d)", ev.Seq, ev.Quorum, ev.Period)
	default:
		return fmt.Sprintf("#%d %s", ev.Seq, ev.Kind)
	}
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
