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

type voteKey struct {
	proposal uint64
	account  common.Address
}

// VoteLedger owns the per-proposal vote and delegation records and the
// reverse index of delegators.
//
// Delegated weight flows along the delegation chain: every account on the
// chain from the named delegate up to the first account that has not
// delegated accumulates it as delegate weight. If the chain ends at an
// account that already voted, the weight is reported as credited so the
// caller adds it to that account's side of the tally. An account that votes
// later carries its whole delegate weight; an account that delegates later
// forwards its own weight plus its delegate weight. Every unit of weight is
// therefore counted once, by the account Resolve returns.
//
// VoteLedger is not safe for concurrent use; the Engine serializes access.
type VoteLedger struct {
	votes      map[voteKey]*Vote
	delegators map[voteKey][]common.Address
}

// NewVoteLedger creates an empty vote ledger
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{
		votes:      make(map[voteKey]*Vote),
		delegators: make(map[voteKey][]common.Address),
	}
}

// votePlan is a validated vote that can be applied without failing.
type votePlan struct {
	proposal       uint64
	voter          common.Address
	weight         *uint256.Int
	delegateWeight *uint256.Int
	supporting     bool
	total          *uint256.Int // weight + delegateWeight
}

// delegationPlan is a validated delegation that can be applied without failing.
type delegationPlan struct {
	proposal   uint64
	delegator  common.Address
	target     common.Address
	weight     *uint256.Int     // delegator's own weight
	forwarded  *uint256.Int     // own weight plus weight delegated to the delegator
	chain      []common.Address // accounts whose delegate weight grows
	credited   bool             // chain ends at an account that voted
	supporting bool             // that account's choice
}

// Get returns a copy of the account's record, NotParticipated if absent.
func (l *VoteLedger) Get(id uint64, account common.Address) *Vote {
	if v := l.votes[voteKey{id, account}]; v != nil {
		return v.Copy()
	}
	return newVote()
}

// RecordVote records a Yes or No decision and returns the delegate weight
// the voter carries, to be added to the tally along with weight.
func (l *VoteLedger) RecordVote(id uint64, voter common.Address, weight *uint256.Int, supporting bool) (*uint256.Int, error) {
	plan, err := l.planVote(id, voter, weight, supporting)
	if err != nil {
		return nil, err
	}
	l.applyVote(plan)
	return new(uint256.Int).Set(plan.delegateWeight), nil
}

// RecordDelegation records that delegator hands its weight to target. When
// credited is true the forwarded weight must be added to the tally on the
// side given by supporting.
func (l *VoteLedger) RecordDelegation(id uint64, delegator, target common.Address, weight *uint256.Int) (credited bool, supporting bool, err error) {
	plan, err := l.planDelegation(id, delegator, target, weight)
	if err != nil {
		return false, false, err
	}
	l.applyDelegation(plan)
	return plan.credited, plan.supporting, nil
}

// Resolve follows the delegation chain of account and returns the record
// of the account that ultimately decides for it.
func (l *VoteLedger) Resolve(id uint64, account common.Address) (*Vote, error) {
	v := l.Get(id, account)
	for hops := 0; v.Decision == DecisionDelegate; hops++ {
		if hops >= MaxDelegationDepth || v.DelegateTarget == nil {
			return nil, ErrDelegationCycle
		}
		v = l.Get(id, *v.DelegateTarget)
	}
	return v, nil
}

// DelegatorsOf returns the accounts that delegated directly to account on
// the proposal, in the order they did so.
func (l *VoteLedger) DelegatorsOf(id uint64, account common.Address) []common.Address {
	list := l.delegators[voteKey{id, account}]
	result := make([]common.Address, len(list))
	copy(result, list)
	return result
}

func (l *VoteLedger) planVote(id uint64, voter common.Address, weight *uint256.Int, supporting bool) (*votePlan, error) {
	delegateWeight := new(uint256.Int)
	if v := l.votes[voteKey{id, voter}]; v != nil {
		if v.Decision != DecisionNotParticipated {
			return nil, ErrAlreadyParticipated
		}
		delegateWeight.Set(v.DelegateWeight)
	}
	total, overflow := new(uint256.Int).AddOverflow(weight, delegateWeight)
	if overflow {
		return nil, ErrOverflow
	}
	return &votePlan{
		proposal:       id,
		voter:          voter,
		weight:         new(uint256.Int).Set(weight),
		delegateWeight: delegateWeight,
		supporting:     supporting,
		total:          total,
	}, nil
}

func (l *VoteLedger) applyVote(plan *votePlan) {
	v := l.ensure(plan.proposal, plan.voter)
	v.Decision = decisionOf(plan.supporting)
	v.Weight = plan.weight
}

func (l *VoteLedger) planDelegation(id uint64, delegator, target common.Address, weight *uint256.Int) (*delegationPlan, error) {
	if delegator == target {
		return nil, ErrSelfDelegation
	}
	forwarded := new(uint256.Int).Set(weight)
	if v := l.votes[voteKey{id, delegator}]; v != nil {
		if v.Decision != DecisionNotParticipated {
			return nil, ErrAlreadyParticipated
		}
		var overflow bool
		if forwarded, overflow = forwarded.AddOverflow(forwarded, v.DelegateWeight); overflow {
			return nil, ErrOverflow
		}
	}
	plan := &delegationPlan{
		proposal:  id,
		delegator: delegator,
		target:    target,
		weight:    new(uint256.Int).Set(weight),
		forwarded: forwarded,
	}
	account := target
	for hops := 0; ; hops++ {
		// Reaching the delegator would close a loop once it delegates.
		if hops >= MaxDelegationDepth || account == delegator {
			return nil, ErrDelegationCycle
		}
		plan.chain = append(plan.chain, account)

		node := l.votes[voteKey{id, account}]
		if node == nil {
			break
		}
		if _, overflow := new(uint256.Int).AddOverflow(node.DelegateWeight, forwarded); overflow {
			return nil, ErrOverflow
		}
		if node.Decision.terminal() {
			plan.credited = true
			plan.supporting = node.Decision == DecisionYes
			break
		}
		if node.Decision != DecisionDelegate {
			break
		}
		if node.DelegateTarget == nil {
			return nil, ErrDelegationCycle
		}
		account = *node.DelegateTarget
	}
	return plan, nil
}

func (l *VoteLedger) applyDelegation(plan *delegationPlan) {
	v := l.ensure(plan.proposal, plan.delegator)
	v.Decision = DecisionDelegate
	v.Weight = plan.weight
	target := plan.target
	v.DelegateTarget = &target

	for _, account := range plan.chain {
		node := l.ensure(plan.proposal, account)
		node.DelegateWeight = new(uint256.Int).Add(node.DelegateWeight, plan.forwarded)
	}
	key := voteKey{plan.proposal, plan.target}
	l.delegators[key] = append(l.delegators[key], plan.delegator)
}

func (l *VoteLedger) ensure(id uint64, account common.Address) *Vote {
	key := voteKey{id, account}
	v := l.votes[key]
	if v == nil {
		v = newVote()
		l.votes[key] = v
	}
	return v
}
