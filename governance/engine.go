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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/mccoysc/tokengov/payload"
)

// Engine is the governance state machine. Holders deposit weight, raise
// proposals, vote or delegate, and after the voting period a proposal is
// finished: if it reached quorum with a majority in favour its payload is
// dispatched.
//
// All operations are serialized by a single lock and either apply fully or
// leave the state untouched. Events of an operation are published after its
// state change, in order, before the next operation's events.
type Engine struct {
	mu     sync.Mutex
	emitMu sync.Mutex // orders event publication across operations

	address    common.Address
	config     Config
	clock      Clock
	weights    WeightSource
	dispatcher *Dispatcher
	journal    Journal

	proposals *ProposalStore
	votes     *VoteLedger
	balances  map[common.Address]*uint256.Int
	locks     map[common.Address]uint64 // earliest withdrawal time

	seq     uint64
	pending []Event // events of the running operation, guarded by mu

	outMu  sync.Mutex
	outbox []Event // committed events awaiting publication

	feed  event.FeedOf[Event]
	scope event.SubscriptionScope
}

// NewEngine creates a governance engine identified by address. The engine
// must be allowed to spend depositors' weight tokens under that address.
func NewEngine(address common.Address, config *Config, weights WeightSource, clock Clock) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if weights == nil {
		return nil, errors.New("governance: weight source required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	e := &Engine{
		address:    address,
		config:     *config,
		clock:      clock,
		weights:    weights,
		dispatcher: NewDispatcher(),
		proposals:  NewProposalStore(),
		votes:      NewVoteLedger(),
		balances:   make(map[common.Address]*uint256.Int),
		locks:      make(map[common.Address]uint64),
	}
	e.dispatcher.Register(address, &engineExecutor{e})
	return e, nil
}

// Address returns the engine's own account.
func (e *Engine) Address() common.Address {
	return e.address
}

// RegisterTarget makes target reachable by passed proposals. The engine's
// own address is reserved.
func (e *Engine) RegisterTarget(target common.Address, exec Executor) error {
	if target == e.address {
		return fmt.Errorf("%w: engine address is reserved", ErrUnauthorized)
	}
	e.dispatcher.Register(target, exec)
	return nil
}

// SetJournal installs a durable event journal. Events published afterwards
// are appended to it.
func (e *Engine) SetJournal(j Journal) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.journal = j
}

// SubscribeEvents delivers every subsequently published event to ch.
// Publication blocks until ch accepts the event: a subscriber that stops
// reading stalls the callers publishing events, but not the engine state,
// which stays readable and writable.
func (e *Engine) SubscribeEvents(ch chan<- Event) event.Subscription {
	return e.scope.Track(e.feed.Subscribe(ch))
}

// Close ends all event subscriptions.
func (e *Engine) Close() {
	e.scope.Close()
}

// Deposit moves amount from the caller's token balance into engine custody
// and credits it as voting weight. Only the tokens that actually reached
// custody are credited, so a ledger charging a transfer fee on the way in
// credits amount minus the fee.
func (e *Engine) Deposit(caller common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.commit()

	if _, overflow := new(uint256.Int).AddOverflow(e.balanceOf(caller), amount); overflow {
		return ErrOverflow
	}
	before := e.weights.BalanceOf(e.address)
	if err := e.weights.TransferFrom(caller, e.address, amount); err != nil {
		log.Debug("Deposit rejected", "account", caller, "amount", amount, "err", err)
		return fmt.Errorf("deposit: %w", err)
	}
	received := new(uint256.Int)
	if after := e.weights.BalanceOf(e.address); after.Gt(before) {
		received.Sub(after, before)
	}
	if received.Lt(amount) {
		log.Warn("Deposit reduced in transit", "account", caller, "sent", amount, "received", received)
	}
	balance := new(uint256.Int).Add(e.balanceOf(caller), received)
	if !balance.IsZero() {
		e.balances[caller] = balance
	}

	log.Info("Deposited governance weight", "account", caller, "amount", received, "balance", balance)
	e.emit(Event{Kind: EventDeposit, Account: caller, Amount: received})
	return nil
}

// Withdraw returns amount of deposited weight to the caller. It fails while
// any proposal the caller participated in is still accepting votes.
func (e *Engine) Withdraw(caller common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.commit()

	if now, lock := e.clock.Now(), e.locks[caller]; now < lock {
		log.Debug("Withdrawal locked", "account", caller, "now", now, "until", lock)
		return ErrWithdrawLocked
	}
	balance := e.balanceOf(caller)
	if amount.Gt(balance) {
		return ErrInsufficientBalance
	}
	if err := e.weights.Transfer(caller, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	remaining := new(uint256.Int).Sub(balance, amount)
	if remaining.IsZero() {
		delete(e.balances, caller)
	} else {
		e.balances[caller] = remaining
	}

	log.Info("Withdrew governance weight", "account", caller, "amount", amount, "balance", remaining)
	e.emit(Event{Kind: EventWithdraw, Account: caller, Amount: new(uint256.Int).Set(amount)})
	return nil
}

// AddProposal creates a proposal. Anyone may propose.
func (e *Engine) AddProposal(caller common.Address, description string, target common.Address, data []byte) (uint64, error) {
	e.mu.Lock()
	defer e.commit()

	id := e.proposals.Create(caller, description, target, data, e.clock.Now())

	log.Info("Proposal created", "id", id, "proposer", caller, "target", target, "payload", len(data))
	e.emit(Event{Kind: EventNewProposal, ProposalID: id, Account: caller, Counterpart: target, Description: description})
	return id, nil
}

// Vote records the caller's decision with its whole deposited balance, plus
// any weight already delegated to it.
func (e *Engine) Vote(caller common.Address, id uint64, supporting bool) error {
	e.mu.Lock()
	defer e.commit()

	deadline, err := e.checkVotingOpen(id)
	if err != nil {
		return err
	}
	plan, err := e.votes.planVote(id, caller, e.balanceOf(caller), supporting)
	if err != nil {
		return err
	}
	if err := e.proposals.checkVotes(id, supporting, plan.total); err != nil {
		return err
	}
	e.votes.applyVote(plan)
	if err := e.proposals.addVotes(id, supporting, plan.total); err != nil {
		// checked above
		panic(err)
	}
	e.raiseLock(caller, deadline)

	log.Info("Vote cast", "id", id, "voter", caller, "supporting", supporting, "weight", plan.weight, "delegated", plan.delegateWeight)
	e.emit(Event{Kind: EventVoted, ProposalID: id, Account: caller, Supporting: supporting})
	return nil
}

// Delegate hands the caller's weight on a proposal to another account. If
// that account's delegation chain already ends in a vote, the weight is
// added to the tally right away.
func (e *Engine) Delegate(caller, to common.Address, id uint64) error {
	if caller == to {
		return ErrSelfDelegation
	}
	e.mu.Lock()
	defer e.commit()

	deadline, err := e.checkVotingOpen(id)
	if err != nil {
		return err
	}
	plan, err := e.votes.planDelegation(id, caller, to, e.balanceOf(caller))
	if err != nil {
		return err
	}
	if plan.credited {
		if err := e.proposals.checkVotes(id, plan.supporting, plan.forwarded); err != nil {
			return err
		}
	}
	e.votes.applyDelegation(plan)
	if plan.credited {
		if err := e.proposals.addVotes(id, plan.supporting, plan.forwarded); err != nil {
			// checked above
			panic(err)
		}
	}
	e.raiseLock(caller, deadline)

	log.Info("Vote delegated", "id", id, "delegator", caller, "delegate", to, "weight", plan.forwarded, "credited", plan.credited)
	e.emit(Event{Kind: EventDelegate, ProposalID: id, Account: caller, Counterpart: to})
	return nil
}

// FinishVoting closes a proposal whose voting period has elapsed. The
// proposal passes if votes for plus against reach the quorum share of the
// current total supply and votes for exceed votes against. A passed
// proposal's payload is dispatched; a dispatch failure is reported in the
// outcome and does not undo the decision.
func (e *Engine) FinishVoting(id uint64) (*Outcome, error) {
	e.mu.Lock()
	defer e.commit()

	p, err := e.proposals.get(id)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen {
		return nil, ErrAlreadyClosed
	}
	if now := e.clock.Now(); now < p.Deadline(e.config.VotingPeriod) {
		return nil, ErrVotingInProgress
	}
	quorum, overflow := new(uint256.Int).MulDivOverflow(e.weights.TotalSupply(), uint256.NewInt(uint64(e.config.MinQuorumBps)), uint256.NewInt(BasisPoints))
	if overflow {
		return nil, ErrOverflow
	}
	participation, overflow := new(uint256.Int).AddOverflow(p.VotesFor, p.VotesAgainst)
	if overflow {
		return nil, ErrOverflow
	}
	outcome := &Outcome{
		ProposalID: id,
		Passed:     !participation.Lt(quorum) && p.VotesFor.Gt(p.VotesAgainst),
		Quorum:     quorum,
	}
	if err := e.proposals.Close(id); err != nil {
		return nil, err
	}
	if outcome.Passed {
		outcome.Executed, outcome.Err = e.dispatcher.Execute(e.address, p.Target, p.Payload)
		if outcome.Err != nil {
			log.Warn("Proposal passed but dispatch failed", "id", id, "target", p.Target, "err", outcome.Err)
		}
	}
	e.proposals.setOutcome(id, outcome.Passed, outcome.Executed, outcome.Err)

	log.Info("Voting finished", "id", id, "passed", outcome.Passed, "executed", outcome.Executed,
		"for", p.VotesFor, "against", p.VotesAgainst, "quorum", quorum)
	e.emit(Event{Kind: EventVotingFinished, ProposalID: id, Passed: outcome.Passed, Executed: outcome.Executed})
	return outcome, nil
}

// ChangeVotingRules replaces the quorum and voting period. Only the engine
// itself may call it, which makes it reachable solely through a passed
// proposal targeting the engine.
func (e *Engine) ChangeVotingRules(caller common.Address, minQuorumBps uint16, votingPeriod uint64) error {
	e.mu.Lock()
	defer e.commit()

	return e.changeVotingRules(caller, minQuorumBps, votingPeriod)
}

// GetProposal returns a copy of a proposal.
func (e *Engine) GetProposal(id uint64) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.proposals.Get(id)
}

// GetManyProposals returns proposals start..end inclusive.
func (e *Engine) GetManyProposals(start, end uint64) ([]*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.proposals.Range(start, end)
}

// ProposalCount returns the number of proposals created.
func (e *Engine) ProposalCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.proposals.Count()
}

// ProposalState reports where a proposal is in its lifecycle right now.
func (e *Engine) ProposalState(id uint64) (ProposalState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.proposals.get(id)
	if err != nil {
		return 0, err
	}
	switch {
	case !p.IsOpen:
		return ProposalStateClosed, nil
	case e.clock.Now() >= p.Deadline(e.config.VotingPeriod):
		return ProposalStateFinishable, nil
	default:
		return ProposalStateOpen, nil
	}
}

// GetUserVote returns the vote that decides for account, following its
// delegation chain.
func (e *Engine) GetUserVote(id uint64, account common.Address) (*Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.proposals.get(id); err != nil {
		return nil, err
	}
	return e.votes.Resolve(id, account)
}

// GetDelegators returns the accounts that delegated directly to account.
func (e *Engine) GetDelegators(account common.Address, id uint64) ([]common.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.proposals.get(id); err != nil {
		return nil, err
	}
	return e.votes.DelegatorsOf(id, account), nil
}

// BalanceOf returns the deposited weight of account.
func (e *Engine) BalanceOf(account common.Address) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return new(uint256.Int).Set(e.balanceOf(account))
}

// WithdrawalLock returns the earliest time account may withdraw.
func (e *Engine) WithdrawalLock(account common.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.locks[account]
}

// Config returns the current voting rules.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.config
}

func (e *Engine) changeVotingRules(caller common.Address, minQuorumBps uint16, votingPeriod uint64) error {
	if caller != e.address {
		log.Debug("Rejected voting rules change", "caller", caller)
		return ErrUnauthorized
	}
	rules := Config{VotingPeriod: votingPeriod, MinQuorumBps: minQuorumBps}
	if err := rules.Validate(); err != nil {
		return err
	}
	e.config = rules

	log.Info("Voting rules changed", "quorum", minQuorumBps, "period", votingPeriod)
	e.emit(Event{Kind: EventVotingRulesChanged, Quorum: minQuorumBps, Period: votingPeriod})
	return nil
}

// checkVotingOpen returns the proposal's deadline if it accepts votes now.
func (e *Engine) checkVotingOpen(id uint64) (uint64, error) {
	p, err := e.proposals.get(id)
	if err != nil {
		return 0, err
	}
	deadline := p.Deadline(e.config.VotingPeriod)
	if !p.IsOpen || e.clock.Now() >= deadline {
		return 0, ErrVotingEnded
	}
	return deadline, nil
}

func (e *Engine) raiseLock(account common.Address, until uint64) {
	if until > e.locks[account] {
		e.locks[account] = until
	}
}

func (e *Engine) balanceOf(account common.Address) *uint256.Int {
	if b := e.balances[account]; b != nil {
		return b
	}
	return new(uint256.Int)
}

// emit queues an event for publication. Must be called with mu held.
func (e *Engine) emit(ev Event) {
	e.seq++
	ev.Seq = e.seq
	e.pending = append(e.pending, ev)
}

// commit releases mu and publishes the events queued by the operation.
// Events are moved to the outbox while mu is held, so the outbox keeps the
// order in which operations were applied. Whoever holds emitMu drains it;
// mu is never held while waiting for a subscriber.
func (e *Engine) commit() {
	e.outMu.Lock()
	e.outbox = append(e.outbox, e.pending...)
	e.outMu.Unlock()
	e.pending = nil
	e.mu.Unlock()

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.outMu.Lock()
	events := e.outbox
	e.outbox = nil
	e.outMu.Unlock()

	for _, ev := range events {
		if e.journal != nil {
			if err := e.journal.Append(ev); err != nil {
				log.Error("Failed to journal governance event", "seq", ev.Seq, "kind", ev.Kind, "err", err)
			}
		}
		e.feed.Send(ev)
	}
}

// engineExecutor handles commands that target the engine itself. It runs
// inside FinishVoting, with the engine lock already held.
type engineExecutor struct {
	e *Engine
}

func (x *engineExecutor) Execute(caller common.Address, cmd payload.Command) error {
	switch c := cmd.(type) {
	case *payload.ChangeVotingRules:
		return x.e.changeVotingRules(caller, c.MinQuorumBps, c.VotingPeriod)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Signature())
	}
}
