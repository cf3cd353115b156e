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

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"

	"github.com/mccoysc/tokengov/eventlog"
	"github.com/mccoysc/tokengov/governance"
	"github.com/mccoysc/tokengov/internal/config"
	"github.com/mccoysc/tokengov/payload"
	"github.com/mccoysc/tokengov/token"
)

var (
	stepStyle     = color.New(color.Bold)
	eventStyle    = color.New(color.FgCyan)
	passedStyle   = color.New(color.FgGreen, color.Bold)
	rejectedStyle = color.New(color.FgRed, color.Bold)
	warnStyle     = color.New(color.FgYellow)
)

// eventBuffer bounds the events a single step may publish before they are
// printed.
const eventBuffer = 256

// Simulator runs scenarios against a token ledger governed by an engine
type Simulator struct {
	cfg      *config.Config
	out      io.Writer
	clock    *governance.ManualClock
	ledger   *token.Ledger
	engine   *governance.Engine
	journal  *eventlog.Journal
	resolver *resolver

	events chan governance.Event
	sub    event.Subscription
}

// NewSimulator deploys the ledger and the engine for sc. Initial balances are
// minted by the configured token owner, who then hands the ledger over to
// the engine.
func NewSimulator(cfg *config.Config, sc *Scenario, out io.Writer) (*Simulator, error) {
	govAddr, tokenAddr := cfg.GovernanceAddress(), cfg.TokenAddress()
	r, err := newResolver(sc, govAddr, tokenAddr)
	if err != nil {
		return nil, err
	}
	ledgerCfg := cfg.LedgerConfig()
	ledger, err := token.NewLedger(ledgerCfg)
	if err != nil {
		return nil, err
	}
	if err := ledger.SetWhitelisted(ledgerCfg.Owner, govAddr, true); err != nil {
		return nil, err
	}
	for _, h := range sc.Holders {
		holder, err := r.address(h.Account)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(h.Balance)
		if err != nil {
			return nil, err
		}
		if err := ledger.Mint(ledgerCfg.Owner, holder, amount); err != nil {
			return nil, fmt.Errorf("holder %s: %w", h.Account, err)
		}
	}
	if err := ledger.TransferOwnership(ledgerCfg.Owner, govAddr); err != nil {
		return nil, err
	}
	clock := governance.NewManualClock(sc.Start)
	engine, err := governance.NewEngine(govAddr, cfg.GovernanceRules(), ledger.Session(govAddr), clock)
	if err != nil {
		return nil, err
	}
	if err := engine.RegisterTarget(tokenAddr, ledger); err != nil {
		return nil, err
	}
	var journal *eventlog.Journal
	if cfg.Journal.Path != "" {
		if journal, err = eventlog.Open(cfg.Journal.Path); err != nil {
			return nil, err
		}
	} else {
		journal = eventlog.NewMemory()
	}
	engine.SetJournal(journal)

	s := &Simulator{
		cfg:      cfg,
		out:      out,
		clock:    clock,
		ledger:   ledger,
		engine:   engine,
		journal:  journal,
		resolver: r,
		events:   make(chan governance.Event, eventBuffer),
	}
	s.sub = engine.SubscribeEvents(s.events)
	return s, nil
}

// Engine returns the simulated governance engine.
func (s *Simulator) Engine() *governance.Engine { return s.engine }

// Ledger returns the simulated token ledger.
func (s *Simulator) Ledger() *token.Ledger { return s.ledger }

// Journal returns the event journal of the run.
func (s *Simulator) Journal() *eventlog.Journal { return s.journal }

// Close stops the event subscription and closes the journal.
func (s *Simulator) Close() error {
	s.sub.Unsubscribe()
	s.engine.Close()
	return s.journal.Close()
}

// Run executes the steps of sc in order. It stops at the first step whose
// result differs from the expectation.
func (s *Simulator) Run(sc *Scenario) error {
	for i, step := range sc.Steps {
		stepStyle.Fprintf(s.out, "[%d] %s\n", i, describeStep(step))

		err := s.execute(step)
		s.flushEvents()

		switch {
		case step.Expect != "" && err == nil:
			return fmt.Errorf("step %d (%s): expected error %q, got success", i, step.Action, step.Expect)
		case step.Expect != "" && !strings.Contains(err.Error(), step.Expect):
			return fmt.Errorf("step %d (%s): expected error %q, got %w", i, step.Action, step.Expect, err)
		case step.Expect != "":
			warnStyle.Fprintf(s.out, "    rejected as expected: %v\n", err)
		case err != nil:
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}
	return nil
}

func (s *Simulator) execute(step Step) error {
	r := s.resolver
	account, err := r.address(step.Account)
	if err != nil {
		return err
	}
	switch step.Action {
	case "deposit":
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		if err := s.ledger.Approve(account, s.engine.Address(), amount); err != nil {
			return err
		}
		return s.engine.Deposit(account, amount)

	case "withdraw":
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		return s.engine.Withdraw(account, amount)

	case "transfer":
		to, err := r.address(step.To)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		return s.ledger.Transfer(account, to, amount)

	case "propose":
		target, err := r.address(step.Target)
		if err != nil {
			return err
		}
		var data []byte
		if step.Call != nil {
			cmd, err := step.Call.command(r)
			if err != nil {
				return err
			}
			if data, err = payload.Encode(cmd); err != nil {
				return err
			}
		}
		_, err = s.engine.AddProposal(account, step.Description, target, data)
		return err

	case "vote":
		return s.engine.Vote(account, step.Proposal, step.Support)

	case "delegate":
		to, err := r.address(step.To)
		if err != nil {
			return err
		}
		return s.engine.Delegate(account, to, step.Proposal)

	case "advance":
		now := s.clock.Advance(step.Seconds)
		log.Debug("Clock advanced", "now", now)
		return nil

	case "finish":
		outcome, err := s.engine.FinishVoting(step.Proposal)
		if err != nil {
			return err
		}
		s.printOutcome(outcome)
		if step.ExpectPassed != nil && *step.ExpectPassed != outcome.Passed {
			return fmt.Errorf("proposal %d: passed=%t, expected %t", outcome.ProposalID, outcome.Passed, *step.ExpectPassed)
		}
		if step.ExpectExecuted != nil && *step.ExpectExecuted != outcome.Executed {
			return fmt.Errorf("proposal %d: executed=%t, expected %t", outcome.ProposalID, outcome.Executed, *step.ExpectExecuted)
		}
		return nil
	}
	return fmt.Errorf("%w %q", errUnknownAction, step.Action)
}

// flushEvents prints the events published so far.
func (s *Simulator) flushEvents() {
	for {
		select {
		case ev := <-s.events:
			eventStyle.Fprintf(s.out, "    %s\n", ev)
		default:
			return
		}
	}
}

func (s *Simulator) printOutcome(o *governance.Outcome) {
	switch {
	case !o.Passed:
		rejectedStyle.Fprintf(s.out, "    proposal %d rejected (quorum %s)\n", o.ProposalID, o.Quorum.Dec())
	case o.Executed:
		passedStyle.Fprintf(s.out, "    proposal %d passed and executed\n", o.ProposalID)
	default:
		warnStyle.Fprintf(s.out, "    proposal %d passed, execution failed: %v\n", o.ProposalID, o.Err)
	}
}

// Report writes the final state of all proposals and deposits.
func (s *Simulator) Report(w io.Writer) error {
	count := s.engine.ProposalCount()
	if count > 0 {
		proposals, err := s.engine.GetManyProposals(0, count-1)
		if err != nil {
			return err
		}
		for _, p := range proposals {
			state, err := s.engine.ProposalState(p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "proposal %d %q by %s: for=%s against=%s state=%s", p.ID, p.Description,
				s.resolver.name(p.Proposer), p.VotesFor.Dec(), p.VotesAgainst.Dec(), state)
			switch {
			case p.IsOpen:
				fmt.Fprintln(w)
			case p.Passed && p.Executed:
				passedStyle.Fprintln(w, " PASSED")
			case p.Passed:
				warnStyle.Fprintf(w, " PASSED (execution failed: %s)\n", p.ExecutionError)
			default:
				rejectedStyle.Fprintln(w, " REJECTED")
			}
		}
	}
	rules := s.engine.Config()
	fee, collector := s.ledger.Fee()
	fmt.Fprintf(w, "rules: quorum=%dbps period=%ds, token fee=%dbps collector=%s, supply=%s\n",
		rules.MinQuorumBps, rules.VotingPeriod, fee, s.resolver.name(collector), s.ledger.TotalSupply().Dec())
	return nil
}

func describeStep(step Step) string {
	switch step.Action {
	case "deposit", "withdraw":
		return fmt.Sprintf("%s %s %s", step.Action, step.Account, step.Amount)
	case "transfer":
		return fmt.Sprintf("transfer %s -> %s %s", step.Account, step.To, step.Amount)
	case "propose":
		call := "signal"
		if step.Call != nil {
			call = step.Call.Name
		}
		return fmt.Sprintf("propose by %s: %q (%s on %s)", step.Account, step.Description, call, step.Target)
	case "vote":
		side := "against"
		if step.Support {
			side = "for"
		}
		return fmt.Sprintf("vote %s %s proposal %d", step.Account, side, step.Proposal)
	case "delegate":
		return fmt.Sprintf("delegate %s -> %s on proposal %d", step.Account, step.To, step.Proposal)
	case "advance":
		return fmt.Sprintf("advance %ds", step.Seconds)
	case "finish":
		return fmt.Sprintf("finish proposal %d", step.Proposal)
	}
	return step.Action
}

// errScenarioFailed reports a scenario that did not run to completion.
var errScenarioFailed = errors.New("scenario failed")
