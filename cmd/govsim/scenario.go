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
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pelletier/go-toml/v2"

	"github.com/mccoysc/tokengov/payload"
)

// Scenario is a scripted sequence of governance actions
type Scenario struct {
	Start    uint64            `toml:"start"` // initial clock, seconds
	Accounts map[string]string `toml:"accounts"`
	Holders  []Holding         `toml:"holders"`
	Steps    []Step            `toml:"steps"`
}

// Holding is an initial token balance
type Holding struct {
	Account string `toml:"account"`
	Balance string `toml:"balance"`
}

// Step is one scenario action. Which fields apply depends on Action:
//
//	deposit, withdraw: account, amount
//	transfer:          account, to, amount
//	propose:           account, description, target, call (optional)
//	vote:              account, proposal, support
//	delegate:          account, to, proposal
//	advance:           seconds
//	finish:            proposal, expect_passed, expect_executed
//
// A step with expect set must fail with an error containing it.
type Step struct {
	Action      string    `toml:"action"`
	Account     string    `toml:"account"`
	To          string    `toml:"to"`
	Amount      string    `toml:"amount"`
	Proposal    uint64    `toml:"proposal"`
	Support     bool      `toml:"support"`
	Description string    `toml:"description"`
	Target      string    `toml:"target"`
	Call        *CallSpec `toml:"call"`
	Seconds     uint64    `toml:"seconds"`

	Expect         string `toml:"expect"`
	ExpectPassed   *bool  `toml:"expect_passed"`
	ExpectExecuted *bool  `toml:"expect_executed"`
}

// CallSpec names a payload command and its arguments
type CallSpec struct {
	Name         string `toml:"name"`
	MinQuorumBps uint16 `toml:"min_quorum_bps"`
	VotingPeriod uint64 `toml:"voting_period"`
	FeeBps       uint16 `toml:"fee_bps"`
	Collector    string `toml:"collector"`
	Account      string `toml:"account"`
	Allowed      bool   `toml:"allowed"`
	Frozen       bool   `toml:"frozen"`
	To           string `toml:"to"`
	Amount       string `toml:"amount"`
}

var errUnknownAction = errors.New("unknown action")

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	return ParseScenario(f)
}

// ParseScenario decodes a TOML scenario. Unknown keys are rejected.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("failed to parse scenario: %s", strict.String())
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	for i, step := range sc.Steps {
		switch step.Action {
		case "deposit", "withdraw", "transfer", "propose", "vote", "delegate", "advance", "finish":
		default:
			return nil, fmt.Errorf("step %d: %w %q", i, errUnknownAction, step.Action)
		}
	}
	return &sc, nil
}

// ParseScenarioString is ParseScenario on an in-memory document.
func ParseScenarioString(doc string) (*Scenario, error) {
	return ParseScenario(strings.NewReader(doc))
}

// resolver maps scenario account names to addresses
type resolver struct {
	names map[string]common.Address
}

func newResolver(sc *Scenario, governance, token common.Address) (*resolver, error) {
	r := &resolver{names: map[string]common.Address{
		"governance": governance,
		"token":      token,
	}}
	for name, hex := range sc.Accounts {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("account %s: invalid address %q", name, hex)
		}
		if _, taken := r.names[name]; taken {
			return nil, fmt.Errorf("account %s: name reserved", name)
		}
		r.names[name] = common.HexToAddress(hex)
	}
	return r, nil
}

// address resolves a name or hex address. The empty string is the zero address.
func (r *resolver) address(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if addr, ok := r.names[s]; ok {
		return addr, nil
	}
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("unknown account %q", s)
}

// name returns the scenario name of addr, or its hex form.
func (r *resolver) name(addr common.Address) string {
	for name, a := range r.names {
		if a == addr {
			return name
		}
	}
	return addr.Hex()
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("amount required")
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// command builds the payload command described by c.
func (c *CallSpec) command(r *resolver) (payload.Command, error) {
	switch c.Name {
	case "changeVotingRules":
		return &payload.ChangeVotingRules{MinQuorumBps: c.MinQuorumBps, VotingPeriod: c.VotingPeriod}, nil
	case "setTransferFee":
		collector, err := r.address(c.Collector)
		if err != nil {
			return nil, err
		}
		return &payload.SetTransferFee{FeeBps: c.FeeBps, Collector: collector}, nil
	case "setWhitelisted":
		account, err := r.address(c.Account)
		if err != nil {
			return nil, err
		}
		return &payload.SetWhitelisted{Account: account, Allowed: c.Allowed}, nil
	case "setFrozen":
		account, err := r.address(c.Account)
		if err != nil {
			return nil, err
		}
		return &payload.SetFrozen{Account: account, Frozen: c.Frozen}, nil
	case "mint":
		to, err := r.address(c.To)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		return &payload.Mint{To: to, Amount: amount}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", c.Name)
	}
}
