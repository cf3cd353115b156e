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
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/mccoysc/tokengov/governance"
	"github.com/mccoysc/tokengov/internal/config"
	"github.com/mccoysc/tokengov/payload"
	"github.com/mccoysc/tokengov/token"
)

var (
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb2")
	carol = common.HexToAddress("0xc3")
)

func newTestSimulator(t *testing.T, sc *Scenario) (*Simulator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	sim, err := NewSimulator(config.Default(), sc, &out)
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	return sim, &out
}

func TestFeeChangeScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "fee_change.toml"))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 13)

	sim, out := newTestSimulator(t, sc)
	require.NoError(t, sim.Run(sc), out.String())

	p, err := sim.Engine().GetProposal(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), p.VotesFor.Uint64())
	require.True(t, p.Passed && p.Executed)

	fee, collector := sim.Ledger().Fee()
	require.Equal(t, uint16(200), fee)
	require.Equal(t, bob, collector)

	require.Equal(t, uint64(500), sim.Ledger().BalanceOf(alice).Uint64())
	require.Equal(t, uint64(98), sim.Ledger().BalanceOf(carol).Uint64())
	require.Equal(t, uint64(2), sim.Ledger().BalanceOf(bob).Uint64())

	require.Contains(t, out.String(), "rejected as expected")
	require.Contains(t, out.String(), "proposal 0 passed and executed")

	events, err := sim.Journal().Events(0)
	require.NoError(t, err)
	// 3 deposits, proposal, delegate, 2 votes, finish, withdraw
	require.Len(t, events, 9)
	require.Equal(t, governance.EventVotingFinished, events[7].Kind)

	var report bytes.Buffer
	require.NoError(t, sim.Report(&report))
	require.Contains(t, report.String(), `proposal 0 "Raise the transfer fee to 2%" by bob`)
	require.Contains(t, report.String(), "fee=200bps collector=bob")
}

func TestGovernanceRulesScenario(t *testing.T) {
	sc, err := ParseScenarioString(`
[accounts]
alice = "0x00000000000000000000000000000000000000a1"

[[holders]]
account = "alice"
balance = "1000"

[[steps]]
action = "deposit"
account = "alice"
amount = "1000"

[[steps]]
action = "propose"
account = "alice"
description = "shorter voting"
target = "governance"

[steps.call]
name = "changeVotingRules"
min_quorum_bps = 1000
voting_period = 3600

[[steps]]
action = "vote"
account = "alice"
proposal = 0
support = true

[[steps]]
action = "advance"
seconds = 259200

[[steps]]
action = "finish"
proposal = 0
expect_executed = true
`)
	require.NoError(t, err)
	sim, _ := newTestSimulator(t, sc)
	require.NoError(t, sim.Run(sc))

	rules := sim.Engine().Config()
	require.Equal(t, uint16(1000), rules.MinQuorumBps)
	require.Equal(t, uint64(3600), rules.VotingPeriod)
}

func TestScenarioExpectationMismatch(t *testing.T) {
	sc, err := ParseScenarioString(`
[[steps]]
action = "propose"
account = "0x00000000000000000000000000000000000000a1"
description = "nobody votes"

[[steps]]
action = "advance"
seconds = 259200

[[steps]]
action = "finish"
proposal = 0
expect_passed = true
`)
	require.NoError(t, err)
	sim, _ := newTestSimulator(t, sc)
	require.ErrorContains(t, sim.Run(sc), "passed=false, expected true")

	sc, err = ParseScenarioString(`
[[steps]]
action = "vote"
account = "0x00000000000000000000000000000000000000a1"
proposal = 3
expect = "voting period has ended"
`)
	require.NoError(t, err)
	sim, _ = newTestSimulator(t, sc)
	err = sim.Run(sc)
	require.ErrorContains(t, err, "proposal not found")
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
}

func TestParseScenarioErrors(t *testing.T) {
	_, err := ParseScenarioString(`
[[steps]]
action = "vote"
suport = true
`)
	require.Error(t, err)

	_, err = ParseScenarioString(`
[[steps]]
action = "bribe"
`)
	require.ErrorIs(t, err, errUnknownAction)

	sc, err := ParseScenarioString(`
[accounts]
token = "0x00000000000000000000000000000000000000a1"
`)
	require.NoError(t, err)
	_, err = NewSimulator(config.Default(), sc, &bytes.Buffer{})
	require.ErrorContains(t, err, "name reserved")
}

func TestCallSpecCommand(t *testing.T) {
	r, err := newResolver(&Scenario{Accounts: map[string]string{"alice": alice.Hex()}}, common.HexToAddress("0x1001"), common.HexToAddress("0x1002"))
	require.NoError(t, err)

	cmd, err := (&CallSpec{Name: "mint", To: "alice", Amount: "0x10"}).command(r)
	require.NoError(t, err)
	mint := cmd.(*payload.Mint)
	require.Equal(t, alice, mint.To)
	require.Equal(t, uint64(16), mint.Amount.Uint64())

	cmd, err = (&CallSpec{Name: "setWhitelisted", Account: "governance", Allowed: true}).command(r)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1001"), cmd.(*payload.SetWhitelisted).Account)

	_, err = (&CallSpec{Name: "mint", To: "alice"}).command(r)
	require.ErrorContains(t, err, "amount required")
	_, err = (&CallSpec{Name: "setFrozen", Account: "mallory"}).command(r)
	require.ErrorContains(t, err, "unknown account")
	_, err = (&CallSpec{Name: "selfdestruct"}).command(r)
	require.ErrorContains(t, err, "unknown command")
}

func TestAppCommands(t *testing.T) {
	t.Setenv("TOKENGOV_LOG_LEVEL", "error")
	dir := t.TempDir()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"govsim", "run", "--journal", dir, filepath.Join("testdata", "fee_change.toml")}))
	require.Contains(t, out.String(), "PASSED")

	out.Reset()
	require.NoError(t, app.Run([]string{"govsim", "events", "--journal", dir, "--from", "8"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "VotingFinished(id=0 passed=true executed=true)")

	out.Reset()
	require.NoError(t, app.Run([]string{"govsim", "encode", "--account", alice.Hex(), "--frozen", "setFrozen"}))
	require.Contains(t, out.String(), "selector: 0x"+payload.NewSelector("setFrozen(address,bool)").String())
	require.Contains(t, out.String(), "target:   0x0000000000000000000000000000000000001002")

	require.Error(t, app.Run([]string{"govsim", "run"}))
}

func TestEncodeRejectsOutOfRangeBps(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"govsim", "encode", "--quorum-bps", "70000", "--period", "60", "changeVotingRules"})
	require.ErrorIs(t, err, governance.ErrInvalidQuorum)

	err = app.Run([]string{"govsim", "encode", "--fee-bps", "1001", "--collector", bob.Hex(), "setTransferFee"})
	require.ErrorIs(t, err, token.ErrFeeTooHigh)

	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"govsim", "encode", "--quorum-bps", "10000", "--period", "60", "changeVotingRules"}))
	require.Contains(t, out.String(), "target:   0x0000000000000000000000000000000000001001")
}
