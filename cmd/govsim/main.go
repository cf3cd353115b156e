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

// govsim replays governance scenarios against a token ledger governed by
// the engine, encodes proposal payloads and dumps event journals.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/mccoysc/tokengov/eventlog"
	"github.com/mccoysc/tokengov/governance"
	"github.com/mccoysc/tokengov/internal/config"
	"github.com/mccoysc/tokengov/payload"
	"github.com/mccoysc/tokengov/token"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML configuration file",
		EnvVars: []string{"TOKENGOV_CONFIG"},
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level override (trace, debug, info, warn, error, crit)",
	}
	journalFlag = &cli.StringFlag{
		Name:  "journal",
		Usage: "event journal directory",
	}
	fromFlag = &cli.Uint64Flag{
		Name:  "from",
		Usage: "first event sequence number to print",
	}
	reportFlag = &cli.BoolFlag{
		Name:  "report",
		Usage: "print proposal summary after the run",
		Value: true,
	}
)

var (
	runCommand = &cli.Command{
		Name:      "run",
		Usage:     "Replay a scenario file",
		ArgsUsage: "<scenario.toml>",
		Flags:     []cli.Flag{journalFlag, reportFlag},
		Action:    runScenario,
	}
	encodeCommand = &cli.Command{
		Name:      "encode",
		Usage:     "Encode a proposal payload",
		ArgsUsage: "<command>",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "quorum-bps", Usage: "changeVotingRules: minimum quorum"},
			&cli.Uint64Flag{Name: "period", Usage: "changeVotingRules: voting period in seconds"},
			&cli.UintFlag{Name: "fee-bps", Usage: "setTransferFee: fee rate"},
			&cli.StringFlag{Name: "collector", Usage: "setTransferFee: fee collector"},
			&cli.StringFlag{Name: "account", Usage: "setWhitelisted, setFrozen: account"},
			&cli.BoolFlag{Name: "allowed", Usage: "setWhitelisted: add to whitelist"},
			&cli.BoolFlag{Name: "frozen", Usage: "setFrozen: freeze account"},
			&cli.StringFlag{Name: "to", Usage: "mint: recipient"},
			&cli.StringFlag{Name: "amount", Usage: "mint: amount"},
		},
		Action: encodePayload,
	}
	eventsCommand = &cli.Command{
		Name:   "events",
		Usage:  "Print the events of a journal",
		Flags:  []cli.Flag{journalFlag, fromFlag},
		Action: dumpEvents,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "govsim",
		Usage:    "token-weighted governance simulator",
		Flags:    []cli.Flag{configFlag, verbosityFlag},
		Commands: []*cli.Command{runCommand, encodeCommand, eventsCommand},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// prepare loads the configuration and installs logging.
func prepare(ctx *cli.Context) (*config.Config, func() error, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Level = ctx.String(verbosityFlag.Name)
	}
	if ctx.IsSet(journalFlag.Name) {
		cfg.Journal.Path = ctx.String(journalFlag.Name)
	}
	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

func runScenario(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected one scenario file")
	}
	cfg, closeLog, err := prepare(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	sc, err := LoadScenario(ctx.Args().First())
	if err != nil {
		return err
	}
	sim, err := NewSimulator(cfg, sc, ctx.App.Writer)
	if err != nil {
		return err
	}
	defer sim.Close()

	if err := sim.Run(sc); err != nil {
		return fmt.Errorf("%w: %v", errScenarioFailed, err)
	}
	if ctx.Bool(reportFlag.Name) {
		return sim.Report(ctx.App.Writer)
	}
	return nil
}

func encodePayload(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected a command name")
	}
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	r, err := newResolver(&Scenario{}, cfg.GovernanceAddress(), cfg.TokenAddress())
	if err != nil {
		return err
	}
	quorumBps, feeBps := ctx.Uint("quorum-bps"), ctx.Uint("fee-bps")
	if quorumBps > governance.BasisPoints {
		return fmt.Errorf("quorum-bps %d: %w", quorumBps, governance.ErrInvalidQuorum)
	}
	if feeBps > token.MaxFeeBps {
		return fmt.Errorf("fee-bps %d: %w", feeBps, token.ErrFeeTooHigh)
	}
	spec := &CallSpec{
		Name:         ctx.Args().First(),
		MinQuorumBps: uint16(quorumBps),
		VotingPeriod: ctx.Uint64("period"),
		FeeBps:       uint16(feeBps),
		Collector:    ctx.String("collector"),
		Account:      ctx.String("account"),
		Allowed:      ctx.Bool("allowed"),
		Frozen:       ctx.Bool("frozen"),
		To:           ctx.String("to"),
		Amount:       ctx.String("amount"),
	}
	cmd, err := spec.command(r)
	if err != nil {
		return err
	}
	data, err := payload.Encode(cmd)
	if err != nil {
		return err
	}
	target := cfg.TokenAddress()
	if _, ok := cmd.(*payload.ChangeVotingRules); ok {
		target = cfg.GovernanceAddress()
	}
	fmt.Fprintf(ctx.App.Writer, "target:   %s\nselector: 0x%s\npayload:  %s\n", target.Hex(), payload.SelectorOf(cmd), hexutil.Encode(data))
	return nil
}

func dumpEvents(ctx *cli.Context) error {
	cfg, closeLog, err := prepare(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Journal.Path == "" {
		return errors.New("no journal configured, use --journal")
	}
	journal, err := eventlog.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	return journal.Iterate(ctx.Uint64(fromFlag.Name), func(ev governance.Event) bool {
		fmt.Fprintln(ctx.App.Writer, ev)
		return true
	})
}
