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
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mccoysc/tokengov/internal/config"
)

// setupLogging installs the root log handler. Terminal output is colored
// when stderr is a terminal; a log file, if configured, is rotated by size.
// The returned function releases the log file.
func setupLogging(cfg config.LogConfig) (func() error, error) {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var (
		output   io.Writer = os.Stderr
		useColor           = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		closer             = func() error { return nil }
	)
	if useColor && cfg.File == "" {
		output = colorable.NewColorableStderr()
	}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		output, useColor, closer = rotating, false, rotating.Close
	}
	log.SetDefault(log.NewLogger(newHandler(output, cfg.Format, level, useColor)))
	return closer, nil
}

func newHandler(w io.Writer, format string, level slog.Level, useColor bool) slog.Handler {
	if format == "" {
		format = "json"
		if useColor {
			format = "terminal"
		}
	}
	if format == "json" {
		return log.JSONHandlerWithLevel(w, level)
	}
	return log.NewTerminalHandlerWithLevel(w, level, useColor)
}
