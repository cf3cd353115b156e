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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mccoysc/tokengov/payload"
)

// Dispatcher routes the payload of a passed proposal to the executor
// registered for its target. A failing executor is reported to the caller
// and never affects the caller's own state.
type Dispatcher struct {
	mu      sync.RWMutex
	targets map[common.Address]Executor
}

// NewDispatcher creates a dispatcher with no targets
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		targets: make(map[common.Address]Executor),
	}
}

// Register installs exec as the handler of target, replacing any previous one.
func (d *Dispatcher) Register(target common.Address, exec Executor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.targets[target] = exec
}

// Targets returns the registered target addresses.
func (d *Dispatcher) Targets() []common.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()

	targets := make([]common.Address, 0, len(d.targets))
	for addr := range d.targets {
		targets = append(targets, addr)
	}
	return targets
}

// Execute decodes data and applies it to target on behalf of caller. An
// empty payload is a signal-only proposal and succeeds without a call.
func (d *Dispatcher) Execute(caller, target common.Address, data []byte) (ok bool, err error) {
	if len(data) == 0 {
		return true, nil
	}
	d.mu.RLock()
	exec, found := d.targets[target]
	d.mu.RUnlock()
	if !found {
		return false, fmt.Errorf("%w: %s", ErrUnknownTarget, target.Hex())
	}
	cmd, err := payload.Decode(data)
	if err != nil {
		return false, err
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("Dispatch panicked", "target", target, "command", cmd.Signature(), "panic", r)
			ok, err = false, fmt.Errorf("executor panic: %v", r)
		}
	}()
	if err := exec.Execute(caller, cmd); err != nil {
		return false, fmt.Errorf("%s: %w", cmd.Signature(), err)
	}
	return true, nil
}
