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

// Package payload defines the closed set of commands a passed proposal can
// dispatch, and their wire format.
//
// An encoded command is a 4 byte selector, the first bytes of the keccak256
// hash of the command signature, followed by the RLP encoding of the
// command's fields.
package payload

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// SelectorLength is the size of the command selector prefix.
const SelectorLength = 4

var (
	ErrShortPayload    = errors.New("payload shorter than selector")
	ErrUnknownSelector = errors.New("unknown command selector")
)

// Selector identifies a command type on the wire.
type Selector [SelectorLength]byte

func (s Selector) String() string { return common.Bytes2Hex(s[:]) }

// NewSelector derives the selector of a command signature.
func NewSelector(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature)))
	return s
}

// Command is a dispatchable governance action.
type Command interface {
	// Signature is the canonical name and argument types of the command
	Signature() string
}

// ChangeVotingRules replaces the engine's quorum and voting period.
type ChangeVotingRules struct {
	MinQuorumBps uint16
	VotingPeriod uint64
}

func (*ChangeVotingRules) Signature() string { return "changeVotingRules(uint16,uint64)" }

// SetTransferFee changes the token transfer fee and its collector.
type SetTransferFee struct {
	FeeBps    uint16
	Collector common.Address
}

func (*SetTransferFee) Signature() string { return "setTransferFee(uint16,address)" }

// SetWhitelisted adds or removes a fee-exempt account.
type SetWhitelisted struct {
	Account common.Address
	Allowed bool
}

func (*SetWhitelisted) Signature() string { return "setWhitelisted(address,bool)" }

// SetFrozen freezes or unfreezes an account.
type SetFrozen struct {
	Account common.Address
	Frozen  bool
}

func (*SetFrozen) Signature() string { return "setFrozen(address,bool)" }

// Mint creates new tokens.
type Mint struct {
	To     common.Address
	Amount *uint256.Int
}

func (*Mint) Signature() string { return "mint(address,uint256)" }

// registry maps selectors to constructors of empty commands.
var registry = make(map[Selector]func() Command)

func register(fn func() Command) {
	registry[NewSelector(fn().Signature())] = fn
}

func init() {
	register(func() Command { return new(ChangeVotingRules) })
	register(func() Command { return new(SetTransferFee) })
	register(func() Command { return new(SetWhitelisted) })
	register(func() Command { return new(SetFrozen) })
	register(func() Command { return new(Mint) })
}

// SelectorOf returns the selector of a command.
func SelectorOf(cmd Command) Selector {
	return NewSelector(cmd.Signature())
}

// Encode serializes a command.
func Encode(cmd Command) ([]byte, error) {
	sel := SelectorOf(cmd)
	if _, ok := registry[sel]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, cmd.Signature())
	}
	body, err := rlp.EncodeToBytes(cmd)
	if err != nil {
		return nil, err
	}
	return append(sel[:], body...), nil
}

// Decode parses an encoded command.
func Decode(data []byte) (Command, error) {
	if len(data) < SelectorLength {
		return nil, ErrShortPayload
	}
	var sel Selector
	copy(sel[:], data)

	fn, ok := registry[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}
	cmd := fn()
	if err := rlp.DecodeBytes(data[SelectorLength:], cmd); err != nil {
		return nil, fmt.Errorf("decode %s: %w", cmd.Signature(), err)
	}
	return cmd, nil
}
