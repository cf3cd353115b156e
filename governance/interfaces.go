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

	"github.com/mccoysc/tokengov/payload"
)

// WeightSource is the fungible ledger that supplies voting weight and holds
// deposited funds. Transfers are performed on behalf of the engine.
type WeightSource interface {
	// BalanceOf returns the ledger balance of an account
	BalanceOf(account common.Address) *uint256.Int

	// TotalSupply returns the current total supply
	TotalSupply() *uint256.Int

	// TransferFrom moves amount from owner to recipient using the engine's allowance
	TransferFrom(owner, recipient common.Address, amount *uint256.Int) error

	// Transfer moves amount from the engine's own balance to recipient
	Transfer(recipient common.Address, amount *uint256.Int) error
}

// Executor applies a decoded command on behalf of caller. Implementations
// must leave their state untouched when returning an error.
type Executor interface {
	Execute(caller common.Address, cmd payload.Command) error
}

// Journal durably records published events.
type Journal interface {
	Append(ev Event) error
}
