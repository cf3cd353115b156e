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

package payload

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSelectorMatchesKeccakPrefix(t *testing.T) {
	// keccak256("transfer(address,uint256)") starts with a9059cbb
	sel := NewSelector("transfer(address,uint256)")
	require.Equal(t, "a9059cbb", sel.String())
}

func TestSelectorsAreDistinct(t *testing.T) {
	seen := make(map[Selector]string)
	for sel, fn := range registry {
		sig := fn().Signature()
		prev, dup := seen[sel]
		require.False(t, dup, "selector clash between %s and %s", prev, sig)
		seen[sel] = sig
	}
	require.Len(t, seen, 5)
}

func TestEncodeDecodeCommands(t *testing.T) {
	collector := common.HexToAddress("0xc0ffee")
	cmds := []Command{
		&ChangeVotingRules{MinQuorumBps: 2500, VotingPeriod: 3600},
		&SetTransferFee{FeeBps: 30, Collector: collector},
		&SetWhitelisted{Account: collector, Allowed: true},
		&SetFrozen{Account: collector, Frozen: true},
		&Mint{To: collector, Amount: uint256.NewInt(1_000_000)},
	}
	for _, cmd := range cmds {
		data, err := Encode(cmd)
		require.NoError(t, err)
		sel := SelectorOf(cmd)
		require.Equal(t, sel[:], data[:SelectorLength])

		decoded, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, cmd, decoded)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrShortPayload)

	_, err = Decode([]byte{0xde, 0xad, 0xbe, 0xef, 0xc0})
	require.ErrorIs(t, err, ErrUnknownSelector)

	sel := SelectorOf(new(ChangeVotingRules))
	_, err = Decode(append(sel[:], 0xff))
	require.Error(t, err)
}

type unregistered struct{}

func (unregistered) Signature() string { return "nothing()" }

func TestEncodeRejectsUnknownCommand(t *testing.T) {
	_, err := Encode(unregistered{})
	require.ErrorIs(t, err, ErrUnknownSelector)
}
