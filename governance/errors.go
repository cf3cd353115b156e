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

import "errors"

// Kind classifies governance errors by who has to act on them.
type Kind uint8

const (
	KindUnknown    Kind = iota
	KindValidation      // input is wrong, retry with corrected input
	KindState           // ledger state forbids the call right now
	KindIntegrity       // ledger is in an unexpected state
)

// Kind sentinels, matched with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrState      = errors.New("state error")
	ErrIntegrity  = errors.New("integrity error")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindState:
		return ErrState
	case KindIntegrity:
		return ErrIntegrity
	}
	return nil
}

// kindError is a sentinel error tagged with its Kind.
type kindError struct {
	kind Kind
	msg  string
}

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

// Is reports a match against the sentinel of the error's kind.
func (e *kindError) Is(target error) bool {
	return target != nil && target == e.kind.sentinel()
}

// KindOf returns the kind of the first governance error in err's chain.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// Validation errors
var (
	ErrZeroAmount          = newError(KindValidation, "amount must be greater than zero")
	ErrInvalidRange        = newError(KindValidation, "invalid proposal range")
	ErrSelfDelegation      = newError(KindValidation, "cannot delegate to self")
	ErrUnknownDecision     = newError(KindValidation, "unknown decision")
	ErrInvalidQuorum       = newError(KindValidation, "quorum must be within 0-10000 basis points")
	ErrInvalidVotingPeriod = newError(KindValidation, "voting period must be greater than zero")
)

// Voting errors
var (
	ErrProposalNotFound    = newError(KindState, "proposal not found")
	ErrAlreadyParticipated = newError(KindState, "account already participated in this proposal")
	ErrVotingEnded         = newError(KindState, "voting period has ended")
	ErrVotingInProgress    = newError(KindState, "voting period has not ended yet")
	ErrAlreadyClosed       = newError(KindState, "proposal already closed")
	ErrUnauthorized        = newError(KindState, "caller is not authorized")
)

// Custody errors
var (
	ErrWithdrawLocked        = newError(KindState, "withdrawal locked until latest vote ends")
	ErrInsufficientBalance   = newError(KindState, "insufficient balance")
	ErrInsufficientAllowance = newError(KindState, "insufficient allowance")
)

// Dispatch errors
var (
	ErrUnknownTarget      = newError(KindState, "no executor registered for target")
	ErrUnsupportedCommand = newError(KindValidation, "command not supported by target")
)

// Integrity errors
var (
	ErrDelegationCycle = newError(KindIntegrity, "delegation chain exceeds maximum depth")
	ErrOverflow        = newError(KindIntegrity, "arithmetic overflow")
)
