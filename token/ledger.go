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

// Package token implements the fungible ledger that supplies governance
// weight: balances, allowances, a transfer fee with a fee-exempt whitelist,
// and account freezing.
package token

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/mccoysc/tokengov/governance"
	"github.com/mccoysc/tokengov/payload"
)

// MaxFeeBps caps the transfer fee at 10%.
const MaxFeeBps = 1000

var (
	ErrNotOwner    = errors.New("caller is not the ledger owner")
	ErrFrozen      = errors.New("account is frozen")
	ErrFeeTooHigh  = errors.New("transfer fee above maximum")
	ErrZeroAddress = errors.New("zero address")
)

// Config describes a new ledger.
type Config struct {
	Name         string
	Symbol       string
	Decimals     uint8
	Owner        common.Address
	FeeBps       uint16
	FeeCollector common.Address
}

// DefaultConfig returns the default ledger parameters without an owner.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Governance Token",
		Symbol:   "GOV",
		Decimals: 18,
	}
}

// Ledger is a fee, whitelist and freeze capable fungible token ledger
type Ledger struct {
	mu sync.RWMutex

	name     string
	symbol   string
	decimals uint8
	owner    common.Address

	supply     *uint256.Int
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int

	feeBps       uint16
	feeCollector common.Address
	whitelist    mapset.Set[common.Address]
	frozen       mapset.Set[common.Address]
}

// NewLedger creates an empty ledger.
func NewLedger(config *Config) (*Ledger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Owner == (common.Address{}) {
		return nil, fmt.Errorf("owner: %w", ErrZeroAddress)
	}
	if config.FeeBps > MaxFeeBps {
		return nil, ErrFeeTooHigh
	}
	collector := config.FeeCollector
	if collector == (common.Address{}) {
		collector = config.Owner
	}
	return &Ledger{
		name:         config.Name,
		symbol:       config.Symbol,
		decimals:     config.Decimals,
		owner:        config.Owner,
		supply:       new(uint256.Int),
		balances:     make(map[common.Address]*uint256.Int),
		allowances:   make(map[common.Address]map[common.Address]*uint256.Int),
		feeBps:       config.FeeBps,
		feeCollector: collector,
		whitelist:    mapset.NewThreadUnsafeSet[common.Address](),
		frozen:       mapset.NewThreadUnsafeSet[common.Address](),
	}, nil
}

func (l *Ledger) Name() string    { return l.name }
func (l *Ledger) Symbol() string  { return l.symbol }
func (l *Ledger) Decimals() uint8 { return l.decimals }

// Owner returns the account allowed to administer the ledger.
func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.owner
}

// BalanceOf returns the balance of account.
func (l *Ledger) BalanceOf(account common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(uint256.Int).Set(l.balanceOf(account))
}

// TotalSupply returns the amount of tokens in existence.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(uint256.Int).Set(l.supply)
}

// Allowance returns how much spender may still move from owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if a := l.allowances[owner][spender]; a != nil {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Fee returns the transfer fee in basis points and its collector.
func (l *Ledger) Fee() (uint16, common.Address) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.feeBps, l.feeCollector
}

// IsWhitelisted reports whether transfers from or to account are fee-exempt.
func (l *Ledger) IsWhitelisted(account common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.whitelist.Contains(account)
}

// IsFrozen reports whether account is frozen.
func (l *Ledger) IsFrozen(account common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.frozen.Contains(account)
}

// Transfer moves amount from sender to recipient, charging the transfer fee.
func (l *Ledger) Transfer(sender, recipient common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transfer(sender, recipient, amount)
}

// Approve sets the amount spender may move from owner.
func (l *Ledger) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("spender: %w", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	l.allowances[owner][spender] = new(uint256.Int).Set(amount)
	return nil
}

// TransferFrom moves amount from owner to recipient out of spender's allowance.
func (l *Ledger) TransferFrom(spender, owner, recipient common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowances[owner][spender]
	if allowance == nil || allowance.Lt(amount) {
		return governance.ErrInsufficientAllowance
	}
	if err := l.transfer(owner, recipient, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// Mint creates amount new tokens for to.
func (l *Ledger) Mint(caller, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	return l.mint(to, amount)
}

// Burn destroys amount of caller's tokens.
func (l *Ledger) Burn(caller common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceOf(caller)
	if bal.Lt(amount) {
		return governance.ErrInsufficientBalance
	}
	l.setBalance(caller, new(uint256.Int).Sub(bal, amount))
	l.supply.Sub(l.supply, amount)
	return nil
}

// SetTransferFee changes the fee rate and the account collecting it.
func (l *Ledger) SetTransferFee(caller common.Address, feeBps uint16, collector common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	return l.setTransferFee(feeBps, collector)
}

// SetWhitelisted adds or removes a fee-exempt account.
func (l *Ledger) SetWhitelisted(caller, account common.Address, allowed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	l.setWhitelisted(account, allowed)
	return nil
}

// SetFrozen freezes or unfreezes account.
func (l *Ledger) SetFrozen(caller, account common.Address, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	l.setFrozen(account, frozen)
	return nil
}

// TransferOwnership hands administration to newOwner.
func (l *Ledger) TransferOwnership(caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return fmt.Errorf("owner: %w", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	log.Info("Token ownership transferred", "from", l.owner, "to", newOwner)
	l.owner = newOwner
	return nil
}

// Execute applies a governance command. Only the owner may dispatch to the
// ledger, so it must be owned by the governance engine.
func (l *Ledger) Execute(caller common.Address, cmd payload.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	switch c := cmd.(type) {
	case *payload.SetTransferFee:
		return l.setTransferFee(c.FeeBps, c.Collector)
	case *payload.SetWhitelisted:
		l.setWhitelisted(c.Account, c.Allowed)
		return nil
	case *payload.SetFrozen:
		l.setFrozen(c.Account, c.Frozen)
		return nil
	case *payload.Mint:
		return l.mint(c.To, c.Amount)
	default:
		return fmt.Errorf("%w: %s", governance.ErrUnsupportedCommand, cmd.Signature())
	}
}

// Session binds the ledger to a caller, the way the governance engine uses it.
func (l *Ledger) Session(caller common.Address) *Session {
	return &Session{ledger: l, caller: caller}
}

// fee returns the fee charged on a transfer. Must be called with mu held.
func (l *Ledger) fee(sender, recipient common.Address, amount *uint256.Int) *uint256.Int {
	if l.feeBps == 0 || l.whitelist.ContainsAny(sender, recipient) {
		return new(uint256.Int)
	}
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(l.feeBps)), uint256.NewInt(governance.BasisPoints))
	return fee
}

func (l *Ledger) transfer(sender, recipient common.Address, amount *uint256.Int) error {
	if recipient == (common.Address{}) {
		return fmt.Errorf("recipient: %w", ErrZeroAddress)
	}
	if l.frozen.ContainsAny(sender, recipient) {
		return ErrFrozen
	}
	bal := l.balanceOf(sender)
	if bal.Lt(amount) {
		return governance.ErrInsufficientBalance
	}
	fee := l.fee(sender, recipient, amount)
	received := new(uint256.Int).Sub(amount, fee)

	l.setBalance(sender, new(uint256.Int).Sub(bal, amount))
	l.setBalance(recipient, new(uint256.Int).Add(l.balanceOf(recipient), received))
	if !fee.IsZero() {
		l.setBalance(l.feeCollector, new(uint256.Int).Add(l.balanceOf(l.feeCollector), fee))
	}
	return nil
}

func (l *Ledger) mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint: %w", ErrZeroAddress)
	}
	supply, overflow := new(uint256.Int).AddOverflow(l.supply, amount)
	if overflow {
		return governance.ErrOverflow
	}
	l.supply = supply
	l.setBalance(to, new(uint256.Int).Add(l.balanceOf(to), amount))

	log.Debug("Minted tokens", "to", to, "amount", amount, "supply", supply)
	return nil
}

func (l *Ledger) setTransferFee(feeBps uint16, collector common.Address) error {
	if feeBps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	if collector == (common.Address{}) {
		return fmt.Errorf("collector: %w", ErrZeroAddress)
	}
	l.feeBps, l.feeCollector = feeBps, collector

	log.Info("Transfer fee changed", "bps", feeBps, "collector", collector)
	return nil
}

func (l *Ledger) setWhitelisted(account common.Address, allowed bool) {
	if allowed {
		l.whitelist.Add(account)
	} else {
		l.whitelist.Remove(account)
	}
	log.Info("Fee whitelist updated", "account", account, "allowed", allowed)
}

func (l *Ledger) setFrozen(account common.Address, frozen bool) {
	if frozen {
		l.frozen.Add(account)
	} else {
		l.frozen.Remove(account)
	}
	log.Info("Account freeze updated", "account", account, "frozen", frozen)
}

func (l *Ledger) onlyOwner(caller common.Address) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	return nil
}

func (l *Ledger) balanceOf(account common.Address) *uint256.Int {
	if b := l.balances[account]; b != nil {
		return b
	}
	return new(uint256.Int)
}

func (l *Ledger) setBalance(account common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = amount
}

// Session is a Ledger view acting as one caller. It satisfies
// governance.WeightSource.
type Session struct {
	ledger *Ledger
	caller common.Address
}

var _ governance.WeightSource = (*Session)(nil)

func (s *Session) BalanceOf(account common.Address) *uint256.Int {
	return s.ledger.BalanceOf(account)
}

func (s *Session) TotalSupply() *uint256.Int {
	return s.ledger.TotalSupply()
}

func (s *Session) TransferFrom(owner, recipient common.Address, amount *uint256.Int) error {
	return s.ledger.TransferFrom(s.caller, owner, recipient, amount)
}

func (s *Session) Transfer(recipient common.Address, amount *uint256.Int) error {
	return s.ledger.Transfer(s.caller, recipient, amount)
}
