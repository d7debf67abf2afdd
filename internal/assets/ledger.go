/*

This file contains the in-process asset ledger: a Bank implementation backed by
plain balance maps. It is the live collaborator wired into farmd when no
external asset layer is configured, and the reference implementation the engine
is tested against.

*/

package assets

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/stakeworks/farmd/internal/types"
)

var (
	ErrInvalidAmount     = errors.New("amount must be non-negative")
	ErrInvalidAccount    = errors.New("account must not be empty")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger is an in-memory Bank. All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	balances map[types.Account]map[string]sdkmath.Int
}

var _ Bank = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[types.Account]map[string]sdkmath.Int),
	}
}

// Mint creates amount of denom and credits it to recipient.
func (l *Ledger) Mint(recipient types.Account, denom string, amount sdkmath.Int) error {
	if err := validate(recipient, denom, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(recipient, denom, amount)
	return nil
}

// Burn destroys amount of denom held by holder.
func (l *Ledger) Burn(holder types.Account, denom string, amount sdkmath.Int) error {
	if err := validate(holder, denom, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debit(holder, denom, amount)
}

// BalanceOf returns holder's balance of denom, zero if no balance exists.
func (l *Ledger) BalanceOf(holder types.Account, denom string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if held, ok := l.balances[holder]; ok {
		if bal, ok := held[denom]; ok {
			return bal
		}
	}
	return sdkmath.ZeroInt()
}

// Balances returns all of holder's balances as sorted coins.
func (l *Ledger) Balances(holder types.Account) sdktypes.Coins {
	l.mu.RLock()
	defer l.mu.RUnlock()
	coins := sdktypes.Coins{}
	for denom, bal := range l.balances[holder] {
		if bal.IsPositive() {
			coins = coins.Add(sdktypes.NewCoin(denom, bal))
		}
	}
	return coins
}

// Transfer moves amount of denom between accounts. Fails without any state
// change when from holds less than amount.
func (l *Ledger) Transfer(from, to types.Account, denom string, amount sdkmath.Int) error {
	if err := validate(from, denom, amount); err != nil {
		return err
	}
	if to.IsEmpty() {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, denom, amount); err != nil {
		return err
	}
	l.credit(to, denom, amount)
	return nil
}

// TransferFrom pulls amount of denom from source into destination. In the
// in-process ledger there is no allowance layer, so this is a plain transfer.
func (l *Ledger) TransferFrom(source, destination types.Account, denom string, amount sdkmath.Int) error {
	return l.Transfer(source, destination, denom, amount)
}

// credit assumes l.mu is held.
func (l *Ledger) credit(acct types.Account, denom string, amount sdkmath.Int) {
	held, ok := l.balances[acct]
	if !ok {
		held = make(map[string]sdkmath.Int)
		l.balances[acct] = held
	}
	if bal, ok := held[denom]; ok {
		held[denom] = bal.Add(amount)
	} else {
		held[denom] = amount
	}
}

// debit assumes l.mu is held.
func (l *Ledger) debit(acct types.Account, denom string, amount sdkmath.Int) error {
	held := l.balances[acct]
	bal, ok := held[denom]
	if !ok || bal.LT(amount) {
		have := sdkmath.ZeroInt()
		if ok {
			have = bal
		}
		return fmt.Errorf("%w: %s has %s%s, needs %s%s", ErrInsufficientFunds, acct, have, denom, amount, denom)
	}
	held[denom] = bal.Sub(amount)
	return nil
}

func validate(acct types.Account, denom string, amount sdkmath.Int) error {
	if acct.IsEmpty() {
		return ErrInvalidAccount
	}
	if denom == "" {
		return fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
