/*

This file contains the authorization gate: the owner check guarding privileged
configuration changes, plus the two self-administered single-role addresses
(dev payout and fee sink) that only their current holder may rotate.

*/

package auth

import (
	"errors"
	"sync"

	"github.com/stakeworks/farmd/internal/types"
)

var ErrUnauthorized = errors.New("unauthorized")

// Gate performs synchronous caller checks for privileged operations.
type Gate struct {
	mu    sync.RWMutex
	owner types.Account
	dev   types.Account
	fee   types.Account
}

func NewGate(owner, dev, fee types.Account) (*Gate, error) {
	if owner.IsEmpty() || dev.IsEmpty() || fee.IsEmpty() {
		return nil, errors.New("owner, dev and fee accounts must all be set")
	}
	return &Gate{owner: owner, dev: dev, fee: fee}, nil
}

// RequireOwner rejects callers other than the configured owner.
func (g *Gate) RequireOwner(caller types.Account) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if caller != g.owner {
		return ErrUnauthorized
	}
	return nil
}

// Dev returns the current dev payout address.
func (g *Gate) Dev() types.Account {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dev
}

// FeeCollector returns the current fee sink address.
func (g *Gate) FeeCollector() types.Account {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fee
}

// RotateDev hands the dev role to next. Only the current holder may rotate.
func (g *Gate) RotateDev(caller, next types.Account) error {
	if next.IsEmpty() {
		return errors.New("next dev account must not be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller != g.dev {
		return ErrUnauthorized
	}
	g.dev = next
	return nil
}

// RotateFeeCollector hands the fee sink role to next. Only the current holder
// may rotate.
func (g *Gate) RotateFeeCollector(caller, next types.Account) error {
	if next.IsEmpty() {
		return errors.New("next fee account must not be empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller != g.fee {
		return ErrUnauthorized
	}
	g.fee = next
	return nil
}
