/*

This file contains the referral registry collaborator: participant -> referrer
links, recorded at most once per participant.

*/

package referral

import (
	"sync"

	"github.com/stakeworks/farmd/internal/types"
)

// Registry abstracts the referral storage consumed by the farm engine.
type Registry interface {
	// Record links participant to referrer. First write wins; self-referral
	// and empty referrer are ignored. Returns true only when a new link was
	// actually written.
	Record(participant, referrer types.Account) bool

	// ReferrerOf returns the recorded referrer, or NoAccount when none exists.
	ReferrerOf(participant types.Account) types.Account
}

// MemoryRegistry is the in-process Registry implementation. Safe for
// concurrent use.
type MemoryRegistry struct {
	mu        sync.RWMutex
	referrers map[types.Account]types.Account
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		referrers: make(map[types.Account]types.Account),
	}
}

func (r *MemoryRegistry) Record(participant, referrer types.Account) bool {
	if participant.IsEmpty() || referrer.IsEmpty() || participant == referrer {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.referrers[participant]; exists {
		return false
	}
	r.referrers[participant] = referrer
	return true
}

func (r *MemoryRegistry) ReferrerOf(participant types.Account) types.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ref, ok := r.referrers[participant]; ok {
		return ref
	}
	return types.NoAccount
}
