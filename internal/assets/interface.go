package assets

import (
	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/stakeworks/farmd/internal/types"
)

// Bank defines the interface the farm engine uses to move assets around.
// This interface abstracts away the specific asset implementation (in-process
// ledger, chain-backed client, etc.); the engine never assumes success and
// checks every returned error explicitly.
type Bank interface {
	// Mint creates amount of denom out of thin air and credits it to recipient.
	Mint(recipient types.Account, denom string, amount sdkmath.Int) error

	// Burn destroys amount of denom held by holder. Used by the asset layer to
	// consume the self-stake transfer tax.
	Burn(holder types.Account, denom string, amount sdkmath.Int) error

	// BalanceOf returns holder's current balance of denom. Never negative.
	BalanceOf(holder types.Account, denom string) sdkmath.Int

	// Balances returns all of holder's balances as sorted coins.
	Balances(holder types.Account) sdktypes.Coins

	// Transfer moves amount of denom from one account to another.
	Transfer(from, to types.Account, denom string, amount sdkmath.Int) error

	// TransferFrom pulls amount of denom from source into destination on the
	// caller's behalf. Mirrors the pull path of the staking flow.
	TransferFrom(source, destination types.Account, denom string, amount sdkmath.Int) error
}
