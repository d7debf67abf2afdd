package farm

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/farmd/internal/assets"
	"github.com/stakeworks/farmd/internal/auth"
	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/referral"
	"github.com/stakeworks/farmd/internal/types"
)

func TestDepositSelfStakeTaxAndFee(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	// Staking the reward asset itself, with the deposit fee at its cap.
	id := env.addPool(100, testRewardDenom, config.MaxDepositFeeBP)

	env.fund(alice, testRewardDenom, 1000)
	env.deposit(alice, id, 1000)

	// 1000 pulled, 50 burned as transfer tax, 38 skimmed as fee on the
	// post-tax 950, 912 credited.
	pos, err := env.farm.PositionOf(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(912), pos.Amount)
	require.Equal(t, sdkmath.NewInt(38), env.bank.BalanceOf(feeSink, testRewardDenom))
	require.Equal(t, sdkmath.NewInt(912), env.bank.BalanceOf(engineAcct, testRewardDenom))
	require.True(t, env.bank.BalanceOf(alice, testRewardDenom).IsZero())
}

func TestDepositFeeWithoutTax(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	// A non-reward stake asset carries no transfer tax, only the pool fee.
	id := env.addPool(100, testStakeDenom, 100)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	pos, err := env.farm.PositionOf(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(990), pos.Amount)
	require.Equal(t, sdkmath.NewInt(10), env.bank.BalanceOf(feeSink, testStakeDenom))
	require.Equal(t, sdkmath.NewInt(990), env.bank.BalanceOf(engineAcct, testStakeDenom))
}

func TestDepositRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	err := env.farm.Deposit(types.NoAccount, id, sdkmath.NewInt(1), types.NoAccount)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	err = env.farm.Deposit(alice, id, sdkmath.NewInt(-1), types.NoAccount)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	err = env.farm.Deposit(alice, types.PoolID(9), sdkmath.NewInt(1), types.NoAccount)
	require.ErrorIs(t, err, ErrUnknownPool)
}

func TestRewardDebtTracksAmountTimesAcc(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 3000)

	checkDebt := func() {
		pool, err := env.farm.PoolInfo(id)
		require.NoError(t, err)
		pos, err := env.farm.PositionOf(id, alice)
		require.NoError(t, err)
		want := pos.Amount.Mul(pool.AccRewardPerShare).Quo(config.AccScale)
		require.Equal(t, want, pos.RewardDebt)
	}

	env.deposit(alice, id, 1000)
	checkDebt()
	env.clock.step = 4
	env.deposit(alice, id, 2000)
	checkDebt()
	env.clock.step = 9
	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.NewInt(1500)))
	checkDebt()
	env.clock.step = 13
	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.ZeroInt()))
	checkDebt()
}

func TestWithdrawInsufficientStake(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 100)
	env.deposit(alice, id, 100)

	env.clock.step = 5
	err := env.farm.Withdraw(alice, id, sdkmath.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientStake)

	// The rejection happens before any accrual: the pool checkpoint did not
	// move and nothing was minted.
	pool, err := env.farm.PoolInfo(id)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pool.LastRewardStep)
	require.True(t, env.bank.BalanceOf(engineAcct, testRewardDenom).IsZero())
}

func TestWithdrawFullCycle(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	env.clock.step = 10
	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.NewInt(1000)))

	require.Equal(t, sdkmath.NewInt(1000), env.bank.BalanceOf(alice, testStakeDenom))
	require.Equal(t, sdkmath.NewInt(8000), env.bank.BalanceOf(alice, testRewardDenom))

	pos, err := env.farm.PositionOf(id, alice)
	require.NoError(t, err)
	require.True(t, pos.Amount.IsZero())
	require.True(t, pos.RewardDebt.IsZero())
}

func TestEmergencyWithdrawForfeitsPending(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	env.clock.step = 10
	require.NoError(t, env.farm.EmergencyWithdraw(alice, id))

	// The entire stake comes back, the entitlement does not.
	require.Equal(t, sdkmath.NewInt(1000), env.bank.BalanceOf(alice, testStakeDenom))
	require.True(t, env.bank.BalanceOf(alice, testRewardDenom).IsZero())

	pos, err := env.farm.PositionOf(id, alice)
	require.NoError(t, err)
	require.True(t, pos.Amount.IsZero())
	require.True(t, pos.RewardDebt.IsZero())

	pending, err := env.farm.PendingReward(id, alice)
	require.NoError(t, err)
	require.True(t, pending.IsZero())

	// The escape hatch never touches the accrual state or mints anything.
	pool, err := env.farm.PoolInfo(id)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pool.LastRewardStep)
	require.True(t, env.bank.BalanceOf(dev, testRewardDenom).IsZero())
}

func TestEmergencyWithdrawEmptyPositionIsNoop(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)
	require.NoError(t, env.farm.EmergencyWithdraw(alice, id))
	require.True(t, env.bank.BalanceOf(alice, testStakeDenom).IsZero())
}

func TestReferralCommissionPaidOnHarvest(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), config.MaxCommissionBP)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	require.NoError(t, env.farm.Deposit(alice, id, sdkmath.NewInt(1000), bob))

	env.clock.step = 10
	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.ZeroInt()))

	// 8000 harvested, 5% of the entitlement minted on top for the referrer.
	require.Equal(t, sdkmath.NewInt(8000), env.bank.BalanceOf(alice, testRewardDenom))
	require.Equal(t, sdkmath.NewInt(400), env.bank.BalanceOf(bob, testRewardDenom))
}

func TestReferralFirstWriteWins(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), config.MaxCommissionBP)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 2000)
	require.NoError(t, env.farm.Deposit(alice, id, sdkmath.NewInt(1000), bob))
	// A later deposit naming a different referrer changes nothing.
	require.NoError(t, env.farm.Deposit(alice, id, sdkmath.NewInt(1000), carol))

	env.clock.step = 10
	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.ZeroInt()))

	require.True(t, env.bank.BalanceOf(bob, testRewardDenom).IsPositive())
	require.True(t, env.bank.BalanceOf(carol, testRewardDenom).IsZero())
}

func TestReferralNotRecordedOnZeroDeposit(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), config.MaxCommissionBP)
	id := env.addPool(100, testStakeDenom, 0)

	// A pure harvest carries no referral intent.
	require.NoError(t, env.farm.Deposit(alice, id, sdkmath.ZeroInt(), bob))
	require.Equal(t, types.NoAccount, env.referrals.ReferrerOf(alice))
}

func TestSafeTransferGuardClampsPayout(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	env.clock.step = 10
	require.NoError(t, env.farm.UpdatePool(id))

	// Simulate a reward shortfall in the engine's spendable balance.
	require.NoError(t, env.bank.Burn(engineAcct, testRewardDenom, sdkmath.NewInt(3000)))

	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.ZeroInt()))
	require.Equal(t, sdkmath.NewInt(5000), env.bank.BalanceOf(alice, testRewardDenom))

	// The debt anchored at the full entitlement: the shortfall is not owed.
	pending, err := env.farm.PendingReward(id, alice)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

// faultyBank fails every outbound transfer to a chosen account while keeping
// all other ledger behavior intact.
type faultyBank struct {
	*assets.Ledger
	failTo types.Account
}

func (b *faultyBank) Transfer(from, to types.Account, denom string, amount sdkmath.Int) error {
	if to == b.failTo {
		return errors.New("destination rejected")
	}
	return b.Ledger.Transfer(from, to, denom, amount)
}

func TestWithdrawRollsBackOnTransferFailure(t *testing.T) {
	bank := &faultyBank{Ledger: assets.NewLedger(), failTo: alice}
	gate, err := auth.NewGate(owner, dev, feeSink)
	require.NoError(t, err)
	clock := &manualClock{}

	f, err := NewFarm(Config{
		Bank:          bank,
		Referrals:     referral.NewMemoryRegistry(),
		Gate:          gate,
		Clock:         clock,
		RewardDenom:   testRewardDenom,
		EngineAccount: engineAcct,
		Emission:      defaultEmission(),
	})
	require.NoError(t, err)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testStakeDenom, 0, false)
	require.NoError(t, err)

	require.NoError(t, bank.Mint(alice, testStakeDenom, sdkmath.NewInt(1000)))
	require.NoError(t, f.Deposit(alice, id, sdkmath.NewInt(1000), types.NoAccount))

	err = f.Withdraw(alice, id, sdkmath.NewInt(500))
	require.ErrorIs(t, err, ErrTransferFailed)

	// The stake and its debt anchor survived the failed payout intact.
	pos, err := f.PositionOf(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1000), pos.Amount)
	require.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(engineAcct, testStakeDenom))
}

func TestEmergencyWithdrawRollsBackOnTransferFailure(t *testing.T) {
	bank := &faultyBank{Ledger: assets.NewLedger(), failTo: alice}
	gate, err := auth.NewGate(owner, dev, feeSink)
	require.NoError(t, err)

	f, err := NewFarm(Config{
		Bank:          bank,
		Referrals:     referral.NewMemoryRegistry(),
		Gate:          gate,
		Clock:         &manualClock{},
		RewardDenom:   testRewardDenom,
		EngineAccount: engineAcct,
		Emission:      defaultEmission(),
	})
	require.NoError(t, err)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testStakeDenom, 0, false)
	require.NoError(t, err)

	require.NoError(t, bank.Mint(alice, testStakeDenom, sdkmath.NewInt(700)))
	require.NoError(t, f.Deposit(alice, id, sdkmath.NewInt(700), types.NoAccount))

	err = f.EmergencyWithdraw(alice, id)
	require.ErrorIs(t, err, ErrTransferFailed)

	pos, err := f.PositionOf(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(700), pos.Amount)
}

// reentrantBank calls back into the farm from inside the stake pull, the way a
// hostile asset contract would.
type reentrantBank struct {
	*assets.Ledger
	farm     *Farm
	pool     types.PoolID
	observed error
}

func (b *reentrantBank) TransferFrom(source, destination types.Account, denom string, amount sdkmath.Int) error {
	if b.farm != nil {
		b.observed = b.farm.Withdraw(source, b.pool, sdkmath.ZeroInt())
	}
	return b.Ledger.TransferFrom(source, destination, denom, amount)
}

func TestReentrantCallRejected(t *testing.T) {
	bank := &reentrantBank{Ledger: assets.NewLedger()}
	gate, err := auth.NewGate(owner, dev, feeSink)
	require.NoError(t, err)

	f, err := NewFarm(Config{
		Bank:          bank,
		Referrals:     referral.NewMemoryRegistry(),
		Gate:          gate,
		Clock:         &manualClock{},
		RewardDenom:   testRewardDenom,
		EngineAccount: engineAcct,
		Emission:      defaultEmission(),
	})
	require.NoError(t, err)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testStakeDenom, 0, false)
	require.NoError(t, err)
	bank.farm = f
	bank.pool = id

	require.NoError(t, bank.Mint(alice, testStakeDenom, sdkmath.NewInt(1000)))

	// The outer deposit completes; the nested call bounced off the busy ledger.
	require.NoError(t, f.Deposit(alice, id, sdkmath.NewInt(1000), types.NoAccount))
	require.ErrorIs(t, bank.observed, ErrLedgerBusy)

	pos, err := f.PositionOf(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1000), pos.Amount)
}

func newFarmWithBank(t *testing.T, bank assets.Bank, commissionBP uint64) *Farm {
	t.Helper()
	gate, err := auth.NewGate(owner, dev, feeSink)
	require.NoError(t, err)

	f, err := NewFarm(Config{
		Bank:          bank,
		Referrals:     referral.NewMemoryRegistry(),
		Gate:          gate,
		Clock:         &manualClock{},
		RewardDenom:   testRewardDenom,
		EngineAccount: engineAcct,
		Emission:      defaultEmission(),
		CommissionBP:  commissionBP,
	})
	require.NoError(t, err)
	return f
}

// mintFailBank fails every mint to a chosen account, leaving all other ledger
// behavior intact.
type mintFailBank struct {
	*assets.Ledger
	failTo types.Account
}

func (b *mintFailBank) Mint(recipient types.Account, denom string, amount sdkmath.Int) error {
	if recipient == b.failTo {
		return errors.New("mint rejected")
	}
	return b.Ledger.Mint(recipient, denom, amount)
}

func TestCommissionMintFailureCannotDoublePay(t *testing.T) {
	bank := &mintFailBank{Ledger: assets.NewLedger(), failTo: bob}
	f := newFarmWithBank(t, bank, config.MaxCommissionBP)
	clock := f.clock.(*manualClock)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testStakeDenom, 0, false)
	require.NoError(t, err)

	require.NoError(t, bank.Ledger.Mint(alice, testStakeDenom, sdkmath.NewInt(500)))
	require.NoError(t, bank.Ledger.Mint(carol, testStakeDenom, sdkmath.NewInt(500)))
	require.NoError(t, f.Deposit(alice, id, sdkmath.NewInt(500), bob))
	require.NoError(t, f.Deposit(carol, id, sdkmath.NewInt(500), types.NoAccount))

	// 8000 accrued over 1000 staked; alice's half pays out, then the
	// commission mint for her referrer fails.
	clock.step = 10
	err = f.Withdraw(alice, id, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrTransferFailed)
	require.Equal(t, sdkmath.NewInt(4000), bank.BalanceOf(alice, testRewardDenom))

	// The debt anchored with the payout: resubmitting cannot collect the same
	// entitlement again out of carol's share.
	require.NoError(t, f.Withdraw(alice, id, sdkmath.ZeroInt()))
	require.Equal(t, sdkmath.NewInt(4000), bank.BalanceOf(alice, testRewardDenom))

	require.NoError(t, f.Withdraw(carol, id, sdkmath.ZeroInt()))
	require.Equal(t, sdkmath.NewInt(4000), bank.BalanceOf(carol, testRewardDenom))
	require.True(t, bank.BalanceOf(engineAcct, testRewardDenom).IsZero())
}

// burnFailBank fails every burn, leaving all other ledger behavior intact.
type burnFailBank struct {
	*assets.Ledger
}

func (b *burnFailBank) Burn(types.Account, string, sdkmath.Int) error {
	return errors.New("burn rejected")
}

func TestDepositRefundsPullWhenTaxBurnFails(t *testing.T) {
	bank := &burnFailBank{Ledger: assets.NewLedger()}
	f := newFarmWithBank(t, bank, 0)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testRewardDenom, config.MaxDepositFeeBP, false)
	require.NoError(t, err)

	require.NoError(t, bank.Ledger.Mint(alice, testRewardDenom, sdkmath.NewInt(1000)))
	err = f.Deposit(alice, id, sdkmath.NewInt(1000), types.NoAccount)
	require.ErrorIs(t, err, ErrTransferFailed)

	// The pulled stake came back whole; nothing stranded, nothing credited.
	require.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(alice, testRewardDenom))
	require.True(t, bank.BalanceOf(engineAcct, testRewardDenom).IsZero())

	pos, err := f.PositionOf(id, alice)
	require.NoError(t, err)
	require.True(t, pos.Amount.IsZero())
}

func TestDepositRefundsPullWhenFeeSkimFails(t *testing.T) {
	bank := &faultyBank{Ledger: assets.NewLedger(), failTo: feeSink}
	f := newFarmWithBank(t, bank, 0)

	id, err := f.AddPool(owner, sdkmath.NewInt(100), testStakeDenom, 100, false)
	require.NoError(t, err)

	require.NoError(t, bank.Ledger.Mint(alice, testStakeDenom, sdkmath.NewInt(1000)))
	err = f.Deposit(alice, id, sdkmath.NewInt(1000), types.NoAccount)
	require.ErrorIs(t, err, ErrTransferFailed)

	require.Equal(t, sdkmath.NewInt(1000), bank.BalanceOf(alice, testStakeDenom))
	require.True(t, bank.BalanceOf(engineAcct, testStakeDenom).IsZero())
	require.True(t, bank.BalanceOf(feeSink, testStakeDenom).IsZero())

	pos, err := f.PositionOf(id, alice)
	require.NoError(t, err)
	require.True(t, pos.Amount.IsZero())
}

func TestHarvestViaZeroDeposit(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	env.clock.step = 6
	env.deposit(alice, id, 0)

	require.Equal(t, sdkmath.NewInt(4800), env.bank.BalanceOf(alice, testRewardDenom))

	// Nothing left pending once harvested.
	pending, err := env.farm.PendingReward(id, alice)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

func TestPendingRewardMatchesNextHarvest(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 777)
	env.deposit(alice, id, 777)

	env.clock.step = 13
	pending, err := env.farm.PendingReward(id, alice)
	require.NoError(t, err)

	require.NoError(t, env.farm.Withdraw(alice, id, sdkmath.ZeroInt()))
	require.Equal(t, pending, env.bank.BalanceOf(alice, testRewardDenom))
}
