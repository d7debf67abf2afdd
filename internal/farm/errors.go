package farm

import "errors"

// Error taxonomy of the ledger. Every rejection is local: the operation aborts
// before any state change and callers must resubmit.
var (
	// ErrInvalidConfiguration rejects fee or commission rates above their caps
	// and malformed construction parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownPool rejects operations against a pool index that was never added.
	ErrUnknownPool = errors.New("unknown pool")

	// ErrInsufficientStake rejects withdrawals exceeding the current stake.
	ErrInsufficientStake = errors.New("insufficient stake")

	// ErrTransferFailed wraps any asset-layer failure; the enclosing operation
	// aborts as a whole.
	ErrTransferFailed = errors.New("asset transfer failed")

	// ErrLedgerBusy rejects an operation arriving while another is in flight,
	// including reentrant calls made from inside a collaborator callback.
	ErrLedgerBusy = errors.New("ledger busy, resubmit")
)
