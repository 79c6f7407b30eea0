package registry

import "errors"

// Kind classifies an operation failure so callers can present an
// actionable message and the HTTP layer can pick a status code. Every
// failure is synchronous, non-retryable, and leaves state untouched.
type Kind int

const (
	KindUnknown Kind = iota

	// KindStructural: the referenced condition is absent, duplicated,
	// or in the wrong lifecycle state for the requested transition.
	KindStructural

	// KindAuthorization: the caller lacks the oracle/owner capability.
	KindAuthorization

	// KindValidation: a request argument is malformed (amount, outcome,
	// time bounds, fee rate).
	KindValidation

	// KindEconomic: the request is well-formed but there is nothing to
	// pay — no winning stake, empty pool, already claimed, no fees.
	KindEconomic

	// KindTransfer: the external asset ledger refused the movement; the
	// whole operation rolled back.
	KindTransfer
)

var (
	ErrNotFound        = errors.New("registry: condition not found")
	ErrAlreadyExists   = errors.New("registry: condition already exists")
	ErrAlreadyResolved = errors.New("registry: condition already resolved")
	ErrAlreadyClosed   = errors.New("registry: condition already closed")
	ErrNotResolved     = errors.New("registry: condition is not resolved")
	ErrNotClosed       = errors.New("registry: condition is not closed")

	ErrNotOracle = errors.New("registry: caller is not the oracle")
	ErrNotOwner  = errors.New("registry: caller is not the owner")

	ErrInvalidConditionID  = errors.New("registry: condition id must be non-empty")
	ErrInvalidPeriod       = errors.New("registry: end time must be strictly in the future")
	ErrInvalidOutcomeRange = errors.New("registry: outcome range min exceeds max")
	ErrInvalidAmount       = errors.New("registry: stake amount must be positive")
	ErrInvalidOutcome      = errors.New("registry: outcome outside the condition's range")
	ErrInvalidFeeRate      = errors.New("registry: fee rate must be between 0 and 100")
	ErrBettingClosed       = errors.New("registry: betting period has ended")
	ErrBettingOpen         = errors.New("registry: betting period has not ended yet")

	ErrAlreadyClaimed   = errors.New("registry: payout or refund already claimed")
	ErrNoWinningStake   = errors.New("registry: no stake on the winning outcome")
	ErrNoStake          = errors.New("registry: no stake to refund")
	ErrEmptyPool        = errors.New("registry: winning outcome pool is empty")
	ErrNoStakeOnOutcome = errors.New("registry: no stake on outcome")
	ErrNoFeesToWithdraw = errors.New("registry: no fees to withdraw")

	// ErrTransferFailed wraps the asset-ledger error that aborted an
	// operation.
	ErrTransferFailed = errors.New("registry: asset transfer failed")
)

var kinds = map[error]Kind{
	ErrNotFound:        KindStructural,
	ErrAlreadyExists:   KindStructural,
	ErrAlreadyResolved: KindStructural,
	ErrAlreadyClosed:   KindStructural,
	ErrNotResolved:     KindStructural,
	ErrNotClosed:       KindStructural,

	ErrNotOracle: KindAuthorization,
	ErrNotOwner:  KindAuthorization,

	ErrInvalidConditionID:  KindValidation,
	ErrInvalidPeriod:       KindValidation,
	ErrInvalidOutcomeRange: KindValidation,
	ErrInvalidAmount:       KindValidation,
	ErrInvalidOutcome:      KindValidation,
	ErrInvalidFeeRate:      KindValidation,
	ErrBettingClosed:       KindValidation,
	ErrBettingOpen:         KindValidation,

	ErrAlreadyClaimed:   KindEconomic,
	ErrNoWinningStake:   KindEconomic,
	ErrNoStake:          KindEconomic,
	ErrEmptyPool:        KindEconomic,
	ErrNoStakeOnOutcome: KindEconomic,
	ErrNoFeesToWithdraw: KindEconomic,

	ErrTransferFailed: KindTransfer,
}

// KindOf returns the classification for err, or KindUnknown for errors
// that did not originate here.
func KindOf(err error) Kind {
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
