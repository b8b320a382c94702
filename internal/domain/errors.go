package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is an expected absence: a round that was never played, or a user who
// never bet. It is not a failure.
var ErrNotFound = errors.New("account not found")

// Caller-side precondition failures, always wrapped in a *ValidationError.
var (
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrInvalidOffset      = errors.New("history offset must not be negative")
	ErrInvalidAmount      = errors.New("amount is not a finite number")
	ErrInvalidDirection   = errors.New("direction must be up or down")
	ErrNoWallet           = errors.New("no wallet configured")
	ErrNextRoundUnknown   = errors.New("next round not synced yet")
)

// Program rejections, matched through (*LedgerRejection).Is.
var (
	ErrBettingClosed       = errors.New("betting closed")
	ErrRoundNotEnded       = errors.New("round not ended")
	ErrNoStartPrice        = errors.New("round has no start price")
	ErrRoundStarted        = errors.New("round already started")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("arithmetic overflow")
	ErrInvalidFeeWallet    = errors.New("invalid fee wallet")
	ErrRoundActive         = errors.New("round still active")
	ErrAlreadyClaimed      = errors.New("winnings already claimed")
	ErrAmountRejected      = errors.New("amount rejected by program")
	ErrBetNotWinning       = errors.New("bet is not on the winning side")
	ErrDuplicateBet        = errors.New("bet already placed for this round")
	ErrAccountMissing      = errors.New("required account not initialized")
)

// TransportError is an RPC, network or decoding fault. It must never be read as
// absence.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a precondition the caller violated before anything was sent.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LedgerRejection is a submitted instruction the program (or runtime) refused.
type LedgerRejection struct {
	Code uint32
	Name string
	Logs []string
	Err  error // one of the program sentinels above, or nil when unmapped
	Raw  error
}

func (e *LedgerRejection) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger rejected: %s (code %d): %v", e.Name, e.Code, e.Err)
	}
	return fmt.Sprintf("ledger rejected: %v", e.Raw)
}

// Unwrap exposes both the mapped sentinel and the raw RPC error.
func (e *LedgerRejection) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Raw != nil {
		errs = append(errs, e.Raw)
	}
	return errs
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRejection reports whether err is (or wraps) a LedgerRejection.
func IsRejection(err error) bool {
	var lr *LedgerRejection
	return errors.As(err, &lr)
}
