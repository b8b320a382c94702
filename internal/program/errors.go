package program

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// anchorErrorBase is where program-defined error codes start.
const anchorErrorBase = 6000

type programError struct {
	name string
	err  error
}

// programErrors is indexed by code - anchorErrorBase, in declaration order.
var programErrors = []programError{
	{"BettingClosed", domain.ErrBettingClosed},
	{"RoundNotEnded", domain.ErrRoundNotEnded},
	{"NoStartPrice", domain.ErrNoStartPrice},
	{"RoundStarted", domain.ErrRoundStarted},
	{"Unauthorized", domain.ErrUnauthorized},
	{"InsufficientBalance", domain.ErrInsufficientBalance},
	{"Overflow", domain.ErrOverflow},
	{"InvalidFeeWallet", domain.ErrInvalidFeeWallet},
	{"RoundActive", domain.ErrRoundActive},
	{"Claimed", domain.ErrAlreadyClaimed},
	{"InvalidAmount", domain.ErrAmountRejected},
	{"InvalidBet", domain.ErrBetNotWinning},
}

// Framework and runtime codes worth naming.
const (
	codeAccountNotInitialized = 3012
	codeConstraintSeeds       = 2006

	// system program: AccountAlreadyInUse, ResultWithNegativeLamports
	codeSystemAlreadyInUse = 0
	codeSystemNoLamports   = 1
)

var (
	customCodeRe  = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	anchorCodeRe  = regexp.MustCompile(`Error Code: (\w+)\. Error Number: (\d+)\.`)
	alreadyInUse  = "already in use"
	noLamportsMsg = "insufficient lamports"
)

// Rejection interprets a failed submission's message and program logs. It
// returns nil when nothing in them looks like the program or runtime refusing
// the instruction, in which case the failure is a transport problem.
func Rejection(message string, logs []string, raw error) *domain.LedgerRejection {
	joined := strings.Join(logs, "\n")

	// Anchor logs name the error explicitly; prefer them over the hex code.
	if m := anchorCodeRe.FindStringSubmatch(joined); m != nil {
		code, _ := strconv.ParseUint(m[2], 10, 32)
		return newRejection(uint32(code), m[1], logs, raw)
	}

	switch {
	case strings.Contains(joined, alreadyInUse) || strings.Contains(message, alreadyInUse):
		return &domain.LedgerRejection{
			Code: codeSystemAlreadyInUse, Name: "AccountAlreadyInUse",
			Logs: logs, Err: domain.ErrDuplicateBet, Raw: raw,
		}
	case strings.Contains(joined, noLamportsMsg) || strings.Contains(message, noLamportsMsg):
		return &domain.LedgerRejection{
			Code: codeSystemNoLamports, Name: "InsufficientLamports",
			Logs: logs, Err: domain.ErrInsufficientBalance, Raw: raw,
		}
	}

	if m := customCodeRe.FindStringSubmatch(message + "\n" + joined); m != nil {
		code, err := strconv.ParseUint(m[1], 16, 32)
		if err == nil {
			return newRejection(uint32(code), "", logs, raw)
		}
	}
	return nil
}

func newRejection(code uint32, name string, logs []string, raw error) *domain.LedgerRejection {
	rej := &domain.LedgerRejection{Code: code, Name: name, Logs: logs, Raw: raw}
	switch {
	case code >= anchorErrorBase && int(code-anchorErrorBase) < len(programErrors):
		pe := programErrors[code-anchorErrorBase]
		rej.Name, rej.Err = pe.name, pe.err
	case code == codeAccountNotInitialized:
		rej.Err = domain.ErrAccountMissing
		if rej.Name == "" {
			rej.Name = "AccountNotInitialized"
		}
	case code == codeConstraintSeeds:
		if rej.Name == "" {
			rej.Name = "ConstraintSeeds"
		}
	}
	if rej.Name == "" {
		rej.Name = "Custom" + strconv.FormatUint(uint64(code), 10)
	}
	return rej
}
