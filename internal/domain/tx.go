package domain

import (
	"time"

	"github.com/google/uuid"
)

// TxKind names the program instruction a transaction carried.
type TxKind string

const (
	TxInitialize TxKind = "initialize"
	TxPlaceBet   TxKind = "place_bet"
	TxClaim      TxKind = "claim_winnings"
)

// TxStatus is the local view of a submission. There is no retry, so a
// transaction only ever moves from submitted to one final state.
type TxStatus string

const (
	TxSubmitted TxStatus = "SUBMITTED"
	TxConfirmed TxStatus = "CONFIRMED"
	TxRejected  TxStatus = "REJECTED"
	TxFailed    TxStatus = "FAILED"
)

// TxHandle identifies one submitted instruction.
type TxHandle struct {
	ID          uuid.UUID `json:"id"`
	Kind        TxKind    `json:"kind"`
	RoundID     uint64    `json:"roundId"`
	Signature   string    `json:"signature"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TxRecord is a journal entry: the handle plus what happened to it.
type TxRecord struct {
	TxHandle
	Direction *Direction `json:"direction,omitempty"`
	Lamports  uint64     `json:"lamports,omitempty"`
	Status    TxStatus   `json:"status"`
	Error     string     `json:"error,omitempty"`
}
