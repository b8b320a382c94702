package program

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// DiscriminatorSize is the length of the Anchor type prefix on accounts and
// instruction data.
const DiscriminatorSize = 8

var (
	stateDiscriminator   = AccountDiscriminator("State")
	roundDiscriminator   = AccountDiscriminator("Round")
	userBetDiscriminator = AccountDiscriminator("UserBet")
)

// ErrLayout is returned when account bytes do not match the declared schema.
var ErrLayout = errors.New("account layout mismatch")

// AccountDiscriminator is sha256("account:<name>")[:8].
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	return discriminator("account:" + name)
}

// InstructionDiscriminator is sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) [DiscriminatorSize]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// StateAccount is the raw layout of the program's state account.
type StateAccount struct {
	CurrentRoundID uint64
	NextRoundID    uint64
	CurrentRound   solana.PublicKey
	NextRound      solana.PublicKey
	RoundStartTime int64
}

// RoundAccount is the raw layout of a round account. Prices carry 8 implied
// decimals and pools are lamports.
type RoundAccount struct {
	ID            uint64
	StartTime     *int64
	EndTime       *int64
	StartPrice    *int64
	EndPrice      *int64
	TotalBetsUp   uint64
	TotalBetsDown uint64
	IsActive      bool
	Outcome       *uint8
	TotalPool     uint64
	WinningPool   uint64
}

// UserBetAccount is the raw layout of a user bet account.
type UserBetAccount struct {
	RoundID   uint64
	User      solana.PublicKey
	Direction uint8
	Amount    uint64
	Claimed   bool
}

// DecodeState parses a state account.
func DecodeState(data []byte) (StateAccount, error) {
	var out StateAccount
	dec, err := newDecoder(data, stateDiscriminator, "State")
	if err != nil {
		return out, err
	}
	if out.CurrentRoundID, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("State", "current_round_id", err)
	}
	if out.NextRoundID, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("State", "next_round_id", err)
	}
	if out.CurrentRound, err = readPublicKey(dec); err != nil {
		return out, layoutErr("State", "current_round", err)
	}
	if out.NextRound, err = readPublicKey(dec); err != nil {
		return out, layoutErr("State", "next_round", err)
	}
	if out.RoundStartTime, err = dec.ReadInt64(bin.LE); err != nil {
		return out, layoutErr("State", "round_start_time", err)
	}
	return out, nil
}

// DecodeRound parses a round account and checks its pool and outcome invariants.
func DecodeRound(data []byte) (RoundAccount, error) {
	var out RoundAccount
	dec, err := newDecoder(data, roundDiscriminator, "Round")
	if err != nil {
		return out, err
	}
	if out.ID, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("Round", "id", err)
	}
	for _, f := range []struct {
		name string
		dst  **int64
	}{
		{"start_time", &out.StartTime},
		{"end_time", &out.EndTime},
		{"start_price", &out.StartPrice},
		{"end_price", &out.EndPrice},
	} {
		if *f.dst, err = readOptionalInt64(dec); err != nil {
			return out, layoutErr("Round", f.name, err)
		}
	}
	if out.TotalBetsUp, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("Round", "total_bets_up", err)
	}
	if out.TotalBetsDown, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("Round", "total_bets_down", err)
	}
	if out.IsActive, err = readBool(dec); err != nil {
		return out, layoutErr("Round", "is_active", err)
	}
	if out.Outcome, err = readOptionalDirection(dec); err != nil {
		return out, layoutErr("Round", "outcome", err)
	}
	if out.TotalPool, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("Round", "total_pool", err)
	}
	if out.WinningPool, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("Round", "winning_pool", err)
	}

	if out.TotalPool != out.TotalBetsUp+out.TotalBetsDown {
		return out, fmt.Errorf("%w: round %d: total_pool %d != %d + %d",
			ErrLayout, out.ID, out.TotalPool, out.TotalBetsUp, out.TotalBetsDown)
	}
	if out.Outcome != nil && out.IsActive {
		return out, fmt.Errorf("%w: round %d: active round with an outcome", ErrLayout, out.ID)
	}
	return out, nil
}

// DecodeUserBet parses a user bet account.
func DecodeUserBet(data []byte) (UserBetAccount, error) {
	var out UserBetAccount
	dec, err := newDecoder(data, userBetDiscriminator, "UserBet")
	if err != nil {
		return out, err
	}
	if out.RoundID, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("UserBet", "round_id", err)
	}
	if out.User, err = readPublicKey(dec); err != nil {
		return out, layoutErr("UserBet", "user", err)
	}
	if out.Direction, err = readDirection(dec); err != nil {
		return out, layoutErr("UserBet", "direction", err)
	}
	if out.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return out, layoutErr("UserBet", "amount", err)
	}
	if out.Claimed, err = readBool(dec); err != nil {
		return out, layoutErr("UserBet", "claimed", err)
	}
	return out, nil
}

// ToDomain converts ledger units to display units.
func (s StateAccount) ToDomain() domain.GlobalState {
	return domain.GlobalState{
		CurrentRoundID:      s.CurrentRoundID,
		NextRoundID:         s.NextRoundID,
		CurrentRoundAddress: s.CurrentRound,
		NextRoundAddress:    s.NextRound,
		RoundStartTime:      time.Unix(s.RoundStartTime, 0).UTC(),
	}
}

// ToDomain converts ledger units to display units.
func (r RoundAccount) ToDomain() domain.Round {
	out := domain.Round{
		ID:            r.ID,
		StartTime:     unixPtr(r.StartTime),
		EndTime:       unixPtr(r.EndTime),
		StartPrice:    pricePtr(r.StartPrice),
		EndPrice:      pricePtr(r.EndPrice),
		TotalBetsUp:   domain.AmountFromLedger(r.TotalBetsUp),
		TotalBetsDown: domain.AmountFromLedger(r.TotalBetsDown),
		TotalPool:     domain.AmountFromLedger(r.TotalPool),
		WinningPool:   domain.AmountFromLedger(r.WinningPool),
		IsActive:      r.IsActive,
	}
	if r.Outcome != nil {
		d := domain.Direction(*r.Outcome)
		out.Outcome = &d
	}
	return out
}

// ToDomain converts ledger units to display units.
func (b UserBetAccount) ToDomain() domain.UserBet {
	return domain.UserBet{
		RoundID:   b.RoundID,
		User:      b.User,
		Direction: domain.Direction(b.Direction),
		Amount:    domain.AmountFromLedger(b.Amount),
		Claimed:   b.Claimed,
	}
}

func newDecoder(data []byte, want [DiscriminatorSize]byte, name string) (*bin.Decoder, error) {
	if len(data) < DiscriminatorSize {
		return nil, fmt.Errorf("%w: %s: %d bytes", ErrLayout, name, len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		return nil, fmt.Errorf("%w: %s: discriminator %x", ErrLayout, name, data[:DiscriminatorSize])
	}
	return bin.NewBorshDecoder(data[DiscriminatorSize:]), nil
}

func layoutErr(account, field string, err error) error {
	return fmt.Errorf("%w: %s.%s: %v", ErrLayout, account, field, err)
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// readBool rejects anything but 0 or 1.
func readBool(dec *bin.Decoder) (bool, error) {
	b, err := dec.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid bool byte %d", b)
}

func readOptionTag(dec *bin.Decoder) (bool, error) {
	present, err := readBool(dec)
	if err != nil {
		return false, fmt.Errorf("option tag: %w", err)
	}
	return present, nil
}

func readOptionalInt64(dec *bin.Decoder) (*int64, error) {
	present, err := readOptionTag(dec)
	if err != nil || !present {
		return nil, err
	}
	v, err := dec.ReadInt64(bin.LE)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readDirection(dec *bin.Decoder) (uint8, error) {
	v, err := dec.ReadUint8()
	if err != nil {
		return 0, err
	}
	if !domain.Direction(v).Valid() {
		return 0, fmt.Errorf("invalid direction variant %d", v)
	}
	return v, nil
}

func readOptionalDirection(dec *bin.Decoder) (*uint8, error) {
	present, err := readOptionTag(dec)
	if err != nil || !present {
		return nil, err
	}
	v, err := readDirection(dec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func unixPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

func pricePtr(v *int64) *float64 {
	if v == nil {
		return nil
	}
	p := domain.PriceFromLedger(*v)
	return &p
}
