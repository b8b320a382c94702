package program

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
)

// Encode serializes the account the way the program stores it, discriminator
// included. Used to seed fakes and caches with ledger-shaped bytes.
func (s StateAccount) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.Write(stateDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint64(s.CurrentRoundID, bin.LE)
	_ = enc.WriteUint64(s.NextRoundID, bin.LE)
	_ = enc.WriteBytes(s.CurrentRound[:], false)
	_ = enc.WriteBytes(s.NextRound[:], false)
	_ = enc.WriteInt64(s.RoundStartTime, bin.LE)
	return buf.Bytes()
}

// Encode serializes the account the way the program stores it.
func (r RoundAccount) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.Write(roundDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint64(r.ID, bin.LE)
	for _, v := range []*int64{r.StartTime, r.EndTime, r.StartPrice, r.EndPrice} {
		writeOptionalInt64(enc, v)
	}
	_ = enc.WriteUint64(r.TotalBetsUp, bin.LE)
	_ = enc.WriteUint64(r.TotalBetsDown, bin.LE)
	_ = enc.WriteBool(r.IsActive)
	if r.Outcome == nil {
		_ = enc.WriteUint8(0)
	} else {
		_ = enc.WriteUint8(1)
		_ = enc.WriteUint8(*r.Outcome)
	}
	_ = enc.WriteUint64(r.TotalPool, bin.LE)
	_ = enc.WriteUint64(r.WinningPool, bin.LE)
	// allocated space carries 20 trailing bytes
	buf.Write(make([]byte, 20))
	return buf.Bytes()
}

// Encode serializes the account the way the program stores it.
func (b UserBetAccount) Encode() []byte {
	buf := new(bytes.Buffer)
	buf.Write(userBetDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint64(b.RoundID, bin.LE)
	_ = enc.WriteBytes(b.User[:], false)
	_ = enc.WriteUint8(b.Direction)
	_ = enc.WriteUint64(b.Amount, bin.LE)
	_ = enc.WriteBool(b.Claimed)
	return buf.Bytes()
}

func writeOptionalInt64(enc *bin.Encoder, v *int64) {
	if v == nil {
		_ = enc.WriteUint8(0)
		return
	}
	_ = enc.WriteUint8(1)
	_ = enc.WriteInt64(*v, bin.LE)
}
