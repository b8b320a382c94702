// Package program knows the on-chain layout of the prediction program: how its
// accounts are addressed, how they are laid out in bytes, which instructions it
// takes and which error codes it answers with.
package program

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Seed tags used by the program's derived addresses.
const (
	TagState   = "state"
	TagVault   = "vault"
	TagRound   = "round"
	TagUserBet = "user_bet"
)

const (
	maxSeeds   = 16
	maxSeedLen = 32
)

// Deriver maps (program, tag, seeds) to a deterministic account address.
// It is safe for concurrent use.
type Deriver struct {
	programID solana.PublicKey

	mu    sync.RWMutex
	cache map[string]solana.PublicKey
}

// NewDeriver returns a Deriver for the given program.
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{
		programID: programID,
		cache:     make(map[string]solana.PublicKey),
	}
}

// ProgramID returns the program the addresses are derived for.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Derive returns the program address for tag and seeds.
// Malformed seeds are a programming error and panic.
func (d *Deriver) Derive(tag string, seeds ...[]byte) solana.PublicKey {
	all := make([][]byte, 0, len(seeds)+1)
	all = append(all, []byte(tag))
	all = append(all, seeds...)
	mustValidSeeds(all)

	key := cacheKey(all)
	d.mu.RLock()
	addr, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return addr
	}

	addr, _, err := solana.FindProgramAddress(all, d.programID)
	if err != nil {
		panic(fmt.Sprintf("program: derive %q: %v", tag, err))
	}

	d.mu.Lock()
	d.cache[key] = addr
	d.mu.Unlock()
	return addr
}

// State is the singleton state account.
func (d *Deriver) State() solana.PublicKey {
	return d.Derive(TagState)
}

// Vault holds every active bet deposit.
func (d *Deriver) Vault() solana.PublicKey {
	return d.Derive(TagVault)
}

// Round is the account of round id.
func (d *Deriver) Round(id uint64) solana.PublicKey {
	return d.Derive(TagRound, RoundSeed(id))
}

// UserBet is the account holding user's bet in round id.
func (d *Deriver) UserBet(id uint64, user solana.PublicKey) solana.PublicKey {
	return d.Derive(TagUserBet, RoundSeed(id), user.Bytes())
}

// RoundSeed encodes a round id as fixed-width little-endian bytes, so id N and
// N±1 never share a seed.
func RoundSeed(id uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, id)
	return b
}

func mustValidSeeds(seeds [][]byte) {
	if len(seeds) > maxSeeds {
		panic(fmt.Sprintf("program: %d seeds, max %d", len(seeds), maxSeeds))
	}
	for i, s := range seeds {
		if len(s) > maxSeedLen {
			panic(fmt.Sprintf("program: seed %d is %d bytes, max %d", i, len(s), maxSeedLen))
		}
	}
}

func cacheKey(seeds [][]byte) string {
	var sb strings.Builder
	for _, s := range seeds {
		sb.WriteByte(byte(len(s)))
		sb.Write(s)
	}
	return sb.String()
}
