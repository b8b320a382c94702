// Package wallet loads the signing key, either from a solana-keygen keypair
// file or from a BIP-39 mnemonic.
package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

const hardened = uint32(0x80000000)

// ErrInvalidMnemonic is returned for a phrase that fails the BIP-39 checksum.
var ErrInvalidMnemonic = errors.New("wallet: invalid mnemonic")

// Source says where the key comes from. KeypairPath wins when both are set.
type Source struct {
	KeypairPath  string
	Mnemonic     string
	Passphrase   string
	AccountIndex uint32
}

// Configured reports whether any key source is set.
func (s Source) Configured() bool {
	return s.KeypairPath != "" || strings.TrimSpace(s.Mnemonic) != ""
}

// Load returns the private key described by src.
func Load(src Source) (solana.PrivateKey, error) {
	if src.KeypairPath != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(src.KeypairPath)
		if err != nil {
			return nil, fmt.Errorf("wallet.Load: keypair %q: %w", src.KeypairPath, err)
		}
		return key, nil
	}
	if strings.TrimSpace(src.Mnemonic) == "" {
		return nil, errors.New("wallet.Load: no keypair file or mnemonic configured")
	}
	return FromMnemonic(src.Mnemonic, src.Passphrase, src.AccountIndex)
}

// FromMnemonic derives the key at m/44'/501'/index'/0', the path used by the
// common Solana wallets.
func FromMnemonic(mnemonic, passphrase string, index uint32) (solana.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	path := []uint32{44 + hardened, 501 + hardened, index + hardened, 0 + hardened}
	key, _ := DeriveEd25519(seed, path)
	return solana.PrivateKey(ed25519.NewKeyFromSeed(key)), nil
}

// DeriveEd25519 walks a SLIP-0010 ed25519 path. Every index must be hardened.
// It returns the 32-byte private seed and the chain code.
func DeriveEd25519(seed []byte, path []uint32) (key, chainCode []byte) {
	digest := hmac.New(sha512.New, []byte("ed25519 seed"))
	digest.Write(seed)
	intermediary := digest.Sum(nil)
	key, chainCode = intermediary[:32], intermediary[32:]

	for _, childIdx := range path {
		data := make([]byte, 1+32+4)
		copy(data[1:33], key)
		binary.BigEndian.PutUint32(data[33:], childIdx)

		digest = hmac.New(sha512.New, chainCode)
		digest.Write(data)
		intermediary = digest.Sum(nil)
		key, chainCode = intermediary[:32], intermediary[32:]
	}
	return key, chainCode
}
