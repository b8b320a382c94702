package wallet_test

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/adapters/wallet"
)

const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// SLIP-0010 ed25519 test vector 1.
func TestDeriveEd25519_Vector(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	key, chain := wallet.DeriveEd25519(seed, nil)
	assert.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(key))
	assert.Equal(t, "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb", hex.EncodeToString(chain))

	key, _ = wallet.DeriveEd25519(seed, []uint32{0x80000000})
	assert.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(key))
}

func TestFromMnemonic(t *testing.T) {
	a, err := wallet.FromMnemonic(mnemonic, "", 0)
	require.NoError(t, err)
	b, err := wallet.FromMnemonic("  "+mnemonic+"\n", "", 0)
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey(), b.PublicKey(), "whitespace is normalized")

	other, err := wallet.FromMnemonic(mnemonic, "", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), other.PublicKey())

	withPass, err := wallet.FromMnemonic(mnemonic, "secret", 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), withPass.PublicKey())

	_, err = wallet.FromMnemonic("abandon abandon abandon", "", 0)
	assert.ErrorIs(t, err, wallet.ErrInvalidMnemonic)
}

func TestLoad_KeypairFile(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	got, err := wallet.Load(wallet.Source{KeypairPath: path, Mnemonic: mnemonic})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), got.PublicKey(), "keypair file wins over mnemonic")
}

func TestLoad_Unconfigured(t *testing.T) {
	src := wallet.Source{}
	assert.False(t, src.Configured())
	_, err := wallet.Load(src)
	assert.Error(t, err)

	_, err = wallet.Load(wallet.Source{KeypairPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
