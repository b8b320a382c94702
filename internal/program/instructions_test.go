package program_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/program"
)

func TestPlaceBet_DataAndAccounts(t *testing.T) {
	fee := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	p := program.New(testProgramID, fee)
	assert.Equal(t, fee, p.FeeWallet())

	ix, err := p.PlaceBet(user, 13, domain.DirectionDown, 250_000_000)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+1+8)
	disc := program.InstructionDiscriminator("place_bet")
	assert.Equal(t, disc[:], data[:8])
	assert.Equal(t, byte(1), data[8])
	assert.Equal(t, uint64(250_000_000), binary.LittleEndian.Uint64(data[9:]))

	d := p.Addresses()
	accts := ix.Accounts()
	require.Len(t, accts, 7)
	want := []solana.PublicKey{d.State(), d.Round(13), d.Vault(), d.UserBet(13, user), user, fee, solana.SystemProgramID}
	for i, pk := range want {
		assert.Equal(t, pk, accts[i].PublicKey, "account %d", i)
	}
	assert.True(t, accts[4].IsSigner)
	assert.False(t, accts[0].IsSigner)
	assert.True(t, accts[3].IsWritable)
	assert.False(t, accts[6].IsWritable)
}

func TestPlaceBet_RejectsUnknownDirection(t *testing.T) {
	p := program.New(testProgramID, solana.NewWallet().PublicKey())
	_, err := p.PlaceBet(solana.NewWallet().PublicKey(), 1, domain.Direction(9), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestClaimWinnings_Accounts(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	p := program.New(testProgramID, solana.NewWallet().PublicKey())

	ix, err := p.ClaimWinnings(user, 4)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	disc := program.InstructionDiscriminator("claim_winnings")
	assert.Equal(t, disc[:], data)

	d := p.Addresses()
	accts := ix.Accounts()
	require.Len(t, accts, 5)
	assert.Equal(t, d.Round(4), accts[0].PublicKey)
	assert.Equal(t, d.UserBet(4, user), accts[1].PublicKey)
	assert.Equal(t, d.Vault(), accts[2].PublicKey)
	assert.Equal(t, user, accts[3].PublicKey)
	assert.True(t, accts[3].IsSigner)
}

func TestInitialize_CreatesFirstTwoRounds(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	oracle := solana.NewWallet().PublicKey()
	p := program.New(testProgramID, solana.NewWallet().PublicKey())

	ix, err := p.Initialize(payer, oracle)
	require.NoError(t, err)

	d := p.Addresses()
	accts := ix.Accounts()
	require.Len(t, accts, 7)
	assert.Equal(t, payer, accts[0].PublicKey)
	assert.True(t, accts[0].IsSigner)
	assert.Equal(t, d.Round(0), accts[3].PublicKey)
	assert.Equal(t, d.Round(1), accts[4].PublicKey)
	assert.Equal(t, oracle, accts[5].PublicKey)
}
