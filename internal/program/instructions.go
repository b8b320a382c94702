package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Instruction names as declared by the program.
const (
	IxInitialize    = "initialize"
	IxPlaceBet      = "place_bet"
	IxClaimWinnings = "claim_winnings"
)

// Program builds instructions for one deployment of the prediction program.
type Program struct {
	deriver   *Deriver
	feeWallet solana.PublicKey
}

// New returns a Program for programID. feeWallet must be the key the program
// was deployed with, otherwise every bet is rejected with InvalidFeeWallet.
func New(programID, feeWallet solana.PublicKey) *Program {
	return &Program{
		deriver:   NewDeriver(programID),
		feeWallet: feeWallet,
	}
}

// ID returns the program id.
func (p *Program) ID() solana.PublicKey { return p.deriver.ProgramID() }

// Addresses returns the address deriver for this program.
func (p *Program) Addresses() *Deriver { return p.deriver }

// FeeWallet returns the configured fee wallet.
func (p *Program) FeeWallet() solana.PublicKey { return p.feeWallet }

// PlaceBet builds place_bet(direction, amount) against the round open for bets.
func (p *Program) PlaceBet(user solana.PublicKey, nextRoundID uint64, dir domain.Direction, lamports uint64) (solana.Instruction, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("program.PlaceBet: %w", domain.ErrInvalidDirection)
	}
	data, err := encodeIx(IxPlaceBet, func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(uint8(dir)); err != nil {
			return err
		}
		return enc.WriteUint64(lamports, bin.LE)
	})
	if err != nil {
		return nil, fmt.Errorf("program.PlaceBet: %w", err)
	}

	d := p.deriver
	accounts := solana.AccountMetaSlice{
		solana.Meta(d.State()).WRITE(),
		solana.Meta(d.Round(nextRoundID)).WRITE(),
		solana.Meta(d.Vault()).WRITE(),
		solana.Meta(d.UserBet(nextRoundID, user)).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(p.feeWallet).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(d.ProgramID(), accounts, data), nil
}

// ClaimWinnings builds claim_winnings() for user's bet in roundID.
func (p *Program) ClaimWinnings(user solana.PublicKey, roundID uint64) (solana.Instruction, error) {
	data, err := encodeIx(IxClaimWinnings, nil)
	if err != nil {
		return nil, fmt.Errorf("program.ClaimWinnings: %w", err)
	}

	d := p.deriver
	accounts := solana.AccountMetaSlice{
		solana.Meta(d.Round(roundID)).WRITE(),
		solana.Meta(d.UserBet(roundID, user)).WRITE(),
		solana.Meta(d.Vault()).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(d.ProgramID(), accounts, data), nil
}

// Initialize builds initialize(), which creates the vault, the state account and
// rounds 0 and 1. priceUpdate is the oracle price account the program reads.
func (p *Program) Initialize(payer, priceUpdate solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeIx(IxInitialize, nil)
	if err != nil {
		return nil, fmt.Errorf("program.Initialize: %w", err)
	}

	d := p.deriver
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(d.Vault()).WRITE(),
		solana.Meta(d.State()).WRITE(),
		solana.Meta(d.Round(0)).WRITE(),
		solana.Meta(d.Round(1)).WRITE(),
		solana.Meta(priceUpdate).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(d.ProgramID(), accounts, data), nil
}

func encodeIx(name string, args func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	disc := InstructionDiscriminator(name)
	buf.Write(disc[:])
	if args != nil {
		if err := args(bin.NewBorshEncoder(buf)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}
