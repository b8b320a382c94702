package solanarpc

// submitter.go: firma y envía una instrucción por transacción, y espera la
// confirmación haciendo polling del estado de la firma.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/program"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
)

var statusCustomRe = regexp.MustCompile(`Custom[":\s]+(\d+)`)

// Submitter implementa ports.InstructionSubmitter. It sends each transaction
// once, with preflight simulation, and never resends.
type Submitter struct {
	client     *rpc.Client
	key        solana.PrivateKey
	commitment rpc.CommitmentType
	limiter    *rate.Limiter

	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// NewSubmitter crea un Submitter que firma con key.
func NewSubmitter(client *rpc.Client, key solana.PrivateKey, commitment rpc.CommitmentType) *Submitter {
	return &Submitter{
		client:         client,
		key:            key,
		commitment:     commitment,
		limiter:        rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultBurst),
		ConfirmTimeout: defaultConfirmTimeout,
		PollInterval:   defaultPollInterval,
	}
}

// Payer implements ports.InstructionSubmitter.
func (s *Submitter) Payer() solana.PublicKey {
	return s.key.PublicKey()
}

// Submit implements ports.InstructionSubmitter. When the transaction was sent
// but could not be confirmed the signature is returned along with the error.
func (s *Submitter) Submit(ctx context.Context, ix solana.Instruction) (string, error) {
	payer := s.Payer()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &domain.TransportError{Op: "solanarpc.Submit", Err: fmt.Errorf("rate limiter: %w", err)}
	}
	recent, err := s.client.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return "", &domain.TransportError{Op: "solanarpc.Submit: blockhash", Err: err}
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return "", fmt.Errorf("solanarpc.Submit: build tx: %w", err)
	}
	if _, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(payer) {
			return &s.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("solanarpc.Submit: sign tx: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &domain.TransportError{Op: "solanarpc.Submit", Err: fmt.Errorf("rate limiter: %w", err)}
	}
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return "", classifySendError(err)
	}
	slog.Info("solanarpc: transaction sent", "signature", sig)

	confirmCtx, cancel := context.WithTimeout(ctx, s.ConfirmTimeout)
	defer cancel()
	if err := s.waitForConfirmation(confirmCtx, sig); err != nil {
		return sig.String(), err
	}
	slog.Info("solanarpc: transaction confirmed", "signature", sig)
	return sig.String(), nil
}

// waitForConfirmation polls the signature status until it reaches the
// configured commitment, fails, or ctx expires.
func (s *Submitter) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &domain.TransportError{Op: "solanarpc.Submit: confirm " + sig.String(), Err: ctx.Err()}
		case <-ticker.C:
			out, err := s.client.GetSignatureStatuses(ctx, false, sig)
			if err != nil || out == nil || len(out.Value) == 0 || out.Value[0] == nil {
				continue // todavía no visible
			}
			st := out.Value[0]
			if st.Err != nil {
				return statusRejection(st.Err)
			}
			if reached(st.ConfirmationStatus, s.commitment) {
				return nil
			}
		}
	}
}

func reached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch got {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}

// classifySendError separates program rejections found in the preflight
// simulation from transport failures.
func classifySendError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rej := program.Rejection(rpcErr.Message, simulationLogs(rpcErr.Data), err); rej != nil {
			return rej
		}
	}
	if rej := program.Rejection(err.Error(), nil, err); rej != nil {
		return rej
	}
	return &domain.TransportError{Op: "solanarpc.Submit: send", Err: err}
}

// simulationLogs pulls data.logs out of a preflight failure.
func simulationLogs(data any) []string {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["logs"].([]any)
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

// statusRejection maps a landed transaction's error, e.g.
// {"InstructionError":[0,{"Custom":6009}]}.
func statusRejection(statusErr any) error {
	raw := fmt.Errorf("transaction failed: %v", statusErr)
	if m := statusCustomRe.FindStringSubmatch(fmt.Sprint(statusErr)); m != nil {
		if code, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			msg := "custom program error: 0x" + strconv.FormatUint(code, 16)
			if rej := program.Rejection(msg, nil, raw); rej != nil {
				return rej
			}
		}
	}
	return &domain.LedgerRejection{Name: "TransactionError", Raw: raw}
}
