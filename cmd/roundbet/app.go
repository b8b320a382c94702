package main

import (
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/alejandrodnm/roundbet/config"
	"github.com/alejandrodnm/roundbet/internal/adapters/metrics"
	"github.com/alejandrodnm/roundbet/internal/adapters/notify"
	"github.com/alejandrodnm/roundbet/internal/adapters/solanarpc"
	"github.com/alejandrodnm/roundbet/internal/adapters/storage"
	"github.com/alejandrodnm/roundbet/internal/adapters/wallet"
	"github.com/alejandrodnm/roundbet/internal/application/betting"
	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/application/history"
	"github.com/alejandrodnm/roundbet/internal/application/reconcile"
	"github.com/alejandrodnm/roundbet/internal/ports"
	"github.com/alejandrodnm/roundbet/internal/program"
)

// app holds everything the commands share.
type app struct {
	cfg        *config.Config
	commitment rpc.CommitmentType
	client     *rpc.Client
	prog       *program.Program
	store      *storage.SQLiteStorage
	fetcher    *fetcher.Fetcher
	views      *reconcile.ViewStore
	betting    *betting.Service
	history    *history.Backfiller
	metrics    *metrics.Prometheus
	console    *notify.Console
}

func newApp(cfg *config.Config) (*app, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.Ledger.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.program_id: %w", err)
	}
	feeWallet, err := solana.PublicKeyFromBase58(cfg.Ledger.FeeWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.fee_wallet: %w", err)
	}

	store, err := storage.NewSQLiteStorage()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		commitment: rpc.CommitmentType(cfg.Ledger.Commitment),
		client:     rpc.New(cfg.Ledger.RPCURL),
		prog:       program.New(programID, feeWallet),
		store:      store,
		views:      reconcile.NewViewStore(),
		metrics:    metrics.New(),
		console:    notify.NewConsole(),
	}

	reader := solanarpc.NewReader(a.client, programID, a.commitment, cfg.Ledger.RPCRatePerSec)
	a.fetcher = fetcher.New(reader, a.prog.Addresses(), store)
	a.history = history.New(history.Config{
		PageSize:  cfg.History.PageSize,
		ScanLimit: cfg.History.ScanLimit,
	}, a.fetcher)

	var submitter ports.InstructionSubmitter
	src := wallet.Source{
		KeypairPath:  cfg.Wallet.KeypairPath,
		Mnemonic:     cfg.Wallet.Mnemonic,
		Passphrase:   cfg.Wallet.Passphrase,
		AccountIndex: cfg.Wallet.AccountIndex,
	}
	if src.Configured() {
		key, err := wallet.Load(src)
		if err != nil {
			store.Close()
			return nil, err
		}
		submitter = solanarpc.NewSubmitter(a.client, key, a.commitment)
		slog.Info("wallet loaded", "pubkey", key.PublicKey())
	} else {
		slog.Info("no wallet configured, running read-only")
	}

	a.betting = betting.New(
		betting.Config{MinAmount: cfg.Betting.MinAmount, MaxAmount: cfg.Betting.MaxAmount},
		a.prog, submitter, a.views, a.fetcher, store, a.metrics,
	)

	slog.Info("roundbet ready",
		"rpc", cfg.Ledger.RPCURL,
		"program", programID,
		"state_account", a.prog.Addresses().State(),
		"fee_wallet", a.prog.FeeWallet(),
		"commitment", cfg.Ledger.Commitment,
	)
	return a, nil
}

// manager builds a reconcile manager; watcher may be nil for one-shot resyncs.
func (a *app) manager(w ports.AccountWatcher) *reconcile.Manager {
	return reconcile.New(a.fetcher, w, a.views, a.metrics)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("close storage", "err", err)
	}
	if err := a.client.Close(); err != nil {
		slog.Debug("close rpc client", "err", err)
	}
}
