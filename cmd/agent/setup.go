package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlexZinkM/record-agent/agent"
	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/client"
	"github.com/AlexZinkM/record-agent/internal/config"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/logx"
	"github.com/AlexZinkM/record-agent/internal/record"
	"github.com/AlexZinkM/record-agent/internal/scanner"
	"github.com/AlexZinkM/record-agent/internal/store"
)

var (
	manager *account.Manager
	closers []io.Closer
)

func configure(verbose bool) error {
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()

	level := cfg.LogLevel
	if verbose {
		level = "DEBUG"
	}
	logCloser, err := logx.Configure(logx.Options{
		Level:     level,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		MaxAge:    cfg.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	closers = append(closers, logCloser)

	manager = account.NewManager(crypto.NewBN254(crypto.WithScrypt(cfg.ScryptLogN, 8, 1)))
	return nil
}

func shutdown() error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i].Close())
	}
	closers = nil
	return errors.Join(errs...)
}

func newChainClient() (*client.ChainClient, error) {
	cfg := config.Get()
	return client.NewChainClient(cfg.BaseURL, cfg.Network, client.Options{
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// newEngine returns the remote prover, or an engine refusing every call when
// no prover is configured.
func newEngine() engine.Engine {
	cfg := config.Get()
	if cfg.ProverURL == "" {
		return noProver{}
	}
	return engine.NewRemoteProver(cfg.ProverURL, cfg.HTTPTimeout)
}

type noProver struct{}

var errNoProver = errors.New("AGENT_PROVER_URL not set: transactions cannot be built")

func (noProver) Execute(context.Context, account.PrivateKey, engine.Call, []engine.Value, *record.Plaintext, uint64, engine.Query) (*ledger.Transaction, error) {
	return nil, errNoProver
}

func (noProver) Deploy(context.Context, account.PrivateKey, *engine.Program, *record.Plaintext, uint64, engine.Query) (*ledger.Transaction, error) {
	return nil, errNoProver
}

// buildAgent wires an unlocked account to the configured services.
func buildAgent(acc *account.Account) (*agent.Agent, error) {
	cfg := config.Get()
	chain, err := newChainClient()
	if err != nil {
		return nil, err
	}

	scanOpts := []scanner.Option{scanner.WithLookahead(cfg.ScanLookahead)}
	if cfg.StorePath != "" {
		spent, err := store.OpenSpentStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		closers = append(closers, spent)
		scanOpts = append(scanOpts, scanner.WithSpentCache(spent))
	}

	return agent.New(manager.Provider(), acc, chain, newEngine(),
		engine.Query{BaseURL: chain.BaseURL(), Network: chain.Network()},
		agent.WithCooldown(config.GetPayCooldown()),
		agent.WithRates(client.NewCoinGeckoClient("")),
		agent.WithScannerOptions(scanOpts...),
	)
}

// unlock prompts for the password and builds the agent for the key file.
func unlock() (*agent.Agent, error) {
	password, err := config.ReadPassword("Enter backup password: ")
	if err != nil {
		return nil, err
	}
	defer clear(password)

	acc, err := agent.LoadAccount(manager, config.GetKeystorePath(), password)
	if err != nil {
		return nil, err
	}
	return buildAgent(acc)
}

// newPassword prompts twice and returns the password when both entries match.
func newPassword() ([]byte, error) {
	first, err := config.ReadPassword("New backup password: ")
	if err != nil {
		return nil, err
	}
	second, err := config.ReadPassword("Repeat backup password: ")
	if err != nil {
		clear(first)
		return nil, err
	}
	defer clear(second)
	if string(first) != string(second) {
		clear(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}

func printJSON(v any) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
