// Package agent ties an account to the chain service and the execution engine:
// key backup files, balances, record discovery, transfers and program calls.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/client"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/scanner"
	"github.com/AlexZinkM/record-agent/internal/transfer"
)

var logger = logging.MustGetLogger("agent")

// Chain is the chain service as used by the agent. *client.ChainClient
// implements it.
type Chain interface {
	scanner.Chain
	transfer.Broadcaster
	PublicBalance(ctx context.Context, addr account.Address) (uint64, error)
	AddressTransactions(ctx context.Context, addr account.Address) ([]client.AddressTransaction, error)
	Program(ctx context.Context, programID string) (string, error)
}

// RateSource prices credits in fiat. *client.CoinGeckoClient implements it.
type RateSource interface {
	CreditsRate(ctx context.Context, currency string) (string, error)
}

// Agent acts for one account.
type Agent struct {
	account *account.Account
	chain   Chain
	engine  engine.Engine
	query   engine.Query
	rates   RateSource
	scanner *scanner.Scanner
	builder *transfer.Builder

	cooldown time.Duration
	now      func() time.Time

	payMu   sync.Mutex
	lastPay time.Time
}

// Option configures an Agent.
type Option func(*options)

type options struct {
	rates       RateSource
	cooldown    time.Duration
	scannerOpts []scanner.Option
}

// WithRates enables fiat prices in Balance.
func WithRates(r RateSource) Option {
	return func(o *options) {
		o.rates = r
	}
}

// WithCooldown sets the minimum time between two successful transfers.
func WithCooldown(d time.Duration) Option {
	return func(o *options) {
		o.cooldown = d
	}
}

// WithScannerOptions forwards options to the record scanner.
func WithScannerOptions(opts ...scanner.Option) Option {
	return func(o *options) {
		o.scannerOpts = append(o.scannerOpts, opts...)
	}
}

// New creates an agent for acc. query is handed to the engine so it reads state
// from the same chain service.
func New(provider crypto.Provider, acc *account.Account, chain Chain, eng engine.Engine, query engine.Query, opts ...Option) (*Agent, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sc, err := scanner.New(chain, provider, acc, o.scannerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	return &Agent{
		account:  acc,
		chain:    chain,
		engine:   eng,
		query:    query,
		rates:    o.rates,
		scanner:  sc,
		builder:  transfer.NewBuilder(eng, chain, query),
		cooldown: o.cooldown,
		now:      time.Now,
	}, nil
}

// Address returns the agent account's address.
func (a *Agent) Address() account.Address {
	return a.account.Address()
}

// Account returns the agent account.
func (a *Agent) Account() *account.Account {
	return a.account
}

// Scanner returns the record scanner bound to the agent account.
func (a *Agent) Scanner() *scanner.Scanner {
	return a.scanner
}
