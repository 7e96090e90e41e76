// Package scanner discovers the records an account owns by walking chain history
// in bounded windows.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/client"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/record"
)

var logger = logging.MustGetLogger("scanner")

// Chain is the part of the chain client the scanner reads from.
type Chain interface {
	Blocks(ctx context.Context, start, end uint32) ([]ledger.Block, error)
	// FindTransitionID fails with client.ErrNotFound when nothing consumed id.
	FindTransitionID(ctx context.Context, id crypto.Field) (string, error)
}

// SpentCache remembers serial numbers already seen spent on chain. Spends are
// final, so only positive answers are stored.
type SpentCache interface {
	IsSpent(serial crypto.Field) (bool, error)
	MarkSpent(serial crypto.Field) error
}

// OwnedRecord is a decrypted record owned by the scanning account.
type OwnedRecord struct {
	Commitment crypto.Field
	Record     record.Plaintext
}

// ProgramRecord is an owned record published by a given program, still encrypted.
type ProgramRecord struct {
	Commitment crypto.Field
	Record     record.Ciphertext
}

// Scanner scans on behalf of a single account.
type Scanner struct {
	chain     Chain
	provider  crypto.Provider
	account   *account.Account
	addrX     crypto.Field
	spent     SpentCache
	lookahead int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithSpentCache consults cache before asking the chain whether a record is spent.
func WithSpentCache(cache SpentCache) Option {
	return func(s *Scanner) {
		s.spent = cache
	}
}

// WithLookahead fetches up to k windows concurrently. Records are still emitted in
// window order and stop conditions are checked window by window, so a scan may
// fetch up to k-1 windows it ends up not needing.
func WithLookahead(k int) Option {
	return func(s *Scanner) {
		if k > 0 {
			s.lookahead = k
		}
	}
}

// New creates a scanner for acc.
func New(chain Chain, provider crypto.Provider, acc *account.Account, opts ...Option) (*Scanner, error) {
	addrX, err := provider.PointX(acc.Address().Point())
	if err != nil {
		return nil, fmt.Errorf("invalid account address: %w", err)
	}
	s := &Scanner{
		chain:     chain,
		provider:  provider,
		account:   acc,
		addrX:     addrX,
		lookahead: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Unspent lazily yields owned, unspent records walking r backwards from r.End in
// windows of 49 blocks. With maxMicrocredits set, it stops after the window in
// which the running total reaches the bound. The first error ends the sequence.
func (s *Scanner) Unspent(ctx context.Context, r Range, maxMicrocredits *uint64) iter.Seq2[OwnedRecord, error] {
	return func(yield func(OwnedRecord, error) bool) {
		if err := r.validate(); err != nil {
			yield(OwnedRecord{}, err)
			return
		}

		var total uint64
		for w, err := range s.fetch(ctx, descendingWindows(r, unspentStep)) {
			if err != nil {
				yield(OwnedRecord{}, err)
				return
			}
			logger.Debugf("searching blocks %d to %d for unspent records", w.start, w.end)

			outputs, err := s.owned(w.blocks)
			if err != nil {
				yield(OwnedRecord{}, err)
				return
			}
			for _, out := range outputs {
				spent, err := s.isSpent(ctx, out.Commitment)
				if err != nil {
					yield(OwnedRecord{}, err)
					return
				}
				if spent {
					continue
				}
				rec, err := s.decrypt(out)
				if err != nil {
					yield(OwnedRecord{}, err)
					return
				}
				amount, err := rec.Record.Microcredits()
				if err != nil && !errors.Is(err, record.ErrNoMicrocredits) {
					yield(OwnedRecord{}, err)
					return
				}
				total = saturatingAdd(total, amount)
				if !yield(rec, nil) {
					return
				}
			}

			if maxMicrocredits != nil && total >= *maxMicrocredits {
				logger.Debugf("collected %d microcredits, stopping at block %d", total, w.start)
				return
			}
		}
	}
}

// UnspentRecords collects Unspent. On error nothing is returned.
func (s *Scanner) UnspentRecords(ctx context.Context, r Range, maxMicrocredits *uint64) ([]OwnedRecord, error) {
	return collect(s.Unspent(ctx, r, maxMicrocredits))
}

// Scan lazily yields every owned record, spent or not, walking r forwards in
// windows aligned to multiples of 50. With maxRecords set, it stops after the
// window in which the count reaches the bound.
func (s *Scanner) Scan(ctx context.Context, r Range, maxRecords *int) iter.Seq2[OwnedRecord, error] {
	return func(yield func(OwnedRecord, error) bool) {
		if err := r.validate(); err != nil {
			yield(OwnedRecord{}, err)
			return
		}

		count := 0
		for w, err := range s.fetch(ctx, alignedWindows(r, alignedStep)) {
			if err != nil {
				yield(OwnedRecord{}, err)
				return
			}
			logger.Debugf("searching blocks %d to %d for records", w.start, w.end)

			outputs, err := s.owned(w.blocks)
			if err != nil {
				yield(OwnedRecord{}, err)
				return
			}
			for _, out := range outputs {
				rec, err := s.decrypt(out)
				if err != nil {
					yield(OwnedRecord{}, err)
					return
				}
				count++
				if !yield(rec, nil) {
					return
				}
			}

			if maxRecords != nil && count >= *maxRecords {
				return
			}
		}
	}
}

// ScanRecords collects Scan. On error nothing is returned.
func (s *Scanner) ScanRecords(ctx context.Context, r Range, maxRecords *int) ([]OwnedRecord, error) {
	return collect(s.Scan(ctx, r, maxRecords))
}

// ProgramRecords returns the owned records output by transitions of programID, in
// aligned ascending windows. With unspentOnly, spent records are dropped.
func (s *Scanner) ProgramRecords(ctx context.Context, r Range, programID string, unspentOnly bool) ([]ProgramRecord, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	var out []ProgramRecord
	for w, err := range s.fetch(ctx, alignedWindows(r, alignedStep)) {
		if err != nil {
			return nil, err
		}
		outputs, err := s.owned(w.blocks)
		if err != nil {
			return nil, err
		}
		for _, o := range outputs {
			if o.Program != programID {
				continue
			}
			if unspentOnly {
				spent, err := s.isSpent(ctx, o.Commitment)
				if err != nil {
					return nil, err
				}
				if spent {
					continue
				}
			}
			out = append(out, ProgramRecord{Commitment: o.Commitment, Record: o.Record})
		}
	}
	return out, nil
}

// owned flattens blocks and keeps the outputs that pass the ownership check.
func (s *Scanner) owned(blocks []ledger.Block) ([]ledger.RecordOutput, error) {
	var out []ledger.RecordOutput
	for i := range blocks {
		outputs, err := blocks[i].Records()
		if err != nil {
			return nil, err
		}
		for _, o := range outputs {
			if o.Record.IsOwner(s.provider, s.account.ViewKey(), s.addrX) {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// decrypt fails the scan for a record that passed the ownership check but does
// not decrypt.
func (s *Scanner) decrypt(o ledger.RecordOutput) (OwnedRecord, error) {
	pt, err := o.Record.Decrypt(s.provider, s.account.ViewKey())
	if err != nil {
		return OwnedRecord{}, fmt.Errorf("failed to decrypt owned record %s: %w", o.Commitment, err)
	}
	return OwnedRecord{Commitment: o.Commitment, Record: pt}, nil
}

func (s *Scanner) isSpent(ctx context.Context, commitment crypto.Field) (bool, error) {
	serial, err := record.SerialNumber(s.provider, s.account.PrivateKey(), commitment)
	if err != nil {
		return false, fmt.Errorf("failed to derive serial number: %w", err)
	}

	if s.spent != nil {
		spent, err := s.spent.IsSpent(serial)
		if err != nil {
			return false, fmt.Errorf("failed to read spent cache: %w", err)
		}
		if spent {
			return true, nil
		}
	}

	_, err = s.chain.FindTransitionID(ctx, serial)
	switch {
	case errors.Is(err, client.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	if s.spent != nil {
		if err := s.spent.MarkSpent(serial); err != nil {
			return false, fmt.Errorf("failed to write spent cache: %w", err)
		}
	}
	return true, nil
}

type fetched struct {
	window
	blocks []ledger.Block
}

// fetch yields the blocks of each window in order. Up to s.lookahead windows are
// requested concurrently; a failed batch ends the sequence with its first error.
func (s *Scanner) fetch(ctx context.Context, windows []window) iter.Seq2[fetched, error] {
	return func(yield func(fetched, error) bool) {
		for len(windows) > 0 {
			n := min(s.lookahead, len(windows))
			batch := windows[:n]
			windows = windows[n:]

			results := make([][]ledger.Block, n)
			g, gctx := errgroup.WithContext(ctx)
			for i, w := range batch {
				g.Go(func() error {
					blocks, err := s.chain.Blocks(gctx, w.start, w.end)
					if err != nil {
						return err
					}
					results[i] = blocks
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				yield(fetched{}, err)
				return
			}

			for i, w := range batch {
				if !yield(fetched{window: w, blocks: results[i]}, nil) {
					return
				}
			}
		}
	}
}

func collect(seq iter.Seq2[OwnedRecord, error]) ([]OwnedRecord, error) {
	var out []OwnedRecord
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
