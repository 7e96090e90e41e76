package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/client"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/record"
	"github.com/AlexZinkM/record-agent/internal/store"
)

type fakeChain struct {
	mu        sync.Mutex
	blocks    map[uint32]*ledger.Block
	spent     map[crypto.Field]bool
	calls     []window
	lookups   int
	blocksErr error
	findErr   error
}

func newFakeChain() *fakeChain {
	return &fakeChain{blocks: map[uint32]*ledger.Block{}, spent: map[crypto.Field]bool{}}
}

func (c *fakeChain) Blocks(_ context.Context, start, end uint32) ([]ledger.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, window{start: start, end: end})
	if c.blocksErr != nil {
		return nil, c.blocksErr
	}
	var out []ledger.Block
	for h := start; h < end; h++ {
		if b, ok := c.blocks[h]; ok {
			out = append(out, *b)
		} else {
			out = append(out, ledger.Block{Header: ledger.Header{Metadata: ledger.Metadata{Height: h}}})
		}
	}
	return out, nil
}

func (c *fakeChain) FindTransitionID(_ context.Context, id crypto.Field) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.findErr != nil {
		return "", c.findErr
	}
	if c.spent[id] {
		return "au1spender", nil
	}
	return "", fmt.Errorf("transition for %s: %w", id, client.ErrNotFound)
}

type fixture struct {
	provider crypto.Provider
	alice    *account.Account
	bob      *account.Account
	chain    *fakeChain
	next     uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := crypto.NewBN254()
	m := account.NewManager(p)
	alice, err := m.FromSeed(1)
	require.NoError(t, err)
	bob, err := m.FromSeed(2)
	require.NoError(t, err)
	return &fixture{provider: p, alice: alice, bob: bob, chain: newFakeChain()}
}

// publish adds a credits record to the block at height and returns its commitment.
func (f *fixture) publish(t *testing.T, height uint32, program string, owner *account.Account, amount uint64) crypto.Field {
	t.Helper()
	r, err := f.provider.RandomScalar()
	require.NoError(t, err)
	ct, err := record.Encrypt(f.provider, record.Plaintext{
		Owner: owner.Address(),
		Entries: []record.Entry{
			{Name: record.MicrocreditsEntry, Type: record.U64, Visibility: record.Private, Value: crypto.FieldFromUint64(amount)},
		},
	}, r)
	require.NoError(t, err)

	f.next++
	commitment := crypto.FieldFromUint64(1_000_000 + f.next)
	b, ok := f.chain.blocks[height]
	if !ok {
		b = &ledger.Block{Header: ledger.Header{Metadata: ledger.Metadata{Height: height}}}
		f.chain.blocks[height] = b
	}
	b.Transactions = append(b.Transactions, ledger.ConfirmedTransaction{
		Status: ledger.StatusAccepted,
		Type:   ledger.TypeExecute,
		Transaction: ledger.Transaction{
			Type: ledger.TypeExecute,
			ID:   fmt.Sprintf("at1%d", f.next),
			Execution: &ledger.Execution{Transitions: []ledger.Transition{{
				ID:       fmt.Sprintf("au1%d", f.next),
				Program:  program,
				Function: "mint",
				Outputs:  []ledger.Output{{Type: ledger.OutputRecord, ID: commitment.String(), Value: ct.String()}},
			}}},
		},
	})
	return commitment
}

func (f *fixture) spend(t *testing.T, owner *account.Account, commitment crypto.Field) {
	t.Helper()
	serial, err := record.SerialNumber(f.provider, owner.PrivateKey(), commitment)
	require.NoError(t, err)
	f.chain.spent[serial] = true
}

// corrupt sets the first masked entry of the record behind commitment to -1, so
// it still passes the ownership check but no longer decrypts to a u64.
func (f *fixture) corrupt(t *testing.T, commitment crypto.Field) {
	t.Helper()
	for _, b := range f.chain.blocks {
		for i := range b.Transactions {
			for _, tr := range b.Transactions[i].Transaction.Execution.Transitions {
				for j := range tr.Outputs {
					if tr.Outputs[j].ID != commitment.String() {
						continue
					}
					ct, err := record.ParseCiphertext(tr.Outputs[j].Value)
					require.NoError(t, err)
					ct.Entries[0].Value = f.provider.Sub(crypto.FieldFromUint64(0), crypto.FieldFromUint64(1))
					tr.Outputs[j].Value = ct.String()
					return
				}
			}
		}
	}
	t.Fatalf("no record output %s", commitment)
}

func (f *fixture) scanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	s, err := New(f.chain, f.provider, f.alice, opts...)
	require.NoError(t, err)
	return s
}

func amounts(t *testing.T, recs []OwnedRecord) []uint64 {
	t.Helper()
	out := make([]uint64, len(recs))
	for i, r := range recs {
		v, err := r.Record.Microcredits()
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func TestDescendingWindows(t *testing.T) {
	assert.Equal(t, []window{{51, 100}, {2, 51}, {0, 2}}, descendingWindows(Range{0, 100}, unspentStep))
	assert.Equal(t, []window{{95, 100}}, descendingWindows(Range{95, 100}, unspentStep))
	assert.Equal(t, []window{{51, 100}, {10, 51}}, descendingWindows(Range{10, 100}, unspentStep))
	assert.Equal(t, []window{{1, 50}, {0, 1}}, descendingWindows(Range{0, 50}, unspentStep))
}

func TestAlignedWindows(t *testing.T) {
	assert.Equal(t, []window{{0, 50}, {50, 100}, {100, 120}}, alignedWindows(Range{10, 120}, alignedStep))
	assert.Equal(t, []window{{100, 101}}, alignedWindows(Range{100, 101}, alignedStep))
	assert.Equal(t, []window{{0, 50}, {50, 100}}, alignedWindows(Range{0, 100}, alignedStep))
}

func TestUnspentStopsAtWindowCrossingBound(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.publish(t, 70, "credits.aleo", f.bob, 9_000_000)
	spent := f.publish(t, 80, "credits.aleo", f.alice, 8_000_000)
	f.spend(t, f.alice, spent)
	f.publish(t, 60, "credits.aleo", f.alice, 3_000_000)
	f.publish(t, 40, "credits.aleo", f.alice, 5_000_000)
	f.publish(t, 1, "credits.aleo", f.alice, 2_000_000)

	recs, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 100}, ptr(uint64(10_000_000)))
	require.NoError(t, err)

	// newest window first, blocks ascending inside a window
	assert.Equal(t, []uint64{3_000_000, 4_000_000, 5_000_000}, amounts(t, recs))
	assert.Equal(t, []window{{51, 100}, {2, 51}}, f.chain.calls)
	for _, r := range recs {
		assert.Equal(t, f.alice.Address(), r.Record.Owner)
	}
}

func TestUnspentWithoutBoundCoversRange(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.publish(t, 1, "credits.aleo", f.alice, 2_000_000)

	recs, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4_000_000, 2_000_000}, amounts(t, recs))
	assert.Equal(t, []window{{51, 100}, {2, 51}, {0, 2}}, f.chain.calls)
}

func TestUnspentRecordWithoutMicrocredits(t *testing.T) {
	f := newFixture(t)
	r, err := f.provider.RandomScalar()
	require.NoError(t, err)
	ct, err := record.Encrypt(f.provider, record.Plaintext{
		Owner:   f.alice.Address(),
		Entries: []record.Entry{{Name: "token_id", Type: record.FieldType, Visibility: record.Private, Value: crypto.FieldFromUint64(3)}},
	}, r)
	require.NoError(t, err)
	f.chain.blocks[5] = &ledger.Block{Transactions: []ledger.ConfirmedTransaction{{
		Status: ledger.StatusAccepted,
		Transaction: ledger.Transaction{Execution: &ledger.Execution{Transitions: []ledger.Transition{{
			ID: "au1x", Program: "nft.aleo",
			Outputs: []ledger.Output{{Type: ledger.OutputRecord, ID: "77field", Value: ct.String()}},
		}}}},
	}}}

	recs, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 10}, ptr(uint64(1)))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, crypto.FieldFromUint64(77), recs[0].Commitment)
}

func TestUnspentRejectsEmptyRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.scanner(t).UnspentRecords(context.Background(), Range{100, 100}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Empty(t, f.chain.calls)
}

func TestUnspentFailsFastOnLookupError(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.chain.findErr = &errs.NetworkError{URL: "http://node/find", StatusCode: 500}

	recs, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 100}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsNetwork(err))
	assert.Nil(t, recs)
	assert.Len(t, f.chain.calls, 1)
}

func TestUnspentFailsFastOnBlocksError(t *testing.T) {
	f := newFixture(t)
	f.chain.blocksErr = errors.New("connection reset")

	_, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 100}, nil)
	assert.EqualError(t, err, "connection reset")
}

func TestUnspentFailsFastOnOwnedDecryptFailure(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.corrupt(t, f.publish(t, 70, "credits.aleo", f.alice, 3_000_000))
	f.publish(t, 20, "credits.aleo", f.alice, 5_000_000)

	recs, err := f.scanner(t).UnspentRecords(context.Background(), Range{0, 100}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCrypto(err))
	assert.Nil(t, recs)
	assert.Equal(t, []window{{51, 100}}, f.chain.calls)
}

func TestScanFailsFastOnOwnedDecryptFailure(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 12, "credits.aleo", f.alice, 1)
	f.corrupt(t, f.publish(t, 13, "credits.aleo", f.alice, 2))
	f.publish(t, 60, "credits.aleo", f.alice, 3)

	recs, err := f.scanner(t).ScanRecords(context.Background(), Range{0, 100}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCrypto(err))
	assert.Nil(t, recs)
	assert.Equal(t, []window{{0, 50}}, f.chain.calls)
}

func TestUnspentIteratorStopsEarly(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 1)
	f.publish(t, 91, "credits.aleo", f.alice, 2)
	f.publish(t, 10, "credits.aleo", f.alice, 3)

	var got []uint64
	for rec, err := range f.scanner(t).Unspent(context.Background(), Range{0, 100}, nil) {
		require.NoError(t, err)
		v, err := rec.Record.Microcredits()
		require.NoError(t, err)
		got = append(got, v)
		break
	}
	assert.Equal(t, []uint64{1}, got)
	assert.Equal(t, []window{{51, 100}}, f.chain.calls)
}

func TestLookaheadKeepsOrderAndStop(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.publish(t, 40, "credits.aleo", f.alice, 7_000_000)
	f.publish(t, 1, "credits.aleo", f.alice, 2_000_000)

	recs, err := f.scanner(t, WithLookahead(3)).UnspentRecords(context.Background(), Range{0, 100}, ptr(uint64(10_000_000)))
	require.NoError(t, err)

	// same records as a sequential scan, but the third window was over-fetched
	assert.Equal(t, []uint64{4_000_000, 7_000_000}, amounts(t, recs))
	assert.ElementsMatch(t, []window{{51, 100}, {2, 51}, {0, 2}}, f.chain.calls)
}

func TestSpentCacheShortCircuitsLookups(t *testing.T) {
	f := newFixture(t)
	spent := f.publish(t, 90, "credits.aleo", f.alice, 4_000_000)
	f.spend(t, f.alice, spent)
	f.publish(t, 91, "credits.aleo", f.alice, 1_000_000)

	cache, err := store.OpenSpentStore(filepath.Join(t.TempDir(), "spent.db"))
	require.NoError(t, err)
	defer cache.Close()

	s := f.scanner(t, WithSpentCache(cache))
	recs, err := s.UnspentRecords(context.Background(), Range{50, 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1_000_000}, amounts(t, recs))
	assert.Equal(t, 2, f.chain.lookups)

	// the spent record is answered from the cache, the unspent one is asked again
	recs, err = s.UnspentRecords(context.Background(), Range{50, 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1_000_000}, amounts(t, recs))
	assert.Equal(t, 3, f.chain.lookups)
}

func TestScanReportsSpentRecordsAscending(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 120, "credits.aleo", f.alice, 3)
	spent := f.publish(t, 60, "credits.aleo", f.alice, 2)
	f.spend(t, f.alice, spent)
	f.publish(t, 12, "credits.aleo", f.alice, 1)
	f.publish(t, 13, "credits.aleo", f.bob, 9)

	recs, err := f.scanner(t).ScanRecords(context.Background(), Range{10, 130}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, amounts(t, recs))
	assert.Equal(t, []window{{0, 50}, {50, 100}, {100, 130}}, f.chain.calls)
	assert.Zero(t, f.chain.lookups)
}

func TestScanStopsAtMaxRecords(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 12, "credits.aleo", f.alice, 1)
	f.publish(t, 13, "credits.aleo", f.alice, 2)
	f.publish(t, 60, "credits.aleo", f.alice, 3)

	recs, err := f.scanner(t).ScanRecords(context.Background(), Range{0, 100}, ptr(1))
	require.NoError(t, err)
	// the bound is checked per window
	assert.Equal(t, []uint64{1, 2}, amounts(t, recs))
	assert.Equal(t, []window{{0, 50}}, f.chain.calls)
}

func TestProgramRecords(t *testing.T) {
	f := newFixture(t)
	f.publish(t, 5, "token.aleo", f.alice, 1)
	spent := f.publish(t, 6, "token.aleo", f.alice, 2)
	f.spend(t, f.alice, spent)
	f.publish(t, 7, "credits.aleo", f.alice, 3)
	f.publish(t, 8, "token.aleo", f.bob, 4)

	all, err := f.scanner(t).ProgramRecords(context.Background(), Range{0, 10}, "token.aleo", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unspent, err := f.scanner(t).ProgramRecords(context.Background(), Range{0, 10}, "token.aleo", true)
	require.NoError(t, err)
	require.Len(t, unspent, 1)

	pt, err := unspent[0].Record.Decrypt(f.provider, f.alice.ViewKey())
	require.NoError(t, err)
	v, err := pt.Microcredits()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}
