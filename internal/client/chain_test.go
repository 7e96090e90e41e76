package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/ledger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *ChainClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewChainClient(srv.URL, "testnet", Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewChainClientValidates(t *testing.T) {
	_, err := NewChainClient("not a url", "testnet", Options{})
	assert.True(t, errs.IsValidation(err))
	_, err = NewChainClient("http://localhost:3030", "", Options{})
	assert.True(t, errs.IsValidation(err))
}

func TestLatestHeight(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testnet/block/height/latest", r.URL.Path)
		w.Write([]byte("1234"))
	})
	h, err := c.LatestHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), h)
}

func TestBlocksRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testnet/blocks", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("start"))
		assert.Equal(t, "12", r.URL.Query().Get("end"))
		w.Write([]byte(`[{"block_hash":"a","header":{"metadata":{"height":10}}},{"block_hash":"b","header":{"metadata":{"height":11}}}]`))
	})

	blocks, err := c.Blocks(context.Background(), 10, 12)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint32(11), blocks[1].Height())

	_, err = c.Blocks(context.Background(), 12, 12)
	assert.True(t, errs.IsValidation(err))
	_, err = c.Blocks(context.Background(), 0, 51)
	assert.True(t, errs.IsValidation(err))
}

func TestNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.LatestHash(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsNetwork(err))
	assert.Equal(t, http.StatusInternalServerError, errs.StatusCode(err))

	var netErr *errs.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "boom", netErr.Body)
	assert.Contains(t, netErr.URL, "/testnet/block/hash/latest")
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a number"}`))
	})
	_, err := c.LatestHeight(context.Background())
	assert.True(t, errs.IsDecode(err))
}

func TestFindTransitionID(t *testing.T) {
	spent := crypto.FieldFromUint64(1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/testnet/find/transitionID/" + spent.String():
			w.Write([]byte(`"au1spent"`))
		case "/testnet/find/transitionID/" + crypto.FieldFromUint64(2).String():
			http.NotFound(w, r)
		default:
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	})

	id, err := c.FindTransitionID(context.Background(), spent)
	require.NoError(t, err)
	assert.Equal(t, "au1spent", id)

	_, err = c.FindTransitionID(context.Background(), crypto.FieldFromUint64(2))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FindTransitionID(context.Background(), crypto.FieldFromUint64(3))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, errs.IsNetwork(err))
}

func TestPublicBalance(t *testing.T) {
	acc, err := account.NewManager(crypto.NewBN254()).FromSeed(1)
	require.NoError(t, err)
	funded := acc.Address()
	other, err := account.NewManager(crypto.NewBN254()).FromSeed(2)
	require.NoError(t, err)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/testnet/program/credits.aleo/mapping/account/"+funded.String() {
			w.Write([]byte(`"2500000u64"`))
			return
		}
		w.Write([]byte("null"))
	})

	bal, err := c.PublicBalance(context.Background(), funded)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000), bal)

	bal, err = c.PublicBalance(context.Background(), other.Address())
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestBroadcast(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/testnet/transaction/broadcast", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`"at1abc"`))
	})

	id, err := c.Broadcast(context.Background(), &ledger.Transaction{Type: ledger.TypeExecute, ID: "at1abc"})
	require.NoError(t, err)
	assert.Equal(t, "at1abc", id)
}

func TestProgramNotDeployed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.Program(context.Background(), "missing.aleo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.LatestHeight(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreditsRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aleo", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"aleo":{"usd":0.2134}}`))
	}))
	defer srv.Close()

	rate, err := NewCoinGeckoClient(srv.URL).CreditsRate(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.21", rate)
}
