package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/op/go-logging"
	"go.uber.org/ratelimit"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/ledger"
)

var logger = logging.MustGetLogger("client")

const (
	// MaxBlockRange is the widest range the blocks endpoint serves in one call.
	MaxBlockRange = 50

	creditsProgram = "credits.aleo"
	accountMapping = "account"
	maxErrorBody   = 4096
)

// ErrNotFound is returned when the node answers 404 for a lookup.
var ErrNotFound = errors.New("not found")

// ChainClient talks to the REST query and broadcast service of a node.
type ChainClient struct {
	baseURL string
	network string
	client  *http.Client
	limiter ratelimit.Limiter
}

// Options configures a ChainClient.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond int
}

// NewChainClient creates a client for {baseURL}/{network}. Both are required; there
// is no default network.
func NewChainClient(baseURL, network string, opts Options) (*ChainClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errs.Validation("invalid node url %q: %v", baseURL, err)
	}
	if network == "" {
		return nil, errs.Validation("network must be set")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := ratelimit.NewUnlimited()
	if opts.RequestsPerSecond > 0 {
		limiter = ratelimit.New(opts.RequestsPerSecond)
	}
	return &ChainClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		network: network,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: limiter,
	}, nil
}

// BaseURL returns the node url without the network segment.
func (c *ChainClient) BaseURL() string {
	return c.baseURL
}

// Network returns the network segment of every request path.
func (c *ChainClient) Network() string {
	return c.network
}

// LatestHeight gets the height of the chain tip
func (c *ChainClient) LatestHeight(ctx context.Context) (uint32, error) {
	var h uint32
	if err := c.get(ctx, "block/height/latest", &h); err != nil {
		return 0, fmt.Errorf("failed to get latest height: %w", err)
	}
	return h, nil
}

// LatestHash gets the hash of the chain tip
func (c *ChainClient) LatestHash(ctx context.Context) (string, error) {
	var h string
	if err := c.get(ctx, "block/hash/latest", &h); err != nil {
		return "", fmt.Errorf("failed to get latest hash: %w", err)
	}
	return h, nil
}

// Block gets the block at height h
func (c *ChainClient) Block(ctx context.Context, h uint32) (*ledger.Block, error) {
	var b ledger.Block
	if err := c.get(ctx, "block/"+strconv.FormatUint(uint64(h), 10), &b); err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", h, err)
	}
	return &b, nil
}

// BlockTransactions gets the confirmed transactions of the block at height h
func (c *ChainClient) BlockTransactions(ctx context.Context, h uint32) ([]ledger.ConfirmedTransaction, error) {
	var txs []ledger.ConfirmedTransaction
	if err := c.get(ctx, fmt.Sprintf("block/%d/transactions", h), &txs); err != nil {
		return nil, fmt.Errorf("failed to get transactions of block %d: %w", h, err)
	}
	return txs, nil
}

// Blocks gets blocks in [start, end). The node serves at most MaxBlockRange blocks
// per call.
func (c *ChainClient) Blocks(ctx context.Context, start, end uint32) ([]ledger.Block, error) {
	if start >= end {
		return nil, errs.Validation("start height %d must be less than end height %d", start, end)
	}
	if end-start > MaxBlockRange {
		return nil, errs.Validation("cannot request more than %d blocks per call (got %d)", MaxBlockRange, end-start)
	}

	var blocks []ledger.Block
	if err := c.get(ctx, fmt.Sprintf("blocks?start=%d&end=%d", start, end), &blocks); err != nil {
		return nil, fmt.Errorf("failed to get blocks %d..%d: %w", start, end, err)
	}
	return blocks, nil
}

// Transaction gets a transaction by id
func (c *ChainClient) Transaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	if err := c.get(ctx, "transaction/"+url.PathEscape(id), &tx); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &tx, nil
}

// ConfirmedTransaction gets a transaction together with its confirmation status
func (c *ChainClient) ConfirmedTransaction(ctx context.Context, id string) (*ledger.ConfirmedTransaction, error) {
	var tx ledger.ConfirmedTransaction
	if err := c.get(ctx, "transaction/confirmed/"+url.PathEscape(id), &tx); err != nil {
		return nil, fmt.Errorf("failed to get confirmed transaction %s: %w", id, err)
	}
	return &tx, nil
}

// Broadcast submits tx and returns the id the node accepted it under.
func (c *ChainClient) Broadcast(ctx context.Context, tx *ledger.Transaction) (string, error) {
	var id string
	if err := c.post(ctx, "transaction/broadcast", tx, &id); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction %s: %w", tx.ID, err)
	}
	logger.Infof("broadcast transaction %s", id)
	return id, nil
}

// FindBlockHash gets the hash of the block containing transaction txID
func (c *ChainClient) FindBlockHash(ctx context.Context, txID string) (string, error) {
	var h *string
	if err := c.get(ctx, "find/blockHash/"+url.PathEscape(txID), &h); err != nil {
		return "", fmt.Errorf("failed to find block of %s: %w", txID, err)
	}
	if h == nil {
		return "", fmt.Errorf("block of %s: %w", txID, ErrNotFound)
	}
	return *h, nil
}

// FindTransitionID gets the id of the transition that consumed the input with the
// given id (a serial number for record inputs). ErrNotFound means nothing on chain
// consumed it.
func (c *ChainClient) FindTransitionID(ctx context.Context, inputID crypto.Field) (string, error) {
	var id *string
	err := c.get(ctx, "find/transitionID/"+inputID.String(), &id)
	if errs.StatusCode(err) == http.StatusNotFound {
		return "", fmt.Errorf("transition for %s: %w", inputID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to find transition for %s: %w", inputID, err)
	}
	if id == nil {
		return "", fmt.Errorf("transition for %s: %w", inputID, ErrNotFound)
	}
	return *id, nil
}

// Program gets the source of a deployed program. ErrNotFound means it is not
// deployed.
func (c *ChainClient) Program(ctx context.Context, programID string) (string, error) {
	var src string
	err := c.get(ctx, "program/"+url.PathEscape(programID), &src)
	if errs.StatusCode(err) == http.StatusNotFound {
		return "", fmt.Errorf("program %s: %w", programID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get program %s: %w", programID, err)
	}
	return src, nil
}

// ProgramMappings gets the mapping names declared by a program
func (c *ChainClient) ProgramMappings(ctx context.Context, programID string) ([]string, error) {
	var names []string
	if err := c.get(ctx, fmt.Sprintf("program/%s/mappings", url.PathEscape(programID)), &names); err != nil {
		return nil, fmt.Errorf("failed to get mappings of %s: %w", programID, err)
	}
	return names, nil
}

// MappingValue gets a mapping entry. found is false when the key is absent.
func (c *ChainClient) MappingValue(ctx context.Context, programID, mapping, key string) (value string, found bool, err error) {
	var v *string
	path := fmt.Sprintf("program/%s/mapping/%s/%s", url.PathEscape(programID), url.PathEscape(mapping), url.PathEscape(key))
	if err := c.get(ctx, path, &v); err != nil {
		return "", false, fmt.Errorf("failed to get %s/%s[%s]: %w", programID, mapping, key, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// PublicBalance gets the public credits balance of addr in microcredits
func (c *ChainClient) PublicBalance(ctx context.Context, addr account.Address) (uint64, error) {
	v, found, err := c.MappingValue(ctx, creditsProgram, accountMapping, addr.String())
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	amount, err := strconv.ParseUint(strings.TrimSuffix(v, "u64"), 10, 64)
	if err != nil {
		return 0, &errs.DecodeError{What: "public balance " + v, Err: err}
	}
	return amount, nil
}

// AddressTransaction is an entry of an address transaction history.
type AddressTransaction struct {
	TransactionID string `json:"transaction_id"`
	TransitionID  string `json:"transition_id"`
	Program       string `json:"program"`
	Function      string `json:"function"`
	Height        uint32 `json:"height"`
	Timestamp     int64  `json:"timestamp"`
	Status        string `json:"status"`
}

// AddressTransactions gets the transactions addr took part in, newest first
func (c *ChainClient) AddressTransactions(ctx context.Context, addr account.Address) ([]AddressTransaction, error) {
	var txs []AddressTransaction
	if err := c.get(ctx, "address/"+addr.String(), &txs); err != nil {
		return nil, fmt.Errorf("failed to get transactions of %s: %w", addr, err)
	}
	return txs, nil
}

func (c *ChainClient) endpoint(path string) string {
	return c.baseURL + "/" + c.network + "/" + path
}

func (c *ChainClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *ChainClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := jsonx.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *ChainClient) do(req *http.Request, out any) error {
	c.limiter.Take()
	if err := req.Context().Err(); err != nil {
		return err
	}

	target := req.URL.String()
	logger.Debugf("%s %s", req.Method, target)

	resp, err := c.client.Do(req)
	if err != nil {
		return &errs.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &errs.NetworkError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := jsonx.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.DecodeError{What: "response of " + target, Err: err}
	}
	return nil
}
