package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/op/go-logging"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/record"
)

var logger = logging.MustGetLogger("engine")

// RemoteProver delegates execution and deployment to a proving service over HTTP.
type RemoteProver struct {
	baseURL string
	client  *http.Client
}

// NewRemoteProver creates a prover client for the service at baseURL.
func NewRemoteProver(baseURL string, timeout time.Duration) *RemoteProver {
	return &RemoteProver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type executeRequest struct {
	PrivateKey  string   `json:"private_key"`
	Program     string   `json:"program"`
	Function    string   `json:"function"`
	Inputs      []string `json:"inputs"`
	FeeRecord   string   `json:"fee_record,omitempty"`
	PriorityFee uint64   `json:"priority_fee"`
	Endpoint    string   `json:"endpoint"`
	Network     string   `json:"network"`
}

type deployRequest struct {
	PrivateKey  string `json:"private_key"`
	Program     string `json:"program"`
	FeeRecord   string `json:"fee_record,omitempty"`
	PriorityFee uint64 `json:"priority_fee"`
	Endpoint    string `json:"endpoint"`
	Network     string `json:"network"`
}

// Execute implements Engine.
func (r *RemoteProver) Execute(ctx context.Context, pk account.PrivateKey, call Call, inputs []Value,
	feeRecord *record.Plaintext, priorityFee uint64, query Query) (*ledger.Transaction, error) {
	req := executeRequest{
		PrivateKey:  pk.String(),
		Program:     call.Program,
		Function:    call.Function,
		Inputs:      make([]string, len(inputs)),
		PriorityFee: priorityFee,
		Endpoint:    query.BaseURL,
		Network:     query.Network,
	}
	for i, in := range inputs {
		req.Inputs[i] = in.String()
	}
	if feeRecord != nil {
		req.FeeRecord = feeRecord.String()
	}

	logger.Debugf("executing %s with %d inputs", call, len(inputs))
	var tx ledger.Transaction
	if err := r.post(ctx, "/execute", req, &tx); err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", call, err)
	}
	return &tx, nil
}

// Deploy implements Engine.
func (r *RemoteProver) Deploy(ctx context.Context, pk account.PrivateKey, program *Program,
	feeRecord *record.Plaintext, priorityFee uint64, query Query) (*ledger.Transaction, error) {
	req := deployRequest{
		PrivateKey:  pk.String(),
		Program:     program.Source,
		PriorityFee: priorityFee,
		Endpoint:    query.BaseURL,
		Network:     query.Network,
	}
	if feeRecord != nil {
		req.FeeRecord = feeRecord.String()
	}

	logger.Debugf("deploying %s", program.ID)
	var tx ledger.Transaction
	if err := r.post(ctx, "/deploy", req, &tx); err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", program.ID, err)
	}
	return &tx, nil
}

func (r *RemoteProver) post(ctx context.Context, path string, body, out any) error {
	url := r.baseURL + path
	payload, err := jsonx.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	defer clear(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &errs.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &errs.NetworkError{URL: url, StatusCode: resp.StatusCode, Body: string(msg)}
	}
	if err := jsonx.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.DecodeError{What: "transaction", Err: err}
	}
	return nil
}
