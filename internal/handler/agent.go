package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/AlexZinkM/record-agent/agent"
	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/common"
	"github.com/AlexZinkM/record-agent/internal/config"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/keystore"
	"github.com/AlexZinkM/record-agent/internal/model"
	"github.com/AlexZinkM/record-agent/internal/record"
	"github.com/AlexZinkM/record-agent/internal/scanner"
)

var logger = logging.MustGetLogger("handler")

// Builder creates the agent once the account is unlocked.
type Builder func(acc *account.Account) (*agent.Agent, error)

// AgentHandler serves the agent endpoints for the account in the key file.
type AgentHandler struct {
	manager  *account.Manager
	filePath string
	network  string
	build    Builder
	password func() ([]byte, error)

	mu    sync.Mutex
	agent *agent.Agent
}

// NewAgentHandler creates a new AgentHandler. The account is unlocked on first
// use with the password held by config.
func NewAgentHandler(m *account.Manager, filePath, network string, build Builder) (*AgentHandler, error) {
	if filePath == "" {
		return nil, errors.New("AGENT_KEYSTORE_PATH not set")
	}
	return &AgentHandler{
		manager:  m,
		filePath: filePath,
		network:  network,
		build:    build,
		password: config.GetPasswordBytes,
	}, nil
}

func (h *AgentHandler) unlock() (*agent.Agent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.agent != nil {
		return h.agent, nil
	}

	// Get password as []byte, use it, then zero it immediately
	passwordBytes, err := h.password()
	if err != nil {
		return nil, err
	}
	defer clear(passwordBytes)

	acc, err := agent.LoadAccount(h.manager, h.filePath, passwordBytes)
	if err != nil {
		return nil, err
	}
	a, err := h.build(acc)
	if err != nil {
		return nil, err
	}
	h.agent = a
	return a, nil
}

// Generate handles POST /agent/generate
// @Summary      Generate new account
// @Description  Generates a new account and saves its encrypted private key to the key file
// @Tags         agent
// @Produce      json
// @Success      200  {object}  model.GenerateResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /agent/generate [post]
func (h *AgentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	passwordBytes, err := h.password()
	if err != nil {
		writeError(w, errs.Validation("%v", err))
		return
	}
	defer clear(passwordBytes) // Always clear password from memory

	address, err := agent.GenerateWallet(h.manager, h.filePath, h.network, passwordBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Account generated successfully",
		Address: address.String(),
	})
}

// Address handles GET /agent/address
// @Summary      Get account address
// @Description  Reads the address and its QR code from the key file without decrypting it
// @Tags         agent
// @Produce      json
// @Success      200  {object}  model.AddressResponse
// @Router       /agent/address [get]
func (h *AgentHandler) Address(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	kf, err := keystore.Read(h.filePath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AddressResponse{Network: kf.Network, Address: kf.Address, QR: kf.QR})
}

// GetBalance handles GET /agent/balance
// @Summary      Get public balance
// @Description  Gets the public credits balance, priced in currency when given
// @Tags         agent
// @Produce      json
// @Param        currency  query     string  false  "Fiat currency, e.g. usd"
// @Success      200  {object}  model.BalanceResponse
// @Router       /agent/balance [get]
func (h *AgentHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := a.Balance(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Transfer handles POST /agent/transfer
// @Summary      Transfer credits
// @Description  Sends credits with one of the private, private_to_public, public_to_private or public variants
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request  body      model.TransferRequest  true  "Transfer data"
// @Success      200      {object}  model.TransferResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      429      {object}  model.ErrorResponse
// @Router       /agent/transfer [post]
func (h *AgentHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var body model.TransferRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Validation("invalid request body: %v", err))
		return
	}
	req, err := agent.ParseTransfer(h.manager, &body)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	txID, err := a.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TransferResponse{TxID: txID})
}

// UnspentRecords handles GET /agent/records/unspent
// @Summary      Find unspent records
// @Description  Walks back from end in windows of 49 blocks until max microcredits are covered
// @Tags         records
// @Produce      json
// @Param        start  query     int  true   "First block height"
// @Param        end    query     int  true   "Block height after the last one"
// @Param        max    query     int  false  "Microcredits to cover"
// @Success      200  {object}  model.RecordsResponse
// @Router       /agent/records/unspent [get]
func (h *AgentHandler) UnspentRecords(w http.ResponseWriter, r *http.Request) {
	h.records(w, r, func(ctx context.Context, a *agent.Agent, rng scanner.Range, limit *uint64) ([]scanner.OwnedRecord, error) {
		return a.UnspentRecords(ctx, rng, limit)
	})
}

// ScanRecords handles GET /agent/records/scan
// @Summary      Scan owned records
// @Description  Lists owned records, spent or not, in ascending block order
// @Tags         records
// @Produce      json
// @Param        start  query     int  true   "First block height"
// @Param        end    query     int  true   "Block height after the last one"
// @Param        max    query     int  false  "Number of records to stop at"
// @Success      200  {object}  model.RecordsResponse
// @Router       /agent/records/scan [get]
func (h *AgentHandler) ScanRecords(w http.ResponseWriter, r *http.Request) {
	h.records(w, r, func(ctx context.Context, a *agent.Agent, rng scanner.Range, limit *uint64) ([]scanner.OwnedRecord, error) {
		var maxRecords *int
		if limit != nil {
			n := int(min(*limit, math.MaxInt))
			maxRecords = &n
		}
		return a.ScanRecords(ctx, rng, maxRecords)
	})
}

type recordsFunc func(ctx context.Context, a *agent.Agent, rng scanner.Range, limit *uint64) ([]scanner.OwnedRecord, error)

func (h *AgentHandler) records(w http.ResponseWriter, r *http.Request, find recordsFunc) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := optionalUint(r, "max")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	owned, err := find(r.Context(), a, rng, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agent.RecordsResponse(a.Address(), rng, owned))
}

// ProgramRecords handles GET /agent/program/records
// @Summary      Find program records
// @Description  Lists owned ciphertext records output by a program
// @Tags         program
// @Produce      json
// @Param        program      query     string  true   "Program id, e.g. token.aleo"
// @Param        start        query     int     true   "First block height"
// @Param        end          query     int     true   "Block height after the last one"
// @Param        unspentOnly  query     bool    false  "Drop spent records"
// @Success      200  {object}  model.ProgramRecordsResponse
// @Router       /agent/program/records [get]
func (h *AgentHandler) ProgramRecords(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	programID := r.URL.Query().Get("program")
	if err := engine.ValidateProgramID(programID); err != nil {
		writeError(w, err)
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	unspentOnly := false
	if v := r.URL.Query().Get("unspentOnly"); v != "" {
		if unspentOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, errs.Validation("invalid unspentOnly %q", v))
			return
		}
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	found, err := a.ProgramRecords(r.Context(), rng, programID, unspentOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agent.ProgramRecordsResponse(programID, found))
}

// Deploy handles POST /agent/program/deploy
// @Summary      Deploy a program
// @Description  Deploys program source; its imports must already be deployed
// @Tags         program
// @Accept       json
// @Produce      json
// @Param        request  body      model.DeployRequest  true  "Program source"
// @Success      200      {object}  model.TxResponse
// @Router       /agent/program/deploy [post]
func (h *AgentHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body model.DeployRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Validation("invalid request body: %v", err))
		return
	}
	program, err := engine.ParseProgram(body.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	priorityFee, feeRecord, err := parseFee(body.PriorityFee, body.FeeRecord)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	txID, err := a.DeployProgram(r.Context(), program, priorityFee, feeRecord)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TxResponse{TxID: txID})
}

// Execute handles POST /agent/program/execute
// @Summary      Execute a program function
// @Tags         program
// @Accept       json
// @Produce      json
// @Param        request  body      model.ExecuteRequest  true  "Call data"
// @Success      200      {object}  model.TxResponse
// @Router       /agent/program/execute [post]
func (h *AgentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var body model.ExecuteRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Validation("invalid request body: %v", err))
		return
	}
	inputs := make([]engine.Value, 0, len(body.Inputs))
	for _, s := range body.Inputs {
		v, err := engine.ParseValue(s)
		if err != nil {
			writeError(w, err)
			return
		}
		inputs = append(inputs, v)
	}
	priorityFee, feeRecord, err := parseFee(body.PriorityFee, body.FeeRecord)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	txID, err := a.ExecuteProgram(r.Context(), body.Program, body.Function, inputs, priorityFee, feeRecord)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TxResponse{TxID: txID})
}

// TransactionHistory handles GET /agent/transactions
// @Summary      Get account transactions
// @Description  Gets the account's transactions with filtering capability
// @Tags         agent
// @Produce      json
// @Param        txId      query     string  false  "Transaction ID"
// @Param        program   query     string  false  "Program id"
// @Param        function  query     string  false  "Function name (requires program)"
// @Param        status    query     string  false  "accepted or rejected"
// @Param        from      query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to        query     string  false  "End date (YYYY-MM-DD)"
// @Success      200  {object}  model.LogResponse
// @Router       /agent/transactions [get]
func (h *AgentHandler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	var req model.LogRequest
	q := r.URL.Query()

	// Parse date parameters (YYYY-MM-DD)
	const dateLayout = "2006-01-02"
	if fromStr := q.Get("from"); fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			writeError(w, errs.Validation("invalid from date: use YYYY-MM-DD (e.g. 2006-01-02)"))
			return
		}
		req.From = &t
	}
	if toStr := q.Get("to"); toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			writeError(w, errs.Validation("invalid to date: use YYYY-MM-DD (e.g. 2006-01-02)"))
			return
		}
		// End of day so filter is inclusive
		t = t.Add(24*time.Hour - time.Nanosecond)
		req.To = &t
	}
	for name, dst := range map[string]**string{
		"txId":     &req.TxID,
		"program":  &req.Program,
		"function": &req.Function,
		"status":   &req.Status,
	} {
		if v := q.Get(name); v != "" {
			*dst = &v
		}
	}

	a, err := h.unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	logResp, err := a.Transactions(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logResp)
}

func parseRange(r *http.Request) (scanner.Range, error) {
	start, err := requiredUint32(r, "start")
	if err != nil {
		return scanner.Range{}, err
	}
	end, err := requiredUint32(r, "end")
	if err != nil {
		return scanner.Range{}, err
	}
	return scanner.Range{Start: start, End: end}, nil
}

func requiredUint32(r *http.Request, name string) (uint32, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, errs.Validation("%s is required", name)
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, errs.Validation("invalid %s %q", name, v)
	}
	return uint32(n), nil
}

func optionalUint(r *http.Request, name string) (*uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, errs.Validation("invalid %s %q", name, v)
	}
	return &n, nil
}

func parseFee(priorityFee, feeRecord string) (uint64, *record.Plaintext, error) {
	var fee uint64
	if priorityFee != "" {
		var err error
		if fee, err = common.ParseMicrocredits(priorityFee); err != nil {
			return 0, nil, errs.Validation("priorityFee: %v", err)
		}
	}
	rec, err := agent.ParseFeeRecord(feeRecord)
	if err != nil {
		return 0, nil, err
	}
	return fee, rec, nil
}
