package agent

import (
	"context"
	"sort"
	"time"

	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/model"
)

// Transactions gets the account's transaction history with filtering
func (a *Agent) Transactions(ctx context.Context, req *model.LogRequest) (*model.LogResponse, error) {
	if req == nil {
		req = &model.LogRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, errs.Validation("%v", err)
	}

	history, err := a.chain.AddressTransactions(ctx, a.Address())
	if err != nil {
		return nil, err
	}

	resp := &model.LogResponse{
		Address:      a.Address().String(),
		Transactions: make([]model.Transaction, 0, len(history)),
	}
	for _, tx := range history {
		t := model.Transaction{
			TxID:         tx.TransactionID,
			TransitionID: tx.TransitionID,
			Program:      tx.Program,
			Function:     tx.Function,
			Height:       tx.Height,
			Timestamp:    time.Unix(tx.Timestamp, 0).UTC(),
			Status:       tx.Status,
		}
		if !req.Match(t) {
			continue
		}
		switch t.Status {
		case model.StatusAccepted:
			resp.Accepted++
		case model.StatusRejected:
			resp.Rejected++
		}
		resp.Transactions = append(resp.Transactions, t)
	}

	// Newest first
	sort.SliceStable(resp.Transactions, func(i, j int) bool {
		return resp.Transactions[i].Height > resp.Transactions[j].Height
	})

	logger.Debugf("%d of %d transactions match", len(resp.Transactions), len(history))
	return resp, nil
}
