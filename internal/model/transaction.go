package model

import (
	"fmt"
	"time"
)

// Transaction statuses as reported by the chain service
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Transaction represents an entry of the account's history
type Transaction struct {
	TxID         string    `json:"txId"`
	TransitionID string    `json:"transitionId"`
	Program      string    `json:"program"`
	Function     string    `json:"function"`
	Height       uint32    `json:"height"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
}

// LogResponse represents response for GET /agent/transactions
type LogResponse struct {
	Address      string        `json:"address"`
	Accepted     int           `json:"accepted"`
	Rejected     int           `json:"rejected"`
	Transactions []Transaction `json:"transactions"`
}

// LogRequest represents request parameters for GET /agent/transactions
type LogRequest struct {
	TxID     *string    `form:"txId"`
	Program  *string    `form:"program"`
	Function *string    `form:"function"`
	Status   *string    `form:"status"`
	From     *time.Time `form:"from"`
	To       *time.Time `form:"to"`
}

// Validate validates LogRequest filter parameters.
func (r *LogRequest) Validate() error {
	if r.Status != nil && *r.Status != StatusAccepted && *r.Status != StatusRejected {
		return fmt.Errorf("status must be %s or %s", StatusAccepted, StatusRejected)
	}
	if r.Function != nil && r.Program == nil {
		return fmt.Errorf("function filter requires a program filter")
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return fmt.Errorf("to date must be after or equal to from date")
	}
	return nil
}

// Match reports whether tx passes every filter set on r.
func (r *LogRequest) Match(tx Transaction) bool {
	if r.TxID != nil && *r.TxID != tx.TxID {
		return false
	}
	if r.Program != nil && *r.Program != tx.Program {
		return false
	}
	if r.Function != nil && *r.Function != tx.Function {
		return false
	}
	if r.Status != nil && *r.Status != tx.Status {
		return false
	}
	if r.From != nil && tx.Timestamp.Before(*r.From) {
		return false
	}
	if r.To != nil && tx.Timestamp.After(*r.To) {
		return false
	}
	return true
}
