package model

// DeployRequest represents request for POST /agent/program/deploy.
// Source is the program text; the fee is paid from FeeRecord when set.
type DeployRequest struct {
	Source      string `json:"source" binding:"required"`
	PriorityFee string `json:"priorityFee,omitempty"`
	FeeRecord   string `json:"feeRecord,omitempty"`
}

// ExecuteRequest represents request for POST /agent/program/execute.
// Inputs are literals (1u64, aleo1..., { owner: ... } records).
type ExecuteRequest struct {
	Program     string   `json:"program" binding:"required"`
	Function    string   `json:"function" binding:"required"`
	Inputs      []string `json:"inputs"`
	PriorityFee string   `json:"priorityFee,omitempty"`
	FeeRecord   string   `json:"feeRecord,omitempty"`
}

// TxResponse carries a broadcast transaction id.
type TxResponse struct {
	TxID string `json:"txId"`
}
