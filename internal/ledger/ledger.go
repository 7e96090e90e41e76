// Package ledger holds the chain data model as served by the REST query service.
package ledger

import (
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/record"
)

const (
	OutputRecord = "record"
	InputRecord  = "record"

	TypeExecute = "execute"
	TypeDeploy  = "deploy"
	TypeFee     = "fee"

	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Block struct {
	BlockHash    string                 `json:"block_hash"`
	PreviousHash string                 `json:"previous_hash"`
	Header       Header                 `json:"header"`
	Transactions []ConfirmedTransaction `json:"transactions"`
}

type Header struct {
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Network   uint16 `json:"network"`
	Height    uint32 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// Height is a shorthand for Header.Metadata.Height.
func (b *Block) Height() uint32 {
	return b.Header.Metadata.Height
}

type ConfirmedTransaction struct {
	Status      string      `json:"status"`
	Type        string      `json:"type"`
	Index       uint32      `json:"index"`
	Transaction Transaction `json:"transaction"`
}

type Transaction struct {
	Type       string      `json:"type"`
	ID         string      `json:"id"`
	Execution  *Execution  `json:"execution,omitempty"`
	Deployment *Deployment `json:"deployment,omitempty"`
	Fee        *Fee        `json:"fee,omitempty"`
}

type Execution struct {
	Transitions     []Transition `json:"transitions"`
	GlobalStateRoot string       `json:"global_state_root"`
	Proof           string       `json:"proof,omitempty"`
}

type Deployment struct {
	Edition   uint16 `json:"edition"`
	ProgramID string `json:"program_id"`
	Program   string `json:"program"`
}

type Fee struct {
	Transition      Transition `json:"transition"`
	GlobalStateRoot string     `json:"global_state_root"`
	Proof           string     `json:"proof,omitempty"`
}

type Transition struct {
	ID       string   `json:"id"`
	Program  string   `json:"program"`
	Function string   `json:"function"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	TPK      string   `json:"tpk,omitempty"`
	TCM      string   `json:"tcm,omitempty"`
}

// Input is a transition input. For record inputs ID is the serial number.
type Input struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Value string `json:"value,omitempty"`
}

// Output is a transition output. For record outputs ID is the commitment and Value
// the record ciphertext.
type Output struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Checksum string `json:"checksum,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Transitions returns the execution transitions followed by the fee transition.
func (t *Transaction) Transitions() []Transition {
	var out []Transition
	if t.Execution != nil {
		out = append(out, t.Execution.Transitions...)
	}
	if t.Fee != nil {
		out = append(out, t.Fee.Transition)
	}
	return out
}

// RecordOutput is a record published by a transition.
type RecordOutput struct {
	Commitment   crypto.Field
	Record       record.Ciphertext
	Program      string
	Function     string
	TransitionID string
}

// Records flattens every record output of the block, in transaction and transition
// order. Rejected transactions only publish their fee transition.
func (b *Block) Records() ([]RecordOutput, error) {
	var out []RecordOutput
	for _, ct := range b.Transactions {
		transitions := ct.Transaction.Transitions()
		if ct.Status == StatusRejected && ct.Transaction.Fee != nil {
			transitions = []Transition{ct.Transaction.Fee.Transition}
		}
		for _, tr := range transitions {
			records, err := tr.Records()
			if err != nil {
				return nil, err
			}
			out = append(out, records...)
		}
	}
	return out, nil
}

// Records returns the record outputs of the transition.
func (t *Transition) Records() ([]RecordOutput, error) {
	var out []RecordOutput
	for _, o := range t.Outputs {
		if o.Type != OutputRecord {
			continue
		}
		commitment, err := crypto.ParseField(o.ID)
		if err != nil {
			return nil, &errs.DecodeError{What: "record commitment in transition " + t.ID, Err: err}
		}
		rec, err := record.ParseCiphertext(o.Value)
		if err != nil {
			return nil, &errs.DecodeError{What: "record in transition " + t.ID, Err: err}
		}
		out = append(out, RecordOutput{
			Commitment:   commitment,
			Record:       rec,
			Program:      t.Program,
			Function:     t.Function,
			TransitionID: t.ID,
		})
	}
	return out, nil
}
