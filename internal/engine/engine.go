// Package engine describes the proving and execution collaborator that turns a
// program call into a broadcastable transaction.
package engine

import (
	"context"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/record"
)

// CreditsProgram is the native program holding balances.
const CreditsProgram = "credits.aleo"

// Call names a program function.
type Call struct {
	Program  string
	Function string
}

func (c Call) String() string {
	return c.Program + "/" + c.Function
}

// Query tells the engine where to read chain state (state roots, imported programs).
type Query struct {
	BaseURL string
	Network string
}

// Engine builds transactions. It is supplied by the caller; the agent never
// generates proofs itself.
type Engine interface {
	Execute(ctx context.Context, pk account.PrivateKey, call Call, inputs []Value,
		feeRecord *record.Plaintext, priorityFee uint64, query Query) (*ledger.Transaction, error)
	Deploy(ctx context.Context, pk account.PrivateKey, program *Program,
		feeRecord *record.Plaintext, priorityFee uint64, query Query) (*ledger.Transaction, error)
}
