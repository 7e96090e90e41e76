// Package transfer validates credit transfers and assembles them into a program
// call for the execution engine.
package transfer

import (
	"context"
	"fmt"

	"github.com/op/go-logging"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/ledger"
	"github.com/AlexZinkM/record-agent/internal/record"
)

var logger = logging.MustGetLogger("transfer")

// Variant selects where the credits come from and where they land. It is sealed:
// the only implementations are Private, PrivateToPublic, PublicToPrivate and Public.
type Variant interface {
	functionName() string
	source() *record.Plaintext
}

// Private spends a record and creates a record for the recipient.
type Private struct {
	Record record.Plaintext
}

// PrivateToPublic spends a record and credits the recipient's public balance.
type PrivateToPublic struct {
	Record record.Plaintext
}

// PublicToPrivate debits the public balance and creates a record for the recipient.
type PublicToPrivate struct{}

// Public moves credits between public balances.
type Public struct{}

func (Private) functionName() string         { return "transfer_private" }
func (PrivateToPublic) functionName() string { return "transfer_private_to_public" }
func (PublicToPrivate) functionName() string { return "transfer_public_to_private" }
func (Public) functionName() string          { return "transfer_public" }

func (v Private) source() *record.Plaintext         { return &v.Record }
func (v PrivateToPublic) source() *record.Plaintext { return &v.Record }
func (PublicToPrivate) source() *record.Plaintext   { return nil }
func (Public) source() *record.Plaintext            { return nil }

// Request is a single transfer. FeeRecord, when set, pays the fee privately;
// otherwise the fee is taken from the public balance.
type Request struct {
	Amount      uint64
	PriorityFee uint64
	Recipient   account.Address
	Variant     Variant
	FeeRecord   *record.Plaintext
}

// FunctionName returns the credits.aleo function implementing v.
func FunctionName(v Variant) string {
	return v.functionName()
}

// Validate checks the request against the records it carries. It never touches
// the network.
func Validate(req Request) error {
	if req.Variant == nil {
		return errs.Validation("transfer variant must be set")
	}

	if src := req.Variant.source(); src != nil {
		balance, err := src.Microcredits()
		if err != nil {
			return errs.Validation("source record: %v", err)
		}
		if balance < req.Amount {
			return errs.Validation("insufficient balance in source record: has %d microcredits, transfer needs %d", balance, req.Amount)
		}
	}

	if req.FeeRecord != nil {
		balance, err := req.FeeRecord.Microcredits()
		if err != nil {
			return errs.Validation("fee record: %v", err)
		}
		if balance < req.PriorityFee {
			return errs.Validation("insufficient balance in fee record: has %d microcredits, priority fee is %d", balance, req.PriorityFee)
		}
	}
	return nil
}

// Inputs returns the ordered function inputs: [record, recipient, amount] for
// record-funded variants and [recipient, amount] otherwise.
func Inputs(req Request) []engine.Value {
	inputs := make([]engine.Value, 0, 3)
	if src := req.Variant.source(); src != nil {
		inputs = append(inputs, engine.RecordValue(*src))
	}
	return append(inputs, engine.AddressValue(req.Recipient), engine.U64Value(req.Amount))
}

// Broadcaster submits transactions to the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *ledger.Transaction) (string, error)
}

// Builder runs validate, execute, broadcast for one account.
type Builder struct {
	engine      engine.Engine
	broadcaster Broadcaster
	query       engine.Query
}

// NewBuilder creates a Builder.
func NewBuilder(e engine.Engine, b Broadcaster, query engine.Query) *Builder {
	return &Builder{engine: e, broadcaster: b, query: query}
}

// Transfer executes req on behalf of pk and returns the broadcast transaction id.
// Nothing is retried.
func (b *Builder) Transfer(ctx context.Context, pk account.PrivateKey, req Request) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}

	call := engine.Call{Program: engine.CreditsProgram, Function: FunctionName(req.Variant)}
	logger.Infof("transferring %d microcredits to %s via %s", req.Amount, req.Recipient, call)

	tx, err := b.engine.Execute(ctx, pk, call, Inputs(req), req.FeeRecord, req.PriorityFee, b.query)
	if err != nil {
		return "", fmt.Errorf("failed to execute transfer: %w", err)
	}
	id, err := b.broadcaster.Broadcast(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transfer: %w", err)
	}
	return id, nil
}
