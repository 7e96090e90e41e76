package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/client"
	"github.com/AlexZinkM/record-agent/internal/engine"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/record"
)

// ChainProgram gets and parses a deployed program. ErrNotFound (wrapped) means
// it is not deployed.
func (a *Agent) ChainProgram(ctx context.Context, programID string) (*engine.Program, error) {
	if err := engine.ValidateProgramID(programID); err != nil {
		return nil, err
	}
	src, err := a.chain.Program(ctx, programID)
	if err != nil {
		return nil, err
	}
	p, err := engine.ParseProgram(src)
	if err != nil {
		return nil, &errs.DecodeError{What: "program " + programID, Err: err}
	}
	return p, nil
}

// ResolveImports fetches every program p depends on, directly or not, from the
// chain. The result lists dependencies before their dependents. credits.aleo is
// native and never fetched.
func (a *Agent) ResolveImports(ctx context.Context, p *engine.Program) ([]*engine.Program, error) {
	var (
		out      []*engine.Program
		done     = map[string]bool{}
		visiting = map[string]bool{p.ID: true}
	)

	var visit func(importer string, imports []string) error
	visit = func(importer string, imports []string) error {
		for _, id := range imports {
			if id == engine.CreditsProgram || done[id] {
				continue
			}
			if visiting[id] {
				return errs.Validation("circular dependency between %s and %s", importer, id)
			}

			imported, err := a.ChainProgram(ctx, id)
			if errors.Is(err, client.ErrNotFound) {
				return errs.Validation("imported program %s is not deployed, deploy it before %s", id, importer)
			}
			if err != nil {
				return fmt.Errorf("failed to resolve import %s: %w", id, err)
			}

			visiting[id] = true
			if err := visit(id, imported.Imports); err != nil {
				return err
			}
			visiting[id] = false
			done[id] = true
			out = append(out, imported)
		}
		return nil
	}

	if err := visit(p.ID, p.Imports); err != nil {
		return nil, err
	}
	return out, nil
}

// DeployProgram deploys p and returns the transaction id. It refuses programs
// already on chain and programs whose imports are not.
func (a *Agent) DeployProgram(ctx context.Context, p *engine.Program, priorityFee uint64, feeRecord *record.Plaintext) (string, error) {
	_, err := a.chain.Program(ctx, p.ID)
	if err == nil {
		return "", errs.Validation("program %s is already deployed", p.ID)
	}
	if !errors.Is(err, client.ErrNotFound) {
		return "", fmt.Errorf("failed to check program %s: %w", p.ID, err)
	}

	if _, err := a.ResolveImports(ctx, p); err != nil {
		return "", err
	}
	if err := checkFeeRecord(feeRecord, priorityFee); err != nil {
		return "", err
	}

	logger.Infof("deploying %s", p.ID)
	tx, err := a.engine.Deploy(ctx, a.account.PrivateKey(), p, feeRecord, priorityFee, a.query)
	if err != nil {
		return "", fmt.Errorf("failed to create deployment of %s: %w", p.ID, err)
	}
	txID, err := a.chain.Broadcast(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast deployment of %s: %w", p.ID, err)
	}
	return txID, nil
}

// ExecuteProgram calls programID/function on chain and returns the transaction id.
func (a *Agent) ExecuteProgram(ctx context.Context, programID, function string, inputs []engine.Value,
	priorityFee uint64, feeRecord *record.Plaintext) (string, error) {
	if err := engine.ValidateIdentifier(function); err != nil {
		return "", err
	}

	p, err := a.ChainProgram(ctx, programID)
	if errors.Is(err, client.ErrNotFound) {
		return "", errs.Validation("program %s is not deployed", programID)
	}
	if err != nil {
		return "", err
	}
	if !p.HasFunction(function) {
		return "", errs.Validation("program %s has no function %s", programID, function)
	}
	if err := checkFeeRecord(feeRecord, priorityFee); err != nil {
		return "", err
	}

	call := engine.Call{Program: programID, Function: function}
	logger.Infof("executing %s with %d inputs", call, len(inputs))
	tx, err := a.engine.Execute(ctx, a.account.PrivateKey(), call, inputs, feeRecord, priorityFee, a.query)
	if err != nil {
		return "", fmt.Errorf("failed to execute %s: %w", call, err)
	}
	txID, err := a.chain.Broadcast(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast %s: %w", call, err)
	}
	return txID, nil
}

func checkFeeRecord(feeRecord *record.Plaintext, priorityFee uint64) error {
	if feeRecord == nil {
		return nil
	}
	balance, err := feeRecord.Microcredits()
	if err != nil {
		return errs.Validation("fee record: %v", err)
	}
	if balance < priorityFee {
		return errs.Validation("insufficient balance in fee record: has %d microcredits, priority fee is %d", balance, priorityFee)
	}
	return nil
}
