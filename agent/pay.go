package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/common"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/model"
	"github.com/AlexZinkM/record-agent/internal/record"
	"github.com/AlexZinkM/record-agent/internal/transfer"
)

// CooldownError is returned while the previous transfer is too recent.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, please wait %v", e.Remaining.Round(time.Second))
}

// Transfer validates and sends req. Transfers are serialized, and after a
// successful one the next is refused until the cooldown has passed.
func (a *Agent) Transfer(ctx context.Context, req transfer.Request) (string, error) {
	if err := transfer.Validate(req); err != nil {
		return "", err
	}

	a.payMu.Lock()
	defer a.payMu.Unlock()

	if !a.lastPay.IsZero() && a.cooldown > 0 {
		if elapsed := a.now().Sub(a.lastPay); elapsed < a.cooldown {
			return "", &CooldownError{Remaining: a.cooldown - elapsed}
		}
	}

	txID, err := a.builder.Transfer(ctx, a.account.PrivateKey(), req)
	if err != nil {
		return "", err
	}

	a.lastPay = a.now()
	logger.Infof("transfer %s broadcast", txID)
	return txID, nil
}

// ParseTransfer turns the API form of a transfer into a transfer.Request.
// Amounts accept microcredits ("1000000", "1000000u64") or credits ("1.5").
func ParseTransfer(m *account.Manager, req *model.TransferRequest) (transfer.Request, error) {
	if err := req.Validate(); err != nil {
		return transfer.Request{}, errs.Validation("%v", err)
	}

	recipient, err := m.ParseAddress(req.ToAddress)
	if err != nil {
		return transfer.Request{}, err
	}
	amount, err := common.ParseMicrocredits(req.Amount)
	if err != nil {
		return transfer.Request{}, errs.Validation("amount: %v", err)
	}
	var priorityFee uint64
	if req.PriorityFee != "" {
		if priorityFee, err = common.ParseMicrocredits(req.PriorityFee); err != nil {
			return transfer.Request{}, errs.Validation("priorityFee: %v", err)
		}
	}

	out := transfer.Request{Amount: amount, PriorityFee: priorityFee, Recipient: recipient}
	switch req.Variant {
	case model.VariantPrivate, model.VariantPrivateToPublic:
		rec, err := record.ParsePlaintext(req.Record)
		if err != nil {
			return transfer.Request{}, err
		}
		if req.Variant == model.VariantPrivate {
			out.Variant = transfer.Private{Record: rec}
		} else {
			out.Variant = transfer.PrivateToPublic{Record: rec}
		}
	case model.VariantPublicToPrivate:
		out.Variant = transfer.PublicToPrivate{}
	case model.VariantPublic:
		out.Variant = transfer.Public{}
	}

	if out.FeeRecord, err = ParseFeeRecord(req.FeeRecord); err != nil {
		return transfer.Request{}, err
	}
	return out, nil
}

// ParseFeeRecord parses an optional fee record; empty means the fee is paid
// publicly.
func ParseFeeRecord(s string) (*record.Plaintext, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	rec, err := record.ParsePlaintext(s)
	if err != nil {
		return nil, fmt.Errorf("fee record: %w", err)
	}
	return &rec, nil
}
