package model

import (
	"fmt"
	"strings"
)

// Transfer variants accepted by POST /agent/transfer
const (
	VariantPrivate         = "private"
	VariantPrivateToPublic = "private_to_public"
	VariantPublicToPrivate = "public_to_private"
	VariantPublic          = "public"
)

// TransferRequest represents request for POST /agent/transfer.
// Record and FeeRecord carry plaintext records in their canonical text form.
type TransferRequest struct {
	Variant     string `json:"variant" binding:"required"`
	ToAddress   string `json:"toAddress" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	PriorityFee string `json:"priorityFee,omitempty"`
	Record      string `json:"record,omitempty"`
	FeeRecord   string `json:"feeRecord,omitempty"`
}

// Validate checks the fields that do not need key material.
func (r *TransferRequest) Validate() error {
	switch r.Variant {
	case VariantPrivate, VariantPrivateToPublic:
		if strings.TrimSpace(r.Record) == "" {
			return fmt.Errorf("variant %s requires a record", r.Variant)
		}
	case VariantPublicToPrivate, VariantPublic:
		if r.Record != "" {
			return fmt.Errorf("variant %s does not spend a record", r.Variant)
		}
	default:
		return fmt.Errorf("variant must be one of %s, %s, %s, %s",
			VariantPrivate, VariantPrivateToPublic, VariantPublicToPrivate, VariantPublic)
	}
	if r.ToAddress == "" {
		return fmt.Errorf("toAddress is required")
	}
	if r.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	return nil
}

// TransferResponse represents response for POST /agent/transfer
type TransferResponse struct {
	TxID string `json:"txId"`
}
