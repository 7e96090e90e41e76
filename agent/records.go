package agent

import (
	"context"
	"math"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/common"
	"github.com/AlexZinkM/record-agent/internal/model"
	"github.com/AlexZinkM/record-agent/internal/scanner"
)

// UnspentRecords finds unspent records walking back from r.End until
// maxMicrocredits is covered or r.Start is reached.
func (a *Agent) UnspentRecords(ctx context.Context, r scanner.Range, maxMicrocredits *uint64) ([]scanner.OwnedRecord, error) {
	return a.scanner.UnspentRecords(ctx, r, maxMicrocredits)
}

// ScanRecords finds owned records, spent or not, in ascending block order.
func (a *Agent) ScanRecords(ctx context.Context, r scanner.Range, maxRecords *int) ([]scanner.OwnedRecord, error) {
	return a.scanner.ScanRecords(ctx, r, maxRecords)
}

// ProgramRecords finds owned records output by programID.
func (a *Agent) ProgramRecords(ctx context.Context, r scanner.Range, programID string, unspentOnly bool) ([]scanner.ProgramRecord, error) {
	return a.scanner.ProgramRecords(ctx, r, programID, unspentOnly)
}

// RecordsResponse renders owned records with their microcredits total. The
// total saturates instead of wrapping.
func RecordsResponse(addr account.Address, r scanner.Range, owned []scanner.OwnedRecord) *model.RecordsResponse {
	resp := &model.RecordsResponse{
		Address: addr.String(),
		Start:   r.Start,
		End:     r.End,
		Records: make([]model.Record, 0, len(owned)),
	}
	for _, o := range owned {
		micro, _ := o.Record.Microcredits()
		if resp.Total+micro < resp.Total {
			resp.Total = math.MaxUint64
		} else {
			resp.Total += micro
		}
		resp.Records = append(resp.Records, model.Record{
			Commitment:   o.Commitment.String(),
			Record:       o.Record.String(),
			Microcredits: micro,
		})
	}
	resp.TotalCredits = common.MicrocreditsToCredits(resp.Total)
	return resp
}

// ProgramRecordsResponse renders ciphertext records found for programID.
func ProgramRecordsResponse(programID string, found []scanner.ProgramRecord) *model.ProgramRecordsResponse {
	resp := &model.ProgramRecordsResponse{Program: programID, Records: make([]model.ProgramRecord, 0, len(found))}
	for _, r := range found {
		resp.Records = append(resp.Records, model.ProgramRecord{
			Commitment: r.Commitment.String(),
			Record:     r.Record.String(),
		})
	}
	return resp
}
