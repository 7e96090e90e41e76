package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/AlexZinkM/record-agent/internal/common"
	"github.com/AlexZinkM/record-agent/internal/model"
)

// Balance gets the public credits balance. With a rate source and a currency
// it also prices the balance in that currency.
func (a *Agent) Balance(ctx context.Context, currency string) (*model.BalanceResponse, error) {
	micro, err := a.chain.PublicBalance(ctx, a.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get public balance: %w", err)
	}

	resp := &model.BalanceResponse{
		Address:      a.Address().String(),
		Microcredits: micro,
		Credits:      common.MicrocreditsToCredits(micro),
	}
	if a.rates == nil || currency == "" {
		return resp, nil
	}

	rate, err := a.rates.CreditsRate(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}

	// Float only for display, never for amounts that are spent
	credits, _ := strconv.ParseFloat(resp.Credits, 64)
	rateFloat, _ := strconv.ParseFloat(rate, 64)
	resp.Rate = rate
	resp.Fiat = fmt.Sprintf("%.2f", credits*rateFloat)
	resp.Currency = currency
	return resp, nil
}
