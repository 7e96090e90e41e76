package model

// BalanceResponse represents response for GET /agent/balance
type BalanceResponse struct {
	Address      string `json:"address"`
	Microcredits uint64 `json:"microcredits"`
	Credits      string `json:"credits"`
	Rate         string `json:"rate,omitempty"`
	Fiat         string `json:"fiat,omitempty"`
	Currency     string `json:"currency,omitempty"`
}
