package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/AlexZinkM/record-agent/internal/handler"
)

// SetupRouter sets up router with handlers
func SetupRouter(h *handler.AgentHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Account endpoints
	mux.HandleFunc("/agent/generate", h.Generate)
	mux.HandleFunc("/agent/address", h.Address)
	mux.HandleFunc("/agent/balance", h.GetBalance)
	mux.HandleFunc("/agent/transfer", h.Transfer)
	mux.HandleFunc("/agent/transactions", h.TransactionHistory)

	// Record endpoints
	mux.HandleFunc("/agent/records/unspent", h.UnspentRecords)
	mux.HandleFunc("/agent/records/scan", h.ScanRecords)

	// Program endpoints
	mux.HandleFunc("/agent/program/records", h.ProgramRecords)
	mux.HandleFunc("/agent/program/deploy", h.Deploy)
	mux.HandleFunc("/agent/program/execute", h.Execute)

	return mux
}
