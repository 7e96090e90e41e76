package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/AlexZinkM/record-agent/agent"
	"github.com/AlexZinkM/record-agent/internal/errs"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/keystore"
	"github.com/AlexZinkM/record-agent/internal/model"
)

// Error codes carried in model.ErrorResponse
const (
	CodeValidation = "VALIDATION"
	CodeCrypto     = "CRYPTO"
	CodeNetwork    = "NETWORK"
	CodeDecode     = "DECODE"
	CodeConflict   = "CONFLICT"
	CodeCooldown   = "COOLDOWN"
	CodeInternal   = "INTERNAL"
)

// statusFor maps an error kind to its HTTP status and code.
func statusFor(err error) (int, string) {
	var cooldown *agent.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return http.StatusTooManyRequests, CodeCooldown
	case keystore.IsFileExistsError(err):
		return http.StatusConflict, CodeConflict
	case errs.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case errs.IsCrypto(err):
		return http.StatusUnauthorized, CodeCrypto
	case errs.IsNetwork(err):
		return http.StatusBadGateway, CodeNetwork
	case errs.IsDecode(err):
		return http.StatusBadGateway, CodeDecode
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("request failed: %v", err)
	} else {
		logger.Debugf("request rejected (%d): %v", status, err)
	}
	resp := model.ErrorResponse{Error: err.Error(), Code: code}
	var cooldown *agent.CooldownError
	if errors.As(err, &cooldown) {
		resp.RetryAfter = int64(math.Ceil(cooldown.Remaining.Seconds()))
		w.Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfter, 10))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("failed to write response: %v", err)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed. Should be "+method, http.StatusMethodNotAllowed)
		return false
	}
	return true
}
