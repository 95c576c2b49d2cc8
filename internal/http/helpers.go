package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"spendmate/internal/core"
	"spendmate/internal/services"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizeTransaction(req services.TransactionRequest) services.TransactionRequest {
	req.Name = sanitizeInput(req.Name)
	req.Amount = sanitizeInput(req.Amount)
	req.Type = sanitizeInput(req.Type)
	req.Category = sanitizeInput(req.Category)
	req.Date = sanitizeInput(req.Date)
	return req
}

func sanitizeProfile(req services.ProfileRequest) services.ProfileRequest {
	req.FirstName = sanitizeInput(req.FirstName)
	req.LastName = sanitizeInput(req.LastName)
	req.Email = sanitizeInput(req.Email)
	req.ProfileImage = sanitizeInput(req.ProfileImage)
	return req
}

// requestID reuses a caller-supplied X-Request-ID or mints a new one.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 64 {
		return sanitizeInput(id)
	}
	return "req_" + uuid.NewString()
}

func transactionJSON(tx core.Transaction, currency string) transactionResponse {
	date := ""
	if !tx.Date.IsZero() {
		date = core.FormatDate(tx.Date)
	}
	return transactionResponse{
		ID:        tx.ID,
		Name:      tx.Name,
		Amount:    core.FormatDecimal(tx.Amount),
		Display:   core.FormatAmount(tx.Amount, currency),
		Type:      string(tx.Type),
		Category:  tx.Category,
		Icon:      tx.Icon,
		Date:      date,
		Countable: tx.Valid(),
	}
}
