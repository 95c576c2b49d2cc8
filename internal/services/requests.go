package services

import (
	"strings"
	"time"

	"spendmate/internal/core"
)

// TransactionRequest is transaction input as it arrives from a form, the
// HTTP API or the CLI. Empty fields take defaults on create and keep the
// stored value on edit.
type TransactionRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Date     string `json:"date"` // RFC 3339 instant or YYYY-MM-DD
}

// ProfileRequest is a profile edit.
type ProfileRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// candidate merges the request over base. Create passes a base holding
// only the defaults; edit passes the stored transaction.
func (r TransactionRequest) candidate(base core.Candidate) (core.Candidate, error) {
	c := base
	if s := strings.TrimSpace(r.Name); s != "" {
		c.Name = s
	}
	if s := strings.TrimSpace(r.Amount); s != "" {
		c.Amount = s
	}
	if s := strings.TrimSpace(r.Category); s != "" {
		c.Category = s
	}
	if strings.TrimSpace(r.Type) != "" {
		t, err := core.ParseType(r.Type)
		if err != nil {
			return core.Candidate{}, err
		}
		c.Type = t
	}
	if strings.TrimSpace(r.Date) != "" {
		d, err := core.ParseDate(r.Date)
		if err != nil {
			return core.Candidate{}, err
		}
		c.Date = d
	}
	return c, nil
}

func createDefaults(now time.Time) core.Candidate {
	return core.Candidate{Type: core.Expense, Date: now}
}

// editBase is the stored transaction as a candidate. An amount that did
// not decode is left empty so the edit has to supply one.
func editBase(tx core.Transaction) core.Candidate {
	c := core.Candidate{
		Name:     tx.Name,
		Type:     tx.Type,
		Category: tx.Category,
		Date:     tx.Date,
	}
	if tx.Amount.IsPositive() {
		c.Amount = core.FormatDecimal(tx.Amount)
	}
	return c
}

func (r ProfileRequest) candidate() core.ProfileCandidate {
	return core.ProfileCandidate{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		ProfileImage: r.ProfileImage,
	}
}
