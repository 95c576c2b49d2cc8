package services

import (
	"context"
	"errors"
	"fmt"

	"spendmate/internal/core"
	"spendmate/internal/ledger"
	"spendmate/internal/query"
)

// Kind classifies an error for presentation.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindWrite
	KindSubscription
	KindUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindWrite:
		return "write_failed"
	case KindSubscription:
		return "subscription_failed"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Describe returns a message fit for showing to the user.
func (k Kind) Describe() string {
	switch k {
	case KindNone:
		return ""
	case KindValidation:
		return "Please check the highlighted fields."
	case KindUnauthenticated:
		return "Please sign in to continue."
	case KindNotFound:
		return "That record no longer exists."
	case KindWrite:
		return "Your change could not be saved. Please try again."
	case KindSubscription:
		return "Live updates stopped. Retry to reconnect."
	case KindUnavailable:
		return "The ledger is still loading. Please try again shortly."
	default:
		return "Something went wrong."
	}
}

// ErrorKind maps any error returned by this package to a Kind.
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidFilter),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidEmail):
		return KindValidation
	case errors.Is(err, ledger.ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ledger.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ledger.ErrWrite):
		return KindWrite
	case errors.Is(err, ledger.ErrSubscription):
		return KindSubscription
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ledger.ErrClosed):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// ErrInvalidFilter wraps filter parse failures so they classify as
// validation errors.
var ErrInvalidFilter = errors.New("invalid filter")

// ParseSelection parses view filters, tagging failures with ErrInvalidFilter.
func ParseSelection(typ, period, category string) (query.Selection, error) {
	sel, err := query.ParseSelection(typ, period, category)
	if err != nil {
		return query.Selection{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return sel, nil
}
