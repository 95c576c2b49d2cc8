package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is one financial event owned by a single user.
	Transaction struct {
		ID       string // assigned by the store on creation
		Name     string
		Amount   decimal.Decimal // always positive, two decimals
		Type     TransactionType
		Category string
		Icon     string
		Date     time.Time
	}

	// Candidate is unvalidated transaction input as entered by the user.
	Candidate struct {
		Name     string
		Amount   string
		Type     TransactionType
		Category string
		Date     time.Time
	}
)

var (
	ErrMissingField   = errors.New("missing field")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrMalformedEntry = errors.New("malformed entry")
)

// Transaction field names as stored under transactions/{userId}/{id}.
const (
	FieldName     = "name"
	FieldAmount   = "amount"
	FieldType     = "type"
	FieldCategory = "category"
	FieldIcon     = "icon"
	FieldDate     = "date"
)

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// ParseType accepts "income" or "expense" in any case.
func ParseType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Validate checks a candidate and returns the normalized transaction.
// Amounts are rounded half-up to two decimals and the icon is taken
// from the category mapping.
func Validate(c Candidate) (Transaction, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Transaction{}, missing(FieldName)
	}
	if strings.TrimSpace(c.Amount) == "" {
		return Transaction{}, missing(FieldAmount)
	}
	category := strings.TrimSpace(c.Category)
	if category == "" {
		return Transaction{}, missing(FieldCategory)
	}
	if c.Date.IsZero() {
		return Transaction{}, missing(FieldDate)
	}
	amount, err := ParseAmount(c.Amount)
	if err != nil {
		return Transaction{}, err
	}
	if !c.Type.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	if known, ok := LookupCategory(category); ok {
		category = known.Label
	}
	return Transaction{
		Name:     name,
		Amount:   amount,
		Type:     c.Type,
		Category: category,
		Icon:     IconFor(category),
		Date:     c.Date,
	}, nil
}

// Valid reports whether the transaction can contribute to monetary
// aggregates and dated views.
func (t Transaction) Valid() bool {
	return t.Amount.IsPositive() && !t.Date.IsZero()
}

// Signed returns the amount with income positive and expense negative.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// EncodeTransaction renders the stored field set for a transaction.
func EncodeTransaction(t Transaction) map[string]string {
	return map[string]string{
		FieldName:     t.Name,
		FieldAmount:   FormatDecimal(t.Amount),
		FieldType:     string(t.Type),
		FieldCategory: t.Category,
		FieldIcon:     t.Icon,
		FieldDate:     FormatDate(t.Date),
	}
}

// DecodeTransaction validates a stored entry. Entries without an id, a name
// or a known type fail with ErrMalformedEntry. An unreadable amount or date
// decodes as zero so the entry is still listed but not counted (see Valid).
// A missing category is tolerated.
func DecodeTransaction(id string, fields map[string]string) (Transaction, error) {
	malformed := func(err error) (Transaction, error) {
		return Transaction{}, fmt.Errorf("%w %s: %w", ErrMalformedEntry, id, err)
	}
	if id == "" {
		return malformed(missing("id"))
	}
	name := strings.TrimSpace(fields[FieldName])
	if name == "" {
		return malformed(missing(FieldName))
	}
	typ, err := ParseType(fields[FieldType])
	if err != nil {
		return malformed(err)
	}
	amount, err := ParseAmount(fields[FieldAmount])
	if err != nil {
		amount = decimal.Zero
	}
	date, err := ParseDate(fields[FieldDate])
	if err != nil {
		date = time.Time{}
	}
	category := strings.TrimSpace(fields[FieldCategory])
	icon := fields[FieldIcon]
	if icon == "" && category != "" {
		icon = IconFor(category)
	}
	return Transaction{
		ID:       id,
		Name:     name,
		Amount:   amount,
		Type:     typ,
		Category: category,
		Icon:     icon,
		Date:     date,
	}, nil
}
