// Package record defines the domain records tracked by barakah and their
// sync metadata.
//
// Every entity kind is a member of a closed set (Kind). Each kind carries a
// typed payload and knows both its local table name and its remote
// collection name, so dispatch throughout the sync core is exhaustive
// rather than stringly-typed.
package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies one of the known entity kinds.
type Kind int

const (
	// KindExpense is a spending entry.
	KindExpense Kind = iota

	// KindSedekah is a voluntary charity entry.
	KindSedekah

	// KindDonation is a donation made to an organization.
	KindDonation

	// KindZakat is a saved zakat calculation.
	KindZakat
)

// Kinds lists every known entity kind. Pull reconciliation and schema
// creation iterate this.
var Kinds = []Kind{KindExpense, KindSedekah, KindDonation, KindZakat}

// String returns the kind's canonical name.
func (k Kind) String() string {
	switch k {
	case KindExpense:
		return "expense"
	case KindSedekah:
		return "sedekah"
	case KindDonation:
		return "donation"
	case KindZakat:
		return "zakat"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Table returns the local store table for the kind.
func (k Kind) Table() string {
	switch k {
	case KindExpense:
		return "expenses"
	case KindSedekah:
		return "sedekah_records"
	case KindDonation:
		return "donations"
	case KindZakat:
		return "zakat_records"
	default:
		return ""
	}
}

// Collection returns the remote collection name for the kind.
// These match the authoritative backend's table names.
func (k Kind) Collection() string {
	return k.Table()
}

// ParseKind resolves a canonical kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// ExpenseCategories are the recognized spending categories.
var ExpenseCategories = []string{
	"makanan_halal",
	"nafkah_keluarga",
	"sedekah",
	"wakaf",
	"hutang",
	"simpanan",
	"hiburan",
}

// ValidCategory reports whether c is a recognized expense category.
func ValidCategory(c string) bool {
	for _, v := range ExpenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Payload is the typed domain payload of a record.
type Payload interface {
	Kind() Kind
	Validate() error
}

// Expense is the payload for KindExpense.
type Expense struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	IsRamadan   bool            `json:"is_ramadan,omitempty"`
	RamadanMeal string          `json:"ramadan_meal,omitempty"` // "sahur" or "iftar"
}

// Kind implements Payload.
func (Expense) Kind() Kind { return KindExpense }

// Validate implements Payload.
func (e Expense) Validate() error {
	if e.Amount.IsNegative() || e.Amount.IsZero() {
		return fmt.Errorf("expense amount must be positive, got %s", e.Amount)
	}
	if !ValidCategory(e.Category) {
		return fmt.Errorf("unknown expense category %q", e.Category)
	}
	if e.RamadanMeal != "" && e.RamadanMeal != "sahur" && e.RamadanMeal != "iftar" {
		return fmt.Errorf("ramadan meal must be sahur or iftar, got %q", e.RamadanMeal)
	}
	return nil
}

// Sedekah is the payload for KindSedekah.
type Sedekah struct {
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Kind implements Payload.
func (Sedekah) Kind() Kind { return KindSedekah }

// Validate implements Payload.
func (s Sedekah) Validate() error {
	if s.Amount.IsNegative() || s.Amount.IsZero() {
		return fmt.Errorf("sedekah amount must be positive, got %s", s.Amount)
	}
	return nil
}

// Donation is the payload for KindDonation.
type Donation struct {
	OrganizationID string          `json:"organization_id"`
	DonorName      string          `json:"donor_name,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category,omitempty"`
	QRRef          string          `json:"qr_ref,omitempty"`
	Description    string          `json:"description,omitempty"`
}

// Kind implements Payload.
func (Donation) Kind() Kind { return KindDonation }

// Validate implements Payload.
func (d Donation) Validate() error {
	if d.OrganizationID == "" {
		return fmt.Errorf("donation requires an organization id")
	}
	if d.Amount.IsNegative() || d.Amount.IsZero() {
		return fmt.Errorf("donation amount must be positive, got %s", d.Amount)
	}
	return nil
}

// ZakatRecord is the payload for KindZakat: one saved zakat calculation.
type ZakatRecord struct {
	TotalSavings  decimal.Decimal `json:"total_savings"`
	GoldValue     decimal.Decimal `json:"gold_value"`
	ZakatAmount   decimal.Decimal `json:"zakat_amount"`
	NisabEligible bool            `json:"nisab_eligible"`
	Year          int             `json:"year"`
}

// Kind implements Payload.
func (ZakatRecord) Kind() Kind { return KindZakat }

// Validate implements Payload.
func (z ZakatRecord) Validate() error {
	if z.TotalSavings.IsNegative() || z.GoldValue.IsNegative() {
		return fmt.Errorf("zakat inputs cannot be negative")
	}
	if z.Year < 2000 {
		return fmt.Errorf("implausible zakat year %d", z.Year)
	}
	return nil
}

// Record is a domain record plus its sync metadata.
//
// LocalID is assigned by the local store and never leaves the device.
// RemoteID is assigned by the authoritative backend on first successful
// sync. StableKey is generated at creation time and is the identity used
// for deduplication and reconciliation across the two.
type Record struct {
	LocalID   int64
	RemoteID  string
	OwnerID   string
	StableKey string
	Date      string // YYYY-MM-DD
	Synced    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Payload   Payload
}

// New builds an unsynced record for the given owner with a fresh stable key.
func New(ownerID, date string, payload Payload) (*Record, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid record date %q: %w", date, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Record{
		OwnerID:   ownerID,
		StableKey: NewStableKey(),
		Date:      date,
		Synced:    false,
		CreatedAt: now,
		UpdatedAt: now,
		Payload:   payload,
	}, nil
}

// NewStableKey generates a client-side stable key.
func NewStableKey() string {
	return uuid.NewString()
}

// Kind returns the record's entity kind.
func (r *Record) Kind() Kind {
	return r.Payload.Kind()
}

// EncodePayload serializes a payload for storage or transmission.
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Kind(), err)
	}
	return data, nil
}

// DecodePayload deserializes a payload of the given kind. The switch is the
// closed-variant dispatch point: adding a kind without extending it is a
// compile-time-visible omission.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindExpense:
		var e Expense
		err = json.Unmarshal(data, &e)
		p = e
	case KindSedekah:
		var s Sedekah
		err = json.Unmarshal(data, &s)
		p = s
	case KindDonation:
		var d Donation
		err = json.Unmarshal(data, &d)
		p = d
	case KindZakat:
		var z ZakatRecord
		err = json.Unmarshal(data, &z)
		p = z
	default:
		return nil, fmt.Errorf("unknown entity kind %d", int(kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return p, nil
}
