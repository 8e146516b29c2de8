package record

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		got, err := ParseKind(kind.String())
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", kind, err)
		}
		if got != kind {
			t.Errorf("ParseKind(%q) = %v, want %v", kind, got, kind)
		}
	}

	if _, err := ParseKind("salary"); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestKindTables(t *testing.T) {
	want := map[Kind]string{
		KindExpense:  "expenses",
		KindSedekah:  "sedekah_records",
		KindDonation: "donations",
		KindZakat:    "zakat_records",
	}
	for kind, table := range want {
		if kind.Table() != table {
			t.Errorf("%v.Table() = %q, want %q", kind, kind.Table(), table)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{Amount: decimal.NewFromInt(10), Category: "makanan_halal"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid expense rejected: %v", err)
	}

	if err := (Expense{Amount: decimal.Zero, Category: "makanan_halal"}).Validate(); err == nil {
		t.Error("zero amount should be rejected")
	}
	if err := (Expense{Amount: decimal.NewFromInt(-5), Category: "makanan_halal"}).Validate(); err == nil {
		t.Error("negative amount should be rejected")
	}
	if err := (Expense{Amount: decimal.NewFromInt(5), Category: "gambling"}).Validate(); err == nil {
		t.Error("unknown category should be rejected")
	}
	if err := (Expense{Amount: decimal.NewFromInt(5), Category: "makanan_halal", RamadanMeal: "supper"}).Validate(); err == nil {
		t.Error("unknown ramadan meal should be rejected")
	}
}

func TestDonationValidate(t *testing.T) {
	if err := (Donation{Amount: decimal.NewFromInt(50)}).Validate(); err == nil {
		t.Error("donation without an organization should be rejected")
	}
	if err := (Donation{OrganizationID: "org-1", Amount: decimal.NewFromInt(50)}).Validate(); err != nil {
		t.Errorf("valid donation rejected: %v", err)
	}
}

func TestNewRecord(t *testing.T) {
	payload := Sedekah{Amount: decimal.NewFromInt(5)}

	rec, err := New("user-1", "2026-08-15", payload)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if rec.StableKey == "" {
		t.Error("expected a generated stable key")
	}
	if rec.Synced {
		t.Error("new record must start unsynced")
	}
	if rec.Kind() != KindSedekah {
		t.Errorf("kind = %v, want sedekah", rec.Kind())
	}

	other, err := New("user-1", "2026-08-15", payload)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if other.StableKey == rec.StableKey {
		t.Error("stable keys must be unique per record")
	}

	if _, err := New("", "2026-08-15", payload); err == nil {
		t.Error("missing owner should be rejected")
	}
	if _, err := New("user-1", "15/08/2026", payload); err == nil {
		t.Error("malformed date should be rejected")
	}
	if _, err := New("user-1", "2026-08-15", Sedekah{}); err == nil {
		t.Error("invalid payload should be rejected")
	}
}

func TestDecodePayloadDispatch(t *testing.T) {
	data, err := EncodePayload(Expense{Amount: decimal.RequireFromString("12.50"), Category: "hiburan"})
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	p, err := DecodePayload(KindExpense, data)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	exp, ok := p.(Expense)
	if !ok {
		t.Fatalf("decoded type = %T, want Expense", p)
	}
	if !exp.Amount.Equal(decimal.RequireFromString("12.50")) || exp.Category != "hiburan" {
		t.Errorf("decoded = %+v", exp)
	}

	if _, err := DecodePayload(Kind(99), data); err == nil {
		t.Error("unknown kind should fail to decode")
	}
	if _, err := DecodePayload(KindExpense, []byte("{not json")); err == nil {
		t.Error("malformed payload should fail to decode")
	}
}
