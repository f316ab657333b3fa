package model

import (
	"testing"
)

func TestInvoiceShapeKey(t *testing.T) {
	tests := []struct {
		name    string
		invoice Invoice
		want    string
	}{
		{
			name: "medium amount with line items",
			invoice: Invoice{
				ID:           "inv-1",
				VendorName:   "Acme Corp",
				Amount:       250.00,
				RawFields:    map[string]string{"a": "1", "b": "2"},
				HasLineItems: true,
			},
			want: "vendor=acme corp|amount=medium|fields=2|lineitems=true",
		},
		{
			name: "vendor name is trimmed and lowercased",
			invoice: Invoice{
				ID:         "inv-2",
				VendorName: "  Acme Corp  ",
				Amount:     50,
			},
			want: "vendor=acme corp|amount=small|fields=0|lineitems=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invoice.ShapeKey(); got != tt.want {
				t.Errorf("ShapeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAmountBucket(t *testing.T) {
	tests := []struct {
		want   string
		amount float64
	}{
		{"small", 0},
		{"small", 99.99},
		{"medium", 100},
		{"medium", 999.99},
		{"large", 1000},
		{"large", 9999.99},
		{"xlarge", 10000},
		{"xlarge", 1000000},
	}

	for _, tt := range tests {
		if got := AmountBucket(tt.amount); got != tt.want {
			t.Errorf("AmountBucket(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestInvoiceFieldNamesSorted(t *testing.T) {
	invoice := Invoice{
		RawFields: map[string]string{
			"zebra":  "1",
			"apple":  "2",
			"mango":  "3",
			"banana": "4",
		},
	}

	names := invoice.FieldNames()
	want := []string{"apple", "banana", "mango", "zebra"}

	if len(names) != len(want) {
		t.Fatalf("FieldNames() returned %d names, want %d", len(names), len(want))
	}
	for i, name := range names {
		if name != want[i] {
			t.Errorf("FieldNames()[%d] = %q, want %q", i, name, want[i])
		}
	}
}

func TestInvoiceValidate(t *testing.T) {
	tests := []struct {
		name    string
		invoice Invoice
		wantErr bool
	}{
		{"valid", Invoice{ID: "inv-1", VendorName: "Acme", Amount: 10}, false},
		{"missing id", Invoice{VendorName: "Acme"}, true},
		{"missing vendor", Invoice{ID: "inv-1"}, true},
		{"negative amount", Invoice{ID: "inv-1", VendorName: "Acme", Amount: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invoice.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
