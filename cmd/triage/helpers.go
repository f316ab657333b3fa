package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/marwick/invoice-triage/internal/config"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/storage"
)

// openStore opens the pattern store at the configured path and ensures the
// schema is current.
func openStore(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate pattern store: %w", err)
	}

	return store, nil
}

// invoiceFile is the on-disk JSON shape of a document to process.
type invoiceFile struct {
	Fields       map[string]string `json:"fields"`
	ID           string            `json:"id"`
	VendorName   string            `json:"vendorName"`
	Amount       float64           `json:"amount"`
	HasLineItems bool              `json:"hasLineItems"`
}

// loadInvoice reads one invoice from a JSON file.
func loadInvoice(path string) (*model.Invoice, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file invoiceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	invoice := &model.Invoice{
		ID:           file.ID,
		VendorName:   file.VendorName,
		Amount:       file.Amount,
		RawFields:    file.Fields,
		HasLineItems: file.HasLineItems,
	}
	if err := invoice.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice in %s: %w", path, err)
	}

	return invoice, nil
}
