// Package app wires together configuration and the local store into a
// single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/trafficast/trafficast/internal/config"
	"github.com/trafficast/trafficast/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until RequireStore is called, so commands that never touch
// the database (config, version) don't create one.
type Deps struct {
	Config *config.Config
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	return &Deps{Config: cfg}
}

// RequireStore opens the database at the configured path if not already open.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	st, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	d.Store = st
	return nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
