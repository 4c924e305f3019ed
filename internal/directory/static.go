// Package directory resolves principal names to known accounts.
package directory

import (
	"context"
	"strings"
	"sync"

	"VestLedger/internal/asset"
)

// Static is an in-memory account set.
type Static struct {
	mu       sync.RWMutex
	accounts map[asset.Name]struct{}
}

// NewStatic creates a directory holding names.
func NewStatic(names ...asset.Name) *Static {
	d := &Static{accounts: make(map[asset.Name]struct{}, len(names))}
	for _, n := range names {
		d.accounts[n] = struct{}{}
	}
	return d
}

// Add registers name. Malformed names are ignored.
func (d *Static) Add(name asset.Name) {
	if !name.IsValid() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[name] = struct{}{}
}

func (d *Static) IsAccount(_ context.Context, name asset.Name) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.accounts[name]
	return ok, nil
}

// ParseList parses a comma-separated list of account names.
func ParseList(s string) ([]asset.Name, error) {
	var out []asset.Name
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := asset.ParseName(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
