// Package balancetracker keeps the owner's last observed view of a
// confidential account on disk, so a wallet can notice a ledger that moved
// backwards or a file that belongs to another account.
package balancetracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type State struct {
	Account        string `json:"account"`
	Mint           string `json:"mint"`
	Available      uint64 `json:"available"`
	Public         uint64 `json:"public"`
	PendingCredits uint64 `json:"pendingCredits"`
	// Transactions is the ledger transaction count at observation time.
	Transactions uint64 `json:"transactions"`
	UpdatedAt    string `json:"updatedAt"`
}

// Path returns the tracker file of account below dir.
func Path(dir, account string) string {
	return filepath.Join(dir, "trackers", account+".json")
}

// Load reads a tracker file. A missing file yields a nil state.
func Load(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tracker state: %w", err)
	}
	return &out, nil
}

// Validate checks that curr can follow prev.
func Validate(prev *State, curr State, allowRollback bool) error {
	if prev == nil {
		return nil
	}
	if prev.Account != "" && prev.Account != curr.Account {
		return fmt.Errorf("tracker account mismatch: file=%s ledger=%s", prev.Account, curr.Account)
	}
	if prev.Mint != "" && prev.Mint != curr.Mint {
		return fmt.Errorf("tracker mint mismatch: file=%s ledger=%s", prev.Mint, curr.Mint)
	}
	if curr.Transactions < prev.Transactions && !allowRollback {
		return fmt.Errorf("ledger moved backward %d -> %d transactions (use --accept-rollback to accept)", prev.Transactions, curr.Transactions)
	}
	return nil
}

// Save writes curr atomically.
func Save(path string, curr State) error {
	curr.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.MarshalIndent(curr, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
