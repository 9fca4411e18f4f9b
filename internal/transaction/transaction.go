// Package transaction keeps install operations recoverable: an exclusive
// lock file plus a JSON journal describing the binary being replaced and
// where its backup lives.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of an install.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

const journalPrefix = "txn-install-"

// InstallTxn is the journal entry for one install or update.
type InstallTxn struct {
	Version    int       `json:"version"` // journal schema version
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	State      State     `json:"state"`
	Release    string    `json:"release"`
	URL        string    `json:"url"`
	Target     string    `json:"target"`
	BackupPath string    `json:"backup_path,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// NewInstall starts a journal entry for installing release from url at target.
func NewInstall(target, release, url string) *InstallTxn {
	return &InstallTxn{
		Version:   1,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		State:     StatePending,
		Release:   release,
		URL:       url,
		Target:    target,
	}
}

// FileName is the journal file name for this transaction.
func (t *InstallTxn) FileName() string {
	return journalPrefix + t.ID + ".json"
}

// SetState records a state transition. A non-nil err is kept as LastError.
func (t *InstallTxn) SetState(state State, err error) {
	t.State = state
	if err != nil {
		t.LastError = err.Error()
	} else {
		t.LastError = ""
	}
}

// Save writes the transaction to disk atomically.
// Uses write-then-rename pattern for atomicity.
func (t *InstallTxn) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create transaction directory: %w", err)
	}

	finalPath := filepath.Join(dir, t.FileName())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary transaction file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename transaction file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// Remove deletes the journal file from dir.
func (t *InstallTxn) Remove(dir string) error {
	err := os.Remove(filepath.Join(dir, t.FileName()))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove transaction file: %w", err)
	}
	return nil
}

// Load reads a transaction from disk.
func Load(path string) (*InstallTxn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction file: %w", err)
	}

	var txn InstallTxn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	if txn.ID == "" {
		return nil, fmt.Errorf("transaction file %s has no id", path)
	}

	return &txn, nil
}

// LoadPending returns every journal in dir that did not reach
// StateCompleted, oldest first. A missing dir yields no transactions.
// Unreadable journals are skipped and reported in the returned error.
func LoadPending(dir string) ([]*InstallTxn, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transaction directory: %w", err)
	}

	var (
		pending []*InstallTxn
		errs    []error
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, journalPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		txn, err := Load(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if txn.State != StateCompleted {
			pending = append(pending, txn)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Timestamp.Before(pending[j].Timestamp)
	})

	return pending, errors.Join(errs...)
}
