package binary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ReceiptFileName is written next to the install state.
const ReceiptFileName = "INSTALL_RECEIPT.json"

// Receipt records what was installed and how it was verified.
type Receipt struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	URL          string    `json:"url"`
	SHA256       string    `json:"sha256"`
	Platform     string    `json:"platform"`
	Target       string    `json:"target"`
	Verification []string  `json:"verification"`
	InstalledAt  time.Time `json:"installed_at"`
}

func newReceipt(name, version, url, sha, platform, target string, methods []VerificationMethod) *Receipt {
	verification := make([]string, 0, len(methods))
	for _, m := range methods {
		verification = append(verification, m.String())
	}
	return &Receipt{
		ID:           uuid.New().String(),
		Name:         name,
		Version:      version,
		URL:          url,
		SHA256:       sha,
		Platform:     platform,
		Target:       target,
		Verification: verification,
		InstalledAt:  time.Now().UTC(),
	}
}

// WriteReceipt stores r at path via temp file and rename.
func WriteReceipt(path string, r *Receipt) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename receipt: %w", err)
	}
	return nil
}

// ReadReceipt loads a receipt written by WriteReceipt.
func ReadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	return &r, nil
}
