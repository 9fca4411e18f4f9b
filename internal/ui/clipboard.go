package ui

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported reports that no clipboard utility is available.
var ErrClipboardUnsupported = errors.New("clipboard not supported on this system")

var (
	clipboardWrite       = clipboard.WriteAll
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboardUnsupported() {
		return ErrClipboardUnsupported
	}
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
