package binary

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/xyue92/gitai/internal/release"
)

// Verifier handles cryptographic verification of downloaded artifacts
type Verifier struct {
	keyringPath string
	keyring     openpgp.EntityList

	// AllowUnverified lets VerifyFile succeed when no check applies.
	AllowUnverified bool
}

// NewVerifier creates a verifier. keyringPath may be empty, in which case
// signature checks fail.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{keyringPath: keyringPath}
}

// NewVerifierWithKeyring uses an already loaded keyring.
func NewVerifierWithKeyring(keyring openpgp.EntityList) *Verifier {
	return &Verifier{keyring: keyring}
}

// VerifyFile runs every check named in req. All of them must pass. With no
// applicable check the result is ErrUnverified unless AllowUnverified is set.
func (v *Verifier) VerifyFile(path string, req VerifyRequest) (*VerificationResult, error) {
	actual, err := calculateSHA256(path)
	if err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	result := &VerificationResult{SHA256: actual}

	if req.SignaturePath != "" {
		if err := v.VerifySignature(path, req.SignaturePath); err != nil {
			return nil, err
		}
		result.Methods = append(result.Methods, VerificationGPG)
	}

	if req.SHA256 != "" && !release.PlaceholderChecksum(req.SHA256) {
		if !strings.EqualFold(actual, strings.TrimSpace(req.SHA256)) {
			return nil, mismatch(actual, req.SHA256)
		}
		result.Methods = append(result.Methods, VerificationSHA256)
	}

	if req.ChecksumsPath != "" {
		name := req.FileName
		if name == "" {
			name = filepath.Base(path)
		}
		if err := v.VerifyChecksumFile(path, req.ChecksumsPath, name); err != nil {
			return nil, err
		}
		result.Methods = append(result.Methods, VerificationChecksumFile)
	}

	if len(result.Methods) == 0 {
		if !v.AllowUnverified {
			return nil, fmt.Errorf("%w: no checksum or signature available for %s", ErrUnverified, filepath.Base(path))
		}
		result.Methods = append(result.Methods, VerificationNone)
	}

	return result, nil
}

// VerifySHA256 compares the file digest with expected, ignoring case.
// A placeholder digest is treated as missing.
func (v *Verifier) VerifySHA256(path, expected string) error {
	if expected == "" || release.PlaceholderChecksum(expected) {
		return fmt.Errorf("%w: no checksum for %s", ErrUnverified, filepath.Base(path))
	}

	actual, err := calculateSHA256(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return mismatch(actual, expected)
	}
	return nil
}

// VerifyChecksumFile looks name up in a checksums.txt and compares digests.
func (v *Verifier) VerifyChecksumFile(path, checksumsPath, name string) error {
	expected, err := findChecksum(checksumsPath, name)
	if err != nil {
		return fmt.Errorf("find checksum: %w", err)
	}
	return v.VerifySHA256(path, expected)
}

// VerifySignature checks an armored or binary detached OpenPGP signature.
func (v *Verifier) VerifySignature(path, signaturePath string) error {
	keyring, err := v.loadKeyring()
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	binaryFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer binaryFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, binaryFile, sigFile, nil)
	if err != nil {
		binaryFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, binaryFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

func (v *Verifier) loadKeyring() (openpgp.EntityList, error) {
	if v.keyring != nil {
		return v.keyring, nil
	}
	if v.keyringPath == "" {
		return nil, fmt.Errorf("no keyring configured")
	}

	keyring, err := LoadKeyring(v.keyringPath)
	if err != nil {
		return nil, err
	}
	v.keyring = keyring
	return keyring, nil
}

func mismatch(actual, expected string) error {
	return fmt.Errorf("%w:\nactual:   %s\nexpected: %s", ErrChecksumMismatch, actual, expected)
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for a specific filename in a checksum file
// Format: "abc123def456  gitai-linux-amd64" (a leading '*' marks binary mode)
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		checksumFilename := strings.TrimPrefix(parts[1], "*")
		if checksumFilename == filename || filepath.Base(checksumFilename) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}
