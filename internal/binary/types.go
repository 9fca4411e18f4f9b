package binary

import (
	"errors"
	"time"

	"github.com/xyue92/gitai/internal/release"
)

var (
	// ErrChecksumMismatch means a downloaded file does not match its digest.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnverified means no verification method was available for an
	// artifact and unverified installs were not allowed.
	ErrUnverified = errors.New("artifact cannot be verified")

	// ErrNotInstalled is returned when the binary is absent.
	ErrNotInstalled = errors.New("gitai is not installed")

	// ErrSelfTestFailed is returned when the installed binary does not
	// produce the expected output.
	ErrSelfTestFailed = errors.New("self-test failed")
)

// VerificationMethod indicates how a binary was verified
type VerificationMethod int

const (
	// VerificationNone indicates the artifact was installed unverified
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 indicates the digest pinned in the manifest matched
	VerificationSHA256
	// VerificationChecksumFile indicates the digest in checksums.txt matched
	VerificationChecksumFile
	// VerificationGPG indicates an OpenPGP detached signature was verified
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationNone:
		return "none"
	case VerificationSHA256:
		return "sha256"
	case VerificationChecksumFile:
		return "checksums.txt"
	case VerificationGPG:
		return "gpg"
	default:
		return "unknown"
	}
}

// VerifyRequest lists the checks to run against a downloaded file.
// Empty fields are skipped.
type VerifyRequest struct {
	// FileName is looked up in the checksums file.
	FileName      string
	SHA256        string
	ChecksumsPath string
	SignaturePath string
}

// VerificationResult contains the outcome of a successful verification.
type VerificationResult struct {
	Methods []VerificationMethod
	// SHA256 is the digest computed from the file.
	SHA256 string
}

// Verified reports whether at least one real check passed.
func (r *VerificationResult) Verified() bool {
	for _, m := range r.Methods {
		if m != VerificationNone {
			return true
		}
	}
	return false
}

// InstallOptions configures Manager.Install.
type InstallOptions struct {
	// Manifest describes the release. Defaults to release.Default().
	Manifest *release.Manifest
	// ChecksumsURL points at a checksums.txt to verify against.
	ChecksumsURL string
	// SignatureURL points at a detached signature for the artifact.
	SignatureURL string
	// AllowUnverified permits installing when no check is available.
	AllowUnverified bool
}

// InstallResult describes a completed install.
type InstallResult struct {
	Target   string
	Artifact release.Artifact
	Verified VerificationResult
	Receipt  *Receipt
	Duration time.Duration
	// Replaced is true when an existing binary was overwritten.
	Replaced bool
}
