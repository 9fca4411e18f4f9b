// Package binary downloads, verifies and installs the prebuilt gitai
// executable described by a release manifest.
//
// # Security Model
//
// A downloaded artifact is never placed on PATH before verification. The
// checks, any of which may apply to an artifact:
//   - SHA256 digest pinned in the manifest
//   - SHA256 digest listed in the release checksums.txt
//   - OpenPGP detached signature checked against a configured keyring
//
// Every check that is configured must pass. When none is available (for
// example the manifest still carries a PUT_SHA256_HERE placeholder) the
// install is refused unless AllowUnverified is set.
//
// # Install Sequence
//
//	mgr, err := binary.NewManager(binary.Config{Prefix: "/usr/local"})
//	if err != nil {
//	    return err
//	}
//	res, err := mgr.Install(ctx, binary.InstallOptions{
//	    Manifest: release.Default(),
//	})
//
// Install takes the install lock, resolves the artifact for the host,
// downloads and verifies it, journals the operation, backs up any existing
// binary, renames the new file into place with mode 0755 and writes an
// install receipt. A failure after the backup restores the previous binary.
// Recover finishes the rollback for an install that was interrupted.
//
// # Architecture
//
//   - Manager: orchestration, receipts, self-test and dependency checks
//   - Downloader: HTTP download with retry logic and caching
//   - Verifier: SHA256 and OpenPGP verification
//   - Extractor: raw file or tar.gz member selection
package binary
