package binary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/platform"
	"github.com/xyue92/gitai/internal/release"
	"github.com/xyue92/gitai/internal/transaction"
)

const (
	backupSuffix = ".backup"
	stagedSuffix = ".new"
)

// Manager orchestrates download, verification, and installation of gitai
type Manager struct {
	target     string
	stateDir   string
	detector   platform.Detector
	downloader *Downloader
	verifier   *Verifier
	logger     logging.Logger
	lookPath   func(string) (string, error)
}

// Config holds configuration for the binary manager
type Config struct {
	// Prefix is the install root; the binary goes to <Prefix>/bin/gitai.
	Prefix string
	// Target overrides the binary path, e.g. the running executable during
	// a self-update.
	Target string
	// StateDir holds the lock, journal, receipt and download cache.
	// Defaults to <Prefix>/var/gitai, or next to Target.
	StateDir string
	// CacheDir defaults to <StateDir>/cache/downloads.
	CacheDir string
	// KeyringPath is an OpenPGP public keyring used for signature checks.
	KeyringPath string
	// Detector defaults to the host detector.
	Detector platform.Detector
	Logger   logging.Logger
}

// NewManager creates a new binary manager
func NewManager(config Config) (*Manager, error) {
	target := config.Target
	if target == "" {
		if config.Prefix == "" {
			return nil, fmt.Errorf("prefix or target is required")
		}
		target = filepath.Join(config.Prefix, "bin", release.BinaryName)
	}

	stateDir := config.StateDir
	if stateDir == "" {
		if config.Prefix != "" {
			stateDir = filepath.Join(config.Prefix, "var", release.BinaryName)
		} else {
			stateDir = filepath.Join(filepath.Dir(target), "."+release.BinaryName)
		}
	}

	cacheDir := config.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(stateDir, "cache", "downloads")
	}

	detector := config.Detector
	if detector == nil {
		detector = platform.NewDetector()
	}

	return &Manager{
		target:     target,
		stateDir:   stateDir,
		detector:   detector,
		downloader: NewDownloader(cacheDir),
		verifier:   NewVerifier(config.KeyringPath),
		logger:     logging.OrNop(config.Logger),
		lookPath:   exec.LookPath,
	}, nil
}

// Target returns the install path of the binary.
func (m *Manager) Target() string {
	return m.target
}

// StateDir returns the directory holding the lock, journal and receipt.
func (m *Manager) StateDir() string {
	return m.stateDir
}

// ReceiptPath returns the location of INSTALL_RECEIPT.json.
func (m *Manager) ReceiptPath() string {
	return filepath.Join(m.stateDir, ReceiptFileName)
}

// IsInstalled checks if the binary is present and executable
func (m *Manager) IsInstalled() (bool, error) {
	info, err := os.Stat(m.target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat binary: %w", err)
	}

	if !info.Mode().IsRegular() {
		return false, nil
	}

	if info.Mode().Perm()&0111 == 0 {
		return false, nil
	}

	return true, nil
}

// Receipt reads the receipt of the current install.
func (m *Manager) Receipt() (*Receipt, error) {
	return ReadReceipt(m.ReceiptPath())
}

// Install downloads, verifies and installs the artifact for this host.
// An existing binary is replaced and restored if any later step fails.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	start := time.Now()

	manifest := opts.Manifest
	if manifest == nil {
		manifest = release.Default()
	}

	lock, err := transaction.AcquireLock(ctx, m.stateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	info, err := m.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	artifact, err := manifest.Resolve(info.OS, info.Arch)
	if err != nil {
		return nil, err
	}
	m.logger.Info("resolved artifact", "platform", info.String(), "url", artifact.URL)

	artifactPath, verified, err := m.fetchVerified(ctx, manifest, artifact, opts)
	if err != nil {
		return nil, err
	}
	if !verified.Verified() {
		m.logger.Warn("installing unverified artifact", "url", artifact.URL, "sha256", verified.SHA256)
	}

	txn := transaction.NewInstall(m.target, manifest.Version, artifact.URL)
	if err := txn.Save(m.stateDir); err != nil {
		return nil, fmt.Errorf("journal install: %w", err)
	}

	replaced, err := m.place(txn, NewExtractor(manifest.Name), artifactPath)
	if err != nil {
		return nil, err
	}

	receipt := newReceipt(manifest.Name, manifest.Version, artifact.URL, verified.SHA256, info.String(), m.target, verified.Methods)
	if err := WriteReceipt(m.ReceiptPath(), receipt); err != nil {
		m.rollback(txn, err)
		return nil, err
	}

	m.finish(txn)

	m.logger.Info("installed", "target", m.target, "version", manifest.Version, "replaced", replaced)

	return &InstallResult{
		Target:   m.target,
		Artifact: artifact,
		Verified: *verified,
		Receipt:  receipt,
		Duration: time.Since(start),
		Replaced: replaced,
	}, nil
}

func (m *Manager) fetchVerified(ctx context.Context, manifest *release.Manifest, artifact release.Artifact, opts InstallOptions) (string, *VerificationResult, error) {
	path, err := m.downloader.Download(ctx, manifest.Name, manifest.Version, artifact.URL)
	if err != nil {
		return "", nil, err
	}

	req := VerifyRequest{
		FileName: artifact.FileName(),
		SHA256:   artifact.SHA256,
	}

	if opts.ChecksumsURL != "" {
		req.ChecksumsPath, err = m.downloader.Download(ctx, manifest.Name, manifest.Version, opts.ChecksumsURL)
		if err != nil {
			return "", nil, fmt.Errorf("download checksums: %w", err)
		}
	}

	if opts.SignatureURL != "" {
		req.SignaturePath, err = m.downloader.Download(ctx, manifest.Name, manifest.Version, opts.SignatureURL)
		if err != nil {
			return "", nil, fmt.Errorf("download signature: %w", err)
		}
	}

	verifier := *m.verifier
	verifier.AllowUnverified = opts.AllowUnverified

	result, err := verifier.VerifyFile(path, req)
	if err != nil {
		// never reuse a file that failed verification
		m.downloader.Evict(manifest.Name, manifest.Version, artifact.URL)
		if opts.ChecksumsURL != "" {
			m.downloader.Evict(manifest.Name, manifest.Version, opts.ChecksumsURL)
		}
		return "", nil, fmt.Errorf("verify %s: %w", artifact.FileName(), err)
	}

	m.logger.Debug("verified artifact", "sha256", result.SHA256, "methods", fmt.Sprint(result.Methods))
	return path, result, nil
}

// place stages the executable next to the target, moves any existing binary
// aside and renames the staged file into place.
func (m *Manager) place(txn *transaction.InstallTxn, extractor *Extractor, artifactPath string) (bool, error) {
	staged := m.target + stagedSuffix
	if err := extractor.Extract(artifactPath, staged); err != nil {
		os.Remove(staged)
		txn.Remove(m.stateDir)
		return false, fmt.Errorf("stage binary: %w", err)
	}

	replaced := false
	if _, err := os.Lstat(m.target); err == nil {
		txn.BackupPath = m.target + backupSuffix
		replaced = true
	}
	txn.SetState(transaction.StateInProgress, nil)
	if err := txn.Save(m.stateDir); err != nil {
		os.Remove(staged)
		return false, fmt.Errorf("journal install: %w", err)
	}

	if replaced {
		if err := os.Rename(m.target, txn.BackupPath); err != nil {
			os.Remove(staged)
			txn.Remove(m.stateDir)
			return false, fmt.Errorf("back up existing binary: %w", err)
		}
	}

	if err := os.Rename(staged, m.target); err != nil {
		os.Remove(staged)
		m.rollback(txn, err)
		return false, fmt.Errorf("install binary: %w", err)
	}

	return replaced, nil
}

// rollback restores the backup recorded in txn, or removes a fresh install.
func (m *Manager) rollback(txn *transaction.InstallTxn, cause error) {
	if txn.BackupPath != "" {
		if err := os.Rename(txn.BackupPath, txn.Target); err != nil {
			m.logger.Error("restore backup failed", "backup", txn.BackupPath, "error", err)
			m.fail(txn, errors.Join(cause, err))
			return
		}
	} else {
		os.Remove(txn.Target)
	}
	m.logger.Warn("install rolled back", "target", txn.Target, "error", cause)
	m.fail(txn, cause)
	// the journal is only needed while a backup is outstanding
	txn.Remove(m.stateDir)
}

func (m *Manager) fail(txn *transaction.InstallTxn, err error) {
	txn.SetState(transaction.StateFailed, err)
	if saveErr := txn.Save(m.stateDir); saveErr != nil {
		m.logger.Error("journal update failed", "id", txn.ID, "error", saveErr)
	}
}

func (m *Manager) finish(txn *transaction.InstallTxn) {
	if txn.BackupPath != "" {
		if err := os.Remove(txn.BackupPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("remove backup failed", "backup", txn.BackupPath, "error", err)
		}
	}
	txn.SetState(transaction.StateCompleted, nil)
	if err := txn.Remove(m.stateDir); err != nil {
		m.logger.Warn("remove journal failed", "id", txn.ID, "error", err)
	}
}

// Recover rolls back installs that were interrupted, restoring their
// backups. It returns the number of journals handled.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	lock, err := transaction.AcquireLock(ctx, m.stateDir)
	if err != nil {
		return 0, err
	}
	defer lock.Release()

	pending, loadErr := transaction.LoadPending(m.stateDir)

	handled := 0
	var errs []error
	for _, txn := range pending {
		os.Remove(txn.Target + stagedSuffix)

		if txn.BackupPath != "" {
			if _, err := os.Stat(txn.BackupPath); err == nil {
				if err := os.Rename(txn.BackupPath, txn.Target); err != nil {
					errs = append(errs, fmt.Errorf("restore %s: %w", txn.Target, err))
					continue
				}
				m.logger.Info("restored previous binary", "target", txn.Target, "id", txn.ID)
			}
		}

		if err := txn.Remove(m.stateDir); err != nil {
			errs = append(errs, err)
			continue
		}
		handled++
	}

	if loadErr != nil {
		errs = append(errs, loadErr)
	}
	return handled, errors.Join(errs...)
}

// Uninstall removes the binary and its receipt.
func (m *Manager) Uninstall(ctx context.Context) error {
	lock, err := transaction.AcquireLock(ctx, m.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := os.Remove(m.target); err != nil {
		if os.IsNotExist(err) {
			return ErrNotInstalled
		}
		return fmt.Errorf("remove binary: %w", err)
	}

	if err := os.Remove(m.ReceiptPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove receipt: %w", err)
	}

	m.logger.Info("uninstalled", "target", m.target)
	return nil
}

// SelfTest runs the installed binary with the manifest test arguments and
// checks the output for the expected text.
func (m *Manager) SelfTest(ctx context.Context, manifest *release.Manifest) error {
	if manifest == nil {
		manifest = release.Default()
	}

	args := manifest.Test.Args
	if len(args) == 0 {
		args = []string{"--help"}
	}

	cmd := exec.CommandContext(ctx, m.target, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrSelfTestFailed, m.target, strings.Join(args, " "), err)
	}

	if !strings.Contains(string(out), manifest.Test.Contains) {
		return fmt.Errorf("%w: output of %s %s does not contain %q",
			ErrSelfTestFailed, filepath.Base(m.target), strings.Join(args, " "), manifest.Test.Contains)
	}
	return nil
}

// CheckDependencies returns the declared runtime dependencies that are not
// on PATH. Missing dependencies do not block an install.
func (m *Manager) CheckDependencies(manifest *release.Manifest) []string {
	if manifest == nil {
		manifest = release.Default()
	}

	var missing []string
	for _, dep := range manifest.DependsOn {
		if _, err := m.lookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}
	return missing
}
