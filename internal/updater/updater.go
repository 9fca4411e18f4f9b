// Package updater replaces the running gitai binary with the latest GitHub
// release.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/xyue92/gitai/internal/binary"
	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/platform"
	"github.com/xyue92/gitai/internal/release"
)

const (
	// DefaultAPIURL is the latest-release endpoint of the GitHub API.
	DefaultAPIURL = "https://api.github.com/repos/" + release.Repository + "/releases/latest"

	// DefaultDownloadBase is the prefix of release asset URLs.
	DefaultDownloadBase = "https://github.com/" + release.Repository + "/releases/download"

	apiTimeout     = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 8 * time.Second
)

// ErrRateLimited is returned when the GitHub API quota is exhausted.
var ErrRateLimited = errors.New("GitHub API rate limit exceeded")

// Release is the subset of the GitHub release payload gitai uses.
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// Version is the tag without its leading "v".
func (r *Release) Version() string {
	return release.Tag(r.TagName)[1:]
}

// Updater checks for and installs new releases.
type Updater struct {
	CurrentVersion string

	// APIURL and DownloadBase default to the public GitHub endpoints.
	APIURL       string
	DownloadBase string

	// Target is the binary to replace. Defaults to the running executable
	// with symlinks resolved.
	Target string
	// StateDir holds the update lock, journal and download cache. Defaults
	// to the user cache directory.
	StateDir string

	// CheckSignature additionally requires <asset>.sig to verify against
	// the keyring at KeyringPath.
	CheckSignature bool
	KeyringPath    string

	Detector platform.Detector
	Client   *http.Client
	Logger   logging.Logger

	backoff func(attempt int) time.Duration
}

// New creates an Updater for the running version.
func New(currentVersion string, logger logging.Logger) *Updater {
	return &Updater{
		CurrentVersion: currentVersion,
		APIURL:         DefaultAPIURL,
		DownloadBase:   DefaultDownloadBase,
		Client:         &http.Client{Timeout: apiTimeout},
		Logger:         logging.OrNop(logger),
	}
}

// CheckForUpdate fetches the latest release and reports whether it is newer
// than CurrentVersion.
func (u *Updater) CheckForUpdate(ctx context.Context) (*Release, bool, error) {
	rel, err := u.latest(ctx)
	if err != nil {
		return nil, false, err
	}
	return rel, NeedsUpdate(u.CurrentVersion, rel.TagName), nil
}

// NeedsUpdate reports whether latest should replace current. Development
// builds always update. Versions that do not parse compare by equality.
func NeedsUpdate(current, latest string) bool {
	if current == "" || current == "dev" {
		return true
	}
	cur, err1 := version.NewVersion(current)
	lat, err2 := version.NewVersion(latest)
	if err1 != nil || err2 != nil {
		return release.Tag(current) != release.Tag(latest)
	}
	return lat.GreaterThan(cur)
}

func (u *Updater) latest(ctx context.Context) (*Release, error) {
	resp, err := u.getWithRetry(ctx, u.apiURL())
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GitHub API returned status %d: %s", resp.StatusCode, body)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("parse release info: %w", err)
	}
	if rel.TagName == "" {
		return nil, errors.New("parse release info: missing tag_name")
	}
	return &rel, nil
}

func (u *Updater) getWithRetry(ctx context.Context, url string) (*http.Response, error) {
	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: apiTimeout}
	}
	backoff := u.backoff
	if backoff == nil {
		backoff = defaultBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("User-Agent", release.BinaryName+"/"+u.CurrentVersion)

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			u.logger().Debug("release check failed", "attempt", attempt+1, "error", err)
			continue
		}

		if err := checkRateLimit(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt == maxRetries {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}
	return nil, lastErr
}

func checkRateLimit(resp *http.Response) error {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || remaining > 0 {
		return nil
	}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		return fmt.Errorf("%w, resets at %s", ErrRateLimited, time.Unix(reset, 0).Format(time.RFC3339))
	}
	return ErrRateLimited
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func defaultBackoff(attempt int) time.Duration {
	d := initialBackoff << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Update installs the release tagged tag over Target. The download is
// verified against the release checksums.txt and the previous binary is
// restored if replacing it fails.
func (u *Updater) Update(ctx context.Context, tag string) (*binary.InstallResult, error) {
	target, err := u.target()
	if err != nil {
		return nil, err
	}
	stateDir, err := u.stateDir()
	if err != nil {
		return nil, err
	}

	detector := u.Detector
	if detector == nil {
		detector = platform.NewDetector()
	}

	mgr, err := binary.NewManager(binary.Config{
		Target:      target,
		StateDir:    stateDir,
		KeyringPath: u.KeyringPath,
		Detector:    detector,
		Logger:      u.logger(),
	})
	if err != nil {
		return nil, err
	}

	if n, err := mgr.Recover(ctx); err != nil {
		u.logger().Warn("recover interrupted update", "error", err)
	} else if n > 0 {
		u.logger().Info("recovered interrupted update", "count", n)
	}

	opts := binary.InstallOptions{
		Manifest:     u.Manifest(tag),
		ChecksumsURL: u.assetURL(tag, "checksums.txt"),
	}
	if u.CheckSignature {
		info, err := detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect platform: %w", err)
		}
		opts.SignatureURL = u.assetURL(tag, release.AssetName(info.OS, info.Arch)+".sig")
	}

	result, err := mgr.Install(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("update to %s: %w", release.Tag(tag), err)
	}
	return result, nil
}

// Manifest describes release tag with artifact URLs under DownloadBase.
func (u *Updater) Manifest(tag string) *release.Manifest {
	m := release.Default().WithVersion(tag)
	for i, a := range m.Artifacts {
		m.Artifacts[i].URL = u.assetURL(tag, release.AssetName(a.OS, a.Arch))
	}
	return m
}

func (u *Updater) assetURL(tag, name string) string {
	base := u.DownloadBase
	if base == "" {
		base = DefaultDownloadBase
	}
	return base + "/" + release.Tag(tag) + "/" + name
}

func (u *Updater) apiURL() string {
	if u.APIURL == "" {
		return DefaultAPIURL
	}
	return u.APIURL
}

func (u *Updater) target() (string, error) {
	if u.Target != "" {
		return u.Target, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate current executable: %w", err)
	}
	// Homebrew installs gitai as a symlink into the Cellar
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	return exe, nil
}

func (u *Updater) stateDir() (string, error) {
	if u.StateDir != "" {
		return u.StateDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w", err)
	}
	return filepath.Join(dir, release.BinaryName, "update"), nil
}

func (u *Updater) logger() logging.Logger {
	return logging.OrNop(u.Logger)
}
