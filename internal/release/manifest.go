// Package release describes a gitai release: the four prebuilt artifacts
// (macOS/Linux, ARM/non-ARM), their checksums, the runtime dependency on a
// local Ollama server, the post-install self-test and the caveats shown to
// the user.
//
// The manifest is a fixed table. Resolve picks exactly one artifact for a
// host; there is no asset-name templating.
package release

import (
	"fmt"
	"strings"
)

const (
	// DefaultVersion is the release described by Default.
	DefaultVersion = "1.0.0"

	// Repository is the GitHub owner/name that publishes releases.
	Repository = "xyue92/gitai"

	// BinaryName is the installed file name.
	BinaryName = "gitai"

	placeholderPrefix = "PUT_SHA256_HERE"
)

// Caveats is printed after a successful install.
const Caveats = `GitAI has been installed!

Before using GitAI, make sure to:
1. Start Ollama: ollama serve
2. Pull an AI model: ollama pull qwen2.5-coder:7b

Get started:
  cd your-git-repository
  gitai commit

Configuration:
  gitai config --init
`

// Artifact is one prebuilt binary of a release.
type Artifact struct {
	OS     string `yaml:"os"`
	Arch   string `yaml:"arch"`
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256"`
}

// FileName is the last path element of the artifact URL.
func (a Artifact) FileName() string {
	if i := strings.LastIndex(a.URL, "/"); i >= 0 {
		return a.URL[i+1:]
	}
	return a.URL
}

// HasChecksum reports whether the artifact carries a real digest.
func (a Artifact) HasChecksum() bool {
	return a.SHA256 != "" && !PlaceholderChecksum(a.SHA256)
}

// SelfTest is the post-install smoke test: run the binary with Args and
// expect Contains in the combined output.
type SelfTest struct {
	Args     []string `yaml:"args"`
	Contains string   `yaml:"contains"`
}

// Manifest is the package descriptor for one release.
type Manifest struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Homepage    string     `yaml:"homepage"`
	Version     string     `yaml:"version"`
	Artifacts   []Artifact `yaml:"artifacts"`
	DependsOn   []string   `yaml:"depends_on"`
	Test        SelfTest   `yaml:"test"`
	Caveats     string     `yaml:"caveats"`
}

// Default returns the v1.0.0 manifest.
func Default() *Manifest {
	return &Manifest{
		Name:        BinaryName,
		Description: "AI-powered Git commit message generator using local Ollama models",
		Homepage:    "https://github.com/" + Repository,
		Version:     DefaultVersion,
		Artifacts: []Artifact{
			{OS: "darwin", Arch: "arm64", URL: DownloadURL(DefaultVersion, "darwin", "arm64"), SHA256: "PUT_SHA256_HERE_FOR_ARM64"},
			{OS: "darwin", Arch: "amd64", URL: DownloadURL(DefaultVersion, "darwin", "amd64"), SHA256: "PUT_SHA256_HERE_FOR_AMD64"},
			{OS: "linux", Arch: "arm64", URL: DownloadURL(DefaultVersion, "linux", "arm64"), SHA256: "PUT_SHA256_HERE_FOR_LINUX_ARM64"},
			{OS: "linux", Arch: "amd64", URL: DownloadURL(DefaultVersion, "linux", "amd64"), SHA256: "PUT_SHA256_HERE_FOR_LINUX_AMD64"},
		},
		DependsOn: []string{"ollama"},
		Test: SelfTest{
			Args:     []string{"--help"},
			Contains: "gitai",
		},
		Caveats: Caveats,
	}
}

// DownloadURL builds the GitHub release asset URL for a version and platform.
// The version may be given with or without the leading "v".
func DownloadURL(version, goos, arch string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/%s",
		Repository, Tag(version), AssetName(goos, arch))
}

// ChecksumsURL returns the URL of the checksums.txt published with a release.
func ChecksumsURL(version string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/checksums.txt", Repository, Tag(version))
}

// AssetName is the release file name for a platform, e.g. gitai-linux-arm64.
func AssetName(goos, arch string) string {
	name := fmt.Sprintf("%s-%s-%s", BinaryName, goos, arch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// Tag returns version with exactly one leading "v".
func Tag(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

// PlaceholderChecksum reports whether sum is an unfilled PUT_SHA256_HERE value.
func PlaceholderChecksum(sum string) bool {
	return strings.HasPrefix(strings.TrimSpace(sum), placeholderPrefix)
}
