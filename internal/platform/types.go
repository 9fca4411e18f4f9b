// Package platform detects the host operating system and CPU architecture.
//
// The detected Info drives two things in gitai: picking the release artifact
// that matches the machine (macOS/Linux, ARM/non-ARM) and exposing a
// read-only platform table to Lua configuration files. Linux distribution
// details come from gopsutil and degrade gracefully when unavailable.
package platform

import "context"

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // normalized: "amd64", "arm64", "arm", "386"
	ArchRaw  string // value reported by the runtime
	Platform string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical family (e.g., "debian")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information, or nil off Linux or when detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsARM reports whether the CPU belongs to the ARM family (arm64 or 32-bit arm).
// Release artifacts are split on this predicate only.
func (i *Info) IsARM() bool {
	return IsARMArch(i.Arch)
}

// IsAppleSilicon returns true if running on macOS with an arm64 CPU.
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// String renders the pair as "os/arch".
func (i *Info) String() string {
	return i.OS + "/" + i.Arch
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It is used to force a target platform
// (for example when rendering or installing for another machine) and in tests.
type StaticDetector struct {
	Info *Info
	Err  error
}

// Detect returns the configured Info and error.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Info, s.Err
}
