package release

import (
	"errors"
	"fmt"

	"github.com/xyue92/gitai/internal/platform"
)

var (
	// ErrUnsupportedPlatform is returned for operating systems other than
	// macOS and Linux.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrArtifactNotFound is returned when the manifest has no entry for a
	// supported platform.
	ErrArtifactNotFound = errors.New("no artifact for platform")
)

// Platform is the lookup key for an artifact: an operating system and whether
// the CPU is ARM.
type Platform struct {
	OS  string
	ARM bool
}

func (p Platform) String() string {
	cpu := "non-arm"
	if p.ARM {
		cpu = "arm"
	}
	return p.OS + "/" + cpu
}

// PlatformFor classifies an os/arch pair. Architectures that do not normalize
// to an ARM name are treated as non-ARM.
func PlatformFor(goos, arch string) (Platform, error) {
	goos = platform.NormalizeOS(goos)
	if goos != "darwin" && goos != "linux" {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
	return Platform{OS: goos, ARM: isARM(arch)}, nil
}

// Resolve returns the single artifact for the given os and arch.
func (m *Manifest) Resolve(goos, arch string) (Artifact, error) {
	p, err := PlatformFor(goos, arch)
	if err != nil {
		return Artifact{}, err
	}
	return m.Lookup(p)
}

// Lookup returns the artifact for p.
func (m *Manifest) Lookup(p Platform) (Artifact, error) {
	for _, a := range m.Artifacts {
		if a.OS == p.OS && isARM(a.Arch) == p.ARM {
			return a, nil
		}
	}
	return Artifact{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, p)
}

func isARM(arch string) bool {
	normalized, err := platform.NormalizeArch(arch)
	if err != nil {
		return false
	}
	return platform.IsARMArch(normalized)
}
