package platform

import (
	"fmt"
	"strings"
)

var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// NormalizeArch converts architecture spellings (GOARCH, uname -m) to the
// names used in release asset file names.
func NormalizeArch(arch string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	case "arm", "armv7", "armv7l", "armv6l":
		return "arm", nil
	case "386", "i386", "i686", "x86":
		return "386", nil
	case "":
		return "", fmt.Errorf("empty architecture")
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// CanonicalArch is NormalizeArch without the error: spellings it does not
// know come back lowercased so callers can still classify them as non-ARM.
func CanonicalArch(arch string) string {
	if normalized, err := NormalizeArch(arch); err == nil {
		return normalized
	}
	return strings.ToLower(strings.TrimSpace(arch))
}

// NormalizeOS maps OS spellings to GOOS values.
func NormalizeOS(osName string) string {
	switch n := strings.ToLower(strings.TrimSpace(osName)); n {
	case "macos", "osx", "mac":
		return "darwin"
	default:
		return n
	}
}

// IsARMArch reports whether a normalized architecture name is ARM.
func IsARMArch(arch string) bool {
	return arch == "arm64" || arch == "arm"
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
