package core

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// Platform selects the operating-system username convention the validator enforces.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformMacOS
)

var usernamePatterns = map[Platform]*regexp.Regexp{
	PlatformLinux:   regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`),
	PlatformWindows: regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]{0,19}$`),
	PlatformMacOS:   regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]{0,30}$`),
}

// HostPlatform returns the platform the binary is running on.
// Anything that is neither Windows nor macOS uses the Unix rules.
func HostPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	default:
		return PlatformLinux
	}
}

// ParsePlatform parses a configured platform name. "auto" and "" resolve to HostPlatform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HostPlatform(), nil
	case "linux", "unix":
		return PlatformLinux, nil
	case "windows":
		return PlatformWindows, nil
	case "macos", "darwin", "osx":
		return PlatformMacOS, nil
	default:
		return 0, fmt.Errorf("unknown platform %q", s)
	}
}

func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "Linux"
	case PlatformWindows:
		return "Windows"
	case PlatformMacOS:
		return "MacOS"
	default:
		return fmt.Sprintf("Platform(%d)", int(p))
	}
}

// ValidUsername reports whether name satisfies the platform's username syntax.
func (p Platform) ValidUsername(name string) bool {
	re, ok := usernamePatterns[p]
	if !ok {
		return false
	}
	return re.MatchString(name)
}
