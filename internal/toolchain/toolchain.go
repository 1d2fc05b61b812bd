// Package toolchain holds the rules for Rust toolchain names and targets.
package toolchain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/conn-castle/release-rust/internal/messages"
)

// Channel names.
const (
	Stable  = "stable"
	Nightly = "nightly"
)

var (
	nightlyDatePattern = regexp.MustCompile(`^nightly-(\d{4}-\d{2}-\d{2})$`)
	versionPattern     = regexp.MustCompile(`^1\.\d+(\.\d+)?$`)
)

// buildStdSince is the first nightly that ships rust-src usable with -Z build-std.
var buildStdSince = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// buildStdTargets are the targets where rebuilding std is supported.
var buildStdTargets = []string{
	"x86_64-apple-darwin",
	"aarch64-apple-darwin",
	"x86_64-unknown-linux-gnu",
	"armv7-unknown-linux-gnueabihf",
	"aarch64-unknown-linux-gnu",
	"x86_64-unknown-linux-musl",
	"armv7-unknown-linux-musleabihf",
	"aarch64-unknown-linux-musl",
	"x86_64-pc-windows-msvc",
	"aarch64-pc-windows-msvc",
}

// crossTargets are the targets cross can build from a Linux host.
var crossTargets = []string{
	"aarch64-linux-android",
	"aarch64-unknown-linux-gnu",
	"aarch64-unknown-linux-musl",
	"arm-linux-androideabi",
	"arm-unknown-linux-gnueabi",
	"arm-unknown-linux-gnueabihf",
	"arm-unknown-linux-musleabi",
	"arm-unknown-linux-musleabihf",
	"armv5te-unknown-linux-gnueabi",
	"armv5te-unknown-linux-musleabi",
	"armv7-linux-androideabi",
	"armv7-unknown-linux-gnueabihf",
	"armv7-unknown-linux-musleabihf",
	"i586-unknown-linux-gnu",
	"i586-unknown-linux-musl",
	"i686-linux-android",
	"i686-pc-windows-gnu",
	"i686-unknown-freebsd",
	"i686-unknown-linux-gnu",
	"i686-unknown-linux-musl",
	"mips-unknown-linux-gnu",
	"mips-unknown-linux-musl",
	"mips64-unknown-linux-gnuabi64",
	"mips64el-unknown-linux-gnuabi64",
	"mipsel-unknown-linux-gnu",
	"mipsel-unknown-linux-musl",
	"powerpc-unknown-linux-gnu",
	"powerpc64-unknown-linux-gnu",
	"powerpc64le-unknown-linux-gnu",
	"riscv64gc-unknown-linux-gnu",
	"s390x-unknown-linux-gnu",
	"sparc64-unknown-linux-gnu",
	"thumbv7neon-linux-androideabi",
	"thumbv7neon-unknown-linux-gnueabihf",
	"wasm32-unknown-emscripten",
	"x86_64-linux-android",
	"x86_64-pc-windows-gnu",
	"x86_64-unknown-freebsd",
	"x86_64-unknown-linux-gnu",
	"x86_64-unknown-linux-musl",
	"x86_64-unknown-netbsd",
}

// Validate checks a toolchain name: stable, nightly, nightly-YYYY-MM-DD or 1.x[.y].
func Validate(name string) error {
	switch {
	case name == Stable || name == Nightly:
		return nil
	case versionPattern.MatchString(name):
		if _, err := semver.NewVersion(name); err != nil {
			return fmt.Errorf(messages.ToolchainInvalidFmt, name)
		}
		return nil
	case nightlyDatePattern.MatchString(name):
		if _, _, err := NightlyDate(name, time.Time{}); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf(messages.ToolchainInvalidFmt, name)
	}
}

// NightlyDate returns the date of a nightly toolchain. ok is false for
// stable and versioned toolchains; plain "nightly" is dated now.
func NightlyDate(name string, now time.Time) (date time.Time, ok bool, err error) {
	switch {
	case name == Stable || versionPattern.MatchString(name):
		return time.Time{}, false, nil
	case name == Nightly:
		return now, true, nil
	}
	m := nightlyDatePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false, fmt.Errorf(messages.ToolchainInvalidFmt, name)
	}
	d, err := time.Parse(time.DateOnly, m[1])
	if err != nil {
		return time.Time{}, false, fmt.Errorf(messages.ToolchainInvalidFmt, name)
	}
	return d, true, nil
}

// BuildStd reports whether -Z build-std may be used: it was requested, the
// toolchain is a recent enough nightly, and the target is supported.
func BuildStd(requested bool, name, target string, now time.Time) (bool, error) {
	if !requested {
		return false, nil
	}
	date, ok, err := NightlyDate(name, now)
	if err != nil {
		return false, err
	}
	if !ok || date.Before(buildStdSince) {
		return false, nil
	}
	return slices.Contains(buildStdTargets, target), nil
}

// HostTarget returns the target triple of the build host. runnerOS is the
// CI runner OS name (Linux, macOS, Windows); when empty goos and goarch decide.
func HostTarget(runnerOS, goos, goarch string) (string, error) {
	osName := strings.ToLower(runnerOS)
	if osName == "" {
		osName = goos
	}
	arch := "x86_64"
	if goarch == "arm64" {
		arch = "aarch64"
	}
	switch osName {
	case "linux":
		return arch + "-unknown-linux-gnu", nil
	case "macos", "darwin":
		return arch + "-apple-darwin", nil
	case "windows":
		return arch + "-pc-windows-msvc", nil
	default:
		return "", fmt.Errorf(messages.ToolchainUnknownHostFmt, runnerOS, goos)
	}
}

// CrossTarget reports whether cross supports building target.
func CrossTarget(target string) bool {
	return slices.Contains(crossTargets, target)
}

// UseCross decides whether to build with cross. An explicit choice wins;
// otherwise cross is used for foreign targets it supports on Linux hosts.
func UseCross(explicit *bool, target, host string) bool {
	if explicit != nil {
		return *explicit
	}
	if target == host {
		return false
	}
	return strings.HasSuffix(host, "-unknown-linux-gnu") && CrossTarget(target)
}

// ValidateCrossVersion checks that version names a cross release this tool can drive.
func ValidateCrossVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf(messages.ToolchainCrossVersionFmt, version, err)
	}
	minimum := semver.MustParse("0.2.0")
	if v.LessThan(minimum) {
		return fmt.Errorf(messages.ToolchainCrossTooOldFmt, version, minimum)
	}
	return nil
}
