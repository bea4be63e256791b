package finder

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/bilusteknoloji/pipget/internal/link"
	"github.com/bilusteknoloji/pipget/internal/resolver"
)

// Config is the PackageFinder configuration of spec §3: the sources a
// search draws from, the trust/pre-release policy applied while
// filtering, and the interpreter's tag preference list.
type Config struct {
	FindLinks              []string
	IndexURLs              []string
	AllowExternal          map[string]bool // normalized names
	AllowUnverified        map[string]bool
	AllowAllExternal       bool
	AllowAllPrereleases    bool
	UseWheel               bool
	ProcessDependencyLinks bool
	DependencyLinks        []string
	SupportedTags          []resolver.Tag
	RunningPythonVersion   string // dotted, e.g. "3.12"
	Platform               string // current interpreter's wheel-style platform tag, e.g. "linux_x86_64"
	Logger                 *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// externalAllowed reports whether normalizedName may be treated as
// externally-hosted. PackageFinder.__init__ unions allow_unverified into
// allow_external at construction time (since an unverified source is,
// a fortiori, also an external one); this method reproduces that union
// instead of requiring every caller to pre-merge the two sets.
func (c Config) externalAllowed(normalizedName string) bool {
	return c.AllowAllExternal || c.AllowExternal[normalizedName] || c.AllowUnverified[normalizedName]
}

// supportedTagsNoarch filters Config's tag preference list to the
// platform-independent subset (spec §4.B "supported_tags_noarch").
func (c Config) supportedTagsNoarch() []resolver.Tag {
	var noarch []resolver.Tag

	for _, t := range c.SupportedTags {
		if t.Platform == "any" {
			noarch = append(noarch, t)
		}
	}

	return noarch
}

// FilterLink applies the link_package_versions decision order of spec
// §4.D to a single candidate, against searchName and cfg, recording
// skip reasons and warning flags on state. It returns (found, true) on
// acceptance, or (FoundVersion{}, false) on any skip.
func FilterLink(l link.Link, searchName string, cfg Config, state *SearchState) (FoundVersion, bool) {
	normalizedSearch := resolver.NormalizeName(searchName)

	version := ""

	if l.EggFragment != "" {
		// Step 1: an egg-fragment substitutes for filename/extension checks.
		candidate, ok := resolver.VersionFromEggInfoMatch(l.EggFragment, searchName)
		if !ok {
			logSkip(cfg, state, l, "wrong project name")

			return FoundVersion{}, false
		}

		version = candidate
	} else {
		stem, ext := link.SplitExt(l.Filename(), cfg.UseWheel)
		if ext == "" {
			logSkip(cfg, state, l, "not a file")

			return FoundVersion{}, false
		}

		// Step 5: macOS 10 zip exclusion.
		if ext == ".zip" && strings.Contains(l.Path(), "macosx10") {
			logSkip(cfg, state, l, "macosx10 zip excluded")

			return FoundVersion{}, false
		}

		if ext == ".whl" {
			v, ok := filterWheel(stem, searchName, cfg, state, l)
			if !ok {
				return FoundVersion{}, false
			}

			version = v
		} else {
			v, ok := resolver.VersionFromEggInfoMatch(stem, searchName)
			if !ok {
				logSkip(cfg, state, l, "unparseable or name mismatch")

				return FoundVersion{}, false
			}

			version = v
		}
	}

	// Step 8: external-hosting check.
	if l.Internal == link.False && !cfg.externalAllowed(normalizedSearch) {
		state.NeedWarnExternal = true
		logSkip(cfg, state, l, "externally hosted")

		return FoundVersion{}, false
	}

	// Step 9: verifiability check.
	if l.Verifiable == link.False && !cfg.AllowUnverified[normalizedSearch] {
		state.NeedWarnUnverified = true
		logSkip(cfg, state, l, "unverifiable")

		return FoundVersion{}, false
	}

	// Step 10: python-version suffix check, run against the extracted
	// version string itself regardless of which branch produced it,
	// exactly as finder_funcs._link_package_versions does at the end.
	stripped, pyVersion := resolver.StripPyVersionSuffix(version)
	if pyVersion != "" {
		if !resolver.PythonVersionSuffixMatches(pyVersion, cfg.RunningPythonVersion) {
			logSkip(cfg, state, l, "python version suffix mismatch")

			return FoundVersion{}, false
		}

		version = stripped
	}

	return FoundVersion{Version: version, Link: l}, true
}

// filterWheel handles step 6 of spec §4.D. The pypi-binary-wheel policy
// gates on the CURRENT interpreter's platform (cfg.Platform), not the
// wheel's own platform tag: a wheel found on a pypi.python.org page is
// accepted as-is only when the interpreter runs on win, macosx or cli;
// on every other platform it must also be supported under the noarch
// (platform "any") subset of the tag list.
func filterWheel(stem, searchName string, cfg Config, state *SearchState, l link.Link) (string, bool) {
	wheel, err := resolver.ParseWheelFilename(stem)
	if err != nil {
		var invalid *resolver.InvalidWheelFilename
		if errors.As(err, &invalid) {
			logSkip(cfg, state, l, "invalid wheel filename")

			return "", false
		}

		logSkip(cfg, state, l, "unexpected wheel parse error")

		return "", false
	}

	if !wheel.NameMatches(searchName) {
		logSkip(cfg, state, l, "wheel name mismatch")

		return "", false
	}

	if cfg.UseWheel && !wheel.IsSupported(cfg.SupportedTags) {
		logSkip(cfg, state, l, "unsupported wheel tags")

		return "", false
	}

	if comesFromPyPI(l) && resolver.AllowsPyPIBinaryWheel(cfg.Platform) {
		if !wheel.IsSupported(cfg.supportedTagsNoarch()) {
			logSkip(cfg, state, l, "pypi binary wheel policy")

			return "", false
		}
	}

	return wheel.Version, true
}

// comesFromPyPI reports whether l was discovered on a page whose host
// matches the PyPI-binary-wheel policy's host check (spec §4.B).
func comesFromPyPI(l link.Link) bool {
	return l.ComesFrom != nil && resolver.IsPyPIHost(l.ComesFrom.Host)
}

func logSkip(cfg Config, state *SearchState, l link.Link, reason string) {
	if !state.LogOnce(l.URL(), reason) {
		return
	}

	cfg.logger().Debug("skipping link", slog.String("url", l.URL()), slog.String("reason", reason))
}
