package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

// eggInfoRe mirrors pip's finder_funcs._egg_info_re: a loose split of a
// stripped-extension filename stem into (name, version), both halves
// restricted to the PEP 503-ish [A-Za-z0-9_.] / [A-Za-z0-9_.-] alphabets.
var eggInfoRe = regexp.MustCompile(`^([A-Za-z0-9_.]+)-([A-Za-z0-9_.-]+)$`)

// pyVersionSuffixRe mirrors pip's _py_version_re: a trailing "-pyX.Y"
// (or "-pyX") suffix some sdists/eggs append to their filename, e.g.
// "foo-1.0-py2.7.tar.gz".
var pyVersionSuffixRe = regexp.MustCompile(`-py([123](?:\.[0-9])?)$`)

// SdistCandidate is the parsed result of SplitEggInfo: a stem's distribution
// name, version, and optional python-version suffix (spec §4.A).
type SdistCandidate struct {
	Name       string
	Version    string
	PyVersion  string // e.g. "2.7"; empty when the filename carries none
	HasVersion bool
}

// SplitEggInfo parses an sdist/egg filename stem (already stripped of its
// known extension by link.SplitExt) into a distribution name and version,
// following the egg-info grammar pip uses for non-wheel distributions
// (spec §4.A "sdist/egg filename grammar"). The python-version suffix, if
// present, is peeled off the version before matching the egg-info regex so
// "foo-1.0-py2.7" still parses as name=foo version=1.0 pyversion=2.7.
func SplitEggInfo(stem string) (SdistCandidate, bool) {
	pyVersion := ""

	rest := stem
	if m := pyVersionSuffixRe.FindStringSubmatch(stem); m != nil {
		pyVersion = m[1]
		rest = strings.TrimSuffix(stem, m[0])
	}

	m := eggInfoRe.FindStringSubmatch(rest)
	if m == nil {
		return SdistCandidate{}, false
	}

	return SdistCandidate{Name: m[1], Version: m[2], PyVersion: pyVersion, HasVersion: true}, true
}

// EggInfoMatches reports whether an sdist/egg-info stem's distribution name
// matches searchName, following pip's _egg_info_matches: case-insensitive,
// underscores and hyphens interchangeable, prefix match against
// "searchname-" (spec §4.A "name matching is case/separator-insensitive").
func EggInfoMatches(eggInfo, searchName string) bool {
	normalizedEgg := strings.ToLower(strings.ReplaceAll(eggInfo, "_", "-"))
	normalizedSearch := strings.ToLower(strings.ReplaceAll(searchName, "_", "-")) + "-"

	return strings.HasPrefix(normalizedEgg, normalizedSearch)
}

// VersionFromEggInfoMatch extracts the version suffix of an sdist/egg-info
// stem once it is known to belong to searchName, splitting on the known
// search-name length rather than SplitEggInfo's blind first-hyphen split
// so hyphenated distribution names (e.g. "flask-sqlalchemy-2.5") still
// yield the right version, exactly as pip's _egg_info_matches does by
// returning match.group(0)[len(look_for):].
func VersionFromEggInfoMatch(stem, searchName string) (version string, ok bool) {
	if !eggInfoRe.MatchString(stem) || !EggInfoMatches(stem, searchName) {
		return "", false
	}

	normalizedStem := strings.ToLower(strings.ReplaceAll(stem, "_", "-"))
	normalizedSearch := strings.ToLower(strings.ReplaceAll(searchName, "_", "-")) + "-"

	return strings.TrimPrefix(normalizedStem, normalizedSearch), true
}

// StripPyVersionSuffix mirrors pip's final _py_version_re.search(version)
// check: it runs against the extracted version string itself (not the
// filename stem), after either the wheel or sdist branch has already
// produced a version (spec §4.A "python version suffix").
func StripPyVersionSuffix(version string) (stripped, pyVersion string) {
	if m := pyVersionSuffixRe.FindStringSubmatch(version); m != nil {
		return strings.TrimSuffix(version, m[0]), m[1]
	}

	return version, ""
}

// WheelFilename is the parsed form of a wheel's filename grammar
// {distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl
// (spec §4.A "wheel filename grammar", PEP 427/425).
type WheelFilename struct {
	Distribution string
	Version      string
	Build        string // empty when no build tag segment is present
	PyTags       []string
	ABITags      []string
	PlatformTags []string
}

// InvalidWheelFilename is returned by ParseWheelFilename when filename does
// not match the wheel grammar (spec §7 "malformed wheel filenames are
// reported, never silently skipped without a reason").
type InvalidWheelFilename struct {
	Filename string
	Reason   string
}

func (e *InvalidWheelFilename) Error() string {
	return fmt.Sprintf("invalid wheel filename %q: %s", e.Filename, e.Reason)
}

// buildTagRe matches the optional build-tag segment: digits optionally
// followed by more [A-Za-z0-9_.] (PEP 427's "build tag").
var buildTagRe = regexp.MustCompile(`^[0-9][A-Za-z0-9_.]*$`)

// ParseWheelFilename parses a wheel filename (with its .whl extension
// already removed by the caller via link.SplitExt) into its grammar
// components. Compound tag fields such as "py2.py3" or "cp35.cp36-abi3"
// are split on "." and returned as slices so callers can test compatibility
// against each alternative independently (spec §4.A/§4.B).
func ParseWheelFilename(stem string) (WheelFilename, error) {
	parts := strings.Split(stem, "-")

	if len(parts) != 5 && len(parts) != 6 {
		return WheelFilename{}, &InvalidWheelFilename{
			Filename: stem + ".whl",
			Reason:   fmt.Sprintf("expected 5 or 6 '-'-separated segments, got %d", len(parts)),
		}
	}

	build := ""
	tagParts := parts[2:]

	if len(parts) == 6 {
		build = parts[2]
		tagParts = parts[3:]

		if !buildTagRe.MatchString(build) {
			return WheelFilename{}, &InvalidWheelFilename{
				Filename: stem + ".whl",
				Reason:   fmt.Sprintf("invalid build tag %q", build),
			}
		}
	}

	return WheelFilename{
		Distribution: parts[0],
		Version:      parts[1],
		Build:        build,
		PyTags:       strings.Split(tagParts[0], "."),
		ABITags:      strings.Split(tagParts[1], "."),
		PlatformTags: strings.Split(tagParts[2], "."),
	}, nil
}

// NameMatches reports whether a wheel's distribution segment matches
// searchName under PEP 503 normalization (spec §4.A, §4.B "wheel name
// matching uses the same normalized-name comparison as everywhere else").
func (w WheelFilename) NameMatches(searchName string) bool {
	return NormalizeName(w.Distribution) == NormalizeName(searchName)
}

// PythonVersionSuffixMatches reproduces pip's deliberately bug-compatible
// comparison of an sdist's "-pyX.Y" suffix against the running
// interpreter's sys.version[:3] (spec §9 Open Question, decided: keep the
// original's narrow string-prefix comparison rather than a proper PEP 440
// specifier match, since the original only ever compares the first three
// characters of the interpreter version string).
func PythonVersionSuffixMatches(pyVersion, runningPythonVersion string) bool {
	if pyVersion == "" {
		return true
	}

	if len(runningPythonVersion) > 3 {
		runningPythonVersion = runningPythonVersion[:3]
	}

	return FormatPythonVersion(strings.ReplaceAll(pyVersion, ".", "")) == runningPythonVersion ||
		pyVersion == runningPythonVersion
}
