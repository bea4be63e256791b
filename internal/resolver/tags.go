package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	goversion "github.com/aquasecurity/go-version/pkg/version"
)

// Tag is a single compatibility tag triple (python, abi, platform), the Go
// analogue of a PEP 425 tag (spec §4.B "Tag Compatibility").
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

func (t Tag) String() string {
	return fmt.Sprintf("%s-%s-%s", t.Python, t.ABI, t.Platform)
}

// manylinuxVariants lists the manylinux glibc-version aliases this package
// knows how to rank, newest first. Each is tagged with the glibc version it
// corresponds to so CompatTags can keep only the ones the running platform
// actually satisfies, ranked through aquasecurity/go-version rather than a
// hand-maintained ordering.
var manylinuxVariants = map[string]string{
	"manylinux_2_35": "2.35",
	"manylinux_2_34": "2.34",
	"manylinux_2_31": "2.31",
	"manylinux_2_28": "2.28",
	"manylinux_2_17": "2.17",
	"manylinux2014":  "2.17",
}

// ExpandPlatformTags expands a single wheel platform tag into the
// priority-ordered list of platform tags a running interpreter on that
// platform is actually compatible with: the exact tag first, then
// manylinux aliases (Linux) or older macOS/universal2 variants (macOS), in
// descending compatibility order (spec §4.B "Platform compatibility
// expansion"). maxGlibc controls which manylinux aliases are offered; pass
// "" to allow every known alias.
func ExpandPlatformTags(platform, maxGlibc string) []string {
	platforms := []string{platform}

	switch {
	case strings.HasPrefix(platform, "linux_"):
		arch := strings.TrimPrefix(platform, "linux_")
		platforms = append(platforms, rankedManylinuxAliases(maxGlibc, arch)...)
	case strings.HasPrefix(platform, "macosx_"):
		platforms = append(platforms, macOSVariants(platform)...)
	}

	return platforms
}

// rankedManylinuxAliases returns manylinux platform tags for arch, ranked
// newest-glibc-first and filtered to glibc versions <= maxGlibc (when
// maxGlibc is non-empty), using aquasecurity/go-version for the version
// comparisons rather than a fixed descending list.
func rankedManylinuxAliases(maxGlibc, arch string) []string {
	var ceiling *goversion.Version

	if maxGlibc != "" {
		v, err := goversion.Parse(maxGlibc)
		if err == nil {
			ceiling = &v
		}
	}

	type candidate struct {
		tag string
		ver goversion.Version
	}

	var candidates []candidate

	for tag, glibc := range manylinuxVariants {
		v, err := goversion.Parse(glibc)
		if err != nil {
			continue
		}

		if ceiling != nil && v.GreaterThan(*ceiling) {
			continue
		}

		candidates = append(candidates, candidate{tag: tag, ver: v})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ver.GreaterThan(candidates[j].ver)
	})

	aliases := make([]string, len(candidates))
	for i, c := range candidates {
		aliases[i] = c.tag + "_" + arch
	}

	return aliases
}

// macOSVariants expands a "macosx_MAJOR_MINOR_ARCH" tag into its
// universal2 form plus every older compatible macOS version, ranked
// descending by parsed version (arm64 only goes back to 11.0; x86_64 back
// to 10.9, mirroring Apple's own floor for each architecture).
func macOSVariants(platform string) []string {
	parts := strings.SplitN(platform, "_", 4)
	if len(parts) != 4 {
		return nil
	}

	major, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}

	arch := parts[3]

	var variants []string

	variants = append(variants, fmt.Sprintf("macosx_%s_%s_universal2", parts[1], parts[2]))

	minMajor := 10
	if arch == "arm64" {
		minMajor = 11
	}

	for v := major - 1; v >= minMajor; v-- {
		minor := "0"
		if v == 10 {
			minor = "9"
		}

		variants = append(variants,
			fmt.Sprintf("macosx_%d_%s_%s", v, minor, arch),
			fmt.Sprintf("macosx_%d_%s_universal2", v, minor),
		)
	}

	return variants
}

// WheelPlatformTag converts a sysconfig-style platform tag
// ("macosx-14.0-arm64") into wheel-filename form ("macosx_14_0_arm64").
func WheelPlatformTag(sysTag string) string {
	s := strings.ReplaceAll(sysTag, "-", "_")

	return strings.ReplaceAll(s, ".", "_")
}

// CompatTags builds the full, priority-ordered compatibility tag set for a
// running interpreter, following CPython's own packaging.tags priority
// (native ABI beats stable ABI beats no-ABI beats pure-Python, each over
// every platform alias before falling back to "any") (spec §4.B).
// pyVersion is the compact interpreter version ("312"); platform is
// already in wheel form ("macosx_14_0_arm64"); maxGlibc optionally caps
// which manylinux aliases are considered compatible.
func CompatTags(pyVersion, platform, maxGlibc string) []Tag {
	cp := "cp" + pyVersion
	pyMajor := "py" + pyVersion[:1]

	platforms := ExpandPlatformTags(platform, maxGlibc)

	var tags []Tag

	for _, plat := range platforms {
		tags = append(tags, Tag{Python: cp, ABI: cp, Platform: plat})
	}

	for _, plat := range platforms {
		tags = append(tags, Tag{Python: cp, ABI: "abi3", Platform: plat})
	}

	for _, plat := range platforms {
		tags = append(tags, Tag{Python: cp, ABI: "none", Platform: plat})
	}

	for _, plat := range platforms {
		tags = append(tags, Tag{Python: pyMajor, ABI: "none", Platform: plat})
	}

	tags = append(tags,
		Tag{Python: cp, ABI: "none", Platform: "any"},
		Tag{Python: pyMajor, ABI: "none", Platform: "any"},
	)

	return tags
}

// IsSupported reports whether a wheel's (compound) python/abi/platform tags
// intersect any of the supported tags, matching pip's Wheel.supported()
// (spec §4.B). Each of the wheel's tag fields may itself be a
// dot-separated compound (e.g. "py2.py3"); a match on any one alternative
// in every field is sufficient.
func (w WheelFilename) IsSupported(supported []Tag) bool {
	return w.SupportIndexMin(supported) >= 0
}

// SupportIndexMin returns the lowest index into supported at which this
// wheel matches, mirroring Wheel.support_index_min's role as a sort key
// (spec §4.C "wheel candidates rank by how early their best-matching tag
// appears in the supported-tag list"). Returns -1 when no tag matches.
func (w WheelFilename) SupportIndexMin(supported []Tag) int {
	for i, tag := range supported {
		if fieldMatches(w.PyTags, tag.Python) &&
			fieldMatches(w.ABITags, tag.ABI) &&
			fieldMatches(w.PlatformTags, tag.Platform) {
			return i
		}
	}

	return -1
}

func fieldMatches(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}

	return false
}

// pypiBinaryWheelExemptPlatforms lists the CURRENT interpreter's
// platform-tag prefixes pip already trusts to have a real wheel
// ecosystem on pypi.python.org, so the restrictive noarch-only check
// never applies there (spec §4.D step "PyPI binary-wheel host policy").
var pypiBinaryWheelExemptPlatforms = []string{"win", "macosx", "cli"}

// AllowsPyPIBinaryWheel reports whether platformTag — the CURRENT
// interpreter's own platform tag, not a candidate wheel's — is subject
// to pip's narrow pypi.python.org binary-wheel policy: on every platform
// except win/macosx/cli, a wheel hosted directly on pypi.python.org must
// additionally be supported under the noarch-only tag set, since a
// "real" binary wheel should never need to come from that host
// (finder_funcs._link_package_versions).
func AllowsPyPIBinaryWheel(platformTag string) bool {
	lower := strings.ToLower(platformTag)

	for _, exempt := range pypiBinaryWheelExemptPlatforms {
		if strings.HasPrefix(lower, exempt) {
			return false
		}
	}

	return true
}

// IsPyPIHost reports whether host is (a subdomain of) pypi.python.org, the
// netloc pip's pypi-binary-wheel policy specifically checks for.
func IsPyPIHost(host string) bool {
	host = strings.ToLower(host)

	return host == "pypi.python.org" || strings.HasSuffix(host, ".pypi.python.org")
}
