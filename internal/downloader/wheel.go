package downloader

import (
	"fmt"
	"strings"

	"github.com/bilusteknoloji/pipget/internal/pypi"
	"github.com/bilusteknoloji/pipget/internal/resolver"
)

// WheelTag represents a PEP 425 compatibility tag. Compound wheel tag
// segments (e.g. "py2.py3") are kept joined exactly as the filename
// wrote them; resolver.Tag's split form is what actually drives
// compatibility matching, here via resolver.WheelFilename.IsSupported.
type WheelTag struct {
	Python   string // e.g., "cp312", "py3"
	ABI      string // e.g., "cp312", "none"
	Platform string // e.g., "manylinux_2_17_x86_64", "any"
}

// ParseWheelFilename parses a wheel filename into its components,
// delegating the grammar itself to resolver.ParseWheelFilename.
func ParseWheelFilename(filename string) (name, version string, tag WheelTag, err error) {
	stem := strings.TrimSuffix(filename, ".whl")

	wf, err := resolver.ParseWheelFilename(stem)
	if err != nil {
		return "", "", WheelTag{}, fmt.Errorf("parsing wheel filename %q: %w", filename, err)
	}

	tag = WheelTag{
		Python:   strings.Join(wf.PyTags, "."),
		ABI:      strings.Join(wf.ABITags, "."),
		Platform: strings.Join(wf.PlatformTags, "."),
	}

	return wf.Distribution, wf.Version, tag, nil
}

// SelectWheel selects the best compatible wheel from the available URLs.
// compatTags must be ordered by priority (most preferred first). Returns
// an error if no compatible wheel is found (does NOT fall back to sdist).
func SelectWheel(urls []pypi.URL, compatTags []WheelTag) (pypi.URL, error) {
	tags := make([]resolver.Tag, len(compatTags))
	for i, ct := range compatTags {
		tags[i] = resolver.Tag{Python: ct.Python, ABI: ct.ABI, Platform: ct.Platform}
	}

	bestPriority := len(tags)

	var bestURL pypi.URL

	found := false

	for _, u := range urls {
		if u.PackageType != "bdist_wheel" {
			continue
		}

		stem := strings.TrimSuffix(u.Filename, ".whl")

		wf, err := resolver.ParseWheelFilename(stem)
		if err != nil {
			continue
		}

		idx := wf.SupportIndexMin(tags)
		if idx < 0 || idx >= bestPriority {
			continue
		}

		bestPriority = idx
		bestURL = u
		found = true

		if bestPriority == 0 {
			break // can't do better than the highest priority
		}
	}

	if !found {
		return pypi.URL{}, fmt.Errorf("no compatible wheel found (tried %d URLs)", len(urls))
	}

	return bestURL, nil
}
