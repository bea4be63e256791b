package finder

import (
	"fmt"
	"strings"
)

// DistributionNotFound reports that no link survived discovery, or none
// satisfies the requirement's specifier (spec §7). Reason is a short
// machine-stable tag ("no downloads" / "no matching version"); Warnings
// carries the accumulated external/unverified warning text so callers
// can render it without re-deriving it (SPEC_FULL §1 Errors).
type DistributionNotFound struct {
	Name     string
	Reason   string
	Versions []string
	Warnings []string
}

func (e *DistributionNotFound) Error() string {
	msg := fmt.Sprintf("no matching distribution found for %s: %s", e.Name, e.Reason)
	if len(e.Versions) > 0 {
		msg += fmt.Sprintf(" (found: %s)", strings.Join(e.Versions, ", "))
	}

	for _, w := range e.Warnings {
		msg += "\n" + w
	}

	return msg
}

// BestVersionAlreadyInstalled signals that selection succeeded but the
// best applicable candidate is the currently-installed one, distinct
// from the "no upgrade needed" null return (spec §7).
type BestVersionAlreadyInstalled struct {
	Name    string
	Version string
}

func (e *BestVersionAlreadyInstalled) Error() string {
	return fmt.Sprintf("%s %s is already the best version available", e.Name, e.Version)
}

// UnsupportedWheel is raised by the sort key when asked to rank an
// unsupported wheel. Filtering precedes sorting, so this should never
// happen in practice; an implementer may treat it as an internal
// invariant violation (spec §7).
type UnsupportedWheel struct {
	Filename string
}

func (e *UnsupportedWheel) Error() string {
	return fmt.Sprintf("unsupported wheel: %s", e.Filename)
}
