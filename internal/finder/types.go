// Package finder implements the candidate discovery and selection core:
// the Link Filter, Page/Location Walker, and Selector of spec §4.D-F.
// Requirement here is intentionally distinct from resolver.Requirement —
// see DESIGN.md for why the BFS dependency walker and the single-
// requirement selector each get their own shape for the same concept.
package finder

import (
	"strings"

	"github.com/bilusteknoloji/pipget/internal/installed"
	"github.com/bilusteknoloji/pipget/internal/link"
	"github.com/bilusteknoloji/pipget/internal/resolver"
)

// Specifier is a single (operator, version) constraint, e.g. (">=", "3.0").
type Specifier struct {
	Op      string
	Version string
}

// Requirement is the selector-facing view of a dependency: a normalized
// name, the specifier set it must satisfy, the case-preserved name as
// first seen, whatever is already installed, and whether pre-releases
// are acceptable for this particular requirement (spec §3).
type Requirement struct {
	Name               string
	URLName            string
	Specifiers         []Specifier
	SatisfiedBy        *installed.Record
	PrereleasesAllowed bool
}

// specifierOps lists the operator prefixes tried, in order, against one
// comma-separated specifier clause.
var specifierOps = []string{">=", "<=", "==", "!=", "~=", ">", "<"}

// NewRequirement builds a finder.Requirement from a resolver.Requirement,
// parsing its PEP 508 specifier string into per-operator Specifier
// values. satisfiedBy may be nil when nothing is installed.
func NewRequirement(r resolver.Requirement, satisfiedBy *installed.Record) Requirement {
	req := Requirement{
		Name:        r.Name,
		URLName:     r.Name,
		SatisfiedBy: satisfiedBy,
	}

	for _, clause := range strings.Split(r.Specifier, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		for _, op := range specifierOps {
			if strings.HasPrefix(clause, op) {
				req.Specifiers = append(req.Specifiers, Specifier{
					Op:      op,
					Version: strings.TrimSpace(strings.TrimPrefix(clause, op)),
				})

				break
			}
		}
	}

	return req
}

// Satisfies reports whether versionStr satisfies every specifier clause.
func (r Requirement) Satisfies(versionStr string) (bool, error) {
	specs := make([]string, len(r.Specifiers))
	for i, s := range r.Specifiers {
		specs[i] = s.Op + s.Version
	}

	return resolver.MatchesAll(versionStr, specs)
}

// FoundVersion is a (version, link) pair produced by a finder, with
// lazily-computed derived attributes memoized on first access (spec §3,
// §5 "cached_property-style memoization").
type FoundVersion struct {
	Version string
	Link    link.Link

	prereleaseComputed bool
	prerelease         bool
}

// CurrentlyInstalled reports whether this candidate is the installed
// sentinel link.
func (f FoundVersion) CurrentlyInstalled() bool {
	return f.Link.Equal(link.Installed)
}

// Prerelease reports whether Version is a pre-release, memoizing the
// PEP 440 parse across repeated calls on the same value.
func (f *FoundVersion) Prerelease() bool {
	if !f.prereleaseComputed {
		f.prerelease, _ = resolver.IsPreRelease(f.Version)
		f.prereleaseComputed = true
	}

	return f.prerelease
}
