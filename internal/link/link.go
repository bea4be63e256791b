// Package link implements the candidate-URL data model: the Link type,
// its trust/verifiability tri-states, and the known-extension splitting
// rules shared by the filename parser and the link filter.
package link

import (
	"net/url"
	"strings"
)

// Tristate models a fact that may be known-true, known-false, or unknown.
// Several Link fields (Trusted, Internal, Verifiable) only make a hard
// true/false claim in specific contexts (e.g. Internal only means
// anything on an api-version >= 2 index page); Unknown lets callers
// distinguish "not applicable here" from an explicit false.
type Tristate int

const (
	Unknown Tristate = iota
	True
	False
)

// FromBool lifts a plain bool into a Tristate.
func FromBool(b bool) Tristate {
	if b {
		return True
	}

	return False
}

// PageRef is a host-only back-reference to the HTMLPage a Link was
// discovered on. Spec §9 explicitly calls out the cyclic back-reference
// the original carries (comes_from -> HTMLPage -> Link ...) and asks
// for a weak reference or a host string instead of a strong cycle.
type PageRef struct {
	URL        string
	Host       string
	Trusted    bool
	APIVersion int
}

// Link is a candidate download location. It is constructed through
// NewLink/NewTrustedLink/NewPageLink; the page parser sets Trusted and
// DeprecatedRegex on rel-links before returning them, and nothing
// mutates a Link after that (spec §3 invariant 1). Equality is
// URL-based via Equal, except that Installed equals only itself.
type Link struct {
	url         string
	Trusted     Tristate
	ComesFrom   *PageRef
	Internal    Tristate
	Verifiable  Tristate
	EggFragment string

	// DeprecatedRegex marks a Link discovered via HTMLPage's legacy
	// <th>Home Page</th> / <th>Download URL</th> regex scraper
	// (spec §6 Index page format, scraped_rel_links in the original).
	DeprecatedRegex bool

	installed bool
}

// Installed is the sentinel Link representing "the currently installed
// version". It is not a URL and compares equal only to itself.
var Installed = Link{url: "<installed>", installed: true}

// NewLink constructs a Link whose trust is Unknown (neither trusted nor
// explicitly untrusted) for the given absolute URL,
// extracting any #egg= fragment as EggFragment.
func NewLink(rawURL string) Link {
	return newLink(rawURL, Unknown, nil, Unknown)
}

// NewTrustedLink constructs a Link explicitly marked trusted, the form
// used for every find_links / index_urls entry supplied by the user.
func NewTrustedLink(rawURL string) Link {
	return newLink(rawURL, True, nil, Unknown)
}

// NewPageLink constructs a Link discovered as an anchor on an HTML page,
// threading through the page's internal-tag tristate per spec §6.
func NewPageLink(rawURL string, comesFrom *PageRef, internal Tristate) Link {
	trusted := Unknown
	if comesFrom != nil {
		trusted = FromBool(comesFrom.Trusted)
	}

	return newLink(rawURL, trusted, comesFrom, internal)
}

func newLink(rawURL string, trusted Tristate, comesFrom *PageRef, internal Tristate) Link {
	u, egg := splitEggFragment(rawURL)

	return Link{
		url:         u,
		Trusted:     trusted,
		ComesFrom:   comesFrom,
		Internal:    internal,
		Verifiable:  verifiability(u),
		EggFragment: egg,
	}
}

// URL returns the link's absolute URL (with any #egg= fragment stripped).
func (l Link) URL() string { return l.url }

// Equal reports whether two Links refer to the same URL (spec §3:
// "equality is URL-based"); the Installed sentinel equals only itself.
func (l Link) Equal(other Link) bool { return l.url == other.url && l.installed == other.installed }

func (l Link) String() string { return l.url }

// Filename returns the final path segment of the Link's URL.
func (l Link) Filename() string {
	u, err := url.Parse(l.url)
	if err != nil {
		idx := strings.LastIndexByte(l.url, '/')

		return l.url[idx+1:]
	}

	idx := strings.LastIndexByte(u.Path, '/')

	return u.Path[idx+1:]
}

// Path returns the path component of the Link's URL, used by the
// macOS-10-zip exclusion (spec §4.D step 5) which inspects the path for
// the substring "macosx10".
func (l Link) Path() string {
	u, err := url.Parse(l.url)
	if err != nil {
		return l.url
	}

	return u.Path
}

// knownExtensions lists the archive suffixes the filename parser
// recognizes, longest-first so double extensions like .tar.gz are
// matched before the bare .gz would be (spec §3 "Known extensions").
var knownExtensions = []string{".tar.gz", ".tar.bz2", ".tar", ".tgz", ".zip"}

const wheelExt = ".whl"

// SplitExt splits a filename into (stem, extension) using the known
// extension set, wheel extension included only when wheelSupport is
// true. Double extensions (".tar.gz") are matched as a single unit.
// Returns ext == "" when no known extension matches.
func SplitExt(filename string, wheelSupport bool) (stem, ext string) {
	if wheelSupport && strings.HasSuffix(filename, wheelExt) {
		return strings.TrimSuffix(filename, wheelExt), wheelExt
	}

	for _, known := range knownExtensions {
		if strings.HasSuffix(filename, known) {
			return strings.TrimSuffix(filename, known), known
		}
	}

	return filename, ""
}

// Splitext mirrors Link.splitext() in the original: split this Link's
// filename using the known extensions (wheel included).
func (l Link) Splitext() (stem, ext string) {
	return SplitExt(l.Filename(), true)
}

func splitEggFragment(rawURL string) (cleanURL, egg string) {
	base, fragment, found := strings.Cut(rawURL, "#")
	if !found {
		return rawURL, ""
	}

	values, err := url.ParseQuery(fragment)
	if err == nil {
		if e := values.Get("egg"); e != "" {
			return base, e
		}
	}

	return base, ""
}

// verifiability derives the verifiable tristate from scheme and
// explicit hash fragments (spec §3: "a 'verifiable' tri-state derived
// from scheme and explicit hash fragments"). https is self-verifying in
// transit; a plain http URL is verifiable only if it carries one of the
// recognized hash query parameters in its fragment.
func verifiability(rawURL string) Tristate {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Unknown
	}

	switch u.Scheme {
	case "https", "file":
		return True
	case "http":
		if u.Fragment == "" {
			return False
		}

		values, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return False
		}

		for _, key := range []string{"sha256", "sha384", "sha512", "md5", "sha1"} {
			if values.Get(key) != "" {
				return True
			}
		}

		return False
	default:
		return Unknown
	}
}
