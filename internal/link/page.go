package link

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Page is a parsed HTML index page plus its canonical URL (spec §3
// HTMLPage). Anchor walking follows the node-visiting idiom used by the
// pack's own PEP 503 client (golang.org/x/net/html + a recursive
// before/after visitor) rather than a regex scraper for the primary
// link set; the two legacy regex fallbacks required by spec §6 remain
// regexes, exactly as upstream keeps them.
type Page struct {
	content string
	doc     *html.Node
	url     string
	host    string
	trusted Tristate
}

// NewPage parses raw HTML content fetched from rawURL. trusted is
// inherited from the Link the page was fetched through.
func NewPage(content, rawURL string, trusted Tristate) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	return &Page{content: content, doc: doc, url: rawURL, host: host, trusted: trusted}, nil
}

// URL returns the page's canonical URL.
func (p *Page) URL() string { return p.url }

// Host returns the page URL's host, used by the PyPI-binary-wheel
// policy (spec §4.B) to test comes_from.url's netloc suffix.
func (p *Page) Host() string { return p.host }

// Ref returns a PageRef snapshotting this page for use as a Link's
// ComesFrom, avoiding the owning-cycle the original Python carries
// (spec §9 "Cyclic back-reference").
func (p *Page) Ref() *PageRef {
	return &PageRef{URL: p.url, Host: p.host, Trusted: p.trusted == True, APIVersion: p.apiVersion()}
}

// apiVersion reads <meta name="api-version" value="N">, defaulting to 1
// when absent (spec §3).
func (p *Page) apiVersion() int {
	version := 1

	visit(p.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return true
		}

		if strings.ToLower(getAttr(n, "name")) != "api-version" {
			return true
		}

		if v, err := strconv.Atoi(getAttr(n, "value")); err == nil {
			version = v
		}

		return true
	})

	return version
}

// baseURL reads <base href=...>, falling back to the page's own URL
// (spec §3/§6).
func (p *Page) baseURL() string {
	base := p.url

	visit(p.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "base" {
			return true
		}

		if href := getAttr(n, "href"); href != "" {
			base = href

			return false
		}

		return true
	})

	return base
}

// Links yields every <a href=...> anchor on the page as a Link, resolved
// against base_url and cleaned (spec §3/§6). Internal is set only when
// api_version >= 2 and the anchor's rel attribute contains "internal".
func (p *Page) Links() []Link {
	base := p.baseURL()
	ref := p.Ref()

	var links []Link

	visit(p.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}

		href := getAttr(n, "href")
		if href == "" {
			return true
		}

		resolved := resolveURL(base, href)
		cleaned := CleanLink(resolved)

		internal := Unknown
		if ref.APIVersion >= 2 {
			internal = FromBool(hasRel(n, "internal"))
		}

		links = append(links, NewPageLink(cleaned, ref, internal))

		return true
	})

	return sortLinks(links)
}

// sortLinks dedups anchors by URL and moves egg-fragment links after
// filename-based ones, preserving discovery order within each group
// (spec.md's "ordered, deduplicated sequence of Links" invariant,
// grounded on the original's _sort_links in finder_funcs.py: "non-egg
// links first, egg links second, while eliminating duplicates").
func sortLinks(links []Link) []Link {
	seen := make(map[string]bool, len(links))

	var noEggs, eggs []Link

	for _, l := range links {
		if seen[l.URL()] {
			continue
		}

		seen[l.URL()] = true

		if l.EggFragment != "" {
			eggs = append(eggs, l)
		} else {
			noEggs = append(noEggs, l)
		}
	}

	return append(noEggs, eggs...)
}

// RelLinks returns the page's relation links: explicit rel="homepage"/
// rel="download" anchors followed by the two legacy regex-scraped
// fallbacks (spec §3/§6). Both sets of links are untrusted.
func (p *Page) RelLinks() []Link {
	links := p.explicitRelLinks("homepage", "download")

	return append(links, p.scrapedRelLinks()...)
}

func (p *Page) explicitRelLinks(rels ...string) []Link {
	base := p.baseURL()
	ref := p.Ref()
	want := make(map[string]bool, len(rels))

	for _, r := range rels {
		want[r] = true
	}

	var links []Link

	visit(p.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}

		href := getAttr(n, "href")
		relAttr := getAttr(n, "rel")

		if href == "" || relAttr == "" {
			return true
		}

		matched := false

		for _, r := range strings.Fields(relAttr) {
			if want[r] {
				matched = true

				break
			}
		}

		if !matched {
			return true
		}

		cleaned := CleanLink(resolveURL(base, href))
		l := NewPageLink(cleaned, ref, Unknown)
		l.Trusted = False
		links = append(links, l)

		return true
	})

	return links
}

// homepageRe / downloadRe / hrefRe mirror pip's HTMLPage._homepage_re,
// _download_re, _href_re: horrible hacks preserved on purpose because
// some index pages in the wild are only scrapeable this way.
var (
	homepageRe = regexp.MustCompile(`(?i)<th>\s*home\s*page`)
	downloadRe = regexp.MustCompile(`(?i)<th>\s*download\s+url`)
	hrefRe     = regexp.MustCompile(`(?is)href=(?:"([^"]*)"|'([^']*)'|([^>\s]*))`)
)

func (p *Page) scrapedRelLinks() []Link {
	base := p.baseURL()
	ref := p.Ref()

	var links []Link

	for _, re := range []*regexp.Regexp{homepageRe, downloadRe} {
		loc := re.FindStringIndex(p.content)
		if loc == nil {
			continue
		}

		m := hrefRe.FindStringSubmatch(p.content[loc[1]:])
		if m == nil {
			continue
		}

		href := firstNonEmpty(m[1], m[2], m[3])
		if href == "" {
			continue
		}

		cleaned := CleanLink(resolveURL(base, href))
		l := NewPageLink(cleaned, ref, Unknown)
		l.Trusted = False
		l.DeprecatedRegex = true
		links = append(links, l)
	}

	return links
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

// cleanRe matches characters outside the safe URL character set (spec
// §6 "URL cleaning"); matches are percent-encoded with lowercase hex,
// preserved bit-for-bit per spec §9's Open Question on clean_link.
var cleanRe = regexp.MustCompile(`[^a-zA-Z0-9$&+,/:;=?@.#%_\|-]`)

// CleanLink percent-encodes characters outside the safe set so a link
// containing e.g. a literal space round-trips to a valid URL, without
// over-encoding already-escaped characters. CleanLink(CleanLink(u)) ==
// CleanLink(u) (spec §8 round-trip law) because every output byte is
// itself in the safe set.
func CleanLink(rawURL string) string {
	return cleanRe.ReplaceAllStringFunc(rawURL, func(s string) string {
		r := []rune(s)[0]

		return fmt.Sprintf("%%%02x", r)
	})
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return baseURL.ResolveReference(refURL).String()
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func hasRel(n *html.Node, want string) bool {
	for _, r := range strings.Fields(getAttr(n, "rel")) {
		if r == want {
			return true
		}
	}

	return false
}

// visit walks the HTML node tree depth-first, calling fn on every node.
// Returning false from fn stops the walk early. Grounded on
// datawire-ocibuild's htmlutil.VisitHTML/pep503's visitHTML, simplified
// to the single-callback shape this package needs.
func visit(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !visit(c, fn) {
			return false
		}
	}

	return true
}
