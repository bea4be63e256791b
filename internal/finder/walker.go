package finder

import (
	"context"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bilusteknoloji/pipget/internal/link"
	"github.com/bilusteknoloji/pipget/internal/resolver"
	"github.com/bilusteknoloji/pipget/internal/transport"
	"golang.org/x/xerrors"
)

// Location is one input to SortLocations: a search-location URL/path and
// whether it came from the find_links configuration, which controls
// whether a directory location is expanded (spec §4.E).
type Location struct {
	URL           string
	FromFindLinks bool
}

// vcsPrefixes are the VCS-requirement schemes the walker refuses to
// treat as fetchable index pages (spec §4.E "Reject VCS-prefixed URLs").
var vcsPrefixes = []string{"git+", "hg+", "svn+", "bzr+"}

// localHosts are exempt from the insecure-transport warning (spec §4.E).
var localHosts = map[string]bool{"localhost": true, "127.0.0.1": true}

// SortLocations partitions locations into local archive file paths and
// HTML-serving URL locations (spec §4.E "Location sorting").
func SortLocations(locations []Location) (files, urls []string) {
	for _, loc := range locations {
		path := loc.URL

		if strings.HasPrefix(path, "file://") {
			if p, err := filePathFromURL(path); err == nil {
				path = p
			}
		}

		info, err := os.Stat(path)

		switch {
		case err != nil:
			urls = append(urls, loc.URL)
		case info.IsDir() && loc.FromFindLinks:
			entries, rerr := os.ReadDir(path)
			if rerr != nil {
				continue
			}

			for _, e := range entries {
				full := filepath.Join(path, e.Name())
				if looksLikeHTML(full) {
					urls = append(urls, full)
				} else {
					files = append(files, full)
				}
			}
		case info.IsDir():
			urls = append(urls, loc.URL)
		case looksLikeHTML(path):
			urls = append(urls, loc.URL)
		default:
			files = append(files, loc.URL)
		}
	}

	return files, urls
}

func looksLikeHTML(path string) bool {
	t := mime.TypeByExtension(filepath.Ext(path))

	return strings.HasPrefix(t, "text/html")
}

func filePathFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	return u.Path, nil
}

// WarnInsecureTransport logs one warning per distinct (scheme, host) of
// a non-local plain-http url location, suggesting the https equivalent
// (spec §4.E, §8 invariant 5).
func WarnInsecureTransport(urls []string, cfg Config) {
	warned := map[string]bool{}

	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "http" {
			continue
		}

		host := u.Hostname()
		if localHosts[host] {
			continue
		}

		key := u.Scheme + "://" + u.Host
		if warned[key] {
			continue
		}

		warned[key] = true

		cfg.logger().Warn("insecure transport; consider using https instead",
			slog.String("url", raw), slog.String("host", u.Host))
	}
}

// queueEntry is one pending fetch, carrying the trust the entry point
// (an index/find-links URL, or a discovered rel-link) was granted.
type queueEntry struct {
	url     string
	trusted link.Tristate
}

// Walker enumerates search locations, fetching HTML index pages through
// a Session and following their rel-links under trust/allow-external
// rules (spec §4.E). It never propagates fetch errors; every failure is
// logged at debug and the page is dropped.
type Walker struct {
	Session transport.Session
}

// NewWalker returns a Walker that fetches through session.
func NewWalker(session transport.Session) *Walker {
	return &Walker{Session: session}
}

// Walk fetches every reachable page starting from urls, deduplicating by
// URL (spec §8 invariant 2: "walk(locations) yields each URL at most
// once"), and returns them in discovery order.
func (w *Walker) Walk(ctx context.Context, urls []string, searchName string, cfg Config, state *SearchState) []*link.Page {
	seen := make(map[string]bool, len(urls))
	queue := make([]queueEntry, 0, len(urls))

	for _, u := range urls {
		queue = append(queue, queueEntry{url: u, trusted: link.True})
	}

	normalizedSearch := resolver.NormalizeName(searchName)

	var pages []*link.Page

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if seen[entry.url] {
			continue
		}

		seen[entry.url] = true

		page := w.fetchPage(ctx, entry.url, entry.trusted, cfg)
		if page == nil {
			continue
		}

		pages = append(pages, page)

		for _, rel := range page.RelLinks() {
			if !cfg.externalAllowed(normalizedSearch) {
				state.NeedWarnExternal = true

				continue
			}

			if rel.Trusted == link.False && !cfg.AllowUnverified[normalizedSearch] {
				state.NeedWarnUnverified = true

				continue
			}

			if !seen[rel.URL()] {
				queue = append(queue, queueEntry{url: rel.URL(), trusted: rel.Trusted})
			}
		}
	}

	return pages
}

// fetchPage applies the page-fetching rules of spec §4.E, returning nil
// on any rejection or error.
func (w *Walker) fetchPage(ctx context.Context, rawURL string, trusted link.Tristate, cfg Config) *link.Page {
	if u, err := url.Parse(rawURL); err == nil && u.Fragment != "" {
		u.Fragment = ""
		rawURL = u.String()
	}

	lower := strings.ToLower(rawURL)
	for _, prefix := range vcsPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}

	if strings.HasPrefix(rawURL, "file://") {
		if path, err := filePathFromURL(rawURL); err == nil {
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				rawURL = strings.TrimSuffix(rawURL, "/") + "/index.html"
			}
		}
	}

	if archiveLooking(rawURL) {
		resp, err := w.Session.Head(ctx, rawURL)
		if err != nil {
			cfg.logger().Debug("dropping page", slog.String("url", rawURL),
				slog.String("error", xerrors.Errorf("probing %s: %w", rawURL, err).Error()))

			return nil
		}

		if !strings.HasPrefix(resp.ContentType, "text/html") {
			return nil
		}
	}

	resp, err := w.Session.Get(ctx, rawURL, map[string]string{
		"Accept":        "text/html",
		"Cache-Control": "max-age=600",
	})
	if err != nil {
		cfg.logger().Debug("dropping page", slog.String("url", rawURL),
			slog.String("error", xerrors.Errorf("fetching %s: %w", rawURL, err).Error()))

		return nil
	}

	if !strings.HasPrefix(resp.ContentType, "text/html") {
		return nil
	}

	page, err := link.NewPage(string(resp.Body), resp.FinalURL, trusted)
	if err != nil {
		cfg.logger().Debug("dropping page", slog.String("url", rawURL),
			slog.String("error", xerrors.Errorf("parsing %s: %w", rawURL, err).Error()))

		return nil
	}

	return page
}

func archiveLooking(rawURL string) bool {
	filename := rawURL
	if idx := strings.LastIndexByte(rawURL, '/'); idx >= 0 {
		filename = rawURL[idx+1:]
	}

	_, ext := link.SplitExt(filename, true)

	return ext != ""
}
