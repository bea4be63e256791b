package finder

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/bilusteknoloji/pipget/internal/link"
	"github.com/bilusteknoloji/pipget/internal/resolver"
	"github.com/bilusteknoloji/pipget/internal/transport"
)

// Selector is the merge/sort/pick entry point of spec §4.F (was
// PackageFinder.find_requirement upstream). It owns no state across
// calls; every FindRequirement call builds and discards its own
// SearchState (spec §5 "scoped to a single find_requirement call").
type Selector struct {
	Config  Config
	Walker  *Walker
	Session transport.Session
}

// NewSelector builds a Selector that fetches through session.
func NewSelector(cfg Config, session transport.Session) *Selector {
	return &Selector{Config: cfg, Walker: NewWalker(session), Session: session}
}

// candidatePools holds the finder-specific pools built in step 4 of spec
// §4.F, kept separate so the concatenation order of step 7 is explicit
// at the call site rather than buried in a single accumulator.
type candidatePools struct {
	installed  []FoundVersion
	file       []FoundVersion
	findLinks  []FoundVersion
	page       []FoundVersion
	dependency []FoundVersion
}

func (p candidatePools) nonInstalledEmpty() bool {
	return len(p.file) == 0 && len(p.findLinks) == 0 && len(p.page) == 0 && len(p.dependency) == 0
}

// FindRequirement runs the full selection algorithm for req, returning
// the chosen Link, (nil, nil) for "already satisfied, no action", or one
// of *DistributionNotFound / *BestVersionAlreadyInstalled (spec §4.F).
func (s *Selector) FindRequirement(ctx context.Context, req Requirement, upgrade bool) (*link.Link, error) {
	state := NewSearchState()

	urlName := req.URLName
	if urlName == "" {
		urlName = req.Name
	}

	var locations []Location

	if len(s.Config.IndexURLs) > 0 {
		urlName = s.resolveURLName(ctx, s.Config.IndexURLs[0], urlName)
		mainIndexURL := strings.TrimRight(s.Config.IndexURLs[0], "/") + "/" + urlName + "/"

		for _, indexURL := range s.Config.IndexURLs {
			locations = append(locations, Location{URL: strings.TrimRight(indexURL, "/") + "/" + urlName + "/"})
		}

		for _, spec := range req.Specifiers {
			if spec.Op == "==" {
				locations = append(locations, Location{URL: mainIndexURL + spec.Version})
			}
		}
	}

	for _, fl := range s.Config.FindLinks {
		locations = append(locations, Location{URL: fl, FromFindLinks: true})
	}

	files, urls := SortLocations(locations)
	WarnInsecureTransport(urls, s.Config)

	pages := s.Walker.Walk(ctx, urls, req.Name, s.Config, state)

	pools := s.buildPools(req, files, pages, state)

	if pools.nonInstalledEmpty() {
		return nil, s.notFound(req, "no downloads", nil, state)
	}

	sortDescending(pools.file, s.Config)

	combined := make([]FoundVersion, 0, len(pools.installed)+len(pools.file)+len(pools.findLinks)+len(pools.page)+len(pools.dependency))
	combined = append(combined, pools.installed...)
	combined = append(combined, pools.file...)
	combined = append(combined, pools.findLinks...)
	combined = append(combined, pools.page...)
	combined = append(combined, pools.dependency...)

	applicable, allVersions := s.applicableVersions(req, combined)
	if len(applicable) == 0 {
		return nil, s.notFound(req, "no matching version", allVersions, state)
	}

	sortDescending(applicable, s.Config)

	if !upgrade {
		for _, fv := range applicable {
			if fv.CurrentlyInstalled() {
				return nil, nil
			}
		}
	}

	top := applicable[0]

	if top.CurrentlyInstalled() {
		return nil, &BestVersionAlreadyInstalled{Name: req.Name, Version: top.Version}
	}

	chosen := top.Link

	return &chosen, nil
}

func (s *Selector) buildPools(req Requirement, files []string, pages []*link.Page, state *SearchState) candidatePools {
	var pools candidatePools

	if req.SatisfiedBy != nil {
		pools.installed = []FoundVersion{{Version: req.SatisfiedBy.Version, Link: link.Installed}}
	}

	for _, raw := range s.Config.FindLinks {
		l := link.NewTrustedLink(raw)
		if fv, ok := FilterLink(l, req.Name, s.Config, state); ok {
			pools.findLinks = append(pools.findLinks, fv)
		}
	}

	for _, p := range pages {
		for _, l := range p.Links() {
			if fv, ok := FilterLink(l, req.Name, s.Config, state); ok {
				pools.page = append(pools.page, fv)
			}
		}
	}

	if s.Config.ProcessDependencyLinks {
		for _, raw := range s.Config.DependencyLinks {
			l := link.NewLink(raw)
			if fv, ok := FilterLink(l, req.Name, s.Config, state); ok {
				pools.dependency = append(pools.dependency, fv)
			}
		}
	}

	for _, raw := range files {
		l := link.NewTrustedLink(toFileURL(raw))
		if fv, ok := FilterLink(l, req.Name, s.Config, state); ok {
			pools.file = append(pools.file, fv)
		}
	}

	return pools
}

func toFileURL(path string) string {
	if strings.HasPrefix(path, "file://") || strings.Contains(path, "://") {
		return path
	}

	return "file://" + path
}

// applicableVersions implements step 8 of spec §4.F: drop candidates
// whose version does not satisfy req, and drop pre-releases unless
// allowed — but never drop a pre-release that is the currently-installed
// candidate.
func (s *Selector) applicableVersions(req Requirement, candidates []FoundVersion) (applicable []FoundVersion, allVersions []string) {
	return ApplicableVersions(req, candidates, s.Config)
}

// ApplicableVersions is the free-function form of step 8 of spec §4.F,
// exported so a caller that already has a concrete link list (rather
// than search locations to crawl) can narrow and gate it exactly as
// FindRequirement does, without re-crawling anything.
func ApplicableVersions(req Requirement, candidates []FoundVersion, cfg Config) (applicable []FoundVersion, allVersions []string) {
	for i := range candidates {
		fv := &candidates[i]
		allVersions = append(allVersions, fv.Version)

		ok, err := req.Satisfies(fv.Version)
		if err != nil || !ok {
			continue
		}

		if fv.Prerelease() && !cfg.AllowAllPrereleases && !req.PrereleasesAllowed && !fv.CurrentlyInstalled() {
			continue
		}

		applicable = append(applicable, *fv)
	}

	return applicable, allVersions
}

// sortDescending sorts candidates by the composite key of spec §4.F step
// 9, highest-priority first, stably.
func sortDescending(candidates []FoundVersion, cfg Config) {
	Rank(candidates, cfg)
}

// Rank sorts candidates in place by the composite key of spec §4.F step
// 9 (PEP 440 version descending, then wheel-tag-index/sdist/installed
// preference), highest-priority first, stably. Exported so callers
// selecting among an already-known link list (rather than crawling) can
// reuse the same ordering FindRequirement applies internally.
func Rank(candidates []FoundVersion, cfg Config) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[j], candidates[i], cfg)
	})
}

// FilterAndRank runs every link through FilterLink against req/cfg,
// narrows to the applicable set (specifier + pre-release gating), and
// returns it ranked best-first. It is the entry point for a caller that
// already has a concrete candidate link list in hand — e.g. one built
// from a JSON package index's file listing — and wants the exact
// filtering/ranking decisions FindRequirement would apply, without
// paying for a page crawl.
func FilterAndRank(links []link.Link, req Requirement, cfg Config) []FoundVersion {
	state := NewSearchState()

	var candidates []FoundVersion

	for _, l := range links {
		if fv, ok := FilterLink(l, req.Name, cfg, state); ok {
			candidates = append(candidates, fv)
		}
	}

	applicable, _ := ApplicableVersions(req, candidates, cfg)
	Rank(applicable, cfg)

	return applicable
}

func candidateLess(a, b FoundVersion, cfg Config) bool {
	cmp, err := resolver.CompareVersions(a.Version, b.Version)
	if err != nil {
		cmp = 0
	}

	if cmp != 0 {
		return cmp < 0
	}

	return secondaryKey(a, cfg) < secondaryKey(b, cfg)
}

// secondaryKey implements the wheel-preference tiebreaker of spec §4.F
// step 9, active only when wheel support is enabled: installed beats
// everything, a wheel's rank is the negative of its support_index_min
// (so tag-index 0 ranks highest), and an sdist always ranks below every
// supported wheel.
func secondaryKey(fv FoundVersion, cfg Config) int {
	if !cfg.UseWheel {
		return 0
	}

	if fv.CurrentlyInstalled() {
		return 1
	}

	stem, ext := link.SplitExt(fv.Link.Filename(), true)
	if ext != ".whl" {
		return -len(cfg.SupportedTags)
	}

	wheel, err := resolver.ParseWheelFilename(stem)
	if err != nil {
		return -len(cfg.SupportedTags)
	}

	idx := wheel.SupportIndexMin(cfg.SupportedTags)
	if idx < 0 {
		// UnsupportedWheel (spec §7): filtering precedes sorting, so this
		// is an internal invariant violation rather than a real path.
		return -len(cfg.SupportedTags) - 1
	}

	return -idx
}

func (s *Selector) notFound(req Requirement, reason string, versions []string, state *SearchState) *DistributionNotFound {
	var warnings []string

	if state.NeedWarnExternal {
		warnings = append(warnings,
			"Some externally hosted files were ignored (pass --allow-external "+req.Name+" to allow).")
	}

	if state.NeedWarnUnverified {
		warnings = append(warnings,
			"Some insecure and unverifiable files were ignored (pass --allow-unverified "+req.Name+" to allow).")
	}

	return &DistributionNotFound{Name: req.Name, Reason: reason, Versions: versions, Warnings: warnings}
}

// resolveURLName implements step 1's _find_url_name fallback: if the
// direct GET of indexURL/urlName/ 404s, fetch the index root and look
// for a case-insensitive match among its anchors' basenames, returning
// the corrected case-preserved name on a hit (spec §4.F, §9 "never
// mutate a Link in place").
func (s *Selector) resolveURLName(ctx context.Context, indexURL, urlName string) string {
	mainIndexURL := strings.TrimRight(indexURL, "/") + "/" + urlName + "/"

	_, err := s.Session.Get(ctx, mainIndexURL, map[string]string{"Accept": "text/html"})
	if err == nil {
		return urlName
	}

	var httpErr *transport.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		return urlName
	}

	rootURL := strings.TrimRight(indexURL, "/") + "/"

	resp, err := s.Session.Get(ctx, rootURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return urlName
	}

	page, err := link.NewPage(string(resp.Body), resp.FinalURL, link.True)
	if err != nil {
		return urlName
	}

	normalizedWant := resolver.NormalizeName(urlName)

	for _, l := range page.Links() {
		if base := anchorBasename(l); resolver.NormalizeName(base) == normalizedWant {
			return base
		}
	}

	return urlName
}

func anchorBasename(l link.Link) string {
	p := strings.TrimSuffix(l.Path(), "/")
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}

	return p
}
