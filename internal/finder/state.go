package finder

// SearchState is the mutable bookkeeping scoped to one FindRequirement
// call (spec §3 "transient flags", §5 "owns two mutable pieces of
// state"). It is passed explicitly through the filter rather than
// attached to the Selector, keeping FilterLink pure given its inputs
// (spec §9 "Shared mutable state").
type SearchState struct {
	loggedLinks map[string]bool

	NeedWarnExternal   bool
	NeedWarnUnverified bool
}

// NewSearchState returns a SearchState ready for a single search.
func NewSearchState() *SearchState {
	return &SearchState{loggedLinks: make(map[string]bool)}
}

// LogOnce reports whether this is the first time (url, reason) has been
// seen during this search, recording it so subsequent calls return
// false (spec §8 invariant 6: "logged_links ensures each 'skipping'
// debug line is emitted at most once per Link per search").
func (s *SearchState) LogOnce(url, reason string) bool {
	key := url + "\x00" + reason
	if s.loggedLinks[key] {
		return false
	}

	s.loggedLinks[key] = true

	return true
}
