package locale

import (
	"slices"
	"sort"
	"strings"
)

// Era selects the fallback policy. It describes the platform the
// preference comes from.
type Era int

const (
	// ListAware platforms expose a priority-ordered locale list.
	ListAware Era = iota

	// SingleLocale platforms expose only one locale.
	SingleLocale
)

func (e Era) String() string {
	if e == SingleLocale {
		return "single-locale"
	}
	return "list-aware"
}

// Candidates is the ordered, duplicate-free list of bundle tags to try.
type Candidates []string

type candidateSet struct {
	list Candidates
	seen map[string]bool
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]bool)}
}

func (s *candidateSet) add(tag string) {
	if tag == "" || s.seen[tag] {
		return
	}
	s.seen[tag] = true
	s.list = append(s.list, tag)
}

// BuildCandidates builds the fallback list for a preference against the
// tags of a bundle, in bundle order.
func BuildCandidates(pref Preference, tags []string, era Era) Candidates {
	if era == SingleLocale {
		return singleLocaleCandidates(pref, tags)
	}
	return listAwareCandidates(pref, tags)
}

func listAwareCandidates(pref Preference, tags []string) Candidates {
	s := primaryCandidates(pref.Primary, tags)

	prefs := append([]string(nil), pref.List...)
	if len(prefs) == 0 && pref.Primary != "" {
		prefs = []string{pref.Primary}
	}
	sort.SliceStable(prefs, func(i, j int) bool { return len(prefs[i]) < len(prefs[j]) })

	for _, p := range prefs {
		s.add(p)
		lang := Language(p)
		for _, tag := range tags {
			if tag == lang {
				s.add(tag)
				break
			}
		}
	}

	addEnglish(s, tags)
	return s.list
}

func singleLocaleCandidates(pref Preference, tags []string) Candidates {
	s := primaryCandidates(pref.Primary, tags)

	if lang := Language(pref.Primary); lang != "" {
		for _, tag := range tags {
			if strings.HasPrefix(tag, lang) {
				s.add(tag)
			}
		}
	}

	addEnglish(s, tags)
	return s.list
}

// primaryCandidates adds the primary tag and its bare language when the
// bundle has them, or else every tag sharing the language.
func primaryCandidates(primary string, tags []string) *candidateSet {
	s := newCandidateSet()
	lang := Language(primary)

	if primary != "" && slices.Contains(tags, primary) {
		s.add(primary)
	}
	if lang != "" && slices.Contains(tags, lang) {
		s.add(lang)
	}
	if len(s.list) == 0 && lang != "" {
		for _, tag := range tags {
			if Language(tag) == lang {
				s.add(tag)
			}
		}
	}
	return s
}

func addEnglish(s *candidateSet, tags []string) {
	if slices.Contains(tags, "en-US") {
		s.add("en-US")
	}
	for _, tag := range tags {
		if strings.HasPrefix(tag, "en") {
			s.add(tag)
			break
		}
	}
}
