// Package locale resolves localized catalog metadata against a user's
// locale preference.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Preference is the user's locale preference. Primary is the default
// locale; List is the full priority list on platforms that have one.
type Preference struct {
	Primary string   `yaml:"primary" json:"primary"`
	List    []string `yaml:"list,omitempty" json:"list,omitempty"`
}

// ParsePreference normalizes the primary tag and the list. Tags that
// cannot be normalized are dropped from the list.
func ParsePreference(primary string, list ...string) Preference {
	p := Preference{Primary: Normalize(primary)}
	for _, tag := range list {
		if n := Normalize(tag); n != "" {
			p.List = append(p.List, n)
		}
	}
	return p
}

// FromEnv derives a preference from POSIX locale variables. LANGUAGE
// supplies the priority list when set.
func FromEnv(getenv func(string) string) Preference {
	var primary string
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			primary = v
			break
		}
	}

	var list []string
	if v := getenv("LANGUAGE"); v != "" {
		list = strings.Split(v, ":")
	}

	p := ParsePreference(primary, list...)
	if p.Primary == "" && len(p.List) > 0 {
		p.Primary = p.List[0]
	}
	return p
}

// Normalize turns a locale identifier such as "de_AT.UTF-8" or "de-at"
// into a language-COUNTRY tag ("de-AT"), or a bare language ("de") when no
// country is given. It returns "" for the C and POSIX locales.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "C" || tag == "POSIX" {
		return ""
	}
	tag = strings.ReplaceAll(tag, "_", "-")

	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}

	base, _ := t.Base()
	lang := base.String()
	// Parse rewrites deprecated codes; catalogs still key on them.
	if in := strings.ToLower(strings.SplitN(tag, "-", 2)[0]); legacyLanguages[in] {
		lang = in
	}

	region, conf := t.Region()
	if conf == language.Exact {
		return lang + "-" + region.String()
	}
	return lang
}

// legacyLanguages are deprecated language codes that language.Parse
// replaces (iw with he, in with id, ji with yi).
var legacyLanguages = map[string]bool{"iw": true, "in": true, "ji": true}

// Language returns the bare language of a tag: "de" for "de-AT".
func Language(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}
