package locale

import (
	"strings"
)

// Field names of a localized block.
const (
	FieldName                 = "name"
	FieldSummary              = "summary"
	FieldDescription          = "description"
	FieldWhatsNew             = "whatsNew"
	FieldVideo                = "video"
	FieldIcon                 = "icon"
	FieldFeatureGraphic       = "featureGraphic"
	FieldPromoGraphic         = "promoGraphic"
	FieldTVBanner             = "tvBanner"
	FieldPhoneScreenshots     = "phoneScreenshots"
	FieldSevenInchScreenshots = "sevenInchScreenshots"
	FieldTenInchScreenshots   = "tenInchScreenshots"
	FieldTVScreenshots        = "tvScreenshots"
	FieldWearScreenshots      = "wearScreenshots"
)

// Item is one value of a list field together with where it came from.
type Item struct {
	Locale string `json:"locale"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// Path returns the asset path relative to the package directory.
func (i Item) Path() string {
	return i.Locale + "/" + i.Field + "/" + i.Value
}

// String returns the first non-empty string value of field.
func (c Candidates) String(b *Bundle, field string) string {
	_, v := c.firstString(b, field)
	return v
}

// Graphic returns the first non-empty graphic of field as locale/value.
func (c Candidates) Graphic(b *Bundle, field string) string {
	tag, v := c.firstString(b, field)
	if v == "" {
		return ""
	}
	return tag + "/" + v
}

func (c Candidates) firstString(b *Bundle, field string) (string, string) {
	for _, tag := range c {
		f, ok := b.Fields(tag)
		if !ok {
			continue
		}
		if s, ok := f[field].(string); ok && s != "" {
			return tag, s
		}
	}
	return "", ""
}

// List returns the items of the first non-empty list of field. The result
// is never nil.
func (c Candidates) List(b *Bundle, field string) []Item {
	for _, tag := range c {
		f, ok := b.Fields(tag)
		if !ok {
			continue
		}
		values, ok := f[field].([]string)
		if !ok || len(values) == 0 {
			continue
		}
		items := make([]Item, len(values))
		for i, v := range values {
			items[i] = Item{Locale: tag, Field: field, Value: v}
		}
		return items
	}
	return []Item{}
}

// Localized holds the resolved metadata of one app.
type Localized struct {
	Candidates Candidates `json:"candidates"`

	Name        string `json:"name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	WhatsNew    string `json:"whats_new,omitempty"`
	Video       string `json:"video,omitempty"`

	Icon           string `json:"icon,omitempty"`
	FeatureGraphic string `json:"feature_graphic,omitempty"`
	PromoGraphic   string `json:"promo_graphic,omitempty"`
	TVBanner       string `json:"tv_banner,omitempty"`

	PhoneScreenshots     []Item `json:"phone_screenshots"`
	SevenInchScreenshots []Item `json:"seven_inch_screenshots"`
	TenInchScreenshots   []Item `json:"ten_inch_screenshots"`
	TVScreenshots        []Item `json:"tv_screenshots"`
	WearScreenshots      []Item `json:"wear_screenshots"`
}

// Resolve builds the candidate list once and resolves every field
// against it. A nil bundle resolves to empty values.
func Resolve(b *Bundle, pref Preference, era Era) Localized {
	c := BuildCandidates(pref, b.Tags(), era)
	return Localized{
		Candidates:           c,
		Name:                 c.String(b, FieldName),
		Summary:              c.String(b, FieldSummary),
		Description:          FormatDescription(c.String(b, FieldDescription)),
		WhatsNew:             c.String(b, FieldWhatsNew),
		Video:                c.String(b, FieldVideo),
		Icon:                 c.Graphic(b, FieldIcon),
		FeatureGraphic:       c.Graphic(b, FieldFeatureGraphic),
		PromoGraphic:         c.Graphic(b, FieldPromoGraphic),
		TVBanner:             c.Graphic(b, FieldTVBanner),
		PhoneScreenshots:     c.List(b, FieldPhoneScreenshots),
		SevenInchScreenshots: c.List(b, FieldSevenInchScreenshots),
		TenInchScreenshots:   c.List(b, FieldTenInchScreenshots),
		TVScreenshots:        c.List(b, FieldTVScreenshots),
		WearScreenshots:      c.List(b, FieldWearScreenshots),
	}
}

// Screenshots returns all screenshots: phone, 7", 10", TV then wear.
func (l Localized) Screenshots() []Item {
	var all []Item
	for _, list := range [][]Item{
		l.PhoneScreenshots,
		l.SevenInchScreenshots,
		l.TenInchScreenshots,
		l.TVScreenshots,
		l.WearScreenshots,
	} {
		all = append(all, list...)
	}
	return all
}

// FormatDescription replaces newlines with <br>.
func FormatDescription(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}

// AssetURL joins a repository address, a package and an asset path.
func AssetURL(base, packageName, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + packageName + "/" + path
}
