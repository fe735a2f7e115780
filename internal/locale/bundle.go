package locale

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// Fields maps a field name to its value: a string, or a []string for list
// fields such as screenshots. Values of any other shape are ignored during
// resolution.
type Fields map[string]any

// Bundle maps locale tags to their fields. Tags keep insertion order.
type Bundle struct {
	tags   []string
	fields map[string]Fields
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{fields: make(map[string]Fields)}
}

// Set stores the fields of a tag, replacing any earlier ones.
func (b *Bundle) Set(tag string, f Fields) {
	if _, ok := b.fields[tag]; !ok {
		b.tags = append(b.tags, tag)
	}
	b.fields[tag] = f
}

// Tags returns the tags in insertion order.
func (b *Bundle) Tags() []string {
	if b == nil {
		return nil
	}
	return b.tags
}

// Fields returns the fields of a tag.
func (b *Bundle) Fields(tag string) (Fields, bool) {
	if b == nil {
		return nil, false
	}
	f, ok := b.fields[tag]
	return f, ok
}

// Len returns the number of tags.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.tags)
}

// ParseBundle parses a JSON object of tag → field object, as found under
// "localized" in a repository index.
func ParseBundle(data []byte) (*Bundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid localized JSON: %w", apkerr.ErrMalformed)
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return nil, fmt.Errorf("localized JSON is not an object: %w", apkerr.ErrMalformed)
	}
	return BundleFromJSON(r), nil
}

// BundleFromJSON builds a bundle from a parsed JSON object. Tags whose value
// is not an object are skipped.
func BundleFromJSON(r gjson.Result) *Bundle {
	b := NewBundle()
	r.ForEach(func(tag, block gjson.Result) bool {
		if !block.IsObject() {
			return true
		}
		f := Fields{}
		block.ForEach(func(name, value gjson.Result) bool {
			f[name.String()] = fieldValue(value)
			return true
		})
		b.Set(tag.String(), f)
		return true
	})
	return b
}

func fieldValue(v gjson.Result) any {
	switch {
	case v.Type == gjson.String:
		return v.String()
	case v.IsArray():
		items := []string{}
		for _, item := range v.Array() {
			if item.Type == gjson.String {
				items = append(items, item.String())
			}
		}
		return items
	default:
		return v.Value()
	}
}
