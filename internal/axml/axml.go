// Package axml decodes the binary XML format Android uses for compiled
// manifests. It is a streaming decoder: chunks are read one at a time and
// callers stop as soon as they have seen the element they need.
package axml

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// Chunk types.
const (
	chunkStringPool     = 0x0001
	chunkXML            = 0x0003
	chunkStartNamespace = 0x0100
	chunkEndNamespace   = 0x0101
	chunkStartElement   = 0x0102
	chunkEndElement     = 0x0103
	chunkCDATA          = 0x0104
	chunkResourceMap    = 0x0180
)

// noIndex marks an absent string reference.
const noIndex = 0xFFFFFFFF

// ValueType is the type tag of an attribute's typed value.
type ValueType uint8

// Value types used by manifest attributes.
const (
	TypeNull       ValueType = 0x00
	TypeReference  ValueType = 0x01
	TypeAttribute  ValueType = 0x02
	TypeString     ValueType = 0x03
	TypeFloat      ValueType = 0x04
	TypeIntDec     ValueType = 0x10
	TypeIntHex     ValueType = 0x11
	TypeIntBoolean ValueType = 0x12
)

// Well-known framework attribute resource ids. Shrunk or obfuscated
// archives may strip attribute names from the string pool, leaving only
// these ids in the resource map.
const (
	AttrName             uint32 = 0x01010003
	AttrMinSdkVersion    uint32 = 0x0101020c
	AttrVersionCode      uint32 = 0x0101021b
	AttrVersionName      uint32 = 0x0101021c
	AttrTargetSdkVersion uint32 = 0x01010270
	AttrMaxSdkVersion    uint32 = 0x01010271
)

var attrNames = map[uint32]string{
	AttrName:             "name",
	AttrMinSdkVersion:    "minSdkVersion",
	AttrVersionCode:      "versionCode",
	AttrVersionName:      "versionName",
	AttrTargetSdkVersion: "targetSdkVersion",
	AttrMaxSdkVersion:    "maxSdkVersion",
}

// Attr is one attribute of a start element.
type Attr struct {
	Namespace  string
	Name       string
	ResourceID uint32 // 0 when the name has no resource id
	Raw        string // raw string value, empty when absent
	HasRaw     bool
	Type       ValueType
	Data       uint32
}

// Is reports whether the attribute is the framework attribute with the
// given resource id, matching by id first and by name otherwise.
func (a Attr) Is(resourceID uint32) bool {
	if a.ResourceID != 0 {
		return a.ResourceID == resourceID
	}
	return a.Name != "" && a.Name == attrNames[resourceID]
}

// Int returns the attribute value as an integer. Integer typed values are
// returned as is; string values must be decimal.
func (a Attr) Int() (int64, error) {
	switch a.Type {
	case TypeIntDec, TypeIntHex, TypeIntBoolean:
		return int64(int32(a.Data)), nil
	}
	if a.HasRaw {
		v, err := strconv.ParseInt(strings.TrimSpace(a.Raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("attribute %s value %q is not an integer: %w", a.Name, a.Raw, apkerr.ErrMalformed)
		}
		return v, nil
	}
	return 0, fmt.Errorf("attribute %s has non-integer type 0x%02x: %w", a.Name, uint8(a.Type), apkerr.ErrMalformed)
}

// Value renders the attribute value as text.
func (a Attr) Value() string {
	if a.HasRaw {
		return a.Raw
	}
	switch a.Type {
	case TypeIntDec:
		return strconv.FormatInt(int64(int32(a.Data)), 10)
	case TypeIntHex:
		return fmt.Sprintf("0x%x", a.Data)
	case TypeIntBoolean:
		return strconv.FormatBool(a.Data != 0)
	case TypeReference:
		return fmt.Sprintf("@0x%08x", a.Data)
	case TypeNull:
		return ""
	}
	return fmt.Sprintf("0x%08x", a.Data)
}

// StartElement is an opening element token.
type StartElement struct {
	Namespace string
	Name      string
	Attrs     []Attr
}

// Attr returns the first attribute matching the resource id.
func (e StartElement) Attr(resourceID uint32) (Attr, bool) {
	for _, a := range e.Attrs {
		if a.Is(resourceID) {
			return a, true
		}
	}
	return Attr{}, false
}

// AttrByName returns the first attribute with the given local name.
func (e StartElement) AttrByName(name string) (Attr, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// EndElement is a closing element token.
type EndElement struct {
	Namespace string
	Name      string
}

// Token is a StartElement or an EndElement.
type Token interface{}

var le = binary.LittleEndian
