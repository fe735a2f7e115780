// Package axmltest encodes binary XML documents for tests.
package axmltest

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// AndroidNS is the framework attribute namespace.
const AndroidNS = "http://schemas.android.com/apk/res/android"

const noIndex = 0xFFFFFFFF

var le = binary.LittleEndian

// Attr is an attribute to encode.
type Attr struct {
	Namespace  string
	Name       string
	ResourceID uint32
	Raw        string
	HasRaw     bool
	Type       uint8
	Data       uint32
}

// Int returns an integer typed attribute.
func Int(ns, name string, resourceID uint32, v int32) Attr {
	return Attr{Namespace: ns, Name: name, ResourceID: resourceID, Type: 0x10, Data: uint32(v)}
}

// String returns a string attribute.
func String(ns, name string, resourceID uint32, v string) Attr {
	return Attr{Namespace: ns, Name: name, ResourceID: resourceID, Raw: v, HasRaw: true, Type: 0x03}
}

type event struct {
	start  bool
	name   string
	attrs  []Attr
	prefix string
	uri    string
	isNS   bool
}

// Document accumulates elements and encodes them.
type Document struct {
	events []event
	utf8   bool
}

// New returns an empty document using a UTF-16 string pool.
func New() *Document {
	return &Document{}
}

// UTF8 switches the string pool to UTF-8.
func (d *Document) UTF8() *Document {
	d.utf8 = true
	return d
}

// Namespace declares a namespace for the rest of the document.
func (d *Document) Namespace(prefix, uri string) *Document {
	d.events = append(d.events, event{isNS: true, prefix: prefix, uri: uri})
	return d
}

// Start opens an element.
func (d *Document) Start(name string, attrs ...Attr) *Document {
	d.events = append(d.events, event{start: true, name: name, attrs: attrs})
	return d
}

// End closes an element.
func (d *Document) End(name string) *Document {
	d.events = append(d.events, event{name: name})
	return d
}

type pool struct {
	slots  []string
	index  map[string]uint32
	resIDs []uint32
}

func (p *pool) add(key, value string) uint32 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := uint32(len(p.slots))
	p.slots = append(p.slots, value)
	p.index[key] = idx
	return idx
}

func (p *pool) str(s string) uint32 {
	if s == "" {
		return noIndex
	}
	return p.add("str:"+s, s)
}

func (p *pool) attrName(a Attr) uint32 {
	if a.ResourceID != 0 {
		return p.index[fmt.Sprintf("res:%x", a.ResourceID)]
	}
	return p.str(a.Name)
}

// Bytes encodes the document.
func (d *Document) Bytes() []byte {
	p := &pool{index: make(map[string]uint32)}

	// Names with resource ids come first so the resource map lines up
	// with their string indexes.
	for _, ev := range d.events {
		for _, a := range ev.attrs {
			if a.ResourceID == 0 {
				continue
			}
			key := fmt.Sprintf("res:%x", a.ResourceID)
			if _, ok := p.index[key]; !ok {
				p.add(key, a.Name)
				p.resIDs = append(p.resIDs, a.ResourceID)
			}
		}
	}

	var nodes []byte
	var namespaces []event
	for _, ev := range d.events {
		switch {
		case ev.isNS:
			namespaces = append(namespaces, ev)
			nodes = append(nodes, namespaceChunk(0x0100, p.str(ev.prefix), p.str(ev.uri))...)
		case ev.start:
			nodes = append(nodes, startChunk(p, ev)...)
		default:
			nodes = append(nodes, endChunk(p.str(ev.name))...)
		}
	}
	for i := len(namespaces) - 1; i >= 0; i-- {
		ns := namespaces[i]
		nodes = append(nodes, namespaceChunk(0x0101, p.str(ns.prefix), p.str(ns.uri))...)
	}

	body := stringPoolChunk(p.slots, d.utf8)
	if len(p.resIDs) > 0 {
		body = append(body, resourceMapChunk(p.resIDs)...)
	}
	body = append(body, nodes...)

	out := header(0x0003, 8, uint32(8+len(body)))
	return append(out, body...)
}

func header(typ, headerSize uint16, size uint32) []byte {
	b := make([]byte, 8)
	le.PutUint16(b[0:], typ)
	le.PutUint16(b[2:], headerSize)
	le.PutUint32(b[4:], size)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return b
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	le.PutUint16(b, v)
	return b
}

func stringPoolChunk(slots []string, utf8 bool) []byte {
	var data []byte
	offsets := make([]uint32, len(slots))
	for i, s := range slots {
		offsets[i] = uint32(len(data))
		if utf8 {
			data = append(data, utf8Len(len(utf16.Encode([]rune(s))))...)
			data = append(data, utf8Len(len(s))...)
			data = append(data, s...)
			data = append(data, 0)
		} else {
			units := utf16.Encode([]rune(s))
			data = append(data, u16(uint16(len(units)))...)
			for _, u := range units {
				data = append(data, u16(u)...)
			}
			data = append(data, 0, 0)
		}
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	const headerSize = 28
	stringsStart := uint32(headerSize + 4*len(slots))
	size := stringsStart + uint32(len(data))

	var flags uint32
	if utf8 {
		flags = 1 << 8
	}

	b := header(0x0001, headerSize, size)
	b = append(b, u32(uint32(len(slots)))...)
	b = append(b, u32(0)...) // style count
	b = append(b, u32(flags)...)
	b = append(b, u32(stringsStart)...)
	b = append(b, u32(0)...) // styles start
	for _, off := range offsets {
		b = append(b, u32(off)...)
	}
	return append(b, data...)
}

func utf8Len(n int) []byte {
	if n > 0x7f {
		return []byte{byte(n>>8) | 0x80, byte(n)}
	}
	return []byte{byte(n)}
}

func resourceMapChunk(ids []uint32) []byte {
	b := header(0x0180, 8, uint32(8+4*len(ids)))
	for _, id := range ids {
		b = append(b, u32(id)...)
	}
	return b
}

func nodeHeader(typ uint16, size uint32) []byte {
	b := header(typ, 16, size)
	b = append(b, u32(1)...) // line number
	return append(b, u32(noIndex)...)
}

func namespaceChunk(typ uint16, prefix, uri uint32) []byte {
	b := nodeHeader(typ, 24)
	b = append(b, u32(prefix)...)
	return append(b, u32(uri)...)
}

func startChunk(p *pool, ev event) []byte {
	size := uint32(16 + 20 + 20*len(ev.attrs))
	b := nodeHeader(0x0102, size)
	b = append(b, u32(noIndex)...)
	b = append(b, u32(p.str(ev.name))...)
	b = append(b, u16(20)...) // attribute start
	b = append(b, u16(20)...) // attribute size
	b = append(b, u16(uint16(len(ev.attrs)))...)
	b = append(b, u16(0)...)
	b = append(b, u16(0)...)
	b = append(b, u16(0)...)

	for _, a := range ev.attrs {
		raw := uint32(noIndex)
		data := a.Data
		if a.HasRaw {
			raw = p.add("str:"+a.Raw, a.Raw)
			if a.Type == 0x03 {
				data = raw
			}
		}
		b = append(b, u32(p.str(a.Namespace))...)
		b = append(b, u32(p.attrName(a))...)
		b = append(b, u32(raw)...)
		b = append(b, u16(8)...)
		b = append(b, 0, a.Type)
		b = append(b, u32(data)...)
	}
	return b
}

func endChunk(name uint32) []byte {
	b := nodeHeader(0x0103, 24)
	b = append(b, u32(noIndex)...)
	return append(b, u32(name)...)
}

// ManifestSpec describes a compiled manifest.
type ManifestSpec struct {
	Package     string
	VersionCode int32
	VersionName string

	// SDK attributes are omitted when zero.
	MinSDK    int32
	TargetSDK int32
	MaxSDK    int32

	// OmitUsesSDK leaves out the uses-sdk element entirely.
	OmitUsesSDK bool

	// StripNames clears framework attribute names from the string pool,
	// leaving only their resource ids.
	StripNames bool

	Permissions []string
	Features    []string
}

// Manifest encodes a manifest document.
func Manifest(spec ManifestSpec) []byte {
	name := func(n string) string {
		if spec.StripNames {
			return ""
		}
		return n
	}

	root := []Attr{
		Int(AndroidNS, name("versionCode"), 0x0101021b, spec.VersionCode),
		String(AndroidNS, name("versionName"), 0x0101021c, spec.VersionName),
		String("", "package", 0, spec.Package),
	}

	d := New().Namespace("android", AndroidNS).Start("manifest", root...)

	if !spec.OmitUsesSDK {
		var sdk []Attr
		if spec.MinSDK != 0 {
			sdk = append(sdk, Int(AndroidNS, name("minSdkVersion"), 0x0101020c, spec.MinSDK))
		}
		if spec.TargetSDK != 0 {
			sdk = append(sdk, Int(AndroidNS, name("targetSdkVersion"), 0x01010270, spec.TargetSDK))
		}
		if spec.MaxSDK != 0 {
			sdk = append(sdk, Int(AndroidNS, name("maxSdkVersion"), 0x01010271, spec.MaxSDK))
		}
		d.Start("uses-sdk", sdk...).End("uses-sdk")
	}

	for _, perm := range spec.Permissions {
		d.Start("uses-permission", String(AndroidNS, name("name"), 0x01010003, perm)).End("uses-permission")
	}
	for _, feat := range spec.Features {
		d.Start("uses-feature", String(AndroidNS, name("name"), 0x01010003, feat)).End("uses-feature")
	}

	d.Start("application").End("application")
	d.End("manifest")
	return d.Bytes()
}

// StringPoolPastEnd returns a document whose only string pool claims its
// string data starts beyond the end of the chunk.
func StringPoolPastEnd() []byte {
	var pool []byte
	pool = append(pool, header(0x0001, 28, 32)...)
	pool = append(pool, u32(1)...)    // string count
	pool = append(pool, u32(0)...)    // style count
	pool = append(pool, u32(0)...)    // flags
	pool = append(pool, u32(1000)...) // strings start
	pool = append(pool, u32(0)...)    // styles start
	pool = append(pool, u32(0)...)    // offset of string 0

	out := header(0x0003, 8, uint32(8+len(pool)))
	return append(out, pool...)
}
