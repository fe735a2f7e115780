package axml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// maxChunkSize bounds a single chunk read into memory.
const maxChunkSize = 16 << 20

// Decoder reads tokens from a binary XML stream.
type Decoder struct {
	r         *bufio.Reader
	started   bool
	remaining int64 // bytes left in the document after the file header
	strings   []string
	resIDs    []uint32
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Token returns the next start or end element. It returns io.EOF after the
// last chunk. Structural errors wrap apkerr.ErrMalformed.
func (d *Decoder) Token() (Token, error) {
	if !d.started {
		if err := d.readFileHeader(); err != nil {
			return nil, err
		}
		d.started = true
	}

	for d.remaining > 0 {
		typ, header, body, err := d.readChunk()
		if err != nil {
			return nil, err
		}

		switch typ {
		case chunkStringPool:
			if err := d.readStringPool(header, body); err != nil {
				return nil, err
			}
		case chunkResourceMap:
			d.readResourceMap(body)
		case chunkStartElement:
			return d.readStartElement(body)
		case chunkEndElement:
			return d.readEndElement(body)
		case chunkStartNamespace, chunkEndNamespace, chunkCDATA:
			// attribute namespaces reference the uri string directly
		default:
			// unknown chunks are skipped
		}
	}
	return nil, io.EOF
}

func (d *Decoder) readFileHeader() error {
	var hdr [8]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return fmt.Errorf("failed to read document header: %w: %w", apkerr.ErrMalformed, err)
	}

	typ := le.Uint16(hdr[0:])
	headerSize := le.Uint16(hdr[2:])
	size := le.Uint32(hdr[4:])
	if typ != chunkXML {
		return fmt.Errorf("not a binary xml document (type 0x%04x): %w", typ, apkerr.ErrMalformed)
	}
	if headerSize < 8 || uint32(headerSize) > size {
		return fmt.Errorf("invalid document header size %d: %w", headerSize, apkerr.ErrMalformed)
	}
	if _, err := io.CopyN(io.Discard, d.r, int64(headerSize)-8); err != nil {
		return fmt.Errorf("failed to read document header: %w: %w", apkerr.ErrMalformed, err)
	}

	d.remaining = int64(size) - int64(headerSize)
	return nil
}

// readChunk reads one whole chunk. header holds the chunk's header bytes
// (including the common 8 byte prefix) and body the bytes after it.
func (d *Decoder) readChunk() (uint16, []byte, []byte, error) {
	if d.remaining < 8 {
		return 0, nil, nil, fmt.Errorf("trailing %d bytes after last chunk: %w", d.remaining, apkerr.ErrMalformed)
	}

	var prefix [8]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read chunk header: %w: %w", apkerr.ErrMalformed, err)
	}

	typ := le.Uint16(prefix[0:])
	headerSize := uint32(le.Uint16(prefix[2:]))
	size := le.Uint32(prefix[4:])
	if headerSize < 8 || size < headerSize || int64(size) > d.remaining || size > maxChunkSize {
		return 0, nil, nil, fmt.Errorf("invalid chunk 0x%04x (header %d, size %d): %w", typ, headerSize, size, apkerr.ErrMalformed)
	}

	chunk := make([]byte, size)
	copy(chunk, prefix[:])
	if _, err := io.ReadFull(d.r, chunk[8:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, nil, fmt.Errorf("failed to read chunk 0x%04x: %w: %w", typ, apkerr.ErrMalformed, err)
	}

	d.remaining -= int64(size)
	return typ, chunk[:headerSize], chunk[headerSize:], nil
}

const utf8Flag = 1 << 8

func (d *Decoder) readStringPool(header, body []byte) error {
	if len(header) < 28 {
		return fmt.Errorf("string pool header too short: %w", apkerr.ErrMalformed)
	}

	count := le.Uint32(header[8:])
	flags := le.Uint32(header[16:])
	stringsStart := le.Uint32(header[20:])

	// Offsets in the header are relative to the chunk start; body starts
	// after the header.
	hlen := uint32(len(header))
	if uint64(count)*4 > uint64(len(body)) || stringsStart < hlen || stringsStart-hlen > uint32(len(body)) {
		return fmt.Errorf("string pool offsets out of range: %w", apkerr.ErrMalformed)
	}
	data := body[stringsStart-hlen:]

	d.strings = make([]string, count)
	for i := uint32(0); i < count; i++ {
		off := le.Uint32(body[i*4:])
		if off >= uint32(len(data)) {
			return fmt.Errorf("string %d offset out of range: %w", i, apkerr.ErrMalformed)
		}
		var (
			s   string
			err error
		)
		if flags&utf8Flag != 0 {
			s, err = decodeUTF8(data[off:])
		} else {
			s, err = decodeUTF16(data[off:])
		}
		if err != nil {
			return fmt.Errorf("string %d: %w", i, err)
		}
		d.strings[i] = s
	}
	return nil
}

func decodeUTF8(b []byte) (string, error) {
	// utf-16 length first, then utf-8 byte length, each 1 or 2 bytes
	_, n, ok := utf8Length(b)
	if !ok {
		return "", fmt.Errorf("truncated length: %w", apkerr.ErrMalformed)
	}
	size, m, ok := utf8Length(b[n:])
	if !ok {
		return "", fmt.Errorf("truncated length: %w", apkerr.ErrMalformed)
	}
	start := n + m
	if start+size > len(b) {
		return "", fmt.Errorf("truncated string: %w", apkerr.ErrMalformed)
	}
	return string(b[start : start+size]), nil
}

func utf8Length(b []byte) (int, int, bool) {
	if len(b) < 1 {
		return 0, 0, false
	}
	if b[0]&0x80 == 0 {
		return int(b[0]), 1, true
	}
	if len(b) < 2 {
		return 0, 0, false
	}
	return int(b[0]&0x7f)<<8 | int(b[1]), 2, true
}

func decodeUTF16(b []byte) (string, error) {
	if len(b) < 2 {
		return "", fmt.Errorf("truncated length: %w", apkerr.ErrMalformed)
	}
	n := int(le.Uint16(b))
	start := 2
	if n&0x8000 != 0 {
		if len(b) < 4 {
			return "", fmt.Errorf("truncated length: %w", apkerr.ErrMalformed)
		}
		n = (n&0x7fff)<<16 | int(le.Uint16(b[2:]))
		start = 4
	}
	if start+n*2 > len(b) {
		return "", fmt.Errorf("truncated string: %w", apkerr.ErrMalformed)
	}

	units := make([]uint16, n)
	for i := range units {
		units[i] = le.Uint16(b[start+i*2:])
	}
	return string(utf16.Decode(units)), nil
}

func (d *Decoder) readResourceMap(body []byte) {
	d.resIDs = make([]uint32, len(body)/4)
	for i := range d.resIDs {
		d.resIDs[i] = le.Uint32(body[i*4:])
	}
}

func (d *Decoder) str(idx uint32) string {
	if idx == noIndex || idx >= uint32(len(d.strings)) {
		return ""
	}
	return d.strings[idx]
}

func (d *Decoder) resourceID(idx uint32) uint32 {
	if idx == noIndex || idx >= uint32(len(d.resIDs)) {
		return 0
	}
	return d.resIDs[idx]
}

func (d *Decoder) readStartElement(body []byte) (Token, error) {
	if len(body) < 20 {
		return nil, fmt.Errorf("start element too short: %w", apkerr.ErrMalformed)
	}

	el := StartElement{
		Namespace: d.str(le.Uint32(body[0:])),
		Name:      d.str(le.Uint32(body[4:])),
	}
	attrStart := int(le.Uint16(body[8:]))
	attrSize := int(le.Uint16(body[10:]))
	attrCount := int(le.Uint16(body[12:]))
	if attrCount > 0 && (attrSize < 20 || attrStart+attrCount*attrSize > len(body)) {
		return nil, fmt.Errorf("element %s attributes out of range: %w", el.Name, apkerr.ErrMalformed)
	}

	el.Attrs = make([]Attr, 0, attrCount)
	for i := 0; i < attrCount; i++ {
		b := body[attrStart+i*attrSize:]
		nameIdx := le.Uint32(b[4:])
		rawIdx := le.Uint32(b[8:])

		a := Attr{
			Namespace:  d.str(le.Uint32(b[0:])),
			Name:       d.str(nameIdx),
			ResourceID: d.resourceID(nameIdx),
			Type:       ValueType(b[15]),
			Data:       le.Uint32(b[16:]),
		}
		if a.Name == "" && a.ResourceID != 0 {
			a.Name = attrNames[a.ResourceID]
		}
		if rawIdx != noIndex && rawIdx < uint32(len(d.strings)) {
			a.Raw = d.strings[rawIdx]
			a.HasRaw = true
		} else if a.Type == TypeString {
			a.Raw = d.str(a.Data)
			a.HasRaw = true
		}
		el.Attrs = append(el.Attrs, a)
	}

	return el, nil
}

func (d *Decoder) readEndElement(body []byte) (Token, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("end element too short: %w", apkerr.ErrMalformed)
	}
	return EndElement{
		Namespace: d.str(le.Uint32(body[0:])),
		Name:      d.str(le.Uint32(body[4:])),
	}, nil
}
