package axml

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/axml/axmltest"
)

// collect decodes every token in doc.
func collect(t *testing.T, doc []byte) []Token {
	t.Helper()

	d := NewDecoder(bytes.NewReader(doc))
	var tokens []Token
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return tokens
		}
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		tokens = append(tokens, tok)
	}
}

func TestDecoderElements(t *testing.T) {
	for _, utf8 := range []bool{false, true} {
		name := "utf16"
		if utf8 {
			name = "utf8"
		}
		t.Run(name, func(t *testing.T) {
			doc := axmltest.New()
			if utf8 {
				doc.UTF8()
			}
			doc.Namespace("android", axmltest.AndroidNS).
				Start("manifest",
					axmltest.String("", "package", 0, "org.example.ünïcode"),
					axmltest.Int(axmltest.AndroidNS, "versionCode", AttrVersionCode, 42),
				).
				Start("application").
				End("application").
				End("manifest")

			tokens := collect(t, doc.Bytes())
			if len(tokens) != 4 {
				t.Fatalf("expected 4 tokens, got %d: %#v", len(tokens), tokens)
			}

			start, ok := tokens[0].(StartElement)
			if !ok {
				t.Fatalf("first token is %T, want StartElement", tokens[0])
			}
			if start.Name != "manifest" {
				t.Errorf("Name = %q, want manifest", start.Name)
			}

			pkg, ok := start.AttrByName("package")
			if !ok || pkg.Value() != "org.example.ünïcode" {
				t.Errorf("package attribute = %#v", pkg)
			}

			vc, ok := start.Attr(AttrVersionCode)
			if !ok {
				t.Fatal("versionCode attribute not found")
			}
			if vc.Namespace != axmltest.AndroidNS {
				t.Errorf("Namespace = %q, want android namespace", vc.Namespace)
			}
			if n, err := vc.Int(); err != nil || n != 42 {
				t.Errorf("Int() = %d, %v; want 42", n, err)
			}

			end, ok := tokens[3].(EndElement)
			if !ok || end.Name != "manifest" {
				t.Errorf("last token = %#v, want EndElement manifest", tokens[3])
			}
		})
	}
}

func TestDecoderStrippedNames(t *testing.T) {
	doc := axmltest.Manifest(axmltest.ManifestSpec{
		Package:    "org.example.app",
		MinSDK:     21,
		TargetSDK:  33,
		StripNames: true,
	})

	for _, tok := range collect(t, doc) {
		el, ok := tok.(StartElement)
		if !ok || el.Name != "uses-sdk" {
			continue
		}
		minSDK, ok := el.Attr(AttrMinSdkVersion)
		if !ok {
			t.Fatal("minSdkVersion not resolved through the resource map")
		}
		if minSDK.Name != "minSdkVersion" {
			t.Errorf("Name = %q, want minSdkVersion", minSDK.Name)
		}
		if n, _ := minSDK.Int(); n != 21 {
			t.Errorf("minSdkVersion = %d, want 21", n)
		}
		return
	}
	t.Fatal("uses-sdk element not found")
}

func TestAttrInt(t *testing.T) {
	tests := []struct {
		name    string
		attr    Attr
		want    int64
		wantErr bool
	}{
		{"decimal", Attr{Type: TypeIntDec, Data: 28}, 28, false},
		{"hex", Attr{Type: TypeIntHex, Data: 0x1c}, 28, false},
		{"negative", Attr{Type: TypeIntDec, Data: 0xffffffff}, -1, false},
		{"decimal string", Attr{Type: TypeString, Raw: " 19 ", HasRaw: true}, 19, false},
		{"codename", Attr{Type: TypeString, Raw: "UpsideDownCake", HasRaw: true}, 0, true},
		{"reference", Attr{Type: TypeReference, Data: 0x7f010001}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.attr.Int()
			if tt.wantErr {
				if !errors.Is(err, apkerr.ErrMalformed) {
					t.Errorf("Int() error = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Int() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Int() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAttrValue(t *testing.T) {
	tests := []struct {
		attr Attr
		want string
	}{
		{Attr{Type: TypeIntDec, Data: 7}, "7"},
		{Attr{Type: TypeIntHex, Data: 255}, "0xff"},
		{Attr{Type: TypeIntBoolean, Data: 0xffffffff}, "true"},
		{Attr{Type: TypeReference, Data: 0x7f010001}, "@0x7f010001"},
		{Attr{Type: TypeString, Raw: "1.0", HasRaw: true}, "1.0"},
	}

	for _, tt := range tests {
		if got := tt.attr.Value(); got != tt.want {
			t.Errorf("Value() = %q, want %q", got, tt.want)
		}
	}
}

func TestDecoderMalformed(t *testing.T) {
	valid := axmltest.Manifest(axmltest.ManifestSpec{Package: "org.example.app", MinSDK: 9})

	wrongType := append([]byte(nil), valid...)
	wrongType[0] = 0x02

	tests := []struct {
		name string
		doc  []byte
	}{
		{"empty", nil},
		{"plain text xml", []byte(`<?xml version="1.0"?><manifest/>`)},
		{"wrong document type", wrongType},
		{"truncated", valid[:len(valid)/2]},
		{"string pool start past chunk end", axmltest.StringPoolPastEnd()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(bytes.NewReader(tt.doc))
			var err error
			for err == nil {
				_, err = d.Token()
			}
			if err == io.EOF {
				t.Fatal("expected a malformed error, got clean EOF")
			}
			if !errors.Is(err, apkerr.ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}
