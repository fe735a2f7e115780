package archive

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/smallstep/pkcs7"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// ErrNotMaterialized is returned by Certificates when the entry has not
// been read to completion yet.
var ErrNotMaterialized = errors.New("entry certificates requested before the entry was read to completion")

// maxSignatureBlockSize bounds how much of a signature block file is read.
const maxSignatureBlockSize = 4 << 20

// SignedEntry is one archive entry whose signers are resolved in two
// phases: ReadFully streams the content and records its digests, and only
// then can Certificates report who signed it.
type SignedEntry struct {
	r            *zip.Reader
	file         *zip.File
	sha1Sum      []byte
	sha256Sum    []byte
	materialized bool
}

// NewSignedEntry looks up name in r. It returns ErrManifestEntryMissing
// wrapped with the name when the entry does not exist.
func NewSignedEntry(r *zip.Reader, name string) (*SignedEntry, error) {
	f := findEntry(r, name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestEntryMissing, name)
	}
	return &SignedEntry{r: r, file: f}, nil
}

// Name returns the entry name.
func (e *SignedEntry) Name() string {
	return e.file.Name
}

// ReadFully consumes the entry content to the end.
func (e *SignedEntry) ReadFully() error {
	rc, err := e.file.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w: %w", e.file.Name, apkerr.ErrMalformed, err)
	}
	defer rc.Close()

	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h1, h256), rc); err != nil {
		return fmt.Errorf("failed to read entry %s: %w: %w", e.file.Name, apkerr.ErrMalformed, err)
	}

	e.sha1Sum = h1.Sum(nil)
	e.sha256Sum = h256.Sum(nil)
	e.materialized = true
	return nil
}

// Certificates returns the certificates of every signature block covering
// the entry, in signature block name order. The entry must have been read
// with ReadFully first.
func (e *SignedEntry) Certificates() ([]*x509.Certificate, error) {
	if !e.materialized {
		return nil, ErrNotMaterialized
	}

	mf := findEntry(e.r, jarManifestPath)
	if mf == nil {
		return nil, fmt.Errorf("%w: no %s", ErrNoCertificate, jarManifestPath)
	}
	manifest, err := readJarManifest(mf)
	if err != nil {
		return nil, err
	}

	attrs, ok := manifest.section(e.file.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s not listed in %s", ErrNoCertificate, e.file.Name, jarManifestPath)
	}
	if err := e.checkDigests(attrs); err != nil {
		return nil, err
	}

	var certs []*x509.Certificate
	var parseErrs []error
	for _, block := range signatureBlocks(e.r) {
		blockCerts, err := readSignatureBlock(block)
		if err != nil {
			parseErrs = append(parseErrs, err)
			continue
		}
		certs = append(certs, blockCerts...)
	}

	if len(certs) == 0 {
		if len(parseErrs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoCertificate, errors.Join(parseErrs...))
		}
		return nil, ErrNoCertificate
	}
	return certs, nil
}

// checkDigests compares the streamed digests against the ones recorded in
// the signing manifest. Unknown digest algorithms are ignored.
func (e *SignedEntry) checkDigests(attrs map[string]string) error {
	expected := []struct {
		attr string
		sum  []byte
	}{
		{"SHA-256-Digest", e.sha256Sum},
		{"SHA1-Digest", e.sha1Sum},
	}

	for _, ex := range expected {
		encoded, ok := attrs[ex.attr]
		if !ok {
			continue
		}
		want, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return fmt.Errorf("invalid %s for %s: %w", ex.attr, e.file.Name, apkerr.ErrMalformed)
		}
		if !bytes.Equal(want, ex.sum) {
			return fmt.Errorf("%s mismatch for %s: %w", ex.attr, e.file.Name, apkerr.ErrMalformed)
		}
	}
	return nil
}

func readJarManifest(f *zip.File) (*jarManifest, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w: %w", f.Name, apkerr.ErrMalformed, err)
	}
	defer rc.Close()
	return parseJarManifest(rc)
}

// signatureBlocks returns the PKCS#7 signature block entries directly
// under META-INF, sorted by name.
func signatureBlocks(r *zip.Reader) []*zip.File {
	var blocks []*zip.File
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		base := strings.TrimPrefix(f.Name, "META-INF/")
		if strings.Contains(base, "/") {
			continue
		}
		upper := strings.ToUpper(base)
		if strings.HasSuffix(upper, ".RSA") || strings.HasSuffix(upper, ".DSA") || strings.HasSuffix(upper, ".EC") {
			blocks = append(blocks, f)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Name < blocks[j].Name
	})
	return blocks
}

// readSignatureBlock parses one signature block. The signer's own
// certificate, when identifiable, comes first.
func readSignatureBlock(f *zip.File) ([]*x509.Certificate, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSignatureBlockSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}

	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", f.Name, apkerr.ErrMalformed, err)
	}

	signer := p7.GetOnlySigner()
	if signer == nil {
		return p7.Certificates, nil
	}
	certs := []*x509.Certificate{signer}
	for _, c := range p7.Certificates {
		if !c.Equal(signer) {
			certs = append(certs, c)
		}
	}
	return certs, nil
}
