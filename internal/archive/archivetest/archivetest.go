// Package archivetest writes package archive fixtures for tests: a zip
// with a manifest entry, arbitrary extra entries and, optionally, a v1 JAR
// signature made from a self-signed certificate.
package archivetest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/smallstep/pkcs7"
)

// Options describes the archive to write.
type Options struct {
	// Manifest is the content of AndroidManifest.xml. The entry is omitted
	// when nil.
	Manifest []byte

	// Entries are extra entries written after the manifest, in name order.
	Entries map[string][]byte

	// Signer signs the manifest entry when non-nil.
	Signer *x509.Certificate

	// TamperDigest records a wrong digest for the manifest entry.
	TamperDigest bool

	// UnlistedManifest writes signature files that do not cover the
	// manifest entry.
	UnlistedManifest bool
}

// NewCertificate returns a self-signed certificate with the given common
// name.
func NewCertificate(t testing.TB, commonName string) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return cert
}

// Write creates the archive at path.
func Write(t testing.TB, path string, opts Options) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	write := func(name string, data []byte) {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}

	if opts.Manifest != nil {
		write("AndroidManifest.xml", opts.Manifest)
	}

	names := make([]string, 0, len(opts.Entries))
	for name := range opts.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, opts.Entries[name])
	}

	if opts.Signer != nil {
		write("META-INF/MANIFEST.MF", []byte(jarManifest(opts)))
		write("META-INF/CERT.SF", []byte("Signature-Version: 1.0\r\nCreated-By: archivetest\r\n\r\n"))

		block, err := pkcs7.DegenerateCertificate(opts.Signer.Raw)
		if err != nil {
			t.Fatalf("failed to build signature block: %v", err)
		}
		write("META-INF/CERT.RSA", block)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
}

// jarManifest renders META-INF/MANIFEST.MF. The digest line is wrapped at
// 72 bytes the way jarsigner does.
func jarManifest(opts Options) string {
	var sb strings.Builder
	sb.WriteString("Manifest-Version: 1.0\r\nCreated-By: archivetest\r\n\r\n")

	name := "AndroidManifest.xml"
	if opts.UnlistedManifest {
		name = "classes.dex"
	}

	sum := sha256.Sum256(opts.Manifest)
	if opts.TamperDigest {
		sum[0] ^= 0xff
	}

	sb.WriteString(wrap(fmt.Sprintf("Name: %s", name)))
	sb.WriteString(wrap("SHA-256-Digest: " + base64.StdEncoding.EncodeToString(sum[:])))
	sb.WriteString("\r\n")
	return sb.String()
}

func wrap(line string) string {
	var sb strings.Builder
	for len(line) > 70 {
		sb.WriteString(line[:70])
		sb.WriteString("\r\n ")
		line = line[70:]
	}
	sb.WriteString(line)
	sb.WriteString("\r\n")
	return sb.String()
}
