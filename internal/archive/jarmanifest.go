package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// jarManifestPath is the signing manifest listing per-entry digests.
const jarManifestPath = "META-INF/MANIFEST.MF"

// jarManifest holds the per-entry sections of a signing manifest, keyed by
// the section's Name attribute.
type jarManifest struct {
	entries map[string]map[string]string
}

// parseJarManifest parses the manifest's "Key: Value" sections. Lines are
// wrapped at 72 bytes; a line starting with a single space continues the
// previous one. Sections are separated by blank lines and the first
// (main) section has no Name attribute.
func parseJarManifest(r io.Reader) (*jarManifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing manifest: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	m := &jarManifest{entries: make(map[string]map[string]string)}
	section := make(map[string]string)
	var lines []string

	flush := func() {
		for _, line := range lines {
			idx := strings.Index(line, ": ")
			if idx <= 0 {
				continue // not an attribute, skip
			}
			section[line[:idx]] = line[idx+2:]
		}
		if name, ok := section["Name"]; ok {
			m.entries[name] = section
		}
		section = make(map[string]string)
		lines = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, " "):
			if len(lines) == 0 {
				return nil, fmt.Errorf("continuation line without attribute: %w", apkerr.ErrMalformed)
			}
			lines[len(lines)-1] += line[1:]
		default:
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan signing manifest: %w", err)
	}
	flush()

	return m, nil
}

// section returns the attributes listed for an entry name.
func (m *jarManifest) section(name string) (map[string]string, bool) {
	s, ok := m.entries[name]
	return s, ok
}
