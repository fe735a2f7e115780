package archive

import (
	"fmt"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// ExtractSignerCertificate returns the raw DER bytes of the first signer
// certificate of the archive's manifest entry.
//
// Errors wrap ErrArchiveUnreadable, ErrManifestEntryMissing or
// ErrNoCertificate. Only the first certificate is returned; multiple
// signers are not aggregated.
func ExtractSignerCertificate(path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	entry, err := NewSignedEntry(&rc.Reader, ManifestEntry)
	if err != nil {
		return nil, &apkerr.Error{Op: "extract certificate", Path: path, Err: err}
	}

	if err := entry.ReadFully(); err != nil {
		return nil, &apkerr.Error{Op: "extract certificate", Path: path, Err: err}
	}

	certs, err := entry.Certificates()
	if err != nil {
		return nil, &apkerr.Error{Op: "extract certificate", Path: path, Err: err}
	}

	raw := certs[0].Raw
	if len(raw) == 0 {
		return nil, &apkerr.Error{
			Op:   "extract certificate",
			Path: path,
			Err:  fmt.Errorf("%w: empty certificate encoding", ErrNoCertificate),
		}
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}
