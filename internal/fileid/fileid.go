// Package fileid fingerprints dataset files. The fingerprint identifies one
// immutable snapshot of the data, so renders derived from it can be cached by
// clients.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const prefix = "ds:"

// Fingerprint returns a stable identifier for the contents of the file at
// path. Identical contents always yield the same fingerprint.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	defer f.Close()
	return FingerprintReader(f)
}

// FingerprintReader returns the fingerprint of everything read from r.
func FingerprintReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return prefix + hex.EncodeToString(h.Sum(nil))[:16], nil
}

// PageETag returns the entity tag for one page of a dataset rendered with a
// given page size.
func PageETag(fingerprint string, page, pageSize int) string {
	return fmt.Sprintf(`"%s-%d-%d"`, fingerprint, pageSize, page)
}
