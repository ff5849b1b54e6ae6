package dialect

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// Fingerprint identifies the exact source bytes a version was imported from.
// A resumed run compares fingerprints to detect that the source changed
// between attempts.
type Fingerprint struct {
	BLAKE3    string `json:"blake3"`
	SizeBytes int64  `json:"size_bytes"`
}

// ReadSource reads a source document from disk, transparently decompressing
// .xz files. The fingerprint covers the raw on-disk bytes, before any
// decompression.
func ReadSource(path string) ([]byte, Fingerprint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Fingerprint{}, errors.Wrapf(err, "reading source %s", path)
	}

	sum := blake3.Sum256(raw)
	fp := Fingerprint{
		BLAKE3:    hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(raw)),
	}

	if !strings.HasSuffix(path, ".xz") {
		return raw, fp, nil
	}

	xr, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, Fingerprint{}, errors.NewMalformedDocument("xz", path, "invalid xz stream", err)
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, Fingerprint{}, errors.NewMalformedDocument("xz", path, "truncated xz stream", err)
	}
	return data, fp, nil
}
