package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gowebpki/jcs"
)

// Options controls how documents are written
type Options struct {
	// Indent pretty-prints the canonical form
	Indent bool
}

// Canonical marshals v into RFC 8785 canonical JSON, so equal documents are
// byte-identical
func Canonical(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data, err = jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return data, nil
}

// Digest returns the hex SHA-256 of the canonical form of v
func Digest(v any) (string, error) {
	data, err := Canonical(v)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func write(w io.Writer, v any, opts Options) error {
	data, err := Canonical(v)
	if err != nil {
		return err
	}
	if opts.Indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func read(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return nil
}
