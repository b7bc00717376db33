// Package verify checks published files against a catalog of known SHA-256
// digests, keyed by base file name.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jornada/internal/config"
)

// ErrUnknownFile is returned when the file name has no catalog entry.
var ErrUnknownFile = errors.New("file not in catalog")

type Verdict string

const (
	Authentic Verdict = "authentic"
	Modified  Verdict = "modified"
	Unknown   Verdict = "unknown"
)

type Result struct {
	File     string  `json:"file"`
	Name     string  `json:"name,omitempty"`
	Verdict  Verdict `json:"verdict"`
	Expected string  `json:"expected,omitempty"`
	Actual   string  `json:"actual"`
	Message  string  `json:"message"`
}

type Verifier struct {
	Catalog map[string]config.CatalogEntry
}

func New(catalog map[string]config.CatalogEntry) Verifier {
	return Verifier{Catalog: catalog}
}

// File hashes the file at path and checks it under its base name.
func (v Verifier) File(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return v.Reader(filepath.Base(path), f)
}

// Reader hashes r and checks it under name.
func (v Verifier) Reader(name string, r io.Reader) (Result, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Result{}, fmt.Errorf("hash %s: %w", name, err)
	}
	return v.Digest(name, hex.EncodeToString(h.Sum(nil)))
}

// Digest checks a precomputed hex digest. Unknown names yield an Unknown
// result together with ErrUnknownFile.
func (v Verifier) Digest(name, digest string) (Result, error) {
	name = filepath.Base(strings.TrimSpace(name))
	res := Result{File: name, Actual: strings.ToLower(strings.TrimSpace(digest))}
	entry, ok := v.Catalog[name]
	if !ok {
		res.Verdict = Unknown
		res.Message = fmt.Sprintf("Arquivo desconhecido: %q não é reconhecido pelo catálogo.", name)
		return res, ErrUnknownFile
	}
	res.Name = entry.Name
	res.Expected = strings.ToLower(entry.SHA256)
	if res.Actual == res.Expected {
		res.Verdict = Authentic
		res.Message = fmt.Sprintf("Autêntico: o arquivo é uma cópia original de %q.", displayName(entry, name))
	} else {
		res.Verdict = Modified
		res.Message = fmt.Sprintf("Falso/Modificado: o arquivo %q foi alterado e não é autêntico.", name)
	}
	return res, nil
}

func displayName(e config.CatalogEntry, file string) string {
	if e.Name != "" {
		return e.Name
	}
	return file
}
