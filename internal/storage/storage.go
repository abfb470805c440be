// Package storage is the byte-blob capability behind certificate files. The
// rest of the system only sees opaque references returned by Put.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ishpreet160/CertFlow/internal/apierror"
)

// BlobStore stores opaque blobs. Put returns the reference to persist; Get and
// Delete accept only references previously returned by the same store.
// Deleting a missing blob is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) (ref string, err error)
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

var ErrBlobNotFound = errors.New("blob not found")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SecureFilename strips directories and anything but [A-Za-z0-9._-] from a
// client-supplied name. It never returns an empty string.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// NewKey builds a unique object key such as "certificates/<uuid>_report.pdf".
func NewKey(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString()+"_"+SecureFilename(filename))
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Allowlist accepts uploads by extension and size.
type Allowlist struct {
	extensions map[string]bool
	maxBytes   int64
}

func NewAllowlist(extensions []string, maxBytes int64) *Allowlist {
	a := &Allowlist{extensions: make(map[string]bool, len(extensions)), maxBytes: maxBytes}
	for _, e := range extensions {
		a.extensions[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = true
	}
	return a
}

// Check returns a validation error when the file may not be uploaded.
func (a *Allowlist) Check(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return apierror.Validation("file is required")
	}
	ext := Extension(filename)
	if !a.extensions[ext] {
		return apierror.Validation(fmt.Sprintf("file type %q is not allowed", ext))
	}
	if size <= 0 {
		return apierror.Validation("file is empty")
	}
	if a.maxBytes > 0 && size > a.maxBytes {
		return apierror.Validation(fmt.Sprintf("file exceeds %d bytes", a.maxBytes))
	}
	return nil
}

// RestrictTo returns a copy that additionally requires one of exts.
func (a *Allowlist) RestrictTo(exts ...string) *Allowlist {
	out := &Allowlist{extensions: map[string]bool{}, maxBytes: a.maxBytes}
	for _, e := range exts {
		if a.extensions[e] {
			out.extensions[e] = true
		}
	}
	return out
}
