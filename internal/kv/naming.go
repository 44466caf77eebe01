package kv

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultOriginalName is used when the source URL has no path segment.
const DefaultOriginalName = "db.kdbx"

// storedNameLayout gives stored names a sortable timestamp prefix.
const storedNameLayout = "20060102_150405"

// OriginalNameFromURL derives a file name from the last path segment of
// rawURL, percent-decoded.
func OriginalNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultOriginalName
	}

	p := u.EscapedPath()
	if p == "" && u.Opaque != "" {
		p = u.Opaque
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return DefaultOriginalName
	}

	segment := path.Base(p)
	if segment == "." || segment == "/" || segment == "" {
		return DefaultOriginalName
	}

	decoded, err := url.PathUnescape(segment)
	if err != nil {
		decoded = segment
	}
	// A decoded segment may contain separators; keep only the final part.
	decoded = path.Base(strings.ReplaceAll(decoded, "\\", "/"))
	if decoded == "" || decoded == "." || decoded == ".." || decoded == "/" {
		return DefaultOriginalName
	}
	return decoded
}

// StoredName builds the payload name for an import made at importedAt.
func StoredName(importedAt time.Time, originalName string) string {
	return importedAt.Format(storedNameLayout) + "_" + originalName
}
