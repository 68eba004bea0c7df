package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store persists named binary files under a public namespace.
// Delete is idempotent: removing a missing path is not an error.
type Store interface {
	Store(ctx context.Context, key string, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	// URL maps an opaque stored path to its public, browsable URL.
	URL(key string) string
}

const coverPrefix = "covers"

// CoverKey builds a collision-resistant storage key for an uploaded cover,
// keeping the original filename for readability.
func CoverKey(filename string) string {
	return fmt.Sprintf("%s/%s_%s", coverPrefix, uuid.NewString(), sanitizeFilename(filename))
}

// sanitizeFilename strips directories and characters that are awkward in
// object keys and URLs.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "cover"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
