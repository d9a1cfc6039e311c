// Package fileval validates upload attempts against per-tenant,
// per-permission-group file rules.
package fileval

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/procura-io/procura/internal/authz"
)

// ErrUnknownGroup is returned when the permission group does not resolve to
// an active group in the catalog.
var ErrUnknownGroup = errors.New("fileval: unknown permission group")

const bytesPerMB = 1 << 20

// Rule permits one extension for one (company, permission group) pair up to a
// size ceiling. Absence of a rule is a deny: tenants enumerate every accepted
// extension rather than defining exclusions.
type Rule struct {
	ID        int64
	CompanyID int64
	GroupID   int64
	Extension string
	MaxSizeMB int
	authz.AuditFields
}

// MaxSizeBytes is the ceiling in bytes.
func (r Rule) MaxSizeBytes() int64 {
	return int64(r.MaxSizeMB) * bytesPerMB
}

// RejectReason classifies an upload rejection.
type RejectReason string

const (
	// ReasonExtensionNotAllowed means no live rule permits the extension for
	// this tenant and group.
	ReasonExtensionNotAllowed RejectReason = "extension_not_allowed"
	// ReasonSizeExceeded means a rule matched but the file is too large.
	ReasonSizeExceeded RejectReason = "size_exceeded"
)

// Decision is the modeled outcome of an upload check. Rejections are
// expected results, not errors.
type Decision struct {
	Allowed   bool
	Reason    RejectReason
	MaxSizeMB int
}

// NormalizeExtension lower-cases and enforces a single leading dot. It fails
// on empty input, bare dots and embedded separators.
func NormalizeExtension(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = "." + strings.TrimLeft(ext, ".")
	if ext == "." {
		return "", fmt.Errorf("fileval: empty extension")
	}
	if strings.ContainsAny(ext[1:], "./\\ ") {
		return "", fmt.Errorf("fileval: malformed extension %q", ext)
	}
	return ext, nil
}

// ExtensionFromFilename derives the normalized extension of a file name.
func ExtensionFromFilename(name string) (string, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("fileval: file %q has no extension", name)
	}
	return NormalizeExtension(ext)
}
