// Package authz holds the role, permission group, permission and assignment
// catalog together with the resolver that answers permission checks.
package authz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors surfaced by catalog lookups and resolution.
var (
	ErrNotFound    = errors.New("authz: not found")
	ErrUnknownRole = errors.New("authz: unknown role")
)

// AuditFields is the shared audit envelope carried by every catalog row.
// A row is never physically removed; Deleted flags it out of resolution
// while the remaining fields preserve history.
type AuditFields struct {
	CreatedBy  int64
	CreatedAt  time.Time
	ModifiedBy int64
	ModifiedAt time.Time
	Deleted    bool
	DeletedBy  int64
	DeletedAt  time.Time
}

// Live reports whether the row participates in resolution.
func (a AuditFields) Live() bool {
	return !a.Deleted
}

// Role is a named actor category (Buyer, HOD, ...) to which permissions are
// granted through assignments.
type Role struct {
	ID          int64
	Name        string
	Description string
	AuditFields
}

// PermissionGroup is a display bucket for related permissions and the scoping
// key for tenant file validation rules. OrderIndex drives display ordering
// only; an inactive group removes its permissions from resolution.
type PermissionGroup struct {
	ID           int64
	InternalName string
	DisplayName  string
	Icon         string
	IsActive     bool
	OrderIndex   int
	AuditFields
}

// Permission is an atomic capability. Names are opaque dotted strings such as
// "Event.Create.button"; new permissions arrive by data change, not code
// change, so the catalog never encodes them as an enum.
type Permission struct {
	ID          int64
	Name        string
	Description string
	GroupID     int64
	AuditFields
}

// Assignment grants one permission to one role. GroupID is denormalized from
// the permission and must agree with it.
type Assignment struct {
	ID           int64
	RoleID       int64
	GroupID      int64
	PermissionID int64
	AuditFields
}

// ValidatePermissionName checks the dotted form used throughout the catalog.
func ValidatePermissionName(name string) error {
	if name == "" {
		return fmt.Errorf("authz: empty permission name")
	}
	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return fmt.Errorf("authz: malformed permission name %q", name)
		}
	}
	return nil
}
