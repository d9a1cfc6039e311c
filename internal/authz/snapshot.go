package authz

import (
	"fmt"
	"strings"
)

// LoadError aggregates every invariant violation found while building a
// snapshot. A failed build never becomes the live snapshot.
type LoadError struct {
	Violations []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("authz: catalog load failed: %s", strings.Join(e.Violations, "; "))
}

// Snapshot is an immutable, invariant-checked view of the catalog. All maps
// are populated once during construction and never mutated afterwards, so any
// number of readers may share one snapshot without locking.
type Snapshot struct {
	version int64

	roles       map[int64]Role
	groups      map[int64]PermissionGroup
	permissions map[int64]Permission

	// knownGroups includes retired groups, for reference checks that must
	// distinguish "never existed" from "soft-deleted".
	knownGroups map[int64]struct{}

	// assignmentsByRole only holds live assignments; group/permission
	// liveness is still applied at resolution time so a later reload that
	// deactivates a group does not require touching assignment rows.
	assignmentsByRole map[int64][]Assignment
}

// BuildSnapshot validates the raw tables and assembles a snapshot. Rows
// flagged as deleted are indexed nowhere except for duplicate-key checks,
// which only consider live rows (a deleted row may legitimately share a name
// with its replacement).
func BuildSnapshot(version int64, roles []Role, groups []PermissionGroup, permissions []Permission, assignments []Assignment) (*Snapshot, error) {
	var violations []string

	s := &Snapshot{
		version:           version,
		roles:             make(map[int64]Role, len(roles)),
		groups:            make(map[int64]PermissionGroup, len(groups)),
		permissions:       make(map[int64]Permission, len(permissions)),
		assignmentsByRole: make(map[int64][]Assignment),
	}

	// Soft-deleted rows stay out of every index but still count as known IDs:
	// a reference to a retired row reads as absent, while a reference to an ID
	// the catalog has never seen is a load error.
	knownRoles := make(map[int64]struct{}, len(roles))
	knownGroups := make(map[int64]struct{}, len(groups))
	knownPermissions := make(map[int64]struct{}, len(permissions))
	for _, role := range roles {
		knownRoles[role.ID] = struct{}{}
	}
	for _, group := range groups {
		knownGroups[group.ID] = struct{}{}
	}
	for _, perm := range permissions {
		knownPermissions[perm.ID] = struct{}{}
	}
	s.knownGroups = knownGroups

	roleNames := make(map[string]int64)
	for _, role := range roles {
		if !role.Live() {
			continue
		}
		if _, ok := s.roles[role.ID]; ok {
			violations = append(violations, fmt.Sprintf("duplicate role id %d", role.ID))
			continue
		}
		if prev, ok := roleNames[role.Name]; ok {
			violations = append(violations, fmt.Sprintf("role name %q shared by ids %d and %d", role.Name, prev, role.ID))
			continue
		}
		s.roles[role.ID] = role
		roleNames[role.Name] = role.ID
	}

	groupNames := make(map[string]int64)
	for _, group := range groups {
		if !group.Live() {
			continue
		}
		if _, ok := s.groups[group.ID]; ok {
			violations = append(violations, fmt.Sprintf("duplicate permission group id %d", group.ID))
			continue
		}
		if prev, ok := groupNames[group.InternalName]; ok {
			violations = append(violations, fmt.Sprintf("permission group name %q shared by ids %d and %d", group.InternalName, prev, group.ID))
			continue
		}
		s.groups[group.ID] = group
		groupNames[group.InternalName] = group.ID
	}

	permNames := make(map[string]int64)
	for _, perm := range permissions {
		if !perm.Live() {
			continue
		}
		if err := ValidatePermissionName(perm.Name); err != nil {
			violations = append(violations, err.Error())
			continue
		}
		if _, ok := s.permissions[perm.ID]; ok {
			violations = append(violations, fmt.Sprintf("duplicate permission id %d", perm.ID))
			continue
		}
		if prev, ok := permNames[perm.Name]; ok {
			violations = append(violations, fmt.Sprintf("permission name %q shared by ids %d and %d", perm.Name, prev, perm.ID))
			continue
		}
		// Every permission belongs to exactly one group. A retired group keeps
		// the permission loadable but out of resolution; an ID the catalog has
		// never seen is a load error.
		if _, ok := knownGroups[perm.GroupID]; !ok {
			violations = append(violations, fmt.Sprintf("permission %d (%s) references unknown group %d", perm.ID, perm.Name, perm.GroupID))
			continue
		}
		s.permissions[perm.ID] = perm
		permNames[perm.Name] = perm.ID
	}

	type grantKey struct {
		roleID       int64
		permissionID int64
	}
	seenGrants := make(map[grantKey]struct{})
	for _, assignment := range assignments {
		if !assignment.Live() {
			continue
		}
		if _, ok := knownRoles[assignment.RoleID]; !ok {
			violations = append(violations, fmt.Sprintf("assignment %d references unknown role %d", assignment.ID, assignment.RoleID))
			continue
		}
		if _, ok := knownPermissions[assignment.PermissionID]; !ok {
			violations = append(violations, fmt.Sprintf("assignment %d references unknown permission %d", assignment.ID, assignment.PermissionID))
			continue
		}
		// Grants pointing at retired roles or permissions are inert, not
		// violations; the reverse flip would revive them.
		if _, ok := s.roles[assignment.RoleID]; !ok {
			continue
		}
		perm, ok := s.permissions[assignment.PermissionID]
		if !ok {
			continue
		}
		if assignment.GroupID != perm.GroupID {
			violations = append(violations, fmt.Sprintf("assignment %d carries group %d but permission %d belongs to group %d", assignment.ID, assignment.GroupID, perm.ID, perm.GroupID))
			continue
		}
		key := grantKey{roleID: assignment.RoleID, permissionID: assignment.PermissionID}
		if _, ok := seenGrants[key]; ok {
			violations = append(violations, fmt.Sprintf("role %d assigned permission %d more than once", assignment.RoleID, assignment.PermissionID))
			continue
		}
		seenGrants[key] = struct{}{}
		s.assignmentsByRole[assignment.RoleID] = append(s.assignmentsByRole[assignment.RoleID], assignment)
	}

	if len(violations) > 0 {
		return nil, &LoadError{Violations: violations}
	}
	return s, nil
}

// Version identifies this snapshot; it increases with every successful swap.
func (s *Snapshot) Version() int64 {
	return s.version
}

// Role fetches a live role by ID.
func (s *Snapshot) Role(id int64) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

// Permission fetches a live permission by ID.
func (s *Snapshot) Permission(id int64) (Permission, error) {
	perm, ok := s.permissions[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

// Group fetches a live permission group by ID.
func (s *Snapshot) Group(id int64) (PermissionGroup, error) {
	group, ok := s.groups[id]
	if !ok {
		return PermissionGroup{}, ErrNotFound
	}
	return group, nil
}

// KnownGroup reports whether the group ID has ever existed in the catalog,
// retired rows included.
func (s *Snapshot) KnownGroup(id int64) bool {
	_, ok := s.knownGroups[id]
	return ok
}

// ActiveGroup reports whether the group exists, is live and active.
func (s *Snapshot) ActiveGroup(id int64) bool {
	group, ok := s.groups[id]
	return ok && group.IsActive
}

// Groups returns all live groups in unspecified order.
func (s *Snapshot) Groups() []PermissionGroup {
	groups := make([]PermissionGroup, 0, len(s.groups))
	for _, group := range s.groups {
		groups = append(groups, group)
	}
	return groups
}

// effectivePermissions joins a role's assignments against permissions and
// groups, excluding anything attached to an inactive group.
func (s *Snapshot) effectivePermissions(roleID int64) (map[string]struct{}, error) {
	if _, ok := s.roles[roleID]; !ok {
		return nil, ErrUnknownRole
	}
	granted := make(map[string]struct{})
	for _, assignment := range s.assignmentsByRole[roleID] {
		perm, ok := s.permissions[assignment.PermissionID]
		if !ok {
			continue
		}
		group, ok := s.groups[perm.GroupID]
		if !ok || !group.IsActive {
			continue
		}
		granted[perm.Name] = struct{}{}
	}
	return granted, nil
}
