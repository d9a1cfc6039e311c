package fileval

import (
	"fmt"
	"strings"
)

// LoadError aggregates rule-set violations found while building a snapshot.
type LoadError struct {
	Violations []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("fileval: rule load failed: %s", strings.Join(e.Violations, "; "))
}

type ruleKey struct {
	companyID int64
	groupID   int64
	extension string
}

// Snapshot is an immutable index of live file rules keyed by
// (company, group, extension).
type Snapshot struct {
	version int64
	rules   map[ruleKey]Rule
}

// BuildSnapshot validates raw rule rows and assembles a snapshot. Extensions
// are normalized before indexing so lookups and stored rules agree on form.
func BuildSnapshot(version int64, rules []Rule) (*Snapshot, error) {
	var violations []string

	s := &Snapshot{
		version: version,
		rules:   make(map[ruleKey]Rule, len(rules)),
	}

	for _, rule := range rules {
		if !rule.Live() {
			continue
		}
		ext, err := NormalizeExtension(rule.Extension)
		if err != nil {
			violations = append(violations, fmt.Sprintf("rule %d: %v", rule.ID, err))
			continue
		}
		if rule.MaxSizeMB <= 0 {
			violations = append(violations, fmt.Sprintf("rule %d: max size must be positive, got %d", rule.ID, rule.MaxSizeMB))
			continue
		}
		rule.Extension = ext
		key := ruleKey{companyID: rule.CompanyID, groupID: rule.GroupID, extension: ext}
		if prev, ok := s.rules[key]; ok {
			violations = append(violations, fmt.Sprintf("rules %d and %d both cover company %d group %d extension %s", prev.ID, rule.ID, rule.CompanyID, rule.GroupID, ext))
			continue
		}
		s.rules[key] = rule
	}

	if len(violations) > 0 {
		return nil, &LoadError{Violations: violations}
	}
	return s, nil
}

// Version identifies this snapshot.
func (s *Snapshot) Version() int64 {
	return s.version
}

// Lookup returns the live rule for an exact (company, group, extension)
// match. There is no wildcard and no cross-tenant fallback.
func (s *Snapshot) Lookup(companyID, groupID int64, extension string) (Rule, bool) {
	rule, ok := s.rules[ruleKey{companyID: companyID, groupID: groupID, extension: extension}]
	return rule, ok
}
