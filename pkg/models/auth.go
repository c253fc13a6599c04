package models

import (
	"sort"
	"strings"
)

// Role vocabulary.
const (
	RoleAdmin         = "admin"
	RoleCollegeAdmin  = "college_admin"
	RoleMasterAdmin   = "master_admin"
	RoleExamAdmin     = "exam_admin"
	RoleAcademicAdmin = "academic_admin"

	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// AdminRoles returns the full admin vocabulary.
func AdminRoles() []string {
	return []string{RoleAdmin, RoleCollegeAdmin, RoleMasterAdmin, RoleExamAdmin, RoleAcademicAdmin}
}

// Principal is the authenticated actor attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Complete returns true if the principal carries both an id and a role.
func (p *Principal) Complete() bool {
	return p != nil && strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Role) != ""
}

// RoleSet is an immutable set of roles allowed past a gated operation.
type RoleSet struct {
	roles map[string]struct{}
}

// NewRoleSet normalizes roles into a set. An empty input (after trimming
// blanks) yields the full admin vocabulary.
func NewRoleSet(roles ...string) RoleSet {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = normalizeRole(r)
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	if len(set) == 0 {
		for _, r := range AdminRoles() {
			set[r] = struct{}{}
		}
	}
	return RoleSet{roles: set}
}

// DefaultRoleSet is the admin vocabulary.
func DefaultRoleSet() RoleSet {
	return NewRoleSet()
}

// Has reports whether role is a member of the set.
func (s RoleSet) Has(role string) bool {
	if s.roles == nil {
		s = DefaultRoleSet()
	}
	_, ok := s.roles[normalizeRole(role)]
	return ok
}

// Slice returns the members sorted.
func (s RoleSet) Slice() []string {
	if s.roles == nil {
		s = DefaultRoleSet()
	}
	out := make([]string, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (s RoleSet) String() string {
	return strings.Join(s.Slice(), ", ")
}

func normalizeRole(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}
