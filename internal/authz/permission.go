package authz

import (
	"errors"
	"sort"
	"strings"
)

const (
	// WildcardAll grants every action on every subject.
	WildcardAll = "*"
	// ActionManage implies every action on the subject it is granted for.
	ActionManage = "manage"
	// SubjectAll combined with ActionManage forms the second global wildcard.
	SubjectAll = "all"
)

// ErrMalformedPermission indicates a permission string that does not follow
// the action.subject grammar.
var ErrMalformedPermission = errors.New("authz: malformed permission string")

// PermissionRef is a parsed action.subject pair.
type PermissionRef struct {
	Action  string
	Subject string
}

// String renders the canonical permission string.
func (p PermissionRef) String() string {
	if p.Action == WildcardAll {
		return WildcardAll
	}
	return p.Action + "." + p.Subject
}

// Normalize lowercases and trims a permission fragment. Matching is always
// performed over normalized strings so stored grants like "read.Employee"
// and "read.employee" are equivalent.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParsePermission parses a raw permission string into its action.subject
// form. The global wildcard "*" parses to {Action: "*", Subject: "*"}.
func ParsePermission(raw string) (PermissionRef, error) {
	normalized := Normalize(raw)
	if normalized == WildcardAll {
		return PermissionRef{Action: WildcardAll, Subject: WildcardAll}, nil
	}
	action, subject, ok := strings.Cut(normalized, ".")
	if !ok || action == "" || subject == "" {
		return PermissionRef{}, ErrMalformedPermission
	}
	return PermissionRef{Action: action, Subject: subject}, nil
}

// PermissionSet holds the normalized permission strings resolved for a user.
type PermissionSet map[string]struct{}

// NewPermissionSet builds the union of the provided grants. Malformed grants
// are skipped so one bad row in the store never blocks the remaining checks
// for a user.
func NewPermissionSet(grants ...[]string) PermissionSet {
	set := make(PermissionSet)
	for _, group := range grants {
		for _, grant := range group {
			ref, err := ParsePermission(grant)
			if err != nil {
				continue
			}
			set[ref.String()] = struct{}{}
		}
	}
	return set
}

// Allows reports whether the set grants the given action on the given
// subject. Precedence, first match wins:
//
//  1. global wildcard ("*" or "manage.all")
//  2. manage.<subject>
//  3. exact <action>.<subject>
//
// Unknown subjects are matched textually, so they simply never match and the
// check denies.
func (s PermissionSet) Allows(action, subject string) bool {
	action = Normalize(action)
	subject = Normalize(subject)
	if action == "" || subject == "" {
		return false
	}
	if s.has(WildcardAll) || s.has(ActionManage+"."+SubjectAll) {
		return true
	}
	if s.has(ActionManage + "." + subject) {
		return true
	}
	return s.has(action + "." + subject)
}

// Contains reports whether the set holds the exact normalized grant.
func (s PermissionSet) Contains(grant string) bool {
	ref, err := ParsePermission(grant)
	if err != nil {
		return false
	}
	return s.has(ref.String())
}

// List returns the grants in sorted order.
func (s PermissionSet) List() []string {
	out := make([]string, 0, len(s))
	for grant := range s {
		out = append(out, grant)
	}
	sort.Strings(out)
	return out
}

func (s PermissionSet) has(grant string) bool {
	_, ok := s[grant]
	return ok
}
