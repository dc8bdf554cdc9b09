package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	ref, err := ParsePermission("read.Employee")
	require.NoError(t, err)
	require.Equal(t, "read", ref.Action)
	require.Equal(t, "employee", ref.Subject)
	require.Equal(t, "read.employee", ref.String())

	ref, err = ParsePermission("  MANAGE.ALL  ")
	require.NoError(t, err)
	require.Equal(t, "manage", ref.Action)
	require.Equal(t, "all", ref.Subject)

	ref, err = ParsePermission("*")
	require.NoError(t, err)
	require.Equal(t, WildcardAll, ref.Action)
	require.Equal(t, WildcardAll, ref.Subject)
	require.Equal(t, "*", ref.String())
}

func TestParsePermissionKeepsExtraDotsInSubject(t *testing.T) {
	ref, err := ParsePermission("read.reports.monthly")
	require.NoError(t, err)
	require.Equal(t, "read", ref.Action)
	require.Equal(t, "reports.monthly", ref.Subject)
}

func TestParsePermissionMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "read", "read.", ".employee", "."} {
		_, err := ParsePermission(raw)
		require.ErrorIs(t, err, ErrMalformedPermission, "input %q", raw)
	}
}

func TestPermissionSetDenyByDefault(t *testing.T) {
	set := NewPermissionSet(nil)
	require.False(t, set.Allows("read", "employee"))
	require.False(t, set.Allows("", ""))
}

func TestPermissionSetExactMatch(t *testing.T) {
	set := NewPermissionSet([]string{"read.employee"})
	require.True(t, set.Allows("read", "employee"))
	require.True(t, set.Allows("READ", " Employee "))
	require.False(t, set.Allows("update", "employee"))
	require.False(t, set.Allows("read", "equipment"))
}

func TestPermissionSetGlobalWildcards(t *testing.T) {
	for _, grant := range []string{"*", "manage.all"} {
		set := NewPermissionSet([]string{grant})
		require.True(t, set.Allows("read", "employee"), "grant %q", grant)
		require.True(t, set.Allows("delete", "payroll"), "grant %q", grant)
		require.True(t, set.Allows("export", "something-unknown"), "grant %q", grant)
	}
}

func TestPermissionSetManageSubject(t *testing.T) {
	set := NewPermissionSet([]string{"manage.equipment"})
	require.True(t, set.Allows("read", "equipment"))
	require.True(t, set.Allows("update", "equipment"))
	require.True(t, set.Allows("delete", "equipment"))
	require.False(t, set.Allows("read", "rental"))
	require.False(t, set.Allows("manage", "rental"))
}

func TestPermissionSetSkipsMalformedGrants(t *testing.T) {
	set := NewPermissionSet([]string{"read.employee", "bogus", "", "update."})
	require.True(t, set.Allows("read", "employee"))
	require.Equal(t, []string{"read.employee"}, set.List())
}

func TestPermissionSetUnionsGrantLists(t *testing.T) {
	set := NewPermissionSet([]string{"read.employee"}, []string{"manage.rental", "read.employee"})
	require.True(t, set.Allows("read", "employee"))
	require.True(t, set.Allows("update", "rental"))
	require.Equal(t, []string{"manage.rental", "read.employee"}, set.List())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "read.employee", Normalize("  Read.Employee "))
	require.Equal(t, "*", Normalize("*"))
}
