package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

func TestClassify(t *testing.T) {
	tests := []struct {
		role string
		want RoleFamily
	}{
		{role: "student", want: FamilyLearning},
		{role: "learner", want: FamilyLearning},
		{role: "teacher", want: FamilyTeaching},
		{role: " Mentor ", want: FamilyTeaching},
		{role: "instructor", want: FamilyTeaching},
		{role: "admin", want: FamilyAdmin},
		{role: "support", want: FamilyAdmin},
		{role: "moderator", want: FamilyAdmin},
		{role: "user", want: FamilyRegular},
		{role: "viewer", want: FamilyRegular},
		{role: "guest", want: FamilyRegular},
		{role: "", want: FamilyNone},
		{role: "wizard", want: FamilyNone},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.role))
		})
	}
}

func TestFamiliesAreDisjoint(t *testing.T) {
	seen := make(map[string]RoleFamily)
	for _, family := range FamilyPriority {
		for _, role := range familyMembers[family] {
			prev, dup := seen[role]
			assert.Falsef(t, dup, "%s is in both %s and %s", role, prev, family)
			seen[role] = family
		}
	}
	assert.Len(t, Roles, len(seen))
	for _, r := range Roles {
		assert.Equal(t, seen[r.Value], r.Family, r.Value)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		usr       User
		wantRole  string
		wantRoles []string
	}{
		{name: "no role", usr: User{}, wantRole: DefaultRole, wantRoles: []string{DefaultRole}},
		{name: "role only", usr: User{Role: "teacher"}, wantRole: "teacher", wantRoles: []string{"teacher"}},
		{name: "roles only", usr: User{Roles: []string{"mentor", "user"}}, wantRole: DefaultRole, wantRoles: []string{DefaultRole, "mentor", "user"}},
		{name: "roles only, role never taken from them", usr: User{Roles: []string{"teacher"}}, wantRole: DefaultRole, wantRoles: []string{DefaultRole, "teacher"}},
		{name: "unknown role", usr: User{Role: "wizard"}, wantRole: DefaultRole, wantRoles: []string{DefaultRole}},
		{name: "unknown role keeps roles", usr: User{Role: "wizard", Roles: []string{"wizard"}}, wantRole: DefaultRole, wantRoles: []string{DefaultRole, "wizard"}},
		{name: "role missing from roles", usr: User{Role: "student", Roles: []string{"user"}}, wantRole: "student", wantRoles: []string{"student", "user"}},
		{name: "mixed case", usr: User{Role: "Support"}, wantRole: "support", wantRoles: []string{"support"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.usr)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.wantRoles, got.Roles)
			assert.NotEqual(t, FamilyNone, got.Family())
			assert.True(t, got.HasRole(got.Role))
		})
	}
}

func TestNormalizeDoesNotShareRoles(t *testing.T) {
	usr := User{Role: "student", Roles: []string{"student"}}
	got := Normalize(usr)
	got.Roles[0] = "teacher"
	assert.Equal(t, "student", usr.Roles[0])
}

func TestPassword(t *testing.T) {
	var usr User
	require.NoError(t, usr.SetPassword("s3cret"))
	assert.NotEqual(t, []byte("s3cret"), usr.PasswordHash)
	assert.NoError(t, usr.CheckPassword("s3cret"))
	assert.Error(t, usr.CheckPassword("wrong"))
}

func TestPatchApply(t *testing.T) {
	usr := User{ID: "1", Email: "a@b.com", DisplayName: "A", Role: "user", Roles: []string{"user"}}

	got, err := Patch{}.Apply(usr)
	require.NoError(t, err)
	assert.Equal(t, usr, got)
	assert.True(t, Patch{}.IsEmpty())

	p := Patch{
		Email:         null.StringFrom(" New@B.com "),
		DisplayName:   null.StringFrom("  New Name "),
		EmailVerified: null.BoolFrom(true),
		Password:      null.StringFrom("pass123"),
	}
	assert.False(t, p.IsEmpty())
	got, err = p.Apply(usr)
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "new@b.com", got.Email)
	assert.Equal(t, "New Name", got.DisplayName)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, "user", got.Role)
	assert.NoError(t, got.CheckPassword("pass123"))
	assert.Empty(t, usr.PasswordHash)

	got, err = Patch{Role: null.StringFrom("Teacher")}.Apply(usr)
	require.NoError(t, err)
	assert.Equal(t, "teacher", got.Role)
	assert.Equal(t, []string{"teacher"}, got.Roles)
	assert.True(t, got.IsTeacher())
}
