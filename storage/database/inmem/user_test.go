package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jamii/core/user"
)

func init() {
	user.PasswordCost = bcrypt.MinCost
}

func newSeededRegistry(t *testing.T) user.Registry {
	t.Helper()
	reg := NewUserRegistry(Open())
	require.NoError(t, Seed(context.Background(), reg))
	return reg
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	reg := NewUserRegistry(Open())

	a, err := reg.Append(ctx, user.User{Email: " A@B.com ", Role: user.RoleUser})
	require.NoError(t, err)
	b, err := reg.Append(ctx, user.User{Email: "c@d.com", Role: user.RoleUser})
	require.NoError(t, err)

	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "a@b.com", a.Email)
	assert.Equal(t, "2", b.ID)

	_, err = reg.Append(ctx, user.User{Email: "a@b.com"})
	assert.Equal(t, user.ErrEmailExists, err)

	users, err := reg.QueryAll(ctx)
	require.NoError(t, err)
	if assert.Len(t, users, 2) {
		assert.Equal(t, "1", users[0].ID)
		assert.Equal(t, "2", users[1].ID)
	}
}

func TestFindByCredentials(t *testing.T) {
	ctx := context.Background()
	reg := newSeededRegistry(t)

	tests := []struct {
		name      string
		email     string
		pwd       string
		wantEmail string
	}{
		{name: "unknown email", email: "nobody@jamii.test", pwd: MockPassword},
		{name: "wrong password", email: "student@jamii.test", pwd: "nope"},
		{name: "match", email: "student@jamii.test", pwd: MockPassword, wantEmail: "student@jamii.test"},
		{name: "match ignoring email case", email: "Teacher@Jamii.test", pwd: MockPassword, wantEmail: "teacher@jamii.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := reg.FindByCredentials(ctx, tt.email, tt.pwd)
			require.NoError(t, err)
			if tt.wantEmail == "" {
				assert.Nil(t, usr)
				return
			}
			if assert.NotNil(t, usr) {
				assert.Equal(t, tt.wantEmail, usr.Email)
			}
		})
	}
}

func TestFindByCredentialsWithoutPassword(t *testing.T) {
	ctx := context.Background()
	reg := NewUserRegistry(Open())
	_, err := reg.Append(ctx, user.User{Email: "nopwd@jamii.test"})
	require.NoError(t, err)

	usr, err := reg.FindByCredentials(ctx, "nopwd@jamii.test", "")
	assert.NoError(t, err)
	assert.Nil(t, usr)
}

func TestGetAndUpdate(t *testing.T) {
	ctx := context.Background()
	reg := newSeededRegistry(t)

	usr, err := reg.GetByEmail(ctx, "mentor@jamii.test")
	require.NoError(t, err)
	byID, err := reg.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr, byID)

	_, err = reg.GetByID(ctx, "404")
	assert.Equal(t, user.ErrNotFound, err)
	_, err = reg.GetByEmail(ctx, "404@jamii.test")
	assert.Equal(t, user.ErrNotFound, err)

	usr.DisplayName = "Renamed"
	usr.PasswordHash = nil
	updated, err := reg.Update(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.NoError(t, updated.CheckPassword(MockPassword), "password is kept")

	usr.Email = "student@jamii.test"
	_, err = reg.Update(ctx, usr)
	assert.Equal(t, user.ErrEmailExists, err)

	_, err = reg.Update(ctx, user.User{ID: "404"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestReturnedUsersAreCopies(t *testing.T) {
	ctx := context.Background()
	reg := newSeededRegistry(t)

	usr, err := reg.GetByEmail(ctx, "mentor@jamii.test")
	require.NoError(t, err)
	usr.Roles[0] = "guest"

	again, err := reg.GetByEmail(ctx, "mentor@jamii.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleMentor, again.Roles[0])
}
