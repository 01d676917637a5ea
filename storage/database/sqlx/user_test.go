package sqlxdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/storage/database"
	inmemdb "github.com/trezcool/jamii/storage/database/inmem"
)

func init() {
	user.PasswordCost = bcrypt.MinCost
}

func openDB(t *testing.T, driver, dsn string) *sqlx.DB {
	t.Helper()
	db, err := database.Open(context.Background(), driver, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRegistry(t *testing.T, db *sqlx.DB) user.Registry {
	t.Helper()
	reg, err := NewUserRegistry(context.Background(), db)
	require.NoError(t, err)
	return reg
}

func newSeededRegistry(t *testing.T) user.Registry {
	t.Helper()
	reg := newRegistry(t, openDB(t, database.DriverSQLite, ":memory:"))
	require.NoError(t, inmemdb.Seed(context.Background(), reg))
	return reg
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, openDB(t, database.DriverSQLite, ":memory:"))

	a, err := reg.Append(ctx, user.User{Email: " A@B.com ", Role: user.RoleUser, Roles: []string{user.RoleUser}})
	require.NoError(t, err)
	b, err := reg.Append(ctx, user.User{Email: "c@d.com", Role: user.RoleMentor, Roles: []string{user.RoleMentor, user.RoleTeacher}})
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
		assert.Equal(t, []string{user.RoleMentor, user.RoleTeacher}, users[1].Roles)
		assert.Nil(t, users[1].PasswordHash)
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
		{name: "unknown email", email: "nobody@jamii.test", pwd: inmemdb.MockPassword},
		{name: "wrong password", email: "student@jamii.test", pwd: "nope"},
		{name: "match", email: "student@jamii.test", pwd: inmemdb.MockPassword, wantEmail: "student@jamii.test"},
		{name: "match ignoring email case", email: "Teacher@Jamii.test", pwd: inmemdb.MockPassword, wantEmail: "teacher@jamii.test"},
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
				assert.True(t, usr.EmailVerified)
			}
		})
	}
}

func TestGetAndUpdate(t *testing.T) {
	ctx := context.Background()
	reg := newSeededRegistry(t)

	usr, err := reg.GetByEmail(ctx, "mentor@jamii.test")
	require.NoError(t, err)
	byID, err := reg.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr, byID)

	for _, id := range []string{"404", "not-a-number"} {
		_, err = reg.GetByID(ctx, id)
		assert.Equal(t, user.ErrNotFound, err)
	}
	_, err = reg.GetByEmail(ctx, "404@jamii.test")
	assert.Equal(t, user.ErrNotFound, err)

	usr.DisplayName = "Renamed"
	usr.EmailVerified = false
	usr.PasswordHash = nil
	updated, err := reg.Update(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.False(t, updated.EmailVerified)
	assert.NoError(t, updated.CheckPassword(inmemdb.MockPassword), "password is kept")

	require.NoError(t, usr.SetPassword("newpass"))
	updated, err = reg.Update(ctx, usr)
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("newpass"))

	usr.Email = "student@jamii.test"
	_, err = reg.Update(ctx, usr)
	assert.Equal(t, user.ErrEmailExists, err)

	_, err = reg.Update(ctx, user.User{ID: "404"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestRegistrySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jamii.db")

	db, err := database.Open(ctx, database.DriverSQLite, path)
	require.NoError(t, err)
	reg := newRegistry(t, db)
	_, err = reg.Append(ctx, user.User{Email: "kept@jamii.test", DisplayName: "Kept"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reg = newRegistry(t, openDB(t, database.DriverSQLite, path))
	usr, err := reg.GetByEmail(ctx, "kept@jamii.test")
	require.NoError(t, err)
	assert.Equal(t, "Kept", usr.DisplayName)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("JAMII_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JAMII_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db := openDB(t, database.DriverPostgres, dsn)
	reg := newRegistry(t, db)
	t.Cleanup(func() { _, _ = db.Exec(`DROP TABLE users`) })

	usr, err := reg.Append(ctx, user.User{Email: "pg@jamii.test", Role: user.RoleUser, Roles: []string{user.RoleUser}})
	require.NoError(t, err)
	usr.DisplayName = "Postgres"
	_, err = reg.Update(ctx, usr)
	require.NoError(t, err)

	got, err := reg.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Postgres", got.DisplayName)
}
