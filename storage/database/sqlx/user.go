package sqlxdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/storage/database"
)

var userSchemas = map[string]string{
	database.DriverSQLite: `CREATE TABLE IF NOT EXISTS users (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	email          TEXT NOT NULL,
	password_hash  BLOB,
	display_name   TEXT NOT NULL,
	photo_url      TEXT NOT NULL,
	email_verified BOOLEAN NOT NULL,
	role           TEXT NOT NULL,
	roles          TEXT NOT NULL
)`,
	database.DriverPostgres: `CREATE TABLE IF NOT EXISTS users (
	id             BIGSERIAL PRIMARY KEY,
	email          TEXT NOT NULL,
	password_hash  BYTEA,
	display_name   TEXT NOT NULL,
	photo_url      TEXT NOT NULL,
	email_verified BOOLEAN NOT NULL,
	role           TEXT NOT NULL,
	roles          TEXT NOT NULL
)`,
}

const (
	userColumns = `id, email, password_hash, display_name, photo_url, email_verified, role, roles`

	insertUserQuery = `INSERT INTO users (email, password_hash, display_name, photo_url, email_verified, role, roles)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`
	updateUserQuery = `UPDATE users SET email = ?, password_hash = COALESCE(?, password_hash), display_name = ?,
photo_url = ?, email_verified = ?, role = ?, roles = ? WHERE id = ?`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	queryUsersQuery     = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	emailTakenQuery     = `SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`
)

type (
	userRow struct {
		ID            int64  `db:"id"`
		Email         string `db:"email"`
		PasswordHash  []byte `db:"password_hash"`
		DisplayName   string `db:"display_name"`
		PhotoURL      string `db:"photo_url"`
		EmailVerified bool   `db:"email_verified"`
		Role          string `db:"role"`
		Roles         string `db:"roles"`
	}

	userRegistry struct {
		db *sqlx.DB
	}
)

// NewUserRegistry creates the users table if needed.
func NewUserRegistry(ctx context.Context, db *sqlx.DB) (user.Registry, error) {
	if err := database.Migrate(ctx, db, userSchemas); err != nil {
		return nil, errors.Wrap(err, "creating users table")
	}
	return &userRegistry{db: db}, nil
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:            strconv.FormatInt(row.ID, 10),
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		DisplayName:   row.DisplayName,
		PhotoURL:      row.PhotoURL,
		EmailVerified: row.EmailVerified,
		Role:          row.Role,
	}
	if row.Roles != "" {
		usr.Roles = strings.Split(row.Roles, ",")
	}
	return usr
}

func parseID(id string) (int64, bool) {
	pk, err := strconv.ParseInt(id, 10, 64)
	return pk, err == nil
}

// hashParam turns an empty hash into NULL.
func hashParam(hash []byte) interface{} {
	if len(hash) == 0 {
		return nil
	}
	return hash
}

func (reg *userRegistry) checkEmailUniqueness(ctx context.Context, email string, excludedID int64) error {
	if email == "" {
		return nil
	}
	var count int
	if err := reg.db.GetContext(ctx, &count, reg.db.Rebind(emailTakenQuery), email, excludedID); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (reg *userRegistry) get(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := reg.db.GetContext(ctx, &row, reg.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (reg *userRegistry) Append(ctx context.Context, usr user.User) (user.User, error) {
	usr = usr.Clone()
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	if err := reg.checkEmailUniqueness(ctx, usr.Email, 0); err != nil {
		return user.User{}, err
	}

	var pk int64
	err := reg.db.QueryRowxContext(ctx, reg.db.Rebind(insertUserQuery),
		usr.Email, hashParam(usr.PasswordHash), usr.DisplayName, usr.PhotoURL,
		usr.EmailVerified, usr.Role, strings.Join(usr.Roles, ","),
	).Scan(&pk)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = strconv.FormatInt(pk, 10)
	return usr, nil
}

func (reg *userRegistry) FindByCredentials(ctx context.Context, email, pwd string) (*user.User, error) {
	usr, err := reg.GetByEmail(ctx, email)
	if err != nil {
		if err == user.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(usr.PasswordHash) == 0 || usr.CheckPassword(pwd) != nil {
		return nil, nil
	}
	return &usr, nil
}

func (reg *userRegistry) GetByID(ctx context.Context, id string) (user.User, error) {
	pk, ok := parseID(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return reg.get(ctx, getUserByIDQuery, pk)
}

func (reg *userRegistry) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return reg.get(ctx, getUserByEmailQuery, core.CleanString(email, true /* lower */))
}

func (reg *userRegistry) QueryAll(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := reg.db.SelectContext(ctx, &rows, queryUsersQuery); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (reg *userRegistry) Update(ctx context.Context, usr user.User) (user.User, error) {
	pk, ok := parseID(usr.ID)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr = usr.Clone()
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	if err := reg.checkEmailUniqueness(ctx, usr.Email, pk); err != nil {
		return user.User{}, err
	}

	// a nil hash keeps the stored password
	res, err := reg.db.ExecContext(ctx, reg.db.Rebind(updateUserQuery),
		usr.Email, hashParam(usr.PasswordHash), usr.DisplayName, usr.PhotoURL,
		usr.EmailVerified, usr.Role, strings.Join(usr.Roles, ","), pk,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return reg.get(ctx, getUserByIDQuery, pk)
}
