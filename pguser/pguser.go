package pguser

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davrk/authkit/provider"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

const userColumns = `id, email, username, name, first_name, last_name, avatar_url,
	roles, email_verified, active, created_at, updated_at, last_login_at, password_hash`

// Repository implements provider.UserRepository backed by PostgreSQL.
//
// Repository instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Repository struct {
	db    *sql.DB
	owned bool
}

var _ provider.UserRepository = (*Repository)(nil)

// Open connects to PostgreSQL with the pgx stdlib driver and returns a
// Repository that owns the connection pool.
//
// Open may return an error when input validation, dependency calls, or security checks fail.
func Open(dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pguser: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Repository{db: db, owned: true}, nil
}

// Wrap adapts an existing connection pool. The caller keeps ownership and
// must close it.
func Wrap(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close releases the connection pool when the Repository owns it, and is a
// no-op otherwise.
func (r *Repository) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

// Migrate creates the users table and its indexes when they do not exist.
//
// Migrate may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		create table if not exists authkit_users (
			id             text primary key,
			email          text not null,
			username       text not null default '',
			name           text not null default '',
			first_name     text not null default '',
			last_name      text not null default '',
			avatar_url     text not null default '',
			roles          jsonb not null default '[]',
			email_verified boolean not null default false,
			active         boolean not null default true,
			created_at     timestamptz not null,
			updated_at     timestamptz not null,
			last_login_at  timestamptz,
			password_hash  text not null default ''
		);
		create unique index if not exists authkit_users_email_idx on authkit_users (lower(email));
		create unique index if not exists authkit_users_username_idx on authkit_users (lower(username)) where username <> '';
	`)
	if err != nil {
		return fmt.Errorf("pguser: migrate: %w", err)
	}
	return nil
}

// FindByID describes the findByID operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) FindByID(ctx context.Context, id string) (*provider.User, error) {
	return r.findOne(ctx, `select `+userColumns+` from authkit_users where id = $1`, id)
}

// FindByEmail looks an account up by email, case-insensitively.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*provider.User, error) {
	return r.findOne(ctx, `select `+userColumns+` from authkit_users where lower(email) = lower($1)`, email)
}

// FindByUsername looks an account up by username, case-insensitively.
//
// FindByUsername may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*provider.User, error) {
	if username == "" {
		return nil, provider.ErrUserNotFound
	}
	return r.findOne(ctx, `select `+userColumns+` from authkit_users where lower(username) = lower($1)`, username)
}

// Create inserts a new account record. A duplicate email or username maps to
// provider.ErrUserExists.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) Create(ctx context.Context, u *provider.User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("pguser: encode roles: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		insert into authkit_users (`+userColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, u.ID, u.Email, u.Username, u.Name, u.FirstName, u.LastName, u.AvatarURL,
		roles, u.EmailVerified, u.Active, u.CreatedAt, u.UpdatedAt, nullTime(u.LastLoginAt), u.PasswordHash)
	if isUniqueViolation(err) {
		return provider.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("pguser: create: %w", err)
	}
	return nil
}

// Update rewrites the mutable account fields. The password hash is not
// touched; SetPassword owns it.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) Update(ctx context.Context, u *provider.User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("pguser: encode roles: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		update authkit_users set
			email = $2, username = $3, name = $4, first_name = $5, last_name = $6,
			avatar_url = $7, roles = $8, email_verified = $9, active = $10,
			updated_at = $11, last_login_at = $12
		where id = $1
	`, u.ID, u.Email, u.Username, u.Name, u.FirstName, u.LastName, u.AvatarURL,
		roles, u.EmailVerified, u.Active, u.UpdatedAt, nullTime(u.LastLoginAt))
	if isUniqueViolation(err) {
		return provider.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("pguser: update: %w", err)
	}
	return noneUpdated(res)
}

// Delete removes the account record.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from authkit_users where id = $1`, id)
	if err != nil {
		return fmt.Errorf("pguser: delete: %w", err)
	}
	return noneUpdated(res)
}

// SetPassword replaces the stored hash and bumps updated_at.
//
// SetPassword may return an error when input validation, dependency calls, or security checks fail.
func (r *Repository) SetPassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		update authkit_users set password_hash = $2, updated_at = now() where id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("pguser: set password: %w", err)
	}
	return noneUpdated(res)
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*provider.User, error) {
	var (
		u         provider.User
		roles     []byte
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.Name, &u.FirstName, &u.LastName, &u.AvatarURL,
		&roles, &u.EmailVerified, &u.Active, &u.CreatedAt, &u.UpdatedAt, &lastLogin, &u.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, provider.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pguser: find: %w", err)
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, fmt.Errorf("pguser: decode roles: %w", err)
		}
	}
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func noneUpdated(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver cannot report; assume the statement matched
	}
	if n == 0 {
		return provider.ErrUserNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
