package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/data/pgxutil"
)

// UserDirectoryRepo implements the UserDirectoryRepository port using
// PostgreSQL. It backs the role directory: users/{id} records plus the
// managed admin allow-list.
type UserDirectoryRepo struct {
	DB *sql.DB
}

// NewUserDirectoryRepo creates a new UserDirectoryRepo instance.
func NewUserDirectoryRepo(db *sql.DB) *UserDirectoryRepo {
	return &UserDirectoryRepo{DB: db}
}

const userColumns = "id, email, display_name, role, is_premium, premium_expiry, created_at, updated_at"

// GetUser retrieves a directory record by principal id.
func (r *UserDirectoryRepo) GetUser(ctx context.Context, id string) (domainauth.UserRecord, error) {
	if id == "" {
		return domainauth.UserRecord{}, ErrUserIDRequired
	}

	var rec domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

		rows, err := conn.Query(ctx, query, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		rec, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.UserRecord])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.UserRecord{}, ErrUserNotFound
		}
		return domainauth.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

// GetUserByEmail retrieves a directory record by email, case-insensitively.
func (r *UserDirectoryRepo) GetUserByEmail(ctx context.Context, email string) (domainauth.UserRecord, error) {
	if email == "" {
		return domainauth.UserRecord{}, ErrEmailRequired
	}

	var rec domainauth.UserRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

		rows, err := conn.Query(ctx, query, email)
		if err != nil {
			return err
		}
		defer rows.Close()
		rec, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.UserRecord])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.UserRecord{}, ErrUserNotFound
		}
		return domainauth.UserRecord{}, fmt.Errorf("get user by email: %w", err)
	}
	return rec, nil
}

// UpsertUser inserts or updates the record stored under users/{id}.
func (r *UserDirectoryRepo) UpsertUser(ctx context.Context, rec domainauth.UserRecord) error {
	if rec.ID == "" {
		return ErrUserIDRequired
	}
	if rec.Email == "" {
		return ErrEmailRequired
	}
	role := domainauth.ParseRole(rec.Role)

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `
			INSERT INTO users (id, email, display_name, role, is_premium, premium_expiry)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				display_name = EXCLUDED.display_name,
				role = EXCLUDED.role,
				is_premium = EXCLUDED.is_premium,
				premium_expiry = EXCLUDED.premium_expiry,
				updated_at = now()`

		_, err := conn.Exec(ctx, query,
			rec.ID, rec.Email, rec.DisplayName, string(role), rec.IsPremium, rec.PremiumExpiry)
		return err
	})
	if err != nil {
		return r.mapWriteErr(err)
	}
	return nil
}

// SetRole updates only the role attribute of an existing record. Used
// by admin promotion/demotion; callers must invalidate the role
// directory cache afterwards for the change to take effect promptly.
func (r *UserDirectoryRepo) SetRole(ctx context.Context, id string, role domainauth.Role) error {
	if id == "" {
		return ErrUserIDRequired
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	var tag pgconn.CommandTag
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`
		var execErr error
		tag, execErr = conn.Exec(ctx, query, id, string(role))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Allowlist returns the managed admin email lists.
func (r *UserDirectoryRepo) Allowlist(ctx context.Context) (domainauth.AdminAllowlist, error) {
	var list domainauth.AdminAllowlist
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT email, role FROM admin_allowlist ORDER BY email`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var email, role string
			if scanErr := rows.Scan(&email, &role); scanErr != nil {
				return scanErr
			}
			switch domainauth.Role(role) {
			case domainauth.RoleSuperAdmin:
				list.SuperAdmins = append(list.SuperAdmins, email)
			case domainauth.RoleAdmin:
				list.Admins = append(list.Admins, email)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return domainauth.AdminAllowlist{}, fmt.Errorf("load allowlist: %w", err)
	}
	return list, nil
}

// mapWriteErr converts driver errors into repository sentinels where a
// caller can act on them.
func (r *UserDirectoryRepo) mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrUserAlreadyExists
	}
	return fmt.Errorf("write user: %w", err)
}
