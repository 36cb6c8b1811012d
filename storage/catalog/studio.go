package catalog

import (
	"context"
	"database/sql"
	"errors"
)

type sqlStudioStore struct {
	db *DB
}

func (s *sqlStudioStore) getQuery() string {
	return s.db.rebind("SELECT id, type, description, updated_at FROM studio WHERE type = ?")
}

func (s *sqlStudioStore) Get(ctx context.Context, t StudioType) (*Studio, error) {
	var st Studio
	err := s.db.db.QueryRowContext(ctx, s.getQuery(), t).Scan(&st.ID, &st.Type, &st.Description, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &st, nil
}

func (s *sqlStudioStore) upsertQuery() string {
	if s.db.postgres() {
		return s.db.rebind("INSERT INTO studio (type, description) VALUES (?, ?) ON CONFLICT (type) DO UPDATE SET description = EXCLUDED.description, updated_at = CURRENT_TIMESTAMP")
	}
	return "INSERT INTO studio (type, description) VALUES (?, ?) ON DUPLICATE KEY UPDATE description = VALUES(description), updated_at = CURRENT_TIMESTAMP"
}

func (s *sqlStudioStore) Upsert(ctx context.Context, t StudioType, description *string) (*Studio, error) {
	if _, err := s.db.db.ExecContext(ctx, s.upsertQuery(), t, description); err != nil {
		return nil, err
	}

	return s.Get(ctx, t)
}

func (s *sqlStudioStore) updateQuery() string {
	return s.db.rebind("UPDATE studio SET description = ?, updated_at = CURRENT_TIMESTAMP WHERE type = ?")
}

func (s *sqlStudioStore) UpdateDescription(ctx context.Context, t StudioType, description *string) error {
	res, err := s.db.db.ExecContext(ctx, s.updateQuery(), description, t)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *sqlStudioStore) deleteQuery() string {
	return s.db.rebind("DELETE FROM studio WHERE type = ?")
}

func (s *sqlStudioStore) Delete(ctx context.Context, t StudioType) error {
	res, err := s.db.db.ExecContext(ctx, s.deleteQuery(), t)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

type sqlUserStore struct {
	db *DB
}

func (s *sqlUserStore) byEmailQuery() string {
	return s.db.rebind("SELECT id, email, password_hash, is_admin FROM users WHERE email = ?")
}

func (s *sqlUserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.db.QueryRowContext(ctx, s.byEmailQuery(), email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (s *sqlUserStore) upsertAdminQuery() string {
	if s.db.postgres() {
		return s.db.rebind("INSERT INTO users (email, password_hash, is_admin) VALUES (?, ?, TRUE) ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, is_admin = TRUE RETURNING id")
	}
	return "INSERT INTO users (email, password_hash, is_admin) VALUES (?, ?, TRUE) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), password_hash = VALUES(password_hash), is_admin = TRUE"
}

func (s *sqlUserStore) UpsertAdmin(ctx context.Context, email, passwordHash string) (int64, error) {
	return s.db.insertID(ctx, s.db.db, s.upsertAdminQuery(), email, passwordHash)
}
