package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type sqlProjectTypeStore struct {
	db *DB
}

func (s *sqlProjectTypeStore) listQuery(filtered bool) string {
	query := "SELECT id, project_type FROM project_types"
	if filtered {
		query += " WHERE project_type " + s.db.likeOperator() + " ?"
	}
	return s.db.rebind(query + " ORDER BY project_type ASC")
}

func (s *sqlProjectTypeStore) listAllQuery() string {
	return "SELECT id, project_type FROM project_types ORDER BY id ASC"
}

func (s *sqlProjectTypeStore) scanTypes(ctx context.Context, query string, args ...any) ([]ProjectType, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ProjectType{}
	for rows.Next() {
		var t ProjectType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

func (s *sqlProjectTypeStore) List(ctx context.Context, query string) ([]ProjectType, error) {
	if q := strings.TrimSpace(query); q != "" {
		return s.scanTypes(ctx, s.listQuery(true), likePattern(q))
	}
	return s.scanTypes(ctx, s.listQuery(false))
}

func (s *sqlProjectTypeStore) ListAll(ctx context.Context) ([]ProjectType, error) {
	return s.scanTypes(ctx, s.listAllQuery())
}

func (s *sqlProjectTypeStore) insertQuery() string {
	return s.db.rebind("INSERT INTO project_types (project_type) VALUES (?)") + s.db.returningID()
}

func (s *sqlProjectTypeStore) Create(ctx context.Context, name string) (*ProjectType, error) {
	id, err := s.db.insertID(ctx, s.db.db, s.insertQuery(), name)
	if err != nil {
		return nil, mapError(err, ErrInvalidReference)
	}

	return &ProjectType{ID: id, Name: name}, nil
}

func (s *sqlProjectTypeStore) renameQuery() string {
	return s.db.rebind("UPDATE project_types SET project_type = ? WHERE id = ?")
}

func (s *sqlProjectTypeStore) Rename(ctx context.Context, id int64, name string) error {
	res, err := s.db.db.ExecContext(ctx, s.renameQuery(), name, id)
	if err != nil {
		return mapError(err, ErrInvalidReference)
	}
	return affectedOrNotFound(res)
}

func (s *sqlProjectTypeStore) usageQuery() string {
	return s.db.rebind("SELECT 1 FROM projects WHERE project_type_id = ? LIMIT 1")
}

func (s *sqlProjectTypeStore) deleteQuery() string {
	return s.db.rebind("DELETE FROM project_types WHERE id = ?")
}

func (s *sqlProjectTypeStore) Delete(ctx context.Context, id int64) error {
	return deleteUnlessUsed(ctx, s.db, s.usageQuery(), s.deleteQuery(), id)
}

type sqlCategoryStore struct {
	db *DB
}

func (s *sqlCategoryStore) listQuery() string {
	return "SELECT id, name FROM categories ORDER BY name ASC"
}

func (s *sqlCategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.db.QueryContext(ctx, s.listQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (s *sqlCategoryStore) insertQuery() string {
	return s.db.rebind("INSERT INTO categories (name) VALUES (?)") + s.db.returningID()
}

func (s *sqlCategoryStore) Create(ctx context.Context, name string) (*Category, error) {
	id, err := s.db.insertID(ctx, s.db.db, s.insertQuery(), name)
	if err != nil {
		return nil, mapError(err, ErrInvalidReference)
	}

	return &Category{ID: id, Name: name}, nil
}

func (s *sqlCategoryStore) usageQuery() string {
	return s.db.rebind("SELECT 1 FROM project_categories WHERE category_id = ? LIMIT 1")
}

func (s *sqlCategoryStore) deleteQuery() string {
	return s.db.rebind("DELETE FROM categories WHERE id = ?")
}

func (s *sqlCategoryStore) Delete(ctx context.Context, id int64) error {
	return deleteUnlessUsed(ctx, s.db, s.usageQuery(), s.deleteQuery(), id)
}

// deleteUnlessUsed checks for referencing rows first so the common case gets a
// clean ErrInUse; the foreign key still guards the race.
func deleteUnlessUsed(ctx context.Context, d *DB, usageQuery, deleteQuery string, id int64) error {
	var found int
	err := d.db.QueryRowContext(ctx, usageQuery, id).Scan(&found)
	if err == nil {
		return ErrInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res, err := d.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return mapError(err, ErrInUse)
	}

	return affectedOrNotFound(res)
}
