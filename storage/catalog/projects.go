package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type sqlProjectStore struct {
	db *DB
}

const projectColumns = "id, title, location, description, project_type_id, scope, year, status, area, created_at, updated_at"

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Title, &p.Location, &p.Description, &p.ProjectTypeID, &p.Scope, &p.Year, &p.Status, &p.Area, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *sqlProjectStore) listQuery(filter ProjectFilter) (string, []any) {
	var (
		cond []string
		args []any
	)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		like := s.db.likeOperator()
		cond = append(cond, fmt.Sprintf("(title %[1]s ? OR location %[1]s ? OR scope %[1]s ?)", like))
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Status != "" {
		cond = append(cond, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.ProjectTypeID > 0 {
		cond = append(cond, "project_type_id = ?")
		args = append(args, filter.ProjectTypeID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > AdminProjectLimit {
		limit = AdminProjectLimit
	}

	query := "SELECT " + projectColumns + " FROM projects"
	if len(cond) > 0 {
		query += " WHERE " + strings.Join(cond, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit)

	return s.db.rebind(query), args
}

func (s *sqlProjectStore) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, rows.Err()
}

func (s *sqlProjectStore) List(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	query, args := s.listQuery(filter)
	return s.queryProjects(ctx, query, args...)
}

func (s *sqlProjectStore) ListPublished(ctx context.Context, limit int) ([]Project, error) {
	if limit <= 0 || limit > PublicProjectLimit {
		limit = PublicProjectLimit
	}

	query, args := s.listQuery(ProjectFilter{Status: StatusPublished, Limit: limit})
	return s.queryProjects(ctx, query, args...)
}

func (s *sqlProjectStore) getQuery(publishedOnly bool) string {
	query := "SELECT " + projectColumns + " FROM projects WHERE id = ?"
	if publishedOnly {
		query += " AND status = ?"
	}
	return s.db.rebind(query)
}

func (s *sqlProjectStore) Get(ctx context.Context, id int64, publishedOnly bool) (*Project, error) {
	args := []any{id}
	if publishedOnly {
		args = append(args, StatusPublished)
	}

	p, err := scanProject(s.db.db.QueryRowContext(ctx, s.getQuery(publishedOnly), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p, nil
}

func (s *sqlProjectStore) existsQuery() string {
	return s.db.rebind("SELECT 1 FROM projects WHERE id = ?")
}

func (s *sqlProjectStore) Exists(ctx context.Context, id int64) (bool, error) {
	var found int
	err := s.db.db.QueryRowContext(ctx, s.existsQuery(), id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqlProjectStore) insertQuery() string {
	return s.db.rebind("INSERT INTO projects (title, location, description, project_type_id, scope, year, status, area) VALUES (?, ?, ?, ?, ?, ?, ?, ?)") + s.db.returningID()
}

func (s *sqlProjectStore) Create(ctx context.Context, p *Project) (int64, error) {
	status := p.Status
	if status == "" {
		status = StatusDraft
	}

	id, err := s.db.insertID(ctx, s.db.db, s.insertQuery(),
		p.Title, p.Location, p.Description, p.ProjectTypeID, p.Scope, p.Year, status, p.Area)
	if err != nil {
		return 0, mapError(err, ErrInvalidReference)
	}

	return id, nil
}

func (s *sqlProjectStore) updateQuery(patch Patch) string {
	sets := make([]string, 0, len(patch)+1)
	for _, a := range patch {
		sets = append(sets, a.Column+" = ?")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	return s.db.rebind("UPDATE projects SET " + strings.Join(sets, ", ") + " WHERE id = ?")
}

func (s *sqlProjectStore) Update(ctx context.Context, id int64, patch Patch) error {
	if err := patch.validate(ProjectColumns); err != nil {
		return err
	}

	args := make([]any, 0, len(patch)+1)
	for _, a := range patch {
		args = append(args, a.Value)
	}
	args = append(args, id)

	res, err := s.db.db.ExecContext(ctx, s.updateQuery(patch), args...)
	if err != nil {
		return mapError(err, ErrInvalidReference)
	}

	return affectedOrNotFound(res)
}

func (s *sqlProjectStore) mediaKeysQuery() string {
	return s.db.rebind("SELECT file_path, thumb_path FROM project_media WHERE project_id = ? ORDER BY id ASC")
}

func (s *sqlProjectStore) deleteQuery() string {
	return s.db.rebind("DELETE FROM projects WHERE id = ?")
}

func (s *sqlProjectStore) Delete(ctx context.Context, id int64) ([]string, error) {
	var keys []string

	err := s.db.withTx(ctx, "delete project", func(tx *sql.Tx) error {
		var err error
		keys, err = collectKeys(ctx, tx, s.mediaKeysQuery(), id)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, s.deleteQuery(), id)
		if err != nil {
			return mapError(err, ErrInUse)
		}

		return affectedOrNotFound(res)
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *sqlProjectStore) clearCategoriesQuery() string {
	return s.db.rebind("DELETE FROM project_categories WHERE project_id = ?")
}

func (s *sqlProjectStore) insertCategoriesQuery(n int) string {
	values := make([]string, n)
	for i := range values {
		values[i] = "(?, ?)"
	}
	return s.db.rebind("INSERT INTO project_categories (project_id, category_id) VALUES " + strings.Join(values, ", "))
}

func (s *sqlProjectStore) SetCategories(ctx context.Context, id int64, categoryIDs []int64) error {
	ids := dedupe(categoryIDs)

	return s.db.withTx(ctx, "set project categories", func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx, s.existsQuery(), id).Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		if _, err := tx.ExecContext(ctx, s.clearCategoriesQuery(), id); err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}

		args := make([]any, 0, len(ids)*2)
		for _, cid := range ids {
			args = append(args, id, cid)
		}

		if _, err := tx.ExecContext(ctx, s.insertCategoriesQuery(len(ids)), args...); err != nil {
			return mapError(err, ErrInvalidReference)
		}

		return nil
	})
}

func (s *sqlProjectStore) categoriesQuery() string {
	return s.db.rebind("SELECT c.id, c.name FROM categories c JOIN project_categories pc ON pc.category_id = c.id WHERE pc.project_id = ? ORDER BY c.name ASC")
}

func (s *sqlProjectStore) Categories(ctx context.Context, id int64) ([]Category, error) {
	rows, err := s.db.db.QueryContext(ctx, s.categoriesQuery(), id)
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

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// collectKeys scans (file_path, thumb_path) rows into a flat, de-duplicated key list.
func collectKeys(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	keys := []string{}
	for rows.Next() {
		var (
			file  string
			thumb *string
		)
		if err := rows.Scan(&file, &thumb); err != nil {
			return nil, err
		}
		m := MediaAsset{StorageKey: file, ThumbKey: thumb}
		for _, k := range m.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	return keys, rows.Err()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
