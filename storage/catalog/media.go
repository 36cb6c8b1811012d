package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type sqlMediaStore struct {
	db *DB
}

const mediaColumns = "id, project_id, type, base_key, variant, file_path, thumb_path, mime_type, alt, sort_order, duration, width, height, created_at"

func scanMedia(row interface{ Scan(...any) error }) (*MediaAsset, error) {
	var m MediaAsset
	err := row.Scan(&m.ID, &m.ParentID, &m.Kind, &m.BaseKey, &m.Variant, &m.StorageKey, &m.ThumbKey,
		&m.MimeType, &m.Alt, &m.SortOrder, &m.DurationSeconds, &m.Width, &m.Height, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *sqlMediaStore) insertBatchQuery(n int) string {
	values := make([]string, n)
	for i := range values {
		values[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	}

	query := "INSERT INTO project_media (project_id, type, base_key, variant, file_path, thumb_path, mime_type, alt, sort_order, duration, width, height) VALUES " +
		strings.Join(values, ", ")

	return s.db.rebind(query) + s.db.returningID()
}

func (s *sqlMediaStore) idsByKeyQuery(n int) string {
	return s.db.rebind("SELECT id, file_path FROM project_media WHERE project_id = ? AND file_path IN (" + placeholders(n) + ")")
}

// InsertBatch issues exactly one multi-row INSERT. Postgres reports the ids via
// RETURNING; on MySQL they are read back by the unique storage keys inside the
// same transaction since LastInsertId only yields the first one.
func (s *sqlMediaStore) InsertBatch(ctx context.Context, rows []MediaAsset) ([]MediaAsset, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	parentID := rows[0].ParentID
	args := make([]any, 0, len(rows)*12)
	for _, m := range rows {
		if m.ParentID != parentID {
			return nil, fmt.Errorf("media batch spans multiple parents (%d, %d)", parentID, m.ParentID)
		}
		args = append(args, m.ParentID, m.Kind, m.BaseKey, m.Variant, m.StorageKey, m.ThumbKey,
			m.MimeType, m.Alt, m.SortOrder, m.DurationSeconds, m.Width, m.Height)
	}

	out := make([]MediaAsset, len(rows))
	copy(out, rows)

	err := s.db.withTx(ctx, "insert media batch", func(tx *sql.Tx) error {
		if s.db.postgres() {
			return s.insertReturning(ctx, tx, out, args)
		}
		return s.insertThenResolve(ctx, tx, out, args)
	})
	if err != nil {
		return nil, mapError(err, ErrNotFound)
	}

	return out, nil
}

func (s *sqlMediaStore) insertReturning(ctx context.Context, tx *sql.Tx, out []MediaAsset, args []any) error {
	res, err := tx.QueryContext(ctx, s.insertBatchQuery(len(out)), args...)
	if err != nil {
		return err
	}
	defer res.Close()

	i := 0
	for res.Next() {
		if i >= len(out) {
			return fmt.Errorf("insert returned more ids than rows")
		}
		if err := res.Scan(&out[i].ID); err != nil {
			return err
		}
		i++
	}
	if err := res.Err(); err != nil {
		return err
	}
	if i != len(out) {
		return fmt.Errorf("insert returned %d ids for %d rows", i, len(out))
	}

	return nil
}

func (s *sqlMediaStore) insertThenResolve(ctx context.Context, tx *sql.Tx, out []MediaAsset, args []any) error {
	if _, err := tx.ExecContext(ctx, s.insertBatchQuery(len(out)), args...); err != nil {
		return err
	}

	lookupArgs := make([]any, 0, len(out)+1)
	lookupArgs = append(lookupArgs, out[0].ParentID)
	for _, m := range out {
		lookupArgs = append(lookupArgs, m.StorageKey)
	}

	rows, err := tx.QueryContext(ctx, s.idsByKeyQuery(len(out)), lookupArgs...)
	if err != nil {
		return err
	}
	defer rows.Close()

	ids := make(map[string]int64, len(out))
	for rows.Next() {
		var (
			id  int64
			key string
		)
		if err := rows.Scan(&id, &key); err != nil {
			return err
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range out {
		id, ok := ids[out[i].StorageKey]
		if !ok {
			return fmt.Errorf("inserted media %q not found", out[i].StorageKey)
		}
		out[i].ID = id
	}

	return nil
}

func (s *sqlMediaStore) patchQuery(patch Patch) string {
	sets := make([]string, 0, len(patch))
	for _, a := range patch {
		sets = append(sets, a.Column+" = ?")
	}
	return s.db.rebind("UPDATE project_media SET " + strings.Join(sets, ", ") + " WHERE project_id = ? AND id = ?")
}

func (s *sqlMediaStore) existsQuery() string {
	return s.db.rebind("SELECT 1 FROM project_media WHERE project_id = ? AND id = ?")
}

func (s *sqlMediaStore) Patch(ctx context.Context, parentID, id int64, patch Patch) error {
	if err := patch.validate(MediaColumns); err != nil {
		return err
	}

	args := make([]any, 0, len(patch)+2)
	for _, a := range patch {
		args = append(args, a.Value)
	}
	args = append(args, parentID, id)

	res, err := s.db.db.ExecContext(ctx, s.patchQuery(patch), args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// MySQL reports zero affected rows when values are unchanged.
	var found int
	err = s.db.db.QueryRowContext(ctx, s.existsQuery(), parentID, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *sqlMediaStore) selectOneQuery() string {
	return s.db.rebind("SELECT " + mediaColumns + " FROM project_media WHERE project_id = ? AND id = ?")
}

func (s *sqlMediaStore) deleteQuery() string {
	return s.db.rebind("DELETE FROM project_media WHERE project_id = ? AND id = ?")
}

func (s *sqlMediaStore) Delete(ctx context.Context, parentID, id int64) (*MediaAsset, error) {
	var deleted *MediaAsset

	err := s.db.withTx(ctx, "delete media", func(tx *sql.Tx) error {
		m, err := scanMedia(tx.QueryRowContext(ctx, s.selectOneQuery(), parentID, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		res, err := tx.ExecContext(ctx, s.deleteQuery(), parentID, id)
		if err != nil {
			return err
		}
		if err := affectedOrNotFound(res); err != nil {
			return err
		}

		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (s *sqlMediaStore) listQuery() string {
	return s.db.rebind("SELECT " + mediaColumns + " FROM project_media WHERE project_id = ? ORDER BY sort_order ASC, id ASC")
}

func (s *sqlMediaStore) queryMedia(ctx context.Context, query string, args ...any) ([]MediaAsset, error) {
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MediaAsset{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}

	return out, rows.Err()
}

func (s *sqlMediaStore) List(ctx context.Context, parentID int64) ([]MediaAsset, error) {
	return s.queryMedia(ctx, s.listQuery(), parentID)
}

func (s *sqlMediaStore) coversQuery(n int) string {
	return s.db.rebind("SELECT " + mediaColumns + " FROM project_media WHERE type = ? AND project_id IN (" + placeholders(n) + ") ORDER BY project_id ASC, sort_order ASC, id ASC")
}

func (s *sqlMediaStore) Covers(ctx context.Context, parentIDs []int64) (map[int64]MediaAsset, error) {
	ids := dedupe(parentIDs)
	covers := make(map[int64]MediaAsset, len(ids))
	if len(ids) == 0 {
		return covers, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, MediaImage)
	for _, id := range ids {
		args = append(args, id)
	}

	all, err := s.queryMedia(ctx, s.coversQuery(len(ids)), args...)
	if err != nil {
		return nil, err
	}

	for _, m := range all {
		if _, ok := covers[m.ParentID]; !ok {
			covers[m.ParentID] = m
		}
	}

	return covers, nil
}

func (s *sqlMediaStore) keysQuery() string {
	return s.db.rebind("SELECT file_path, thumb_path FROM project_media WHERE project_id = ? ORDER BY id ASC")
}

func (s *sqlMediaStore) KeysForParent(ctx context.Context, parentID int64) ([]string, error) {
	return collectKeys(ctx, s.db.db, s.keysQuery(), parentID)
}
