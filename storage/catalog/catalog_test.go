package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockDB(t *testing.T, driver string) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})

	d, err := NewDB(db, driver)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	return d, mock
}

func strPtr(s string) *string { return &s }

var projectRowColumns = []string{"id", "title", "location", "description", "project_type_id", "scope", "year", "status", "area", "created_at", "updated_at"}

func TestRebind(t *testing.T) {
	pg := &DB{placeholder: placeholderDollar}
	if got := pg.rebind("a = ? AND b IN (?, ?)"); got != "a = $1 AND b IN ($2, $3)" {
		t.Fatalf("unexpected rebind %q", got)
	}

	my := &DB{placeholder: placeholderQuestion}
	if got := my.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("mysql query should be untouched, got %q", got)
	}
}

func TestLikePatternEscapes(t *testing.T) {
	if got := likePattern(`50%_off\`); got != `%50\%\_off\\%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestPrepareDSNForcesParseTime(t *testing.T) {
	dsn, err := prepareDSN("mysql", "user:pw@tcp(localhost:3306)/folio")
	if err != nil {
		t.Fatalf("prepareDSN: %v", err)
	}

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.ParseTime || !parsed.MultiStatements {
		t.Fatalf("expected parseTime and multiStatements, got %s", dsn)
	}

	if _, err := prepareDSN("mysql", "::not a dsn"); err == nil {
		t.Fatalf("expected invalid dsn error")
	}
	if got, _ := prepareDSN("postgres", "postgres://x"); got != "postgres://x" {
		t.Fatalf("postgres dsn should pass through, got %q", got)
	}
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	if _, err := NewDB(nil, "sqlite"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestMapError(t *testing.T) {
	dup := &mysql.MySQLError{Number: mysqlDuplicateEntry}
	if err := mapError(dup, ErrInUse); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	fk := &pgconn.PgError{Code: pgForeignKeyViolation}
	if err := mapError(fk, ErrInUse); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
	if err := mapError(fk, ErrInvalidReference); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}

	plain := errors.New("boom")
	if err := mapError(plain, ErrInUse); err != plain {
		t.Fatalf("unexpected passthrough %v", err)
	}
}

func TestProjectListQueryFilters(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlProjectStore{db: d}

	filter := ProjectFilter{Query: "villa", Status: StatusPublished, ProjectTypeID: 4}
	query, args := store.listQuery(filter)

	want := "SELECT " + projectColumns + " FROM projects WHERE (title ILIKE $1 OR location ILIKE $2 OR scope ILIKE $3) AND status = $4 AND project_type_id = $5 ORDER BY created_at DESC, id DESC LIMIT 200"
	if query != want {
		t.Fatalf("unexpected query:\n%s\nwant:\n%s", query, want)
	}
	if len(args) != 5 {
		t.Fatalf("unexpected args %v", args)
	}

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("%villa%", "%villa%", "%villa%", StatusPublished, int64(4)).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(int64(1), "Villa", "Bali", nil, int64(4), nil, int64(2024), StatusPublished, nil, now, nil))

	got, err := store.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Villa" || *got[0].Location != "Bali" {
		t.Fatalf("unexpected projects %+v", got)
	}
}

func TestProjectListPublishedCapsLimit(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	query, _ := store.listQuery(ProjectFilter{Status: StatusPublished, Limit: PublicProjectLimit})
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(StatusPublished).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	got, err := store.ListPublished(context.Background(), 5000)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestProjectGetPublishedOnly(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.getQuery(true))).
		WithArgs(int64(9), StatusPublished).
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Get(context.Background(), 9, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectCreateDefaultsToDraft(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlProjectStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.insertQuery())).
		WithArgs("House", nil, nil, nil, nil, nil, StatusDraft, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := store.Create(context.Background(), &Project{Title: "House"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 12 {
		t.Fatalf("unexpected id %d", id)
	}
}

func TestProjectCreateMissingType(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	typeID := int64(99)
	mock.ExpectExec(regexp.QuoteMeta(store.insertQuery())).
		WillReturnError(&mysql.MySQLError{Number: mysqlNoReferencedRow})

	_, err := store.Create(context.Background(), &Project{Title: "House", ProjectTypeID: &typeID})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestProjectUpdate(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	patch := Patch{}.Set("title", "New").Set("status", StatusPublished)
	if q := store.updateQuery(patch); q != "UPDATE projects SET title = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?" {
		t.Fatalf("unexpected update query %q", q)
	}

	mock.ExpectExec(regexp.QuoteMeta(store.updateQuery(patch))).
		WithArgs("New", StatusPublished, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Update(context.Background(), 3, patch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(store.updateQuery(patch))).
		WithArgs("New", StatusPublished, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Update(context.Background(), 4, patch); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Update(context.Background(), 3, nil); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected nothing to update, got %v", err)
	}
	if err := store.Update(context.Background(), 3, Patch{}.Set("id", 1)); err == nil {
		t.Fatalf("expected disallowed column error")
	}
}

func TestProjectDeleteReturnsMediaKeys(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.mediaKeysQuery())).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path", "thumb_path"}).
			AddRow("projects/5/a@1600w.jpg", "projects/5/a@1600w.jpg").
			AddRow("projects/5/b.mp4", nil))
	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := store.Delete(context.Background(), 5)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(keys) != 2 || keys[0] != "projects/5/a@1600w.jpg" || keys[1] != "projects/5/b.mp4" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestProjectDeleteMissingRollsBack(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectStore{db: d}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.mediaKeysQuery())).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path", "thumb_path"}))
	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := store.Delete(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectSetCategories(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlProjectStore{db: d}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(store.clearCategoriesQuery())).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(store.insertCategoriesQuery(2))).
		WithArgs(int64(2), int64(7), int64(2), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.SetCategories(context.Background(), 2, []int64{7, 8, 7, 0}); err != nil {
		t.Fatalf("SetCategories: %v", err)
	}
}

func TestMediaInsertBatchPostgres(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlMediaStore{db: d}

	rows := []MediaAsset{
		{ParentID: 1, Kind: MediaImage, BaseKey: "projects/1/a", Variant: "@1600w.jpg", StorageKey: "projects/1/a@1600w.jpg", ThumbKey: strPtr("projects/1/a@1600w.jpg"), MimeType: "image/jpeg"},
		{ParentID: 1, Kind: MediaVideo, BaseKey: "projects/1/b.mp4", StorageKey: "projects/1/b.mp4", MimeType: "video/mp4", SortOrder: 1},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.insertBatchQuery(2))).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)).AddRow(int64(11)))
	mock.ExpectCommit()

	got, err := store.InsertBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if got[0].ID != 10 || got[1].ID != 11 {
		t.Fatalf("unexpected ids %d %d", got[0].ID, got[1].ID)
	}
	if rows[0].ID != 0 {
		t.Fatalf("input rows must not be mutated")
	}
}

func TestMediaInsertBatchMySQLResolvesIDs(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlMediaStore{db: d}

	rows := []MediaAsset{
		{ParentID: 1, Kind: MediaImage, StorageKey: "k1", MimeType: "image/jpeg"},
		{ParentID: 1, Kind: MediaImage, StorageKey: "k2", MimeType: "image/jpeg"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(store.insertBatchQuery(2))).
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectQuery(regexp.QuoteMeta(store.idsByKeyQuery(2))).
		WithArgs(int64(1), "k1", "k2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_path"}).AddRow(int64(21), "k2").AddRow(int64(20), "k1"))
	mock.ExpectCommit()

	got, err := store.InsertBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if got[0].ID != 20 || got[1].ID != 21 {
		t.Fatalf("ids not matched by key: %+v", got)
	}
}

func TestMediaInsertBatchFailureRollsBack(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlMediaStore{db: d}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(store.insertBatchQuery(1))).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := store.InsertBatch(context.Background(), []MediaAsset{{ParentID: 1, StorageKey: "k"}})
	if err == nil {
		t.Fatalf("expected insert error")
	}
}

func TestMediaInsertBatchRejectsMixedParents(t *testing.T) {
	d, _ := newMockDB(t, "mysql")
	store := &sqlMediaStore{db: d}

	_, err := store.InsertBatch(context.Background(), []MediaAsset{{ParentID: 1}, {ParentID: 2}})
	if err == nil {
		t.Fatalf("expected error for mixed parents")
	}
}

func TestMediaPatchFallsBackToExistence(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlMediaStore{db: d}
	patch := Patch{}.Set("alt", strPtr("Facade"))

	mock.ExpectExec(regexp.QuoteMeta(store.patchQuery(patch))).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	if err := store.Patch(context.Background(), 1, 2, patch); err != nil {
		t.Fatalf("unchanged row should not be an error: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(store.patchQuery(patch))).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(store.existsQuery())).
		WithArgs(int64(1), int64(3)).
		WillReturnError(sql.ErrNoRows)

	if err := store.Patch(context.Background(), 1, 3, patch); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Patch(context.Background(), 1, 3, Patch{}.Set("file_path", "x")); err == nil {
		t.Fatalf("expected disallowed column error")
	}
}

var mediaRowColumns = []string{"id", "project_id", "type", "base_key", "variant", "file_path", "thumb_path", "mime_type", "alt", "sort_order", "duration", "width", "height", "created_at"}

func TestMediaDelete(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlMediaStore{db: d}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(store.selectOneQuery())).
		WithArgs(int64(1), int64(4)).
		WillReturnRows(sqlmock.NewRows(mediaRowColumns).
			AddRow(int64(4), int64(1), "image", "projects/1/a", "@1600w.jpg", "projects/1/a@1600w.jpg", "projects/1/a@1600w.jpg", "image/jpeg", nil, int64(0), nil, 1600, 1200, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs(int64(1), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := store.Delete(context.Background(), 1, 4)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "projects/1/a@1600w.jpg" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMediaCoversPicksFirstImage(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlMediaStore{db: d}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(store.coversQuery(2))).
		WithArgs(MediaImage, int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(mediaRowColumns).
			AddRow(int64(3), int64(1), "image", "b", "", "first", nil, "image/jpeg", nil, int64(0), nil, 0, 0, now).
			AddRow(int64(4), int64(1), "image", "b", "", "second", nil, "image/jpeg", nil, int64(1), nil, 0, 0, now).
			AddRow(int64(9), int64(2), "image", "c", "", "other", nil, "image/jpeg", nil, int64(0), nil, 0, 0, now))

	covers, err := store.Covers(context.Background(), []int64{1, 2, 1})
	if err != nil {
		t.Fatalf("Covers: %v", err)
	}
	if covers[1].StorageKey != "first" || covers[2].StorageKey != "other" {
		t.Fatalf("unexpected covers %+v", covers)
	}

	empty, err := store.Covers(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no query for empty ids")
	}
}

func TestProjectTypeCreateConflict(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlProjectTypeStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.insertQuery())).
		WithArgs("Residential").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	if _, err := store.Create(context.Background(), "Residential"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestProjectTypeListFiltered(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectTypeStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.listQuery(true))).
		WithArgs("%res%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_type"}).AddRow(int64(1), "Residential"))

	got, err := store.List(context.Background(), " res ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Residential" {
		t.Fatalf("unexpected types %v", got)
	}
}

func TestProjectTypeDeleteInUse(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlProjectTypeStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.usageQuery())).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	if err := store.Delete(context.Background(), 1); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(store.usageQuery())).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategoryDeleteInUse(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlCategoryStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.usageQuery())).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	if err := store.Delete(context.Background(), 3); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
}

func TestStudioUpsertDialects(t *testing.T) {
	d, mock := newMockDB(t, "postgres")
	store := &sqlStudioStore{db: d}

	desc := strPtr("<p>We build.</p>")
	mock.ExpectExec(regexp.QuoteMeta(store.upsertQuery())).
		WithArgs(StudioProfile, desc).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(store.getQuery())).
		WithArgs(StudioProfile).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "description", "updated_at"}).AddRow(int64(1), "profile", *desc, time.Now()))

	row, err := store.Upsert(context.Background(), StudioProfile, desc)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.Type != StudioProfile || *row.Description != *desc {
		t.Fatalf("unexpected row %+v", row)
	}

	my := &sqlStudioStore{db: &DB{placeholder: placeholderQuestion}}
	if q := my.upsertQuery(); !regexp.MustCompile(`ON DUPLICATE KEY UPDATE`).MatchString(q) {
		t.Fatalf("mysql upsert should use ON DUPLICATE KEY: %s", q)
	}
}

func TestStudioDeleteMissing(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlStudioStore{db: d}

	mock.ExpectExec(regexp.QuoteMeta(store.deleteQuery())).
		WithArgs(StudioAchievement).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), StudioAchievement); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserByEmail(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlUserStore{db: d}

	mock.ExpectQuery(regexp.QuoteMeta(store.byEmailQuery())).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_admin"}).AddRow(int64(1), "a@example.com", "hash", true))

	u, err := store.ByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("ByEmail: %v", err)
	}
	if !u.IsAdmin || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", u)
	}

	mock.ExpectQuery(regexp.QuoteMeta(store.byEmailQuery())).
		WithArgs("b@example.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.ByEmail(context.Background(), "b@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserUpsertAdminMySQL(t *testing.T) {
	d, mock := newMockDB(t, "mysql")
	store := &sqlUserStore{db: d}

	mock.ExpectExec(regexp.QuoteMeta(store.upsertAdminQuery())).
		WithArgs("a@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(7, 2))

	id, err := store.UpsertAdmin(context.Background(), "a@example.com", "hash")
	if err != nil || id != 7 {
		t.Fatalf("UpsertAdmin = %d, %v", id, err)
	}
}

func TestMediaAssetKeys(t *testing.T) {
	same := MediaAsset{StorageKey: "a", ThumbKey: strPtr("a")}
	if keys := same.Keys(); len(keys) != 1 {
		t.Fatalf("expected duplicate thumb to collapse, got %v", keys)
	}

	distinct := MediaAsset{StorageKey: "a", ThumbKey: strPtr("b")}
	if keys := distinct.Keys(); len(keys) != 2 {
		t.Fatalf("expected both keys, got %v", keys)
	}
}

func TestParseStudioType(t *testing.T) {
	if got, ok := ParseStudioType(" Philosophy "); !ok || got != StudioPhilosophy {
		t.Fatalf("unexpected parse %q %v", got, ok)
	}
	if _, ok := ParseStudioType("history"); ok {
		t.Fatalf("expected unknown type to be rejected")
	}
}

func TestMigrationSource(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		src, err := MigrationSource(driver)
		if err != nil {
			t.Fatalf("MigrationSource(%s): %v", driver, err)
		}
		f, err := src.Open("0001_init.up.sql")
		if err != nil {
			t.Fatalf("missing init migration for %s: %v", driver, err)
		}
		_ = f.Close()
	}

	if _, err := MigrationSource("sqlite"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
