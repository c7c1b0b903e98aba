package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mandala-magic/internal/mandala/models"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ============================================================
// SQLite Repository
// ============================================================

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы для readiness-проб.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) InsertExport(ctx context.Context, rec models.ExportRecord) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO exports (id, session_id, format, filename, path, width, height, size, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, rec.ID, rec.SessionID, rec.Format, rec.Filename, rec.Path, rec.Width, rec.Height, rec.Size, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

func (r *Repository) GetExport(ctx context.Context, id string) (*models.ExportRecord, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, session_id, format, filename, path, width, height, size, created_at
        FROM exports
        WHERE id = ?
    `, id)

	var rec models.ExportRecord
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.Format, &rec.Filename, &rec.Path, &rec.Width, &rec.Height, &rec.Size, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListBySession возвращает экспорты сессии, новые первыми.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]models.ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, session_id, format, filename, path, width, height, size, created_at
        FROM exports
        WHERE session_id = ?
        ORDER BY created_at DESC, id
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ExportRecord{}
	for rows.Next() {
		var rec models.ExportRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Format, &rec.Filename, &rec.Path, &rec.Width, &rec.Height, &rec.Size, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exports WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete exports: %w", err)
	}
	return res.RowsAffected()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
