package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/diogopython/Nuvemhost/internal/model"
)

// ProjectCache is an optional read-through cache for the public lookup by
// folder. Implementations must tolerate being unreachable.
type ProjectCache interface {
	Get(ctx context.Context, folder string) (*model.Project, bool)
	Set(ctx context.Context, p *model.Project)
	Delete(ctx context.Context, folder string)
}

// ProjectRepo stores project metadata in the projects table.
type ProjectRepo struct {
	db    *sql.DB
	cache ProjectCache
}

// NewProjectRepo returns a ProjectRepo. cache may be nil.
func NewProjectRepo(db *sql.DB, cache ProjectCache) *ProjectRepo {
	return &ProjectRepo{db: db, cache: cache}
}

const projectColumns = "id, user_id, project_name, folder_path, upload_date"

// Create inserts p unless its owner already has maxPerOwner projects. The
// owner's users row is locked for the duration of the transaction, so two
// concurrent uploads by the same user are counted one after the other.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project, maxPerOwner int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var uid uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", p.UserID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE user_id=?", p.UserID).Scan(&n); err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if n >= maxPerOwner {
		return ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (?,?,?,?,?)",
		p.ID, p.UserID, p.Name, p.FolderPath, p.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// GetByIDAndOwner returns the project only if owner owns it.
func (r *ProjectRepo) GetByIDAndOwner(ctx context.Context, id string, owner uint64) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id=? AND user_id=? LIMIT 1", id, owner)
	return scanProject(row)
}

// GetByFolder is the public lookup. It matches folder_path exactly.
func (r *ProjectRepo) GetByFolder(ctx context.Context, folder string) (*model.Project, error) {
	if r.cache != nil {
		if p, ok := r.cache.Get(ctx, folder); ok {
			return p, nil
		}
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE folder_path=? LIMIT 1", folder)
	p, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, p)
	}
	return p, nil
}

// ListByOwner returns the owner's projects, newest first.
func (r *ProjectRepo) ListByOwner(ctx context.Context, owner uint64) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE user_id=? ORDER BY upload_date DESC", owner)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByOwner returns how many projects owner has.
func (r *ProjectRepo) CountByOwner(ctx context.Context, owner uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE user_id=?", owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// Delete removes the owner's project row and drops it from the cache.
func (r *ProjectRepo) Delete(ctx context.Context, id string, owner uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var folder string
	err = tx.QueryRowContext(ctx,
		"SELECT folder_path FROM projects WHERE id=? AND user_id=? FOR UPDATE", id, owner).Scan(&folder)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id=? AND user_id=?", id, owner); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true

	if r.cache != nil {
		r.cache.Delete(ctx, folder)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(s rowScanner) (*model.Project, error) {
	var p model.Project
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.FolderPath, &p.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
