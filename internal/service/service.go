// Package service orchestrates the escrow core: load an aggregate, apply a
// transition, save conditionally on the loaded version, and queue events
// through the outbox in the same transaction.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crowdvault/internal/model"
	"crowdvault/internal/repository"
)

// maxSaveRetries bounds the reload-and-retry loop on version conflicts.
const maxSaveRetries = 3

// errNoChange is returned by a mutateProject fn that inspected the aggregate
// and found nothing to do. The loaded project is returned without a save, so
// the version stays put.
var errNoChange = errors.New("no change")

// txBeginner is the slice of *pgxpool.Pool the transaction helpers need.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// projectStore is the slice of *repository.ProjectRepository that
// mutateProject needs.
type projectStore interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	Save(ctx context.Context, tx pgx.Tx, p *model.Project, expectedVersion int64) error
}

// withTx runs fn inside a transaction on pool.
func withTx(ctx context.Context, pool txBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mutateProject loads the project, applies fn, and saves under the loaded
// version. On a version conflict it reloads and retries up to maxSaveRetries
// times. fn may queue outbox events through the given tx, or return
// errNoChange to skip the save entirely.
func mutateProject(
	ctx context.Context,
	pool txBeginner,
	projects projectStore,
	projectID int64,
	fn func(tx pgx.Tx, p *model.Project) error,
) (*model.Project, error) {
	var saved *model.Project
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		p, err := projects.GetByID(ctx, projectID)
		if err != nil {
			return nil, err
		}
		loadedVersion := p.Version

		err = withTx(ctx, pool, func(tx pgx.Tx) error {
			if err := fn(tx, p); err != nil {
				return err
			}
			return projects.Save(ctx, tx, p, loadedVersion)
		})
		if errors.Is(err, errNoChange) {
			return p, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		saved = p
		return saved, nil
	}
	return nil, repository.ErrVersionConflict
}
