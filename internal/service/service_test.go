package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdvault/internal/model"
	"crowdvault/internal/repository"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	txs []*fakeTx
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

type fakeProjectStore struct {
	project   model.Project
	saves     int
	conflicts int
}

func (s *fakeProjectStore) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	cp := s.project
	return &cp, nil
}

func (s *fakeProjectStore) Save(ctx context.Context, tx pgx.Tx, p *model.Project, expectedVersion int64) error {
	if s.conflicts > 0 {
		s.conflicts--
		return repository.ErrVersionConflict
	}
	s.saves++
	p.Version = expectedVersion + 1
	s.project = *p
	return nil
}

func TestMutateProjectSavesOnChange(t *testing.T) {
	pool := &fakeBeginner{}
	store := &fakeProjectStore{project: model.Project{ID: 1, Version: 3, Title: "a"}}

	p, err := mutateProject(context.Background(), pool, store, 1, func(tx pgx.Tx, p *model.Project) error {
		p.Title = "b"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, int64(4), p.Version)
	require.Len(t, pool.txs, 1)
	assert.True(t, pool.txs[0].committed)
}

func TestMutateProjectSkipsSaveWhenUnchanged(t *testing.T) {
	pool := &fakeBeginner{}
	store := &fakeProjectStore{project: model.Project{ID: 1, Version: 3}}

	p, err := mutateProject(context.Background(), pool, store, 1, func(tx pgx.Tx, p *model.Project) error {
		return errNoChange
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, store.saves, "a no-op pass must not bump the version")
	assert.Equal(t, int64(3), p.Version)
}

func TestMutateProjectRetriesOnVersionConflict(t *testing.T) {
	pool := &fakeBeginner{}
	store := &fakeProjectStore{project: model.Project{ID: 1, Version: 3}, conflicts: 2}

	calls := 0
	p, err := mutateProject(context.Background(), pool, store, 1, func(tx pgx.Tx, p *model.Project) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, int64(4), p.Version)
}

func TestMutateProjectGivesUpAfterMaxRetries(t *testing.T) {
	pool := &fakeBeginner{}
	store := &fakeProjectStore{project: model.Project{ID: 1, Version: 3}, conflicts: maxSaveRetries}

	_, err := mutateProject(context.Background(), pool, store, 1, func(tx pgx.Tx, p *model.Project) error {
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, 0, store.saves)
}

func TestMutateProjectRollsBackOnError(t *testing.T) {
	pool := &fakeBeginner{}
	store := &fakeProjectStore{project: model.Project{ID: 1, Version: 3}}
	boom := errors.New("boom")

	_, err := mutateProject(context.Background(), pool, store, 1, func(tx pgx.Tx, p *model.Project) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.saves)
	require.Len(t, pool.txs, 1)
	assert.False(t, pool.txs[0].committed)
	assert.True(t, pool.txs[0].rolledBack)
}
