package db

import (
	"context"
	"testing"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/ossdoctor/contribution-service/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpsertRepositoryKeepsStableID(t *testing.T) {
	store := NewGormRepositoryStore(testutil.OpenTestDB(t))
	ctx := context.Background()

	repo := &entities.Repository{OwnerName: "octocat", Name: "hello-world", StarsCount: 10}
	assert.NoError(t, store.UpsertRepository(ctx, repo))
	assert.NotZero(t, repo.ID)
	firstID := repo.ID

	refreshed := &entities.Repository{OwnerName: "octocat", Name: "hello-world", StarsCount: 25}
	assert.NoError(t, store.UpsertRepository(ctx, refreshed))
	assert.Equal(t, firstID, refreshed.ID)

	fetched, err := store.GetRepositoryByFullName(ctx, "octocat", "hello-world")
	assert.NoError(t, err)
	assert.Equal(t, 25, fetched.StarsCount)
}

func TestGetRepositoryByFullNameNotFound(t *testing.T) {
	store := NewGormRepositoryStore(testutil.OpenTestDB(t))

	_, err := store.GetRepositoryByFullName(context.Background(), "octocat", "ghost")
	assert.ErrorIs(t, err, entities.ErrRepositoryNotFound)
}

func TestScoreSnapshotsAreAppendOnly(t *testing.T) {
	gormDB := testutil.OpenTestDB(t)
	store := NewGormScoreStore(gormDB)
	ctx := context.Background()

	for _, score := range []int{40, 55} {
		err := store.CreateScore(ctx, &entities.Score{RepositoryID: 1, ScoreType: entities.ScoreHealth, Score: score})
		assert.NoError(t, err)
	}

	scores, err := store.GetScoresByRepository(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, scores, 2)
}
