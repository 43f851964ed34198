package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/ossdoctor/contribution-service/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestCommitScoreThresholds(t *testing.T) {
	assert.Equal(t, 25, CommitScore(2048))
	assert.Equal(t, 25, CommitScore(1024))
	assert.Equal(t, 20, CommitScore(1023))
	assert.Equal(t, 5, CommitScore(64))
	assert.Equal(t, 0, CommitScore(63))
	assert.Equal(t, 0, CommitScore(0))
}

func TestUpdateScoreRewardsRecency(t *testing.T) {
	assert.Equal(t, 25, UpdateScore(0))
	assert.Equal(t, 25, UpdateScore(7))
	assert.Equal(t, 20, UpdateScore(8))
	assert.Equal(t, 5, UpdateScore(365))
	assert.Equal(t, 0, UpdateScore(366))
	assert.Equal(t, 0, UpdateScore(999))
}

func TestDaysSinceLast(t *testing.T) {
	assert.Equal(t, 999, DaysSinceLast(nil))

	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	assert.Equal(t, 10, DaysSinceLast(&tenDaysAgo))
}

func TestHealthAndSocialScores(t *testing.T) {
	recentPush := time.Now().Add(-24 * time.Hour)
	repo := &entities.Repository{
		TotalCommits:       1024, // 25
		MergedPullRequests: 512,  // 25
		ClosedIssues:       32,   // 5
		LastPushedAt:       &recentPush,
		StarsCount:         256, // 15
		ForksCount:         16,  // 5
		WatchersCount:      8,   // 5
		ContributorsCount:  1,   // 0
	}

	assert.Equal(t, 25+25+25+5, HealthScore(repo))
	assert.Equal(t, 15+5+5+0, SocialScore(repo))
}

func TestTotalScoreTruncatesTowardZero(t *testing.T) {
	assert.Equal(t, 100, TotalScore(100, 100))
	assert.Equal(t, 0, TotalScore(0, 0))
	// 80*5 + 25*2 = 450 -> 45
	assert.Equal(t, 45, TotalScore(80, 25))
	// 33*5 + 11*2 = 187 -> 18, not 19
	assert.Equal(t, 18, TotalScore(33, 11))
}

type stubMetadataClient struct {
	info            *api.RepositoryInfo
	contributors    int
	contributorsErr error
}

func (s *stubMetadataClient) GetRepository(ctx context.Context, owner, name string) (*api.RepositoryInfo, error) {
	return s.info, nil
}

func (s *stubMetadataClient) GetContributorCount(ctx context.Context, owner, name string) (int, error) {
	return s.contributors, s.contributorsErr
}

func TestScoreRepositoryPersistsSnapshots(t *testing.T) {
	gormDB := testutil.OpenTestDB(t)
	repoStore := db.NewGormRepositoryStore(gormDB)
	scoreStore := db.NewGormScoreStore(gormDB)

	pushedAt := time.Now().Add(-2 * 24 * time.Hour)
	client := &stubMetadataClient{
		info: &api.RepositoryInfo{
			Owner:              "octocat",
			Name:               "hello-world",
			Stars:              256,
			Forks:              64,
			Watchers:           32,
			TotalCommits:       512,
			MergedPullRequests: 128,
			ClosedIssues:       64,
			PushedAt:           &pushedAt,
		},
		contributors: 16,
	}

	svc := NewScoreService(client, repoStore, scoreStore, testLogger())
	snapshots, err := svc.ScoreRepository(context.Background(), "octocat", "hello-world")
	assert.NoError(t, err)
	assert.Len(t, snapshots, 3)

	// commits 20 + update 25 + prs 15 + issues 10
	health := 70
	// stars 15 + forks 15 + watchers 15 + contributors 10
	social := 55
	assert.Equal(t, entities.ScoreHealth, snapshots[0].ScoreType)
	assert.Equal(t, health, snapshots[0].Score)
	assert.Equal(t, entities.ScoreSocial, snapshots[1].ScoreType)
	assert.Equal(t, social, snapshots[1].Score)
	assert.Equal(t, entities.ScoreTotal, snapshots[2].ScoreType)
	assert.Equal(t, (health*5+social*2)/10, snapshots[2].Score)

	repo, err := repoStore.GetRepositoryByFullName(context.Background(), "octocat", "hello-world")
	assert.NoError(t, err)
	assert.Equal(t, 16, repo.ContributorsCount)

	stored, err := scoreStore.GetScoresByRepository(context.Background(), repo.ID)
	assert.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestScoreRepositoryDefaultsContributorsOnError(t *testing.T) {
	gormDB := testutil.OpenTestDB(t)
	repoStore := db.NewGormRepositoryStore(gormDB)
	scoreStore := db.NewGormScoreStore(gormDB)

	client := &stubMetadataClient{
		info:            &api.RepositoryInfo{Owner: "octocat", Name: "hello-world"},
		contributorsErr: api.ErrNetwork,
	}

	svc := NewScoreService(client, repoStore, scoreStore, testLogger())
	_, err := svc.ScoreRepository(context.Background(), "octocat", "hello-world")
	assert.NoError(t, err)

	repo, err := repoStore.GetRepositoryByFullName(context.Background(), "octocat", "hello-world")
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.ContributorsCount)
}
