package service

import (
	"context"
	"testing"
	"time"

	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/ossdoctor/contribution-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestExperienceEngine(t *testing.T) (*ExperienceEngine, *gorm.DB) {
	t.Helper()
	gormDB := testutil.OpenTestDB(t)
	engine := NewExperienceEngine(
		db.NewGormUserStore(gormDB),
		db.NewGormExperienceStore(gormDB),
		db.NewGormLevelStore(gormDB),
		DefaultExpPolicy(),
		testLogger(),
	)
	return engine, gormDB
}

func seedLadder(t *testing.T, gormDB *gorm.DB, rungs map[int]int) {
	t.Helper()
	for levelID, requiredExp := range rungs {
		err := gormDB.Create(&entities.Level{LevelID: levelID, RequiredExp: requiredExp}).Error
		if err != nil {
			t.Fatalf("seed level: %v", err)
		}
	}
}

func seedContribution(t *testing.T, gormDB *gorm.DB, userID uint, repo string, number int, refType entities.ReferenceType, state entities.ContributionState) entities.Contribution {
	t.Helper()
	c := entities.Contribution{
		UserID:         userID,
		RepositoryName: repo,
		Number:         number,
		ReferenceType:  refType,
		State:          state,
		ContributedAt:  time.Now(),
	}
	if err := gormDB.Create(&c).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
	return c
}

func TestPointsForPolicy(t *testing.T) {
	policy := DefaultExpPolicy()

	merged := &entities.Contribution{ReferenceType: entities.ReferencePR, State: entities.StateMerged}
	open := &entities.Contribution{ReferenceType: entities.ReferencePR, State: entities.StateOpen}
	closed := &entities.Contribution{ReferenceType: entities.ReferencePR, State: entities.StateClosed}
	issue := &entities.Contribution{ReferenceType: entities.ReferenceIssue, State: entities.StateOpen}
	review := &entities.Contribution{ReferenceType: entities.ReferenceReview, State: entities.StateApproved}

	assert.Equal(t, 20, policy.PointsFor(merged))
	assert.Equal(t, 0, policy.PointsFor(open))
	assert.Equal(t, 0, policy.PointsFor(closed))
	assert.Equal(t, 10, policy.PointsFor(issue))
	assert.Equal(t, 5, policy.PointsFor(review))
}

func TestAwardExperienceFirstBatchWithRepositoryBonus(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100})
	user := seedUser(t, gormDB, "dabbun", time.Now())

	batch := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 1, entities.ReferencePR, entities.StateMerged),
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 2, entities.ReferenceIssue, entities.StateOpen),
	}

	awarded, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)
	// merged PR 20 + issue 10 + first-time repository bonus 50
	assert.Equal(t, 80, awarded)

	updated, err := db.NewGormUserStore(gormDB).GetUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 80, updated.TotalScore)
	assert.Equal(t, 1, updated.Level)
}

func TestAwardExperienceIsExactlyOnce(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100})
	user := seedUser(t, gormDB, "dabbun", time.Now())

	batch := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 1, entities.ReferencePR, entities.StateMerged),
	}

	first, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)
	assert.Equal(t, 70, first)

	// Replaying the same batch awards nothing and leaves the score alone
	second, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)
	assert.Equal(t, 0, second)

	updated, err := db.NewGormUserStore(gormDB).GetUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 70, updated.TotalScore)
}

func TestAwardExperienceRepositoryBonusOncePerRepo(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100})
	user := seedUser(t, gormDB, "dabbun", time.Now())

	first := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 1, entities.ReferenceIssue, entities.StateOpen),
	}
	awarded, err := engine.AwardExperience(context.Background(), first)
	assert.NoError(t, err)
	assert.Equal(t, 60, awarded)

	// A later batch against the same repository earns no second bonus
	second := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 2, entities.ReferenceIssue, entities.StateOpen),
	}
	awarded, err = engine.AwardExperience(context.Background(), second)
	assert.NoError(t, err)
	assert.Equal(t, 10, awarded)

	// A new repository earns its own bonus
	third := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/spoon-knife", 1, entities.ReferenceIssue, entities.StateOpen),
	}
	awarded, err = engine.AwardExperience(context.Background(), third)
	assert.NoError(t, err)
	assert.Equal(t, 60, awarded)
}

func TestAwardExperienceRaisesLevel(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100, 3: 300})
	user := seedUser(t, gormDB, "dabbun", time.Now())

	var batch []entities.Contribution
	for i := 1; i <= 3; i++ {
		batch = append(batch, seedContribution(t, gormDB, user.ID, "octocat/hello-world", i, entities.ReferencePR, entities.StateMerged))
	}

	// 3 merged PRs (60) + bonus (50) = 110, past the level 2 rung
	awarded, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)
	assert.Equal(t, 110, awarded)

	updated, err := db.NewGormUserStore(gormDB).GetUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 110, updated.TotalScore)
	assert.Equal(t, 2, updated.Level)
}

func TestAwardExperienceLevelNeverDrops(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100})

	user := seedUser(t, gormDB, "dabbun", time.Now())
	user.Level = 5
	assert.NoError(t, gormDB.Save(user).Error)

	batch := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 1, entities.ReferencePR, entities.StateMerged),
	}
	_, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)

	updated, err := db.NewGormUserStore(gormDB).GetUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, updated.Level)
}

func TestAwardExperienceEmptyBatch(t *testing.T) {
	engine, _ := newTestExperienceEngine(t)

	awarded, err := engine.AwardExperience(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, awarded)
}

func TestAwardExperienceOpenPREarnsOnlyBonus(t *testing.T) {
	engine, gormDB := newTestExperienceEngine(t)
	seedLadder(t, gormDB, map[int]int{1: 0, 2: 100})
	user := seedUser(t, gormDB, "dabbun", time.Now())

	batch := []entities.Contribution{
		seedContribution(t, gormDB, user.ID, "octocat/hello-world", 1, entities.ReferencePR, entities.StateOpen),
	}

	awarded, err := engine.AwardExperience(context.Background(), batch)
	assert.NoError(t, err)
	assert.Equal(t, 50, awarded)
}
