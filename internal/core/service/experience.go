package service

import (
	"context"
	"errors"

	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/sirupsen/logrus"
)

// ExpPolicy holds the point values awarded per contribution kind. The values
// are policy, not law; construct a custom policy to change them.
type ExpPolicy struct {
	MergedPR        int
	Issue           int
	Review          int
	RepositoryBonus int
}

// DefaultExpPolicy returns the standard award policy
func DefaultExpPolicy() ExpPolicy {
	return ExpPolicy{
		MergedPR:        20,
		Issue:           10,
		Review:          5,
		RepositoryBonus: 50,
	}
}

// PointsFor returns the points a single contribution earns. Only merged pull
// requests score; open or closed ones earn nothing.
func (p ExpPolicy) PointsFor(c *entities.Contribution) int {
	switch c.ReferenceType {
	case entities.ReferencePR:
		if c.State == entities.StateMerged {
			return p.MergedPR
		}
		return 0
	case entities.ReferenceIssue:
		return p.Issue
	case entities.ReferenceReview:
		return p.Review
	default:
		return 0
	}
}

// ExperienceEngine turns newly synced contributions into experience records,
// pays the one-time per-repository bonus and keeps the user's level in step
// with the total score.
type ExperienceEngine struct {
	users       db.UserStore
	experiences db.ExperienceStore
	levels      db.LevelStore
	policy      ExpPolicy
	log         *logrus.Logger
}

// NewExperienceEngine creates a new ExperienceEngine
func NewExperienceEngine(users db.UserStore, experiences db.ExperienceStore, levels db.LevelStore, policy ExpPolicy, log *logrus.Logger) *ExperienceEngine {
	return &ExperienceEngine{
		users:       users,
		experiences: experiences,
		levels:      levels,
		policy:      policy,
		log:         log,
	}
}

// AwardExperience grants points for a batch of newly persisted contributions.
// The (user, contribution, kind) uniqueness constraint makes every award
// exactly-once: a record that already exists contributes nothing and is not
// an error. Returns the points actually awarded by this call.
func (e *ExperienceEngine) AwardExperience(ctx context.Context, newContributions []entities.Contribution) (int, error) {
	if len(newContributions) == 0 {
		return 0, nil
	}

	user, err := e.users.GetUserByID(ctx, newContributions[0].UserID)
	if err != nil {
		return 0, err
	}

	awarded := 0

	// One representative contribution per repository, in batch order, to tag
	// the bonus against
	var repoOrder []string
	representative := make(map[string]uint)

	for i := range newContributions {
		c := &newContributions[i]
		if _, seen := representative[c.RepositoryName]; !seen {
			representative[c.RepositoryName] = c.ID
			repoOrder = append(repoOrder, c.RepositoryName)
		}

		points := e.policy.PointsFor(c)
		if points == 0 {
			continue
		}

		inserted, err := e.experiences.CreateRecord(ctx, &entities.ExperienceRecord{
			UserID:         user.ID,
			ContributionID: c.ID,
			Kind:           entities.KindContribution,
			Points:         points,
		})
		if err != nil {
			return awarded, err
		}
		if inserted {
			awarded += points
		}
	}

	for _, repoName := range repoOrder {
		bonusPoints, err := e.awardRepositoryBonus(ctx, user, repoName, representative[repoName])
		if err != nil {
			return awarded, err
		}
		awarded += bonusPoints
	}

	if awarded == 0 {
		return 0, nil
	}

	user.TotalScore += awarded
	if err := e.raiseLevel(ctx, user); err != nil {
		return awarded, err
	}
	if err := e.users.SaveUser(ctx, user); err != nil {
		return awarded, err
	}

	e.log.WithFields(logrus.Fields{
		"user":        user.Nickname,
		"awarded":     awarded,
		"total_score": user.TotalScore,
		"level":       user.Level,
	}).Info("experience awarded")

	return awarded, nil
}

// awardRepositoryBonus pays the flat bonus once per (user, repository),
// tagged to a representative contribution so the award stays auditable.
func (e *ExperienceEngine) awardRepositoryBonus(ctx context.Context, user *entities.User, repositoryName string, contributionID uint) (int, error) {
	alreadyAwarded, err := e.experiences.HasRepositoryBonus(ctx, user.ID, repositoryName)
	if err != nil {
		return 0, err
	}
	if alreadyAwarded {
		return 0, nil
	}

	inserted, err := e.experiences.CreateRecord(ctx, &entities.ExperienceRecord{
		UserID:         user.ID,
		ContributionID: contributionID,
		Kind:           entities.KindRepositoryBonus,
		Points:         e.policy.RepositoryBonus,
	})
	if err != nil {
		return 0, err
	}
	if !inserted {
		// Lost a concurrent race for the same repository; the winner's award
		// stands
		return 0, nil
	}
	return e.policy.RepositoryBonus, nil
}

// raiseLevel moves the user up to the highest ladder rung the total score
// reaches. Levels never go down, even if the ladder changes.
func (e *ExperienceEngine) raiseLevel(ctx context.Context, user *entities.User) error {
	level, err := e.levels.GetLevelForScore(ctx, user.TotalScore)
	if errors.Is(err, entities.ErrLevelNotFound) {
		e.log.WithField("total_score", user.TotalScore).Warn("no level rung at or below score")
		return nil
	}
	if err != nil {
		return err
	}
	if level.LevelID > user.Level {
		user.Level = level.LevelID
	}
	return nil
}
