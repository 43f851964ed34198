package service

import (
	"context"
	"time"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/sirupsen/logrus"
)

// tier is one (threshold, score) rung of a metric ladder. Ladders are scanned
// top down; the first rung the value reaches wins, anything below the lowest
// rung scores 0.
type tier struct {
	threshold int
	score     int
}

var (
	commitTiers = []tier{{1024, 25}, {512, 20}, {256, 15}, {128, 10}, {64, 5}}
	starTiers   = []tier{{1024, 25}, {512, 20}, {256, 15}, {128, 10}, {64, 5}}

	prTiers    = []tier{{512, 25}, {256, 20}, {128, 15}, {64, 10}, {32, 5}}
	issueTiers = []tier{{512, 25}, {256, 20}, {128, 15}, {64, 10}, {32, 5}}

	forkTiers = []tier{{256, 25}, {128, 20}, {64, 15}, {32, 10}, {16, 5}}

	watcherTiers     = []tier{{128, 25}, {64, 20}, {32, 15}, {16, 10}, {8, 5}}
	contributorTiers = []tier{{128, 25}, {64, 20}, {32, 15}, {16, 10}, {8, 5}}

	// The update ladder runs the other way: less time since the last push
	// scores higher.
	updateTiers = []tier{{7, 25}, {30, 20}, {90, 15}, {180, 10}, {365, 5}}
)

func scoreByThreshold(value int, tiers []tier) int {
	for _, t := range tiers {
		if value >= t.threshold {
			return t.score
		}
	}
	return 0
}

// CommitScore scores the total commit count
func CommitScore(totalCommits int) int {
	return scoreByThreshold(totalCommits, commitTiers)
}

// UpdateScore scores the number of days since the last push; an unknown date
// counts as 999 days.
func UpdateScore(daysSince int) int {
	for _, t := range updateTiers {
		if daysSince <= t.threshold {
			return t.score
		}
	}
	return 0
}

// PRScore scores the merged pull request count
func PRScore(mergedPRs int) int {
	return scoreByThreshold(mergedPRs, prTiers)
}

// IssueScore scores the closed issue count
func IssueScore(closedIssues int) int {
	return scoreByThreshold(closedIssues, issueTiers)
}

// StarScore scores the stargazer count
func StarScore(stars int) int {
	return scoreByThreshold(stars, starTiers)
}

// ForkScore scores the fork count
func ForkScore(forks int) int {
	return scoreByThreshold(forks, forkTiers)
}

// WatcherScore scores the watcher count
func WatcherScore(watchers int) int {
	return scoreByThreshold(watchers, watcherTiers)
}

// ContributorScore scores the total contributor count
func ContributorScore(totalContributors int) int {
	return scoreByThreshold(totalContributors, contributorTiers)
}

// DaysSinceLast converts a nullable timestamp to elapsed whole days, with 999
// standing in for "never".
func DaysSinceLast(date *time.Time) int {
	if date == nil {
		return 999
	}
	return int(time.Since(*date).Hours() / 24)
}

// HealthScore combines the activity-side metrics of a repository
func HealthScore(repo *entities.Repository) int {
	return CommitScore(repo.TotalCommits) +
		UpdateScore(DaysSinceLast(repo.LastPushedAt)) +
		PRScore(repo.MergedPullRequests) +
		IssueScore(repo.ClosedIssues)
}

// SocialScore combines the popularity-side metrics of a repository
func SocialScore(repo *entities.Repository) int {
	return StarScore(repo.StarsCount) +
		ForkScore(repo.ForksCount) +
		WatcherScore(repo.WatchersCount) +
		ContributorScore(repo.ContributorsCount)
}

// TotalScore weights health over social, truncating toward zero
func TotalScore(health, social int) int {
	return (health*5 + social*2) / 10
}

// ScoreService fetches repository metadata, computes the three score types and
// appends one snapshot row per type.
type ScoreService struct {
	client       MetadataClient
	repositories db.RepositoryStore
	scores       db.ScoreStore
	log          *logrus.Logger
}

// MetadataClient is the slice of the GitHub client the score service needs
type MetadataClient interface {
	GetRepository(ctx context.Context, owner, name string) (*api.RepositoryInfo, error)
	GetContributorCount(ctx context.Context, owner, name string) (int, error)
}

// NewScoreService creates a new ScoreService
func NewScoreService(client MetadataClient, repositories db.RepositoryStore, scores db.ScoreStore, log *logrus.Logger) *ScoreService {
	return &ScoreService{
		client:       client,
		repositories: repositories,
		scores:       scores,
		log:          log,
	}
}

// ScoreRepository refreshes the metadata row for owner/name and persists
// HEALTH, SOCIAL and TOTAL snapshots, returned in that order.
func (s *ScoreService) ScoreRepository(ctx context.Context, owner, name string) ([]entities.Score, error) {
	info, err := s.client.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	contributors, err := s.client.GetContributorCount(ctx, owner, name)
	if err != nil {
		// The count is one of eight inputs; score with the floor value rather
		// than failing the whole diagnosis.
		s.log.WithError(err).WithField("repository", owner+"/"+name).
			Warn("contributor count unavailable, defaulting to 1")
		contributors = 1
	}

	repo := &entities.Repository{
		OwnerName:          info.Owner,
		Name:               info.Name,
		Description:        info.Description,
		URL:                info.URL,
		Language:           info.Language,
		StarsCount:         info.Stars,
		ForksCount:         info.Forks,
		WatchersCount:      info.Watchers,
		ContributorsCount:  contributors,
		TotalCommits:       info.TotalCommits,
		MergedPullRequests: info.MergedPullRequests,
		ClosedIssues:       info.ClosedIssues,
		LastPushedAt:       info.PushedAt,
	}
	if err := s.repositories.UpsertRepository(ctx, repo); err != nil {
		return nil, err
	}

	health := HealthScore(repo)
	social := SocialScore(repo)
	total := TotalScore(health, social)

	snapshots := []entities.Score{
		{RepositoryID: repo.ID, ScoreType: entities.ScoreHealth, Score: health},
		{RepositoryID: repo.ID, ScoreType: entities.ScoreSocial, Score: social},
		{RepositoryID: repo.ID, ScoreType: entities.ScoreTotal, Score: total},
	}
	for i := range snapshots {
		if err := s.scores.CreateScore(ctx, &snapshots[i]); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"repository": owner + "/" + name,
		"health":     health,
		"social":     social,
		"total":      total,
	}).Info("repository scored")

	return snapshots, nil
}
