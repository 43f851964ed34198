package service

import (
	"context"
	"errors"
	"time"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/sirupsen/logrus"
)

// ContributionFetcher is the slice of the GitHub client the sync engine needs
type ContributionFetcher interface {
	FetchContributionsSince(ctx context.Context, login string, since time.Time) (*api.RawActivity, error)
}

// SyncEngine pulls a user's recent upstream activity, deduplicates it against
// storage and reports only the contributions persisted for the first time.
type SyncEngine struct {
	users         db.UserStore
	contributions db.ContributionStore
	client        ContributionFetcher
	defaultUser   string
	lookbackDays  int
	log           *logrus.Logger
}

// NewSyncEngine creates a new SyncEngine
func NewSyncEngine(users db.UserStore, contributions db.ContributionStore, client ContributionFetcher, defaultUser string, lookbackDays int, log *logrus.Logger) *SyncEngine {
	return &SyncEngine{
		users:         users,
		contributions: contributions,
		client:        client,
		defaultUser:   defaultUser,
		lookbackDays:  lookbackDays,
		log:           log,
	}
}

// SyncContributions fetches activity for login newer than the user's sync
// cursor and persists what has not been seen before. Re-fetched records that
// already exist are skipped silently; the returned slice holds only the rows
// created by this call.
func (e *SyncEngine) SyncContributions(ctx context.Context, login string) ([]entities.Contribution, error) {
	user, err := e.resolveUser(ctx, login)
	if err != nil {
		return nil, err
	}

	since, err := e.syncCursor(ctx, user)
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"login": login,
		"since": since.Format(time.RFC3339),
	}).Info("fetching contributions")

	raw, err := e.client.FetchContributionsSince(ctx, login, since)
	if err != nil {
		return nil, err
	}

	var created []entities.Contribution
	for _, record := range NormalizeActivity(raw, user.ID) {
		// The upstream window is wider than the cursor; drop the overlap
		if record.ContributedAt.Before(since) {
			continue
		}

		err := e.contributions.CreateContribution(ctx, &record)
		if errors.Is(err, entities.ErrDuplicateContribution) {
			continue
		}
		if err != nil {
			// Already-committed rows stay; the next sync resumes from the
			// cursor they advanced.
			return nil, err
		}
		created = append(created, record)
	}

	e.log.WithFields(logrus.Fields{
		"login": login,
		"new":   len(created),
	}).Info("contributions synced")

	return created, nil
}

// resolveUser looks up the requested identity, falling back to the configured
// default user before giving up.
func (e *SyncEngine) resolveUser(ctx context.Context, login string) (*entities.User, error) {
	user, err := e.users.GetUserByNickname(ctx, login)
	if errors.Is(err, entities.ErrUserNotFound) && e.defaultUser != "" && e.defaultUser != login {
		e.log.WithField("login", login).Warn("user not found, using default user")
		return e.users.GetUserByNickname(ctx, e.defaultUser)
	}
	return user, err
}

// syncCursor is the lower bound of the next fetch: one second past the latest
// stored contribution, or the lookback window before the user joined when
// nothing is stored yet.
func (e *SyncEngine) syncCursor(ctx context.Context, user *entities.User) (time.Time, error) {
	latest, err := e.contributions.GetLatestByUser(ctx, user.ID)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil {
		return latest.ContributedAt.Add(time.Second), nil
	}
	return user.JoinedAt.AddDate(0, 0, -e.lookbackDays), nil
}

// StartUserMonitor periodically re-syncs every known user and awards
// experience for whatever is new, until the context is cancelled.
func (e *SyncEngine) StartUserMonitor(ctx context.Context, interval time.Duration, award func(ctx context.Context, newContributions []entities.Contribution) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			users, err := e.users.GetAllUsers(ctx)
			if err != nil {
				e.log.WithError(err).Error("monitor: listing users failed")
				continue
			}

			for _, user := range users {
				created, err := e.SyncContributions(ctx, user.Nickname)
				if err != nil {
					e.log.WithError(err).WithField("login", user.Nickname).
						Error("monitor: sync failed")
					continue
				}
				if _, err := award(ctx, created); err != nil {
					e.log.WithError(err).WithField("login", user.Nickname).
						Error("monitor: award failed")
				}
			}
		}
	}
}
