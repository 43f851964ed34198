package service

import (
	"strings"
	"time"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
)

// Review dispositions that count as a contribution. Pending and dismissed
// reviews are dropped at normalization, not passed through with a sentinel.
var countedReviewStates = map[string]entities.ContributionState{
	"APPROVED":          entities.StateApproved,
	"CHANGES_REQUESTED": entities.StateChangesRequested,
	"COMMENTED":         entities.StateCommented,
}

// NormalizeActivity flattens a raw activity tree into contribution records for
// one user. Repositories owned by the synced login are excluded, and a record
// with an unparseable timestamp keeps its other fields instead of failing the
// batch.
func NormalizeActivity(raw *api.RawActivity, userID uint) []entities.Contribution {
	var contributions []entities.Contribution

	for _, bucket := range raw.PullRequests {
		if isOwnRepository(raw.Login, bucket.Repository) {
			continue
		}
		for _, node := range bucket.Contributions.Nodes {
			contributions = append(contributions, normalizePullRequest(node.PullRequest, bucket.Repository, userID))
		}
	}

	for _, bucket := range raw.Issues {
		if isOwnRepository(raw.Login, bucket.Repository) {
			continue
		}
		for _, node := range bucket.Contributions.Nodes {
			contributions = append(contributions, normalizeIssue(node.Issue, bucket.Repository, userID))
		}
	}

	for _, bucket := range raw.Reviews {
		if isOwnRepository(raw.Login, bucket.Repository) {
			continue
		}
		for _, node := range bucket.Contributions.Nodes {
			review, ok := normalizeReview(node.PullRequestReview, bucket.Repository, userID)
			if !ok {
				continue
			}
			contributions = append(contributions, review)
		}
	}

	return contributions
}

func isOwnRepository(login string, repo api.ActivityRepository) bool {
	return strings.EqualFold(login, repo.Owner.Login)
}

func normalizePullRequest(pr api.PullRequestNode, repo api.ActivityRepository, userID uint) entities.Contribution {
	mergedAt := parseTimestamp(pr.MergedAt)
	closedAt := parseTimestamp(pr.ClosedAt)

	state := entities.StateClosed
	endAt := closedAt
	switch {
	case mergedAt != nil:
		state = entities.StateMerged
		endAt = mergedAt
	case pr.State == "OPEN":
		state = entities.StateOpen
		endAt = nil
	}

	return entities.Contribution{
		UserID:         userID,
		RepositoryName: repo.NameWithOwner,
		Number:         pr.Number,
		ReferenceType:  entities.ReferencePR,
		State:          state,
		Title:          pr.Title,
		ContributedAt:  timestampOrZero(pr.CreatedAt),
		EndAt:          endAt,
	}
}

func normalizeIssue(issue api.IssueNode, repo api.ActivityRepository, userID uint) entities.Contribution {
	state := entities.StateClosed
	var endAt *time.Time
	if issue.State == "OPEN" {
		state = entities.StateOpen
	} else {
		endAt = parseTimestamp(issue.ClosedAt)
	}

	return entities.Contribution{
		UserID:         userID,
		RepositoryName: repo.NameWithOwner,
		Number:         issue.Number,
		ReferenceType:  entities.ReferenceIssue,
		State:          state,
		Title:          issue.Title,
		ContributedAt:  timestampOrZero(issue.CreatedAt),
		EndAt:          endAt,
	}
}

func normalizeReview(review api.ReviewNode, repo api.ActivityRepository, userID uint) (entities.Contribution, bool) {
	state, counted := countedReviewStates[review.State]
	if !counted {
		return entities.Contribution{}, false
	}

	return entities.Contribution{
		UserID:         userID,
		RepositoryName: repo.NameWithOwner,
		Number:         review.PullRequest.Number,
		ReferenceType:  entities.ReferenceReview,
		State:          state,
		Title:          review.PullRequest.Title,
		ContributedAt:  timestampOrZero(review.SubmittedAt),
	}, true
}

// parseTimestamp fails closed per record: a missing or malformed value becomes
// nil rather than an error.
func parseTimestamp(value string) *time.Time {
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func timestampOrZero(value string) time.Time {
	if parsed := parseTimestamp(value); parsed != nil {
		return *parsed
	}
	return time.Time{}
}
