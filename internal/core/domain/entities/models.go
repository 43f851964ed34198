package entities

import (
	"time"
)

// ReferenceType discriminates the upstream shape a Contribution came from.
type ReferenceType string

const (
	ReferencePR     ReferenceType = "PR"
	ReferenceIssue  ReferenceType = "ISSUE"
	ReferenceReview ReferenceType = "REVIEW"
)

// ContributionState is the lifecycle state of a contribution. The valid set
// depends on the ReferenceType: PRs are OPEN/CLOSED/MERGED, issues are
// OPEN/CLOSED, reviews carry their disposition.
type ContributionState string

const (
	StateOpen             ContributionState = "OPEN"
	StateClosed           ContributionState = "CLOSED"
	StateMerged           ContributionState = "MERGED"
	StateApproved         ContributionState = "APPROVED"
	StateChangesRequested ContributionState = "CHANGES_REQUESTED"
	StateCommented        ContributionState = "COMMENTED"
)

// ExperienceKind distinguishes a per-contribution award from the one-time
// repository bonus, both tied to a concrete contribution row.
type ExperienceKind string

const (
	KindContribution    ExperienceKind = "CONTRIBUTION"
	KindRepositoryBonus ExperienceKind = "REPOSITORY_BONUS"
)

// ScoreType labels a repository score snapshot.
type ScoreType string

const (
	ScoreHealth ScoreType = "HEALTH"
	ScoreSocial ScoreType = "SOCIAL"
	ScoreTotal  ScoreType = "TOTAL"
)

// User represents a tracked GitHub user
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	GithubID   int64     `json:"github_id" gorm:"index"`
	Nickname   string    `json:"nickname" gorm:"uniqueIndex"`
	AvatarURL  string    `json:"avatar_url"`
	Level      int       `json:"level" gorm:"default:1"`
	TotalScore int       `json:"total_score"`
	JoinedAt   time.Time `json:"joined_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Contribution is one normalized PR, issue or review event attributed to a
// user. The (UserID, RepositoryName, Number, ReferenceType) tuple is unique;
// rows are append-only and never mutated after insert.
type Contribution struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	UserID         uint              `json:"user_id" gorm:"uniqueIndex:idx_contribution_identity"`
	RepositoryName string            `json:"repository_name" gorm:"uniqueIndex:idx_contribution_identity"` // "{owner}/{repo}"
	Number         int               `json:"number" gorm:"uniqueIndex:idx_contribution_identity"`
	ReferenceType  ReferenceType     `json:"reference_type" gorm:"uniqueIndex:idx_contribution_identity"`
	State          ContributionState `json:"state"`
	Title          string            `json:"title"`
	ContributedAt  time.Time         `json:"contributed_at" gorm:"index"`
	EndAt          *time.Time        `json:"end_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ExperienceRecord is one experience award. At most one record exists per
// (user, contribution, kind); the unique index is the dedup authority.
type ExperienceRecord struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         uint           `json:"user_id" gorm:"uniqueIndex:idx_experience_award"`
	ContributionID uint           `json:"contribution_id" gorm:"uniqueIndex:idx_experience_award"`
	Kind           ExperienceKind `json:"kind" gorm:"uniqueIndex:idx_experience_award"`
	Points         int            `json:"points"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Level is one rung of the static experience ladder. RequiredExp strictly
// increases with LevelID.
type Level struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	LevelID     int    `json:"level_id" gorm:"uniqueIndex"`
	Title       string `json:"title"`
	RequiredExp int    `json:"required_exp"`
}

// Repository holds the metadata counters the score calculator reads
type Repository struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	OwnerName          string     `json:"owner_name" gorm:"uniqueIndex:idx_repository_full_name"`
	Name               string     `json:"name" gorm:"uniqueIndex:idx_repository_full_name"`
	Description        string     `json:"description"`
	URL                string     `json:"url"`
	Language           string     `json:"language"`
	StarsCount         int        `json:"stars_count"`
	ForksCount         int        `json:"forks_count"`
	WatchersCount      int        `json:"watchers_count"`
	ContributorsCount  int        `json:"contributors_count"`
	TotalCommits       int        `json:"total_commits"`
	MergedPullRequests int        `json:"merged_pull_requests"`
	ClosedIssues       int        `json:"closed_issues"`
	LastPushedAt       *time.Time `json:"last_pushed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Score is an append-only score snapshot for a repository; consumers read the
// latest row per type by CreatedAt.
type Score struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RepositoryID uint      `json:"repository_id" gorm:"index"`
	ScoreType    ScoreType `json:"score_type"`
	Score        int       `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}
