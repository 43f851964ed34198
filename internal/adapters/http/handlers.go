package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/ossdoctor/contribution-service/internal/core/service"
	"github.com/ossdoctor/contribution-service/pkg/response"
	"github.com/sirupsen/logrus"
)

// RateLimitReader is the slice of the GitHub client the status endpoint needs
type RateLimitReader interface {
	GetRateLimit(ctx context.Context) (*api.RateLimit, error)
}

// Handler exposes the sync, activity and scoring operations over HTTP
type Handler struct {
	sync          *service.SyncEngine
	experience    *service.ExperienceEngine
	scores        *service.ScoreService
	users         db.UserStore
	contributions db.ContributionStore
	client        RateLimitReader
	log           *logrus.Logger
}

// NewHandler creates a new Handler
func NewHandler(
	sync *service.SyncEngine,
	experience *service.ExperienceEngine,
	scores *service.ScoreService,
	users db.UserStore,
	contributions db.ContributionStore,
	client RateLimitReader,
	log *logrus.Logger,
) *Handler {
	return &Handler{
		sync:          sync,
		experience:    experience,
		scores:        scores,
		users:         users,
		contributions: contributions,
		client:        client,
		log:           log,
	}
}

// SyncContributions pulls new upstream activity for a user, awards experience
// for it and returns the newly persisted contributions
func (h *Handler) SyncContributions(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("user")
	if login == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "user is required")
		return
	}

	created, err := h.sync.SyncContributions(r.Context(), login)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if _, err := h.experience.AwardExperience(r.Context(), created); err != nil {
		h.writeError(w, err)
		return
	}

	response.SuccessResponse(w, http.StatusOK, created)
}

// DateGroup is one day's worth of contributions
type DateGroup struct {
	Date          string                  `json:"date"`
	Contributions []entities.Contribution `json:"contributions"`
}

// GetContributions returns a user's stored contributions grouped by the date
// they were made, oldest date first
func (h *Handler) GetContributions(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("user")
	if login == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "user is required")
		return
	}

	user, err := h.users.GetOrCreateUser(r.Context(), login)
	if err != nil {
		h.writeError(w, err)
		return
	}

	contributions, err := h.contributions.GetByUser(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Rows arrive oldest first, so groups come out date-ascending
	var groups []DateGroup
	for _, contribution := range contributions {
		date := contribution.ContributedAt.Format("2006-01-02")
		if len(groups) == 0 || groups[len(groups)-1].Date != date {
			groups = append(groups, DateGroup{Date: date})
		}
		last := &groups[len(groups)-1]
		last.Contributions = append(last.Contributions, contribution)
	}

	response.SuccessResponse(w, http.StatusOK, groups)
}

// GetUserLevel returns a user's current level and accumulated score
func (h *Handler) GetUserLevel(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("user")
	if login == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "user is required")
		return
	}

	user, err := h.users.GetOrCreateUser(r.Context(), login)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.SuccessResponse(w, http.StatusOK, map[string]interface{}{
		"nickname":   user.Nickname,
		"level":      user.Level,
		"totalScore": user.TotalScore,
		"avatarUrl":  user.AvatarURL,
	})
}

// ScoreRepository computes and persists fresh score snapshots for a repository
func (h *Handler) ScoreRepository(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	repo := r.URL.Query().Get("repo")
	if owner == "" || repo == "" {
		response.ErrorResponse(w, http.StatusBadRequest, "owner and repo are required")
		return
	}

	snapshots, err := h.scores.ScoreRepository(r.Context(), owner, repo)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.SuccessResponse(w, http.StatusOK, snapshots)
}

// GetStatus reports the upstream rate-limit window
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.GetRateLimit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.SuccessResponse(w, http.StatusOK, status)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrRepositoryNotFound),
		errors.Is(err, api.ErrNotFound):
		response.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, api.ErrRateLimited):
		response.ErrorResponse(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNetwork):
		response.ErrorResponse(w, http.StatusBadGateway, err.Error())
	default:
		h.log.WithError(err).Error("request failed")
		response.ErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}
