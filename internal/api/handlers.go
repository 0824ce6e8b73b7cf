package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/progression"
	"github.com/tahcohcat/gamify-web/internal/services"
)

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 50
)

type ProgressionHandler struct {
	progress     *services.ProgressService
	achievements *services.AchievementService
	users        *services.UserService
}

func NewProgressionHandler(progress *services.ProgressService, achievements *services.AchievementService, users *services.UserService) *ProgressionHandler {
	return &ProgressionHandler{
		progress:     progress,
		achievements: achievements,
		users:        users,
	}
}

type EarnXPRequest struct {
	ActionType string `json:"action_type"`
	// Amount is kept raw so that only a bare JSON integer is accepted.
	Amount json.RawMessage `json:"amount"`
}

type CompleteQuestRequest struct {
	QuestType string `json:"quest_type"`
}

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeBody reads an optional JSON body. An empty body leaves v untouched;
// anything after the first JSON value is an error.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// parseAmount returns the requested amount, or fallback when the field was
// left out. Null, strings, fractions and exponents are rejected rather than
// coerced.
func parseAmount(raw json.RawMessage, fallback int) (int, error) {
	if len(raw) == 0 {
		return fallback, nil
	}
	v, err := strconv.ParseInt(string(raw), 10, 32)
	if err != nil || v < 1 {
		return 0, progression.NewError(progression.KindInvalidAmount, "amount must be a positive whole number")
	}
	return int(v), nil
}

// POST /api/v1/earn_xp - Credit XP for a completed action
func (h *ProgressionHandler) EarnXP(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req EarnXPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, progression.Wrap(progression.KindInvalidAmount, "malformed request body", err))
		return
	}

	amount, err := parseAmount(req.Amount, h.progress.DefaultXP())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.progress.EarnXP(r.Context(), userID, req.ActionType, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /api/v1/complete_quest - Claim the daily or weekly quest
func (h *ProgressionHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CompleteQuestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, progression.Wrap(progression.KindInvalidQuestType, "malformed request body", err))
		return
	}

	result, err := h.progress.CompleteQuest(r.Context(), userID, req.QuestType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/progress - Dashboard snapshot for the current user
func (h *ProgressionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	dashboard, err := h.progress.Dashboard(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// GET /api/v1/profile - Account, progress and unlocked achievements
func (h *ProgressionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.progress.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, progression.ErrUnauthenticated)
			return
		}
		writeError(w, progression.Wrap(progression.KindTransientFailure, "failed to load user", err))
		return
	}
	profile.User = user
	writeJSON(w, http.StatusOK, profile)
}

// GET /api/v1/achievements - Full catalog with the user's unlock state
func (h *ProgressionHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	views, err := h.progress.Achievements(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": views,
	})
}

// GET /api/v1/activities - Recent activity feed
func (h *ProgressionHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorKind(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	activities, err := h.achievements.GetRecentActivities(r.Context(), userID, limit)
	if err != nil {
		logger.New().With("user_id", userID).WithError(err).Error("Failed to load activities")
		writeError(w, progression.Wrap(progression.KindTransientFailure, "failed to load activities", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": activities,
	})
}

// RegisterRoutes mounts the progression endpoints on r.
func RegisterRoutes(r *mux.Router, h *ProgressionHandler) {
	r.HandleFunc("/earn_xp", h.EarnXP).Methods("POST")
	r.HandleFunc("/complete_quest", h.CompleteQuest).Methods("POST")
	r.HandleFunc("/progress", h.GetProgress).Methods("GET")
	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/achievements", h.GetAchievements).Methods("GET")
	r.HandleFunc("/activities", h.GetActivities).Methods("GET")
}
