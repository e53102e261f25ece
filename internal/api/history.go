package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"babyzen/internal/model"
	"babyzen/internal/ratelimit"
	"babyzen/internal/repository"
	"babyzen/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	dateLayout       = "2006-01-02"
)

type profileRequest struct {
	BabyName string `json:"baby_name" binding:"max=80"`
	BabyDOB  string `json:"baby_dob" binding:"omitempty,datetime=2006-01-02"`
	Language string `json:"language" binding:"omitempty,min=2,max=10"`
}

type eventRequest struct {
	Type string `json:"type" binding:"required,oneof=feeding sleep diaper bath walk"`
}

// listCries handles GET /cries
func (h *Handler) listCries(c *gin.Context) {
	ac := caller(c)
	limit := listLimit(c)

	cries, err := h.deps.Cries.ListCries(c.Request.Context(), ac.UserID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Cries] Failed to list")
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve cries")
		return
	}
	if cries == nil {
		cries = []model.Cry{}
	}

	utils.Success(c, gin.H{
		"items": cries,
		"limit": limit,
		"count": len(cries),
	})
}

// usage handles GET /usage
func (h *Handler) usage(c *gin.Context) {
	ac := caller(c)
	day := ratelimit.Day(h.deps.Now())

	u, err := h.deps.Limiter.Check(c.Request.Context(), ac.UserID, day)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Usage] Failed to read counter")
		utils.Error(c, http.StatusInternalServerError, "failed to read usage")
		return
	}

	utils.Success(c, gin.H{
		"date":       day,
		"scan_count": u.Count,
		"quota":      h.deps.DailyQuota,
		"remaining":  ratelimit.Remaining(u, h.deps.DailyQuota),
	})
}

// getProfile handles GET /profile
func (h *Handler) getProfile(c *gin.Context) {
	ac := caller(c)

	p, err := h.deps.Profiles.GetProfile(c.Request.Context(), ac.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(c, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Profile] Failed to read")
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve profile")
		return
	}

	utils.Success(c, gin.H{"profile": p})
}

// putProfile handles PUT /profile
func (h *Handler) putProfile(c *gin.Context) {
	ac := caller(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid profile: "+err.Error())
		return
	}

	p := &model.Profile{
		UserID:   ac.UserID,
		BabyName: strings.TrimSpace(req.BabyName),
	}
	if req.BabyDOB != "" {
		dob, err := time.Parse(dateLayout, req.BabyDOB)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "baby_dob must be YYYY-MM-DD")
			return
		}
		p.BabyDOB = &dob
	}
	if req.Language != "" {
		if !model.IsSupportedLanguage(req.Language) {
			utils.Error(c, http.StatusBadRequest, "unsupported language")
			return
		}
		p.Language = model.NormalizeLanguage(req.Language)
	}

	if err := h.deps.Profiles.UpsertProfile(c.Request.Context(), p); err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Profile] Failed to save")
		utils.Error(c, http.StatusInternalServerError, "failed to save profile")
		return
	}

	utils.Success(c, gin.H{"profile": p})
}

// listEvents handles GET /events
func (h *Handler) listEvents(c *gin.Context) {
	ac := caller(c)
	limit := listLimit(c)

	events, err := h.deps.Events.RecentEvents(c.Request.Context(), ac.UserID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Events] Failed to list")
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve events")
		return
	}
	if events == nil {
		events = []model.CareEvent{}
	}

	utils.Success(c, gin.H{
		"items": events,
		"limit": limit,
		"count": len(events),
	})
}

// createEvent handles POST /events
func (h *Handler) createEvent(c *gin.Context) {
	ac := caller(c)

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "type must be one of feeding, sleep, diaper, bath, walk")
		return
	}

	e := &model.CareEvent{UserID: ac.UserID, Type: req.Type, CreatedAt: h.deps.Now().UTC()}
	if err := h.deps.Events.InsertEvent(c.Request.Context(), e); err != nil {
		h.log.Error().Err(err).Str("user_id", ac.UserID).Msg("[Events] Failed to save")
		utils.Error(c, http.StatusInternalServerError, "failed to save event")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"event": e}})
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}
