// Package api exposes the cry analysis pipeline and the mentor over HTTP.
package api

import (
	"time"

	"babyzen/internal/audio"
	"babyzen/internal/auth"
	"babyzen/internal/logging"
	"babyzen/internal/mentor"
	"babyzen/internal/pipeline"
	"babyzen/internal/ratelimit"
	"babyzen/internal/repository"
	"babyzen/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are everything the handlers talk to
type Deps struct {
	Analyzer *pipeline.Analyzer
	Mentor   *mentor.Service
	Limiter  ratelimit.Limiter
	Cries    repository.CryRepository
	Profiles repository.ProfileRepository
	Events   repository.EventRepository
	Verifier *auth.Verifier
	Log      zerolog.Logger

	DailyQuota     int
	MaxUploadBytes int64
	Now            func() time.Time
}

// Handler serves the HTTP routes
type Handler struct {
	deps Deps
	log  zerolog.Logger
}

// NewHandler creates a handler; zero limits take defaults
func NewHandler(deps Deps) *Handler {
	if deps.DailyQuota <= 0 {
		deps.DailyQuota = ratelimit.DefaultDailyQuota
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = audio.DefaultMaxFormBytes
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{deps: deps, log: logging.Component(deps.Log, "api")}
}

// RegisterRoutes mounts every route on r
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.Use(CORS())

	// Health check
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	user := r.Group("/", auth.RequireUser(h.deps.Verifier))
	{
		user.POST("/analyze-cry", h.analyzeCry)
		user.POST("/ai-mentor", h.aiMentor)
		user.GET("/cries", h.listCries)
		user.GET("/usage", h.usage)
		user.GET("/profile", h.getProfile)
		user.PUT("/profile", h.putProfile)
		user.GET("/events", h.listEvents)
		user.POST("/events", h.createEvent)
	}
}

// healthCheck returns server health status
func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "babyzen-backend",
	})
}

// caller returns the identity set by auth.RequireUser
func caller(c *gin.Context) auth.AuthContext {
	ac, _ := auth.FromGin(c)
	return ac
}
