package api

import (
	"errors"
	"net/http"

	"babyzen/internal/auth"
	"babyzen/internal/mentor"
	"babyzen/internal/utils"

	"github.com/gin-gonic/gin"
)

const mentorUnavailable = "The mentor could not answer right now, please try again"

// mentorRequest is the body of POST /ai-mentor. user_id is sent by older
// clients and ignored; the caller always comes from the token.
type mentorRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"user_id"`
}

// aiMentor handles POST /ai-mentor
func (h *Handler) aiMentor(c *gin.Context) {
	var req mentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.deps.Mentor.Ask(c.Request.Context(), caller(c), req.Message)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"response": reply.Response})
	case errors.Is(err, auth.ErrUnauthenticated):
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, mentor.ErrEmptyMessage), errors.Is(err, mentor.ErrMessageTooLong):
		utils.Error(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("[Mentor] Request failed")
		utils.Error(c, http.StatusOK, mentorUnavailable)
	}
}
