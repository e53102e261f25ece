package api

import (
	"net/http"

	"babyzen/internal/audio"
	"babyzen/internal/pipeline"
	"babyzen/internal/utils"

	"github.com/gin-gonic/gin"
)

// analyzeCry handles POST /analyze-cry
func (h *Handler) analyzeCry(c *gin.Context) {
	ac := caller(c)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		h.log.Warn().Err(err).Str("content_type", c.GetHeader("Content-Type")).Msg("[Analyze] Not a multipart body")
		utils.ErrorWith(c, http.StatusBadRequest, "Expected multipart/form-data body", gin.H{"received_keys": []string{}})
		return
	}

	form, err := audio.ReadForm(mr, h.deps.MaxUploadBytes)
	if err != nil {
		h.log.Warn().Err(err).Msg("[Analyze] Failed to read multipart body")
		writePipelineError(c, pipeline.Malformed(err))
		return
	}

	outcome, perr := h.deps.Analyzer.AnalyzeUpload(c.Request.Context(), ac, form)
	if perr != nil {
		writePipelineError(c, perr)
		return
	}

	c.JSON(http.StatusOK, outcome.Classification)
}

// writePipelineError maps a pipeline failure to a status code.
// Rejections before any paid call keep their status; everything after is 200 with an error.
func writePipelineError(c *gin.Context, perr *pipeline.PipelineError) {
	switch perr.Kind {
	case pipeline.KindAuth:
		utils.Error(c, http.StatusUnauthorized, perr.Message)
	case pipeline.KindMalformed:
		received := perr.ReceivedParts
		if received == nil {
			received = []string{}
		}
		utils.ErrorWith(c, http.StatusBadRequest, perr.Message, gin.H{"received_keys": received})
	case pipeline.KindQuotaExceeded:
		utils.Error(c, http.StatusTooManyRequests, perr.Message)
	default:
		utils.Error(c, http.StatusOK, perr.Message)
	}
}
