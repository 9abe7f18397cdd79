package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	"github.com/steveyiyo/formcoach-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type TTSHandler struct {
	Synth tts.Synthesizer
}

// NewTTSHandler serves ad hoc synthesis. s may be nil when no remote speech
// service is configured.
func NewTTSHandler(s tts.Synthesizer) *TTSHandler {
	return &TTSHandler{Synth: s}
}

func (h *TTSHandler) Synthesize(c *gin.Context) {
	var req types.TTSReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if h.Synth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tts_unavailable"})
		return
	}
	audio, err := h.Synth.Synthesize(c.Request.Context(), tts.Request{
		Text:        req.Text,
		Voice:       req.Voice,
		Instruction: req.Instruction,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "tts_failed"})
		return
	}
	c.JSON(http.StatusOK, types.TTSResp{
		MIME:       audio.MIMEType,
		AudioB64:   base64.StdEncoding.EncodeToString(audio.Data),
		DurationMs: audio.Duration().Milliseconds(),
	})
}
