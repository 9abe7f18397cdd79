package handlers

import (
	"errors"
	"net/http"

	"github.com/steveyiyo/formcoach-backend/internal/core/session"
	"github.com/steveyiyo/formcoach-backend/pkg/types"

	"github.com/gin-gonic/gin"
)

type SessionsHandler struct {
	Svc    *session.Service
	Scheme string
	Host   string
}

func NewSessionsHandler(svc *session.Service, scheme, host string) *SessionsHandler {
	return &SessionsHandler{Svc: svc, Scheme: scheme, Host: host}
}

func (h *SessionsHandler) Create(c *gin.Context) {
	var req types.CreateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	sess, err := h.Svc.Create(req)
	if errors.Is(err, session.ErrUnknownExercise) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_exercise"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	ex, _ := h.Svc.Registry().Lookup(sess.Exercise)
	wsScheme := "ws"
	if h.Scheme == "https" {
		wsScheme = "wss"
	}
	c.JSON(http.StatusOK, types.CreateSessionResp{
		SessionID: sess.ID,
		WSURL:     wsScheme + "://" + h.Host + "/v1/stream?sess=" + sess.ID,
		Exercise:  ex.Name,
		Stages:    ex.StageNames(),
	})
}

func (h *SessionsHandler) Summary(c *gin.Context) {
	id := c.Param("id")
	sum, ok := h.Svc.Summary(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *SessionsHandler) Mute(c *gin.Context)   { h.control(c, h.Svc.Mute) }
func (h *SessionsHandler) Unmute(c *gin.Context) { h.control(c, h.Svc.Unmute) }
func (h *SessionsHandler) Clear(c *gin.Context)  { h.control(c, h.Svc.Clear) }
func (h *SessionsHandler) Reset(c *gin.Context)  { h.control(c, h.Svc.Reset) }
func (h *SessionsHandler) End(c *gin.Context)    { h.control(c, h.Svc.End) }

func (h *SessionsHandler) control(c *gin.Context, fn func(id string) error) {
	if err := fn(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionsHandler) Exercises(c *gin.Context) {
	all := h.Svc.Registry().Exercises()
	out := make([]types.ExerciseResp, 0, len(all))
	for _, e := range all {
		out = append(out, types.ExerciseResp{Name: e.Name, Stages: e.StageNames()})
	}
	c.JSON(http.StatusOK, out)
}
