package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/steveyiyo/formcoach-backend/internal/core/coach"
	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
	"github.com/steveyiyo/formcoach-backend/internal/core/session"
	"github.com/steveyiyo/formcoach-backend/pkg/types"
	"github.com/steveyiyo/formcoach-backend/pkg/ws"
)

const readWait = 60 * time.Second

type StreamHandler struct {
	Hub      *ws.Hub
	Sess     *session.Service
	Log      *slog.Logger
	Upgrader websocket.Upgrader
}

func NewStreamHandler(h *ws.Hub, s *session.Service, log *slog.Logger) *StreamHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StreamHandler{
		Hub:  h,
		Sess: s,
		Log:  log,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) WS(c *gin.Context) {
	id := c.Query("sess")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if !h.Sess.Exists(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	wc := h.Hub.Add(id, conn)
	defer func() {
		h.Hub.Remove(id, wc)
		conn.Close()
	}()
	log := h.Log.With("session", id)

	conn.SetReadLimit(8 << 20)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	_ = wc.WriteJSON(gin.H{
		"type": "hello",
		"ts":   time.Now().UnixMilli(),
	})
	if err := h.Sess.Start(id); err != nil {
		return
	}

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var in types.FrameMsg
		if err := json.Unmarshal(msg, &in); err != nil {
			log.Debug("stream: bad frame", "err", err)
			continue
		}
		if in.Type != "frame" {
			continue
		}

		res, err := h.Sess.Process(id, frameFromMsg(in))
		if err != nil {
			return
		}

		corrections := res.Corrections
		if corrections == nil {
			corrections = []pose.JointCorrection{}
		}
		if err := wc.WriteJSON(types.OverlayMsg{
			Type:        "overlay",
			TS:          in.TS,
			Target:      res.Target,
			Corrections: corrections,
		}); err != nil {
			return
		}
		for _, m := range res.Messages {
			if err := wc.WriteJSON(types.NewCoachMsg(m)); err != nil {
				return
			}
		}
	}
}

func frameFromMsg(in types.FrameMsg) coach.Frame {
	var s pose.Skeleton
	if len(in.Landmarks) > 0 {
		s = pose.FromMediaPipe(in.Landmarks, session.MinVisibility)
	} else {
		s = pose.FromNamed(in.Joints, session.MinVisibility)
	}
	return coach.Frame{Skeleton: s, Classification: in.Classification}
}
