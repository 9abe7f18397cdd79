package http

import (
	"log/slog"
	"net/http"

	"github.com/steveyiyo/formcoach-backend/internal/config"
	"github.com/steveyiyo/formcoach-backend/internal/core/session"
	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	"github.com/steveyiyo/formcoach-backend/internal/http/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(cfg config.Config, svc *session.Service, synth tts.Synthesizer, log *slog.Logger) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("formcoach-backend"))
	sh := handlers.NewSessionsHandler(svc, cfg.BaseScheme(), cfg.Host())
	wsh := handlers.NewStreamHandler(svc.Hub, svc, log)
	th := handlers.NewTTSHandler(synth)
	api := r.Group("/v1")
	api.POST("/sessions", sh.Create)
	api.GET("/sessions/:id/summary", sh.Summary)
	api.POST("/sessions/:id/mute", sh.Mute)
	api.POST("/sessions/:id/unmute", sh.Unmute)
	api.POST("/sessions/:id/clear", sh.Clear)
	api.POST("/sessions/:id/reset", sh.Reset)
	api.DELETE("/sessions/:id", sh.End)
	api.GET("/exercises", sh.Exercises)
	api.POST("/tts", th.Synthesize)
	r.GET("/v1/stream", wsh.WS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}
