package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"repurposer/internal/config"
)

// Counter reports the authorized and in-flight user counts.
type Counter interface {
	Counts() (authorized int, active int)
}

// Pinger checks a backing store. A nil Pinger is reported as "disabled".
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log     zerolog.Logger
	cfg     *config.AppConfig
	gate    Counter
	backend Pinger
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, gate Counter, backend Pinger) HandlerSet {
	return HandlerSet{
		log:     log.With().Str("component", "handlers").Logger(),
		cfg:     cfg,
		gate:    gate,
		backend: backend,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
}

// RegisterMetrics mounts the Prometheus scrape endpoint at the engine root.
func (h HandlerSet) RegisterMetrics(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
