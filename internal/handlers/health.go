package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Ledger      string `json:"ledger"`
	Authorized  int    `json:"authorized_users"`
	InFlight    int    `json:"in_flight"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	ledgerStatus := "disabled"
	if h.backend != nil {
		ledgerStatus = "ok"
		if err := h.backend.Ping(ctx); err != nil {
			ledgerStatus = "error"
			status = "degraded"
			h.log.Error().Err(err).Msg("ledger backend ping failed")
		}
	}

	authorized, inFlight := h.gate.Counts()
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, healthResponse{
		Status:      status,
		Ledger:      ledgerStatus,
		Authorized:  authorized,
		InFlight:    inFlight,
		Environment: h.cfg.Environment,
	})
}
