package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/sweep"
	"github.com/renewhub/renewhub/pkg/response"
)

// SweepHandler exposes the manual sweep trigger.
type SweepHandler struct {
	sweeper *sweep.Sweeper
}

// NewSweepHandler constructs a SweepHandler.
func NewSweepHandler(sweeper *sweep.Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// POST /api/check-expiring
//
// Kicks off a sweep in the background and returns immediately; the caller is
// not held hostage to email delivery. A sweep already in flight is rejected
// rather than queued.
func (h *SweepHandler) Run(c *gin.Context) {
	if err := h.sweeper.TriggerNow(); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"message": "Expiry check started"})
}
