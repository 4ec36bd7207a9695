package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/shared/server/respond"
)

// Handler exposes the admin drain endpoint.
type Handler struct {
	Drainer *Drainer
}

// RegisterRoutes attaches ledger routes to the admin group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/retry-pending", h.retryPending)
}

func (h *Handler) retryPending(c *gin.Context) {
	outcomes, err := h.Drainer.DrainAll(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to drain pending transfers", nil)
		return
	}
	respond.OK(c, outcomes)
}
