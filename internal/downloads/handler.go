package downloads

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/shared/server/respond"
)

// Handler serves download redemption.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the public redemption endpoint.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/download/:token", h.redeem)
}

func (h *Handler) redeem(c *gin.Context) {
	grant, err := h.Svc.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "download not found", nil)
		case errors.Is(err, ErrExpired):
			respond.Error(c, http.StatusGone, "expired", "download link expired", nil)
		case errors.Is(err, ErrAlreadyUsed):
			respond.Error(c, http.StatusGone, "already_used", "download link already used", nil)
		case errors.Is(err, os.ErrNotExist):
			respond.Error(c, http.StatusNotFound, "not_found", "asset missing", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redeem download", nil)
		}
		return
	}

	if grant.Content != nil {
		defer grant.Content.Close()
		c.Header("Content-Type", grant.ContentType)
		c.Header("Content-Disposition", `attachment; filename="`+grant.Item.Slug+`"`)
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, grant.Content)
		return
	}

	respond.OK(c, gin.H{
		"title":            grant.Item.Title,
		"url":              grant.URL,
		"expiresInSeconds": int(grant.ExpiresIn.Seconds()),
	})
}
