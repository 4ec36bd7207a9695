package items

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pixelmart-backend/internal/shared/server/middleware"
	"pixelmart-backend/internal/shared/server/respond"
)

const maxUploadBytes = 25 << 20

// Handler wires listing HTTP endpoints to the item service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches unauthenticated browse routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/items", h.list)
	rg.GET("/items/:slug", h.get)
	rg.GET("/items/:slug/preview", h.preview)
}

// RegisterSellerRoutes attaches authenticated upload routes.
func (h *Handler) RegisterSellerRoutes(rg *gin.RouterGroup) {
	rg.POST("/items", h.upload)
}

// RegisterAdminRoutes attaches operator-only repair routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/items/:slug/repair-preview", h.repairPreview)
}

type itemResponse struct {
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	License    string    `json:"license,omitempty"`
	PreviewURL string    `json:"previewUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toItemResponse(item Item) itemResponse {
	return itemResponse{
		Slug:       item.Slug,
		Title:      item.Title,
		PriceCents: item.PriceCents,
		Currency:   item.Currency,
		License:    item.License,
		PreviewURL: "/api/v1/items/" + item.Slug + "/preview",
		CreatedAt:  item.CreatedAt,
	}
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "image file is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read upload", nil)
		return
	}
	if len(data) > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit", nil)
		return
	}

	priceCents, err := strconv.ParseInt(c.PostForm("priceCents"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "priceCents must be an integer", nil)
		return
	}

	item, err := h.Svc.Upload(c.Request.Context(), userID, UploadInput{
		Title:      c.PostForm("title"),
		License:    c.PostForm("license"),
		Currency:   c.PostForm("currency"),
		PriceCents: priceCents,
		FileName:   header.Filename,
		Data:       data,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "title and file are required", nil)
		case errors.Is(err, ErrPriceTooLow):
			respond.Error(c, http.StatusBadRequest, "price_too_low", "price below platform minimum", nil)
		case errors.Is(err, ErrUnsupportedImage):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_image", "file is not a supported image", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create listing", nil)
		}
		return
	}

	c.Set("itemSlug", item.Slug)
	respond.JSON(c, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.Svc.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "item not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load item", nil)
		return
	}
	respond.OK(c, toItemResponse(item))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	list, err := h.Svc.Repo.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list items", nil)
		return
	}

	out := make([]itemResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toItemResponse(item))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) preview(c *gin.Context) {
	item, err := h.Svc.Repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "item not found", nil)
		return
	}

	rc, err := h.Svc.OpenPreview(c.Request.Context(), item)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "preview not available", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) repairPreview(c *gin.Context) {
	item, err := h.Svc.RepairPreview(c.Request.Context(), c.Param("slug"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "item not found", nil)
		case errors.Is(err, ErrUnsupportedImage):
			respond.Error(c, http.StatusUnprocessableEntity, "unsupported_image", "original could not be decoded", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to repair preview", nil)
		}
		return
	}
	respond.OK(c, toItemResponse(item))
}
