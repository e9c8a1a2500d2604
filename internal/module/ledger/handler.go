package ledger

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/uniedit/ghiblify/internal/shared/errors"
	"github.com/uniedit/ghiblify/internal/shared/middleware"
	"github.com/uniedit/ghiblify/internal/shared/response"
)

// Handler handles HTTP requests for quota and history.
type Handler struct {
	store Store
}

// NewHandler creates a new ledger handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers ledger routes. The caller identity must already be
// resolved by middleware.UserID.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/count", h.Count)
	r.POST("/reset", h.Reset)
	r.POST("/share", h.Share)
	r.GET("/history", h.History)
	r.POST("/delete", h.Delete)
}

// Count returns the remaining generation count.
func (h *Handler) Count(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Fail(c, toAppError(err))
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: count})
}

// Reset restores the default quota.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.store.ResetQuota(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		response.Fail(c, toAppError(err))
		return
	}
	response.OK(c, http.StatusOK, "quota reset to 5")
}

// Share grants one extra generation.
func (h *Handler) Share(c *gin.Context) {
	count, err := h.store.Share(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Fail(c, toAppError(err))
		return
	}
	c.JSON(http.StatusOK, ShareResponse{Success: true, Count: count})
}

// History lists generated images, newest first.
func (h *Handler) History(c *gin.Context) {
	entries, err := h.store.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Fail(c, toAppError(err))
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Delete removes history entries by image url.
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteHistoryRequest
	// A malformed body is treated like a missing url.
	_ = c.ShouldBindJSON(&req)
	if req.URL == "" {
		response.Fail(c, apperrors.BadRequest("image url is required"))
		return
	}

	err := h.store.DeleteHistory(c.Request.Context(), middleware.GetUserID(c), req.URL)
	switch {
	case errors.Is(err, ErrNoHistory):
		response.FailWith(c, http.StatusOK, ErrNoHistory.Error())
	case err != nil:
		response.Fail(c, toAppError(err))
	default:
		response.OK(c, http.StatusOK, "deleted")
	}
}

func toAppError(err error) error {
	if errors.Is(err, ErrUserIDRequired) {
		return apperrors.BadRequest(err.Error())
	}
	return apperrors.Internal("", err)
}
