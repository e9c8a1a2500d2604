package generation

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uniedit/ghiblify/internal/port/outbound"
	apperrors "github.com/uniedit/ghiblify/internal/shared/errors"
	"github.com/uniedit/ghiblify/internal/shared/middleware"
	"github.com/uniedit/ghiblify/internal/shared/response"
	"go.uber.org/zap"
)

// ImageField is the multipart field carrying the upload.
const ImageField = "image"

// Handler handles image upload and generation.
type Handler struct {
	generator Generator
	archiver  outbound.ArchivePort
	maxSize   int64
	logger    *zap.Logger
}

// NewHandler creates a new generation handler. archiver may be nil.
// maxSize <= 0 disables the size check.
func NewHandler(generator Generator, archiver outbound.ArchivePort, maxSize int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		generator: generator,
		archiver:  archiver,
		maxSize:   maxSize,
		logger:    logger.Named("upload"),
	}
}

// RegisterRoutes registers generation routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/upload", h.Upload)
}

// Upload runs a generation for the uploaded image. Generation outcomes are
// always reported with status 200.
func (h *Handler) Upload(c *gin.Context) {
	image, filename, err := h.readImage(c)
	if err != nil {
		response.Fail(c, err)
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	if h.archiver != nil {
		loc, err := h.archiver.Archive(ctx, filename, image)
		if err != nil {
			h.logger.Warn("archive upload failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			h.logger.Debug("upload archived", zap.String("location", loc))
		}
	}

	res := h.generator.Generate(ctx, &Request{UserID: userID, Image: image})
	if res.Err != nil {
		_ = c.Error(res.Err)
	}

	if !res.Success() {
		c.JSON(http.StatusOK, UploadResponse{Success: false, Msg: res.Outcome.Message()})
		return
	}
	c.JSON(http.StatusOK, UploadResponse{Success: true, ResultImageURL: res.OutputURL})
}

func (h *Handler) readImage(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile(ImageField)
	if err != nil {
		return nil, "", apperrors.BadRequest("image file is required")
	}
	if h.maxSize > 0 && fh.Size > h.maxSize {
		return nil, "", apperrors.BadRequest(fmt.Sprintf("image exceeds %d bytes", h.maxSize))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperrors.Internal("", fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", apperrors.Internal("", fmt.Errorf("read upload: %w", err))
	}
	return data, fh.Filename, nil
}
