package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/neuralscale/enhancer/internal/api/respond"
	"github.com/neuralscale/enhancer/internal/convert"
	"github.com/neuralscale/enhancer/internal/model"
	mediasvc "github.com/neuralscale/enhancer/internal/service/media"
	"github.com/neuralscale/enhancer/internal/store"
)

// maxMultipartMemory caps the in-memory part of multipart parsing; larger
// files spill to disk before validation sees them.
const maxMultipartMemory = 64 << 20

// service defines the interface for media-related operations.
type service interface {
	UploadBatch(ctx context.Context, files []mediasvc.UploadFile, cfg model.ProcessingConfig) ([]mediasvc.Outcome, error)
	GetItem(id string) (model.MediaItem, error)
	ListItems() []model.MediaItem
	RemoveItem(ctx context.Context, id string) error
	Download(ctx context.Context, id string, format model.OutputFormat, quality float64) (string, convert.Result, error)
}

// Handler provides HTTP handlers for media item endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Upload handles the HTTP request for submitting a batch of media files.
// Each file is admitted or rejected independently; admitted items start
// processing immediately. Responds with the per-file outcomes.
func (h *Handler) Upload(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	form := c.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	cfg := model.ProcessingConfig{Scale: 4}
	if v := c.PostForm("scale"); v != "" {
		scale, err := strconv.Atoi(v)
		if err != nil || !model.ValidScale(scale) {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid scale: %q", v))
			return
		}
		cfg.Scale = scale
	}
	cfg.EnhanceFace = c.PostForm("enhance_face") == "true"
	cfg.Denoise = c.PostForm("denoise") == "true"

	var files []mediasvc.UploadFile
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			zlog.Logger.Err(err).Str("filename", header.Filename).Msg("failed to open uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read file %s", header.Filename))
			return
		}
		defer f.Close()

		files = append(files, mediasvc.UploadFile{
			Filename: header.Filename,
			MIME:     header.Header.Get("Content-Type"),
			Size:     header.Size,
			Reader:   f,
		})
	}

	outcomes, err := h.service.UploadBatch(c.Request.Context(), files, cfg)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	accepted := 0
	for _, o := range outcomes {
		if o.Accepted {
			accepted++
		}
	}

	if accepted == 0 {
		respond.JSON(c, http.StatusBadRequest, map[string]interface{}{"result": outcomes})
		return
	}

	respond.Created(c, outcomes)
}

// List returns snapshots of all items in submission order.
func (h *Handler) List(c *ginext.Context) {
	respond.OK(c, h.service.ListItems())
}

// Get returns one item's current snapshot (status, progress, metadata).
func (h *Handler) Get(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	item, err := h.service.GetItem(id)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("item not found"))
			return
		}

		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get item: %v", err))
		return
	}

	respond.OK(c, item)
}

// Download converts the item's enhanced media into the requested format
// and serves it as an attachment. Conversion errors do not affect the
// item; the client may retry.
func (h *Handler) Download(c *ginext.Context) {
	id := c.Param("id")

	format, ok := model.ParseOutputFormat(c.DefaultQuery("format", string(model.FormatJPEG)))
	if !ok {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid format: %q", c.Query("format")))
		return
	}

	quality := convert.DefaultQuality
	if v := c.Query("quality"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid quality: %q", v))
			return
		}
		quality = q
	}

	filename, result, err := h.service.Download(c.Request.Context(), id, format, quality)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrItemNotFound):
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("item not found"))
		case errors.Is(err, mediasvc.ErrNotReady):
			respond.Fail(c, http.StatusConflict, err)
		case errors.Is(err, convert.ErrConversion):
			zlog.Logger.Err(err).Str("item", id).Msg("conversion failed")
			respond.Fail(c, http.StatusUnprocessableEntity, err)
		default:
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to convert item: %v", err))
		}
		return
	}

	respond.Attachment(c, http.StatusOK, result.ContentType, filename, result.Data)
}

// Delete removes an item by ID and releases its stored objects.
func (h *Handler) Delete(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("item not found"))
			return
		}

		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to delete item: %v", err))
		return
	}

	c.Status(http.StatusNoContent)
}
