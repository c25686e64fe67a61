package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	// Registered decoders back the best-effort dimension probe.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/neuralscale/enhancer/internal/model"
)

var (
	// ErrFileTooLarge rejects candidates over the configured size cap.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType rejects candidates outside the MIME allow-lists.
	ErrUnsupportedType = errors.New("unsupported file type")
)

const (
	originalSubdir = "original"
	previewSubdir  = "previews"

	unknownDimensions = "Unknown"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

var allowedVideoTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/webm":      {},
	"video/quicktime": {},
}

// fileStorage defines the storage operations admission needs: persisting
// the original bytes and allocating renderable preview locators.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	PresignURL(ctx context.Context, path string) (string, error)
}

// previewRenderer draws preview cards for media without a decodable still.
type previewRenderer interface {
	Card(filename string) ([]byte, error)
}

// Validator decides admission of candidate files and creates media items
// for the ones it accepts.
type Validator struct {
	fileStorage fileStorage
	previews    previewRenderer
	maxFileSize int64
}

// NewValidator creates a Validator with the given storage backend, preview
// renderer and size cap in bytes.
func NewValidator(fs fileStorage, pr previewRenderer, maxFileSize int64) *Validator {
	return &Validator{
		fileStorage: fs,
		previews:    pr,
		maxFileSize: maxFileSize,
	}
}

// Admit validates one candidate file. Rejections return ErrFileTooLarge or
// ErrUnsupportedType and leave no trace in storage. On admission the
// original bytes are persisted, a preview locator is allocated, and a new
// idle item is returned, ready to be handed to the pipeline.
func (v *Validator) Admit(ctx context.Context, filename, mime string, size int64, src io.Reader, cfg model.ProcessingConfig) (model.MediaItem, error) {
	if size > v.maxFileSize {
		return model.MediaItem{}, fmt.Errorf("%w: %s is %s, max %s", ErrFileTooLarge,
			filename, model.FormatFileSize(size), model.FormatFileSize(v.maxFileSize))
	}

	_, isImage := allowedImageTypes[mime]
	_, isVideo := allowedVideoTypes[mime]
	if !isImage && !isVideo {
		return model.MediaItem{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	// Declared sizes come from the client; cap the read so an understated
	// header cannot smuggle in an oversized body.
	data, err := io.ReadAll(io.LimitReader(src, v.maxFileSize+1))
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > v.maxFileSize {
		return model.MediaItem{}, fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge,
			filename, model.FormatFileSize(v.maxFileSize))
	}

	kind := model.KindFromMIME(mime)

	dimensions := unknownDimensions
	if kind == model.KindImage {
		if cfgImg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			dimensions = fmt.Sprintf("%dx%d", cfgImg.Width, cfgImg.Height)
		} else {
			zlog.Logger.Warn().Err(err).Str("filename", filename).Msg("failed to read image dimensions")
		}
	}

	id := uuid.NewString()
	storedName := fmt.Sprintf("%s_%s", id, filepath.Base(filename))

	sourceRef, err := v.fileStorage.Save(ctx, originalSubdir, storedName, bytes.NewReader(data))
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("failed to save original: %w", err)
	}

	previewObject := sourceRef
	if kind == model.KindVideo {
		card, err := v.previews.Card(filename)
		if err != nil {
			return model.MediaItem{}, fmt.Errorf("failed to render preview: %w", err)
		}
		previewObject, err = v.fileStorage.Save(ctx, previewSubdir, storedName+".png", bytes.NewReader(card))
		if err != nil {
			return model.MediaItem{}, fmt.Errorf("failed to save preview: %w", err)
		}
	}

	previewRef, err := v.fileStorage.PresignURL(ctx, previewObject)
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("failed to allocate preview locator: %w", err)
	}

	return model.MediaItem{
		ID:            id,
		Kind:          kind,
		Filename:      filename,
		SourceRef:     sourceRef,
		PreviewRef:    previewRef,
		PreviewObject: previewObject,
		Status:        model.StatusIdle,
		Metadata: model.Metadata{
			OriginalSize:  int64(len(data)),
			OriginalHuman: model.FormatFileSize(int64(len(data))),
			Dimensions:    dimensions,
			MIMEType:      mime,
			Scale:         cfg.Scale,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}
