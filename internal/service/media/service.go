package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wb-go/wbf/zlog"

	"github.com/neuralscale/enhancer/internal/convert"
	"github.com/neuralscale/enhancer/internal/model"
	"github.com/neuralscale/enhancer/internal/store"
)

// ErrNotReady is returned when a download is requested for an item that
// has not completed processing.
var ErrNotReady = errors.New("item is not ready for download")

// ErrInvalidScale rejects batches with an unsupported scale factor.
var ErrInvalidScale = errors.New("invalid scale factor")

// UploadFile is one candidate file of an upload batch.
type UploadFile struct {
	Filename string
	MIME     string
	Size     int64
	Reader   io.Reader
}

// Outcome is the per-file result of an upload batch. Rejected files carry
// the reason; admitted files carry the new item id.
type Outcome struct {
	Filename string `json:"filename"`
	Accepted bool   `json:"accepted"`
	ID       string `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// validator decides admission and creates items.
type validator interface {
	Admit(ctx context.Context, filename, mime string, size int64, src io.Reader, cfg model.ProcessingConfig) (model.MediaItem, error)
}

// orchestrator runs admitted items through the pipeline.
type orchestrator interface {
	Start(item model.MediaItem, cfg model.ProcessingConfig)
}

// converter re-encodes stored media for download.
type converter interface {
	Convert(ctx context.Context, ref, sourceMIME string, format model.OutputFormat, quality float64) (convert.Result, error)
}

// fileStorage releases stored objects when items are removed.
type fileStorage interface {
	Delete(ctx context.Context, path string) error
}

// Service provides the business logic for media items: batch admission,
// item access, removal with resource release, and download conversion.
type Service struct {
	validator    validator
	orchestrator orchestrator
	converter    converter
	fileStorage  fileStorage
	store        *store.Store
}

// NewService creates a Service wired to its collaborators.
func NewService(v validator, o orchestrator, c converter, fs fileStorage, st *store.Store) *Service {
	return &Service{
		validator:    v,
		orchestrator: o,
		converter:    c,
		fileStorage:  fs,
		store:        st,
	}
}

// UploadBatch admits each candidate file independently and starts the
// pipeline for every accepted one. A rejection never affects the other
// files of the batch.
func (s *Service) UploadBatch(ctx context.Context, files []UploadFile, cfg model.ProcessingConfig) ([]Outcome, error) {
	if !model.ValidScale(cfg.Scale) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScale, cfg.Scale)
	}

	outcomes := make([]Outcome, 0, len(files))

	for _, f := range files {
		item, err := s.validator.Admit(ctx, f.Filename, f.MIME, f.Size, f.Reader, cfg)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("filename", f.Filename).Msg("file rejected")
			outcomes = append(outcomes, Outcome{Filename: f.Filename, Reason: err.Error()})
			continue
		}

		if err := s.store.Put(item); err != nil {
			outcomes = append(outcomes, Outcome{Filename: f.Filename, Reason: err.Error()})
			continue
		}

		s.orchestrator.Start(item, cfg)

		outcomes = append(outcomes, Outcome{Filename: f.Filename, Accepted: true, ID: item.ID})
	}

	return outcomes, nil
}

// GetItem returns a snapshot of one item.
func (s *Service) GetItem(id string) (model.MediaItem, error) {
	return s.store.Get(id)
}

// ListItems returns snapshots of all items in submission order.
func (s *Service) ListItems() []model.MediaItem {
	return s.store.List()
}

// RemoveItem deletes the item and releases every object it references.
func (s *Service) RemoveItem(ctx context.Context, id string) error {
	item, err := s.store.Remove(id)
	if err != nil {
		return err
	}

	refs := []string{item.SourceRef}
	if item.PreviewObject != "" && item.PreviewObject != item.SourceRef {
		refs = append(refs, item.PreviewObject)
	}
	if item.ProcessedRef != "" {
		refs = append(refs, item.ProcessedRef)
	}

	for _, ref := range refs {
		if err := s.fileStorage.Delete(ctx, ref); err != nil {
			zlog.Logger.Err(err).Str("ref", ref).Msg("failed to release stored object")
		}
	}

	return nil
}

// Download converts the item's enhanced media (the original as fallback)
// into the requested format and returns the payload with its suggested
// filename. A conversion failure leaves the item untouched; the caller
// may retry without re-running enhancement.
func (s *Service) Download(ctx context.Context, id string, format model.OutputFormat, quality float64) (string, convert.Result, error) {
	item, err := s.store.Get(id)
	if err != nil {
		return "", convert.Result{}, err
	}

	if item.Status != model.StatusCompleted {
		return "", convert.Result{}, fmt.Errorf("%w: status is %s", ErrNotReady, item.Status)
	}

	ref := item.ProcessedRef
	if ref == "" {
		ref = item.SourceRef
	}

	result, err := s.converter.Convert(ctx, ref, item.Metadata.MIMEType, format, quality)
	if err != nil {
		return "", convert.Result{}, err
	}

	return model.DownloadFilename(item.Filename, format), result, nil
}
