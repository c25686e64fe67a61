package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"sync"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/semaphore"

	"github.com/neuralscale/enhancer/internal/analysis"
	"github.com/neuralscale/enhancer/internal/enhance"
	"github.com/neuralscale/enhancer/internal/model"
	"github.com/neuralscale/enhancer/internal/store"
)

// FailureMessage is the user-facing message for a failed enhancement.
const FailureMessage = "Processing failed. Please try again."

// Progress milestones of the unified per-item progress bar. The bar moves
// to progressStarted immediately on admission, reaches progressAnalyzed
// once the analysis stage finished, and the enhancement stage's own 0-100
// is remapped linearly into (progressAnalyzed, progressEnhanceCeil].
const (
	progressStarted     = 5
	progressAnalyzed    = 25
	progressEnhanceCeil = 90
	progressDone        = 100

	enhanceWeight = 0.65
)

// analyzer produces a descriptive annotation for the analysis stage.
type analyzer interface {
	Describe(ctx context.Context, data []byte, mime string) (string, error)
}

// enhancer runs the enhancement stage.
type enhancer interface {
	Enhance(ctx context.Context, req enhance.Request, report enhance.ProgressFunc) (string, error)
}

// fileStorage loads stored source bytes for the analysis stage.
type fileStorage interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Orchestrator drives admitted items through the enhancement pipeline.
// Each item runs in its own goroutine; items never affect each other. The
// orchestrator is the only writer of item state after admission.
type Orchestrator struct {
	analyzer    analyzer
	enhancer    enhancer
	fileStorage fileStorage
	store       *store.Store

	sem *semaphore.Weighted // nil means unbounded
	wg  sync.WaitGroup
}

// New creates an Orchestrator. maxConcurrent limits how many pipelines run
// at once; zero or negative means no limit, which matches the default
// behavior of starting every admitted item immediately.
func New(a analyzer, e enhancer, fs fileStorage, st *store.Store, maxConcurrent int) *Orchestrator {
	o := &Orchestrator{
		analyzer:    a,
		enhancer:    e,
		fileStorage: fs,
		store:       st,
	}
	if maxConcurrent > 0 {
		o.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return o
}

// Start launches the pipeline for one admitted item and returns
// immediately.
func (o *Orchestrator) Start(item model.MediaItem, cfg model.ProcessingConfig) {
	o.wg.Add(1)
	go o.run(item, cfg)
}

// Wait blocks until every started pipeline has reached a terminal state.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// mapEnhancementProgress remaps the enhancement collaborator's own 0-100
// progress into the unified bar.
func mapEnhancementProgress(p int) int {
	mapped := progressAnalyzed + int(float64(p)*enhanceWeight)
	if mapped < progressAnalyzed {
		return progressAnalyzed
	}
	if mapped > progressEnhanceCeil {
		return progressEnhanceCeil
	}
	return mapped
}

func (o *Orchestrator) run(item model.MediaItem, cfg model.ProcessingConfig) {
	defer o.wg.Done()

	ctx := context.Background()

	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer o.sem.Release(1)
	}

	// Idle -> Processing with an immediate "started" signal.
	if _, err := o.store.Update(item.ID, func(it model.MediaItem) model.MediaItem {
		if !model.CanTransition(it.Status, model.StatusProcessing) {
			return it
		}
		it.Status = model.StatusProcessing
		it.Progress = progressStarted
		return it
	}); err != nil {
		// Removed before the pipeline got going; nothing to do.
		return
	}

	// Stage 1: analysis. Never fatal; a failure degrades to the fallback
	// annotation and the pipeline proceeds.
	annotation := o.analyze(ctx, item)

	if _, err := o.store.Update(item.ID, func(it model.MediaItem) model.MediaItem {
		if it.Status != model.StatusProcessing {
			return it
		}
		it.Progress = progressAnalyzed
		it.Metadata.Annotation = annotation
		return it
	}); err != nil {
		return
	}

	// Stage 2: enhancement. Begins strictly after analysis settled.
	req := enhance.Request{
		SourcePath: item.SourceRef,
		Filename:   filepath.Base(item.SourceRef),
		MIME:       item.Metadata.MIMEType,
		Kind:       item.Kind,
		Scale:      cfg.Scale,
	}

	processedRef, err := o.enhancer.Enhance(ctx, req, func(p int) {
		o.reportProgress(item.ID, p)
	})
	if err != nil {
		zlog.Logger.Err(err).Str("item", item.ID).Msg("enhancement failed")
		o.fail(item.ID)
		return
	}

	if _, err := o.store.Update(item.ID, func(it model.MediaItem) model.MediaItem {
		if !model.CanTransition(it.Status, model.StatusCompleted) {
			return it
		}
		it.Status = model.StatusCompleted
		it.Progress = progressDone
		it.ProcessedRef = processedRef
		return it
	}); err != nil {
		return
	}

	zlog.Logger.Info().Str("item", item.ID).Msg("item processed")
}

// analyze runs the analysis stage and always comes back with an
// annotation, falling back when the source cannot be read or the
// collaborator errors.
func (o *Orchestrator) analyze(ctx context.Context, item model.MediaItem) string {
	srcReader, err := o.fileStorage.Load(ctx, item.SourceRef)
	if err != nil {
		zlog.Logger.Err(err).Str("item", item.ID).Msg("failed to load source for analysis")
		return analysis.Fallback
	}
	defer srcReader.Close()

	data, err := io.ReadAll(srcReader)
	if err != nil {
		zlog.Logger.Err(err).Str("item", item.ID).Msg("failed to read source for analysis")
		return analysis.Fallback
	}

	annotation, err := o.analyzer.Describe(ctx, data, item.Metadata.MIMEType)
	if err != nil {
		zlog.Logger.Err(err).Str("item", item.ID).Msg("analysis failed, using fallback annotation")
		return analysis.Fallback
	}

	return annotation
}

// reportProgress folds one enhancement progress report into the item.
// Progress never decreases, whatever the collaborator reports.
func (o *Orchestrator) reportProgress(id string, p int) {
	_, _ = o.store.Update(id, func(it model.MediaItem) model.MediaItem {
		if it.Status != model.StatusProcessing {
			return it
		}
		if mapped := mapEnhancementProgress(p); mapped > it.Progress {
			it.Progress = mapped
		}
		return it
	})
}

// fail moves the item to its terminal error state. Progress stays frozen
// at the last reported value and no partial artifact is exposed.
func (o *Orchestrator) fail(id string) {
	_, _ = o.store.Update(id, func(it model.MediaItem) model.MediaItem {
		if !model.CanTransition(it.Status, model.StatusError) {
			return it
		}
		it.Status = model.StatusError
		it.Error = FailureMessage
		return it
	})
}
