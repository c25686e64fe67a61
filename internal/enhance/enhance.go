package enhance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"

	"github.com/neuralscale/enhancer/internal/model"
)

// processedSubdir is where enhanced media is stored.
const processedSubdir = "processed"

// Request describes one enhancement job.
type Request struct {
	SourcePath string // object path of the original bytes
	Filename   string
	MIME       string
	Kind       model.Kind
	Scale      int // one of 2, 4, 8, 16
}

// ProgressFunc receives the collaborator's own progress, 0-100,
// in non-decreasing order.
type ProgressFunc func(p int)

// Enhancer performs the resolution-enhancement transform for one item.
type Enhancer interface {
	Enhance(ctx context.Context, req Request, report ProgressFunc) (string, error)
}

// fileStorage defines the interface for file storage.
// It allows saving and loading files from a backend (e.g., local FS, S3, MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Upscaler enhances media by the requested scale factor. Images are
// resampled to scale times their intrinsic size; videos are passed
// through unchanged since no video model is wired in. The compute-heavy
// model inference is simulated by scale-dependent delays while the
// resampling itself is real.
type Upscaler struct {
	fileStorage fileStorage
	baseDelay   time.Duration
	stepDelay   time.Duration
}

// New creates an Upscaler with the given storage backend and timing.
// baseDelay is the processing-phase duration at scale 4; stepDelay covers
// the upload and finalize phases.
func New(fs fileStorage, baseDelay, stepDelay time.Duration) *Upscaler {
	return &Upscaler{
		fileStorage: fs,
		baseDelay:   baseDelay,
		stepDelay:   stepDelay,
	}
}

// scaleMultiplier keeps expected duration strictly increasing with scale.
func scaleMultiplier(scale int) float64 {
	switch scale {
	case 16:
		return 3.0
	case 8:
		return 2.0
	case 4:
		return 1.0
	default:
		return 0.8
	}
}

// processingDelay returns the simulated inference duration for a scale.
func (u *Upscaler) processingDelay(scale int) time.Duration {
	return time.Duration(float64(u.baseDelay) * scaleMultiplier(scale))
}

// Enhance runs the enhancement for one item and returns the object path of
// the enhanced media. Progress is reported at the phase boundaries the
// real pipeline exhibits: upload, inference, finalize.
func (u *Upscaler) Enhance(ctx context.Context, req Request, report ProgressFunc) (string, error) {
	if !model.ValidScale(req.Scale) {
		return "", fmt.Errorf("unsupported scale factor: %d", req.Scale)
	}

	report(10)
	time.Sleep(u.stepDelay)
	report(30)

	time.Sleep(u.processingDelay(req.Scale))

	var out *bytes.Buffer
	var err error
	switch req.Kind {
	case model.KindImage:
		out, err = u.upscaleImage(ctx, req)
	default:
		out, err = u.passThrough(ctx, req)
	}
	if err != nil {
		return "", err
	}

	report(70)

	dst, err := u.fileStorage.Save(ctx, processedSubdir, req.Filename, out)
	if err != nil {
		return "", fmt.Errorf("failed to save enhanced media: %w", err)
	}

	time.Sleep(u.stepDelay)
	report(100)

	return dst, nil
}

// upscaleImage resamples the source image to scale times its size.
func (u *Upscaler) upscaleImage(ctx context.Context, req Request) (*bytes.Buffer, error) {
	srcReader, err := u.fileStorage.Load(ctx, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load original image: %w", err)
	}
	defer srcReader.Close()

	img, err := imaging.Decode(srcReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	upscaled := imaging.Resize(img, bounds.Dx()*req.Scale, bounds.Dy()*req.Scale, imaging.Lanczos)

	format := imaging.PNG
	if req.MIME == "image/jpeg" || req.MIME == "image/jpg" {
		format = imaging.JPEG
	}

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, upscaled, format); err != nil {
		return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
	}

	return buf, nil
}

// passThrough copies the source bytes unchanged.
func (u *Upscaler) passThrough(ctx context.Context, req Request) (*bytes.Buffer, error) {
	srcReader, err := u.fileStorage.Load(ctx, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load original media: %w", err)
	}
	defer srcReader.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, srcReader); err != nil {
		return nil, fmt.Errorf("failed to read original media: %w", err)
	}

	return buf, nil
}
