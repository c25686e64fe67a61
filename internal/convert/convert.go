package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/neuralscale/enhancer/internal/model"
)

// DefaultQuality applies to lossy targets when the caller does not
// specify one.
const DefaultQuality = 0.92

// ErrConversion marks failures of the download conversion step. These are
// independent of the item's processing status: a completed item that fails
// to convert stays completed and the conversion can simply be retried.
var ErrConversion = errors.New("conversion failed")

// Result is an encoded payload ready for download.
type Result struct {
	Data        []byte
	ContentType string
}

// fileStorage defines the interface for loading stored media.
type fileStorage interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Converter re-encodes a stored media object into a requested output
// format. Conversion is an in-process decode/encode, no network round trip.
type Converter struct {
	fileStorage fileStorage
}

// New creates a Converter with the given storage backend.
func New(fs fileStorage) *Converter {
	return &Converter{fileStorage: fs}
}

// Convert fetches the object at ref and encodes it as format. The
// "original" sentinel returns the source bytes unmodified. quality is in
// (0, 1] and only affects lossy targets.
func (c *Converter) Convert(ctx context.Context, ref, sourceMIME string, format model.OutputFormat, quality float64) (Result, error) {
	if quality <= 0 || quality > 1 {
		return Result{}, fmt.Errorf("%w: quality %v out of range (0, 1]", ErrConversion, quality)
	}

	srcReader, err := c.fileStorage.Load(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to load media: %v", ErrConversion, err)
	}
	defer srcReader.Close()

	if format == model.FormatOriginal {
		data, err := io.ReadAll(srcReader)
		if err != nil {
			return Result{}, fmt.Errorf("%w: failed to read media: %v", ErrConversion, err)
		}
		return Result{Data: data, ContentType: format.ContentType(sourceMIME)}, nil
	}

	img, err := imaging.Decode(srcReader)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to decode media: %v", ErrConversion, err)
	}

	buf := bytes.NewBuffer(nil)

	switch format {
	case model.FormatJPEG:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(int(quality*100)))
	case model.FormatPNG:
		err = imaging.Encode(buf, img, imaging.PNG)
	case model.FormatWebP:
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(quality * 100)})
	default:
		err = fmt.Errorf("unknown output format: %s", format)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to encode media: %v", ErrConversion, err)
	}

	return Result{Data: buf.Bytes(), ContentType: format.ContentType(sourceMIME)}, nil
}
