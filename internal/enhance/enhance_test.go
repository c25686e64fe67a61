package enhance

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/neuralscale/enhancer/internal/model"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, subdir, filename string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	path := subdir + "/" + filename
	m.mu.Lock()
	m.objects[path] = data
	m.mu.Unlock()
	return path, nil
}

func (m *memStorage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestProcessingDelayStrictlyIncreasesWithScale(t *testing.T) {
	u := New(newMemStorage(), 100, 0)

	scales := []int{2, 4, 8, 16}
	for i := 1; i < len(scales); i++ {
		lo := u.processingDelay(scales[i-1])
		hi := u.processingDelay(scales[i])
		if hi <= lo {
			t.Errorf("delay(scale %d) = %v, not greater than delay(scale %d) = %v",
				scales[i], hi, scales[i-1], lo)
		}
	}
}

func TestEnhanceUpscalesImage(t *testing.T) {
	fs := newMemStorage()
	fs.objects["original/a.png"] = pngBytes(t, 10, 6)

	u := New(fs, 0, 0)

	var reports []int
	ref, err := u.Enhance(context.Background(), Request{
		SourcePath: "original/a.png",
		Filename:   "a.png",
		MIME:       "image/png",
		Kind:       model.KindImage,
		Scale:      4,
	}, func(p int) { reports = append(reports, p) })
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}

	if !strings.HasPrefix(ref, "processed/") {
		t.Errorf("result ref = %q", ref)
	}

	img, err := imaging.Decode(bytes.NewReader(fs.objects[ref]))
	if err != nil {
		t.Fatalf("failed to decode enhanced image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 24 {
		t.Errorf("enhanced dimensions = %dx%d, want 40x24", b.Dx(), b.Dy())
	}

	want := []int{10, 30, 70, 100}
	if len(reports) != len(want) {
		t.Fatalf("progress reports = %v, want %v", reports, want)
	}
	for i, p := range want {
		if reports[i] != p {
			t.Errorf("report %d = %d, want %d", i, reports[i], p)
		}
	}
}

func TestEnhancePassesVideoThrough(t *testing.T) {
	fs := newMemStorage()
	src := []byte("opaque video bytes")
	fs.objects["original/v.mp4"] = src

	u := New(fs, 0, 0)

	ref, err := u.Enhance(context.Background(), Request{
		SourcePath: "original/v.mp4",
		Filename:   "v.mp4",
		MIME:       "video/mp4",
		Kind:       model.KindVideo,
		Scale:      2,
	}, func(int) {})
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}

	if !bytes.Equal(fs.objects[ref], src) {
		t.Error("video result differs from source bytes")
	}
}

func TestEnhanceFailsOnUndecodableImage(t *testing.T) {
	fs := newMemStorage()
	fs.objects["original/bad.png"] = []byte("junk")

	u := New(fs, 0, 0)

	_, err := u.Enhance(context.Background(), Request{
		SourcePath: "original/bad.png",
		Filename:   "bad.png",
		MIME:       "image/png",
		Kind:       model.KindImage,
		Scale:      2,
	}, func(int) {})
	if err == nil {
		t.Fatal("expected an error for an undecodable image")
	}
}

func TestEnhanceRejectsInvalidScale(t *testing.T) {
	u := New(newMemStorage(), 0, 0)

	_, err := u.Enhance(context.Background(), Request{
		SourcePath: "original/a.png",
		Kind:       model.KindImage,
		Scale:      3,
	}, func(int) {})
	if err == nil {
		t.Fatal("expected an error for scale 3")
	}
}

func TestProgressReportsNeverDecrease(t *testing.T) {
	fs := newMemStorage()
	fs.objects["original/a.png"] = pngBytes(t, 4, 4)

	u := New(fs, 0, 0)

	last := -1
	_, err := u.Enhance(context.Background(), Request{
		SourcePath: "original/a.png",
		Filename:   "a.png",
		MIME:       "image/png",
		Kind:       model.KindImage,
		Scale:      2,
	}, func(p int) {
		if p < last {
			t.Errorf("progress went backwards: %d after %d", p, last)
		}
		last = p
	})
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}
	if last != 100 {
		t.Errorf("final report = %d, want 100", last)
	}
}
