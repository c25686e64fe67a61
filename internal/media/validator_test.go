package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

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

func (m *memStorage) PresignURL(_ context.Context, path string) (string, error) {
	return "http://storage.local/" + path, nil
}

func (m *memStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fakePreviews struct{}

func (fakePreviews) Card(string) ([]byte, error) {
	return []byte("card"), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testConfig() model.ProcessingConfig {
	return model.ProcessingConfig{Scale: 4}
}

func TestAdmitImage(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 50<<20)

	data := pngBytes(t, 32, 16)
	item, err := v.Admit(context.Background(), "photo.png", "image/png", int64(len(data)), bytes.NewReader(data), testConfig())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if item.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if item.Kind != model.KindImage {
		t.Errorf("Kind = %v, want image", item.Kind)
	}
	if item.Status != model.StatusIdle {
		t.Errorf("Status = %v, want idle", item.Status)
	}
	if item.Progress != 0 {
		t.Errorf("Progress = %d, want 0", item.Progress)
	}
	if item.Metadata.Dimensions != "32x16" {
		t.Errorf("Dimensions = %q, want 32x16", item.Metadata.Dimensions)
	}
	if item.Metadata.Scale != 4 {
		t.Errorf("Scale = %d, want 4", item.Metadata.Scale)
	}
	if !strings.HasPrefix(item.SourceRef, "original/") {
		t.Errorf("SourceRef = %q", item.SourceRef)
	}
	if item.PreviewObject != item.SourceRef {
		t.Errorf("image preview should be backed by the source object, got %q", item.PreviewObject)
	}
	if !strings.Contains(item.PreviewRef, item.SourceRef) {
		t.Errorf("PreviewRef = %q does not point at the source", item.PreviewRef)
	}
}

func TestAdmitVideoRendersPreviewCard(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 50<<20)

	data := []byte("not really mp4, but admission trusts the MIME type")
	item, err := v.Admit(context.Background(), "clip.mp4", "video/mp4", int64(len(data)), bytes.NewReader(data), testConfig())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if item.Kind != model.KindVideo {
		t.Errorf("Kind = %v, want video", item.Kind)
	}
	if item.Metadata.Dimensions != "Unknown" {
		t.Errorf("Dimensions = %q, want Unknown for video", item.Metadata.Dimensions)
	}
	if !strings.HasPrefix(item.PreviewObject, "previews/") {
		t.Errorf("PreviewObject = %q, want a rendered card", item.PreviewObject)
	}
	if item.PreviewObject == item.SourceRef {
		t.Error("video preview must not be the source object")
	}
}

func TestAdmitRejectsOversized(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 1024)

	_, err := v.Admit(context.Background(), "big.png", "image/png", 2048, bytes.NewReader(make([]byte, 2048)), testConfig())
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("got %v, want ErrFileTooLarge", err)
	}
	if fs.len() != 0 {
		t.Error("rejected file must leave no objects behind")
	}
}

func TestAdmitRejectsUnderstatedSize(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 1024)

	// Declared size fits, actual body does not.
	_, err := v.Admit(context.Background(), "liar.png", "image/png", 100, bytes.NewReader(make([]byte, 4096)), testConfig())
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("got %v, want ErrFileTooLarge", err)
	}
	if fs.len() != 0 {
		t.Error("rejected file must leave no objects behind")
	}
}

func TestAdmitRejectsUnsupportedTypes(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 50<<20)

	for _, mime := range []string{"text/plain", "application/pdf", "image/gif", "video/x-msvideo", ""} {
		_, err := v.Admit(context.Background(), "file", mime, 10, strings.NewReader("0123456789"), testConfig())
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("mime %q: got %v, want ErrUnsupportedType", mime, err)
		}
	}
	if fs.len() != 0 {
		t.Error("rejected files must leave no objects behind")
	}
}

func TestAdmitUnreadableDimensionsDoNotBlock(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 50<<20)

	// Claims to be a PNG but is not decodable.
	data := []byte("definitely not a png")
	item, err := v.Admit(context.Background(), "broken.png", "image/png", int64(len(data)), bytes.NewReader(data), testConfig())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if item.Metadata.Dimensions != "Unknown" {
		t.Errorf("Dimensions = %q, want Unknown", item.Metadata.Dimensions)
	}
}

func TestAdmittedIDsAreUnique(t *testing.T) {
	fs := newMemStorage()
	v := NewValidator(fs, fakePreviews{}, 50<<20)

	seen := make(map[string]struct{})
	data := pngBytes(t, 2, 2)
	for i := 0; i < 200; i++ {
		item, err := v.Admit(context.Background(), fmt.Sprintf("p%d.png", i), "image/png", int64(len(data)), bytes.NewReader(data), testConfig())
		if err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
		if _, ok := seen[item.ID]; ok {
			t.Fatalf("duplicate id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
}
