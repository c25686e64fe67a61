package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a media item by its source MIME type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// KindFromMIME classifies a MIME type into a media kind.
// Anything that is not a video is treated as an image; the validator
// has already rejected types outside the allow-lists by the time this
// matters.
func KindFromMIME(mime string) Kind {
	if strings.HasPrefix(mime, "video/") {
		return KindVideo
	}
	return KindImage
}

// Status represents the lifecycle of a media item.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var allowedTransitions = map[Status][]Status{
	StatusIdle:       {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusError},
}

// CanTransition reports whether moving from one status to another is a
// legal lifecycle transition. Terminal states allow no further moves.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Metadata holds derived and attached facts about a media item.
type Metadata struct {
	OriginalSize  int64  `json:"original_size"`
	OriginalHuman string `json:"original_size_human"`
	Dimensions    string `json:"dimensions"` // "WxH" for images, "Unknown" otherwise
	MIMEType      string `json:"mime_type"`
	Scale         int    `json:"scale"`
	Annotation    string `json:"annotation,omitempty"`
}

// MediaItem represents one user-submitted file and its processing state.
type MediaItem struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Filename      string    `json:"filename"`
	SourceRef     string    `json:"source_ref"`    // object path of the original bytes
	PreviewRef    string    `json:"preview_ref"`   // renderable locator for the original
	PreviewObject string    `json:"-"`             // object backing the preview, released on removal
	ProcessedRef  string    `json:"processed_ref,omitempty"`
	Status        Status    `json:"status"`
	Progress      int       `json:"progress"` // 0-100
	Error         string    `json:"error,omitempty"`
	Metadata      Metadata  `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProcessingConfig describes the enhancement requested for a batch.
type ProcessingConfig struct {
	Scale       int  `json:"scale"` // one of 2, 4, 8, 16
	EnhanceFace bool `json:"enhance_face"`
	Denoise     bool `json:"denoise"`
}

// ValidScale reports whether the scale factor is one of the supported values.
func ValidScale(scale int) bool {
	switch scale {
	case 2, 4, 8, 16:
		return true
	}
	return false
}

// FormatFileSize renders a byte count as a human-readable string.
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	const k = 1024
	sizes := []string{"Bytes", "KB", "MB", "GB"}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	v := math.Round(float64(bytes)/math.Pow(k, float64(i))*100) / 100

	return fmt.Sprintf("%s %s", strconv.FormatFloat(v, 'f', -1, 64), sizes[i])
}
