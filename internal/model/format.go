package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputFormat is a target encoding for the download conversion step.
type OutputFormat string

const (
	FormatOriginal OutputFormat = "original"
	FormatJPEG     OutputFormat = "jpeg"
	FormatPNG      OutputFormat = "png"
	FormatWebP     OutputFormat = "webp"
)

// ParseOutputFormat converts a string into a known OutputFormat.
func ParseOutputFormat(value string) (OutputFormat, bool) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case FormatOriginal:
		return FormatOriginal, true
	case FormatJPEG, "jpg", "image/jpeg":
		return FormatJPEG, true
	case FormatPNG, "image/png":
		return FormatPNG, true
	case FormatWebP, "image/webp":
		return FormatWebP, true
	}
	return "", false
}

// ContentType returns the MIME type for the format. For the "original"
// sentinel the source item's own MIME type applies.
func (f OutputFormat) ContentType(sourceMIME string) string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return sourceMIME
	}
}

// Extension returns the file extension for the format, without the dot.
func (f OutputFormat) Extension(sourceFilename string) string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return strings.TrimPrefix(filepath.Ext(sourceFilename), ".")
	}
}

// DownloadFilename derives the suggested save name for a converted item:
// enhanced_<original stem>.<format extension>.
func DownloadFilename(sourceFilename string, format OutputFormat) string {
	stem := strings.TrimSuffix(filepath.Base(sourceFilename), filepath.Ext(sourceFilename))
	return fmt.Sprintf("enhanced_%s.%s", stem, format.Extension(sourceFilename))
}
