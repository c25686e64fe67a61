package model

import "testing"

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
		ok   bool
	}{
		{"original", FormatOriginal, true},
		{"jpeg", FormatJPEG, true},
		{"jpg", FormatJPEG, true},
		{"image/jpeg", FormatJPEG, true},
		{"png", FormatPNG, true},
		{"webp", FormatWebP, true},
		{" WEBP ", FormatWebP, true},
		{"gif", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseOutputFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseOutputFormat(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := FormatWebP.ContentType("image/png"); got != "image/webp" {
		t.Errorf("webp content type = %q", got)
	}
	if got := FormatOriginal.ContentType("image/png"); got != "image/png" {
		t.Errorf("original content type = %q, want source MIME", got)
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		filename string
		format   OutputFormat
		want     string
	}{
		{"photo.png", FormatJPEG, "enhanced_photo.jpeg"},
		{"photo.png", FormatWebP, "enhanced_photo.webp"},
		{"photo.png", FormatOriginal, "enhanced_photo.png"},
		{"archive.tar.gz", FormatPNG, "enhanced_archive.tar.png"},
		{"noext", FormatJPEG, "enhanced_noext.jpeg"},
	}

	for _, tt := range tests {
		if got := DownloadFilename(tt.filename, tt.format); got != tt.want {
			t.Errorf("DownloadFilename(%q, %s) = %q, want %q", tt.filename, tt.format, got, tt.want)
		}
	}
}
