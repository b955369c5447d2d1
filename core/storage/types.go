package storage

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Config selects and configures the storage provider
type Config struct {
	Provider  string
	Path      string
	BaseURL   string
	APIKey    string
	APISecret string
	AccountID string
	Endpoint  string
	Bucket    string
	Region    string
	CDN       string
}

// Provider stores opaque blobs under slash separated keys
type Provider interface {
	UploadBytes(ctx context.Context, data []byte, filename string, config UploadConfig) (*UploadResult, error)
	Delete(ctx context.Context, path string) error
	GetURL(path string) string
}

type UploadConfig struct {
	UploadPath  string
	ContentType string
}

type UploadResult struct {
	Filename string
	Path     string
	Size     int64
}

// generateUniqueFilename slugs the base name and appends a short random
// suffix, keeping the extension: "Booking Export.csv" -> "booking-export-1a2b3c4d.csv"
func generateUniqueFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return base + "-" + uuid.NewString()[:8] + ext
}

func contentTypeFor(filename, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
