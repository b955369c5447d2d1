package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type LocalConfig struct {
	BasePath string
	BaseURL  string
}

type localProvider struct {
	basePath string
	baseURL  string
}

func NewLocalProvider(config LocalConfig) (Provider, error) {
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localProvider{
		basePath: config.BasePath,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
	}, nil
}

func (p *localProvider) UploadBytes(ctx context.Context, data []byte, filename string, config UploadConfig) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uniqueFilename := generateUniqueFilename(filename)
	key := filepath.ToSlash(filepath.Join(config.UploadPath, uniqueFilename))
	full, err := p.resolve(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		Filename: uniqueFilename,
		Path:     key,
		Size:     int64(len(data)),
	}, nil
}

func (p *localProvider) Delete(ctx context.Context, path string) error {
	full, err := p.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *localProvider) GetURL(path string) string {
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

// resolve maps a key below basePath, rejecting keys that escape it
func (p *localProvider) resolve(key string) (string, error) {
	full := filepath.Join(p.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(p.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path: %s", key)
	}
	return full, nil
}
