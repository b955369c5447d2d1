package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// AttachmentConfig constrains the files stored for one model field
type AttachmentConfig struct {
	Field             string
	Path              string
	AllowedExtensions []string
	MaxFileSize       int64
	ContentType       string
}

// Attachment describes a stored file
type Attachment struct {
	ModelType   string `json:"model_type"`
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ActiveStorage stores generated files (CSV exports) through the configured
// provider
type ActiveStorage struct {
	mu          sync.RWMutex
	provider    Provider
	defaultPath string
	configs     map[string]map[string]AttachmentConfig
}

func NewActiveStorage(config Config) (*ActiveStorage, error) {
	var provider Provider
	var err error

	storagePath := config.Path
	if !filepath.IsAbs(storagePath) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		storagePath = filepath.Join(cwd, storagePath)
	}

	switch strings.ToLower(config.Provider) {
	case "", "local":
		provider, err = NewLocalProvider(LocalConfig{
			BasePath: storagePath,
			BaseURL:  config.BaseURL,
		})
	case "s3":
		provider, err = NewS3Provider(S3Config{
			AccessKeyID:     config.APIKey,
			AccessKeySecret: config.APISecret,
			Endpoint:        config.Endpoint,
			Bucket:          config.Bucket,
			BaseURL:         config.BaseURL,
			Region:          config.Region,
		})
	case "r2":
		provider, err = NewR2Provider(R2Config{
			AccessKeyID:     config.APIKey,
			AccessKeySecret: config.APISecret,
			AccountID:       config.AccountID,
			Bucket:          config.Bucket,
			BaseURL:         config.BaseURL,
			CDN:             config.CDN,
		})
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage provider: %w", err)
	}

	return NewWithProvider(provider, storagePath), nil
}

// NewWithProvider builds an ActiveStorage around an existing provider
func NewWithProvider(provider Provider, defaultPath string) *ActiveStorage {
	return &ActiveStorage{
		provider:    provider,
		defaultPath: defaultPath,
		configs:     make(map[string]map[string]AttachmentConfig),
	}
}

func (as *ActiveStorage) RegisterAttachment(modelName string, config AttachmentConfig) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.configs[modelName] == nil {
		as.configs[modelName] = make(map[string]AttachmentConfig)
	}
	as.configs[modelName][config.Field] = config
}

// Attach validates and uploads data as the given model field
func (as *ActiveStorage) Attach(ctx context.Context, modelName, field, filename string, data []byte) (*Attachment, error) {
	config, err := as.getConfig(modelName, field)
	if err != nil {
		return nil, err
	}
	if err := validateFile(filename, int64(len(data)), config); err != nil {
		return nil, err
	}

	result, err := as.provider.UploadBytes(ctx, data, filename, UploadConfig{
		UploadPath:  path.Join(config.Path, modelName, field),
		ContentType: config.ContentType,
	})
	if err != nil {
		return nil, err
	}

	return &Attachment{
		ModelType:   modelName,
		Field:       field,
		Filename:    result.Filename,
		Path:        result.Path,
		URL:         as.provider.GetURL(result.Path),
		Size:        result.Size,
		ContentType: contentTypeFor(filename, config.ContentType),
	}, nil
}

func (as *ActiveStorage) Delete(ctx context.Context, path string) error {
	return as.provider.Delete(ctx, path)
}

// URL returns the public URL of a stored path
func (as *ActiveStorage) URL(path string) string {
	return as.provider.GetURL(path)
}

// GetProvider returns the storage provider (for internal use)
func (as *ActiveStorage) GetProvider() Provider {
	return as.provider
}

// DefaultPath is the local directory used by the local provider
func (as *ActiveStorage) DefaultPath() string {
	return as.defaultPath
}

func (as *ActiveStorage) getConfig(modelName, field string) (AttachmentConfig, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	modelConfigs, ok := as.configs[modelName]
	if !ok {
		return AttachmentConfig{}, fmt.Errorf("no attachment config found for model %s", modelName)
	}
	config, ok := modelConfigs[field]
	if !ok {
		return AttachmentConfig{}, fmt.Errorf("no attachment config found for field %s in model %s", field, modelName)
	}
	return config, nil
}

func validateFile(filename string, size int64, config AttachmentConfig) error {
	if config.MaxFileSize > 0 && size > config.MaxFileSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if len(config.AllowedExtensions) > 0 && !slices.Contains(config.AllowedExtensions, ext) {
		return fmt.Errorf("file extension %s is not allowed", ext)
	}
	return nil
}
