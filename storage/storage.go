package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage holds case corpus files and archived voice recordings
type Storage interface {
	// Upload stores an object and returns its storage path
	Upload(ctx context.Context, objectID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves an object by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes an object by storage path
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ConfigFromEnv reads storage configuration from environment variables
func ConfigFromEnv() StorageConfig {
	cfg := StorageConfig{
		Type:         StorageType(os.Getenv("STORAGE_TYPE")),
		LocalPath:    os.Getenv("STORAGE_LOCAL_PATH"),
		S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
		S3Region:     os.Getenv("AWS_REGION"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if cfg.Type == "" {
		cfg.Type = StorageTypeLocal // Default to local for development
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = "./storage/files"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	return cfg
}

// generateStoragePath generates a unique storage path for an object
func generateStoragePath(objectID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	baseName = strings.ReplaceAll(baseName, " ", "_")
	baseName = strings.ReplaceAll(baseName, "/", "_")
	baseName = strings.ReplaceAll(baseName, "\\", "_")

	return fmt.Sprintf("%s/%s_%s%s", objectID.String()[:2], objectID.String(), baseName, ext)
}

// ContentType determines content type from filename
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	case ".webm":
		return "audio/webm"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// ErrNotFound is returned when a storage path does not exist
var ErrNotFound = errors.New("object not found")
