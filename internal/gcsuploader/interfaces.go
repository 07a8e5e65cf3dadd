package gcsuploader

import (
	"context"
	"errors"
	"fmt"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// UploadBytes delegates to the package-level UploadBytes.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	return UploadBytes(ctx, bucketName, objectName, data, contentType)
}

// FetchFromGCS delegates to the package-level FetchFromGCS.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

// ErrNoRawSource is returned when a message carries no raw source to archive.
var ErrNoRawSource = errors.New("message has no raw source")

// Archiver stores raw messages under bucket/prefix.
type Archiver struct {
	storage StorageService
	bucket  string
	prefix  string
}

// NewArchiver creates an Archiver.
func NewArchiver(storage StorageService, bucket, prefix string) *Archiver {
	return &Archiver{storage: storage, bucket: bucket, prefix: prefix}
}

// Archive uploads msg.Raw and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, msg domain.RawMessage) (string, error) {
	if msg.Raw == "" {
		return "", fmt.Errorf("archive %s: %w", msg.ID, ErrNoRawSource)
	}

	object := ObjectNameForMessage(a.prefix, msg)
	if err := a.storage.UploadBytes(ctx, a.bucket, object, []byte(msg.Raw), ContentTypeRFC822); err != nil {
		return "", fmt.Errorf("archive %s: %w", msg.ID, err)
	}
	return "gs://" + a.bucket + "/" + object, nil
}

// Fetch downloads an archived message.
func (a *Archiver) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	return a.storage.FetchFromGCS(ctx, gcsURI)
}
