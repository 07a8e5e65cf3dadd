// Package gcsuploader archives raw messages in Google Cloud Storage.
package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// ContentTypeRFC822 is the content type of archived messages.
const ContentTypeRFC822 = "message/rfc822"

// UploadBytes writes data to bucketName/objectName.
// It assumes Application Default Credentials are configured.
func UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	return nil
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

// ObjectNameForMessage returns prefix/YYYY/MM/DD/<id>.eml, dated in UTC.
func ObjectNameForMessage(prefix string, msg domain.RawMessage) string {
	day := msg.Date.UTC().Format("2006/01/02")
	id := strings.ReplaceAll(msg.ID, "/", "_")
	return path.Join(strings.Trim(prefix, "/"), day, id+".eml")
}
