package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/gcsuploader"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

// upload-eml stores a local RFC 822 message in the raw archive under the
// same object name a sync would use, so it can be replayed later.
func main() {
	var (
		configPath string
		bucketName string
		prefix     string
		filePath   string
		messageID  string
	)

	flag.StringVar(&configPath, "config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file (or set CASHFLOW_CONFIG env)")
	flag.StringVar(&bucketName, "bucket", "", "GCS bucket name (default gcs.bucket)")
	flag.StringVar(&prefix, "prefix", "", "object prefix (default gcs.prefix)")
	flag.StringVar(&filePath, "file", "", "Path to local .eml file (required)")
	flag.StringVar(&messageID, "id", "", "message id (optional; defaults to the file name)")
	flag.Parse()

	cfg, log, err := app.Load(configPath, "cashflow-upload-eml")
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if bucketName == "" {
		bucketName = cfg.GCS.Bucket
	}
	if prefix == "" {
		prefix = cfg.GCS.Prefix
	}
	if bucketName == "" || filePath == "" {
		log.Fatal().Msg("Usage: upload-eml -file /path/to/message.eml [-bucket BUCKET_NAME] [-id MESSAGE_ID]")
	}
	if messageID == "" {
		messageID = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to read file")
	}

	msg, err := mailbox.ParseRFC822(messageID, raw, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to decode message")
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", bucketName).
		Str("id", messageID).
		Str("file", filePath).
		Msg("Uploading message to GCS")

	archiver := gcsuploader.NewArchiver(gcsuploader.NewGCSStorageService(), bucketName, prefix)
	uri, err := archiver.Archive(ctx, msg)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", filePath, uri)
}
