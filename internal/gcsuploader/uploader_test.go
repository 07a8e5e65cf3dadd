package gcsuploader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://archive/raw/2025/03/14/42.eml", "archive", "raw/2025/03/14/42.eml", false},
		{"gs://archive/42.eml", "archive", "42.eml", false},
		{"gs://archive", "", "", true},
		{"gs://archive/", "", "", true},
		{"https://storage.googleapis.com/archive/42.eml", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestObjectNameForMessage(t *testing.T) {
	addis := time.FixedZone("EAT", 3*60*60)
	msg := domain.RawMessage{ID: "42", Date: time.Date(2025, 3, 15, 1, 0, 0, 0, addis)}

	assert.Equal(t, "raw-messages/2025/03/14/42.eml", ObjectNameForMessage("raw-messages", msg))
	assert.Equal(t, "raw/2025/03/14/42.eml", ObjectNameForMessage("/raw/", msg))
	assert.Equal(t, "2025/03/14/42.eml", ObjectNameForMessage("", msg))

	msg.ID = "a/b"
	assert.Equal(t, "p/2025/03/14/a_b.eml", ObjectNameForMessage("p", msg))
}

type mockStorage struct {
	uploads   map[string][]byte
	uploadErr error
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if m.uploads == nil {
		m.uploads = make(map[string][]byte)
	}
	m.uploads["gs://"+bucketName+"/"+objectName] = data
	return nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	data, ok := m.uploads[gcsURI]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func TestArchiver(t *testing.T) {
	store := &mockStorage{}
	archiver := NewArchiver(store, "archive", "raw")
	msg := domain.RawMessage{ID: "42", Date: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), Raw: "From: CBE\r\n\r\nbody"}

	uri, err := archiver.Archive(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "gs://archive/raw/2025/03/14/42.eml", uri)

	data, err := archiver.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, msg.Raw, string(data))

	_, err = archiver.Archive(context.Background(), domain.RawMessage{ID: "7"})
	assert.ErrorIs(t, err, ErrNoRawSource)

	store.uploadErr = errors.New("permission denied")
	_, err = archiver.Archive(context.Background(), msg)
	assert.ErrorContains(t, err, "permission denied")
}
