package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs/inmemory"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox/mailboxtest"
	"github.com/cashflow-ai/cashflow-backend/internal/metrics"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

const cbeBody = "Dear Customer your Account 1*****6789 has been debited with ETB 500.00. " +
	"Your Current Balance is ETB 1,250.00. Thank you for Banking with CBE!"

type testServer struct {
	handler http.Handler
	box     *mailboxtest.Mailbox
	store   *inmemory.Store
	queue   *inmemory.Queue
}

func newTestServer(t *testing.T, refuse bool) *testServer {
	t.Helper()

	box := mailboxtest.New(domain.RawMessage{
		ID:     "42",
		Sender: "CBE",
		Body:   cbeBody,
		Date:   time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	})
	engine := parser.New(nil)
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.QueueConfig{}, store)
	t.Cleanup(func() { _ = queue.Close() })

	handler := NewRouter(Dependencies{
		Syncer: &ingest.Syncer{
			Dialer:   box.Dialer(refuse),
			Engine:   engine,
			MarkRead: true,
		},
		Engine:    engine,
		Store:     store,
		Publisher: queue,
		Metrics:   metrics.New(),
		Defaults:  mailbox.Credentials{Server: "imap.example.com", Port: 993},
		Log:       zerolog.Nop(),
	})

	return &testServer{handler: handler, box: box, store: store, queue: queue}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(method, path, r))

	var decoded map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

const validCreds = `{"email_address":"alerts@example.com","app_password":"secret"}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "service": "CashFlow AI Backend"}, body)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(t, http.MethodPost, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSync(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/sync", validCreds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])

	txs := body["transactions"].([]interface{})
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]interface{})
	assert.Equal(t, -500.0, tx["amount"])
	assert.Equal(t, "debit", tx["type"])
	assert.Equal(t, "42", tx["email_id"])
	assert.True(t, s.box.IsRead("42"))

	rec, body = s.do(t, http.MethodPost, "/api/sync", validCreds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["transactions"])
}

func TestSync_Errors(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/sync", `{"email_address":"alerts@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing email credentials", body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/sync", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestSync_UnreachableMailboxReturnsEmptyBatch(t *testing.T) {
	s := newTestServer(t, true)

	rec, body := s.do(t, http.MethodPost, "/api/sync", validCreds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["transactions"])
	assert.False(t, s.box.IsRead("42"))
}

func TestTestConnection(t *testing.T) {
	rec, body := newTestServer(t, false).do(t, http.MethodPost, "/api/test-connection", validCreds)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"success": true, "message": "Connection successful"}, body)

	rec, body = newTestServer(t, true).do(t, http.MethodPost, "/api/test-connection", validCreds)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"success": false, "message": "Connection failed"}, body)

	rec, body = newTestServer(t, false).do(t, http.MethodPost, "/api/test-connection", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing credentials", body["error"])
}

func TestParse(t *testing.T) {
	s := newTestServer(t, false)

	req := map[string]string{"sender": "CBE", "body": cbeBody, "date": "2025-03-14T09:26:53+03:00", "email_id": "7"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodPost, "/api/parse", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	tx := body["transaction"].(map[string]interface{})
	assert.Equal(t, -500.0, tx["amount"])
	assert.Equal(t, "2025-03-14", tx["date"])
	assert.Equal(t, "09:26:53", tx["time"])
	assert.Equal(t, "7", tx["email_id"])
	assert.Equal(t, "CBE", body["template"])

	rec, body = s.do(t, http.MethodPost, "/api/parse", `{"sender":"news@shop.example","body":"Weekly deals on shoes"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["transaction"])
	assert.Equal(t, "no_template", body["skip_reason"])

	rec, _ = s.do(t, http.MethodPost, "/api/parse", `{"sender":"CBE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/parse", `{"sender":"CBE","body":"x","date":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobs(t *testing.T) {
	s := newTestServer(t, false)
	require.NoError(t, s.queue.Start(context.Background(), func(ctx context.Context, job *jobs.SyncMailboxJob) error {
		job.Count = 1
		return nil
	}))

	rec, body := s.do(t, http.MethodPost, "/api/sync/jobs", validCreds)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := body["job_id"].(string)
	assert.NotEmpty(t, jobID)
	assert.Equal(t, "pending", body["status"])

	require.Eventually(t, func() bool {
		job, err := s.store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	rec, body = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "alerts@example.com", body["mailbox"])
	assert.NotContains(t, rec.Body.String(), "secret")

	rec, body = s.do(t, http.MethodGet, "/api/jobs?status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = s.do(t, http.MethodGet, "/api/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", body["error"])

	rec, _ = s.do(t, http.MethodPost, "/api/sync/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	s.do(t, http.MethodGet, "/api/health", "")

	rec, _ := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/health"`)
}
