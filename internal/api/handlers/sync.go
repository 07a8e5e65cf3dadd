package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cashflow-ai/cashflow-backend/internal/api/middleware"
	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

// credentialsRequest is the body of the sync and connection-test endpoints.
type credentialsRequest struct {
	IMAPServer   string `json:"imap_server"`
	EmailAddress string `json:"email_address"`
	AppPassword  string `json:"app_password"`
}

// credentials overlays the request on base, which supplies the server,
// port and folder defaults.
func (req credentialsRequest) credentials(base mailbox.Credentials) mailbox.Credentials {
	creds := base
	if s := strings.TrimSpace(req.IMAPServer); s != "" {
		creds.Server = s
	}
	creds.EmailAddress = strings.TrimSpace(req.EmailAddress)
	creds.AppPassword = req.AppPassword
	return creds
}

func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

// transactionMaps renders transactions in their external map form.
func transactionMaps(txs []*domain.ParsedTransaction) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ToMap())
	}
	return out
}

// SyncHandler handles the mailbox endpoints.
type SyncHandler struct {
	syncer   *ingest.Syncer
	defaults mailbox.Credentials
	log      zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncer *ingest.Syncer, defaults mailbox.Credentials, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		syncer:   syncer,
		defaults: defaults,
		log:      log,
	}
}

// Sync handles POST /api/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds := req.credentials(h.defaults)
	if !creds.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Missing email credentials")
		return
	}

	result, err := h.syncer.Sync(requestContext(r, h.log), creds)
	if err != nil {
		h.log.Error().Err(err).Str("mailbox", creds.EmailAddress).Msg("Sync error")
		middleware.WriteError(w, errorStatus(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"count":        result.Count,
		"transactions": transactionMaps(result.Transactions),
	})
}

// TestConnection handles POST /api/test-connection
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds := req.credentials(h.defaults)
	if !creds.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	if err := ingest.TestConnection(requestContext(r, h.log), h.syncer.Dialer, creds); err != nil {
		h.log.Warn().Err(err).Str("mailbox", creds.EmailAddress).Msg("Connection test failed")
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Connection failed",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Connection successful",
	})
}

// ParseHandler runs the engine on a single message supplied in the request.
type ParseHandler struct {
	engine *parser.Engine
	now    func() time.Time
}

// NewParseHandler creates a new parse handler.
func NewParseHandler(engine *parser.Engine) *ParseHandler {
	return &ParseHandler{engine: engine, now: time.Now}
}

type parseRequest struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date"` // RFC 3339, defaults to now (UTC)
	EmailID string `json:"email_id"`
}

// Parse handles POST /api/parse
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Body) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message body is required")
		return
	}

	date := h.now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected RFC 3339")
			return
		}
		date = parsed
	}

	res := h.engine.Evaluate(domain.RawMessage{
		ID:      req.EmailID,
		Sender:  req.Sender,
		Subject: req.Subject,
		Body:    req.Body,
		Date:    date,
	})

	var tx map[string]interface{}
	if res.Transaction != nil {
		tx = res.Transaction.ToMap()
	}

	resp := map[string]interface{}{
		"success":     true,
		"transaction": tx,
		"template":    res.Template,
	}
	if res.Skip != parser.SkipNone {
		resp["skip_reason"] = string(res.Skip)
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// requestContext returns the request context, carrying log unless the
// middleware already put a request-scoped logger there.
func requestContext(r *http.Request, log zerolog.Logger) context.Context {
	ctx := r.Context()
	if _, ok := ctx.Value(logger.LoggerKey).(zerolog.Logger); ok {
		return ctx
	}
	return logger.WithContext(ctx, log)
}

// errorStatus maps sync errors to HTTP statuses.
func errorStatus(err error) int {
	if errors.Is(err, mailbox.ErrMissingCredentials) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
