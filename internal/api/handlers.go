package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/relay-gateway/internal/dispatch"
	"github.com/ignite/relay-gateway/internal/mailer"
	"github.com/ignite/relay-gateway/internal/report"
	"github.com/ignite/relay-gateway/internal/storage"
)

// Handlers holds dependencies for all HTTP handlers
type Handlers struct {
	engine  *dispatch.Engine
	store   *storage.Storage
	devMode bool
}

// NewHandlers creates a new handlers instance. store may be nil when no
// delivery log is configured.
func NewHandlers(engine *dispatch.Engine, store *storage.Storage, devMode bool) *Handlers {
	return &Handlers{engine: engine, store: store, devMode: devMode}
}

// recipientList accepts either a single address string or an array of
// addresses in JSON.
type recipientList []string

func (r *recipientList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

type attachmentPayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"` // base64
}

type sendPayload struct {
	From        string              `json:"from"`
	To          recipientList       `json:"to"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        string              `json:"html"`
	Attachments []attachmentPayload `json:"attachments"`
}

type bulkPayload struct {
	From         string               `json:"from"`
	Recipients   []dispatch.Recipient `json:"recipients"`
	Subject      string               `json:"subject"`
	Template     string               `json:"template"`
	TemplateData map[string]string    `json:"templateData"`
}

type reportPayload struct {
	ReportType  string              `json:"reportType"`
	Cluster     string              `json:"cluster"`
	Recipients  recipientList       `json:"recipients"`
	Data        reportDataPayload   `json:"data"`
	Subject     string              `json:"subject"`
	From        string              `json:"from"`
	Attachments []attachmentPayload `json:"attachments"`
}

type reportDataPayload struct {
	Metrics map[string]string   `json:"metrics"`
	Details []map[string]string `json:"details"`
}

func decodeAttachments(payloads []attachmentPayload) ([]mailer.Attachment, []string) {
	var atts []mailer.Attachment
	var errs []string
	for i, p := range payloads {
		if p.Filename == "" {
			errs = append(errs, "attachments["+strconv.Itoa(i)+"].filename is required")
			continue
		}
		content, err := base64.StdEncoding.DecodeString(p.Content)
		if err != nil {
			errs = append(errs, "attachments["+strconv.Itoa(i)+"].content is not valid base64")
			continue
		}
		atts = append(atts, mailer.Attachment{
			Filename:    p.Filename,
			ContentType: p.ContentType,
			Content:     content,
		})
	}
	return atts, errs
}

// Send handles POST /api/send
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	var payload sendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondValidation(w, []string{"request body is not valid JSON"})
		return
	}

	errs := validateSend(&payload)
	atts, attErrs := decodeAttachments(payload.Attachments)
	errs = append(errs, attErrs...)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	receipt, err := h.engine.Send(r.Context(), &dispatch.SendRequest{
		From:        payload.From,
		To:          payload.To,
		Subject:     payload.Subject,
		Text:        payload.Text,
		HTML:        payload.HTML,
		Attachments: atts,
	})
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   deliveryErrorMessage(err, h.devMode),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": receipt.MessageID,
		"response":  receipt.Response,
	})
}

// SendBulk handles POST /api/send-bulk
func (h *Handlers) SendBulk(w http.ResponseWriter, r *http.Request) {
	var payload bulkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondValidation(w, []string{"request body is not valid JSON"})
		return
	}

	if errs := validateBulk(&payload); len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	result := h.engine.SendBulk(r.Context(), &dispatch.BulkJob{
		From:       payload.From,
		Subject:    payload.Subject,
		Template:   payload.Template,
		SharedData: payload.TemplateData,
		Recipients: payload.Recipients,
	})

	respondJSON(w, http.StatusOK, result)
}

// SendReport handles POST /api/send-report
func (h *Handlers) SendReport(w http.ResponseWriter, r *http.Request) {
	var payload reportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondValidation(w, []string{"request body is not valid JSON"})
		return
	}

	errs := validateReport(&payload)
	atts, attErrs := decodeAttachments(payload.Attachments)
	errs = append(errs, attErrs...)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	receipt, err := h.engine.SendReport(r.Context(), &dispatch.ReportRequest{
		ReportType: payload.ReportType,
		Cluster:    payload.Cluster,
		Recipients: payload.Recipients,
		Data: report.Data{
			Metrics: payload.Data.Metrics,
			Details: payload.Data.Details,
		},
		Subject:     payload.Subject,
		From:        payload.From,
		Attachments: atts,
	})
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   deliveryErrorMessage(err, h.devMode),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"messageId":  receipt.MessageID,
		"reportType": receipt.ReportType,
		"cluster":    receipt.Cluster,
		"timestamp":  receipt.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// QueueStatus handles GET /api/queue/status
func (h *Handlers) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status := h.engine.QueueStatus(r.Context())
	if status.Status != "operational" {
		respondJSON(w, http.StatusInternalServerError, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// HealthCheck handles GET /health. Liveness only: it never touches the
// pool or the relay.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RecentDeliveries handles GET /api/deliveries/recent
func (h *Handlers) RecentDeliveries(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusNotFound, "delivery log not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondValidation(w, []string{"limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.store.RecentDeliveries(r.Context(), limit)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "failed to load deliveries", h.devMode)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(records),
		"deliveries": records,
	})
}

// DeliveryStats handles GET /api/deliveries/stats
func (h *Handlers) DeliveryStats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusNotFound, "delivery log not configured")
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondValidation(w, []string{"hours must be a positive integer"})
			return
		}
		hours = n
	}

	stats, err := h.store.Stats(r.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "failed to load delivery stats", h.devMode)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidation(w http.ResponseWriter, errs []string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
}
