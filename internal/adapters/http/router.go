package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/defence-assistant/internal/config"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/ports"
	"github.com/kirillkom/defence-assistant/internal/observability/metrics"
)

const (
	uploadField = "document"
	// multipartOverhead allows for boundaries and headers around the file part.
	multipartOverhead = 1 << 20
	maxChatBodyBytes  = 64 << 10

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Router struct {
	cfg       config.Config
	analyzer  ports.DocumentAnalyzer
	history   ports.DocumentHistory
	chat      ports.LegalChat
	referrals ports.ReferralService
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	analyzer ports.DocumentAnalyzer,
	history ports.DocumentHistory,
	chat ports.LegalChat,
	referrals ports.ReferralService,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		analyzer:  analyzer,
		history:   history,
		chat:      chat,
		referrals: referrals,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/chat", rt.postChat)
	mux.HandleFunc("/api/chat-history", rt.chatHistory)
	mux.HandleFunc("/api/upload-document", rt.uploadDocument)
	mux.HandleFunc("/api/document-history", rt.documentHistory)
	mux.HandleFunc("/api/document-history/export", rt.exportDocumentHistory)
	mux.HandleFunc("/api/documents/", rt.getDocumentByID)
	mux.HandleFunc("/api/referrals", rt.listReferrals)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	// Sockets are long-lived and stay outside the in-flight gate.
	root := http.NewServeMux()
	root.Handle("/ws", rt.legalQuerySocket())
	root.Handle("/", backpressureMiddleware(mux, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond))

	var handler http.Handler = root
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, failurePayload(uploadFileTooLargeMessage, "too_large"))
			return
		}
		writeJSON(w, http.StatusOK, failurePayload(uploadNoFileMessage, "invalid_input"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, domain.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusOK, failurePayload(uploadUnexpectedMessage, "internal"))
		return
	}
	if len(content) > domain.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, failurePayload(uploadFileTooLargeMessage, "too_large"))
		return
	}

	sessionID := rt.ensureSession(w, r)
	result, err := rt.analyzer.Upload(r.Context(), sessionID, header.Filename, content)
	if err != nil {
		rt.logFailure(r, "document_upload_failed", err)
		writeJSON(w, http.StatusOK, failurePayload(uploadErrorMessage(err), domain.ErrorType(err)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"analysis":           result.Analysis,
		"formatted_response": result.FormattedResponse,
		"document_id":        result.DocumentID,
		"filename":           result.Filename,
		"outcome":            result.Outcome,
		"type":               "success",
	})
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, failurePayload(chatEmptyQueryMessage, "invalid_input"))
		return
	}

	sessionID := rt.ensureSession(w, r)
	reply, err := rt.chat.Ask(r.Context(), sessionID, req.Message)
	if err != nil {
		rt.logFailure(r, "chat_failed", err)
		writeJSON(w, http.StatusOK, failurePayload(chatErrorMessage(err), domain.ErrorType(err)))
		return
	}
	writeJSON(w, http.StatusOK, chatSuccessPayload(reply))
}

func (rt *Router) chatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	items, err := rt.chat.History(r.Context(), sessionFromRequest(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) documentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	items, err := rt.history.ListAnalyses(r.Context(), sessionFromRequest(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) exportDocumentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	raw, err := rt.history.ExportAnalyses(r.Context(), sessionFromRequest(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="document-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	item, err := rt.history.GetAnalysis(r.Context(), sessionFromRequest(r), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) listReferrals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	items, err := rt.referrals.ListReferrals(r.Context(), sessionFromRequest(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logFailure(r, "request_failed", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (rt *Router) logFailure(r *http.Request, event string, err error) {
	rt.logger.Error(event,
		"request_id", requestIDFromContext(r.Context()),
		"error_type", domain.ErrorType(err),
		"error", err,
	)
}

func chatSuccessPayload(reply *domain.ChatReply) map[string]any {
	return map[string]any{
		"success":        true,
		"message":        reply.Message,
		"citations":      reply.Citations,
		"legal_category": reply.LegalCategory,
		"track_type":     reply.TrackType,
		"referral_info":  reply.ReferralInfo,
		"type":           "success",
	}
}

func failurePayload(message, errorType string) map[string]any {
	return map[string]any{
		"success":    false,
		"error":      message,
		"type":       "error",
		"error_type": errorType,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
