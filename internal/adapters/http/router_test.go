package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/defence-assistant/internal/config"
	"github.com/kirillkom/defence-assistant/internal/core/domain"
	"github.com/kirillkom/defence-assistant/internal/core/usecase"
)

type analyzerFake struct {
	err         error
	gotSession  string
	gotFilename string
	gotContent  []byte
}

func (f *analyzerFake) Upload(_ context.Context, sessionID, filename string, content []byte) (*domain.UploadResult, error) {
	f.gotSession = sessionID
	f.gotFilename = filename
	f.gotContent = content
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UploadResult{
		Analysis:          domain.AnalysisResult{DocumentSummary: "summary"},
		FormattedResponse: "report",
		DocumentID:        "doc-1",
		Filename:          filename,
		Outcome:           domain.OutcomeAnalyzed,
	}, nil
}

type historyFake struct {
	err        error
	gotSession string
	gotID      string
	export     []byte
}

func (f *historyFake) ListAnalyses(_ context.Context, sessionID string) ([]domain.DocumentAnalysis, error) {
	f.gotSession = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return []domain.DocumentAnalysis{{ID: "doc-1", Filename: "claim.txt"}}, nil
}

func (f *historyFake) GetAnalysis(_ context.Context, sessionID, id string) (*domain.DocumentAnalysis, error) {
	f.gotSession = sessionID
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentAnalysis{ID: id, Filename: "claim.txt"}, nil
}

func (f *historyFake) ExportAnalyses(_ context.Context, sessionID string) ([]byte, error) {
	f.gotSession = sessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.export, nil
}

type chatFake struct {
	err        error
	gotSession string
	gotMessage string
}

func (f *chatFake) Ask(_ context.Context, sessionID, message string) (*domain.ChatReply, error) {
	f.gotSession = sessionID
	f.gotMessage = message
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatReply{
		Message:       "answer",
		Citations:     []domain.Citation{{Type: "case", Name: "Hadley v Baxendale"}},
		LegalCategory: "contract_dispute",
		TrackType:     domain.TrackSmallClaims,
	}, nil
}

func (f *chatFake) History(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	f.gotSession = sessionID
	return []domain.ChatMessage{}, f.err
}

type referralsFake struct {
	gotSession string
}

func (f *referralsFake) HandleAnalysisCompleted(context.Context, domain.AnalysisCompleted) error {
	return nil
}

func (f *referralsFake) ListReferrals(_ context.Context, sessionID string) ([]domain.SolicitorReferral, error) {
	f.gotSession = sessionID
	return []domain.SolicitorReferral{{ID: "ref-1", Status: domain.ReferralPending}}, nil
}

type routerDeps struct {
	analyzer  *analyzerFake
	history   *historyFake
	chat      *chatFake
	referrals *referralsFake
}

func newTestRouter(cfg config.Config) (http.Handler, *routerDeps) {
	deps := &routerDeps{
		analyzer:  &analyzerFake{},
		history:   &historyFake{},
		chat:      &chatFake{},
		referrals: &referralsFake{},
	}
	return NewRouter(cfg, deps.analyzer, deps.history, deps.chat, deps.referrals).Handler(), deps
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestUploadDocumentReturnsAnalysisAndSetsSessionCookie(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	body, contentType := multipartUpload(t, "document", "claim.txt", []byte("particulars of claim"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload-document", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["success"] != true || payload["type"] != "success" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload["document_id"] != "doc-1" || payload["formatted_response"] != "report" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if deps.analyzer.gotFilename != "claim.txt" || string(deps.analyzer.gotContent) != "particulars of claim" {
		t.Fatalf("unexpected upload forwarded: %q %q", deps.analyzer.gotFilename, deps.analyzer.gotContent)
	}

	cookies := res.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].Value != deps.analyzer.gotSession {
		t.Fatalf("cookie does not match forwarded session: %+v vs %q", cookies[0], deps.analyzer.gotSession)
	}
}

func TestUploadDocumentReusesExistingSession(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	const session = "3f0c1f5e-8f7e-4d8a-9d59-6f1f3c2e9a10"

	body, contentType := multipartUpload(t, "document", "claim.txt", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload-document", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if deps.analyzer.gotSession != session {
		t.Fatalf("expected session %q, got %q", session, deps.analyzer.gotSession)
	}
	if len(res.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie for an existing session")
	}
}

func TestUploadDocumentWithoutFileReportsError(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	body, contentType := multipartUpload(t, "other", "claim.txt", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload-document", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["success"] != false || payload["error"] != uploadNoFileMessage {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUploadDocumentRejectsOversizedBody(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	body, contentType := multipartUpload(t, "document", "big.txt", bytes.Repeat([]byte("a"), domain.MaxUploadBytes+multipartOverhead))
	req := httptest.NewRequest(http.MethodPost, "/api/upload-document", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if deps.analyzer.gotFilename != "" {
		t.Fatalf("analyzer must not be called for an oversized upload")
	}
}

func TestUploadDocumentMapsUseCaseErrorsToMessages(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
		errType string
	}{
		{
			name:    "unsupported",
			err:     domain.WrapError(domain.ErrUnsupportedFormat, "validate upload", errors.New("unsupported file type \".exe\"")),
			message: uploadUnsupportedMessage,
			errType: "unsupported_format",
		},
		{
			name:    "empty",
			err:     domain.WrapError(domain.ErrInvalidInput, "validate upload", usecase.ErrEmptyFile),
			message: uploadEmptyMessage,
			errType: "invalid_input",
		},
		{
			name:    "insufficient",
			err:     domain.WrapError(domain.ErrInsufficientText, "extract text", errors.New("too short")),
			message: uploadInsufficientMessage,
			errType: "insufficient_text",
		},
		{
			name:    "unexpected",
			err:     errors.New("disk full"),
			message: uploadUnexpectedMessage,
			errType: "internal",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, deps := newTestRouter(config.Config{})
			deps.analyzer.err = tc.err

			body, contentType := multipartUpload(t, "document", "claim.txt", []byte("text"))
			req := httptest.NewRequest(http.MethodPost, "/api/upload-document", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", res.Code)
			}
			payload := decodeBody(t, res)
			if payload["error"] != tc.message {
				t.Fatalf("expected message %q, got %+v", tc.message, payload)
			}
			if payload["error_type"] != tc.errType {
				t.Fatalf("expected error_type %q, got %v", tc.errType, payload["error_type"])
			}
		})
	}
}

func TestPostChatReturnsReply(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Can I claim £500?"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["success"] != true || payload["message"] != "answer" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload["legal_category"] != "contract_dispute" || payload["track_type"] != "small_claims" {
		t.Fatalf("unexpected classification: %+v", payload)
	}
	if deps.chat.gotMessage != "Can I claim £500?" {
		t.Fatalf("unexpected message forwarded: %q", deps.chat.gotMessage)
	}
}

func TestPostChatEmptyQueryReportsFriendlyError(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.chat.err = domain.WrapError(domain.ErrInvalidInput, "chat", usecase.ErrEmptyQuery)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	payload := decodeBody(t, res)
	if payload["success"] != false || payload["error"] != chatEmptyQueryMessage {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPostChatInternalFailureApologises(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.chat.err = errors.New("db down")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"help"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["error"] != chatFailureMessage || payload["type"] != "error" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPostChatRejectsGet(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.history.err = domain.WrapError(domain.ErrNotFound, "get analysis", errors.New("id=missing"))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if deps.history.gotID != "missing" {
		t.Fatalf("expected id to be forwarded, got %q", deps.history.gotID)
	}
}

func TestGetDocumentByIDHidesInternalErrors(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.history.err = errors.New("connection reset by peer")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/documents/doc-1", nil))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["error"] != "internal error" {
		t.Fatalf("expected generic error, got %+v", payload)
	}
}

func TestDocumentHistoryExportServesWorkbook(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.history.export = []byte("PK\x03\x04workbook")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/document-history/export", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "document-history.xlsx") {
		t.Fatalf("missing attachment filename: %q", res.Header().Get("Content-Disposition"))
	}
	if res.Body.String() != "PK\x03\x04workbook" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestReadEndpointsDoNotIssueSessions(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	for _, path := range []string{"/api/document-history", "/api/chat-history", "/api/referrals"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, res.Code)
		}
		if len(res.Result().Cookies()) != 0 {
			t.Fatalf("%s: read endpoint must not set a session cookie", path)
		}
	}
	if deps.history.gotSession != "" || deps.referrals.gotSession != "" {
		t.Fatalf("expected empty session for cookieless reads")
	}
}

func TestSessionCookieWithInvalidValueIsIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/referrals", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-uuid"})
	if got := sessionFromRequest(req); got != "" {
		t.Fatalf("expected invalid cookie to be ignored, got %q", got)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}
