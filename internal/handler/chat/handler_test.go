package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/session"
	"github.com/Satwikmbadiger/EmoTutor/internal/store"
)

type stubBackend struct {
	answer string
	err    error
}

func (s *stubBackend) Ask(_ context.Context, _, _ string) (string, error) {
	return s.answer, s.err
}

func (s *stubBackend) UploadPDF(_ context.Context, _ string, _ io.Reader) error {
	return s.err
}

func setupRouter(t *testing.T, backend session.Backend) (*chi.Mux, *session.Controller) {
	t.Helper()
	authCtx := auth.NewContext()
	controller := session.NewController(authCtx, backend, store.NewMemoryStore())
	controller.Start()
	t.Cleanup(controller.Stop)
	authCtx.Establish(auth.Identity{UID: "uid-1", Email: "a@b.com"})

	r := chi.NewRouter()
	New(controller).RegisterRoutes(r)
	return r, controller
}

func TestAskReturnsResolvedTurn(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{answer: "4"})

	payload, _ := json.Marshal(map[string]string{"question": "What is 2+2?"})
	req := httptest.NewRequest(http.MethodPost, "/chat/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var turn struct {
		Question string  `json:"question"`
		Answer   *string `json:"answer"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if turn.Question != "What is 2+2?" || turn.Answer == nil || *turn.Answer != "4" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{})

	payload, _ := json.Marshal(map[string]string{"question": "  "})
	req := httptest.NewRequest(http.MethodPost, "/chat/ask", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestClearRequiresConfirm(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{})

	payload, _ := json.Marshal(map[string]bool{"confirm": false})
	req := httptest.NewRequest(http.MethodPost, "/chat/clear", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirm, got %d", resp.Code)
	}
}

func TestClearWithConfirm(t *testing.T) {
	r, controller := setupRouter(t, &stubBackend{answer: "a"})

	if _, err := controller.Ask(context.Background(), "q1"); err != nil {
		t.Fatalf("Ask err: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(controller.View().History) == 0 {
		time.Sleep(2 * time.Millisecond)
	}

	payload, _ := json.Marshal(map[string]bool{"confirm": true})
	req := httptest.NewRequest(http.MethodPost, "/chat/clear", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]int
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["removed"] != 1 {
		t.Fatalf("removed = %d, want 1", body["removed"])
	}
}

func TestDeleteUnknownRecord(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{})

	req := httptest.NewRequest(http.MethodDelete, "/chat/history/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	r, controller := setupRouter(t, &stubBackend{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	_, _ = part.Write([]byte("plain text"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/chat/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-PDF, got %d", resp.Code)
	}
	view := controller.View()
	if len(view.Session) != 0 || len(view.History) != 0 {
		t.Fatal("rejected upload must not touch session or history")
	}
}

func TestUploadAccepted(t *testing.T) {
	r, _ := setupRouter(t, &stubBackend{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/chat/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStateEndpoint(t *testing.T) {
	r, controller := setupRouter(t, &stubBackend{answer: "a"})

	if _, err := controller.Ask(context.Background(), "q1"); err != nil {
		t.Fatalf("Ask err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/state", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var view session.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(view.Session) != 1 || view.Session[0].Question != "q1" {
		t.Fatalf("unexpected view: %+v", view)
	}
}
