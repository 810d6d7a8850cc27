package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Satwikmbadiger/EmoTutor/pkg/utils"
)

func TestDetectEmotion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/detect-emotion" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "No image uploaded")
			return
		}
		file.Close()
		utils.RespondJSON(w, http.StatusOK, map[string]string{"emotion": "happy"})
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	label, err := client.DetectEmotion(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("DetectEmotion err: %v", err)
	}
	if label != "happy" {
		t.Fatalf("label = %q, want happy", label)
	}
}

func TestDetectEmotionBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "No face detected")
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	_, err := client.DetectEmotion(context.Background(), []byte("jpeg-bytes"))

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.Message != "No face detected" || backendErr.Status != http.StatusNotFound {
		t.Fatalf("unexpected backend error: %+v", backendErr)
	}
}

func TestDetectEmotionEmptyFrame(t *testing.T) {
	client := New("http://unused", time.Second)
	if _, err := client.DetectEmotion(context.Background(), nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload struct {
			Question string `json:"question"`
			Emotion  string `json:"emotion"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if payload.Question != "What is 2+2?" || payload.Emotion != "neutral" {
			t.Errorf("unexpected payload: %+v", payload)
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"answer": "4"})
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	answer, err := client.Ask(context.Background(), "What is 2+2?", "neutral")
	if err != nil {
		t.Fatalf("Ask err: %v", err)
	}
	if answer != "4" {
		t.Fatalf("answer = %q, want 4", answer)
	}
}

func TestAskTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := New(srv.URL, time.Second)
	_, err := client.Ask(context.Background(), "q", "neutral")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		t.Fatalf("transport failure misreported as backend error: %v", err)
	}
}

func TestUploadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload-pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()
		if header.Filename != "notes.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "PDF processed"})
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	if err := client.UploadPDF(context.Background(), "notes.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("UploadPDF err: %v", err)
	}
}

func TestUploadPDFBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	err := client.UploadPDF(context.Background(), "notes.pdf", strings.NewReader("x"))
	if err == nil || err.Error() != "No file uploaded" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
