// Package tutor holds the HTTP client for the tutoring backends: emotion
// classification, question answering, and document ingestion. The backends
// are opaque; this client only speaks their wire contract and turns non-200
// bodies into readable errors.
package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrEmptyFrame = errors.New("empty frame")

// BackendError carries the {error} text a backend returned alongside a
// non-200 status, as opposed to a transport failure.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

const (
	detectEmotionPath = "/api/detect-emotion"
	askPath           = "/api/ask"
	uploadPDFPath     = "/api/upload-pdf"
)

// Client 封装三个教学后端接口的调用。
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client rooted at baseURL. A zero timeout keeps the
// http.Client default behavior.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// DetectEmotion submits one captured frame and returns the discrete emotion
// label the backend mapped it to.
func (c *Client) DetectEmotion(ctx context.Context, frame []byte) (string, error) {
	if len(frame) == 0 {
		return "", ErrEmptyFrame
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to build image form: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return "", fmt.Errorf("failed to write image form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize image form: %w", err)
	}

	var payload struct {
		Emotion string `json:"emotion"`
	}
	if err := c.post(ctx, detectEmotionPath, writer.FormDataContentType(), body, &payload); err != nil {
		return "", err
	}
	return payload.Emotion, nil
}

// Ask submits a question together with the latest emotion label and returns
// the tutor's answer.
func (c *Client) Ask(ctx context.Context, question, emotion string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"question": question,
		"emotion":  emotion,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ask request: %w", err)
	}

	var payload struct {
		Answer string `json:"answer"`
	}
	if err := c.post(ctx, askPath, "application/json", bytes.NewReader(body), &payload); err != nil {
		return "", err
	}
	return payload.Answer, nil
}

// UploadPDF streams one document to the ingestion backend. A nil error means
// the backend accepted and processed the file.
func (c *Client) UploadPDF(ctx context.Context, filename string, file io.Reader) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build file form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to write file form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize file form: %w", err)
	}

	return c.post(ctx, uploadPDFPath, writer.FormDataContentType(), body, nil)
}

// post issues the request and decodes either the success payload or the
// backend's {error} envelope.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &BackendError{Status: resp.StatusCode, Message: decodeError(data, resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError prefers the backend's error text over a bare status code.
func decodeError(data []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("backend returned status %d", status)
}
