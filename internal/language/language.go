// Package language wraps the external detect/translate collaborator behind a
// narrow contract. The gateway never implements translation itself.
package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WorkingLanguage is the language every pipeline stage operates in.
const WorkingLanguage = "en"

// Detection is the collaborator's combined detect-and-translate result.
type Detection struct {
	DetectedLanguage string `json:"detected_language"`
	TranslatedText   string `json:"translated_text"`
}

// Service is the collaborator contract.
type Service interface {
	// DetectAndTranslate identifies the source language and returns the text
	// in the working language.
	DetectAndTranslate(ctx context.Context, text string) (Detection, error)

	// Translate converts text between two named languages.
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// HTTPService calls the language collaborator over JSON HTTP.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(baseURL string, timeout time.Duration) *HTTPService {
	return &HTTPService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPService) DetectAndTranslate(ctx context.Context, text string) (Detection, error) {
	var out Detection
	err := s.post(ctx, "/v1/detect-translate", map[string]string{"text": text}, &out)
	if err != nil {
		return Detection{}, fmt.Errorf("DetectAndTranslate: %w", err)
	}
	return out, nil
}

func (s *HTTPService) Translate(ctx context.Context, text, from, to string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := s.post(ctx, "/v1/translate", map[string]string{"text": text, "from": from, "to": to}, &out)
	if err != nil {
		return "", fmt.Errorf("Translate: %w", err)
	}
	return out.Text, nil
}

func (s *HTTPService) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Passthrough is a Service for deployments without a language collaborator:
// everything is assumed to already be in the working language.
type Passthrough struct{}

func (Passthrough) DetectAndTranslate(_ context.Context, text string) (Detection, error) {
	return Detection{DetectedLanguage: WorkingLanguage, TranslatedText: text}, nil
}

func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
