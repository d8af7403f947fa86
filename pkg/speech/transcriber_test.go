package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"voice-tutor-go/internal/config"
)

// fakeSpeech answers each recognize call with the next canned response.
type fakeSpeech struct {
	mu        sync.Mutex
	responses []func(w http.ResponseWriter)
	seen      []map[string]interface{}
}

func (f *fakeSpeech) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.seen = append(f.seen, body)
	i := len(f.seen) - 1
	w.Header().Set("Content-Type", "application/json")
	if i < len(f.responses) {
		f.responses[i](w)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func empty(w http.ResponseWriter) { _, _ = w.Write([]byte(`{}`)) }

func failed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad encoding"}}`))
}

func result(text string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		b, _ := json.Marshal(map[string]interface{}{
			"results": []interface{}{map[string]interface{}{
				"alternatives": []interface{}{map[string]interface{}{"transcript": text, "confidence": 0.9}},
			}},
		})
		_, _ = w.Write(b)
	}
}

func newTestTranscriber(t *testing.T, f *fakeSpeech) Transcriber {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewTranscriber(context.Background(), config.GoogleConfig{SpeechEndpoint: srv.URL + "/"})
}

func TestTranscribeFirstVariantWins(t *testing.T) {
	f := &fakeSpeech{responses: []func(http.ResponseWriter){result("hello world")}}
	tr := newTestTranscriber(t, f)

	got, err := tr.Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if len(f.seen) != 1 {
		t.Fatalf("expected 1 call, got %d", len(f.seen))
	}
	cfg := f.seen[0]["config"].(map[string]interface{})
	if cfg["encoding"] != "WEBM_OPUS" || cfg["sampleRateHertz"] != float64(48000) || cfg["languageCode"] != "en-US" {
		t.Fatalf("unexpected first config: %v", cfg)
	}
}

func TestTranscribeFallsBackInOrder(t *testing.T) {
	f := &fakeSpeech{responses: []func(http.ResponseWriter){failed, empty, result("third time")}}
	tr := newTestTranscriber(t, f)

	got, err := tr.Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "third time" {
		t.Fatalf("got %q", got)
	}
	if len(f.seen) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(f.seen))
	}
	second := f.seen[1]["config"].(map[string]interface{})
	if second["sampleRateHertz"] != float64(16000) {
		t.Fatalf("second variant should be 16 kHz: %v", second)
	}
	third := f.seen[2]["config"].(map[string]interface{})
	if third["encoding"] != "ENCODING_UNSPECIFIED" {
		t.Fatalf("third variant should auto-detect: %v", third)
	}
}

func TestTranscribeAllVariantsFailReturnsEmpty(t *testing.T) {
	f := &fakeSpeech{responses: []func(http.ResponseWriter){failed, failed, empty}}
	tr := newTestTranscriber(t, f)

	got, err := tr.Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty", got)
	}
	if len(f.seen) != len(DefaultVariants) {
		t.Fatalf("expected %d calls, got %d", len(DefaultVariants), len(f.seen))
	}
}

func TestUnconfiguredTranscriber(t *testing.T) {
	var tr Transcriber = unconfigured{}
	if _, err := tr.Transcribe(context.Background(), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
