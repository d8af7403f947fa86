package handler

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

	"github.com/gin-gonic/gin"

	"voice-tutor-go/internal/middleware"
	"voice-tutor-go/internal/repository"
	"voice-tutor-go/internal/service"
	"voice-tutor-go/pkg/database"
	"voice-tutor-go/pkg/llm"
	"voice-tutor-go/pkg/storage"
	"voice-tutor-go/pkg/token"
)

const roadmapJSON = `{"topic": "Spanish", "summary": "Basics in a week.",
 "days": [{"day": 1, "title": "Greetings", "tasks": ["Hola"], "lesson": "Say hola to everyone."}]}`

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Create a detailed learning roadmap"):
		return roadmapJSON, nil
	case strings.Contains(prompt, "Generate a brief learning summary"):
		return "Spanish basics for a beginner.", nil
	default:
		return "Sounds good! Press Enter to record your response.", nil
	}
}

func (s stubLLM) CompleteMessages(ctx context.Context, msgs []llm.Message, _ *llm.GenerationParams) (string, error) {
	return s.Complete(ctx, msgs[len(msgs)-1].Content)
}

type stubSynth struct{}

func (stubSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte("RIFF" + text), nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return s.text, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T, jwt *token.JWTManager) *gin.Engine {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	audioSvc := service.NewAudioService(stubSynth{}, store, repository.NewMemoryAudioSessionRepository())
	roadmapSvc := service.NewRoadmapService(stubLLM{}, audioSvc, repository.NewRoadmapRepository(db), nil, nil)
	welcomeSvc := service.NewWelcomeService(repository.NewMemorySessionRepository(), stubLLM{}, audioSvc, roadmapSvc, jwt)

	audioHandler := NewAudioHandler(audioSvc)
	roadmapHandler := NewRoadmapHandler(roadmapSvc)
	welcomeHandler := NewWelcomeHandler(welcomeSvc, roadmapSvc)

	r := gin.New()
	r.POST("/capture", NewCaptureHandler(stubTranscriber{text: "I want to learn Spanish"}, 1<<20).Capture)
	r.POST("/create-session", audioHandler.CreateSession)
	r.POST("/text-to-speech", audioHandler.TextToSpeech)
	r.POST("/cleanup-session", audioHandler.CleanupSession)
	r.GET("/audio/:filename", audioHandler.ServeAudio)
	r.POST("/create-roadmap", roadmapHandler.CreateRoadmap)
	r.GET("/get-lesson/:roadmap_id/:day", roadmapHandler.GetLesson)
	r.GET("/roadmaps", roadmapHandler.ListRoadmaps)
	r.GET("/roadmaps/search", roadmapHandler.Search)
	r.GET("/roadmap/:id", roadmapHandler.GetRoadmap)
	r.GET("/roadmap-summary-audio/:id", roadmapHandler.SummaryAudio)
	r.POST("/welcome/start", welcomeHandler.Start)
	guarded := r.Group("/welcome", middleware.GuestAuth(jwt))
	guarded.POST("/chat", welcomeHandler.Chat)
	guarded.POST("/generate-roadmap", welcomeHandler.GenerateRoadmap)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestCapture(t *testing.T) {
	r := newTestEngine(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("audio", "clip.webm")
	part.Write([]byte("opus-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/capture", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"transcript":"I want to learn Spanish"`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/capture", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: got %d", w.Code)
	}
}

func TestCaptureNotConfigured(t *testing.T) {
	r := gin.New()
	r.POST("/capture", NewCaptureHandler(stubTranscriber{err: errors.New("speech-to-text not configured")}, 0).Capture)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("audio", "clip.webm")
	part.Write([]byte("x"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/capture", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"detail":"speech-to-text not configured"`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestAudioSessionLifecycle(t *testing.T) {
	r := newTestEngine(t, nil)

	_, created := doJSON(t, r, http.MethodPost, "/create-session", nil)
	sessionID, _ := created["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("create-session: %v", created)
	}

	w, tts := doJSON(t, r, http.MethodPost, "/text-to-speech", map[string]string{"text": "Hola", "session_id": sessionID})
	audioURL, _ := tts["audio_url"].(string)
	if w.Code != http.StatusOK || !strings.HasPrefix(audioURL, "/audio/lesson_") {
		t.Fatalf("text-to-speech: %d %v", w.Code, tts)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, audioURL, nil))
	if w.Code != http.StatusOK || w.Body.String() != "RIFFHola" || w.Header().Get("Content-Type") != "audio/wav" {
		t.Fatalf("audio: %d %q", w.Code, w.Body.String())
	}

	_, cleaned := doJSON(t, r, http.MethodPost, "/cleanup-session", map[string]string{"session_id": sessionID})
	if cleaned["success"] != true || cleaned["message"] != "Session cleaned up" {
		t.Fatalf("cleanup: %v", cleaned)
	}
	_, again := doJSON(t, r, http.MethodPost, "/cleanup-session", map[string]string{"session_id": sessionID})
	if again["success"] != false || again["message"] != "Session not found" {
		t.Fatalf("second cleanup: %v", again)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, audioURL, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("audio after cleanup: %d", w.Code)
	}
}

func TestTextToSpeechRejectsEmptyBody(t *testing.T) {
	r := newTestEngine(t, nil)
	w, body := doJSON(t, r, http.MethodPost, "/text-to-speech", map[string]string{})
	if w.Code != http.StatusBadRequest || body["detail"] == nil {
		t.Fatalf("got %d %v", w.Code, body)
	}
}

func TestRoadmapEndpoints(t *testing.T) {
	r := newTestEngine(t, nil)

	w, created := doJSON(t, r, http.MethodPost, "/create-roadmap", map[string]string{"prompt": "Spanish in 7 days"})
	if w.Code != http.StatusOK {
		t.Fatalf("create-roadmap: %d %s", w.Code, w.Body.String())
	}
	id, _ := created["roadmap_id"].(string)
	if id == "" || created["day1_audio_url"] == "" || created["summary_audio_url"] == nil {
		t.Fatalf("create-roadmap body: %v", created)
	}

	w, lesson := doJSON(t, r, http.MethodGet, "/get-lesson/"+id+"/1", nil)
	if w.Code != http.StatusOK || lesson["title"] != "Greetings" {
		t.Fatalf("get-lesson: %d %v", w.Code, lesson)
	}
	if w, _ := doJSON(t, r, http.MethodGet, "/get-lesson/"+id+"/9", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing day: %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodGet, "/get-lesson/"+id+"/one", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-integer day: %d", w.Code)
	}

	_, list := doJSON(t, r, http.MethodGet, "/roadmaps", nil)
	if items, _ := list["roadmaps"].([]any); len(items) != 1 {
		t.Fatalf("roadmaps: %v", list)
	}

	w, view := doJSON(t, r, http.MethodGet, "/roadmap/"+id, nil)
	if w.Code != http.StatusOK || view["id"] != id {
		t.Fatalf("roadmap: %d %v", w.Code, view)
	}
	if w, body := doJSON(t, r, http.MethodGet, "/roadmap/nope", nil); w.Code != http.StatusNotFound || body["detail"] == nil {
		t.Fatalf("missing roadmap: %d %v", w.Code, body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roadmap-summary-audio/"+id, nil))
	if w.Code != http.StatusOK || w.Body.String() != "RIFFBasics in a week." {
		t.Fatalf("summary audio: %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roadmap-summary-audio/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing summary audio: %d", w.Code)
	}

	if w, _ := doJSON(t, r, http.MethodGet, "/roadmaps/search?q=spanish", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("search without index: %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodGet, "/roadmaps/search", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("search without q: %d", w.Code)
	}
}

func TestWelcomeFlow(t *testing.T) {
	r := newTestEngine(t, nil)

	_, start := doJSON(t, r, http.MethodPost, "/welcome/start", nil)
	guestID, _ := start["guest_id"].(string)
	if guestID == "" || start["audio_url"] == "" || start["message"] == "" {
		t.Fatalf("start: %v", start)
	}
	if _, ok := start["token"]; ok {
		t.Fatal("no token expected without a jwt secret")
	}

	var last map[string]any
	for _, u := range []string{"Spanish", "7 days", "beginner", "that's everything", "yes"} {
		w, res := doJSON(t, r, http.MethodPost, "/welcome/chat", map[string]string{"guest_id": guestID, "user_input": u})
		if w.Code != http.StatusOK {
			t.Fatalf("%q: %d %s", u, w.Code, w.Body.String())
		}
		last = res
	}
	if last["ready_to_generate"] != true || last["current_step"] != "done" || last["learning_summary"] == nil {
		t.Fatalf("final turn: %v", last)
	}

	w, roadmap := doJSON(t, r, http.MethodPost, "/welcome/generate-roadmap", map[string]string{"guest_id": guestID})
	if w.Code != http.StatusOK || roadmap["roadmap_id"] == "" {
		t.Fatalf("generate-roadmap: %d %v", w.Code, roadmap)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/welcome/generate-roadmap", map[string]string{"learning_summary": "Spanish basics"})
	if w.Code != http.StatusOK {
		t.Fatalf("generate-roadmap from summary: %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/generate-roadmap", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty generate-roadmap: %d", w.Code)
	}
}

func TestWelcomeErrors(t *testing.T) {
	r := newTestEngine(t, nil)

	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/chat", map[string]string{"guest_id": "ghost", "user_input": "hi"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown guest: %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/chat", map[string]string{"user_input": "hi"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing guest_id: %d", w.Code)
	}

	_, start := doJSON(t, r, http.MethodPost, "/welcome/start", nil)
	w, body := doJSON(t, r, http.MethodPost, "/welcome/generate-roadmap", map[string]string{"guest_id": start["guest_id"].(string)})
	if w.Code != http.StatusBadRequest || body["detail"] != service.ErrSessionNotReady.Error() {
		t.Fatalf("not ready: %d %v", w.Code, body)
	}
}

func TestWelcomeGuestToken(t *testing.T) {
	r := newTestEngine(t, token.NewJWTManager("secret", 1))

	_, start := doJSON(t, r, http.MethodPost, "/welcome/start", nil)
	guestID, _ := start["guest_id"].(string)
	tok, _ := start["token"].(string)
	if tok == "" {
		t.Fatalf("expected token: %v", start)
	}

	chat := map[string]string{"guest_id": guestID, "user_input": "Spanish"}
	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/chat", chat); w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: %d", w.Code)
	}
	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/chat", chat, "Authorization", "Bearer "+tok); w.Code != http.StatusOK {
		t.Fatalf("with token: %d", w.Code)
	}

	_, other := doJSON(t, r, http.MethodPost, "/welcome/start", nil)
	otherChat := map[string]string{"guest_id": other["guest_id"].(string), "user_input": "Spanish"}
	if w, _ := doJSON(t, r, http.MethodPost, "/welcome/chat", otherChat, "Authorization", "Bearer "+tok); w.Code != http.StatusForbidden {
		t.Fatalf("foreign guest: %d", w.Code)
	}
}

func TestRecoveryWritesDetail(t *testing.T) {
	r := gin.New()
	r.Use(gin.CustomRecovery(Recovery))
	r.GET("/boom", func(c *gin.Context) { panic("nil roadmap") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["detail"] != "internal server error: nil roadmap" {
		t.Fatalf("body = %s", w.Body.String())
	}
}
