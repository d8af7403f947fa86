package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"voice-tutor-go/internal/repository"
	"voice-tutor-go/pkg/llm"
	"voice-tutor-go/pkg/storage"
	"voice-tutor-go/pkg/tasks"
)

// fakeLLM answers by the first matching prompt substring; unmatched prompts get def.
type fakeLLM struct {
	mu      sync.Mutex
	rules   []llmRule
	def     string
	err     error
	prompts []string
}

type llmRule struct {
	contains string
	reply    string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	for _, r := range f.rules {
		if strings.Contains(prompt, r.contains) {
			return r.reply, r.err
		}
	}
	return f.def, f.err
}

func (f *fakeLLM) CompleteMessages(ctx context.Context, msgs []llm.Message, _ *llm.GenerationParams) (string, error) {
	return f.Complete(ctx, msgs[len(msgs)-1].Content)
}

// fakeSynth returns the text itself as "audio" unless failFor matches.
type fakeSynth struct {
	failFor string
	calls   []string
}

var errSynth = errors.New("tts unavailable")

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls = append(f.calls, text)
	if f.failFor != "" && strings.Contains(text, f.failFor) {
		return nil, errSynth
	}
	return []byte("WAV:" + text), nil
}

type recordingPublisher struct {
	events []tasks.RoadmapEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev tasks.RoadmapEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func newTestAudio(t *testing.T, synth *fakeSynth) (AudioService, repository.AudioSessionRepository, storage.AudioStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessions := repository.NewMemoryAudioSessionRepository()
	return NewAudioService(synth, store, sessions), sessions, store
}
