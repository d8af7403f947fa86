// Package tts 封装了 Google Cloud Text-to-Speech v1 REST API。
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	ttsapi "google.golang.org/api/texttospeech/v1"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/pkg/gcp"
	"voice-tutor-go/pkg/log"
)

// ErrNotConfigured 表示无法创建 Text-to-Speech 客户端。
var ErrNotConfigured = errors.New("text-to-speech not configured: check GOOGLE_CLOUD_PROJECT and credentials")

// ErrEmptyText 表示待合成的文本为空。
var ErrEmptyText = errors.New("text to synthesize is empty")

// Synthesizer 把文本合成为 LINEAR16 WAV 音频。
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type googleSynthesizer struct {
	svc          *ttsapi.Service
	languageCode string
	gender       string
}

// NewSynthesizer 创建合成器；没有凭据时每次调用都返回 ErrNotConfigured。
func NewSynthesizer(ctx context.Context, cfg config.GoogleConfig) Synthesizer {
	opts, err := gcp.ClientOptions(ctx, cfg, cfg.TTSEndpoint)
	if err != nil {
		log.Warnf("[TTS] 凭证不可用，语音合成未启用: %v", err)
		return unconfigured{}
	}
	svc, err := ttsapi.NewService(ctx, opts...)
	if err != nil {
		log.Error("[TTS] 创建 Text-to-Speech 客户端失败", err)
		return unconfigured{}
	}
	s := &googleSynthesizer{svc: svc, languageCode: cfg.LanguageCode, gender: cfg.VoiceGender}
	if s.languageCode == "" {
		s.languageCode = "en-US"
	}
	if s.gender == "" {
		s.gender = "NEUTRAL"
	}
	return s
}

func (s *googleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	req := &ttsapi.SynthesizeSpeechRequest{
		Input: &ttsapi.SynthesisInput{Text: text},
		Voice: &ttsapi.VoiceSelectionParams{
			LanguageCode: s.languageCode,
			SsmlGender:   s.gender,
		},
		AudioConfig: &ttsapi.AudioConfig{AudioEncoding: "LINEAR16"},
	}
	resp, err := s.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}

type unconfigured struct{}

func (unconfigured) Synthesize(context.Context, string) ([]byte, error) {
	return nil, ErrNotConfigured
}
