// Package speech 封装了 Google Cloud Speech-to-Text v1 REST API。
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	speechapi "google.golang.org/api/speech/v1"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/pkg/gcp"
	"voice-tutor-go/pkg/log"
)

// ErrNotConfigured 表示无法创建 Speech-to-Text 客户端。
var ErrNotConfigured = errors.New("speech-to-text not configured: check GOOGLE_CLOUD_PROJECT and credentials")

// Transcriber 把录音转写为文字。
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Variant 是一种识别配置。
type Variant struct {
	Encoding        string
	SampleRateHertz int64
}

// DefaultVariants 浏览器录音通常是 WebM/Opus，采样率不确定，所以依次尝试。
var DefaultVariants = []Variant{
	{Encoding: "WEBM_OPUS", SampleRateHertz: 48000},
	{Encoding: "WEBM_OPUS", SampleRateHertz: 16000},
	{Encoding: "ENCODING_UNSPECIFIED"},
}

type googleTranscriber struct {
	svc          *speechapi.Service
	languageCode string
	variants     []Variant
}

// NewTranscriber 根据 Google 配置创建转写器；无法解析凭据时每次调用都返回 ErrNotConfigured。
func NewTranscriber(ctx context.Context, cfg config.GoogleConfig) Transcriber {
	opts, err := gcp.ClientOptions(ctx, cfg, cfg.SpeechEndpoint)
	if err != nil {
		log.Warnf("[Speech] 凭证不可用，语音识别未启用: %v", err)
		return unconfigured{}
	}
	svc, err := speechapi.NewService(ctx, opts...)
	if err != nil {
		log.Error("[Speech] 创建 Speech-to-Text 客户端失败", err)
		return unconfigured{}
	}
	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	return &googleTranscriber{svc: svc, languageCode: lang, variants: DefaultVariants}
}

// Transcribe 依次尝试每种编码配置，返回第一个非空结果。全部失败时返回空字符串。
func (t *googleTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	log.Infof("[Speech] 开始转写, %d 字节", len(audio))
	content := base64.StdEncoding.EncodeToString(audio)

	for i, v := range t.variants {
		req := &speechapi.RecognizeRequest{
			Audio: &speechapi.RecognitionAudio{Content: content},
			Config: &speechapi.RecognitionConfig{
				Encoding:                   v.Encoding,
				SampleRateHertz:            v.SampleRateHertz,
				LanguageCode:               t.languageCode,
				EnableAutomaticPunctuation: true,
			},
		}
		resp, err := t.svc.Speech.Recognize(req).Context(ctx).Do()
		if err != nil {
			log.Warnf("[Speech] 配置 %d (%s, %d Hz) 识别失败: %v", i+1, v.Encoding, v.SampleRateHertz, err)
			if ctx.Err() != nil {
				return "", fmt.Errorf("transcription cancelled: %w", ctx.Err())
			}
			continue
		}
		if transcript := firstTranscript(resp); transcript != "" {
			log.Infof("[Speech] 配置 %d 识别成功: %q", i+1, transcript)
			return transcript, nil
		}
		log.Infof("[Speech] 配置 %d 没有识别结果", i+1)
	}

	log.Warnf("[Speech] 所有配置均未识别出内容")
	return "", nil
}

func firstTranscript(resp *speechapi.RecognizeResponse) string {
	if resp == nil || len(resp.Results) == 0 {
		return ""
	}
	alts := resp.Results[0].Alternatives
	if len(alts) == 0 {
		return ""
	}
	return alts[0].Transcript
}

type unconfigured struct{}

func (unconfigured) Transcribe(context.Context, []byte) (string, error) {
	return "", ErrNotConfigured
}
