package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"voice-tutor-go/internal/repository"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/storage"
	"voice-tutor-go/pkg/tts"
)

// ErrAudioNotFound 表示音频文件不存在或文件名非法。
var ErrAudioNotFound = errors.New("audio file not found")

// AudioRef 是一段已合成音频的对象名和访问 URL。
type AudioRef struct {
	Name string `json:"name"`
	URL  string `json:"audio_url"`
}

// AudioService 负责语音合成、音频文件存取和音频会话清理。
type AudioService interface {
	// Synthesize 合成语音并保存；sessionID 非空时登记到该音频会话。
	Synthesize(ctx context.Context, text, sessionID string) (AudioRef, error)
	CreateSession(ctx context.Context) (string, error)
	// CleanupSession 删除会话登记的所有音频；未知会话返回 false。
	CleanupSession(ctx context.Context, sessionID string) (bool, error)
	Open(ctx context.Context, name string) ([]byte, error)
}

type audioService struct {
	synth    tts.Synthesizer
	store    storage.AudioStore
	sessions repository.AudioSessionRepository
}

// NewAudioService 创建一个新的 AudioService 实例。
func NewAudioService(synth tts.Synthesizer, store storage.AudioStore, sessions repository.AudioSessionRepository) AudioService {
	return &audioService{synth: synth, store: store, sessions: sessions}
}

// AudioURL 返回对象名对应的 /audio 路径。
func AudioURL(name string) string {
	return "/audio/" + name
}

// audioName 由文本内容决定，同一段文本总是得到同一个文件名。
func audioName(text string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(text))
	return "lesson_" + hex.EncodeToString(h.Sum(nil)) + ".wav"
}

func (s *audioService) Synthesize(ctx context.Context, text, sessionID string) (AudioRef, error) {
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return AudioRef{}, fmt.Errorf("text-to-speech failed: %w", err)
	}
	name := audioName(text)
	if err := s.store.Put(ctx, name, audio); err != nil {
		return AudioRef{}, fmt.Errorf("failed to store audio: %w", err)
	}
	if sessionID != "" {
		added, err := s.sessions.Add(ctx, sessionID, name)
		if err != nil {
			log.Errorf("[AudioService] 登记音频到会话失败: session=%s, error: %v", sessionID, err)
		} else if !added {
			log.Warnf("[AudioService] 音频会话不存在，未登记: session=%s", sessionID)
		}
	}
	return AudioRef{Name: name, URL: AudioURL(name)}, nil
}

func (s *audioService) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.sessions.Create(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *audioService) CleanupSession(ctx context.Context, sessionID string) (bool, error) {
	refs, ok, err := s.sessions.Remove(ctx, sessionID)
	if err != nil || !ok {
		return false, err
	}
	for _, name := range refs {
		if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			log.Errorf("[AudioService] 删除音频失败: %s, error: %v", name, err)
		}
	}
	log.Infof("[AudioService] 会话 %s 已清理 %d 个音频", sessionID, len(refs))
	return true, nil
}

func (s *audioService) Open(ctx context.Context, name string) ([]byte, error) {
	if !validAudioName(name) {
		return nil, ErrAudioNotFound
	}
	data, err := s.store.Get(ctx, name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrAudioNotFound
	}
	return data, err
}

func validAudioName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || path.Base(name) != name {
		return false
	}
	return !strings.HasPrefix(name, ".")
}
