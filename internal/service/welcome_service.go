package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voice-tutor-go/internal/conversation"
	"voice-tutor-go/internal/repository"
	"voice-tutor-go/pkg/llm"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/token"
)

// ErrSessionNotReady 表示会话还没有收集完信息或没有确认。
var ErrSessionNotReady = errors.New("session not ready for roadmap generation")

// StartResult 是 /welcome/start 的返回结构。
type StartResult struct {
	GuestID  string `json:"guest_id"`
	Message  string `json:"message"`
	AudioURL string `json:"audio_url"`
	Token    string `json:"token,omitempty"`
}

// TurnResult 是一次用户输入处理后的结果。
type TurnResult struct {
	Response        string                     `json:"response"`
	AudioURL        string                     `json:"audio_url"`
	ReadyToGenerate bool                       `json:"ready_to_generate"`
	LearningSummary *string                    `json:"learning_summary"`
	CollectedInfo   conversation.CollectedInfo `json:"collected_info"`
	CurrentStep     conversation.Step          `json:"current_step"`
}

// WelcomeService 驱动欢迎会话：问候、逐步收集信息、最终生成路线。
type WelcomeService interface {
	Start(ctx context.Context) (*StartResult, error)
	Process(ctx context.Context, guestID, utterance string) (*TurnResult, error)
	GenerateRoadmap(ctx context.Context, guestID string) (*CreateRoadmapResult, error)
}

type welcomeService struct {
	sessions   repository.SessionRepository
	llmClient  llm.Client
	audio      AudioService
	roadmaps   RoadmapService
	jwtManager *token.JWTManager
	now        func() time.Time
}

// NewWelcomeService 创建一个新的 WelcomeService 实例。jwtManager 为 nil 时不签发访客 token。
func NewWelcomeService(sessions repository.SessionRepository, llmClient llm.Client, audio AudioService, roadmaps RoadmapService, jwtManager *token.JWTManager) WelcomeService {
	return &welcomeService{
		sessions:   sessions,
		llmClient:  llmClient,
		audio:      audio,
		roadmaps:   roadmaps,
		jwtManager: jwtManager,
		now:        time.Now,
	}
}

func (s *welcomeService) Start(ctx context.Context) (*StartResult, error) {
	guestID := uuid.NewString()
	session := conversation.NewSession(guestID, s.now())

	greeting, err := s.llmClient.Complete(ctx, conversation.WelcomePrompt())
	message := attempt("welcome prompt", greeting, err).or(conversation.WelcomeFallbackText)

	audio, err := s.audio.Synthesize(ctx, message, "")
	if err != nil {
		return nil, err
	}
	session.AddMessage(conversation.RoleAssistant, message, audio.URL, s.now())

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save welcome session: %w", err)
	}

	result := &StartResult{GuestID: guestID, Message: message, AudioURL: audio.URL}
	if s.jwtManager != nil {
		tok, err := s.jwtManager.GenerateGuestToken(guestID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue guest token: %w", err)
		}
		result.Token = tok
	}
	log.Infof("[WelcomeService] 新欢迎会话: %s", guestID)
	return result, nil
}

// reply 生成助手回复及其音频。模型或语音合成失败时返回失败的 outcome，由调用方选择兜底。
func (s *welcomeService) reply(ctx context.Context, prompt string) outcome[AudioReply] {
	text, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		return attempt("reply generation", AudioReply{}, err)
	}
	audio, err := s.audio.Synthesize(ctx, text, "")
	if err != nil {
		return attempt("reply synthesis", AudioReply{}, err)
	}
	return attempt("reply", AudioReply{Text: text, AudioURL: audio.URL}, nil)
}

// AudioReply is an assistant utterance together with its synthesized audio.
type AudioReply struct {
	Text     string
	AudioURL string
}

func (s *welcomeService) Process(ctx context.Context, guestID, utterance string) (*TurnResult, error) {
	session, err := s.sessions.Get(ctx, guestID)
	if err != nil {
		return nil, err
	}

	turn := session.Advance(utterance)
	prompt := conversation.ReplyPrompt(session, utterance, turn)

	result := &TurnResult{}
	answer := s.reply(ctx, prompt)
	if answer.ok() {
		result.Response = answer.value.Text
		result.AudioURL = answer.value.AudioURL
		result.ReadyToGenerate = session.Info.ReadyToGenerate
		if session.WantsSummary() {
			summary, err := s.llmClient.Complete(ctx, conversation.SummaryPrompt(session.Info))
			text := attempt("learning summary", summary, err).or(conversation.TemplateSummary(session.Info))
			result.LearningSummary = &text
		}
	} else {
		apology := answer.or(AudioReply{Text: conversation.ApologyText})
		audio, err := s.audio.Synthesize(ctx, apology.Text, "")
		if err != nil {
			return nil, err
		}
		result.Response = apology.Text
		result.AudioURL = audio.URL
		result.ReadyToGenerate = false
	}

	now := s.now()
	session.AddMessage(conversation.RoleUser, utterance, "", now)
	session.AddMessage(conversation.RoleAssistant, result.Response, result.AudioURL, now)
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save welcome session: %w", err)
	}

	result.CollectedInfo = session.Info
	result.CurrentStep = session.CurrentStep
	log.Infof("[WelcomeService] guest=%s step=%s->%s advanced=%v ready=%v",
		guestID, turn.PreviousStep, session.CurrentStep, turn.Advanced, result.ReadyToGenerate)
	return result, nil
}

func (s *welcomeService) GenerateRoadmap(ctx context.Context, guestID string) (*CreateRoadmapResult, error) {
	session, err := s.sessions.Get(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if !session.Ready() {
		return nil, ErrSessionNotReady
	}
	return s.roadmaps.CreateWithAudio(ctx, conversation.RoadmapRequest(session.Info), "")
}
