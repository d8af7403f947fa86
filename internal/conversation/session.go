// Package conversation 实现欢迎会话的状态机：在生成路线之前依次收集主题、天数和经验水平。
// 包内不依赖任何外部服务，由调用方输入用户语句并负责保存 Session。
package conversation

import "time"

// SessionName 随每个欢迎会话一起保存。
const SessionName = "welcome_session"

// Step 表示会话当前正在收集的字段。
type Step string

const (
	StepTopic      Step = "topic"
	StepDays       Step = "days"
	StepExperience Step = "experience"
	StepConfirm    Step = "confirm"
	StepDone       Step = "done"
)

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CollectedInfo 严格按主题、天数、经验的顺序填写。
type CollectedInfo struct {
	Topic             *string `json:"topic"`
	Days              *int    `json:"days"`
	ExperienceLevel   *string `json:"experience_level"`
	ReadyToGenerate   bool    `json:"ready_to_generate"`
	InfoComplete      bool    `json:"info_complete"`
	ConfirmationAsked bool    `json:"confirmation_asked"`
}

// ChatMessage 是只追加的会话历史中的一条。
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	AudioURL  *string   `json:"audio_url"`
}

// Session 是一个访客的偏好收集会话。
type Session struct {
	ID          string        `json:"guest_id"`
	Name        string        `json:"session_name"`
	History     []ChatMessage `json:"chat_history"`
	Info        CollectedInfo `json:"collected_info"`
	CurrentStep Step          `json:"current_step"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Turn 描述一次输入对会话的影响。
type Turn struct {
	PreviousStep Step
	Advanced     bool
	// RejectedDays 在天数步骤收到超出范围的整数时设置。
	RejectedDays *int
}

// NewSession 创建一个从 topic 步骤开始的会话。
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		Name:        SessionName,
		History:     []ChatMessage{},
		CurrentStep: StepTopic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddMessage 追加一条历史消息，audioURL 可以为空。
func (s *Session) AddMessage(role, content, audioURL string, now time.Time) {
	msg := ChatMessage{Role: role, Content: content, Timestamp: now}
	if audioURL != "" {
		msg.AudioURL = &audioURL
	}
	s.History = append(s.History, msg)
	s.UpdatedAt = now
}

// Advance 把一次输入应用到状态机。无法匹配的输入不改变任何字段和步骤，也不会返回错误。
func (s *Session) Advance(utterance string) Turn {
	turn := Turn{PreviousStep: s.CurrentStep}
	info := &s.Info

	switch {
	case info.Topic == nil:
		if topic, ok := ExtractTopic(utterance); ok {
			info.Topic = &topic
			s.CurrentStep = StepDays
			turn.Advanced = true
		}

	case info.Days == nil:
		if days, ok := ExtractDays(utterance); ok {
			info.Days = &days
			s.CurrentStep = StepExperience
			turn.Advanced = true
		} else if n, found := FirstInteger(utterance); found {
			turn.RejectedDays = &n
		}

	case info.ExperienceLevel == nil:
		level := ClassifyExperience(utterance)
		info.ExperienceLevel = &level
		info.InfoComplete = true
		s.CurrentStep = StepConfirm
		turn.Advanced = true

	case info.InfoComplete && !info.ConfirmationAsked:
		info.ConfirmationAsked = true
		turn.Advanced = true

	case info.ConfirmationAsked && !info.ReadyToGenerate:
		info.ReadyToGenerate = true
		s.CurrentStep = StepDone
		turn.Advanced = true
	}
	return turn
}

// Ready 判断该会话是否可以生成路线。
func (s *Session) Ready() bool {
	return s.Info.InfoComplete && s.Info.ConfirmationAsked && s.Info.ReadyToGenerate
}

// WantsSummary 在所有字段收集完成后为 true。
func (s *Session) WantsSummary() bool {
	return s.Info.InfoComplete || s.Info.ReadyToGenerate
}
