package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// ApologyText 在模型或语音合成失败时播报。
const ApologyText = "I'm having trouble understanding. Could you please repeat that?"

// WelcomeFallbackText 是模型不可用时的欢迎语。
const WelcomeFallbackText = "Welcome to Vision Path! What would you like to learn today? " +
	"Press Enter to start recording your response after I finish speaking."

// recordHint 附在每条助手回复末尾，拼接历史时会去掉。
const recordHint = "Press Enter to record your response."

// HistoryWindow 回复 prompt 中引用的最近消息条数。
const HistoryWindow = 6

const notCollected = "Not collected"

// WelcomePrompt 生成新会话的开场问候。
func WelcomePrompt() string {
	return `You are a friendly learning assistant for Vision Path designed for blind users. A new user just arrived.
Greet them warmly and ask what they would like to learn today.
Mention that they should press Enter to start recording their response after you finish speaking.
Be enthusiastic and encouraging. Keep it under 40 words.
Don't mention days or experience level yet - just focus on what they want to learn.`
}

// ReplyPrompt 构建助手下一条回复的 prompt。
// 必须在本轮用户输入加入历史之前调用。
func ReplyPrompt(s *Session, utterance string, turn Turn) string {
	var b strings.Builder
	b.WriteString(`You are a learning assistant for blind users. You need to collect:
1. Topic they want to learn
2. Number of days (7-30)
3. Experience level
4. Final confirmation

Current progress:
`)
	fmt.Fprintf(&b, "- Step: %s\n", s.CurrentStep)
	fmt.Fprintf(&b, "- Topic: %s\n", orNotCollected(s.Info.Topic))
	fmt.Fprintf(&b, "- Days: %s\n", daysOrNotCollected(s.Info.Days))
	fmt.Fprintf(&b, "- Experience: %s\n", orNotCollected(s.Info.ExperienceLevel))
	fmt.Fprintf(&b, "- Info Complete: %t\n", s.Info.InfoComplete)
	fmt.Fprintf(&b, "- Confirmation Asked: %t\n", s.Info.ConfirmationAsked)
	fmt.Fprintf(&b, "- Ready To Generate: %t\n", s.Info.ReadyToGenerate)

	b.WriteString("\nConversation history:\n")
	b.WriteString(historyContext(s.History))

	fmt.Fprintf(&b, "\nUser just said: %q\n", utterance)

	if turn.RejectedDays != nil {
		fmt.Fprintf(&b, "\nNote: the user asked for %d days, but plans must be between %d and %d days. "+
			"Gently explain the range and ask again how many days they want.\n", *turn.RejectedDays, MinDays, MaxDays)
	} else if !turn.Advanced && turn.PreviousStep != StepDone {
		b.WriteString("\nNote: their answer did not give what this step needs. Ask a short clarifying question.\n")
	}

	b.WriteString(`
Instructions:
- This is for a blind user - always end with "Press Enter to record your response."
- Don't repeat questions you already asked
- Move to next step based on what you've collected
- If you have topic, days, and experience, ask if they want to add anything else
- Keep responses under 50 words
- Be conversational and encouraging

Respond naturally based on the conversation flow:
`)
	return b.String()
}

// SummaryPrompt 根据已收集的信息请求一段简短的学习总结。
func SummaryPrompt(info CollectedInfo) string {
	return fmt.Sprintf(`Generate a brief learning summary based on this information:
- Topic: %s
- Duration: %s days
- Experience Level: %s

Create a 2-3 sentence summary of what the user wants to learn.
Make it sound professional and clear. Keep it under 50 words.`,
		orNotCollected(info.Topic), daysOrNotCollected(info.Days), orNotCollected(info.ExperienceLevel))
}

// TemplateSummary 在总结生成失败时使用。
func TemplateSummary(info CollectedInfo) string {
	return fmt.Sprintf("Learn %s in %s days with %s level experience.",
		orNotCollected(info.Topic), daysOrNotCollected(info.Days), orNotCollected(info.ExperienceLevel))
}

// RoadmapRequest 把已就绪会话的信息转换为路线生成请求。
func RoadmapRequest(info CollectedInfo) string {
	return fmt.Sprintf("Create a %s-day learning roadmap for %s. "+
		"The learner has %s experience level. Make it practical and progressive.",
		daysOrNotCollected(info.Days), orNotCollected(info.Topic), orNotCollected(info.ExperienceLevel))
}

func historyContext(history []ChatMessage) string {
	if len(history) == 0 {
		return "No previous conversation\n"
	}
	recent := history
	if len(recent) > HistoryWindow {
		recent = recent[len(recent)-HistoryWindow:]
	}
	var b strings.Builder
	for _, msg := range recent {
		clean := strings.TrimSpace(strings.ReplaceAll(msg.Content, recordHint, ""))
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, clean)
	}
	return b.String()
}

func orNotCollected(v *string) string {
	if v == nil {
		return notCollected
	}
	return *v
}

func daysOrNotCollected(v *int) string {
	if v == nil {
		return notCollected
	}
	return strconv.Itoa(*v)
}
