package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

// 学习天数的有效范围（含两端）。
const (
	MinDays = 7
	MaxDays = 30
)

// minTopicLength 按去掉首尾空白后的字符数计算。
const minTopicLength = 3

// greetingStoplist 中的寒暄词不会被当作主题。
var greetingStoplist = map[string]struct{}{
	"wooooo": {},
	"woo":    {},
	"hello":  {},
	"hi":     {},
	"hey":    {},
}

var integerLiteral = regexp.MustCompile(`\d+`)

// 按顺序检查关键词组，第一个命中的组胜出。
var experienceKeywords = []struct {
	level    string
	keywords []string
}{
	{"beginner", []string{"beginner", "new", "start", "never", "first"}},
	{"intermediate", []string{"intermediate", "some", "basic", "little"}},
	{"advanced", []string{"advanced", "expert", "experienced", "good"}},
}

// ExtractTopic 返回去掉首尾空白的整句输入；少于三个字符或只是寒暄时返回 false。
// 例如 "I want to learn guitar" 会原样作为主题。
func ExtractTopic(utterance string) (string, bool) {
	topic := strings.TrimSpace(utterance)
	if len([]rune(topic)) < minTopicLength {
		return "", false
	}
	if _, stop := greetingStoplist[strings.ToLower(topic)]; stop {
		return "", false
	}
	return topic, true
}

// FirstInteger 返回输入中第一个连续的十进制数字。
func FirstInteger(utterance string) (int, bool) {
	lit := integerLiteral.FindString(utterance)
	if lit == "" {
		return 0, false
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractDays 只看输入中的第一个整数，在 [MinDays, MaxDays] 内时接受。
// 后面的整数不会再考虑。
func ExtractDays(utterance string) (int, bool) {
	n, ok := FirstInteger(utterance)
	if !ok || n < MinDays || n > MaxDays {
		return 0, false
	}
	return n, true
}

// ClassifyExperience 通过子串关键词匹配把输入归为 beginner、intermediate 或 advanced，
// 都不匹配时返回去掉首尾空白的原文。
func ClassifyExperience(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, group := range experienceKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.level
			}
		}
	}
	return strings.TrimSpace(utterance)
}
