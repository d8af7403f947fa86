package service

import "voice-tutor-go/pkg/log"

// outcome 记录一次外部调用的结果和来源，兜底值由调用方选择。
type outcome[T any] struct {
	value  T
	err    error
	source string
}

func attempt[T any](source string, value T, err error) outcome[T] {
	return outcome[T]{value: value, err: err, source: source}
}

func (o outcome[T]) ok() bool {
	return o.err == nil
}

// or 成功时返回结果，失败时记录日志并返回 fallback。
func (o outcome[T]) or(fallback T) T {
	if o.err == nil {
		return o.value
	}
	log.Warnw("[Fallback] 调用失败，使用兜底值", "source", o.source, "error", o.err)
	return fallback
}
