// Package storage 提供音频文件的存储后端（本地目录或 MinIO）。
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get and Delete for an unknown object name.
var ErrObjectNotFound = errors.New("object not found")

// AudioStore stores synthesized audio files by flat object name.
type AudioStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}
