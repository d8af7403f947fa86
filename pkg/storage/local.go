package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type localStore struct {
	dir string
}

// NewLocalStore 返回一个把对象写入 dir 目录的 AudioStore，目录不存在时创建。
func NewLocalStore(dir string) (AudioStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("创建音频目录失败: %w", err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *localStore) Put(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write audio %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write audio %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write audio %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func (s *localStore) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return data, err
}

func (s *localStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}
