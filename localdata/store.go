package localdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// flags 本地标志的持久化形态。
type flags struct {
	FirstSpendOrder bool `json:"first_spend_order"`
}

// FlagStore 把简单布尔标志落盘的本地存储，实现 order.Local。
// 首次读取时若文件不存在，标志取真（尚未发生过首笔消费）。
type FlagStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	state  flags
}

func NewFlagStore(path string) *FlagStore {
	return &FlagStore{path: path}
}

// FirstSpendOrder 读取"首次消费"标志。
func (s *FlagStore) FirstSpendOrder() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false, err
	}
	return s.state.FirstSpendOrder, nil
}

// SetFirstSpendOrder 写入"首次消费"标志并立即落盘。
func (s *FlagStore) SetFirstSpendOrder(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	s.state.FirstSpendOrder = v
	return s.persistLocked()
}

func (s *FlagStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.state = flags{FirstSpendOrder: true}
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read flag store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		return fmt.Errorf("decode flag store: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *FlagStore) persistLocked() error {
	raw, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create flag store dir: %w", err)
	}
	// 先写临时文件再改名，避免写一半的状态文件
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write flag store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
