package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File Storage
// ============================================================

type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *FileStorage) ExportPath(sessionID, filename string) string {
	return filepath.Join(s.SessionDir(sessionID), filepath.Base(filename))
}

func (s *FileStorage) EnsureDir(sessionID string) error {
	if err := os.MkdirAll(s.SessionDir(sessionID), 0o755); err != nil {
		return fmt.Errorf("mkdir session dir: %w", err)
	}
	return nil
}

// SaveExport пишет файл экспорта в каталог сессии и возвращает путь.
func (s *FileStorage) SaveExport(sessionID, filename string, data []byte) (string, error) {
	if err := s.EnsureDir(sessionID); err != nil {
		return "", err
	}
	path := s.ExportPath(sessionID, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// RemoveSession удаляет каталог сессии вместе с экспортами.
func (s *FileStorage) RemoveSession(sessionID string) error {
	if err := os.RemoveAll(s.SessionDir(sessionID)); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}
