package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// LocalStore хранит медиафайлы на диске киоска. Пути внутри хранилища
// относительные; абсолютный путь нужен печати и почтовым вложениям,
// публичный URL — фронтенду киоска.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore создаёт хранилище с корнем root. Публичные ссылки
// строятся от baseURL (например, http://localhost:8080/media).
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("files: media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("files: create media root: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put записывает файл, создавая промежуточные каталоги.
func (s *LocalStore) Put(path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("files: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("files: write %s: %w", path, err)
	}
	return nil
}

// Get читает файл по относительному пути.
func (s *LocalStore) Get(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("files: read %s: %w", path, err)
	}
	return data, nil
}

// AbsolutePath возвращает путь на диске.
func (s *LocalStore) AbsolutePath(path string) string {
	full, err := s.resolve(path)
	if err != nil {
		return filepath.Join(s.root, filepath.Clean("/"+path))
	}
	return full
}

// URL возвращает публичную ссылку на файл.
func (s *LocalStore) URL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// resolve нормализует путь и не даёт выйти за пределы корня хранилища.
func (s *LocalStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(path))
	if cleaned == "/" {
		return "", fmt.Errorf("files: empty path")
	}
	return filepath.Join(s.root, cleaned), nil
}

var _ domain.FileStore = (*LocalStore)(nil)
