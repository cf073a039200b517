package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

type Storage struct{ dir string }

func New(dir string) *Storage { return &Storage{dir: dir} }

// Save writes data under a fresh uuid prefix and returns the path relative
// to the storage root.
func (s *Storage) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := uuid.New().String()[:8] + "_" + SanitizeFileName(name)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, rel), data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *Storage) Open(ctx context.Context, rel string) ([]byte, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (s *Storage) Delete(ctx context.Context, rel string) error {
	p, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) resolve(rel string) (string, error) {
	clean := filepath.Clean("/" + rel)
	if clean == "/" {
		return "", errors.New("empty path")
	}
	return filepath.Join(s.dir, clean), nil
}

// SanitizeFileName keeps letters, digits, dot, dash and underscore.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "model"
	}
	return out
}
