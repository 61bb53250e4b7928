package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

type Storage struct {
	basePath string
	now      func() time.Time
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath, now: time.Now}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoreProtocolDocument writes the file under protocolos/<lawsuit>/ with a
// unique name so repeated submissions never overwrite each other.
func (s *Storage) StoreProtocolDocument(ctx context.Context, file domain.ProtocolFile, lawsuitNumber, lawsuitID string) (domain.DocumentMetadata, error) {
	folder := sanitizeSegment(lawsuitNumber)
	if folder == "" {
		folder = sanitizeSegment(lawsuitID)
	}
	if folder == "" {
		folder = "sem-processo"
	}
	name := sanitizeSegment(filepath.Base(file.Filename))
	if name == "" {
		name = "protocolo.pdf"
	}
	key := filepath.ToSlash(filepath.Join("protocolos", folder, uuid.NewString()+"-"+name))

	if err := os.MkdirAll(filepath.Join(s.basePath, "protocolos", folder), 0o755); err != nil {
		return domain.DocumentMetadata{}, fmt.Errorf("create protocol dir: %w", err)
	}
	if err := s.Save(ctx, key, bytes.NewReader(file.Content)); err != nil {
		return domain.DocumentMetadata{}, err
	}
	return domain.DocumentMetadata{
		Key:         key,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        int64(len(file.Content)),
		StoredAt:    s.now().UTC(),
	}, nil
}

// DeleteProtocolDocument removes a stored document; a missing file is not an error.
func (s *Storage) DeleteProtocolDocument(_ context.Context, key string) error {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	value = unsafeKeyChars.ReplaceAllString(value, "_")
	return strings.Trim(value, "._")
}
