package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"repurposer/internal/models"
)

// Store persists the whole ledger. Save always rewrites every record.
type Store interface {
	Load(ctx context.Context) (map[string]models.TokenRecord, error)
	Save(ctx context.Context, records map[string]models.TokenRecord) error
}

type fileDocument struct {
	Tokens map[string]models.TokenRecord `json:"tokens"`
}

// FileStore keeps the ledger in a single JSON document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (map[string]models.TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]models.TokenRecord{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if doc.Tokens == nil {
		doc.Tokens = map[string]models.TokenRecord{}
	}
	return doc.Tokens, nil
}

func (s *FileStore) Save(_ context.Context, records map[string]models.TokenRecord) error {
	if records == nil {
		records = map[string]models.TokenRecord{}
	}
	data, err := json.MarshalIndent(fileDocument{Tokens: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
