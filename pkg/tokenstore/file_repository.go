package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRepository implements Repository using file-based storage. The
// mutex stands in for the conditional UPDATE the Postgres repository
// relies on: every check-and-stamp happens under the write lock.
type FileRepository struct {
	dataDir string
	tokens  map[string]*Token // Key: token value
	mutex   sync.RWMutex
}

type tokenData struct {
	Tokens []*Token `json:"tokens"`
}

// NewFileRepository creates a new file-based token repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		tokens:  make(map[string]*Token),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// Insert stores a newly issued token
func (r *FileRepository) Insert(ctx context.Context, token *Token) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.tokens[token.Value]; exists {
		return fmt.Errorf("token value collision")
	}

	tCopy := *token
	r.tokens[token.Value] = &tCopy

	if err := r.save(); err != nil {
		delete(r.tokens, token.Value)
		return fmt.Errorf("failed to save: %w", err)
	}

	return nil
}

// GetByValue retrieves a token by its secret value
func (r *FileRepository) GetByValue(ctx context.Context, value string) (*Token, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	t, exists := r.tokens[value]
	if !exists {
		return nil, ErrTokenNotFound
	}

	tCopy := *t
	return &tCopy, nil
}

// ConsumeIfUnused stamps used_at iff it is still nil, under the write lock
func (r *FileRepository) ConsumeIfUnused(ctx context.Context, value string, usedAt time.Time) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t, exists := r.tokens[value]
	if !exists {
		return false, ErrTokenNotFound
	}

	if t.UsedAt != nil {
		return false, nil
	}

	stamp := usedAt
	t.UsedAt = &stamp

	if err := r.save(); err != nil {
		t.UsedAt = nil
		return false, fmt.Errorf("failed to save: %w", err)
	}

	return true, nil
}

// load reads token data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, "verification_tokens.json")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.tokens = make(map[string]*Token)
	for _, t := range td.Tokens {
		r.tokens[t.Value] = t
	}

	return nil
}

// save writes token data to file atomically
func (r *FileRepository) save() error {
	tokens := make([]*Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		tokens = append(tokens, t)
	}

	jsonData, err := json.MarshalIndent(tokenData{Tokens: tokens}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, "verification_tokens.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, "verification_tokens.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
