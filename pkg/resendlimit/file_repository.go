package resendlimit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileRepository implements Repository using file-based storage. The
// write lock makes check-and-increment atomic per process; the
// Postgres repository is the one to use when multiple instances share
// the counters.
type FileRepository struct {
	dataDir  string
	counters map[string]*Counter // Key: accountID + "/" + dayKey
	mutex    sync.RWMutex
}

type counterData struct {
	Counters []*Counter `json:"counters"`
}

func counterKey(accountID uuid.UUID, dayKey string) string {
	return accountID.String() + "/" + dayKey
}

// NewFileRepository creates a new file-based counter repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir:  dataDir,
		counters: make(map[string]*Counter),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// Get returns the counter for the day, or nil when absent
func (r *FileRepository) Get(ctx context.Context, accountID uuid.UUID, dayKey string) (*Counter, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, exists := r.counters[counterKey(accountID, dayKey)]
	if !exists {
		return nil, nil
	}

	cCopy := *c
	return &cCopy, nil
}

// IncrementIfAllowed checks both preconditions and increments under the
// write lock
func (r *FileRepository) IncrementIfAllowed(ctx context.Context, accountID uuid.UUID, dayKey string, now time.Time, notBefore time.Time, cap int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := counterKey(accountID, dayKey)
	c, exists := r.counters[key]
	if !exists {
		c = &Counter{AccountID: accountID, DayKey: dayKey}
		r.counters[key] = c
	}

	if c.Count >= cap {
		return false, nil
	}
	if c.LastIssuedAt != nil && c.LastIssuedAt.After(notBefore) {
		return false, nil
	}

	prevCount := c.Count
	prevIssued := c.LastIssuedAt

	stamp := now
	c.Count++
	c.LastIssuedAt = &stamp

	if err := r.save(); err != nil {
		c.Count = prevCount
		c.LastIssuedAt = prevIssued
		return false, fmt.Errorf("failed to save: %w", err)
	}

	return true, nil
}

// load reads counter data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, "resend_counters.json")

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

	var cd counterData
	if err := json.Unmarshal(data, &cd); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.counters = make(map[string]*Counter)
	for _, c := range cd.Counters {
		r.counters[counterKey(c.AccountID, c.DayKey)] = c
	}

	return nil
}

// save writes counter data to file atomically
func (r *FileRepository) save() error {
	counters := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}

	jsonData, err := json.MarshalIndent(counterData{Counters: counters}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, "resend_counters.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, "resend_counters.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
