package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileDirectory implements Directory using file-based storage. It is
// meant for development and tests, not for horizontal scaling.
type FileDirectory struct {
	dataDir  string
	accounts map[uuid.UUID]*Account
	mutex    sync.RWMutex
}

type accountData struct {
	Accounts []*Account `json:"accounts"`
}

// NewFileDirectory creates a new file-based account directory
func NewFileDirectory(dataDir string) (*FileDirectory, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	d := &FileDirectory{
		dataDir:  dataDir,
		accounts: make(map[uuid.UUID]*Account),
	}

	if err := d.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return d, nil
}

// CreateAccount creates a new unverified account
func (d *FileDirectory) CreateAccount(ctx context.Context, email string) (*Account, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	email = strings.ToLower(email)
	for _, a := range d.accounts {
		if a.Email == email {
			return nil, ErrEmailTaken
		}
	}

	a := &Account{
		ID:        uuid.New(),
		Email:     email,
		Verified:  false,
		CreatedAt: time.Now().UTC(),
	}
	d.accounts[a.ID] = a

	if err := d.save(); err != nil {
		delete(d.accounts, a.ID)
		return nil, fmt.Errorf("failed to save: %w", err)
	}

	aCopy := *a
	return &aCopy, nil
}

// GetAccount retrieves an account by id
func (d *FileDirectory) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	a, exists := d.accounts[id]
	if !exists {
		return nil, ErrAccountNotFound
	}

	aCopy := *a
	return &aCopy, nil
}

// GetAccountByEmail retrieves an account by email, case-insensitively
func (d *FileDirectory) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	email = strings.ToLower(email)
	for _, a := range d.accounts {
		if a.Email == email {
			aCopy := *a
			return &aCopy, nil
		}
	}

	return nil, ErrAccountNotFound
}

// SetVerified marks an account as verified. Calling it twice is harmless.
func (d *FileDirectory) SetVerified(ctx context.Context, id uuid.UUID) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	a, exists := d.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}

	if a.Verified {
		return nil
	}

	now := time.Now().UTC()
	a.Verified = true
	a.VerifiedAt = &now

	return d.save()
}

// load reads account data from file
func (d *FileDirectory) load() error {
	filePath := filepath.Join(d.dataDir, "accounts.json")

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

	var ad accountData
	if err := json.Unmarshal(data, &ad); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	d.accounts = make(map[uuid.UUID]*Account)
	for _, a := range ad.Accounts {
		d.accounts[a.ID] = a
	}

	return nil
}

// save writes account data to file atomically
func (d *FileDirectory) save() error {
	all := make([]*Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		all = append(all, a)
	}

	jsonData, err := json.MarshalIndent(accountData{Accounts: all}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(d.dataDir, "accounts.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(d.dataDir, "accounts.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
