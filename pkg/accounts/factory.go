package accounts

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryConfig contains configuration for creating an account directory
type DirectoryConfig struct {
	// Pool is required for PostgreSQL directories
	Pool *pgxpool.Pool
	// DataDir is required for file-based directories
	DataDir string
}

// NewDirectory creates a new account directory based on the persistence type
func NewDirectory(persistenceType string, config DirectoryConfig) (Directory, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres directory")
		}
		return NewPostgresDirectory(config.Pool), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file directory")
		}
		return NewFileDirectory(config.DataDir)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file)", persistenceType)
	}
}
