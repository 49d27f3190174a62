package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where newstrove stores its own data
	DSN string
	// Driver is the database driver (postgres or sqlite)
	Driver string
	// Version is the current version of server
	Version string

	// OpenAIAPIKey authenticates against the embedding provider.
	OpenAIAPIKey string // NEWSTROVE_OPENAI_API_KEY
	// OpenAIBaseURL overrides the provider endpoint, e.g. for proxies.
	OpenAIBaseURL string // NEWSTROVE_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string // NEWSTROVE_EMBEDDING_MODEL (default: text-embedding-3-small)
	// EmbeddingDimensions is the fixed system-wide vector dimensionality.
	// It must match the vector column width of the schema.
	EmbeddingDimensions int // NEWSTROVE_EMBEDDING_DIMENSIONS (default: 1536)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads embedding-provider configuration from environment variables.
func (p *Profile) FromEnv() {
	p.OpenAIAPIKey = os.Getenv("NEWSTROVE_OPENAI_API_KEY")
	p.OpenAIBaseURL = getEnvOrDefault("NEWSTROVE_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingModel = getEnvOrDefault("NEWSTROVE_EMBEDDING_MODEL", "text-embedding-3-small")

	p.EmbeddingDimensions = 1536
	if raw := os.Getenv("NEWSTROVE_EMBEDDING_DIMENSIONS"); raw != "" {
		if dimensions, err := strconv.Atoi(raw); err == nil && dimensions > 0 {
			p.EmbeddingDimensions = dimensions
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("DSN is required for the postgres driver")
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		dbFile := fmt.Sprintf("newstrove_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.EmbeddingDimensions <= 0 {
		p.EmbeddingDimensions = 1536
	}

	return nil
}
