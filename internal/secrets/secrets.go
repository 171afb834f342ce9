// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Key file names.
const (
	NCBIAPIKey      = "ncbi-api-key"
	NCBIEmail       = "ncbi-email"
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	RedisPassword   = "redis-password"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger zerolog.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns fallback if it is non-empty, else the secret for key.
// Explicit configuration always wins over the secrets directory.
func (s Secrets) Lookup(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Keys returns the loaded key names, sorted.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply fills credential fields of cfg that are still empty. The
// classifier key is taken from the file matching cfg.Classifier.Provider.
func (s Secrets) Apply(cfg *types.EngineConfig) {
	cfg.Literature.APIKey = s.Lookup(NCBIAPIKey, cfg.Literature.APIKey)
	cfg.Literature.Email = s.Lookup(NCBIEmail, cfg.Literature.Email)
	cfg.Cache.RedisPassword = s.Lookup(RedisPassword, cfg.Cache.RedisPassword)

	key := AnthropicAPIKey
	if cfg.Classifier.Provider == "openai" {
		key = OpenAIAPIKey
	}
	cfg.Classifier.APIKey = s.Lookup(key, cfg.Classifier.APIKey)
}
