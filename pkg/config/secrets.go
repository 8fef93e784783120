package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Secret names read at startup.
const (
	KeyOpenAIAPIKey       = "OPENAI_API_KEY"
	KeySupabaseURL        = "SUPABASE_URL"
	KeySupabaseServiceKey = "SUPABASE_SERVICE_KEY"
)

// SecretsFileEnv names an explicit secrets file.
const SecretsFileEnv = "DAUBOT_SECRETS_FILE"

// ErrMissingSecret is matched by every MissingSecretError.
var ErrMissingSecret = errors.New("required secret not set")

// MissingSecretError reports the credentials that resolved to nothing.
type MissingSecretError struct {
	Keys    []string
	Message string
}

func (e *MissingSecretError) Error() string {
	return e.Message
}

func (e *MissingSecretError) Is(target error) bool {
	return target == ErrMissingSecret
}

// Secrets resolves named secrets from a TOML secrets file first and the
// process environment second.
type Secrets struct {
	values    map[string]string
	lookupEnv func(string) (string, bool)
}

// NewSecrets builds a resolver over values backed by the real environment.
func NewSecrets(values map[string]string) *Secrets {
	if values == nil {
		values = map[string]string{}
	}
	return &Secrets{values: values, lookupEnv: os.LookupEnv}
}

// WithEnv returns a copy of s that falls back to lookup instead of the
// process environment.
func (s *Secrets) WithEnv(lookup func(string) (string, bool)) *Secrets {
	return &Secrets{values: s.values, lookupEnv: lookup}
}

// LoadSecrets reads top-level keys from the TOML file at path. An empty path,
// a missing file, or a file that fails to parse all yield an empty store, so
// resolution falls through to the environment.
func LoadSecrets(path string, logger *slog.Logger) *Secrets {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return NewSecrets(nil)
	}

	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ignoring unreadable secrets file", "path", path, "error", err)
		}
		return NewSecrets(nil)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			values[k] = v
		case map[string]any, []map[string]any:
			// tables are not secrets
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	logger.Debug("loaded secrets file", "path", path, "keys", len(values))
	return NewSecrets(values)
}

// Resolve returns the secret named key, or "" when neither the secrets file
// nor the environment defines it. It never fails.
func (s *Secrets) Resolve(key string) string {
	if s == nil {
		return os.Getenv(key)
	}
	if v, ok := s.values[key]; ok {
		return v
	}
	if s.lookupEnv != nil {
		if v, ok := s.lookupEnv(key); ok {
			return v
		}
	}
	return ""
}

// FindSecretsPath returns the first existing secrets file among explicit,
// $DAUBOT_SECRETS_FILE, ./secrets.toml and <config dir>/secrets.toml.
func FindSecretsPath(explicit string) string {
	candidates := []string{explicit, os.Getenv(SecretsFileEnv), "secrets.toml"}
	if dir, err := GetConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "secrets.toml"))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Credentials are the resolved secrets the server needs.
type Credentials struct {
	OpenAIAPIKey       string
	SupabaseURL        string
	SupabaseServiceKey string
}

// RequireCredentials resolves the startup secrets. The OpenAI key is checked
// first, then the Supabase pair.
func RequireCredentials(s *Secrets) (Credentials, error) {
	creds, err := RequireOpenAIKey(s)
	if err != nil {
		return creds, err
	}

	var missing []string
	if creds.SupabaseURL == "" {
		missing = append(missing, KeySupabaseURL)
	}
	if creds.SupabaseServiceKey == "" {
		missing = append(missing, KeySupabaseServiceKey)
	}
	if len(missing) > 0 {
		return creds, &MissingSecretError{
			Keys:    missing,
			Message: "SUPABASE_URL / SUPABASE_SERVICE_KEY not set",
		}
	}
	return creds, nil
}

// RequireOpenAIKey resolves the secrets but only insists on the OpenAI key.
// Offline ingestion into the local store needs nothing else.
func RequireOpenAIKey(s *Secrets) (Credentials, error) {
	creds := Credentials{
		OpenAIAPIKey:       strings.TrimSpace(s.Resolve(KeyOpenAIAPIKey)),
		SupabaseURL:        strings.TrimSpace(s.Resolve(KeySupabaseURL)),
		SupabaseServiceKey: strings.TrimSpace(s.Resolve(KeySupabaseServiceKey)),
	}
	if creds.OpenAIAPIKey == "" {
		return creds, &MissingSecretError{
			Keys:    []string{KeyOpenAIAPIKey},
			Message: "OPENAI_API_KEY not set",
		}
	}
	return creds, nil
}
