package daubot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
	t.Setenv("DAUBOT_CONFIG_DIR", t.TempDir())
	t.Setenv(config.SecretsFileEnv, "")
}

func TestServeHaltsOnMissingSecrets(t *testing.T) {
	all := map[string]string{
		config.KeyOpenAIAPIKey:       "sk",
		config.KeySupabaseURL:        "https://x.supabase.co",
		config.KeySupabaseServiceKey: "svc",
	}
	for _, missing := range []string{config.KeyOpenAIAPIKey, config.KeySupabaseURL, config.KeySupabaseServiceKey} {
		t.Run(missing, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range all {
				if k != missing {
					env[k] = v
				}
			}
			withEnv(t, env)

			err := handleServeCommand([]string{"--port", "0", "--secrets", filepath.Join(t.TempDir(), "none.toml")})
			if !errors.Is(err, config.ErrMissingSecret) {
				t.Fatalf("expected missing secret error, got %v", err)
			}
			if !errors.Is(err, ErrReported) {
				t.Fatalf("expected error to be marked as reported, got %v", err)
			}
		})
	}
}

func TestPrepareReadsSecretsFile(t *testing.T) {
	withEnv(t, nil)

	path := filepath.Join(t.TempDir(), "secrets.toml")
	body := "OPENAI_API_KEY = \"sk-file\"\nSUPABASE_URL = \"https://x.supabase.co\"\nSUPABASE_SERVICE_KEY = \"svc\"\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	env, err := prepare(commonFlags{secretsPath: path}, config.RequireCredentials)
	if err != nil {
		t.Fatalf("prepare() error: %v", err)
	}
	defer env.closer.Close()

	if env.creds.OpenAIAPIKey != "sk-file" {
		t.Errorf("OpenAIAPIKey = %q, want sk-file", env.creds.OpenAIAPIKey)
	}
	if env.cfg.General.Port != 8501 {
		t.Errorf("Port = %d, want default 8501", env.cfg.General.Port)
	}
}

func TestServeHaltsWithoutSupabaseOnLocalBackend(t *testing.T) {
	withEnv(t, map[string]string{config.KeyOpenAIAPIKey: "sk"})

	err := handleServeCommand([]string{"--backend", config.BackendLocal})
	if !errors.Is(err, config.ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	var missing *config.MissingSecretError
	if !errors.As(err, &missing) || len(missing.Keys) != 2 {
		t.Fatalf("expected both supabase keys reported, got %v", err)
	}
}

func TestPrepareForIngestNeedsOnlyOpenAI(t *testing.T) {
	withEnv(t, map[string]string{config.KeyOpenAIAPIKey: "sk"})

	env, err := prepare(commonFlags{backend: config.BackendLocal}, config.RequireOpenAIKey)
	if err != nil {
		t.Fatalf("prepare() error: %v", err)
	}
	defer env.closer.Close()
	if env.cfg.General.Backend != config.BackendLocal {
		t.Errorf("Backend = %q, want local", env.cfg.General.Backend)
	}
}
