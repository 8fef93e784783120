package daubot

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/logging"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/ui"
)

// lookupEnv is the environment the commands read secrets and $EDITOR from.
var lookupEnv = os.LookupEnv

// commonFlags are shared by the commands that talk to the model.
type commonFlags struct {
	configPath  string
	secretsPath string
	backend     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config.yaml (default: <config dir>/config.yaml)")
	fs.StringVar(&c.secretsPath, "secrets", "", "Path to secrets.toml")
	fs.StringVar(&c.backend, "backend", "", "Retrieval backend: supabase or local")
}

// environment is everything a command needs once startup checks pass.
type environment struct {
	cfg    *config.AppConfig
	creds  config.Credentials
	logger *slog.Logger
	closer io.Closer
}

// credentialCheck resolves the secrets a command cannot start without.
type credentialCheck func(*config.Secrets) (config.Credentials, error)

// prepare loads configuration, sets up logging and resolves the secrets
// require insists on. Missing secrets are rendered to stderr and halt the
// command.
func prepare(flags commonFlags, require credentialCheck) (*environment, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadAppConfigFrom(flags.configPath)
	} else {
		cfg, err = config.LoadAppConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.backend != "" {
		cfg.General.Backend = flags.backend
	}

	logger, closer, err := logging.Init(cfg.Logging, os.Stderr)
	if err != nil {
		logger.Warn("file logging disabled", "error", err)
	}

	secretsPath := config.FindSecretsPath(flags.secretsPath)
	secrets := config.LoadSecrets(secretsPath, logger).WithEnv(lookupEnv)

	creds, err := require(secrets)
	if err != nil {
		closer.Close()
		fmt.Fprint(os.Stderr, ui.RenderStartupError(err))
		return nil, fmt.Errorf("%w: %w", ErrReported, err)
	}

	return &environment{cfg: cfg, creds: creds, logger: logger, closer: closer}, nil
}
