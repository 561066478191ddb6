package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/germanamz/companion/pkg/companion"
	"github.com/germanamz/companion/pkg/config"
	"github.com/germanamz/companion/pkg/modeladapter"
	"github.com/germanamz/companion/pkg/providers/gemini"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootFlags are the flags shared by every command.
type rootFlags struct {
	configPath string
	envFile    string
	model      string
	transport  string
	language   string
	markdown   bool
	verbose    bool
}

func newRootCmd(s streams) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "companion",
		Short: "A kind, empathetic chat companion in your terminal",
		Long: `Companion is a terminal chat loop backed by Google Gemini. Every message is
answered as a supportive friend would. Nothing is remembered between messages.

The API key is read from GEMINI_API_KEY (or the variable named by api_key_env
in the config file). A .env file in the working directory is loaded first.

Type "exit" or "quit" to end the session.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadDotEnv(f.envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, s, f)
		},
	}

	cmd.SetIn(s.stdin)
	cmd.SetOut(s.stdout)
	cmd.SetErr(s.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to configuration file (default: "+config.DefaultFile+" if present)")
	pf.StringVar(&f.envFile, "env", ".env", "path to .env file (ignored if missing)")
	pf.StringVar(&f.model, "model", "", "model to use (overrides the config file)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log diagnostics to stderr")

	cmd.Flags().StringVar(&f.transport, "transport", "", `transport to use: "rest" or "live" (overrides the config file)`)
	cmd.Flags().StringVar(&f.language, "language", "", `reply language, as a code ("es") or a name (overrides the config file)`)
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "render responses as markdown")

	cmd.AddCommand(newModelsCmd(s, &f))

	return cmd
}

// loadDotEnv loads environment variables from a .env file. A missing file is
// not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, f rootFlags) (config.Config, error) {
	cfg, err := config.Resolve(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if f.model != "" {
		cfg.Model = f.model
	}
	if t := cmd.Flags().Lookup("transport"); t != nil && t.Changed {
		cfg.Transport = f.transport
	}
	if l := cmd.Flags().Lookup("language"); l != nil && l.Changed {
		cfg.Language = f.language
	}
	if m := cmd.Flags().Lookup("markdown"); m != nil && m.Changed {
		cfg.Markdown = f.markdown
	}

	return cfg, cfg.Validate()
}

// credential reads the API key, printing the startup error when it is missing.
func credential(s streams, cfg config.Config) (string, error) {
	key, err := cfg.Credential(s.getenv)

	var missing *config.MissingCredentialError
	if errors.As(err, &missing) {
		fmt.Fprintf(s.stdout, "❌ Error: %v\n", err)
		return "", &exitError{code: 1}
	}

	return key, err
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(h).With("session", uuid.NewString())
}

// newGenerator builds the model handle for the configured transport.
func newGenerator(cfg config.Config, key string) (modeladapter.Generator, error) {
	switch cfg.Transport {
	case config.TransportLive:
		l, err := gemini.NewLive(cfg.BaseURL, key, cfg.Model)
		if err != nil {
			return nil, err
		}
		l.Temperature = cfg.Temperature
		l.MaxTokens = cfg.MaxOutputTokens
		return l, nil
	default:
		a, err := gemini.New(cfg.BaseURL, key, cfg.Model)
		if err != nil {
			return nil, err
		}
		a.Temperature = cfg.Temperature
		a.MaxTokens = cfg.MaxOutputTokens
		return a, nil
	}
}

func runChat(cmd *cobra.Command, s streams, f rootFlags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	key, err := credential(s, cfg)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg, key)
	if err != nil {
		return err
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	log := newLogger(s.stderr, f.verbose)
	log.Debug("starting session", "model", cfg.Model, "transport", cfg.Transport, "language", cfg.Language)

	var consoleOpts []companion.ConsoleOption
	if cfg.Markdown {
		consoleOpts = append(consoleOpts, companion.WithMarkdown("auto", 0))
	}

	sess, err := companion.New(gen,
		companion.WithInput(s.stdin),
		companion.WithConsole(companion.NewConsole(s.stdout, consoleOpts...)),
		companion.WithLogger(log),
		companion.WithTimeout(timeout),
		companion.WithLanguage(cfg.Language),
	)
	if err != nil {
		return err
	}

	return sess.Run(cmd.Context())
}
