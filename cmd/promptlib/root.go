package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/adapters/clients/acl"
	"github.com/jsamuelsen/promptlib/internal/adapters/memstore"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
	"github.com/jsamuelsen/promptlib/internal/platform/logging"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

// tokenEnv supplies --token when the flag is not given.
const tokenEnv = "PROMPTLIB_TOKEN"

type options struct {
	apiURL   string
	token    string
	memory   bool
	logLevel string

	logger  *slog.Logger
	library ports.Library
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "promptlib",
		Short: "Structured prompt library tool",
		Long: `promptlib works with structured prompts: the seven-field framework
(contexte, rôle, objectif, style, ton, audience, résultat attendu).

Offline commands:
  promptlib render prompt.yaml            # Markdown preview of a prompt file
  promptlib templates list                # The built-in template catalog
  promptlib templates show "Plan de formation"

Library commands talk to the persistence API:
  promptlib export --format yaml --out library.yaml
  promptlib import library.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = logging.NewWithWriter(&logging.Config{
				Level:   opts.logLevel,
				Format:  "pretty",
				Service: "promptlib",
				Version: Version,
			}, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", "", "persistence API base URL (default: services.library.base_url)")
	flags.StringVar(&opts.token, "token", "", "library credential (default: $"+tokenEnv+")")
	flags.BoolVar(&opts.memory, "memory", false, "use an empty in-memory library instead of the API")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "trace, debug, info, warn or error")

	root.AddCommand(
		newRenderCmd(opts),
		newTemplatesCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "promptlib %s (%s)\n", Version, Commit)
		},
	}
}

func (o *options) credential() domain.Credential {
	if o.token != "" {
		return domain.NewCredential(o.token)
	}

	return domain.NewCredential(os.Getenv(tokenEnv))
}

// libraryService builds the export/import service on the selected backend.
// The backend is created once per process.
func (o *options) libraryService() (*app.LibraryService, error) {
	if o.library == nil {
		lib, err := o.newLibrary()
		if err != nil {
			return nil, err
		}

		o.library = lib
	}

	return app.NewLibraryService(app.LibraryServiceConfig{
		Library: o.library,
		Logger:  o.logger,
	}), nil
}

func (o *options) newLibrary() (ports.Library, error) {
	if o.memory {
		return memstore.New(), nil
	}

	cfg, err := config.Load(os.Getenv("APP_ENVIRONMENT"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	baseURL := cfg.Services.Library.BaseURL
	if o.apiURL != "" {
		baseURL = o.apiURL
	}

	if baseURL == "" {
		return nil, errors.New("no persistence API: pass --api-url or --memory")
	}

	client, err := clients.New(&clients.Config{
		BaseURL:     baseURL,
		ServiceName: cfg.Services.Library.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating library client: %w", err)
	}

	return acl.NewLibraryClient(acl.LibraryClientConfig{
		Client:      client,
		ServiceName: cfg.Services.Library.Name,
		Logger:      o.logger,
	}), nil
}
