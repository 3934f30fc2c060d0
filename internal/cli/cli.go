package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vk/gridforge/internal/app"
)

type options struct {
	logLevel        string
	logFormat       string
	workers         int
	registry        string
	exclude         []string
	hashCacheSize   int
	healthcheckPort int
	collection      string
	outDir          string
}

// Execute runs the command line against args. A .env file in the working
// directory is loaded first; variables already set win.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	_ = godotenv.Load()
	cmd := NewRootCommand(outW, os.LookupEnv)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the gridforge command tree. lookupEnv supplies flag
// defaults.
func NewRootCommand(outW io.Writer, lookupEnv func(string) (string, bool)) *cobra.Command {
	e := env(lookupEnv)
	opts := &options{}

	root := &cobra.Command{
		Use:           "gridforge",
		Short:         "Incremental file builds and service launcher driven by HCL schemas.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", e.str(EnvLogLevel, "info"), "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", e.str(EnvLogFormat, "text"), "Log output format: 'text' or 'json'.")
	pf.IntVar(&opts.workers, "workers", e.int(EnvWorkers, runtime.NumCPU()), "Number of tasks resolved concurrently.")
	pf.StringVar(&opts.registry, "registry", e.str(EnvRegistry, ""), "Path to the schema registry database.")
	pf.StringSliceVar(&opts.exclude, "exclude", e.list(EnvExclude), "Glob patterns of directories skipped while walking, in addition to "+app.DefaultExclude+".")
	pf.IntVar(&opts.hashCacheSize, "hash-cache-size", e.int(EnvHashCacheSize, 4096), "Number of file digests kept in memory.")

	root.AddCommand(
		newBuildCommand(outW, opts),
		newRunCommand(outW, opts, e),
		newSchemaCommand(outW, opts),
	)
	return root
}

func newBuildCommand(outW io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build SCHEMA",
		Short: "Resolve a collection of a schema and write it to disk.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(outW, opts, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			m, err := a.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(outW, "Wrote %d files of collection %q.\n", len(m.Files), m.Collection)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "Name of the collection to build.")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory. Defaults to .gridforge/collections/<name> next to the schema.")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func newRunCommand(outW io.Writer, opts *options, e env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [SCHEMA]",
		Short: "Start the services of a schema and of every registered schema.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := ""
			if len(args) == 1 {
				schema = args[0]
			}
			if schema == "" && opts.registry == "" {
				return usageError(errors.New("run needs a SCHEMA argument or a registry"))
			}
			a, err := newApp(outW, opts, schema)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&opts.healthcheckPort, "healthcheck-port", e.int(EnvHealthcheckPort, 0), "Port for the HTTP health check server. 0 is disabled.")
	return cmd
}

func newSchemaCommand(outW io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage registered schemas.",
	}
	withRegistry := func(fn func(*app.App) error) error {
		if opts.registry == "" {
			p, err := defaultRegistryPath()
			if err != nil {
				return usageError(fmt.Errorf("no registry path: %w", err))
			}
			opts.registry = p
		}
		a, err := newApp(outW, opts, "")
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add PATH",
			Short: "Register a schema.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(func(a *app.App) error {
					url, err := a.AddSchema(cmd.Context(), args[0])
					if err == nil {
						fmt.Fprintln(outW, url)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered schemas.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRegistry(func(a *app.App) error {
					urls, err := a.ListSchemas(cmd.Context())
					if err != nil {
						return err
					}
					for _, u := range urls {
						fmt.Fprintln(outW, u)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove PATH",
			Short: "Unregister a schema.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(func(a *app.App) error {
					return a.RemoveSchema(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}

// newApp validates the options and creates the application. Validation
// failures are usage errors.
func newApp(outW io.Writer, opts *options, schema string) (*app.App, error) {
	cfg, err := app.NewConfig(app.Config{
		SchemaPath:      schema,
		Collection:      opts.collection,
		OutDir:          opts.outDir,
		RegistryPath:    opts.registry,
		Exclude:         opts.exclude,
		HashCacheSize:   opts.hashCacheSize,
		LogFormat:       strings.ToLower(opts.logFormat),
		LogLevel:        strings.ToLower(opts.logLevel),
		HealthcheckPort: opts.healthcheckPort,
		WorkerCount:     opts.workers,
	})
	if err != nil {
		return nil, usageError(err)
	}
	a, err := app.NewApp(outW, cfg, nil)
	if err != nil {
		return nil, usageError(err)
	}
	return a, nil
}
