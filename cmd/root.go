package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nu0ma/dbfixture"
	"github.com/nu0ma/dbfixture/dataset"
	"github.com/nu0ma/dbfixture/internal/logging"
	"github.com/nu0ma/dbfixture/internal/validator"
)

const version = "v1.0.0"

var errValidationFailed = errors.New("validation failed")

type cli struct {
	v       *viper.Viper
	cleanup func()
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree. Flags can also be set through
// DBFIXTURE_* environment variables, e.g. DBFIXTURE_LOG_LEVEL.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("DBFIXTURE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "dbfixture",
		Short: "Seed and verify database tables from fixture files",
		Long: `dbfixture initializes a database from a properties file and an init
script, loads flat XML or YAML fixtures into it, exports live tables to
fixture files and checks live tables against expected fixtures.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cleanup = logging.Init(logging.Options{
				Level:   c.v.GetString("log-level"),
				Format:  c.v.GetString("log-format"),
				Verbose: c.v.GetBool("verbose"),
				Color:   c.v.GetString("color"),
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.cleanup != nil {
				c.cleanup()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", dbfixture.DefaultConfigFile, "Properties file with the connection settings")
	flags.BoolP("verbose", "v", false, "Enable verbose logging (sets level=debug)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json, logfmt")
	flags.String("color", "auto", "Color output: auto, always, never")
	flags.String("emulator-host", "", "Spanner emulator host, e.g. localhost:9010")
	if err := c.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("failed to bind flags: %v", err))
	}

	rootCmd.AddCommand(c.initCommand(), c.loadCommand(), c.exportCommand(), c.assertCommand())
	return rootCmd
}

func (c *cli) initDatabase(ctx context.Context) (dbfixture.Backend, error) {
	var opts []dbfixture.InitOption
	if host := c.v.GetString("emulator-host"); host != "" {
		opts = append(opts, dbfixture.WithEmulatorHost(host))
	}
	b, err := dbfixture.InitDatabase(ctx, c.v.GetString("config"), opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return b, nil
}

// helper opens the database with fixtures resolved against the working
// directory.
func (c *cli) helper(ctx context.Context, basePath string) (*dbfixture.Helper, error) {
	b, err := c.initDatabase(ctx)
	if err != nil {
		return nil, err
	}
	return dbfixture.New(b,
		dbfixture.WithFixtures(os.DirFS("/")),
		dbfixture.WithBasePath(basePath),
		dbfixture.WithLogger(logging.L()),
	), nil
}

// fixtureName turns a command line path into a name in the "/" file system.
func fixtureName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(filepath.ToSlash(abs), "/"), nil
}

func (c *cli) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Run the init script against the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.initDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Database initialized")
			return nil
		},
	}
}

func (c *cli) loadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture>",
		Short: "Replace table contents with the rows of a fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := c.helper(ctx, ".")
			if err != nil {
				return err
			}
			defer h.Close()

			ds, err := c.load(ctx, h, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Loaded %s into %s\n", args[0], strings.Join(ds.TableNames(), ", "))
			return nil
		},
	}
}

func (c *cli) load(ctx context.Context, h *dbfixture.Helper, path string) (*dataset.Dataset, error) {
	name, err := fixtureName(path)
	if err != nil {
		return nil, err
	}
	ds, err := h.InitDataSet(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ds, nil
}

func (c *cli) exportCommand() *cobra.Command {
	var fixture string
	cmd := &cobra.Command{
		Use:   "export <file> <table>...",
		Short: "Write live tables to a fixture file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := c.helper(ctx, "")
			if err != nil {
				return err
			}
			defer h.Close()

			if fixture != "" {
				if _, err := c.load(ctx, h, fixture); err != nil {
					return err
				}
			}
			if err := h.ExportDataSet(ctx, args[1:], args[0]); err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported %s to %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&fixture, "fixture", "", "Fixture to load before exporting")
	return cmd
}

func (c *cli) assertCommand() *cobra.Command {
	var (
		setup string
		execs []string
	)
	cmd := &cobra.Command{
		Use:   "assert <fixture>",
		Short: "Check live tables against an expected fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := c.helper(ctx, ".")
			if err != nil {
				return err
			}
			defer h.Close()

			if setup != "" {
				if _, err := c.load(ctx, h, setup); err != nil {
					return err
				}
			}
			for _, stmt := range execs {
				if err := h.ExecSQL(ctx, stmt); err != nil {
					return err
				}
			}

			name, err := fixtureName(args[0])
			if err != nil {
				return err
			}
			expected, err := h.ReadDataSet(name)
			if err != nil {
				return err
			}

			results := &validator.ValidationResult{}
			for _, table := range expected.TableNames() {
				if err := h.CompareTable(ctx, table, expected); err != nil {
					results.AddError(err.Error())
					continue
				}
				results.AddMessage(fmt.Sprintf("Table %s: all rows match", table))
			}

			printResults(cmd.OutOrStdout(), results, c.v.GetBool("verbose"))
			if results.HasErrors() {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&setup, "setup", "", "Fixture to load before asserting")
	cmd.Flags().StringArrayVar(&execs, "exec", nil, "SQL to run before asserting (repeatable)")
	return cmd
}

func printResults(w io.Writer, results *validator.ValidationResult, verbose bool) {
	if results.HasErrors() {
		fmt.Fprintln(w, "Validation failed:")
		for _, err := range results.Errors {
			fmt.Fprintf(w, "  ❌ %s\n", err)
		}
		return
	}

	fmt.Fprintln(w, "✅ All validations passed!")
	if verbose {
		for _, msg := range results.Messages {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	}
}
