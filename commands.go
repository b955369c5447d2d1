package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	appmodules "backoffice/app"
	"backoffice/app/tables"
	"backoffice/core/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "backoffice",
	Short:         "Dealership back-office API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return New(verbose).Start()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return New(verbose).Start()
	},
}

var importReplace bool

var importCmd = &cobra.Command{
	Use:   "import <tag> <file.csv>",
	Short: "Import a CSV file into a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, path := args[0], args[1]

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		return withTables(func(service *tables.TableService) error {
			mode := tables.ImportAppend
			if importReplace {
				mode = tables.ImportReplace
			}
			resp, err := service.Import(tag, file, mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d records (%s), %d total\n", resp.Tag, resp.Imported, resp.Mode, resp.Total)
			return nil
		})
	},
}

var (
	exportQuery  string
	exportFields string
	exportOut    string
	exportStore  bool
)

var exportCmd = &cobra.Command{
	Use:   "export <tag>",
	Short: "Export a filtered table as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := args[0]

		return withTables(func(service *tables.TableService) error {
			if exportStore {
				export, err := service.StoreExport(context.Background(), tag, exportQuery, exportFields)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows saved to %s\n", export.Rows, export.URL)
				return nil
			}

			var out io.Writer = cmd.OutOrStdout()
			if exportOut != "" {
				file, err := os.Create(exportOut)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}

			rows, err := service.Export(out, tag, exportQuery, exportFields)
			if err != nil {
				return err
			}
			if exportOut != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d rows written to %s\n", rows, exportOut)
			}
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [tag...]",
	Short: "Replace tables with the upstream backend's datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTables(func(service *tables.TableService) error {
			return service.SyncAll(cmd.Context(), args)
		})
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields [tag]",
	Short: "Print the search fields of a table, or of every table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		registry := appmodules.GetSearchRegistry(config.NewConfig())
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			if !registry.Has(args[0]) {
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown table %q, using the %s fallback\n", args[0], registry.Policy())
			}
			for _, field := range registry.Fields(args[0]) {
				fmt.Fprintln(out, field)
			}
			return nil
		}

		for _, tag := range registry.Tags() {
			fmt.Fprintf(out, "%s: %s\n", tag, strings.Join(registry.Fields(tag), ", "))
		}
		return nil
	},
}

var (
	tokenName string
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := New(verbose).Bootstrap()
		defer app.Stop()

		if app.config.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		token, err := app.auth.IssueToken(args[0], tokenName, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// withTables bootstraps the application and hands fn the table service
func withTables(fn func(*tables.TableService) error) error {
	app := New(verbose).Bootstrap()
	defer app.Stop()

	service, err := app.tables()
	if err != nil {
		return err
	}
	return fn(service)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log startup details")

	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace the table instead of appending")

	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Filter query")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "Comma-separated field paths to search")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportStore, "store", false, "Save the export through the configured storage")

	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "Viewer", "Role name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(serveCmd, importCmd, exportCmd, syncCmd, fieldsCmd, tokenCmd)
}
