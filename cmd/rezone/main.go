package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-rezone/internal/config"
	"github.com/joeblew999/plat-rezone/internal/server"
)

const version = "0.1.0"

// Options defines all CLI flags and env vars for the rezone server.
// Flags: --host, --port, --config, --store
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, SERVICE_STORE
type Options struct {
	Host   string `doc:"Host to bind to" default:"0.0.0.0"`
	Port   int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config string `doc:"Path to rezone.yaml (default: ./rezone.yaml when present)" short:"c"`
	Store  bool   `doc:"Mirror attributes into an in-memory DuckDB for SQL queries" default:"true"`
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServer(ctx context.Context, opts *Options, skipDatasets bool) (*server.Server, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return server.New(ctx, server.Config{
		Host:         opts.Host,
		Port:         strconv.Itoa(opts.Port),
		Version:      version,
		App:          cfg,
		Store:        opts.Store,
		SkipDatasets: skipDatasets,
	})
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())
		var httpServer *http.Server

		hooks.OnStart(func() {
			defer cancel()
			srv, err := newServer(ctx, opts, false)
			if err != nil {
				fatal(err)
			}
			defer srv.Close() //nolint:errcheck
			defer zap.L().Sync() //nolint:errcheck

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-rezone viewer starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Mode:    %s\n", srv.Viewer().State().Mode)
			for _, s := range srv.Viewer().Sources() {
				status := fmt.Sprintf("%d features", s.Features)
				if !s.Loaded {
					status = "FAILED: " + s.Error
				}
				fmt.Printf("  Source:  %-8s %s (%s)\n", s.Name, s.Path, status)
			}
			fmt.Println()
			fmt.Printf("  Pages:   %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			if httpServer == nil {
				return
			}
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("shutdown", zap.Error(err))
			}
		})
	})

	cli.Root().Use = "rezone"
	cli.Root().Short = "NYC rezoning choropleth viewer"
	cli.Root().Version = version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = false
			srv, err := newServer(cmd.Context(), opts, true)
			if err != nil {
				fatal(err)
			}
			defer srv.Close() //nolint:errcheck
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal(fmt.Errorf("marshal spec: %w", err))
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// classify subcommand: run zoning codes through the classifier
	classifyCmd := &cobra.Command{
		Use:     "classify <code>...",
		Short:   "Print the use category and residential FAR baseline of zoning codes",
		Example: "  rezone classify M1-4/R7A M3-1 R6A PARK",
		Args:    cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				fatal(err)
			}
			a := cfg.Annotator()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tCATEGORY\tFAR")
			for _, code := range args {
				far := "-"
				if v, ok := a.FAR.Lookup(code); ok {
					far = strconv.FormatFloat(v, 'f', -1, 64)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", code, a.Classifier.Classify(code), far)
			}
			_ = w.Flush()
		}),
	}
	cli.Root().AddCommand(classifyCmd)

	cli.Run()
}
