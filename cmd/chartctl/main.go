// chartctl builds Google Chart API URLs and downloads the rendered images.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gak/gochartapi/api"
	"github.com/gak/gochartapi/internal/config"
	"github.com/gak/gochartapi/internal/infra"
	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chartctl",
	Short: "Build Google Chart API URLs and download chart images",
	Long: `chartctl turns datasets into Google Chart API image URLs.

Charts can be described with flags, with YAML or JSON definition files,
or loaded from spreadsheets and feeds. Pass --out to download the PNG
instead of printing the URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			level = l
		}
		logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format, Output: os.Stderr})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(qrCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(xlsxCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chartctl %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Types Command ---

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the supported chart types",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tCODE")
		for _, tag := range chart.Types() {
			v, err := chart.Lookup(tag)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\n", tag, v.TypeCode())
		}
		return w.Flush()
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and where each value came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE\tENV")
		for _, s := range config.Describe(cfg) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Key, s.Value, s.Source, config.EnvVar(s.Key))
		}
		return w.Flush()
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server. POST a YAML or JSON chart definition to
/api/v1/url to get its URL. With --download, /api/v1/chart also fetches
and returns the rendered PNG.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.API.Host
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}

		b, err := newBuilder()
		if err != nil {
			return err
		}
		var fetcher chart.Fetcher
		if download, _ := cmd.Flags().GetBool("download"); download {
			client, err := newClient()
			if err != nil {
				return err
			}
			fetcher = client
		}

		addr := net.JoinHostPort(host, strconv.Itoa(port))
		fmt.Fprintf(cmd.ErrOrStderr(), "chartctl API listening on http://%s\n", addr)
		return api.NewServer(cfg, b, fetcher, logging.Get()).ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	serveCmd.Flags().Bool("download", false, "enable POST /api/v1/chart image downloads")
}

// --- Shared helpers ---

// baseOptions applies the configured endpoint, encoding and logger.
func baseOptions() ([]chart.Option, error) {
	opts := []chart.Option{
		chart.WithBaseURL(cfg.Chart.BaseURL),
		chart.WithLogger(logging.Get()),
	}
	if cfg.Chart.Encoding != "" {
		enc, err := chart.EncodingByName(cfg.Chart.Encoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chart.WithEncoding(enc))
	}
	return opts, nil
}

func newClient() (*infra.Client, error) {
	cc := infra.ConfigFrom(cfg.HTTP)
	cc.Logger = logging.Get()
	return infra.NewClient(cc)
}

// emit prints the chart URL, or downloads the image when out is set.
func emit(cmd *cobra.Command, c *chart.Chart, out string) error {
	if out == "" {
		u, err := c.URL()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := c.DownloadFile(cmd.Context(), client, out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
	return nil
}

func addOutFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "download the PNG to this path instead of printing the URL")
}

func addSizeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("width", 0, "image width in pixels (default from config)")
	cmd.Flags().Int("height", 0, "image height in pixels (default from config)")
}

func size(cmd *cobra.Command) (int, int) {
	w, _ := cmd.Flags().GetInt("width")
	h, _ := cmd.Flags().GetInt("height")
	if w == 0 {
		w = cfg.Chart.Width
	}
	if h == 0 {
		h = cfg.Chart.Height
	}
	return w, h
}
