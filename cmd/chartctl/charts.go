package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gak/gochartapi/internal/batch"
	"github.com/gak/gochartapi/internal/datasource"
	"github.com/gak/gochartapi/internal/grammar"
	"github.com/gak/gochartapi/internal/infra"
	"github.com/gak/gochartapi/internal/logging"
	"github.com/gak/gochartapi/pkg/chart"
)

// --- URL Command ---

var urlCmd = &cobra.Command{
	Use:   "url [type]",
	Short: "Build a chart URL from flags or a definition file",
	Long: `Build a chart URL from flags or from a YAML/JSON definition file.

Examples:
  chartctl url SimpleLine --data 1,5,2,8 --title Visitors
  chartctl url GroupedVerticalBar --data 1,2,3 --data 3,2,1 --legend a,b
  chartctl url Pie3D --data 30,70 --labels yes,no --out pie.png
  chartctl url -f chart.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		out, _ := cmd.Flags().GetString("out")

		var (
			c   *chart.Chart
			err error
		)
		switch {
		case file != "":
			c, err = chartFromFile(file)
		case len(args) == 1:
			c, err = chartFromFlags(cmd, args[0])
		default:
			return fmt.Errorf("provide a chart type or --file")
		}
		if err != nil {
			return err
		}
		return emit(cmd, c, out)
	},
}

func init() {
	urlCmd.Flags().StringP("file", "f", "", "YAML or JSON chart definition")
	urlCmd.Flags().StringArray("data", nil, "comma-separated dataset, '_' marks a missing value (repeatable)")
	urlCmd.Flags().String("title", "", "chart title")
	urlCmd.Flags().StringSlice("legend", nil, "legend entries, one per dataset")
	urlCmd.Flags().StringSlice("colours", nil, "dataset colours as RRGGBB[AA]")
	urlCmd.Flags().StringSlice("labels", nil, "pie slice labels")
	urlCmd.Flags().String("x-range", "", "x scaling range as lower,upper")
	urlCmd.Flags().String("y-range", "", "y scaling range as lower,upper")
	urlCmd.Flags().String("encoding", "", "force simple, text or extended encoding")
	urlCmd.Flags().Bool("no-auto-scale", false, "encode values as given without scaling")
	addSizeFlags(urlCmd)
	addOutFlag(urlCmd)
}

func chartFromFile(path string) (*chart.Chart, error) {
	def, err := grammar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return buildChart(def)
}

func newBuilder() (*grammar.Builder, error) {
	opts, err := baseOptions()
	if err != nil {
		return nil, err
	}
	return &grammar.Builder{
		Width:   cfg.Chart.Width,
		Height:  cfg.Chart.Height,
		Options: opts,
		Logger:  logging.Get(),
	}, nil
}

func buildChart(def *grammar.Definition) (*chart.Chart, error) {
	b, err := newBuilder()
	if err != nil {
		return nil, err
	}
	return b.Build(def)
}

// chartFromFlags maps the url command flags onto the same definition
// the grammar accepts, so both paths build identical charts.
func chartFromFlags(cmd *cobra.Command, chartType string) (*chart.Chart, error) {
	def := &grammar.Definition{Type: chartType}
	def.W, def.H = size(cmd)
	def.Title, _ = cmd.Flags().GetString("title")
	def.Legend, _ = cmd.Flags().GetStringSlice("legend")
	def.Colours, _ = cmd.Flags().GetStringSlice("colours")
	def.Labels, _ = cmd.Flags().GetStringSlice("labels")
	def.Encoding, _ = cmd.Flags().GetString("encoding")
	if noScale, _ := cmd.Flags().GetBool("no-auto-scale"); noScale {
		off := false
		def.AutoScale = &off
	}

	var err error
	xr, _ := cmd.Flags().GetString("x-range")
	if def.XRange, err = parseRange(xr); err != nil {
		return nil, fmt.Errorf("--x-range: %w", err)
	}
	yr, _ := cmd.Flags().GetString("y-range")
	if def.YRange, err = parseRange(yr); err != nil {
		return nil, fmt.Errorf("--y-range: %w", err)
	}

	rows, _ := cmd.Flags().GetStringArray("data")
	for _, row := range rows {
		values, err := parseValues(row)
		if err != nil {
			return nil, fmt.Errorf("--data %q: %w", row, err)
		}
		def.Data = append(def.Data, values)
	}
	return buildChart(def)
}

// parseValues reads "1,2,_,4" into definition values; "_" and empty
// entries are missing.
func parseValues(s string) ([]*float64, error) {
	parts := strings.Split(s, ",")
	out := make([]*float64, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "_" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out[i] = &v
	}
	return out, nil
}

func parseRange(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("want lower,upper, got %q", s)
	}
	l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return nil, err
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return nil, err
	}
	return []float64{l, h}, nil
}

// --- QR Command ---

var qrCmd = &cobra.Command{
	Use:   "qr [text]",
	Short: "Build a QR code chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		level, _ := cmd.Flags().GetString("ec-level")
		margin, _ := cmd.Flags().GetInt("margin")
		enc, _ := cmd.Flags().GetString("output-encoding")

		opts, err := baseOptions()
		if err != nil {
			return err
		}
		w, h := size(cmd)
		c, err := chart.New(chart.QR, w, h, opts...)
		if err != nil {
			return err
		}
		if err := c.AddText(args[0]); err != nil {
			return err
		}
		if err := c.SetOutputEncoding(enc); err != nil {
			return err
		}
		if cmd.Flags().Changed("ec-level") || cmd.Flags().Changed("margin") {
			if err := c.SetErrorCorrection(level, margin); err != nil {
				return err
			}
		}
		return emit(cmd, c, out)
	},
}

func init() {
	qrCmd.Flags().String("ec-level", "L", "error correction level: L, M, Q or H")
	qrCmd.Flags().Int("margin", 4, "quiet zone width in modules")
	qrCmd.Flags().String("output-encoding", "", "UTF-8, Shift_JIS or ISO-8859-1")
	addSizeFlags(qrCmd)
	addOutFlag(qrCmd)
}

// --- Render Command ---

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Download every chart of a render document",
	Long: `Download every chart of a render document concurrently. The document
maps output names to chart definitions:

  charts:
    visitors:
      type: SimpleLine
      data: [[1, 5, 2, 8]]

Each chart is saved as <name>.png in the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		charts, err := grammar.ParseDocumentFile(args[0])
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("out-dir")
		if dir == "" {
			dir = cfg.Render.OutputDir
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency == 0 {
			concurrency = cfg.Render.Concurrency
		}

		b, err := newBuilder()
		if err != nil {
			return err
		}
		r := &batch.Renderer{
			Builder:     b,
			OutputDir:   dir,
			Concurrency: concurrency,
			Logger:      logging.Get(),
		}
		var results []batch.Result
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			results, err = r.URLs(charts)
		} else {
			client, cerr := newClient()
			if cerr != nil {
				return cerr
			}
			r.Fetcher = client
			results, err = r.Render(cmd.Context(), charts)
		}
		for _, res := range results {
			switch {
			case res.Err != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", res.Name, res.Err)
			case res.Path != "":
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s -> %s (%s)\n", res.Name, res.Path, res.Duration.Round(time.Millisecond))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Name, res.URL)
			}
		}
		return err
	},
}

func init() {
	renderCmd.Flags().String("out-dir", "", "output directory (default from config)")
	renderCmd.Flags().Int("concurrency", 0, "parallel downloads (default from config)")
	renderCmd.Flags().Bool("dry-run", false, "print the URLs without downloading")
}

// --- XLSX Command ---

var xlsxCmd = &cobra.Command{
	Use:   "xlsx [workbook]",
	Short: "Chart columns of a spreadsheet",
	Long: `Chart numeric columns of a spreadsheet. The first row holds the column
headers, which become the legend. Blank or non-numeric cells are missing.

Examples:
  chartctl xlsx sales.xlsx --columns North,South
  chartctl xlsx sales.xlsx --sheet 2025 --type GroupedVerticalBar -o sales.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, _ := cmd.Flags().GetString("sheet")
		columns, _ := cmd.Flags().GetStringSlice("columns")
		chartType, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		out, _ := cmd.Flags().GetString("out")

		tbl, err := datasource.ReadXLSX(args[0], sheet, columns...)
		if err != nil {
			return err
		}
		v, err := chart.Lookup(chartType)
		if err != nil {
			return err
		}
		opts, err := baseOptions()
		if err != nil {
			return err
		}
		w, h := size(cmd)
		c, err := chart.New(v, w, h, append(opts, chart.WithTitle(title))...)
		if err != nil {
			return err
		}
		tbl.Apply(c)
		return emit(cmd, c, out)
	},
}

func init() {
	xlsxCmd.Flags().String("sheet", "", "sheet name (default: first sheet)")
	xlsxCmd.Flags().StringSlice("columns", nil, "column headers to chart (default: all)")
	xlsxCmd.Flags().String("type", "SimpleLine", "chart type")
	xlsxCmd.Flags().String("title", "", "chart title")
	addSizeFlags(xlsxCmd)
	addOutFlag(xlsxCmd)
}

// --- Feed Command ---

var feedCmd = &cobra.Command{
	Use:   "feed [url]",
	Short: "Chart how many items an RSS or Atom feed published per day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		chartType, _ := cmd.Flags().GetString("type")
		out, _ := cmd.Flags().GetString("out")

		v, err := chart.Lookup(chartType)
		if err != nil {
			return err
		}
		reader := datasource.NewFeedReader(
			&http.Client{Timeout: cfg.HTTP.Timeout},
			cfg.HTTP.UserAgent,
			infra.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow),
		)
		feed, err := reader.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		activity := datasource.DailyActivity(feed, days, time.Now())
		logging.With(logging.Get().Info(), logging.Component("feed"),
			logging.URL(args[0]), logging.Int("items", activity.Total())).Msg("feed activity counted")

		opts, err := baseOptions()
		if err != nil {
			return err
		}
		w, h := size(cmd)
		c, err := activity.Chart(v, w, h, opts...)
		if err != nil {
			return err
		}
		return emit(cmd, c, out)
	},
}

func init() {
	feedCmd.Flags().Int("days", 7, "number of days ending today")
	feedCmd.Flags().String("type", "StackedVerticalBar", "chart type")
	addSizeFlags(feedCmd)
	addOutFlag(feedCmd)
}
