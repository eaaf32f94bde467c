// Command render draws one chart from the configured customer dataset without
// starting any server. The dataset is configured through the same environment
// variables as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/godilite/customerviz/internal/app"
	"github.com/godilite/customerviz/internal/config"
	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/service"
	"github.com/godilite/customerviz/pkg/render"
)

func main() {
	var (
		filters     string
		categorical string
		numeric     string
		frequency   bool
		mode        string
		kind        string
		format      string
		out         string
		asJSON      bool
	)
	flag.StringVar(&filters, "filter", "", "Comma-separated filter column values (empty means all rows)")
	flag.StringVar(&categorical, "categorical", "", "Categorical variable to group by")
	flag.StringVar(&numeric, "numeric", "", "Numeric variable to aggregate")
	flag.BoolVar(&frequency, "frequency", false, "Draw the frequency distribution of the categorical variable")
	flag.StringVar(&mode, "mode", "", "Aggregation: mean, sum or running sum")
	flag.StringVar(&kind, "kind", "", "Graph type: bar chart, pie chart or line chart")
	flag.StringVar(&format, "format", "png", "Image format: png or svg")
	flag.StringVar(&out, "out", "plot.png", "Output file ('-' for stdout)")
	flag.BoolVar(&asJSON, "json", false, "Write the figure JSON instead of an image")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.LoadFromEnv()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, service.PlotRequest{
		FilterValues:   splitFilters(filters),
		CategoricalVar: categorical,
		NumericVar:     numeric,
		ShowFrequency:  frequency,
		AggregateMode:  mode,
		ChartKind:      kind,
	}, format, out, asJSON); err != nil {
		logger.Fatal("render failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, req service.PlotRequest, format, out string, asJSON bool) error {
	ctx := context.Background()

	table, err := app.LoadDataset(ctx, cfg, logger)
	if err != nil {
		return err
	}
	schema, err := dataset.NewSchema(table, cfg.FilterColumn, cfg.ExcludedColumns)
	if err != nil {
		return err
	}
	fig, err := service.NewPlotService(table, schema, logger).GeneratePlot(ctx, req)
	if err != nil {
		return err
	}

	var body []byte
	if asJSON {
		body, err = json.MarshalIndent(fig, "", "  ")
	} else {
		var f render.Format
		if f, err = render.ParseFormat(format); err != nil {
			return err
		}
		body, err = render.New(render.WithLogger(logger)).Render(ctx, fig, f)
	}
	if err != nil {
		return err
	}

	if out == "-" {
		_, err = os.Stdout.Write(body)
		return err
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("chart written", zap.String("title", fig.Title()), zap.String("out", out))
	return nil
}

func splitFilters(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
