package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresuchdata/stockcast/internal/app"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/drive"
	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// withApp builds the application for one command and closes it afterwards.
func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		// Initialize services
		a, err := app.New(c.Context, config.Load())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	// Register commands
	cliApp := &cli.App{
		Name:  "stockctl",
		Usage: "Stock forecasting maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Print the forecast of every product, or one product with --sku",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sku", Usage: "Only forecast this SKU (prints the full series as JSON)"},
					&cli.BoolFlag{Name: "critical-only", Usage: "Only list products with a predicted crossing"},
				},
				Action: withApp(runForecast),
			},
			{
				Name:   "alerts",
				Usage:  "Scan every product and publish stock.critical events",
				Action: withApp(runAlerts),
			},
			{
				Name:   "history",
				Usage:  "Append today's warehouse quantities to the history tab",
				Action: withApp(runHistory),
			},
			{
				Name:   "snapshot",
				Usage:  "Compute a forecast run and store it in Postgres",
				Action: withApp(runSnapshot),
			},
			{
				Name:  "export",
				Usage: "Compute a forecast run and upload it as CSV to object storage",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "record", Usage: "Also store the run in Postgres"},
					&cli.BoolFlag{Name: "list", Usage: "List previous exports instead of creating one"},
				},
				Action: withApp(runExport),
			},
			{
				Name:  "pull",
				Usage: "Download the stock workbook from Google Drive",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Drive folder path", Value: cfg.Drive.FolderPath},
					&cli.StringFlag{Name: "file", Usage: "Workbook file name", Value: cfg.Drive.FileName},
					&cli.StringFlag{Name: "dest", Usage: "Local destination", Value: cfg.DataSource.WorkbookPath},
				},
				Action: runPull,
			},
			{
				Name:  "migrate",
				Usage: "Create the forecast snapshot tables",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if a.DB == nil {
						return fmt.Errorf("database is disabled; set DB_ENABLED=true")
					}
					return a.DB.Migrate(c.Context)
				}),
			},
		},
	}

	// Run command
	if err := cliApp.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("stockctl failed")
	}
}

func runForecast(c *cli.Context, a *app.App) error {
	if sku := c.String("sku"); sku != "" {
		f, err := a.Forecasts.ForSKU(c.Context, sku)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}

	all, err := a.Forecasts.All(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tSTOCK\tMIN\tRATE/MONTH\tCRITICAL")
	for _, f := range all {
		if c.Bool("critical-only") && f.Result.Critical == nil {
			continue
		}
		minAmount, critical := "-", "-"
		if f.Result.MinAmount != nil {
			minAmount = fmt.Sprint(*f.Result.MinAmount)
		}
		if cp := f.Result.Critical; cp != nil {
			critical = fmt.Sprintf("%s (%.0f)", normalize.FormatDate(cp.Date), cp.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\t%s\n",
			f.Product.SKU, f.Product.Name, f.Product.WarehouseQuantity, minAmount, f.Result.DeclineRate*30, critical)
	}
	return w.Flush()
}

func runAlerts(c *cli.Context, a *app.App) error {
	events, err := a.Alerts.Scan(c.Context)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%d days\n", e.SKU, e.Name, normalize.FormatDate(e.CriticalDate), e.DaysUntil)
	}
	return nil
}

func runHistory(c *cli.Context, a *app.App) error {
	n, err := a.Inventory.SnapshotHistory(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "appended %d history rows\n", n)
	return nil
}

func runSnapshot(c *cli.Context, a *app.App) error {
	run, err := a.Snapshots.Record(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "run %s: %d products, %d critical\n", run.ID, len(run.Summaries), run.Critical())
	return nil
}

func runExport(c *cli.Context, a *app.App) error {
	if c.Bool("list") {
		objects, err := a.Snapshots.Exports(c.Context)
		if err != nil {
			return err
		}
		for _, o := range objects {
			fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04"))
		}
		return nil
	}

	var (
		run *service.Run
		err error
	)
	if c.Bool("record") {
		run, err = a.Snapshots.Record(c.Context)
	} else {
		run, err = a.Snapshots.Compute(c.Context)
	}
	if err != nil {
		return err
	}
	key, err := a.Snapshots.Export(c.Context, run)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported run %s to %s\n", run.ID, key)
	return nil
}

func runPull(c *cli.Context) error {
	cfg := config.Load()
	svc, err := drive.NewService(c.Context, cfg.DataSource.CredentialsJSON)
	if err != nil {
		return err
	}
	f, err := drive.NewPuller(svc).Pull(c.Context, drive.PullOptions{
		FolderPath: c.String("folder"),
		FileName:   c.String("file"),
		Dest:       c.String("dest"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pulled %s (modified %s) to %s\n", f.Name, f.ModifiedTime, c.String("dest"))
	return nil
}
