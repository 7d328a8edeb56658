// Command occurrences runs one species lookup and prints the geolocated
// records as a GeoJSON FeatureCollection on stdout.
//
// Exit status is 0 on success, 2 when the species is unknown or has no
// records, and 1 on any other error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/occurrence-explorer/internal/aggregate/geojsonagg"
	"github.com/mohammed-shakir/occurrence-explorer/internal/app"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/config"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/logger"
	"github.com/mohammed-shakir/occurrence-explorer/internal/pipeline"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNoResult = 2
)

type runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

func main() {
	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{
		Level:     cfg.Log.Level,
		Console:   true,
		Service:   "occurrence-explorer",
		Component: "cli",
	}, os.Stderr)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], cfg, log, app.NewPipeline(cfg, log), os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, cfg config.Config, log *slog.Logger, p runner, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("occurrences", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("species", "Smooth newt", "species name to look up")
	by := fs.String("by", string(model.CommonName), "name field: commonName|scientificName")
	yearFrom := fs.Int("year-from", cfg.DefaultYearFrom, "earliest record year; 0 for no floor")
	pageSize := fs.Int("page-size", cfg.DefaultPageSize, "records per upstream page")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	field, err := model.ParseNameField(*by)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if *pageSize <= 0 {
		fmt.Fprintf(stderr, "page-size must be positive (got %d)\n", *pageSize)
		return exitError
	}
	req := pipeline.Request{Name: *name, Field: field, PageSize: *pageSize}
	if *yearFrom > 0 {
		y := *yearFrom
		req.YearFrom = &y
	}

	res, err := p.Run(ctx, req)
	switch {
	case errors.Is(err, pipeline.ErrSpeciesNotFound):
		fmt.Fprintln(stderr, "Species not found on NBN Atlas.")
		return exitNoResult
	case errors.Is(err, pipeline.ErrNoRecords):
		fmt.Fprintf(stderr, "Found TVK: %s\nNo occurrence records returned.\n", res.TVK)
		return exitNoResult
	case err != nil:
		fmt.Fprintf(stderr, "Error fetching data: %v\n", err)
		return exitError
	}

	body, err := geojsonagg.Encode(res.Geo)
	if err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return exitError
	}
	if _, err := stdout.Write(append(body, '\n')); err != nil {
		return exitError
	}
	log.Info("fetch complete",
		"species", req.Name,
		"tvk", res.TVK,
		"fetched", res.Fetched,
		"geolocated", res.Geo.Len(),
		"dropped", res.Dropped,
		"took", res.Duration)
	return exitOK
}
