//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/aerodw"
	"github.com/aaronlmathis/aerodw/config"
	"github.com/aaronlmathis/aerodw/core"
	"github.com/aaronlmathis/aerodw/load"
	"github.com/aaronlmathis/aerodw/metrics"
	"github.com/aaronlmathis/aerodw/readers"
	"github.com/aaronlmathis/aerodw/transform"
	"github.com/aaronlmathis/aerodw/validators"
	"github.com/aaronlmathis/aerodw/warehouse"
)

type runFlags struct {
	noBusinessRules bool
	sink            string
	out             string
}

func newRunCommand(configPath *string) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform, validate and load the warehouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			return runWarehouse(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&flags.noBusinessRules, "no-business-rules", false, "disable overlap rejection and chronology repair")
	cmd.Flags().StringVar(&flags.sink, "sink", "", "sink kind: none, postgres, parquet or json")
	cmd.Flags().StringVar(&flags.out, "out", "", "output directory for parquet and json sinks")
	return cmd
}

// apply overrides the loaded configuration with command line flags.
func (f runFlags) apply(cfg *config.Config) error {
	if f.noBusinessRules {
		cfg.Transform.ApplyBusinessRules = false
	}
	if f.sink != "" {
		cfg.Sink.Kind = f.sink
	}
	if f.out != "" {
		cfg.Sink.Dir = f.out
		cfg.Sink.S3.Bucket = ""
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return cfg.ValidateSources()
}

func runWarehouse(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	collector := metrics.NewCollector("aerodw")
	if cfg.Metrics.Addr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, collector, logger)
		defer stopMetrics()
	}

	db, err := readers.OpenPostgres(cfg.Sources.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	sources, err := openSources(ctx, cfg, db)
	if err != nil {
		closeAll(sources)
		return err
	}

	location, err := newLocation(cfg)
	if err != nil {
		closeAll(sources)
		return err
	}

	strategy, err := cfg.Transform.Strategy()
	if err != nil {
		closeAll(sources)
		return err
	}
	transformer := transform.New(
		transform.WithBusinessRules(cfg.Transform.ApplyBusinessRules),
		transform.WithLogger(logger),
		transform.WithMetrics(collector),
		transform.WithErrorStrategy(strategy),
		transform.WithExpectedTotals(transform.Totals{
			Flights:     cfg.Transform.Expected.Flights,
			Maintenance: cfg.Transform.Expected.Maintenance,
			Reports:     cfg.Transform.Expected.Reports,
		}),
	)

	builder := aerodw.NewRun().
		Aircraft(sources.Aircraft).
		Reporteurs(sources.Reporteurs).
		Flights(sources.Flights).
		Maintenance(sources.Maintenance).
		Reports(sources.Reports).
		WithTransformer(transformer).
		WithValidator(&validators.WarehouseValidator{
			Strict:           cfg.Transform.Strict,
			NonNegativeHours: cfg.Transform.ApplyBusinessRules,
			MaxLogged:        20,
		}).
		WithLogger(logger).
		WithMetrics(collector)
	if location != nil {
		builder = builder.To(location)
	}

	run, err := builder.Build()
	if err != nil {
		closeAll(sources)
		return err
	}

	logger.Info("run started", "business_rules", cfg.Transform.ApplyBusinessRules, "sink", cfg.Sink.Kind)
	result, err := run.Execute(ctx)
	if err != nil {
		return err
	}

	printSummary(stdout, result, run.Loaded())
	return nil
}

func openSources(ctx context.Context, cfg *config.Config, db *sqlx.DB) (transform.Sources, error) {
	var sources transform.Sources

	aircraft, err := openFeed(ctx, cfg.Sources.Aircraft)
	if err != nil {
		return sources, fmt.Errorf("aircraft feed: %w", err)
	}
	sources.Aircraft = aircraft

	personnel, err := openFeed(ctx, cfg.Sources.Personnel)
	if err != nil {
		return sources, fmt.Errorf("personnel feed: %w", err)
	}
	sources.Reporteurs = personnel

	pg := cfg.Sources.Postgres
	flights, err := readers.NewPostgresReader(readers.WithPostgresDB(db), readers.WithPostgresQuery(pg.FlightsQuery))
	if err != nil {
		return sources, fmt.Errorf("flights: %w", err)
	}
	sources.Flights = flights

	maintenance, err := readers.NewPostgresReader(readers.WithPostgresDB(db), readers.WithPostgresQuery(pg.MaintenanceQuery))
	if err != nil {
		return sources, fmt.Errorf("maintenance: %w", err)
	}
	sources.Maintenance = maintenance

	if mongo := cfg.Sources.Mongo; mongo.URI != "" {
		reports, err := readers.NewMongoReader(
			readers.WithMongoURI(mongo.URI),
			readers.WithMongoDB(mongo.Database),
			readers.WithMongoCollection(mongo.Collection),
		)
		if err != nil {
			return sources, fmt.Errorf("reports: %w", err)
		}
		sources.Reports = reports
		return sources, nil
	}

	reports, err := readers.NewPostgresReader(readers.WithPostgresDB(db), readers.WithPostgresQuery(pg.ReportsQuery))
	if err != nil {
		return sources, fmt.Errorf("reports: %w", err)
	}
	sources.Reports = reports
	return sources, nil
}

func openFeed(ctx context.Context, feed config.FeedConfig) (core.DataSource, error) {
	if feed.Path != "" {
		r, err := readers.NewCSVFileReader(feed.Path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := readers.NewS3Reader(ctx,
		readers.WithS3Bucket(feed.S3.Bucket),
		readers.WithS3Prefix(feed.S3.Key),
		readers.WithS3Region(feed.S3.Region),
		readers.WithS3Endpoint(feed.S3.Endpoint),
		readers.WithS3PathStyle(feed.S3.PathStyle),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// newLocation maps the sink configuration to a load.Location. The none sink
// returns a nil location.
func newLocation(cfg *config.Config) (load.Location, error) {
	sink := cfg.Sink
	switch sink.Kind {
	case config.SinkNone:
		return nil, nil
	case config.SinkPostgres:
		return load.PostgresLocation{DSN: sink.DSN, Truncate: sink.Truncate, BatchSize: sink.BatchSize}, nil
	}

	format, err := load.ParseFormat(sink.Kind)
	if err != nil {
		return nil, err
	}
	if sink.S3.Bucket != "" {
		return &load.S3Location{
			Bucket: sink.S3.Bucket,
			Prefix: sink.S3.Prefix,
			Format: format,
			ClientOptions: readers.S3ClientOptions{
				Region:         sink.S3.Region,
				EndpointURL:    sink.S3.Endpoint,
				ForcePathStyle: sink.S3.PathStyle,
			},
		}, nil
	}
	return load.DirLocation{Dir: sink.Dir, Format: format}, nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

func closeAll(sources transform.Sources) {
	for _, src := range []core.DataSource{sources.Aircraft, sources.Reporteurs, sources.Flights, sources.Maintenance, sources.Reports} {
		if src != nil {
			src.Close()
		}
	}
}

func printSummary(w io.Writer, result *transform.Result, loaded map[string]int) {
	counts := result.Tables.Counts()
	fmt.Fprintf(w, "%-16s %10s %10s\n", "table", "rows", "loaded")
	for _, name := range warehouse.LoadOrder {
		loadedCol := "-"
		if n, ok := loaded[name]; ok {
			loadedCol = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(w, "%-16s %10d %10s\n", name, counts[name], loadedCol)
	}
	s := result.Stats
	fmt.Fprintf(w, "cancelled=%d rejected_flights=%d swapped=%d rejected_maintenance=%d foreign_reports=%d skipped=%d duration=%s\n",
		s.Cancelled, s.RejectedFlights, s.Swapped, s.RejectedMaintenance, s.ForeignReports, s.Skipped, s.Duration.Round(time.Millisecond))
}
