// Command calc runs calculator programs on top of the incremental query
// engine. In watch mode it re-evaluates on every save, demonstrating that
// only the queries reachable from the changed text re-execute.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/macovedj/salsa/pkg/calc"
	"github.com/macovedj/salsa/pkg/salsa"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "calc",
		Short: "An incremental calculator built on the salsa query engine",
		Long: `calc parses and evaluates a small calculator language:

  fn area(w, h) = w * h
  print area(3, 4)

Evaluation is demand-driven and memoized: in watch mode, saving the file
re-runs only the queries whose inputs actually changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		watch       bool
		metricsAddr string
		verbose     bool
	)
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Evaluate a program (from a file, or stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			opts := []salsa.Option{salsa.WithLogger(logger)}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				opts = append(opts, salsa.WithMetrics(calcMetrics(reg)))
				go serveMetrics(logger, metricsAddr, reg)
			}
			db := calc.NewDB(opts...)

			if len(args) == 0 {
				text, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return evalOnce(cmd.OutOrStdout(), db, "<stdin>", string(text))
			}

			file := args[0]
			text, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if err := evalOnce(cmd.OutOrStdout(), db, file, string(text)); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchLoop(cmd.OutOrStdout(), logger, db, file)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-evaluate on file changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable engine debug logging")
	return cmd
}

func calcMetrics(reg prometheus.Registerer) *salsa.Metrics {
	return salsa.NewMetrics(
		salsa.WithMetricsNamespace("calc"),
		salsa.WithMetricsRegistry(reg),
	)
}

func serveMetrics(logger *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func evalOnce(out io.Writer, db *calc.DB, file, text string) error {
	if err := db.SetText(file, text); err != nil {
		return fmt.Errorf("set %s: %w", file, err)
	}
	result, err := db.Eval.Try(db.Handle(), file)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", file, err)
	}
	for _, line := range result.Outputs {
		fmt.Fprintln(out, line)
	}
	for _, d := range calc.RenderDiags(text, result.Diags) {
		fmt.Fprintf(out, "%s: %s\n", file, d)
	}
	return nil
}

func watchLoop(out io.Writer, logger *slog.Logger, db *calc.DB, file string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", file, err)
	}
	defer watcher.Close()
	if err := watcher.Add(file); err != nil {
		return fmt.Errorf("watch %s: %w", file, err)
	}
	logger.Info("watching", "file", file)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			text, err := os.ReadFile(file)
			if err != nil {
				logger.Warn("reread failed", "error", err)
				continue
			}
			fmt.Fprintf(out, "--- %s\n", file)
			if err := evalOnce(out, db, file, string(text)); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("calc %s (%s)\n", version, commit)
		},
	}
}
