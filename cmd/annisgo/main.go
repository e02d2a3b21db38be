package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/annisgo/pkg/corpus"
	"github.com/cuemby/annisgo/pkg/log"
	"github.com/cuemby/annisgo/pkg/metrics"
	"github.com/cuemby/annisgo/pkg/query"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "annisgo",
	Short:   "Query engine for annotated linguistic corpora",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("annisgo version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("data-dir", "./data", "Corpus storage root")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(queryCmd)

	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusDeleteCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func openManager(cmd *cobra.Command) (*corpus.Manager, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return corpus.New(dataDir)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the corpus manager and block until terminated",
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		m, err := openManager(cmd)
		if err != nil {
			return fmt.Errorf("open corpus manager: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/live", metrics.LivenessHandler())
		metrics.RegisterComponent("corpus-manager", true, "running")

		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Component("serve").Error().Err(err).Msg("metrics server stopped")
			}
		}()
		log.Component("serve").Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Component("serve").Info().Msg("shutting down")
		_ = srv.Close()
		return m.Shutdown()
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Listen address for /metrics and health endpoints")
}

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage corpora in a data directory",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpora present in the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer m.Shutdown()

		names, err := m.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var corpusDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a corpus and its on-disk data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer m.Shutdown()

		return m.Delete(args[0])
	},
}

var queryCmd = &cobra.Command{
	Use:   "query NAME AQL",
	Short: "Run an AQL query against a corpus and print its matches",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		countOnly, _ := cmd.Flags().GetBool("count")
		limit, _ := cmd.Flags().GetInt("limit")

		m, err := openManager(cmd)
		if err != nil {
			return err
		}
		defer m.Shutdown()

		store := query.NewStore(m)
		ctx := cmd.Context()
		corpusName, aqlQuery := args[0], args[1]

		if countOnly {
			count, err := store.Count(ctx, corpusName, aqlQuery)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		}

		results, err := store.Find(ctx, corpusName, aqlQuery, 0, limit, query.OrderNormal)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Println(r)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().Bool("count", false, "Print only the match count")
	queryCmd.Flags().Int("limit", -1, "Maximum number of matches to print (-1 for unlimited)")
}
