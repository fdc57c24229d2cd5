package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/shorturl/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shorturl/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shorturl/pkg/config"
	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/core/services"
	"github.com/wadjakorntonsri/shorturl/pkg/core/shortcode"
	"github.com/wadjakorntonsri/shorturl/pkg/logger"
)

// cli holds the lazily opened store shared by all subcommands.
type cli struct {
	cfg     *config.Config
	log     *zap.Logger
	repo    *sqlite.SQLiteRepository
	service *services.URLService
}

func (c *cli) open(cmd *cobra.Command, _ []string) error {
	repo, err := sqlite.NewSQLiteRepository(c.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	c.repo = repo
	c.service = services.NewURLService(repo, services.Options{
		BaseURL:         c.cfg.BaseURL,
		ShortCodeLength: c.cfg.ShortCodeLength,
		MaxURLLength:    c.cfg.MaxURLLength,
		CustomRules: shortcode.CustomRules{
			MinLength: c.cfg.CustomAliasMinLength,
			MaxLength: c.cfg.CustomAliasMaxLength,
		},
		Logger: c.log,
	})
	return nil
}

func (c *cli) close(*cobra.Command, []string) error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}

func newRootCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	c := &cli{cfg: cfg, log: log}

	root := &cobra.Command{
		Use:                "shorturl",
		Short:              "Manage short URLs directly against the database",
		SilenceUsage:       true,
		PersistentPreRunE:  c.open,
		PersistentPostRunE: c.close,
	}
	root.PersistentFlags().StringVar(&cfg.DatabaseURL, "db-url", cfg.DatabaseURL, "database URL (file path or libsql://)")

	root.AddCommand(c.exportCmd(), c.importCmd(), c.shortenCmd(), c.statsCmd())
	return root
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every URL record as JSON to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			urls, err := c.repo.Dump(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), urls)
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Insert URL records from a JSON export, skipping codes that exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			imported, skipped, err := importURLs(cmd.Context(), c.repo, f, c.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d URLs, skipped %d\n", imported, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// importURLs keeps codes, targets, timestamps and counters but lets the store assign ids.
// Click history is not part of an export.
func importURLs(ctx context.Context, repo *sqlite.SQLiteRepository, r io.Reader, log *zap.Logger) (int, int, error) {
	var urls []domain.URL
	if err := json.NewDecoder(r).Decode(&urls); err != nil {
		return 0, 0, fmt.Errorf("decode failed: %w", err)
	}

	imported, skipped := 0, 0
	for i := range urls {
		u := urls[i]
		u.ID = 0
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		err := repo.Create(ctx, &u)
		switch {
		case errors.Is(err, domain.ErrDuplicateCode):
			log.Info("Skipping existing code", zap.String("short_code", u.ShortCode))
			skipped++
		case err != nil:
			return imported, skipped, fmt.Errorf("failed to import %s: %w", u.ShortCode, err)
		default:
			imported++
		}
	}
	return imported, skipped, nil
}

func (c *cli) shortenCmd() *cobra.Command {
	var code, expires string
	cmd := &cobra.Command{
		Use:   "shorten <url>",
		Short: "Create a short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiresAt *time.Time
			if expires != "" {
				t, err := handler.ParseExpiry(expires)
				if err != nil {
					return err
				}
				expiresAt = &t
			}

			created, err := c.service.CreateShortURL(cmd.Context(), args[0], code, expiresAt)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "custom short code")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry as ISO 8601, e.g. 2030-01-01T00:00:00Z")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <short_code>",
		Short: "Show click statistics for a short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.service.GetURLStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	cfg := config.Load()
	log, err := logger.Init(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := newRootCmd(cfg, log).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
