package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adr-causality-server/internal/config"
	"github.com/adr-causality-server/internal/domain"
	"github.com/adr-causality-server/internal/review"
	"github.com/adr-causality-server/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "adrctl",
	Short: "ADR causality assessment CLI",
	Long: `adrctl runs the WHO-UMC and Naranjo causality engine against adverse drug
reaction case files and manages the staff reviews recorded next to its suggestions.
Suggestions are advisory; the final category is always chosen by medical staff.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ADR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	defaults := config.DefaultLiteConfig()
	rootCmd.PersistentFlags().String("data-dir", defaults.DataDir, "directory holding reviews.db")
	rootCmd.PersistentFlags().String("keywords-file", "", "YAML keyword vocabularies")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
	_ = viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("keywords-file", rootCmd.PersistentFlags().Lookup("keywords-file"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(statusCmd())

	reviews := &cobra.Command{Use: "reviews", Short: "Manage staff reviews"}
	reviews.AddCommand(reviewsListCmd())
	reviews.AddCommand(reviewsExportCmd())
	reviews.AddCommand(reviewsImportCmd())
	rootCmd.AddCommand(reviews)
}

func newLogger() *logrus.Logger {
	return config.NewLogger(viper.GetString("log-level"), "text")
}

func newAssessor(logger *logrus.Logger) (*service.AssessmentService, error) {
	keywords, err := config.LoadKeywordSets(viper.GetString("keywords-file"))
	if err != nil {
		return nil, err
	}
	engine, err := service.NewCausalityEngine(logger, keywords, domain.DefaultCausalityPolicy())
	if err != nil {
		return nil, err
	}
	return service.NewAssessmentService(logger, engine, nil, nil), nil
}

func withReviewStore(ctx context.Context, fn func(ctx context.Context, store review.Store) error) error {
	cfg := &config.LiteConfig{DataDir: viper.GetString("data-dir")}
	store, err := review.NewSQLiteStore(cfg.ReviewDBPath(), newLogger())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func assessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <case.json>",
		Short: "Assess causality for a case file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readCase(args[0])
			if err != nil {
				return err
			}
			assessor, err := newAssessor(newLogger())
			if err != nil {
				return err
			}
			suggestion, err := assessor.Assess(cmd.Context(), c)
			if err != nil {
				if ve, ok := domain.AsValidationError(err); ok {
					return fmt.Errorf("invalid case: %s: %s", ve.Field, ve.Message)
				}
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), suggestion)
			}
			renderSuggestion(cmd.OutOrStdout(), suggestion)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine version, features and policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			assessor, err := newAssessor(newLogger())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), assessor.Status())
		},
	}
}

func reviewsListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staff reviews, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReviewStore(cmd.Context(), func(ctx context.Context, store review.Store) error {
				reviews, err := store.List(ctx, limit, offset)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), reviews)
				}
				renderReviews(cmd.OutOrStdout(), reviews)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum reviews to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "reviews to skip")
	return cmd
}

func reviewsExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all reviews as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReviewStore(cmd.Context(), func(ctx context.Context, store review.Store) error {
				if out == "" || out == "-" {
					return store.ExportJSON(ctx, cmd.OutOrStdout())
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := store.ExportJSON(ctx, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported reviews to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func reviewsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import reviews from a JSON export, skipping known report codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withReviewStore(cmd.Context(), func(ctx context.Context, store review.Store) error {
				imported, skipped, err := store.ImportJSON(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
				return nil
			})
		},
	}
}

func readCase(path string) (*domain.Case, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return decodeCase(r)
}

func decodeCase(r io.Reader) (*domain.Case, error) {
	var c domain.Case
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	return &c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
