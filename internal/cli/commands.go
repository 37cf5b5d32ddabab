package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ollamachat/internal/config"
	"ollamachat/internal/db"
	"ollamachat/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models offered by the bridge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.Timeout)
		defer cancel()

		ids, err := newDirectory(cfg, logger).ListModels(ctx)
		if err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		return printModels(cmd.OutOrStdout(), ids)
	},
}

func printModels(out io.Writer, ids []models.ModelID) error {
	if len(ids) == 0 {
		_, err := fmt.Fprintln(out, "No models available.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tNAME")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\n", id, models.DisplayName(id))
	}
	return w.Flush()
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print archived messages from the local transcript archive",
	Long: `Print archived messages for a model. Without --model, list the models
that have archived messages. The archive must be enabled with --archive,
archive.path in the config file or OLLAMACHAT_ARCHIVE_PATH.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, closer, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		archive, err := openArchive(cfg)
		if err != nil {
			return fmt.Errorf("failed to open transcript archive: %w", err)
		}
		if archive == nil {
			return errors.New("transcript archive is disabled; set archive.path")
		}
		defer archive.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Archive.Limit
		}

		out := cmd.OutOrStdout()
		if cfg.Model == "" {
			summaries, err := db.ArchivedModels(archive)
			if err != nil {
				return err
			}
			return printArchiveSummaries(out, summaries)
		}

		msgs, err := db.RecentMessages(archive, models.ModelID(cfg.Model), limit)
		if err != nil {
			return err
		}
		return printTranscript(out, models.ModelID(cfg.Model), msgs)
	},
}

func printArchiveSummaries(out io.Writer, items []models.ArchiveSummary) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "Archive is empty.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMESSAGES\tLAST USED")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%d\t%s\n", it.Model, it.Count, formatUnix(it.UpdatedAtUnix))
	}
	return w.Flush()
}

func printTranscript(out io.Writer, model models.ModelID, msgs []models.ArchivedMessage) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintf(out, "No archived messages for %s.\n", model)
		return err
	}

	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		speaker := "You"
		if m.Role == models.RoleAssistant {
			speaker = models.DisplayName(m.Model)
		}
		fmt.Fprintf(out, "[%s] %s:\n%s\n", formatUnix(m.CreatedAtUnix), speaker, strings.TrimRight(m.Content, "\n"))
	}
	return nil
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Local().Format("2006-01-02 15:04")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ollamachat %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	transcriptCmd.Flags().String("model", "", "model whose transcript to print")
	transcriptCmd.Flags().Int("limit", 0, fmt.Sprintf("number of most recent messages (default %d)", config.DefaultConfig().Archive.Limit))
}
