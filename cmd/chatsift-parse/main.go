package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsift/internal/batch"
	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
)

var (
	cfg         batch.Config
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "chatsift-parse [flags] files...",
	Short:        "Parse chat exports into canonical message files",
	Long:         "Parse WhatsApp, Telegram, Instagram, Messenger, Snapchat and iMessage exports.\nWrites <name>.messages.json on success and <name>.parse-report.json on failure.",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runParse,
}

var detectCmd = &cobra.Command{
	Use:   "detect files...",
	Short: "Print the detected format of each file without parsing it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfg.SourceApp, "app", "a", "", "Declared source app (whatsapp, telegram, instagram, messenger, imessage, snapchat)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.Flags().StringVarP(&cfg.OutDir, "out", "o", "", "Output directory (default: next to each input)")
	rootCmd.Flags().IntVarP(&cfg.Concurrency, "concurrency", "c", runtime.NumCPU(), "Files parsed in parallel")
	rootCmd.Flags().BoolVarP(&cfg.Transcript, "transcript", "t", false, "Also write plain-text transcript chunks")

	rootCmd.AddCommand(detectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	lvl := slog.LevelInfo
	if flagVerbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runParse(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg.Files = args

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := batch.NewRunner(cfg, chatparse.New(), logger).Run(ctx)
	logger.Info("done",
		"parsed", summary.Parsed,
		"failed", summary.Failed,
		"invalid", summary.Invalid,
		"messages", summary.Messages,
	)
	if err != nil {
		return err
	}
	if n := summary.Failed + summary.Invalid; n > 0 {
		return fmt.Errorf("%d of %d file(s) could not be imported", n, len(args))
	}
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		det := chatparse.Detect(cfg.SourceApp, path, data)
		if err := enc.Encode(map[string]any{"file": path, "detection": det}); err != nil {
			return err
		}
	}
	return nil
}
