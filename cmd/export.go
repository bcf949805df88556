package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/engine"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the final mix as a WAV file",
	Long: `Write the mix as a 16-bit PCM WAV file: the bounced master when one
exists, otherwise a live mix of the current tracks. Export never changes
the session.

Without a file argument a timestamped name is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := engine.ExportFilename(time.Now())
		if len(args) == 1 {
			path = args[0]
		}

		e, closeEngine, err := openEngine(false)
		if err != nil {
			return err
		}
		defer closeEngine()

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}

		if err := e.Export(cmd.Context(), f); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("export failed: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}

		slog.Info("Export complete", "file", path)
		fmt.Printf("✅ Mix exported to %s\n", path)
		return nil
	},
}
