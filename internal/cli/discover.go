package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/pipeline"
	"github.com/forPelevin/clipforge/internal/types"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var (
		clips   int
		minSec  int
		maxSec  int
		prompt  string
		lang    string
		outPath string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "discover <source-key>",
		Short: "Propose highlight clip ranges for a source video",
		Long: "Discover transcribes the source, scores transcript windows and asks the ranking model\n" +
			"to pick the strongest clips. The result can be fed to 'render --clips-file'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if !fl.Changed("clips") {
				clips = cfg.Discovery.Clips
			}
			if !fl.Changed("min") {
				minSec = cfg.Discovery.MinClipSeconds
			}
			if !fl.Changed("max") {
				maxSec = cfg.Discovery.MaxClipSeconds
			}
			if !fl.Changed("prompt") {
				prompt = cfg.Discovery.Prompt
			}
			req := pipeline.DiscoverRequest{
				SourceKey: args[0],
				Language:  lang,
				Clips:     clips,
				MinClip:   time.Duration(minSec) * time.Second,
				MaxClip:   time.Duration(maxSec) * time.Second,
				Prompt:    prompt,
			}

			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline, log *slog.Logger) error {
				if cfg.Translation.APIKey == "" {
					log.Warn("no translation.api_key configured, clips are picked heuristically")
				}
				d, err := p.Discover(cmd.Context(), req)
				if err != nil {
					return err
				}
				if outPath != "" {
					if err := writeDiscovery(outPath, d); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "==> wrote %d clips to %s\n", len(d.Clips), outPath)
				}
				if jsonOut {
					return writeJSON(cmd, d)
				}
				fmt.Fprintln(cmd.OutOrStdout(), discoveryTable(d))
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&clips, "clips", 0, "Number of clips to propose (default from config)")
	fl.IntVar(&minSec, "min", 0, "Minimum clip length in seconds (default from config)")
	fl.IntVar(&maxSec, "max", 0, "Maximum clip length in seconds (default from config)")
	fl.StringVar(&prompt, "prompt", "", "What the ranking model should look for")
	fl.StringVar(&lang, "lang", "", "Source language hint for transcription")
	fl.StringVarP(&outPath, "out", "o", "", "Write the clips JSON to this file")
	fl.BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}

func writeDiscovery(path string, d types.Discovery) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write clips: %w", err)
	}
	return nil
}

func discoveryTable(d types.Discovery) string {
	rows := make([][]string, 0, len(d.Clips))
	for i, c := range d.Clips {
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatSeconds(c.Start),
			formatSeconds(c.End),
			strconv.Itoa(c.ViralityScore),
			c.Title,
		})
	}
	return renderTable(
		[]column{indexCol, startCol, endCol, {title: "Score", numeric: true}, {title: "Title", wrap: wideColumn}},
		rows,
	)
}
