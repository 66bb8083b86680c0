package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		runID   string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batches and clip outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.LedgerPath == "" {
				return fmt.Errorf("history is disabled: paths.ledger_path is empty")
			}
			l, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return err
			}
			defer l.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				clips, err := l.Clips(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(clips) == 0 {
					return fmt.Errorf("no clips recorded for run %s", id)
				}
				if jsonOut {
					return writeJSON(cmd, clips)
				}
				rows := make([][]string, 0, len(clips))
				for _, c := range clips {
					result := c.OutputKey
					if c.Error != "" {
						result = c.ErrorKind + ": " + firstLine(c.Error)
					}
					rows = append(rows, []string{strconv.Itoa(c.Index), formatSeconds(c.StartSec), formatSeconds(c.EndSec), yesNo(c.Dubbed), strings.Join(c.Stages, ","), result})
				}
				fmt.Fprintln(out, renderTable(
					[]column{indexCol, startCol, endCol, dubbedCol, {title: "Stages", wrap: wideColumn}, resultCol},
					rows,
				))
				return nil
			}

			runs, err := l.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.SourceKey,
					dash(r.TargetLanguage),
					r.Status,
					fmt.Sprintf("%d/%d", r.ClipsOK, r.ClipsTotal),
					shortHash(r.SourceHash),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{title: "Run"},
					{title: "Started"},
					{title: "Source", wrap: wideColumn},
					{title: "Dub"},
					{title: "Status"},
					{title: "Clips", numeric: true},
					{title: "Source hash"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the clips of one run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return dash(h)
}
