package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/pipeline"
	"github.com/forPelevin/clipforge/internal/types"
)

type renderFlags struct {
	clips       []string
	clipsFile   string
	lang        string
	target      string
	aspect      string
	noSubtitles bool
	style       string
	watermark   string
	music       string
	musicVolume float64
	prefix      string
	jsonOut     bool
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render <source-key>",
		Short: "Render clip ranges of a source video",
		Long: "Render cuts every requested range out of the source, reframes it to the target aspect,\n" +
			"optionally dubs it into another language, burns subtitles and publishes clip_<n>.mp4\n" +
			"next to the source object.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := f.request(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if req.OutputPrefix == "" {
				req.OutputPrefix = cfg.Storage.OutputPrefix
			}
			if req.Dubbable() {
				if err := cfg.RequireTranslation(); err != nil {
					return err
				}
				if err := cfg.RequireSpeech(); err != nil {
					return err
				}
			}
			if err := cfg.RequireDetector(); err != nil {
				return err
			}

			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline, _ *slog.Logger) error {
				m, err := p.Render(cmd.Context(), req)
				if err != nil {
					return err
				}
				if f.jsonOut {
					if err := writeJSON(cmd, m); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), manifestTable(m))
				}
				if published(m) == 0 {
					return fmt.Errorf("no clip was published (%d failed)", len(m.Clips))
				}
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.clips, "clip", nil, "Clip range in seconds or clock time, e.g. 12.5-48 or 1:02-1:30 (repeatable)")
	fl.StringVar(&f.clipsFile, "clips-file", "", "JSON file with clip ranges, such as the output of discover ('-' reads stdin)")
	fl.StringVar(&f.lang, "lang", "", "Source language hint for transcription")
	fl.StringVar(&f.target, "target", "", "Dub the clips into this language")
	fl.StringVar(&f.aspect, "aspect", reframe.Vertical.Name, "Output aspect ratio: 9:16, 1:1 or 16:9")
	fl.BoolVar(&f.noSubtitles, "no-subtitles", false, "Do not burn subtitles")
	fl.StringVar(&f.style, "style", "", "Subtitle style overrides (.toml or .json)")
	fl.StringVar(&f.watermark, "watermark", "", "Storage key of a watermark image")
	fl.StringVar(&f.music, "music", "", "Storage key of a background music track")
	fl.Float64Var(&f.musicVolume, "music-volume", 0.1, "Background music volume between 0 and 1")
	fl.StringVar(&f.prefix, "prefix", "", "Publish clips under this key prefix instead of next to the source")
	fl.BoolVar(&f.jsonOut, "json", false, "Print the run manifest as JSON")
	return cmd
}

func (f renderFlags) request(sourceKey string, stdin io.Reader) (pipeline.Request, error) {
	req := pipeline.Request{
		SourceKey:      strings.TrimSpace(sourceKey),
		SourceLanguage: strings.TrimSpace(f.lang),
		TargetLanguage: strings.TrimSpace(f.target),
		Watermark:      strings.TrimSpace(f.watermark),
		Music:          strings.TrimSpace(f.music),
		MusicVolume:    f.musicVolume,
		OutputPrefix:   strings.TrimSpace(f.prefix),
	}

	aspect, err := parseAspect(f.aspect)
	if err != nil {
		return req, err
	}
	req.Aspect = aspect

	for _, s := range f.clips {
		r, err := pipeline.ParseRange(s)
		if err != nil {
			return req, err
		}
		req.Clips = append(req.Clips, r)
	}
	if f.clipsFile != "" {
		ranges, err := readClipsFile(f.clipsFile, stdin)
		if err != nil {
			return req, err
		}
		req.Clips = append(req.Clips, ranges...)
	}
	if len(req.Clips) == 0 {
		return req, errors.New("no clips requested: pass --clip or --clips-file")
	}

	if f.style != "" {
		style, err := loadStyle(f.style)
		if err != nil {
			return req, err
		}
		req.Style = style
	}
	if f.noSubtitles {
		off := false
		req.Style.Enabled = &off
	}
	return req, nil
}

func parseAspect(s string) (reframe.Aspect, error) {
	switch a := strings.TrimSpace(s); a {
	case reframe.Vertical.Name, reframe.Square.Name, reframe.Landscape.Name:
		return reframe.ParseAspect(a), nil
	default:
		return reframe.Aspect{}, fmt.Errorf("unsupported aspect ratio %q (want 9:16, 1:1 or 16:9)", s)
	}
}

func readClipsFile(path string, stdin io.Reader) ([]types.ClipRange, error) {
	if path == "-" {
		return pipeline.ReadClips(stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clips file: %w", err)
	}
	defer file.Close()
	ranges, err := pipeline.ReadClips(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ranges, nil
}

func manifestTable(m types.Manifest) string {
	rows := make([][]string, 0, len(m.Clips))
	for _, c := range m.Clips {
		result := c.OutputKey
		if c.Error != "" {
			result = c.ErrorKind + ": " + firstLine(c.Error)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			formatSeconds(c.StartSec),
			formatSeconds(c.EndSec),
			yesNo(c.Dubbed),
			lastStage(c.Stages),
			result,
		})
	}
	return renderTable(
		[]column{indexCol, startCol, endCol, dubbedCol, {title: "Last stage"}, resultCol},
		rows,
	)
}

func published(m types.Manifest) int {
	n := 0
	for _, c := range m.Clips {
		if c.Error == "" && c.OutputKey != "" {
			n++
		}
	}
	return n
}

func lastStage(stages []string) string {
	if len(stages) == 0 {
		return "-"
	}
	return stages[len(stages)-1]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func formatSeconds(s float64) string { return strconv.FormatFloat(s, 'f', 2, 64) }

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
