package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipforge/internal/domain/reframe"
	"github.com/forPelevin/clipforge/internal/pipeline"
)

type subtitleFlags struct {
	output  string
	lang    string
	target  string
	aspect  string
	style   string
	jsonOut bool
}

func newSubtitleCommand(ctx *commandContext) *cobra.Command {
	var f subtitleFlags

	cmd := &cobra.Command{
		Use:   "subtitle <source-key>",
		Short: "Burn subtitles into an existing video",
		Long: "Subtitle transcribes a finished video and burns styled subtitles into it without cutting\n" +
			"or reframing. With --target the video is first dubbed with a single voice. The result is\n" +
			"published as <source>_subtitled.<ext> unless --output names another key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := f.request(args[0])
			if err != nil {
				return err
			}
			if req.TargetLanguage != "" {
				if err := cfg.RequireTranslation(); err != nil {
					return err
				}
				if err := cfg.RequireSpeech(); err != nil {
					return err
				}
			}

			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline, _ *slog.Logger) error {
				m, err := p.Subtitle(cmd.Context(), req)
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
					return errors.New("subtitled video was not published")
				}
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Storage key of the result (default <source>_subtitled.<ext>)")
	fl.StringVar(&f.lang, "lang", "", "Source language hint for transcription")
	fl.StringVar(&f.target, "target", "", "Dub the video into this language before subtitling")
	fl.StringVar(&f.aspect, "aspect", reframe.Vertical.Name, "Aspect ratio used to size subtitles: 9:16, 1:1 or 16:9")
	fl.StringVar(&f.style, "style", "", "Subtitle style overrides (.toml or .json)")
	fl.BoolVar(&f.jsonOut, "json", false, "Print the run manifest as JSON")
	return cmd
}

func (f subtitleFlags) request(sourceKey string) (pipeline.SubtitleRequest, error) {
	req := pipeline.SubtitleRequest{
		SourceKey:      strings.TrimSpace(sourceKey),
		OutputKey:      strings.TrimSpace(f.output),
		SourceLanguage: strings.TrimSpace(f.lang),
		TargetLanguage: strings.TrimSpace(f.target),
	}
	aspect, err := parseAspect(f.aspect)
	if err != nil {
		return req, err
	}
	req.Aspect = aspect
	if f.style != "" {
		style, err := loadStyle(f.style)
		if err != nil {
			return req, err
		}
		req.Style = style
	}
	return req, nil
}
