package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bmore/mtgateway/internal/auth"
	"github.com/bmore/mtgateway/internal/config"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/quality"
	"github.com/bmore/mtgateway/internal/segment"
)

func newSegmentCmd() *cobra.Command {
	var (
		opts  = segment.DefaultOptions()
		rule  string
		units bool
	)
	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Split a text file (or stdin) into translation segments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			text, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			opts.Rule = segment.Rule(rule)

			segs := segment.New(nil).Segment(text, opts)
			if units {
				return printJSON(cmd, segment.Units(segs))
			}
			return printJSON(cmd, map[string]any{"segments": segs, "count": len(segs)})
		},
	}
	f := cmd.Flags()
	f.StringVar(&rule, "rule", string(segment.RuleSentence), "Segmentation rule: sentence, paragraph, line or custom")
	f.IntVar(&opts.MinSegmentLength, "min", segment.DefaultMinSegmentLength, "Minimum segment length")
	f.IntVar(&opts.MaxSegmentLength, "max", segment.DefaultMaxSegmentLength, "Maximum segment length")
	f.BoolVar(&opts.MergeShortSegments, "merge", false, "Merge adjacent short segments")
	f.IntVar(&opts.MergeThreshold, "merge-threshold", segment.DefaultMergeThreshold, "Length below which segments are merged")
	f.StringArrayVar(&opts.CustomPatterns, "pattern", nil, "Split pattern for the custom rule (repeatable)")
	f.BoolVar(&opts.CollapseWhitespace, "collapse", false, "Collapse whitespace runs inside segments")
	f.BoolVar(&units, "units", false, "Print translation units instead of plain segments")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var src, tgt string
	cmd := &cobra.Command{
		Use:   "check <source> <translation>",
		Short: "Run quality checks on a translation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			thresholds := quality.DefaultThresholds()
			if cfg, err := config.Load(); err == nil {
				thresholds = cfg.Quality
			}
			report := quality.NewChecker(thresholds).Check(args[0], args[1], lang.Normalize(src), lang.Normalize(tgt))
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "Source language")
	cmd.Flags().StringVar(&tgt, "tgt", "", "Target language")
	return cmd
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Detect the language of a text file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			text, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), lang.NewDetector().Detect(text))
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		scope string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an API bearer token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return errors.New("JWT_SECRET is not set")
			}
			if scope != auth.ScopeTranslate && scope != auth.ScopeAdmin {
				return fmt.Errorf("unknown scope %q", scope)
			}
			token, err := auth.NewJWTService(cfg.JWTSecret, ttl).GenerateToken(args[0], scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", auth.ScopeTranslate, "Token scope: translate or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
