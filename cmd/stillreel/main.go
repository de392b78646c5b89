package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/stillreel/internal/clips"
	"github.com/kikiluvv/stillreel/internal/config"
	"github.com/kikiluvv/stillreel/internal/logging"
	"github.com/kikiluvv/stillreel/internal/pipeline"
	"github.com/kikiluvv/stillreel/internal/sources"
	"github.com/kikiluvv/stillreel/pkg/util"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

// create flags, shared by the root command and create
var (
	mode        string
	format      string
	keywords    string
	maxImages   int
	output      string
	duration    float64
	transition  float64
	seed        int64
	publishFlag bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "stillreel",
	Short:        "stillreel - turn image search results into short videos",
	Long:         "Fetches images for a keyword, crops them to the target format, adds pan/zoom motion, transitions and audio, and encodes an MP4.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	RunE: runCreate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stillreel.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	addCreateFlags(rootCmd)
	addCreateFlags(createCmd)

	fetchCmd.Flags().StringVar(&mode, "mode", "", "image source: test or production")
	fetchCmd.Flags().StringVar(&keywords, "keywords", "", "search keywords")
	fetchCmd.Flags().IntVar(&maxImages, "max-images", 0, "maximum number of images")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
}

func addCreateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "", "image source: test or production")
	f.StringVar(&format, "format", "", "output format: horizontal or vertical")
	f.StringVar(&keywords, "keywords", "", "search keywords")
	f.IntVar(&maxImages, "max-images", 0, "maximum number of images")
	f.StringVarP(&output, "output", "o", "", "output video path")
	f.Float64Var(&duration, "duration", 0, "seconds each image is shown")
	f.Float64Var(&transition, "transition", 0, "transition length in seconds")
	f.Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	f.BoolVar(&publishFlag, "publish", false, "upload the result to the configured targets")
}

// applyFlags copies explicitly set flags over the loaded config
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Mode = mode
	}
	if f.Changed("format") {
		cfg.Format = format
	}
	if f.Changed("keywords") {
		cfg.Keywords = keywords
	}
	if f.Changed("max-images") {
		cfg.MaxImages = maxImages
	}
	if f.Changed("output") {
		cfg.Output = output
	}
	if f.Changed("duration") {
		cfg.Timing.DurationPerImage = util.FromSeconds(duration)
	}
	if f.Changed("transition") {
		cfg.Timing.Transition = util.FromSeconds(transition)
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build a video from keyword images",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(cmd.Context())
	applyFlags(cmd, cfg)

	pipe, err := pipeline.New(log.Logger, cfg)
	if err != nil {
		return err
	}

	res, err := pipe.Create(cmd.Context(), pipeline.CreateOptions{Publish: publishFlag})
	if err != nil && res == nil {
		log.Error().Err(err).Msg("video creation failed")
		return err
	}

	for _, f := range res.Manifest.Failures {
		log.Warn().
			Int("index", f.Index).
			Str("url", f.URL).
			Str("reason", f.Reason).
			AnErr("error", f.Err).
			Msg("image skipped")
	}

	log.Info().
		Str("run", res.RunID).
		Str("output", res.Output).
		Dur("duration", res.Duration).
		Int("clips", res.Clips).
		Int("skipped", res.Manifest.Len()).
		Strs("published", res.Published).
		Msg("done")

	return err
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the image URLs a run would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		applyFlags(cmd, cfg)

		src, err := sources.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		urls := src.Fetch(cmd.Context(), cfg.Keywords, cfg.MaxImages)
		if len(urls) == 0 {
			return fmt.Errorf("no images found for %q", cfg.Keywords)
		}
		for _, u := range urls {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [video file]",
	Short: "Upload an existing video to S3 and/or YouTube",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		locs, err := pipeline.Publish(cmd.Context(), log.Logger, cfg, args[0], "")
		for _, loc := range locs {
			fmt.Fprintln(cmd.OutOrStdout(), loc)
		}
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.FromContext(cmd.Context()).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "stillreel.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := util.EnsureParentDir(path); err != nil {
			return err
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [transitions|formats|modes]",
	Short:     "List available options",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"transitions", "formats", "modes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "transitions":
			fmt.Fprintln(out, clips.TransitionNone)
			for _, t := range clips.DefaultTransitions {
				fmt.Fprintln(out, t)
			}
		case "formats":
			fmt.Fprintf(out, "%s\t1920x1080\n", config.FormatHorizontal)
			fmt.Fprintf(out, "%s\t1080x1920\n", config.FormatVertical)
		case "modes":
			fmt.Fprintln(out, strings.Join([]string{config.ModeTest, config.ModeProduction}, "\n"))
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
