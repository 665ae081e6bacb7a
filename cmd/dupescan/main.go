package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/BurtHarris/dupescan/internal/cache"
	"github.com/BurtHarris/dupescan/internal/config"
	"github.com/BurtHarris/dupescan/internal/engine"
	"github.com/BurtHarris/dupescan/internal/logger"
	"github.com/BurtHarris/dupescan/internal/progress"
	"github.com/BurtHarris/dupescan/internal/reporter"
	"github.com/BurtHarris/dupescan/internal/resolve"
	"github.com/BurtHarris/dupescan/internal/ui"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  string
	debug       bool
	quiet       bool
	recursive   bool
	includePats []string
	excludePats []string
	minSize     string
	maxSize     string
	threshold   float64
	workers     int
	noCache     bool
	cachePath   string
	outputFmt   string
	outputFile  string
	noProgress  bool
	scriptPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dupescan",
	Short: "Find duplicate files by content",
	Long: `dupescan finds duplicate files by comparing file contents, not just names.
It groups exact duplicates by content hash, flags similarly-named files as
potential matches, and never deletes anything itself: cleanup happens through
a generated deletion script you review and run yourself.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(logger.LevelFromFlags(debug, quiet))
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [directory...]",
	Short: "Scan directories for duplicate files",
	Long: `Scans one or more directories, groups files with identical content and
reports the wasted space. With no arguments the current directory is scanned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runScan(cmd, args)
		if err != nil {
			return err
		}

		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}

		out := os.Stdout
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := reporter.New(out, format).Report(result); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		if outputFile != "" {
			fmt.Printf("Report saved to: %s\n", outputFile)
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [directory...]",
	Short: "Interactively choose which duplicates to remove",
	Long: `Scans for duplicates, then opens an interactive picker to mark copies
for removal. The selection is written as a shell script; nothing is deleted
until you run that script yourself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runScan(cmd, args)
		if err != nil {
			return err
		}

		if len(result.DuplicateGroups) == 0 {
			fmt.Println("No duplicate files found.")
			return nil
		}

		selected, err := ui.Run(result.DuplicateGroups)
		if err != nil {
			return err
		}
		if selected == nil {
			fmt.Println("Resolution cancelled; no script written.")
			return nil
		}
		if len(selected) == 0 {
			fmt.Println("Nothing marked for deletion; no script written.")
			return nil
		}

		f, err := os.OpenFile(scriptPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
		if err != nil {
			return fmt.Errorf("failed to create deletion script: %w", err)
		}
		defer f.Close()
		if err := resolve.WriteDeletionScript(f, selected); err != nil {
			return fmt.Errorf("failed to write deletion script: %w", err)
		}

		var reclaim int64
		for _, file := range selected {
			reclaim += file.Size
		}
		fmt.Printf("Wrote %s: %d files, %s to reclaim.\n",
			scriptPath, len(selected), humanize.IBytes(uint64(reclaim)))
		fmt.Printf("Review it, then run: sh %s\n", scriptPath)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent hash cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hash cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveCachePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Printf("Cache file: %s (does not exist yet)\n", path)
			return nil
		}

		c, err := cache.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		entries, size, err := c.Stats()
		if err != nil {
			return fmt.Errorf("failed to read cache stats: %w", err)
		}

		fmt.Printf("Cache file: %s\n", path)
		fmt.Printf("Entries:    %d\n", entries)
		fmt.Printf("Size:       %s\n", humanize.IBytes(uint64(size)))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the hash cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveCachePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("Cache is already empty.")
			return nil
		}

		c, err := cache.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := activeConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Println("Config file does not exist; built-in defaults are in effect.")
			fmt.Println("Run 'dupescan config init' to create it.")
			return nil
		}

		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := config.EnsureConfigExists()
		if err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		fmt.Printf("Config file: %s\n", cfgPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	for _, cmd := range []*cobra.Command{scanCmd, resolveCmd} {
		cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "scan subdirectories")
		cmd.Flags().StringSliceVar(&includePats, "include", nil, "only consider files matching these glob patterns")
		cmd.Flags().StringSliceVar(&excludePats, "exclude", nil, "skip files and directories matching these patterns")
		cmd.Flags().StringVar(&minSize, "min-size", "", "ignore files smaller than this (e.g. 1KiB)")
		cmd.Flags().StringVar(&maxSize, "max-size", "", "ignore files larger than this (e.g. 10GiB)")
		cmd.Flags().Float64Var(&threshold, "threshold", 0, "name similarity threshold for potential matches (0..1)")
		cmd.Flags().IntVar(&workers, "workers", 0, "number of hashing workers (0 = auto)")
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the persistent hash cache")
		cmd.Flags().StringVar(&cachePath, "cache-path", "", "override the hash cache location")
		cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	}

	scanCmd.Flags().StringVarP(&outputFmt, "output", "o", "summary", "output format (summary, text, json, yaml)")
	scanCmd.Flags().StringVar(&outputFile, "file", "", "save the report to a file")

	resolveCmd.Flags().StringVar(&scriptPath, "script", "delete_duplicates.sh", "path of the generated deletion script")

	cacheCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "override the hash cache location")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

// runScan loads configuration, applies flag overrides and runs the full
// scan pipeline over the given roots.
func runScan(cmd *cobra.Command, args []string) (*engine.ScanResult, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}

	scanOpts, err := cfg.ScanOptions()
	if err != nil {
		return nil, err
	}

	hcPath := cfg.Cache.Path
	if hcPath == "" {
		hcPath, err = cfg.CachePath()
		if err != nil {
			return nil, err
		}
	}
	hc := cache.Open(hcPath, cfg.Cache.Enabled)
	defer hc.Close()

	eng, err := engine.New(engine.Options{
		Scan:           scanOpts,
		FuzzyThreshold: cfg.FuzzyThreshold,
		Workers:        workers,
	}, hc)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := progress.NewReporter()
	eng.SetProgressReporter(rep)
	done := consumeProgress(rep)

	result, err := eng.Run(ctx, roots...)
	rep.Close()
	<-done
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyFlags overrides config values with any flags the user set
// explicitly, so config file defaults survive unless overridden.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("recursive") {
		cfg.Recursive = recursive
	}
	if flags.Changed("include") {
		cfg.IncludePatterns = includePats
	}
	if flags.Changed("exclude") {
		cfg.ExcludePatterns = excludePats
	}
	if flags.Changed("min-size") {
		cfg.SizeLimits.MinFileSize = minSize
	}
	if flags.Changed("max-size") {
		cfg.SizeLimits.MaxFileSize = maxSize
	}
	if flags.Changed("threshold") {
		cfg.FuzzyThreshold = threshold
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if cachePath != "" {
		cfg.Cache.Path = cachePath
	}
}

// consumeProgress renders scan progress on stderr. The returned channel
// closes once the consumer has drained all updates.
func consumeProgress(rep *progress.Reporter) <-chan struct{} {
	done := make(chan struct{})
	updates := rep.Subscribe()

	if noProgress || quiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		go func() {
			defer close(done)
			for range updates {
			}
		}()
		return done
	}

	go func() {
		defer close(done)

		container := mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(150*time.Millisecond),
		)
		var bar *mpb.Bar

		for u := range updates {
			switch u.Phase {
			case progress.PhaseHash:
				if bar == nil {
					bar = container.AddBar(int64(u.HashTotal),
						mpb.BarRemoveOnComplete(),
						mpb.PrependDecorators(
							decor.Name("hashing", decor.WCSyncSpaceR),
							decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
						),
						mpb.AppendDecorators(
							decor.Percentage(decor.WCSyncSpace),
						),
					)
				}
				bar.SetCurrent(int64(u.FilesHashed))
			case progress.PhaseComplete, progress.PhaseError:
				if bar != nil {
					bar.SetTotal(-1, true)
				}
			}
		}

		if bar != nil {
			bar.SetTotal(-1, true)
		}
		container.Wait()
	}()
	return done
}

func resolveCachePath() (string, error) {
	if cachePath != "" {
		return cachePath, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path, nil
	}
	return cfg.CachePath()
}

func activeConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath, err := activeConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}
