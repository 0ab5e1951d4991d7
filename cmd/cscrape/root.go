package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/spf13/cobra"
)

var (
	outputFile  string
	output      io.Writer
	profileName string
	profileFile string
	symbolsFile string
	snapshotIn  string
	verbose     int
	logger      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cscrape",
	Short: "C declaration layout and symbol scraper",
	Long: `cscrape parses C sources, computes the layout of every declaration
under a configurable target ABI, and answers queries about variables,
enumerations and functions.

Addresses are joined in from a readelf -s dump when --symbols is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		switch {
		case verbose >= 2:
			level = slog.LevelDebug
		case verbose == 1:
			level = slog.LevelInfo
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	flags.StringVarP(&profileName, "profile", "p", "", "target ABI profile (see 'cscrape profiles')")
	flags.StringVar(&profileFile, "profile-file", "", "load the target ABI profile from a YAML file")
	flags.StringVarP(&symbolsFile, "symbols", "s", "", "readelf -s dump to join addresses from")
	flags.StringVar(&snapshotIn, "snapshot", "", "start from a snapshot written by 'cscrape dump'")
	flags.CountVarP(&verbose, "verbose", "v", "log progress to stderr (repeat for debug)")

	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(varCmd)
	rootCmd.AddCommand(enumCmd)
	rootCmd.AddCommand(enumsCmd)
	rootCmd.AddCommand(funcCmd)
	rootCmd.AddCommand(sizeofCmd)
	rootCmd.AddCommand(symbolsCmd)
}

// load builds an engine from the global flags and parses every source.
func load(ctx context.Context, sources []string) (*cscrape.Engine, error) {
	opts := []cscrape.Option{cscrape.WithLogger(logger)}
	if profileName != "" {
		opts = append(opts, cscrape.WithProfile(profileName))
	}
	if profileFile != "" {
		opts = append(opts, cscrape.WithProfileFile(profileFile))
	}
	e, err := cscrape.New(opts...)
	if err != nil {
		return nil, err
	}

	if snapshotIn != "" {
		f, err := os.Open(snapshotIn)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		err = e.Import(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.ParseFile(ctx, src); err != nil {
			return nil, err
		}
	}

	if symbolsFile != "" {
		if err := e.ParseSymbolsFile(symbolsFile); err != nil {
			return nil, err
		}
	}
	return e, nil
}
