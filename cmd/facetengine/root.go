package main

import (
	"fmt"

	golog "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/oal/facetengine/internal/config"
	"github.com/oal/facetengine/internal/inference"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg *config.Config

	logLevel       string
	libraryPath    string
	scoreThreshold float32
	iouThreshold   float32
	useAccelerator bool
)

var rootCmd = &cobra.Command{
	Use:     "facetengine",
	Short:   "Real-time SCRFD face detection on camera frames and images",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		// flags win over .env and the environment
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("ort-lib") {
			cfg.ORTLibraryPath = libraryPath
		}
		if cmd.Flags().Changed("score") {
			cfg.ScoreThreshold = scoreThreshold
		}
		if cmd.Flags().Changed("iou") {
			cfg.IOUThreshold = iouThreshold
		}

		level, err := golog.LevelFromString(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		golog.SetAllLoggers(level)

		if err := inference.Initialize(cfg.ORTLibraryPath); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		inference.Shutdown()
	},
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&libraryPath, "ort-lib", inference.DefaultLibraryPath, "Path to the ONNX Runtime shared library")
	flags.Float32Var(&scoreThreshold, "score", 0.45, "Detection score threshold")
	flags.Float32Var(&iouThreshold, "iou", 0.30, "NMS IoU threshold")
	flags.BoolVarP(&useAccelerator, "accel", "a", false, "Use the quantized model on the accelerator (CoreML)")
}
