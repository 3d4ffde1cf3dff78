package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oal/facetengine/internal/camera"
	"github.com/oal/facetengine/internal/engine"
	"github.com/oal/facetengine/internal/stream"
	"github.com/oal/facetengine/internal/surface"
)

var (
	cameraFacing  int
	cameraPreview bool
	streamAddr    string
	cameraFPS     int
)

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Detect faces on a live camera feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if cmd.Flags().Changed("stream") {
			cfg.StreamAddr = streamAddr
		}
		if cmd.Flags().Changed("fps") {
			cfg.TargetFPS = cameraFPS
		}
		return runCamera(cmd.Context())
	},
}

func init() {
	cameraCmd.Flags().IntVarP(&cameraFacing, "facing", "f", camera.FacingBack, "Camera facing: 0 front, 1 back")
	cameraCmd.Flags().BoolVarP(&cameraPreview, "preview", "p", true, "Show preview window")
	cameraCmd.Flags().StringVar(&streamAddr, "stream", "", "Serve annotated frames over websocket on this address (e.g. :8080)")
	cameraCmd.Flags().IntVar(&cameraFPS, "fps", 30, "Target frames per second")
	rootCmd.AddCommand(cameraCmd)
}

func runCamera(ctx context.Context) error {
	fmt.Println("facetengine starting...")

	eng := engine.New(engine.OptionsFromConfig(cfg))
	defer eng.Close()

	fmt.Println("Loading model...")
	if !eng.LoadModel(useAccelerator) {
		fmt.Println("Model not loaded, frames will be marked unsupported")
	} else if info, err := eng.ModelInfo(); err == nil {
		fmt.Printf("Model loaded: %s (%s)\n", info.Path, info.Device)
	}

	var outputs surface.Multi

	var window *surface.Window
	if cameraPreview {
		window = surface.NewWindow("facetengine")
		outputs = append(outputs, window)
	}

	if cfg.StreamAddr != "" {
		hub := stream.NewHub(cfg.StreamQuality)
		outputs = append(outputs, hub)

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: cfg.StreamAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("Stream server stopped: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("Streaming on ws://%s/ws\n", cfg.StreamAddr)
	}

	if len(outputs) > 0 {
		eng.SetOutputWindow(outputs)
	}
	// camera stops before its surfaces go away
	defer outputs.Close()
	defer eng.CloseCamera()

	fmt.Printf("Opening camera (facing %d)...\n", cameraFacing)
	if !eng.OpenCamera(cameraFacing) {
		return fmt.Errorf("failed to open camera facing %d", cameraFacing)
	}

	fmt.Println("\nRunning... Press 'q' to quit")
	if window != nil {
		window.Run(ctx)
	} else {
		<-ctx.Done()
	}

	fmt.Println("\nShutting down...")
	return nil
}
