package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/engine"
)

var detectOutput string

var detectCmd = &cobra.Command{
	Use:   "detect [images...]",
	Short: "Annotate detected faces in image files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runDetect(args)
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "annotated", "Directory for annotated copies")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(paths []string) error {
	if err := os.MkdirAll(detectOutput, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	eng := engine.New(engine.OptionsFromConfig(cfg))
	defer eng.Close()

	if !eng.LoadModel(useAccelerator) {
		fmt.Println("Model not loaded, images will be marked unsupported")
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Detecting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var failed int
	for _, path := range paths {
		if err := annotateFile(eng, path); err != nil {
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", path, err)
			failed++
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	timing := eng.Pipeline().LastTiming()
	fmt.Printf("Last frame: %d faces, D:%.0fms T:%.0fms\n",
		timing.Faces,
		float64(timing.Detection.Milliseconds()),
		float64(timing.Total.Milliseconds()))

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}

// annotateFile feeds the image through DetectDraw the way a caller-owned
// RGBA buffer would arrive, then writes it back out as BGR
func annotateFile(eng *engine.Engine, path string) error {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("failed to read image")
	}
	defer img.Close()

	rgba := gocv.NewMat()
	defer rgba.Close()
	if err := gocv.CvtColor(img, &rgba, gocv.ColorBGRToRGBA); err != nil {
		return err
	}

	pixels := rgba.ToBytes()
	if !eng.DetectDraw(rgba.Cols(), rgba.Rows(), pixels) {
		return fmt.Errorf("detection failed")
	}

	out, err := gocv.NewMatFromBytes(rgba.Rows(), rgba.Cols(), gocv.MatTypeCV8UC4, pixels)
	if err != nil {
		return err
	}
	defer out.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(out, &bgr, gocv.ColorRGBAToBGR); err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".jpg"
	if !gocv.IMWrite(filepath.Join(detectOutput, name), bgr) {
		return fmt.Errorf("failed to write %s", name)
	}
	return nil
}
