package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oal/facetengine/internal/inference"
	"github.com/oal/facetengine/internal/model"
)

var modelinfoCmd = &cobra.Command{
	Use:   "modelinfo [model.onnx...]",
	Short: "Print the inputs and outputs of the detector models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		paths := args
		if len(paths) == 0 {
			paths = []string{
				model.SelectVariant(true).Path,
				model.SelectVariant(false).Path,
			}
		}

		var failed int
		for _, path := range paths {
			if err := printModelInfo(path); err != nil {
				fmt.Printf("❌ %v\n\n", err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d model(s) could not be read", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelinfoCmd)
}

func printModelInfo(path string) error {
	info, err := inference.Describe(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", info.Path)
	fmt.Printf("  Inputs (%d):\n", len(info.Inputs))
	for _, in := range info.Inputs {
		fmt.Printf("    %s: shape=%v, type=%v\n", in.Name, in.Dimensions, in.DataType)
	}
	fmt.Printf("  Outputs (%d):\n", len(info.Outputs))
	for _, out := range info.Outputs {
		fmt.Printf("    %s: shape=%v, type=%v\n", out.Name, out.Dimensions, out.DataType)
	}
	fmt.Println()
	return nil
}
