package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/enhancer"
)

var (
	enhanceInput  string
	enhanceOutput string
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Apply contrast equalization and sharpening only",
	RunE:  runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	enhanceCmd.Flags().StringVarP(&enhanceInput, "input", "i", "", "Input image path")
	enhanceCmd.Flags().StringVarP(&enhanceOutput, "output", "o", "", "Output image path (default: input with batch suffix)")
	enhanceCmd.MarkFlagRequired("input")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	img, err := readImage(enhanceInput)
	if err != nil {
		return err
	}
	defer img.Close()

	enh := enhancer.New(cfg.Enhance.Options)
	out, err := enh.Enhance(img)
	if err != nil {
		return err
	}
	defer out.Close()

	output := enhanceOutput
	if output == "" {
		output = outputPath(enhanceInput, "", cfg.Batch.Suffix)
	}
	if err := writeImage(output, out); err != nil {
		return err
	}

	opts := enh.Options()
	log.WithFields(log.Fields{
		"output":     output,
		"clip_limit": opts.ClipLimit,
		"tile_grid":  opts.TileGrid,
	}).Info("Saved enhanced image")
	return nil
}
