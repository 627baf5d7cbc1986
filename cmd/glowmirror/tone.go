package main

import (
	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/regions"
	"github.com/dudu/glowmirror/internal/tone"
)

var (
	toneInput     string
	toneLandmarks string
)

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Classify skin tone and print recommendations",
	Long:  `Measure the cheek and lip regions of an unmodified image and print the tone bucket with its recommended palette.`,
	RunE:  runTone,
}

func init() {
	rootCmd.AddCommand(toneCmd)

	toneCmd.Flags().StringVarP(&toneInput, "input", "i", "", "Input image path")
	toneCmd.Flags().StringVar(&toneLandmarks, "landmarks", "", "JSON file of [x, y] landmark pairs; skips detection")
	toneCmd.MarkFlagRequired("input")
}

type toneReport struct {
	Input           string        `json:"input"`
	Tone            tone.Analysis `json:"tone"`
	Recommendations tone.Palette  `json:"recommendations"`
}

func runTone(cmd *cobra.Command, args []string) error {
	var landmarks detector.LandmarkSet
	if toneLandmarks != "" {
		var err error
		if landmarks, err = loadLandmarks(toneLandmarks); err != nil {
			return err
		}
	}

	img, err := readImage(toneInput)
	if err != nil {
		return err
	}
	defer img.Close()

	e, err := newEngine(landmarks == nil)
	if err != nil {
		return err
	}
	defer e.Close()

	var set regions.RegionSet
	if landmarks != nil {
		set, err = e.pipeline.Mapper().Map(landmarks)
	} else {
		set, err = e.pipeline.DetectRegions(img)
	}
	if err != nil {
		return err
	}

	analysis, err := e.pipeline.ClassifyTone(img, set)
	if err != nil {
		return err
	}

	return printJSON(toneReport{
		Input:           toneInput,
		Tone:            analysis,
		Recommendations: e.pipeline.Recommend(analysis.Tone),
	})
}
