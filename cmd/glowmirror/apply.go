package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/ui"
)

var (
	applyInput     string
	applyOutput    string
	applyLandmarks string
	applyPreview   bool
	applyMakeup    makeupFlags
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply makeup to a single image",
	Long: `Detect the face, composite lipstick, eyeshadow and blush in that order,
optionally enhance the result and print tone analysis with recommendations.`,
	Example: `  glowmirror apply -i face.jpg -o out.jpg --lipstick "#C41E3A" --blush "#FFB6C1"
  glowmirror apply -i face.jpg --landmarks face.json --eyeshadow "#8B4513" --preview`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyInput, "input", "i", "", "Input image path")
	applyCmd.Flags().StringVarP(&applyOutput, "output", "o", "", "Output image path (default: input with batch suffix)")
	applyCmd.Flags().StringVar(&applyLandmarks, "landmarks", "", "JSON file of [x, y] landmark pairs; skips detection")
	applyCmd.Flags().BoolVar(&applyPreview, "preview", false, "Show before/after in a window")
	applyMakeup.register(applyCmd)
	applyCmd.MarkFlagRequired("input")
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyMakeup.empty() {
		log.Warn("No makeup colors given, only tone analysis and enhancement will run")
	}

	var landmarks detector.LandmarkSet
	if applyLandmarks != "" {
		var err error
		if landmarks, err = loadLandmarks(applyLandmarks); err != nil {
			return err
		}
	}

	img, err := readImage(applyInput)
	if err != nil {
		return err
	}
	defer img.Close()

	e, err := newEngine(landmarks == nil)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.run(img, landmarks, applyMakeup.config(cmd))
	if err != nil {
		if errors.Is(err, detector.ErrNoFaceDetected) {
			return fmt.Errorf("%s: %w", applyInput, err)
		}
		return err
	}
	defer res.Close()

	for _, f := range res.Failed() {
		log.WithFields(log.Fields{
			"feature": f.Feature,
			"kind":    f.Kind(),
		}).WithError(f.Err).Warn("Feature not applied")
	}

	output := applyOutput
	if output == "" {
		output = outputPath(applyInput, "", cfg.Batch.Suffix)
	}
	if err := writeImage(output, res.Image); err != nil {
		return err
	}
	log.WithField("output", output).Info("Saved result")

	if err := printJSON(newReport(applyInput, output, res)); err != nil {
		return err
	}

	if applyPreview {
		window := ui.NewWindow("glowmirror")
		defer window.Close()
		if err := window.ShowComparison(img, res.Image, toneLabel(res)); err != nil {
			return err
		}
		window.WaitKey(0)
	}
	return nil
}
