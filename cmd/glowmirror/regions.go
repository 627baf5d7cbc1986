package main

import (
	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/regions"
)

var (
	regionsInput     string
	regionsLandmarks string
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the region table and check boundaries for self-intersection",
	Long: `Without arguments, print the configured landmark index table. With an
image or a landmark file, also map the regions and report which boundaries
self-intersect.`,
	RunE: runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)

	regionsCmd.Flags().StringVarP(&regionsInput, "input", "i", "", "Image to detect landmarks on")
	regionsCmd.Flags().StringVar(&regionsLandmarks, "landmarks", "", "JSON file of [x, y] landmark pairs")
}

type regionsReport struct {
	Topology       int               `json:"topology"`
	Table          regions.Table     `json:"table"`
	Regions        regions.RegionSet `json:"regions,omitempty"`
	SelfIntersects []regions.Name    `json:"self_intersects,omitempty"`
}

func runRegions(cmd *cobra.Command, args []string) error {
	var landmarks detector.LandmarkSet
	if regionsLandmarks != "" {
		var err error
		if landmarks, err = loadLandmarks(regionsLandmarks); err != nil {
			return err
		}
	}

	e, err := newEngine(landmarks == nil && regionsInput != "")
	if err != nil {
		return err
	}
	defer e.Close()

	mapper := e.pipeline.Mapper()
	r := regionsReport{
		Topology: mapper.Topology(),
		Table:    mapper.Table(),
	}

	if landmarks == nil && regionsInput != "" {
		img, err := readImage(regionsInput)
		if err != nil {
			return err
		}
		defer img.Close()

		if landmarks, err = e.provider.Detect(img); err != nil {
			return err
		}
	}

	if landmarks != nil {
		if r.Regions, err = mapper.Map(landmarks); err != nil {
			return err
		}
		if r.SelfIntersects, err = mapper.Intersections(landmarks); err != nil {
			return err
		}
	}

	return printJSON(r)
}
