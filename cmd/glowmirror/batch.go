package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/pipeline"
)

var (
	batchOutputDir string
	batchWorkers   int
	batchMakeup    makeupFlags
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Apply makeup to every image in a directory",
	Long: `Process all images in a directory with a shared pipeline. Images without
a detectable face are skipped and reported, not treated as fatal.`,
	Example: `  glowmirror batch ./photos -o ./out --lipstick "#C41E3A" --workers 8`,
	Args:    cobra.ExactArgs(1),
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "", "Output directory (default: next to each input)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent workers (default from config)")
	batchMakeup.register(batchCmd)
}

// listImages returns the image files directly under dir, sorted by name
func listImages(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExts[ext] {
			continue
		}
		// skip our own outputs from an earlier run
		if suffix != "" && strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths, err := listImages(args[0], cfg.Batch.Suffix)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	workers := cfg.Batch.Workers
	if batchWorkers > 0 {
		workers = batchWorkers
	}

	e, err := newEngine(true)
	if err != nil {
		return err
	}
	defer e.Close()

	mc := batchMakeup.config(cmd)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Applying makeup"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	var (
		mu      sync.Mutex
		reports = make([]report, len(paths))
		skipped int
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			defer bar.Add(1)

			r, err := processOne(e, path, mc)
			if err != nil {
				if !errors.Is(err, detector.ErrNoFaceDetected) {
					return fmt.Errorf("%s: %w", path, err)
				}
				log.WithField("input", path).Warn("No face detected, skipping")
				mu.Lock()
				skipped++
				mu.Unlock()
				r = report{Input: path, Error: err.Error()}
			}
			reports[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	bar.Finish()

	log.WithFields(log.Fields{
		"images":  len(paths),
		"skipped": skipped,
		"workers": workers,
	}).Info("Batch complete")

	return printJSON(reports)
}

func processOne(e *engine, path string, mc pipeline.MakeupConfig) (report, error) {
	img, err := readImage(path)
	if err != nil {
		return report{}, err
	}
	defer img.Close()

	res, err := e.run(img, nil, mc)
	if err != nil {
		return report{}, err
	}
	defer res.Close()

	output := outputPath(path, batchOutputDir, cfg.Batch.Suffix)
	if err := writeImage(output, res.Image); err != nil {
		return report{}, err
	}
	return newReport(path, output, res), nil
}
