package main

import (
	"github.com/dudu/glowmirror/internal/pipeline"
	"github.com/dudu/glowmirror/internal/tone"
)

type featureReport struct {
	Feature string `json:"feature"`
	Applied bool   `json:"applied"`
	Kind    string `json:"kind"`
	Error   string `json:"error,omitempty"`
}

type timingReport struct {
	DetectionMS   int64 `json:"detection_ms"`
	CompositingMS int64 `json:"compositing_ms"`
	EnhanceMS     int64 `json:"enhance_ms"`
	ToneMS        int64 `json:"tone_ms"`
	TotalMS       int64 `json:"total_ms"`
}

// report is the JSON summary printed for each processed image
type report struct {
	Input           string          `json:"input"`
	Output          string          `json:"output,omitempty"`
	Error           string          `json:"error,omitempty"`
	Features        []featureReport `json:"features,omitempty"`
	Tone            *tone.Analysis  `json:"tone,omitempty"`
	ToneError       string          `json:"tone_error,omitempty"`
	Recommendations *tone.Palette   `json:"recommendations,omitempty"`
	Timing          *timingReport   `json:"timing,omitempty"`
}

func newReport(input, output string, res *pipeline.Result) report {
	r := report{
		Input:           input,
		Output:          output,
		Tone:            res.Tone,
		Recommendations: res.Recommendations,
		Timing: &timingReport{
			DetectionMS:   res.Timing.Detection.Milliseconds(),
			CompositingMS: res.Timing.Compositing.Milliseconds(),
			EnhanceMS:     res.Timing.Enhance.Milliseconds(),
			ToneMS:        res.Timing.Tone.Milliseconds(),
			TotalMS:       res.Timing.Total.Milliseconds(),
		},
	}
	if res.ToneErr != nil {
		r.ToneError = res.ToneErr.Error()
	}
	for _, f := range res.Features {
		fr := featureReport{Feature: string(f.Feature), Applied: f.Applied, Kind: f.Kind()}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		r.Features = append(r.Features, fr)
	}
	return r
}

func toneLabel(res *pipeline.Result) string {
	if res.Tone == nil {
		return "tone: unknown"
	}
	return "tone: " + string(res.Tone.Tone)
}
