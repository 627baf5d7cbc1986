package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dudu/glowmirror/internal/tone"
)

var recommendCmd = &cobra.Command{
	Use:       "recommend <light|medium|dark>",
	Short:     "Print the recommended palette for a skin tone",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(tone.Light), string(tone.Medium), string(tone.Dark)},
	RunE: func(cmd *cobra.Command, args []string) error {
		t, ok := tone.ParseSkinTone(args[0])
		if !ok {
			return fmt.Errorf("unknown skin tone %q (want light, medium or dark)", args[0])
		}
		return printJSON(tone.Recommend(t))
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
