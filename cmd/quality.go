package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spigell/job-matcher/internal/matching"
)

var qualityCmd = &cobra.Command{
	Use:   "quality <score>",
	Short: "Print the quality label for a match score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("score must be an integer: %w", err)
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("score must be between 0 and 100, got %d", score)
		}

		fmt.Fprintln(cmd.OutOrStdout(), matching.Quality(score))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}
