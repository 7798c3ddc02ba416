package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Resolve the largest face in an image to an identity key",
	Long: `Detect the largest face in an image and look it up in the vector index.
A face below the similarity threshold is registered as a new unnamed identity
unless CREATE_ON_NO_MATCH is disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Bool("json", false, "Output as JSON")
	identifyCmd.Flags().Float64("threshold", 0, "Similarity threshold (overrides SIMILARITY_THRESHOLD)")
}

type identifyOutput struct {
	File       string   `json:"file"`
	Outcome    string   `json:"outcome"`
	Key        string   `json:"key,omitempty"`
	Name       string   `json:"name,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.resolver.Identify(ctx, data)
	if err != nil {
		return fmt.Errorf("identify failed: %w", err)
	}

	out := identifyOutput{
		File:    args[0],
		Outcome: string(outcome.Type),
		Reason:  string(outcome.Reason),
	}
	if outcome.Type == resolver.OutcomeMatched || outcome.Type == resolver.OutcomeRegistered {
		out.Key = database.FormatKey(outcome.Key)
		out.Name = outcome.Name
	}
	if outcome.Type == resolver.OutcomeMatched {
		out.Similarity = &outcome.Similarity
	}

	if jsonOutput {
		return outputJSON(out)
	}

	switch outcome.Type {
	case resolver.OutcomeMatched:
		fmt.Printf("Matched identity %s %s (similarity %.3f)\n", out.Key, displayName(out.Name), outcome.Similarity)
	case resolver.OutcomeRegistered:
		fmt.Printf("Registered new identity %s\n", out.Key)
	case resolver.OutcomeRejected:
		fmt.Printf("Rejected: %s\n", out.Reason)
	default:
		fmt.Println("Unknown face (no identity created)")
	}
	return nil
}
