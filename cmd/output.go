package cmd

import (
	"encoding/json"
	"fmt"
	"os"
)

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// displayName renders an optional identity name.
func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
