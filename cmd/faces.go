package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Inspect and name stored identities",
}

var facesUnnamedCmd = &cobra.Command{
	Use:   "unnamed",
	Short: "List identities that have no name yet",
	Args:  cobra.NoArgs,
	RunE:  runFacesUnnamed,
}

var facesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesGet,
}

var facesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Set the name of an identity",
	Args:  cobra.ExactArgs(2),
	RunE:  runFacesRename,
}

var facesImageCmd = &cobra.Command{
	Use:   "image <id>",
	Short: "Write the stored face image of an identity to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFacesImage,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesUnnamedCmd, facesGetCmd, facesRenameCmd, facesImageCmd)

	facesUnnamedCmd.Flags().Bool("json", false, "Output as JSON")
	facesGetCmd.Flags().Bool("json", false, "Output as JSON")
	facesImageCmd.Flags().StringP("output", "o", "", "Output file (default <id>.png)")
}

type identityOutput struct {
	Key       string `json:"key"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toIdentityOutput(s *database.StoredIdentity) identityOutput {
	out := identityOutput{Key: database.FormatKey(s.Key), Name: s.Name}
	if !s.CreatedAt.IsZero() {
		out.CreatedAt = s.CreatedAt.Format("2006-01-02 15:04:05")
	}
	if !s.UpdatedAt.IsZero() {
		out.UpdatedAt = s.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return out
}

func runFacesUnnamed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.resolver.GetUnnamed(ctx)
	if err != nil {
		return err
	}
	out := make([]identityOutput, 0, len(records))
	for i := range records {
		out = append(out, toIdentityOutput(&records[i]))
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(out)
	}
	if len(out) == 0 {
		fmt.Println("No unnamed identities.")
		return nil
	}
	fmt.Printf("%-10s %s\n", "KEY", "CREATED")
	for _, o := range out {
		fmt.Printf("%-10s %s\n", o.Key, o.CreatedAt)
	}
	fmt.Printf("\n%d unnamed identities\n", len(out))
	return nil
}

func runFacesGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key, err := resolver.ParseKey(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.resolver.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	out := toIdentityOutput(rec)
	if mustGetBool(cmd, "json") {
		return outputJSON(out)
	}
	fmt.Printf("Key:     %s\n", out.Key)
	fmt.Printf("Name:    %s\n", displayName(out.Name))
	fmt.Printf("Created: %s\n", out.CreatedAt)
	fmt.Printf("Updated: %s\n", out.UpdatedAt)
	return nil
}

func runFacesRename(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key, err := resolver.ParseKey(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.resolver.UpdateName(ctx, key, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Identity %s is now %q\n", database.FormatKey(key), name)
	return nil
}

func runFacesImage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key, err := resolver.ParseKey(args[0])
	if err != nil {
		return err
	}
	output := mustGetString(cmd, "output")
	if output == "" {
		output = database.FormatKey(key) + ".png"
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.resolver.GetImage(ctx, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(data), output)
	return nil
}
