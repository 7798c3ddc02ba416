package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceid",
	Short: "Resolve face images to stable identities",
	Long: `faceid assigns every distinct face a stable identity key. Images are checked
by a quality gate, embedded by a face embedding service and matched against a
persistent vector index; identity records (name, image) live in PostgreSQL or
MariaDB. The same operations are available over HTTP (serve) and from the CLI.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
