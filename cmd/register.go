package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Rohith2006/Facial-Recognition/internal/constants"
	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var registerCmd = &cobra.Command{
	Use:   "register [image]",
	Short: "Register named identities from images",
	Long: `Register a named identity from a single image (--name required), or every
image in a directory with --dir. In directory mode the file name without its
extension is used as the name, so "Ada Lovelace.jpg" registers "Ada Lovelace".

A face that already matches an identity updates that identity's name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Name for the identity (single image mode)")
	registerCmd.Flags().String("dir", "", "Directory of images to register")
	registerCmd.Flags().StringSlice("ext", []string{".jpg", ".jpeg", ".png", ".webp"}, "File extensions to include in directory mode")
	registerCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of files read in parallel")
	registerCmd.Flags().Float64("threshold", 0, "Similarity threshold (overrides SIMILARITY_THRESHOLD)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := mustGetString(cmd, "name")
	dir := mustGetString(cmd, "dir")

	switch {
	case dir != "" && len(args) > 0:
		return fmt.Errorf("use either an image argument or --dir, not both")
	case dir == "" && len(args) == 0:
		return fmt.Errorf("an image argument or --dir is required")
	case dir == "" && strings.TrimSpace(name) == "":
		return fmt.Errorf("--name is required when registering a single image")
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if dir == "" {
		return registerOne(ctx, a, args[0], name)
	}
	return registerDir(ctx, cmd, a, dir)
}

func registerOne(ctx context.Context, a *app, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	outcome, err := a.resolver.Register(ctx, data, name)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}

	switch outcome.Status {
	case resolver.StatusSuccess:
		fmt.Printf("Registered %q as identity %s\n", outcome.Name, database.FormatKey(outcome.Key))
	case resolver.StatusExists:
		fmt.Printf("Face already known as identity %s (similarity %.3f), name set to %q\n",
			database.FormatKey(outcome.Key), outcome.Similarity, outcome.Name)
	default:
		fmt.Printf("Rejected: %s\n", outcome.Reason)
	}
	return nil
}

// imageFiles lists regular files in dir whose extension is in exts.
func imageFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for i, ext := range exts {
		exts[i] = strings.ToLower(ext)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// nameFromFile derives an identity name from a file name.
func nameFromFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func registerDir(ctx context.Context, cmd *cobra.Command, a *app, dir string) error {
	files, err := imageFiles(dir, mustGetStringSlice(cmd, "ext"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No images found.")
		return nil
	}
	fmt.Printf("Images to register: %d\n\n", len(files))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Registering faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var (
		mu                                  sync.Mutex
		success, exists, rejected, errCount int
		failures                            []string
	)
	record := func(f func()) {
		mu.Lock()
		f()
		mu.Unlock()
		_ = bar.Add(1)
	}
	fail := func(path string, err error) {
		record(func() {
			errCount++
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
		})
	}

	// Reads and decoding run in parallel; the resolver serialises the index writes.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, mustGetInt(cmd, "concurrency")))
	for _, path := range files {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				fail(path, err)
				return nil
			}
			outcome, err := a.resolver.Register(gctx, data, nameFromFile(path))
			if err != nil {
				fail(path, err)
				return nil
			}
			record(func() {
				switch outcome.Status {
				case resolver.StatusSuccess:
					success++
				case resolver.StatusExists:
					exists++
				default:
					rejected++
					failures = append(failures, fmt.Sprintf("%s: rejected (%s)", path, outcome.Reason))
				}
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println()

	for _, f := range failures {
		fmt.Println("  " + f)
	}
	fmt.Printf("\nCompleted: %d registered, %d already known, %d rejected, %d errors\n",
		success, exists, rejected, errCount)
	fmt.Printf("Identities in index: %d\n", a.index.Len())
	return nil
}
