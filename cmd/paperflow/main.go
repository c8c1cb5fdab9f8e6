package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nordquist/paperflow/internal/extract"
	"github.com/nordquist/paperflow/internal/ocr"
)

var composeFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "paperflow: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paperflow",
		Short: "PaperFlow development CLI",
		Long: `PaperFlow CLI orchestrates common development workflows such as building the Docker stack,
starting or stopping services, running tests, launching the binaries directly,
and running the extraction pipeline against a local file.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.AddCommand(
		newBuildCmd(),
		newUpCmd(),
		newDownCmd(),
		newLogsCmd(),
		newTestCmd(),
		newRunCmd(),
		newExtractCmd(),
	)
	return cmd
}

func newBuildCmd() *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "build [service...]",
		Short: "Build Docker images via docker compose",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			composeArgs := []string{"compose", "-f", composeFile, "build"}
			if noCache {
				composeArgs = append(composeArgs, "--no-cache")
			}
			composeArgs = append(composeArgs, args...)
			return runCommand(ctx, "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable Docker build cache")
	return cmd
}

func newUpCmd() *cobra.Command {
	var detach bool
	var skipBuild bool
	cmd := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start the full docker-compose stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			composeArgs := []string{"compose", "-f", composeFile, "up"}
			if !skipBuild {
				composeArgs = append(composeArgs, "--build")
			}
			if detach {
				composeArgs = append(composeArgs, "-d")
			}
			composeArgs = append(composeArgs, args...)
			return runCommand(ctx, "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&detach, "detached", "d", true, "Run docker compose in detached mode")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Skip rebuilding images before starting")
	return cmd
}

func newDownCmd() *cobra.Command {
	var removeVolumes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop docker-compose stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			composeArgs := []string{"compose", "-f", composeFile, "down"}
			if removeVolumes {
				composeArgs = append(composeArgs, "-v")
			}
			return runCommand(ctx, "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&removeVolumes, "volumes", "v", false, "Remove stack volumes")
	return cmd
}

func newLogsCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Tail logs from docker-compose services",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			composeArgs := []string{"compose", "-f", composeFile, "logs"}
			if follow {
				composeArgs = append(composeArgs, "-f")
			}
			composeArgs = append(composeArgs, args...)
			return runCommand(ctx, "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream logs continuously")
	return cmd
}

func newTestCmd() *cobra.Command {
	var race bool
	var cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pkgs := args
			if len(pkgs) == 0 {
				pkgs = []string{"./..."}
			}
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			goArgs = append(goArgs, pkgs...)
			return runCommand(ctx, "go", goArgs...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			goArgs := []string{"run", path}
			goArgs = append(goArgs, args...)
			return runCommand(ctx, "go", goArgs...)
		},
	}
}

// newExtractCmd runs the extraction pipeline against a local file, without
// the service stack. Useful for tuning processors.
func newExtractCmd() *cobra.Command {
	var contentType string
	var useOCR bool
	var language string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Run the extraction pipeline on a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			contentType = detectContentType(path, contentType)
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			var provider ocr.Provider
			if useOCR {
				provider = ocr.NewTesseract(language)
			}
			registry, err := extract.BuildRegistry(provider, ocr.Options{
				Language:          language,
				DetectOrientation: true,
				Preprocess:        true,
			}, log)
			if err != nil {
				return err
			}
			orchestrator := extract.NewOrchestrator(registry, log)
			outcome := orchestrator.Process(cmd.Context(), path, filepath.Base(path), contentType)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Override content type (detected from extension by default)")
	cmd.Flags().BoolVar(&useOCR, "ocr", false, "Enable the OCR-backed image processor")
	cmd.Flags().StringVar(&language, "lang", "eng", "OCR language hint")
	return cmd
}

// detectContentType resolves the content type for a local file and strips
// any parameters (mime.TypeByExtension returns e.g.
// "text/plain; charset=utf-8") so the value matches registry keys.
func detectContentType(path, override string) string {
	ct := override
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(path))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
