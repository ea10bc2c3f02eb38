// Package cli implements the prefectc command-line interface: compiling
// Metaflow workflow exports into Prefect programs, running them locally,
// and registering them as Prefect deployments.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/flowforge/prefectc/pkg/prefectc"
	"github.com/flowforge/prefectc/pkg/prefectc/config"
	"github.com/flowforge/prefectc/pkg/prefectc/metaflow"
	"github.com/flowforge/prefectc/pkg/prefectc/observability"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// GlobalFlags apply to every subcommand.
var GlobalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML or JSON compiler config file",
	},
}

// Execute runs the CLI application.
func Execute() {
	app := &cli.App{
		Name:    "prefectc",
		Usage:   "Compile Metaflow workflows into Prefect programs",
		Version: Version,
		Description: `prefectc reads a serialized Metaflow workflow export, validates and
analyzes its step graph, and emits a standalone Prefect program.

Examples:
  prefectc create myflow_export.yaml
  prefectc --config prefectc.yaml create myflow_export.yaml flows/myflow_prefect.py
  prefectc run myflow_export.yaml --tag env:dev
  prefectc deploy myflow_export.yaml --name myflow/prod --work-pool default-pool`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			createCommand,
			runCommand,
			deployCommand,
			deploymentsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger honoring --verbose.
func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// compileFlags are shared by the compile, run, and deploy subcommands.
func compileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Tag for the compiled flow, repeatable; overrides declared tags",
		},
		&cli.StringFlag{
			Name:  "namespace",
			Usage: "Namespace override for the compiled flow",
		},
		&cli.IntFlag{
			Name:  "max-workers",
			Usage: "Maximum number of concurrent Prefect tasks",
			Value: 10,
		},
		&cli.StringSliceFlag{
			Name:  "with",
			Usage: "Capability flag forwarded to every step as --with=<flag>, repeatable",
		},
		&cli.StringFlag{
			Name:  "datastore",
			Usage: "Metaflow datastore backend",
			Value: "local",
		},
		&cli.StringFlag{
			Name:  "metadata",
			Usage: "Metaflow metadata backend",
			Value: "local",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "Acting user recorded on generated runs",
			Value: currentUsername(),
		},
		&cli.StringFlag{
			Name:  "flow-file",
			Usage: "Path to the original workflow source file (defaults to the export path)",
		},
	}
}

// emissionConfig assembles the generator config from flags, overlaid by
// the --config file when one is given.
func emissionConfig(c *cli.Context, exportPath string) (prefectc.Config, error) {
	flowFile := c.String("flow-file")
	if flowFile == "" {
		flowFile = exportPath
	}

	base := prefectc.Config{
		FlowFile:       flowFile,
		DatastoreType:  c.String("datastore"),
		MetadataType:   c.String("metadata"),
		Username:       c.String("username"),
		MaxWorkers:     c.Int("max-workers"),
		WithDecorators: c.StringSlice("with"),
	}

	path := c.String("config")
	if path == "" {
		return base, nil
	}

	loaded, err := config.FromFile(path)
	if err != nil {
		return prefectc.Config{}, prefectc.NewConfigError("load config file", err)
	}
	return loaded.Emission(base), nil
}

// flowNameRe constrains workflow names to identifier-safe characters.
var flowNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// currentUsername returns the OS user name, empty when unresolvable.
func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

// compileExport loads a workflow export and compiles it to Prefect source.
func compileExport(c *cli.Context, exportPath string) (string, *metaflow.Workflow, error) {
	wf, err := metaflow.LoadFile(exportPath)
	if err != nil {
		return "", nil, err
	}
	if name := wf.Flow().Name(); !flowNameRe.MatchString(name) {
		return "", nil, prefectc.NewConfigError(
			fmt.Sprintf("invalid flow name %q", name), nil)
	}

	cfg, err := emissionConfig(c, exportPath)
	if err != nil {
		return "", nil, err
	}

	opts := []prefectc.CompileOption{
		prefectc.WithLogger(newLogger(c)),
		prefectc.WithObservability(observability.NewSpanManager(), observability.NewMetricsRecorder()),
	}
	if tags := c.StringSlice("tag"); len(tags) > 0 {
		opts = append(opts, prefectc.WithTags(tags...))
	}
	if c.IsSet("namespace") {
		opts = append(opts, prefectc.WithNamespace(c.String("namespace")))
	}

	src, err := prefectc.Compile(c.Context, wf.Graph(), wf.Flow(), cfg, opts...)
	if err != nil {
		return "", nil, err
	}
	return src, wf, nil
}

// defaultOutputPath derives the generated-file path from the export path:
// the export's directory and base name with a _prefect.py suffix.
func defaultOutputPath(exportPath string) string {
	base := filepath.Base(exportPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(exportPath), base+"_prefect.py")
}

// resolveOutputPath picks the output path and rejects one that would
// overwrite the export itself.
func resolveOutputPath(exportPath, requested string) (string, error) {
	out := requested
	if out == "" {
		out = defaultOutputPath(exportPath)
	}
	if filepath.Clean(out) == filepath.Clean(exportPath) {
		return "", prefectc.NewConfigError(
			fmt.Sprintf("output path %q collides with the workflow export", out), nil)
	}
	return out, nil
}

// writeOutput writes generated source, creating parent directories.
func writeOutput(path, src string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return fmt.Errorf("write generated flow: %w", err)
	}
	return nil
}
