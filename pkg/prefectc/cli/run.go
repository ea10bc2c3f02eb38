package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Compile a workflow export and execute the Prefect program locally",
	ArgsUsage: "<export-file>",
	Description: `Compile a serialized Metaflow workflow export and immediately run the
generated Prefect program with the local Python interpreter. Without
--output the program is written to a temporary directory.

Examples:
  prefectc run myflow_export.yaml
  prefectc run myflow_export.yaml --tag env:dev --max-workers 4
  prefectc run myflow_export.yaml --output flows/myflow_prefect.py --keep`,
	Flags: append(compileFlags(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the generated program here instead of a temporary file",
		},
		&cli.BoolFlag{
			Name:  "keep",
			Usage: "Keep the generated program after the run",
		},
		&cli.StringFlag{
			Name:  "python",
			Usage: "Python interpreter used to run the program",
			Value: "python3",
		},
	),
	Action: runRun,
}

func runRun(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing workflow export file (see 'prefectc run --help')")
	}
	exportPath := c.Args().Get(0)

	python, err := exec.LookPath(c.String("python"))
	if err != nil {
		return fmt.Errorf("python interpreter %q not found: %w", c.String("python"), err)
	}

	src, _, err := compileExport(c, exportPath)
	if err != nil {
		return err
	}

	out := c.String("output")
	keep := c.Bool("keep") || out != ""
	if out == "" {
		dir, err := os.MkdirTemp("", "prefectc-*")
		if err != nil {
			return fmt.Errorf("create temp directory: %w", err)
		}
		out = filepath.Join(dir, filepath.Base(defaultOutputPath(exportPath)))
		defer os.RemoveAll(dir)
	} else {
		if out, err = resolveOutputPath(exportPath, out); err != nil {
			return err
		}
	}
	if err := writeOutput(out, src); err != nil {
		return err
	}
	if !keep {
		defer os.Remove(out)
	}

	cmd := exec.CommandContext(c.Context, python, out)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("flow run failed: %w", err)
	}
	return nil
}
