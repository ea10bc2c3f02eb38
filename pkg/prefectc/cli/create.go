package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var createCommand = &cli.Command{
	Name:      "create",
	Aliases:   []string{"compile"},
	Usage:     "Compile a workflow export to a Prefect program file",
	ArgsUsage: "<export-file> [output-file]",
	Description: `Compile a serialized Metaflow workflow export into a standalone
Prefect program. The output path defaults to the export's base name
with a _prefect.py suffix, next to the export.

Examples:
  prefectc create myflow_export.yaml
  prefectc create myflow_export.yaml flows/myflow_prefect.py
  prefectc create myflow_export.yaml --tag env:dev --tag team:data
  prefectc create myflow_export.yaml --stdout`,
	Flags: append(compileFlags(),
		&cli.BoolFlag{
			Name:  "stdout",
			Usage: "Print the generated program instead of writing a file",
		},
	),
	Action: runCreate,
}

func runCreate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing workflow export file (see 'prefectc create --help')")
	}
	exportPath := c.Args().Get(0)

	src, _, err := compileExport(c, exportPath)
	if err != nil {
		return err
	}

	if c.Bool("stdout") {
		fmt.Print(src)
		return nil
	}

	out, err := resolveOutputPath(exportPath, c.Args().Get(1))
	if err != nil {
		return err
	}
	if err := writeOutput(out, src); err != nil {
		return err
	}

	fmt.Printf("Compiled %s -> %s\n", exportPath, out)
	return nil
}
