package cli

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/flowforge/prefectc/pkg/prefectc"
	"github.com/flowforge/prefectc/pkg/prefectc/observability"
	"github.com/flowforge/prefectc/pkg/prefectc/registry"
)

var deployCommand = &cli.Command{
	Name:      "deploy",
	Usage:     "Compile a workflow export and register it as a Prefect deployment",
	ArgsUsage: "<export-file>",
	Description: `Compile a serialized Metaflow workflow export, write the generated
Prefect program, and register it as a named deployment on the Prefect
server the local client is configured for. The flow's schedule, if
any, becomes the deployment schedule. Requires the prefect Python
package; the command fails before doing anything if it is missing.

Examples:
  prefectc deploy myflow_export.yaml --name myflow/prod --work-pool default-pool
  prefectc deploy myflow_export.yaml --work-pool k8s-pool --paused
  prefectc deploy myflow_export.yaml --tag env:prod --namespace production`,
	Flags: append(compileFlags(),
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Deployment name (defaults to the flow name)",
		},
		&cli.StringFlag{
			Name:  "work-pool",
			Usage: "Target Prefect work pool",
		},
		&cli.BoolFlag{
			Name:  "paused",
			Usage: "Register the deployment paused instead of active",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Path for the generated program (defaults next to the export)",
		},
		&cli.StringFlag{
			Name:  "python",
			Usage: "Python interpreter used for registration",
			Value: "python3",
		},
		&cli.StringFlag{
			Name:  "registry",
			Usage: "Path to the local deployment registry database",
		},
	),
	Action: runDeploy,
}

// deploymentNameRe constrains deployment names to what the Prefect API
// accepts without escaping.
var deploymentNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_./-]*$`)

func runDeploy(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing workflow export file (see 'prefectc deploy --help')")
	}
	exportPath := c.Args().Get(0)
	logger := newLogger(c)

	python, err := exec.LookPath(c.String("python"))
	if err != nil {
		return fmt.Errorf("python interpreter %q not found: %w", c.String("python"), err)
	}
	if err := checkPrefectAvailable(c, python); err != nil {
		return err
	}

	src, wf, err := compileExport(c, exportPath)
	if err != nil {
		return err
	}
	spec, err := prefectc.Analyze(wf.Graph(), wf.Flow())
	if err != nil {
		return err
	}

	name := c.String("name")
	if name == "" {
		name = strings.ReplaceAll(prefectc.FlowFunctionName(spec.Name), "_", "-")
	}
	if !deploymentNameRe.MatchString(name) {
		return prefectc.NewConfigError(
			fmt.Sprintf("invalid deployment name %q", name), nil)
	}

	out, err := resolveOutputPath(exportPath, c.String("output"))
	if err != nil {
		return err
	}
	if err := writeOutput(out, src); err != nil {
		return err
	}

	metrics := observability.NewMetricsRecorder()
	script := deployScript(out, prefectc.FlowFunctionName(spec.Name), name,
		c.String("work-pool"), spec.ScheduleCron, c.Bool("paused"))
	cmd := exec.CommandContext(c.Context, python, "-c", script)
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		metrics.RecordDeployment(c.Context, spec.Name, false)
		observability.LogDeploymentError(logger, spec.Name, err)
		return fmt.Errorf("deployment registration failed: %w\n%s", err, outBytes)
	}
	metrics.RecordDeployment(c.Context, spec.Name, true)
	observability.LogDeployment(logger, spec.Name, name)

	d := registry.NewDeployment(spec.Name, name)
	d.WorkPool = c.String("work-pool")
	d.ScheduleCron = spec.ScheduleCron
	d.SourceFile = exportPath
	d.OutputFile = out
	d.Paused = c.Bool("paused")
	d.Tags = spec.Tags
	if tags := c.StringSlice("tag"); len(tags) > 0 {
		d.Tags = tags
	}
	if err := recordDeployment(c, d); err != nil {
		return err
	}

	fmt.Printf("Registered deployment %s (flow %s) from %s\n", name, spec.Name, out)
	return nil
}

// checkPrefectAvailable probes the interpreter for the prefect package.
func checkPrefectAvailable(c *cli.Context, python string) error {
	cmd := exec.CommandContext(c.Context, python, "-c", "import prefect")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf(
			"the prefect client library is not available under %s; install it with 'pip install prefect': %w\n%s",
			python, err, out)
	}
	return nil
}

// deployScript builds the Python snippet that loads the generated
// program and registers its flow as a deployment.
func deployScript(outputFile, flowFn, name, workPool, cron string, paused bool) string {
	var b strings.Builder
	b.WriteString("import runpy\n")
	fmt.Fprintf(&b, "ns = runpy.run_path(%s)\n", pyQuote(outputFile))
	fmt.Fprintf(&b, "flow = ns[%s]\n", pyQuote(flowFn))
	args := []string{
		"name=" + pyQuote(name),
		"work_pool_name=" + pyQuote(workPool),
	}
	if cron != "" {
		args = append(args, "cron="+pyQuote(cron))
	}
	if paused {
		args = append(args, "paused=True")
	} else {
		args = append(args, "paused=False")
	}
	args = append(args, "build=False", "push=False")
	fmt.Fprintf(&b, "flow.deploy(%s)\n", strings.Join(args, ", "))
	return b.String()
}

// pyQuote renders a single-quoted Python string literal.
func pyQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
