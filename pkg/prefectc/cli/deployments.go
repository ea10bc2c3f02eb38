package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/flowforge/prefectc/pkg/prefectc/registry"
)

var deploymentsCommand = &cli.Command{
	Name:      "deployments",
	Usage:     "List deployments registered by this tool",
	ArgsUsage: " ",
	Description: `List the deployments recorded in the local registry, newest first.
The registry only tracks deployments created through 'prefectc deploy';
it is not a view of the Prefect server.

Examples:
  prefectc deployments
  prefectc deployments --flow SimpleFlow
  prefectc deployments --registry ./deployments.db`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "flow",
			Usage: "Only show deployments of this flow",
		},
		&cli.StringFlag{
			Name:  "registry",
			Usage: "Path to the local deployment registry database",
		},
	},
	Action: runDeployments,
}

func runDeployments(c *cli.Context) error {
	store, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(c.String("flow"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No deployments recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FLOW\tDEPLOYMENT\tWORK POOL\tSCHEDULE\tPAUSED\tCREATED")
	for _, d := range records {
		pool := d.WorkPool
		if pool == "" {
			pool = "-"
		}
		cron := d.ScheduleCron
		if cron == "" {
			cron = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			d.FlowName, d.Name, pool, cron, d.Paused,
			d.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// defaultRegistryPath is where deployment records live unless --registry
// points elsewhere.
func defaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".prefectc", "deployments.db"), nil
}

// openRegistry opens the SQLite registry, creating its directory.
func openRegistry(c *cli.Context) (registry.Store, error) {
	path := c.String("registry")
	if path == "" {
		var err error
		if path, err = defaultRegistryPath(); err != nil {
			return nil, err
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}
	return registry.NewSQLiteStore(path)
}

// recordDeployment saves a registration in the local registry.
func recordDeployment(c *cli.Context, d registry.Deployment) error {
	store, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(d); err != nil {
		return fmt.Errorf("record deployment: %w", err)
	}
	return nil
}
