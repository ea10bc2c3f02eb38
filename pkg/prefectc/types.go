package prefectc

// NodeType mirrors the host framework's graph-node classification.
// It drives code-generation branching; no other values are valid.
type NodeType string

// The closed set of step roles.
const (
	NodeStart   NodeType = "start"
	NodeLinear  NodeType = "linear"
	NodeSplit   NodeType = "split"
	NodeJoin    NodeType = "join"
	NodeForeach NodeType = "foreach"
	NodeEnd     NodeType = "end"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeStart, NodeLinear, NodeSplit, NodeJoin, NodeForeach, NodeEnd:
		return true
	}
	return false
}

// EnvVar is a single environment variable attached to a step.
type EnvVar struct {
	Key   string
	Value string
}

// StepSpec is the compiled specification for a single workflow step.
// Produced by Analyze and consumed by Generate. Treat as immutable:
// the analyzer builds each StepSpec once and nothing mutates it afterwards.
type StepSpec struct {
	// Name is the unique step identifier, also used as the generated
	// task-function name suffix.
	Name string

	// Type classifies the step (start, linear, split, join, foreach, end).
	Type NodeType

	// InFuncs and OutFuncs are the upstream/downstream step names.
	InFuncs  []string
	OutFuncs []string

	// SplitParents is the ancestor chain of forks this step is nested
	// under, outermost first. Empty for top-level steps.
	SplitParents []string

	// MaxUserCodeRetries is the maximum user-code retry count across all
	// retry policies attached to the step.
	MaxUserCodeRetries int

	// IsForeachJoin marks a join that closes a dynamic (foreach) fan-out.
	// IsSplitJoin marks a join that closes a static split.
	IsForeachJoin bool
	IsSplitJoin   bool

	// TimeoutSeconds and RetryDelaySeconds are per-step policy values.
	// Zero means the policy is absent.
	TimeoutSeconds    int
	RetryDelaySeconds int

	// EnvVars holds the step's environment policy, sorted by key.
	EnvVars []EnvVar
}

// ParameterSpec is one declared workflow parameter as seen at deploy time.
// Default holds the already-evaluated scalar (string, int, float64 or bool).
type ParameterSpec struct {
	Name        string
	Default     any
	Description string
	// TypeName is one of "str", "int", "float", "bool".
	TypeName string
}

// FlowSpec is the fully-analyzed description of a workflow, ready for code
// generation. Steps are in topological order: the start step first, the end
// step last, every step after all of its predecessors.
type FlowSpec struct {
	Name         string
	Steps        []StepSpec
	Parameters   []ParameterSpec
	Description  string
	ScheduleCron string // empty when no schedule policy is present
	Tags         []string
	Namespace    string
	ProjectName  string
}

// Step returns the step with the given name, if present.
func (s *FlowSpec) Step(name string) (*StepSpec, bool) {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i], true
		}
	}
	return nil, false
}

// Config carries user-supplied options for the generated Prefect flow file.
// It is emission-time configuration, not part of the workflow itself.
type Config struct {
	// FlowFile is the absolute path to the original workflow source file.
	FlowFile string

	// DatastoreType and MetadataType name the Metaflow backends; both
	// default to "local".
	DatastoreType string
	MetadataType  string

	// Code-package addressing, passed through verbatim.
	CodePackageURL      string
	CodePackageSHA      string
	CodePackageMetadata string

	// Username is the acting user recorded on generated runs.
	Username string

	// MaxWorkers caps concurrent Prefect tasks. Defaults to 10.
	MaxWorkers int

	// WithDecorators are capability flags forwarded to every step
	// invocation as --with=<flag> arguments.
	WithDecorators []string
}

// withDefaults returns a copy of c with zero-value fields defaulted.
func (c Config) withDefaults() Config {
	if c.DatastoreType == "" {
		c.DatastoreType = "local"
	}
	if c.MetadataType == "" {
		c.MetadataType = "local"
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 10
	}
	return c
}
