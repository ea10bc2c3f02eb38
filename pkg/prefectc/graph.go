package prefectc

// The host workflow framework's graph and flow objects are consumed through
// the narrow capability interfaces below. Only the fields the analyzer reads
// are exposed; adapt real host objects to these at the boundary (see the
// metaflow subpackage for the serialized-export adapter).

// Graph is an iterable, name-indexable collection of workflow step nodes.
// Implementations are read-only; the analyzer never mutates them.
type Graph interface {
	// Nodes returns every step node in the graph.
	Nodes() []Node

	// Node looks up a step node by name.
	Node(name string) (Node, bool)
}

// Node describes one step of the host workflow graph.
type Node interface {
	// Name is the unique step identifier.
	Name() string

	// Type is the host framework's node classification string
	// (start, linear, split, join, foreach, end).
	Type() string

	// InFuncs and OutFuncs are upstream/downstream step names.
	InFuncs() []string
	OutFuncs() []string

	// SplitParents is the ancestor chain of forks enclosing this step,
	// outermost first.
	SplitParents() []string

	// ParallelForeach reports whether the step uses the distinct
	// parallel dynamic fan-out discipline (unsupported here).
	ParallelForeach() bool

	// Decorators returns the step's attached policies in order.
	Decorators() []Decorator
}

// Decorator is a per-step or per-flow declarative policy.
type Decorator interface {
	// Name identifies the policy (retry, timeout, environment, batch,
	// slurm, schedule, project, trigger, ...).
	Name() string

	// Attributes exposes the policy's keyword arguments.
	Attributes() map[string]any

	// RetryCounts returns the (user-code, system) retry counts this
	// policy contributes. Policies without retry semantics return (0, 0).
	RetryCounts() (user, system int)
}

// Flow describes the workflow object the graph was derived from.
type Flow interface {
	// Name is the workflow name (e.g. "SimpleFlow").
	Name() string

	// Doc is the workflow's docstring, possibly empty.
	Doc() string

	// Tags are workflow-level tags, possibly empty.
	Tags() []string

	// Parameters enumerates the declared workflow parameters.
	Parameters() []Parameter

	// FlowDecorators returns the flow-level policies registered under
	// the given name (schedule, project, trigger, trigger_on_finish,
	// exit_hook). A missing name yields an empty slice, never an error.
	FlowDecorators(name string) []Decorator
}

// Parameter is one declared workflow parameter. The host framework stores
// keyword arguments in one of two locations depending on the variant; the
// analyzer tries Kwargs first and OverrideKwargs second.
type Parameter interface {
	Name() string
	Kwargs() map[string]any
	OverrideKwargs() map[string]any
}

// DeferredValue is a parameter default computed at deploy time rather than
// declared statically. The analyzer evaluates it exactly once, at analysis
// time, into a concrete scalar; it is never carried into generated code.
type DeferredValue interface {
	DeployTimeEval() (any, error)
}
