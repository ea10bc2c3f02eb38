package prefectc

import (
	"fmt"
	"sort"
	"strings"
)

// Analyze converts a host workflow graph into a FlowSpec.
//
// Validation runs before traversal and fails fast: unsupported constructs
// (parallel fan-out, @batch, @slurm, flow-level trigger/exit-hook policies)
// raise a NotSupportedError naming the offending step or policy. Traversal
// is a breadth-first topological walk from the unique start node; the
// returned FlowSpec lists steps in topological order.
//
// Analyze never mutates its inputs and holds no state between calls; it is
// safe to invoke concurrently for independent workflows.
func Analyze(g Graph, f Flow) (*FlowSpec, error) {
	if err := validate(g, f); err != nil {
		return nil, err
	}

	steps, err := topologicalOrder(g)
	if err != nil {
		return nil, err
	}

	params, err := extractParameters(f)
	if err != nil {
		return nil, err
	}

	return &FlowSpec{
		Name:         f.Name(),
		Steps:        steps,
		Parameters:   params,
		Description:  strings.TrimSpace(f.Doc()),
		ScheduleCron: extractSchedule(f),
		Tags:         append([]string(nil), f.Tags()...),
		ProjectName:  extractProject(f),
	}, nil
}

// flowDecoratorDenylist names flow-level policies that have no Prefect
// equivalent and therefore reject the whole workflow.
var flowDecoratorDenylist = []string{"trigger", "trigger_on_finish", "exit_hook"}

// validate rejects graph and flow features incompatible with Prefect.
func validate(g Graph, f Flow) error {
	for _, node := range g.Nodes() {
		if node.ParallelForeach() {
			return notSupportedf(
				"deploying flows with @parallel to Prefect is not supported")
		}
		for _, deco := range node.Decorators() {
			switch deco.Name() {
			case "batch":
				return notSupportedf(
					"step *%s* uses @batch which is not supported with Prefect; "+
						"remove @batch or use --with=batch at run time instead", node.Name())
			case "slurm":
				return notSupportedf(
					"step *%s* uses @slurm which is not supported with Prefect", node.Name())
			}
		}
	}

	for _, name := range flowDecoratorDenylist {
		if len(f.FlowDecorators(name)) > 0 {
			return notSupportedf("@%s is not supported with Prefect deployments", name)
		}
	}
	return nil
}

// topologicalOrder walks the graph breadth-first from the start node,
// deferring any node whose predecessors have not all been visited yet.
// A queue that stops making progress (a cycle, or a predecessor outside the
// reachable closure) yields a ConfigError rather than spinning forever.
func topologicalOrder(g Graph) ([]StepSpec, error) {
	start, ok := g.Node("start")
	if !ok {
		return nil, configf("workflow graph has no start step")
	}

	visited := make(map[string]bool)
	queue := []string{start.Name()}
	var result []StepSpec

	// Upper bound on pops: each of n nodes can be deferred at most n times.
	n := len(g.Nodes())
	budget := n*n + n

	for len(queue) > 0 {
		if budget--; budget < 0 {
			return nil, configf("workflow graph is not a DAG reachable from start")
		}

		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}

		node, ok := g.Node(name)
		if !ok {
			return nil, configf("step %q referenced but not defined", name)
		}

		// Process a node only once all its predecessors are done.
		if !allVisited(visited, node.InFuncs()) {
			queue = append(queue, name)
			continue
		}
		visited[name] = true

		nodeType := NodeType(node.Type())
		if !nodeType.Valid() {
			return nil, configf("step %q has unknown node type %q", name, node.Type())
		}

		result = append(result, StepSpec{
			Name:               node.Name(),
			Type:               nodeType,
			InFuncs:            append([]string(nil), node.InFuncs()...),
			OutFuncs:           append([]string(nil), node.OutFuncs()...),
			SplitParents:       append([]string(nil), node.SplitParents()...),
			MaxUserCodeRetries: maxUserCodeRetries(node),
			IsForeachJoin:      joinCloses(g, node, NodeForeach),
			IsSplitJoin:        joinCloses(g, node, NodeSplit),
			TimeoutSeconds:     timeoutSeconds(node),
			RetryDelaySeconds:  retryDelaySeconds(node),
			EnvVars:            stepEnvVars(node),
		})

		for _, child := range node.OutFuncs() {
			if !visited[child] {
				queue = append(queue, child)
			}
		}
	}

	return result, nil
}

// allVisited reports whether every name is in the visited set.
func allVisited(visited map[string]bool, names []string) bool {
	for _, name := range names {
		if !visited[name] {
			return false
		}
	}
	return true
}

// maxUserCodeRetries returns the maximum user-code retry count across all
// policies attached to the node, 0 if none.
func maxUserCodeRetries(node Node) int {
	max := 0
	for _, deco := range node.Decorators() {
		if user, _ := deco.RetryCounts(); user > max {
			max = user
		}
	}
	return max
}

// retryDelaySeconds reads @retry(minutes_between_retries=N) as seconds,
// 0 when absent or zero.
func retryDelaySeconds(node Node) int {
	for _, deco := range node.Decorators() {
		if deco.Name() != "retry" {
			continue
		}
		if mins := attrInt(deco.Attributes(), "minutes_between_retries"); mins > 0 {
			return mins * 60
		}
	}
	return 0
}

// timeoutSeconds sums the seconds/minutes/hours fields of a @timeout
// policy, 0 when absent or when the total is zero.
func timeoutSeconds(node Node) int {
	for _, deco := range node.Decorators() {
		if deco.Name() != "timeout" {
			continue
		}
		attrs := deco.Attributes()
		total := attrInt(attrs, "seconds") +
			attrInt(attrs, "minutes")*60 +
			attrInt(attrs, "hours")*3600
		if total > 0 {
			return total
		}
	}
	return 0
}

// stepEnvVars returns the vars of an @environment policy as (key, value)
// pairs sorted by key, nil when absent.
func stepEnvVars(node Node) []EnvVar {
	for _, deco := range node.Decorators() {
		if deco.Name() != "environment" {
			continue
		}
		raw, ok := deco.Attributes()["vars"]
		if !ok || raw == nil {
			return nil
		}
		var vars []EnvVar
		switch m := raw.(type) {
		case map[string]string:
			for k, v := range m {
				vars = append(vars, EnvVar{Key: k, Value: v})
			}
		case map[string]any:
			for k, v := range m {
				vars = append(vars, EnvVar{Key: k, Value: fmt.Sprintf("%v", v)})
			}
		default:
			return nil
		}
		sort.Slice(vars, func(i, j int) bool { return vars[i].Key < vars[j].Key })
		return vars
	}
	return nil
}

// joinCloses reports whether node is a join step whose nearest enclosing
// fork has the given type. This is a structural fact about the fork, not
// about the join itself.
func joinCloses(g Graph, node Node, forkType NodeType) bool {
	if NodeType(node.Type()) != NodeJoin {
		return false
	}
	parents := node.SplitParents()
	if len(parents) == 0 {
		return false
	}
	fork, ok := g.Node(parents[len(parents)-1])
	if !ok {
		return false
	}
	return NodeType(fork.Type()) == forkType
}

// paramLookups is the ordered list of storage locations tried when reading
// a parameter keyword argument. Stock frameworks store values in Kwargs;
// some variants leave Kwargs empty and use OverrideKwargs instead.
var paramLookups = []func(Parameter, string) any{
	func(p Parameter, key string) any { return p.Kwargs()[key] },
	func(p Parameter, key string) any { return p.OverrideKwargs()[key] },
}

// paramKwarg resolves a parameter keyword argument through paramLookups.
func paramKwarg(p Parameter, key string) any {
	for _, lookup := range paramLookups {
		if v := lookup(p, key); v != nil {
			return v
		}
	}
	return nil
}

// extractParameters pulls declared parameters from the flow and evaluates
// their defaults into concrete scalars.
func extractParameters(f Flow) ([]ParameterSpec, error) {
	var params []ParameterSpec
	for _, p := range f.Parameters() {
		def, err := evalDefault(paramKwarg(p, "default"))
		if err != nil {
			return nil, &ConfigError{
				Reason: fmt.Sprintf("cannot evaluate default for parameter %q", p.Name()),
				Err:    err,
			}
		}
		desc, _ := paramKwarg(p, "help").(string)
		params = append(params, ParameterSpec{
			Name:        p.Name(),
			Default:     def,
			Description: desc,
			TypeName:    typeName(def),
		})
	}
	return params, nil
}

// evalDefault evaluates a deploy-time-deferred default exactly once;
// static values pass through unchanged.
func evalDefault(v any) (any, error) {
	if deferred, ok := v.(DeferredValue); ok {
		return deferred.DeployTimeEval()
	}
	return v, nil
}

// typeName classifies an evaluated default into the target runtime's
// parameter type names, defaulting to "str" for unrecognized or nil values.
func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	default:
		return "str"
	}
}

// extractSchedule returns a 5-field cron string from a flow-level schedule
// policy. An explicit cron wins; the weekly/daily/hourly shorthands map to
// canonical expressions; no policy means no schedule.
func extractSchedule(f Flow) string {
	schedules := f.FlowDecorators("schedule")
	if len(schedules) == 0 {
		return ""
	}
	attrs := schedules[0].Attributes()
	if cron := attrString(attrs, "cron"); cron != "" {
		return cron
	}
	if attrTruthy(attrs, "weekly") {
		return "0 0 * * 0"
	}
	if attrTruthy(attrs, "hourly") {
		return "0 * * * *"
	}
	if attrTruthy(attrs, "daily") {
		return "0 0 * * *"
	}
	return ""
}

// extractProject returns the name attribute of a @project policy, "" if absent.
func extractProject(f Flow) string {
	projects := f.FlowDecorators("project")
	if len(projects) == 0 {
		return ""
	}
	return attrString(projects[0].Attributes(), "name")
}

// attrInt coerces a decorator attribute to int, tolerating the numeric
// types different deserializers produce. Missing or non-numeric values
// yield 0.
func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case uint:
		return int(v)
	}
	return 0
}

// attrString reads a string attribute, "" when missing or not a string.
func attrString(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

// attrTruthy mirrors the host framework's truthiness check on shorthand
// schedule attributes (set-and-true booleans, non-empty strings).
func attrTruthy(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}
