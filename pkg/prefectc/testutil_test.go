package prefectc

// Fake host-framework objects used across tests.

// fakeDecorator is a step or flow policy with static attributes.
type fakeDecorator struct {
	name        string
	attributes  map[string]any
	userRetries int
	sysRetries  int
}

func (d *fakeDecorator) Name() string { return d.name }

func (d *fakeDecorator) Attributes() map[string]any { return d.attributes }

func (d *fakeDecorator) RetryCounts() (int, int) { return d.userRetries, d.sysRetries }

// fakeNode is one step of a fake workflow graph.
type fakeNode struct {
	name            string
	typ             string
	inFuncs         []string
	outFuncs        []string
	splitParents    []string
	parallelForeach bool
	decorators      []Decorator
}

func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) Type() string { return n.typ }

func (n *fakeNode) InFuncs() []string { return n.inFuncs }

func (n *fakeNode) OutFuncs() []string { return n.outFuncs }

func (n *fakeNode) SplitParents() []string { return n.splitParents }

func (n *fakeNode) ParallelForeach() bool { return n.parallelForeach }

func (n *fakeNode) Decorators() []Decorator { return n.decorators }

// fakeGraph is an ordered, name-indexable node collection.
type fakeGraph struct {
	nodes []*fakeNode
}

func (g *fakeGraph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n
	}
	return out
}

func (g *fakeGraph) Node(name string) (Node, bool) {
	for _, n := range g.nodes {
		if n.name == name {
			return n, true
		}
	}
	return nil, false
}

// fakeParam is a declared workflow parameter.
type fakeParam struct {
	name     string
	kwargs   map[string]any
	override map[string]any
}

func (p *fakeParam) Name() string { return p.name }

func (p *fakeParam) Kwargs() map[string]any { return p.kwargs }

func (p *fakeParam) OverrideKwargs() map[string]any { return p.override }

// fakeFlow is the workflow metadata object.
type fakeFlow struct {
	name       string
	doc        string
	tags       []string
	parameters []Parameter
	decorators map[string][]Decorator
}

func (f *fakeFlow) Name() string { return f.name }

func (f *fakeFlow) Doc() string { return f.doc }

func (f *fakeFlow) Tags() []string { return f.tags }

func (f *fakeFlow) Parameters() []Parameter { return f.parameters }

func (f *fakeFlow) FlowDecorators(name string) []Decorator {
	return f.decorators[name]
}

// deferredDefault is a deploy-time-evaluated parameter default.
type deferredDefault struct {
	value any
	err   error
	calls int
}

func (d *deferredDefault) DeployTimeEval() (any, error) {
	d.calls++
	return d.value, d.err
}

// simpleFlowGraph is a three-step linear flow: start -> process -> end.
func simpleFlowGraph() (*fakeGraph, *fakeFlow) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "start", outFuncs: []string{"process"}},
		{name: "process", typ: "linear", inFuncs: []string{"start"}, outFuncs: []string{"end"}},
		{name: "end", typ: "end", inFuncs: []string{"process"}},
	}}
	f := &fakeFlow{name: "SimpleFlow", doc: "A simple linear flow."}
	return g, f
}

// branchFlowGraph is a static fan-out flow:
// start -> (branch_a, branch_b) -> join -> end.
func branchFlowGraph() (*fakeGraph, *fakeFlow) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "split", outFuncs: []string{"branch_a", "branch_b"}},
		{name: "branch_a", typ: "linear", inFuncs: []string{"start"}, outFuncs: []string{"join"}, splitParents: []string{"start"}},
		{name: "branch_b", typ: "linear", inFuncs: []string{"start"}, outFuncs: []string{"join"}, splitParents: []string{"start"}},
		{name: "join", typ: "join", inFuncs: []string{"branch_a", "branch_b"}, outFuncs: []string{"end"}, splitParents: []string{"start"}},
		{name: "end", typ: "end", inFuncs: []string{"join"}},
	}}
	f := &fakeFlow{name: "BranchFlow"}
	return g, f
}

// foreachFlowGraph is a dynamic fan-out flow:
// start[foreach] -> foreach_step -> join_step -> end.
func foreachFlowGraph() (*fakeGraph, *fakeFlow) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "foreach", outFuncs: []string{"foreach_step"}},
		{name: "foreach_step", typ: "linear", inFuncs: []string{"start"}, outFuncs: []string{"join_step"}, splitParents: []string{"start"}},
		{name: "join_step", typ: "join", inFuncs: []string{"foreach_step"}, outFuncs: []string{"end"}, splitParents: []string{"start"}},
		{name: "end", typ: "end", inFuncs: []string{"join_step"}},
	}}
	f := &fakeFlow{name: "ForeachFlow"}
	return g, f
}

// paramFlowGraph is a linear flow declaring two parameters:
// message (str, "hello") and count (int, 3).
func paramFlowGraph() (*fakeGraph, *fakeFlow) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "start", outFuncs: []string{"end"}},
		{name: "end", typ: "end", inFuncs: []string{"start"}},
	}}
	f := &fakeFlow{
		name: "ParamFlow",
		parameters: []Parameter{
			&fakeParam{name: "message", kwargs: map[string]any{"default": "hello", "help": "greeting text"}},
			&fakeParam{name: "count", kwargs: map[string]any{"default": 3}},
		},
	}
	return g, f
}

// decoratorFlowGraph is a linear flow with retry, timeout and
// environment policies attached to its steps.
func decoratorFlowGraph() (*fakeGraph, *fakeFlow) {
	g := &fakeGraph{nodes: []*fakeNode{
		{
			name: "start", typ: "start", outFuncs: []string{"end"},
			decorators: []Decorator{
				&fakeDecorator{
					name:        "retry",
					attributes:  map[string]any{"times": 2, "minutes_between_retries": 1},
					userRetries: 2,
				},
				&fakeDecorator{
					name:       "timeout",
					attributes: map[string]any{"seconds": 300},
				},
				&fakeDecorator{
					name: "environment",
					attributes: map[string]any{
						"vars": map[string]string{"MY_VAR": "hello", "OTHER": "world"},
					},
				},
			},
		},
		{
			name: "end", typ: "end", inFuncs: []string{"start"},
			decorators: []Decorator{
				&fakeDecorator{
					name:       "timeout",
					attributes: map[string]any{"minutes": 5},
				},
			},
		},
	}}
	f := &fakeFlow{name: "DecoratorFlow"}
	return g, f
}

// testConfig returns an emission config with the fields most tests need.
func testConfig() Config {
	return Config{
		FlowFile:      "/flows/myflow.py",
		DatastoreType: "local",
		MetadataType:  "local",
		Username:      "tester",
	}
}
