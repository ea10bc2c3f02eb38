// Package metaflow adapts serialized Metaflow workflow exports to the
// compiler's Graph and Flow interfaces.
//
// An export is a YAML (or JSON, which YAML subsumes) document produced
// by dumping a flow's graph and metadata. Loading one yields a Workflow
// whose Graph and Flow views plug straight into prefectc.Compile, so
// the compiler never has to run inside a Python process.
package metaflow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowforge/prefectc/pkg/prefectc"
)

// defaultRetryTimes mirrors the host framework's @retry default when the
// times attribute is omitted.
const defaultRetryTimes = 3

// Document is the wire shape of a serialized workflow export.
type Document struct {
	Flow  FlowDoc   `yaml:"flow"`
	Nodes []NodeDoc `yaml:"nodes"`
}

// FlowDoc carries the workflow-level metadata of an export.
type FlowDoc struct {
	Name       string                    `yaml:"name"`
	Doc        string                    `yaml:"doc"`
	Tags       []string                  `yaml:"tags"`
	Parameters []ParamDoc                `yaml:"parameters"`
	Decorators map[string][]DecoratorDoc `yaml:"decorators"`
}

// NodeDoc carries one step of an export.
type NodeDoc struct {
	Name            string         `yaml:"name"`
	Type            string         `yaml:"type"`
	InFuncs         []string       `yaml:"in_funcs"`
	OutFuncs        []string       `yaml:"out_funcs"`
	SplitParents    []string       `yaml:"split_parents"`
	ParallelForeach bool           `yaml:"parallel_foreach"`
	Decorators      []DecoratorDoc `yaml:"decorators"`
}

// DecoratorDoc carries one policy of an export.
type DecoratorDoc struct {
	Name       string         `yaml:"name"`
	Attributes map[string]any `yaml:"attributes"`
}

// ParamDoc carries one declared workflow parameter of an export.
type ParamDoc struct {
	Name           string         `yaml:"name"`
	Kwargs         map[string]any `yaml:"kwargs"`
	OverrideKwargs map[string]any `yaml:"override_kwargs"`
}

// Workflow is a loaded export, viewable as the compiler's Graph and
// Flow inputs.
type Workflow struct {
	doc    Document
	nodes  []*node
	byName map[string]*node
}

// Load parses a workflow export from r.
func Load(r io.Reader) (*Workflow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, prefectc.NewConfigError("cannot read workflow export", err)
	}
	return Parse(data)
}

// LoadFile parses a workflow export from the file at path.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, prefectc.NewConfigError("cannot read workflow export", err)
	}
	return Parse(data)
}

// Parse parses a workflow export from raw YAML or JSON bytes and
// validates its structural integrity.
func Parse(data []byte) (*Workflow, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, prefectc.NewConfigError("cannot parse workflow export", err)
	}

	w := &Workflow{doc: doc, byName: make(map[string]*node, len(doc.Nodes))}
	for i := range doc.Nodes {
		nd := &doc.Nodes[i]
		if nd.Name == "" {
			return nil, prefectc.NewConfigError("workflow export contains an unnamed step", nil)
		}
		if _, dup := w.byName[nd.Name]; dup {
			return nil, prefectc.NewConfigError(
				fmt.Sprintf("workflow export declares step %q twice", nd.Name), nil)
		}
		n := &node{doc: nd}
		w.nodes = append(w.nodes, n)
		w.byName[nd.Name] = n
	}

	if doc.Flow.Name == "" {
		return nil, prefectc.NewConfigError("workflow export has no flow name", nil)
	}
	for _, n := range w.nodes {
		for _, ref := range append(append([]string{}, n.doc.InFuncs...), n.doc.OutFuncs...) {
			if _, ok := w.byName[ref]; !ok {
				return nil, prefectc.NewConfigError(
					fmt.Sprintf("step %q references undeclared step %q", n.doc.Name, ref), nil)
			}
		}
	}
	return w, nil
}

// Graph returns the compiler's graph view of the export.
func (w *Workflow) Graph() prefectc.Graph { return (*graph)(w) }

// Flow returns the compiler's flow view of the export.
func (w *Workflow) Flow() prefectc.Flow { return (*flow)(w) }

// graph adapts a Workflow to prefectc.Graph.
type graph Workflow

func (g *graph) Nodes() []prefectc.Node {
	out := make([]prefectc.Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n
	}
	return out
}

func (g *graph) Node(name string) (prefectc.Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// node adapts a NodeDoc to prefectc.Node.
type node struct {
	doc *NodeDoc
}

func (n *node) Name() string { return n.doc.Name }

func (n *node) Type() string { return n.doc.Type }

func (n *node) InFuncs() []string { return n.doc.InFuncs }

func (n *node) OutFuncs() []string { return n.doc.OutFuncs }

func (n *node) SplitParents() []string { return n.doc.SplitParents }

func (n *node) ParallelForeach() bool { return n.doc.ParallelForeach }

func (n *node) Decorators() []prefectc.Decorator {
	out := make([]prefectc.Decorator, len(n.doc.Decorators))
	for i := range n.doc.Decorators {
		out[i] = &decorator{doc: &n.doc.Decorators[i]}
	}
	return out
}

// decorator adapts a DecoratorDoc to prefectc.Decorator.
type decorator struct {
	doc *DecoratorDoc
}

func (d *decorator) Name() string { return d.doc.Name }

func (d *decorator) Attributes() map[string]any {
	if d.doc.Attributes == nil {
		return map[string]any{}
	}
	return d.doc.Attributes
}

// RetryCounts reports the user-code retry count a @retry policy
// contributes. A retry policy without a times attribute falls back to
// the framework default; every other policy contributes nothing.
func (d *decorator) RetryCounts() (int, int) {
	if d.doc.Name != "retry" {
		return 0, 0
	}
	times, ok := d.doc.Attributes["times"]
	if !ok {
		return defaultRetryTimes, 0
	}
	switch v := times.(type) {
	case int:
		return v, 0
	case int64:
		return int(v), 0
	case float64:
		return int(v), 0
	}
	return defaultRetryTimes, 0
}

// flow adapts a Workflow to prefectc.Flow.
type flow Workflow

func (f *flow) Name() string { return f.doc.Flow.Name }

func (f *flow) Doc() string { return f.doc.Flow.Doc }

func (f *flow) Tags() []string { return f.doc.Flow.Tags }

func (f *flow) Parameters() []prefectc.Parameter {
	out := make([]prefectc.Parameter, len(f.doc.Flow.Parameters))
	for i := range f.doc.Flow.Parameters {
		out[i] = &parameter{doc: &f.doc.Flow.Parameters[i]}
	}
	return out
}

func (f *flow) FlowDecorators(name string) []prefectc.Decorator {
	docs := f.doc.Flow.Decorators[name]
	out := make([]prefectc.Decorator, len(docs))
	for i := range docs {
		d := docs[i]
		if d.Name == "" {
			d.Name = name
		}
		out[i] = &decorator{doc: &d}
	}
	return out
}

// parameter adapts a ParamDoc to prefectc.Parameter.
type parameter struct {
	doc *ParamDoc
}

func (p *parameter) Name() string { return p.doc.Name }

func (p *parameter) Kwargs() map[string]any {
	if p.doc.Kwargs == nil {
		return map[string]any{}
	}
	return p.doc.Kwargs
}

func (p *parameter) OverrideKwargs() map[string]any {
	if p.doc.OverrideKwargs == nil {
		return map[string]any{}
	}
	return p.doc.OverrideKwargs
}
