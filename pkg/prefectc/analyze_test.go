package prefectc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyze_SimpleFlowName verifies FlowSpec.Name matches the flow name.
func TestAnalyze_SimpleFlowName(t *testing.T) {
	g, f := simpleFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)
	assert.Equal(t, "SimpleFlow", spec.Name)
}

// TestAnalyze_TopologicalOrder verifies start comes first, end last, and
// every step appears after all of its predecessors.
func TestAnalyze_TopologicalOrder(t *testing.T) {
	g, f := branchFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	require.NotEmpty(t, spec.Steps)
	assert.Equal(t, "start", spec.Steps[0].Name)
	assert.Equal(t, "end", spec.Steps[len(spec.Steps)-1].Name)

	position := make(map[string]int)
	for i, s := range spec.Steps {
		position[s.Name] = i
	}
	for _, s := range spec.Steps {
		for _, parent := range s.InFuncs {
			assert.Less(t, position[parent], position[s.Name],
				"step %s appears before its predecessor %s", s.Name, parent)
		}
	}
}

// TestAnalyze_AllStepsPresent verifies every graph node reaches the spec.
func TestAnalyze_AllStepsPresent(t *testing.T) {
	g, f := branchFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	names := make([]string, len(spec.Steps))
	for i, s := range spec.Steps {
		names[i] = s.Name
	}
	assert.ElementsMatch(t, []string{"start", "branch_a", "branch_b", "join", "end"}, names)
}

// TestAnalyze_NodeTypes verifies node classification survives analysis:
// a branching start is a split, a fanning-out start is a foreach.
func TestAnalyze_NodeTypes(t *testing.T) {
	g, f := simpleFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	start, ok := spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, NodeStart, start.Type)

	end, ok := spec.Step("end")
	require.True(t, ok)
	assert.Equal(t, NodeEnd, end.Type)

	g, f = branchFlowGraph()
	spec, err = Analyze(g, f)
	require.NoError(t, err)
	start, ok = spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, NodeSplit, start.Type)

	g, f = foreachFlowGraph()
	spec, err = Analyze(g, f)
	require.NoError(t, err)
	start, ok = spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, NodeForeach, start.Type)
}

// TestAnalyze_SplitJoinClassification verifies a join closing a static
// split is flagged as a split join and not a foreach join.
func TestAnalyze_SplitJoinClassification(t *testing.T) {
	g, f := branchFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	join, ok := spec.Step("join")
	require.True(t, ok)
	assert.True(t, join.IsSplitJoin)
	assert.False(t, join.IsForeachJoin)
	assert.ElementsMatch(t, []string{"branch_a", "branch_b"}, join.InFuncs)
}

// TestAnalyze_ForeachJoinClassification verifies a join closing a
// dynamic fan-out is flagged as a foreach join.
func TestAnalyze_ForeachJoinClassification(t *testing.T) {
	g, f := foreachFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	join, ok := spec.Step("join_step")
	require.True(t, ok)
	assert.True(t, join.IsForeachJoin)
	assert.False(t, join.IsSplitJoin)
}

// TestAnalyze_RetryPolicy verifies retry count and delay extraction.
func TestAnalyze_RetryPolicy(t *testing.T) {
	g, f := decoratorFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	start, ok := spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, 2, start.MaxUserCodeRetries)
	assert.Equal(t, 60, start.RetryDelaySeconds)
}

// TestAnalyze_TimeoutPolicy verifies seconds and minutes timeout forms.
func TestAnalyze_TimeoutPolicy(t *testing.T) {
	g, f := decoratorFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	start, ok := spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, 300, start.TimeoutSeconds)

	end, ok := spec.Step("end")
	require.True(t, ok)
	assert.Equal(t, 300, end.TimeoutSeconds)
}

// TestAnalyze_EnvironmentPolicy verifies env vars are extracted sorted by key.
func TestAnalyze_EnvironmentPolicy(t *testing.T) {
	g, f := decoratorFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	start, ok := spec.Step("start")
	require.True(t, ok)
	assert.Equal(t, []EnvVar{
		{Key: "MY_VAR", Value: "hello"},
		{Key: "OTHER", Value: "world"},
	}, start.EnvVars)
}

// TestAnalyze_NoPolicies verifies absent policies yield zero values.
func TestAnalyze_NoPolicies(t *testing.T) {
	g, f := simpleFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	process, ok := spec.Step("process")
	require.True(t, ok)
	assert.Zero(t, process.MaxUserCodeRetries)
	assert.Zero(t, process.TimeoutSeconds)
	assert.Zero(t, process.RetryDelaySeconds)
	assert.Empty(t, process.EnvVars)
}

// TestAnalyze_Parameters verifies declared parameter extraction: names,
// evaluated defaults, descriptions and type classification.
func TestAnalyze_Parameters(t *testing.T) {
	g, f := paramFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)

	require.Len(t, spec.Parameters, 2)

	msg := spec.Parameters[0]
	assert.Equal(t, "message", msg.Name)
	assert.Equal(t, "hello", msg.Default)
	assert.Equal(t, "str", msg.TypeName)
	assert.Equal(t, "greeting text", msg.Description)

	count := spec.Parameters[1]
	assert.Equal(t, "count", count.Name)
	assert.Equal(t, 3, count.Default)
	assert.Equal(t, "int", count.TypeName)
}

// TestAnalyze_ParameterOverrideKwargs verifies the fallback storage
// location is consulted when the primary one is empty.
func TestAnalyze_ParameterOverrideKwargs(t *testing.T) {
	g, _ := simpleFlowGraph()
	f := &fakeFlow{
		name: "OverrideFlow",
		parameters: []Parameter{
			&fakeParam{name: "rate", override: map[string]any{"default": 0.5}},
		},
	}

	spec, err := Analyze(g, f)
	require.NoError(t, err)
	require.Len(t, spec.Parameters, 1)
	assert.Equal(t, 0.5, spec.Parameters[0].Default)
	assert.Equal(t, "float", spec.Parameters[0].TypeName)
}

// TestAnalyze_DeferredDefaultEvaluatedOnce verifies a deploy-time default
// is evaluated exactly once into a concrete scalar.
func TestAnalyze_DeferredDefaultEvaluatedOnce(t *testing.T) {
	g, _ := simpleFlowGraph()
	deferred := &deferredDefault{value: "computed"}
	f := &fakeFlow{
		name: "DeferredFlow",
		parameters: []Parameter{
			&fakeParam{name: "token", kwargs: map[string]any{"default": deferred}},
		},
	}

	spec, err := Analyze(g, f)
	require.NoError(t, err)
	require.Len(t, spec.Parameters, 1)
	assert.Equal(t, "computed", spec.Parameters[0].Default)
	assert.Equal(t, "str", spec.Parameters[0].TypeName)
	assert.Equal(t, 1, deferred.calls)
}

// TestAnalyze_DeferredDefaultError verifies an evaluation failure
// surfaces as a configuration error.
func TestAnalyze_DeferredDefaultError(t *testing.T) {
	g, _ := simpleFlowGraph()
	deferred := &deferredDefault{err: errors.New("vault unreachable")}
	f := &fakeFlow{
		name: "DeferredFlow",
		parameters: []Parameter{
			&fakeParam{name: "token", kwargs: map[string]any{"default": deferred}},
		},
	}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

// TestAnalyze_ScheduleCron verifies explicit cron wins over shorthands.
func TestAnalyze_ScheduleCron(t *testing.T) {
	g, _ := simpleFlowGraph()
	f := &fakeFlow{
		name: "CronFlow",
		decorators: map[string][]Decorator{
			"schedule": {&fakeDecorator{
				name:       "schedule",
				attributes: map[string]any{"cron": "*/5 * * * *", "daily": true},
			}},
		},
	}

	spec, err := Analyze(g, f)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", spec.ScheduleCron)
}

// TestAnalyze_ScheduleShorthands verifies the weekly/hourly/daily
// shorthand expansions.
func TestAnalyze_ScheduleShorthands(t *testing.T) {
	cases := []struct {
		name  string
		attrs map[string]any
		want  string
	}{
		{"weekly", map[string]any{"weekly": true}, "0 0 * * 0"},
		{"hourly", map[string]any{"hourly": true}, "0 * * * *"},
		{"daily", map[string]any{"daily": true}, "0 0 * * *"},
		{"none", map[string]any{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := simpleFlowGraph()
			f := &fakeFlow{
				name: "ScheduleFlow",
				decorators: map[string][]Decorator{
					"schedule": {&fakeDecorator{name: "schedule", attributes: tc.attrs}},
				},
			}
			spec, err := Analyze(g, f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, spec.ScheduleCron)
		})
	}
}

// TestAnalyze_NoSchedule verifies absence of a schedule policy.
func TestAnalyze_NoSchedule(t *testing.T) {
	g, f := simpleFlowGraph()
	spec, err := Analyze(g, f)
	require.NoError(t, err)
	assert.Empty(t, spec.ScheduleCron)
}

// TestAnalyze_ProjectName verifies @project name extraction.
func TestAnalyze_ProjectName(t *testing.T) {
	g, _ := simpleFlowGraph()
	f := &fakeFlow{
		name: "ProjectFlow",
		decorators: map[string][]Decorator{
			"project": {&fakeDecorator{
				name:       "project",
				attributes: map[string]any{"name": "churn_model"},
			}},
		},
	}

	spec, err := Analyze(g, f)
	require.NoError(t, err)
	assert.Equal(t, "churn_model", spec.ProjectName)
}

// TestAnalyze_RejectsParallelForeach verifies @parallel fan-out is rejected.
func TestAnalyze_RejectsParallelForeach(t *testing.T) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "start", outFuncs: []string{"end"}, parallelForeach: true},
		{name: "end", typ: "end", inFuncs: []string{"start"}},
	}}
	f := &fakeFlow{name: "ParallelFlow"}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSupported)
}

// TestAnalyze_RejectsBatch verifies @batch steps are rejected with the
// step named in the error.
func TestAnalyze_RejectsBatch(t *testing.T) {
	g := &fakeGraph{nodes: []*fakeNode{
		{
			name: "start", typ: "start", outFuncs: []string{"end"},
			decorators: []Decorator{&fakeDecorator{name: "batch", attributes: map[string]any{}}},
		},
		{name: "end", typ: "end", inFuncs: []string{"start"}},
	}}
	f := &fakeFlow{name: "BatchFlow"}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Contains(t, err.Error(), "start")
	assert.Contains(t, err.Error(), "@batch")
}

// TestAnalyze_RejectsSlurm verifies @slurm steps are rejected.
func TestAnalyze_RejectsSlurm(t *testing.T) {
	g := &fakeGraph{nodes: []*fakeNode{
		{
			name: "worker", typ: "start", outFuncs: []string{"end"},
			decorators: []Decorator{&fakeDecorator{name: "slurm", attributes: map[string]any{}}},
		},
		{name: "end", typ: "end", inFuncs: []string{"worker"}},
	}}
	f := &fakeFlow{name: "SlurmFlow"}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Contains(t, err.Error(), "worker")
}

// TestAnalyze_RejectsFlowLevelPolicies verifies trigger,
// trigger_on_finish and exit_hook flow policies are rejected.
func TestAnalyze_RejectsFlowLevelPolicies(t *testing.T) {
	for _, policy := range []string{"trigger", "trigger_on_finish", "exit_hook"} {
		t.Run(policy, func(t *testing.T) {
			g, _ := simpleFlowGraph()
			f := &fakeFlow{
				name: "TriggeredFlow",
				decorators: map[string][]Decorator{
					policy: {&fakeDecorator{name: policy, attributes: map[string]any{}}},
				},
			}

			_, err := Analyze(g, f)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotSupported)
			assert.Contains(t, err.Error(), policy)
		})
	}
}

// TestAnalyze_MissingStart verifies a graph without a start step fails
// with a configuration error.
func TestAnalyze_MissingStart(t *testing.T) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "middle", typ: "linear", outFuncs: []string{"end"}},
		{name: "end", typ: "end", inFuncs: []string{"middle"}},
	}}
	f := &fakeFlow{name: "HeadlessFlow"}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

// TestAnalyze_CyclicGraph verifies a cycle reachable from start is
// reported as a configuration error instead of hanging the walk.
func TestAnalyze_CyclicGraph(t *testing.T) {
	g := &fakeGraph{nodes: []*fakeNode{
		{name: "start", typ: "start", outFuncs: []string{"a"}},
		{name: "a", typ: "linear", inFuncs: []string{"start", "b"}, outFuncs: []string{"b"}},
		{name: "b", typ: "linear", inFuncs: []string{"a"}, outFuncs: []string{"a", "end"}},
		{name: "end", typ: "end", inFuncs: []string{"b"}},
	}}
	f := &fakeFlow{name: "CyclicFlow"}

	_, err := Analyze(g, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

// TestAnalyze_FlowMetadata verifies description and tags pass through.
func TestAnalyze_FlowMetadata(t *testing.T) {
	g, _ := simpleFlowGraph()
	f := &fakeFlow{
		name: "TaggedFlow",
		doc:  "  Does things.\n",
		tags: []string{"team:data", "env:dev"},
	}

	spec, err := Analyze(g, f)
	require.NoError(t, err)
	assert.Equal(t, "Does things.", spec.Description)
	assert.Equal(t, []string{"team:data", "env:dev"}, spec.Tags)
}
