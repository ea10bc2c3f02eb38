/*
Package prefectc compiles Metaflow workflow graphs into runnable
Prefect flow programs.

# Overview

prefectc is a two-stage compiler. The analyzer walks a workflow graph
into a validated, topologically ordered intermediate representation
(FlowSpec), extracting per-step policy (retries, timeouts, environment
variables) and flow-level metadata (parameters, schedule, tags). The
generator lowers that FlowSpec into a complete, standalone Python
program that drives the original workflow step by step through
Prefect tasks.

Supported topology shapes:
  - linear chains (start -> ... -> end)
  - static fan-out/fan-in (split/join)
  - dynamic fan-out/fan-in (foreach/join)

Anything else (nested parallel fan-out, @batch, @slurm, flow-level
trigger or exit-hook policies) is rejected at analysis time with a
NotSupportedError rather than translated lossily.

# Basic Usage

Adapt the host framework's graph and flow objects to the Graph and
Flow interfaces, then compile:

	src, err := prefectc.Compile(ctx, graph, flow, prefectc.Config{
	    FlowFile: "/flows/myflow.py",
	    Username: "alice",
	}, prefectc.WithTags("env:dev"))
	if err != nil {
	    log.Fatal(err)
	}
	os.WriteFile("myflow_prefect.py", []byte(src), 0o644)

The two stages are also exposed individually as Analyze and Generate
for callers that want to inspect or adjust the FlowSpec in between.

Serialized workflow exports (YAML or JSON) can be adapted via the
metaflow subpackage instead of implementing the interfaces by hand.

# Determinism

Compilation is a pure transformation: identical inputs always produce
byte-identical output, and no internal state is shared across calls.
Compile, Analyze and Generate are safe to invoke concurrently for
independent workflows.

# Error Handling

Two error kinds, both configuration-time:

	var nse *prefectc.NotSupportedError
	if errors.As(err, &nse) {
	    // workflow uses a construct this compiler does not lower
	}
	if errors.Is(err, prefectc.ErrConfig) {
	    // malformed input or configuration
	}

Either a complete valid program is produced or nothing is; there is no
partial output and the compiler never retries internally.

# Subpackages

  - cli: the prefectc command-line interface (create, run, deploy)
  - config: map-backed configuration with YAML/JSON file loading
  - emit: indentation-tracking line accumulator used by the generator
  - metaflow: adapter for serialized workflow graph exports
  - observability: logging, metrics, and tracing helpers
  - registry: local record of registered deployments
*/
package prefectc
