package prefectc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/flowforge/prefectc/pkg/prefectc/emit"
)

// Generate lowers a FlowSpec into a complete, standalone Prefect flow
// program. The output is deterministic: identical inputs produce
// byte-identical source text.
//
// The emitted program contains, in order: a header comment, imports,
// module-level constants copied from the config and spec, four shared
// runtime helpers, one task function per step, the flow entry function,
// and a main guard. Each task function shells out to the original
// workflow file for single-step execution and returns its task id so the
// flow body can thread identifiers along the dependency edges.
func Generate(spec *FlowSpec, cfg Config) string {
	cfg = cfg.withDefaults()

	b := &emit.Builder{}
	writeHeader(b, spec, cfg)
	writeImports(b)
	writeConstants(b, spec, cfg)
	writeHelpers(b)
	for i := range spec.Steps {
		writeTask(b, spec, &spec.Steps[i])
	}
	writeFlowFn(b, spec)
	writeMainGuard(b, spec)
	return b.String() + "\n"
}

// FlowFunctionName returns the entry-function name the generated
// program exposes for a workflow name. Callers that execute or register
// the generated file use it to address the flow.
func FlowFunctionName(workflow string) string {
	return pythonName(workflow)
}

// taskFn returns the generated task-function name for a step.
func taskFn(step string) string {
	return "_step_" + step
}

// pythonName converts a CamelCase workflow name to lower_snake_case:
// an underscore before each internal uppercase letter, then lowercase.
func pythonName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) && i > 0 {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// pyStr renders s as a single-quoted Python string literal.
func pyStr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// pyLiteral renders an evaluated parameter default as a Python literal.
// nil becomes None; unrecognized types fall back to their quoted string
// form, matching the analyzer's "default to str" classification.
func pyLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return pyStr(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	default:
		return pyStr(fmt.Sprintf("%v", val))
	}
}

// pyStrList renders a []string as a Python list literal of quoted strings.
func pyStrList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyStr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// flowSignature renders the flow entry function's parameter list:
// "name: type = default" per declared parameter, comma-separated.
func flowSignature(params []ParameterSpec) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s: %s = %s", p.Name, p.TypeName, pyLiteral(p.Default))
	}
	return strings.Join(parts, ", ")
}

func writeHeader(b *emit.Builder, spec *FlowSpec, cfg Config) {
	b.Linef("# Generated by metaflow-prefect. Do not edit by hand.")
	b.Linef("# Workflow: %s", spec.Name)
	b.Linef("# Source: %s", cfg.FlowFile)
}

func writeImports(b *emit.Builder) {
	b.Blank()
	b.Line("import json")
	b.Line("import os")
	b.Line("import subprocess")
	b.Line("import sys")
	b.Line("import tempfile")
	b.Blank()
	b.Line("from prefect import flow, task, get_run_logger")
	b.Line("from prefect.context import get_run_context")
	b.Line("from prefect.task_runners import ThreadPoolTaskRunner")
}

func writeConstants(b *emit.Builder, spec *FlowSpec, cfg Config) {
	b.Blank()
	b.Linef("FLOW_FILE = %s", pyStr(cfg.FlowFile))
	b.Linef("DATASTORE_TYPE = %s", pyStr(cfg.DatastoreType))
	b.Linef("METADATA_TYPE = %s", pyStr(cfg.MetadataType))
	b.Linef("CODE_PACKAGE_URL = %s", pyStr(cfg.CodePackageURL))
	b.Linef("CODE_PACKAGE_SHA = %s", pyStr(cfg.CodePackageSHA))
	b.Linef("CODE_PACKAGE_METADATA = %s", pyStr(cfg.CodePackageMetadata))
	b.Linef("USERNAME = %s", pyStr(cfg.Username))
	b.Linef("NAMESPACE = %s", pyStr(spec.Namespace))
	b.Linef("TAGS: list[str] = %s", pyStrList(spec.Tags))
	b.Linef("WITH_DECORATORS: list[str] = %s", pyStrList(cfg.WithDecorators))
	b.Linef("MAX_WORKERS = %d", cfg.MaxWorkers)
	if spec.ScheduleCron != "" {
		b.Linef("SCHEDULE_CRON = %s", pyStr(spec.ScheduleCron))
	}
}

// writeHelpers emits the four runtime helpers shared by every task:
// the fan-out side-channel path/reader pair, the subprocess runner, and
// the step argument-vector builder.
func writeHelpers(b *emit.Builder) {
	b.Blank().Blank()
	b.Line("def _foreach_info_path(task_id):")
	b.Indent()
	b.Line("return os.path.join(")
	b.Indent()
	b.Line("tempfile.gettempdir(),")
	b.Line("'metaflow_prefect_foreach_{}.json'.format(task_id),")
	b.Dedent()
	b.Line(")")
	b.Dedent()

	b.Blank().Blank()
	b.Line("def _read_foreach_info(task_id):")
	b.Indent()
	b.Line("with open(_foreach_info_path(task_id)) as f:")
	b.Indent()
	b.Line("return json.load(f)")
	b.Dedent()
	b.Dedent()

	b.Blank().Blank()
	b.Line("def _run_cmd(cmd, env_extra):")
	b.Indent()
	b.Line("logger = get_run_logger()")
	b.Line("logger.info('Running: %s', ' '.join(cmd))")
	b.Line("env = dict(os.environ)")
	b.Line("env['METAFLOW_USER'] = USERNAME")
	b.Line("if NAMESPACE:")
	b.Indent()
	b.Line("env['METAFLOW_NAMESPACE'] = NAMESPACE")
	b.Dedent()
	b.Line("if CODE_PACKAGE_URL:")
	b.Indent()
	b.Line("env['METAFLOW_CODE_URL'] = CODE_PACKAGE_URL")
	b.Line("env['METAFLOW_CODE_SHA'] = CODE_PACKAGE_SHA")
	b.Line("env['METAFLOW_CODE_METADATA'] = CODE_PACKAGE_METADATA")
	b.Dedent()
	b.Line("if env_extra:")
	b.Indent()
	b.Line("env.update(env_extra)")
	b.Dedent()
	b.Line("completed = subprocess.run(cmd, env=env)")
	b.Line("if completed.returncode != 0:")
	b.Indent()
	b.Line("raise RuntimeError(")
	b.Indent()
	b.Line("'step command exited with code {}'.format(completed.returncode)")
	b.Dedent()
	b.Line(")")
	b.Dedent()
	b.Dedent()

	b.Blank().Blank()
	b.Line("def _step_cmd(step_name, run_id, task_id, input_paths, retry_count, split_index=None):")
	b.Indent()
	b.Line("cmd = [")
	b.Indent()
	b.Line("sys.executable,")
	b.Line("FLOW_FILE,")
	b.Line("'--datastore={}'.format(DATASTORE_TYPE),")
	b.Line("'--metadata={}'.format(METADATA_TYPE),")
	b.Line("'--quiet',")
	b.Dedent()
	b.Line("]")
	b.Line("for _deco in WITH_DECORATORS:")
	b.Indent()
	b.Line("cmd.append(f'--with={_deco}')")
	b.Dedent()
	b.Line("cmd.extend(['step', step_name, '--run-id', run_id, '--task-id', task_id])")
	b.Line("cmd.extend(['--retry-count', str(retry_count)])")
	b.Line("if input_paths:")
	b.Indent()
	b.Line("cmd.extend(['--input-paths', input_paths])")
	b.Dedent()
	b.Line("if split_index is not None:")
	b.Indent()
	b.Line("cmd.extend(['--split-index', str(split_index)])")
	b.Dedent()
	b.Line("return cmd")
	b.Dedent()
}

// isStartStep reports whether the step is the workflow entry step. The
// host framework fixes its name; a branching or fanning-out entry step
// carries a split or foreach type, so the name is the reliable marker.
func isStartStep(step *StepSpec) bool {
	return step.Name == "start"
}

// isForeachBody reports whether the step is the body of a dynamic
// fan-out, i.e. its sole upstream step is a foreach step.
func isForeachBody(spec *FlowSpec, step *StepSpec) bool {
	if len(step.InFuncs) != 1 {
		return false
	}
	parent, ok := spec.Step(step.InFuncs[0])
	return ok && parent.Type == NodeForeach
}

// taskArgs returns the generated task function's parameter list after
// the leading run_id argument.
func taskArgs(spec *FlowSpec, step *StepSpec) string {
	switch {
	case isStartStep(step):
		return "parameters: dict"
	case step.IsSplitJoin:
		return "parent_task_ids: dict"
	case step.IsForeachJoin:
		return "task_ids: list"
	case isForeachBody(spec, step):
		return "parent_task_id: str, split_index: int"
	default:
		return "parent_task_id: str"
	}
}

// writeTask emits one @task function for a step.
func writeTask(b *emit.Builder, spec *FlowSpec, step *StepSpec) {
	b.Blank().Blank()
	b.Line(taskDecorator(step))

	returns := "str"
	if step.Type == NodeForeach {
		returns = "tuple"
	}
	b.Linef("def %s(run_id: str, %s) -> %s:", taskFn(step.Name), taskArgs(spec, step), returns)
	b.Indent()

	if isForeachBody(spec, step) {
		b.Linef("task_id = '%s_{}'.format(split_index)", step.Name)
	} else {
		b.Linef("task_id = %s", pyStr(step.Name))
	}

	b.Line("env = {")
	b.Indent()
	b.Line("'METAFLOW_PREFECT_FLOW_RUN_ID': run_id,")
	b.Line("'METAFLOW_PREFECT_TASK_RUN_ID': task_id,")
	b.Dedent()
	b.Line("}")
	for _, ev := range step.EnvVars {
		b.Linef("env[%s] = %s", pyStr(ev.Key), pyStr(ev.Value))
	}
	if isStartStep(step) {
		b.Line("if parameters:")
		b.Indent()
		b.Line("env['METAFLOW_PARAMETERS'] = json.dumps(parameters)")
		b.Dedent()
	}
	if step.Type == NodeForeach {
		b.Line("env['METAFLOW_PREFECT_FOREACH_INFO_PATH'] = _foreach_info_path(task_id)")
	}

	inputPaths := writeInputPaths(b, spec, step)

	b.Line("retry_count = max(get_run_context().task_run.run_count - 1, 0)")
	call := fmt.Sprintf("_step_cmd(%s, run_id, task_id, %s, retry_count", pyStr(step.Name), inputPaths)
	if isForeachBody(spec, step) {
		call += ", split_index=split_index"
	}
	call += ")"
	b.Linef("_run_cmd(%s, env)", call)

	if step.Type == NodeForeach {
		b.Line("info = _read_foreach_info(task_id)")
		b.Line("return tuple((_i, task_id) for _i in range(int(info['num_splits'])))")
	} else {
		b.Line("return task_id")
	}
	b.Dedent()
}

// taskDecorator renders the @task(...) line, forwarding retry and
// timeout policy as Prefect decorator arguments.
func taskDecorator(step *StepSpec) string {
	args := []string{fmt.Sprintf("name=%s", pyStr(step.Name))}
	if step.MaxUserCodeRetries > 0 {
		args = append(args, fmt.Sprintf("retries=%d", step.MaxUserCodeRetries))
	}
	if step.RetryDelaySeconds > 0 {
		args = append(args, fmt.Sprintf("retry_delay_seconds=%d", step.RetryDelaySeconds))
	}
	if step.TimeoutSeconds > 0 {
		args = append(args, fmt.Sprintf("timeout_seconds=%d", step.TimeoutSeconds))
	}
	return "@task(" + strings.Join(args, ", ") + ")"
}

// writeInputPaths emits the input_paths assembly for a step and returns
// the expression the command builder should receive ("None" for the
// start step, the local variable name otherwise). Paths follow the
// run_id/step_name/task_id addressing the host runtime expects.
func writeInputPaths(b *emit.Builder, spec *FlowSpec, step *StepSpec) string {
	switch {
	case isStartStep(step):
		return "None"
	case step.IsSplitJoin:
		b.Line("input_paths = ','.join(")
		b.Indent()
		b.Line("'{}/{}/{}'.format(run_id, _step, _tid)")
		b.Line("for _step, _tid in sorted(parent_task_ids.items())")
		b.Dedent()
		b.Line(")")
	case step.IsForeachJoin:
		body := step.InFuncs[0]
		b.Line("input_paths = ','.join(")
		b.Indent()
		b.Linef("'{}/%s/{}'.format(run_id, _tid)", body)
		b.Line("for _tid in task_ids")
		b.Dedent()
		b.Line(")")
	default:
		parent := step.InFuncs[0]
		b.Linef("input_paths = '{}/%s/{}'.format(run_id, parent_task_id)", parent)
	}
	return "input_paths"
}

// writeFlowFn emits the flow entry function: run id derivation, the
// parameters mapping, then one call per step in topological order with
// results threaded along the dependency edges.
func writeFlowFn(b *emit.Builder, spec *FlowSpec) {
	b.Blank().Blank()
	b.Line(flowDecorator(spec))
	b.Linef("def %s(%s):", pythonName(spec.Name), flowSignature(spec.Parameters))
	b.Indent()
	b.Line("run_id = 'prefect-{}'.format(get_run_context().flow_run.id)")

	if len(spec.Parameters) == 0 {
		b.Line("parameters = {}")
	} else {
		b.Line("parameters = {")
		b.Indent()
		for _, p := range spec.Parameters {
			b.Linef("%s: %s,", pyStr(p.Name), p.Name)
		}
		b.Dedent()
		b.Line("}")
	}

	for i := range spec.Steps {
		writeFlowCall(b, spec, &spec.Steps[i])
	}
	b.Dedent()
}

// flowDecorator renders the @flow(...) line.
func flowDecorator(spec *FlowSpec) string {
	args := []string{fmt.Sprintf("name=%s", pyStr(spec.Name))}
	if spec.Description != "" {
		args = append(args, fmt.Sprintf("description=%s", pyStr(spec.Description)))
	}
	args = append(args, "task_runner=ThreadPoolTaskRunner(max_workers=MAX_WORKERS)")
	return "@flow(" + strings.Join(args, ", ") + ")"
}

// writeFlowCall emits the flow-body invocation of one step's task,
// assembling its upstream arguments per the step's fan-in discipline.
func writeFlowCall(b *emit.Builder, spec *FlowSpec, step *StepSpec) {
	result := "task_id_" + step.Name
	fn := taskFn(step.Name)

	switch {
	case isStartStep(step):
		b.Linef("%s = %s(run_id, parameters)", result, fn)

	case isForeachBody(spec, step):
		parentVar := "task_id_" + step.InFuncs[0]
		b.Linef("%s = [", result)
		b.Indent()
		b.Linef("%s(run_id, %s[_i][1], _i)", fn, parentVar)
		b.Linef("for _i in range(len(%s))", parentVar)
		b.Dedent()
		b.Line("]")

	case step.IsSplitJoin:
		pairs := make([]string, len(step.InFuncs))
		for i, branch := range step.InFuncs {
			pairs[i] = fmt.Sprintf("%s: task_id_%s", pyStr(branch), branch)
		}
		b.Linef("%s = %s(run_id, {%s})", result, fn, strings.Join(pairs, ", "))

	case step.IsForeachJoin:
		b.Linef("%s = %s(run_id, task_id_%s)", result, fn, step.InFuncs[0])

	default:
		b.Linef("%s = %s(run_id, task_id_%s)", result, fn, step.InFuncs[0])
	}
}

func writeMainGuard(b *emit.Builder, spec *FlowSpec) {
	b.Blank().Blank()
	b.Line("if __name__ == '__main__':")
	b.Indent()
	b.Linef("%s()", pythonName(spec.Name))
	b.Dedent()
}
