// Package executor runs a compiled policy module over its stage plan:
// stages execute sequentially, members of a stage execute concurrently
// against isolated context snapshots, and every run produces a full
// audited trace.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/plang/pkg/dag"
	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/ir"
	"github.com/Mindburn-Labs/plang/pkg/parser"
)

// ErrStepBudget is returned when a run exhausts its step budget before the
// plan finishes. The partial trace is still returned alongside it.
var ErrStepBudget = errors.New("executor: step budget exhausted")

// Executor evaluates compiled modules. Safe for concurrent use; each run
// carries its own context and trace.
type Executor struct {
	env      *cel.Env
	resolver Resolver
	logger   *slog.Logger

	tracer oteltrace.Tracer
	runs   metric.Int64Counter
	denies metric.Int64Counter
	steps  metric.Int64Histogram
}

// Option configures an Executor.
type Option func(*Executor)

// WithResolver installs the external attribute source behind lookup().
func WithResolver(r Resolver) Option {
	return func(e *Executor) { e.resolver = r }
}

// WithLookupRate throttles external lookups to limit events per second.
func WithLookupRate(limit rate.Limit, burst int) Option {
	return func(e *Executor) {
		e.resolver = &throttledResolver{inner: e.resolver, limiter: rate.NewLimiter(limit, burst)}
	}
}

// WithLogger installs a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an executor. Without a resolver, lookup() calls fail and the
// calling policy records an isolated failure.
func New(opts ...Option) (*Executor, error) {
	e := &Executor{
		resolver: ResolverFunc(func(ctx context.Context, name string) (any, error) {
			return nil, fmt.Errorf("no resolver configured for lookup(%q)", name)
		}),
		logger: slog.Default(),
		tracer: otel.Tracer("plang/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}

	env, err := cel.NewEnv(
		cel.Variable(varsName, cel.DynType),
		cel.Function(lookupFunc,
			cel.Overload(lookupOverload, []*cel.Type{cel.StringType}, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("executor: cel environment: %w", err)
	}
	e.env = env

	meter := otel.Meter("plang/executor")
	if e.runs, err = meter.Int64Counter("plang.executor.runs",
		metric.WithDescription("Completed policy runs by terminal state")); err != nil {
		return nil, fmt.Errorf("executor: metrics: %w", err)
	}
	if e.denies, err = meter.Int64Counter("plang.executor.denials",
		metric.WithDescription("Runs terminated by a net DENY")); err != nil {
		return nil, fmt.Errorf("executor: metrics: %w", err)
	}
	if e.steps, err = meter.Int64Histogram("plang.executor.steps",
		metric.WithDescription("Step count per run")); err != nil {
		return nil, fmt.Errorf("executor: metrics: %w", err)
	}
	return e, nil
}

// blockUnit is one compiled block: an optional checked condition and the
// action it guards. A block whose condition failed compilation keeps its
// error; the failure surfaces at run time isolated to its policy.
type blockUnit struct {
	condSrc    string
	cond       *cel.Ast
	compileErr error
	action     governance.ActionKind
	target     string
}

// Compiled is a module whose conditions have been checked against the
// evaluation environment. Compile once, execute many times.
type Compiled struct {
	module *ir.Module
	units  map[string][]blockUnit
}

// Module returns the underlying module.
func (c *Compiled) Module() *ir.Module { return c.module }

// Compile checks every condition in the module. Compilation never fails
// the module as a whole; a malformed condition marks only its own policy.
func (e *Executor) Compile(mod *ir.Module) *Compiled {
	c := &Compiled{module: mod, units: make(map[string][]blockUnit)}
	for _, name := range mod.Names() {
		fn := mod.Function(name)
		units := make([]blockUnit, 0, len(fn.Blocks))
		for _, block := range fn.Blocks {
			unit := blockUnit{action: governance.ActionAllow}
			for _, instr := range block.Instructions {
				switch instr.Op {
				case ir.OpCondition:
					unit.condSrc = instr.Condition
				case ir.OpAction:
					unit.action = instr.Action
					unit.target = instr.RouteTarget
				}
			}
			if unit.condSrc != "" {
				unit.cond, unit.compileErr = e.compileCondition(unit.condSrc)
			}
			units = append(units, unit)
		}
		c.units[name] = units
	}
	return c
}

func (e *Executor) compileCondition(src string) (*cel.Ast, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse condition %q: %w", src, err)
	}
	celSrc, err := celSource(expr)
	if err != nil {
		return nil, fmt.Errorf("translate condition %q: %w", src, err)
	}
	checked, iss := e.env.Compile(celSrc)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", src, iss.Err())
	}
	return checked, nil
}

// runEnv binds lookup() to the resolver under the run's context, so an
// in-flight lookup observes cancellation.
func (e *Executor) runEnv(ctx context.Context) (*cel.Env, error) {
	return e.env.Extend(
		cel.Function(lookupFunc,
			cel.Overload(lookupOverload, []*cel.Type{cel.StringType}, cel.DynType,
				cel.UnaryBinding(func(arg ref.Val) ref.Val {
					name, ok := arg.Value().(string)
					if !ok {
						return types.NewErr("lookup: argument must be a string")
					}
					v, err := e.resolver.Resolve(ctx, name)
					if err != nil {
						return types.NewErr("lookup(%q): %v", name, err)
					}
					return types.DefaultTypeAdapter.NativeToValue(v)
				}))),
	)
}

// Execute runs the compiled module against the run context, building the
// stage plan from the module's governance graph; a cyclic graph surfaces
// as an error before anything executes. Execution stops fail-closed on
// the first stage whose net action is DENY, and when the step budget
// runs out mid-plan the partial trace is returned with ErrStepBudget.
func (e *Executor) Execute(ctx context.Context, c *Compiled, rc *Context) (*Trace, error) {
	return e.ExecutePlan(ctx, c, rc, nil)
}

// ExecutePlan runs the compiled module over a caller-supplied stage plan,
// so a module planned once can be executed many times. A nil plan is
// built from the module's governance graph.
func (e *Executor) ExecutePlan(ctx context.Context, c *Compiled, rc *Context, plan *dag.Plan) (*Trace, error) {
	if plan == nil {
		var err error
		if plan, err = dag.Build(c.module).Sort(); err != nil {
			return nil, fmt.Errorf("executor: plan: %w", err)
		}
	}

	ctx, span := e.tracer.Start(ctx, "plang.execute",
		oteltrace.WithAttributes(attribute.String("plang.execution_id", rc.ExecutionID)))
	defer span.End()

	env, err := e.runEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("executor: bind lookup: %w", err)
	}

	tr := &Trace{
		ExecutionID: rc.ExecutionID,
		FinalAction: governance.ActionAllow,
		Terminal:    TerminalCompleted,
		StartedAt:   time.Now().UTC(),
	}

	for i, members := range plan.Stages {
		stage := e.runStage(ctx, env, c, rc, i, members)
		tr.Stages = append(tr.Stages, stage)
		tr.StepCount += stage.Steps
		tr.FinalAction = governance.MostRestrictive(tr.FinalAction, stage.NetAction)
		for _, m := range stage.Members {
			if m.Passed {
				tr.recordPass(m.Category)
			}
			tr.Intents = append(tr.Intents, m.Intents...)
		}
		e.logger.DebugContext(ctx, "stage complete",
			"execution_id", rc.ExecutionID,
			"stage", i,
			"members", len(members),
			"net_action", stage.NetAction,
			"steps", stage.Steps,
		)

		if tr.StepCount > rc.MaxSteps {
			tr.Terminal = TerminalBudgetExceeded
			e.finish(ctx, span, tr)
			return tr, fmt.Errorf("%w: %d steps after stage %d (budget %d)",
				ErrStepBudget, tr.StepCount, i, rc.MaxSteps)
		}
		if stage.NetAction == governance.ActionDeny {
			tr.Terminal = TerminalDenied
			break
		}
	}

	e.finish(ctx, span, tr)
	return tr, nil
}

// runStage evaluates every member concurrently against its own context
// snapshot and joins before returning. A member failure never propagates
// to its siblings and never contributes to the net action.
func (e *Executor) runStage(ctx context.Context, env *cel.Env, c *Compiled, rc *Context, index int, members []string) StageResult {
	results := make([]MemberResult, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range members {
		i, name := i, name
		snap := rc.snapshot()
		g.Go(func() error {
			results[i] = e.evalMember(gctx, env, c, name, snap)
			return nil
		})
	}
	_ = g.Wait() // members record failures in their own results

	stage := StageResult{Index: index, Members: results, NetAction: governance.ActionAllow}
	for _, m := range results {
		if m.Steps > stage.Steps {
			stage.Steps = m.Steps
		}
		if m.Passed {
			stage.NetAction = governance.MostRestrictive(stage.NetAction, m.Action)
		}
	}
	return stage
}

func (e *Executor) evalMember(ctx context.Context, env *cel.Env, c *Compiled, name string, vars map[string]any) (res MemberResult) {
	fn := c.module.Function(name)
	res = MemberResult{
		Policy:   name,
		Category: fn.Governance.Category,
		Passed:   true,
		Action:   governance.ActionAllow,
	}
	defer func() {
		if r := recover(); r != nil {
			res.Passed = false
			res.Action = ""
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	for _, unit := range c.units[name] {
		res.Steps++
		if unit.compileErr != nil {
			res.Passed = false
			res.Action = ""
			res.Error = unit.compileErr.Error()
			return res
		}
		if unit.cond != nil {
			fired, err := e.evalCondition(ctx, env, unit.cond, vars)
			if err != nil {
				res.Passed = false
				res.Action = ""
				res.Error = fmt.Sprintf("condition %q: %v", unit.condSrc, err)
				return res
			}
			if !fired {
				continue
			}
		}
		res.Intents = append(res.Intents, Intent{
			Policy:      name,
			Action:      unit.action,
			RouteTarget: unit.target,
			Condition:   unit.condSrc,
		})
		res.Action = governance.MostRestrictive(res.Action, unit.action)
	}
	return res
}

func (e *Executor) evalCondition(ctx context.Context, env *cel.Env, checked *cel.Ast, vars map[string]any) (bool, error) {
	prg, err := env.Program(checked,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return false, fmt.Errorf("program: %w", err)
	}
	out, _, err := prg.ContextEval(ctx, map[string]any{varsName: vars})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition evaluated to %T, want bool", out.Value())
	}
	return b, nil
}

func (e *Executor) finish(ctx context.Context, span oteltrace.Span, tr *Trace) {
	tr.FinishedAt = time.Now().UTC()
	tr.StageCount = len(tr.Stages)
	span.SetAttributes(
		attribute.String("plang.terminal", string(tr.Terminal)),
		attribute.String("plang.final_action", string(tr.FinalAction)),
		attribute.Int("plang.steps", tr.StepCount),
	)
	attrs := metric.WithAttributes(attribute.String("terminal", string(tr.Terminal)))
	e.runs.Add(ctx, 1, attrs)
	e.steps.Record(ctx, int64(tr.StepCount), attrs)
	if tr.Terminal == TerminalDenied {
		e.denies.Add(ctx, 1)
	}
	e.logger.InfoContext(ctx, "run complete",
		"execution_id", tr.ExecutionID,
		"terminal", tr.Terminal,
		"final_action", tr.FinalAction,
		"stages", tr.StageCount,
		"steps", tr.StepCount,
		"duration", tr.FinishedAt.Sub(tr.StartedAt),
	)
}
