// Package ir defines the flattened intermediate representation the DAG
// sorter and executor operate on: a module of named functions, one per
// policy or rule, each carrying a governance descriptor and a body of
// basic blocks.
package ir

import (
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// ErrDuplicateFunction is returned when a module already holds the name.
var ErrDuplicateFunction = errors.New("ir: duplicate function name")

// Opcode identifies an instruction. The set is closed; the executor
// pattern-matches exhaustively over it.
type Opcode int

const (
	// OpCondition evaluates a condition expression; the block's action
	// fires only when it holds.
	OpCondition Opcode = iota
	// OpAction terminates a block by emitting a decision.
	OpAction
)

// Instruction is one IR operation.
type Instruction struct {
	Op Opcode

	// OpCondition: condition expression source.
	Condition string

	// OpAction: the decision kind and, for ROUTE, the target function
	// name. A target that does not resolve against the module is kept
	// as-is; the sorter simply omits the dependency edge.
	Action      governance.ActionKind
	RouteTarget string
}

// Block is a basic block: zero or one condition followed by a terminating
// action.
type Block struct {
	Instructions []Instruction
}

// Governance is the descriptor carried by every function.
type Governance struct {
	Category governance.Category `json:"category"`
	Priority int                 `json:"priority"`
}

// Function is one lowered policy or rule.
type Function struct {
	Name       string
	Governance Governance
	Blocks     []Block
}

// Module is a set of uniquely named functions with stable iteration order.
type Module struct {
	funcs map[string]*Function
	names []string
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{funcs: make(map[string]*Function)}
}

// Add registers a function. Function names are unique within a module.
func (m *Module) Add(fn *Function) error {
	if fn == nil || fn.Name == "" {
		return errors.New("ir: function must have a name")
	}
	if _, exists := m.funcs[fn.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, fn.Name)
	}
	m.funcs[fn.Name] = fn
	m.names = append(m.names, fn.Name)
	return nil
}

// Function returns the named function, or nil.
func (m *Module) Function(name string) *Function {
	return m.funcs[name]
}

// Names returns function names in insertion order. The returned slice is a
// copy; callers may not mutate module state through it.
func (m *Module) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of functions.
func (m *Module) Len() int { return len(m.names) }
