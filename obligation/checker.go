package obligation

import (
	"fmt"
	"sort"
)

// OpKind is the kind of a single checker instruction.
type OpKind uint8

const (
	// OpReserve opens an obligation, named symbolically for the checker.
	OpReserve OpKind = iota
	// OpCommit resolves an obligation successfully.
	OpCommit
	// OpAbort resolves an obligation without success.
	OpAbort
)

func (k OpKind) String() string {
	switch k {
	case OpReserve:
		return "reserve"
	case OpCommit:
		return "commit"
	case OpAbort:
		return "abort"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Instr is one symbolic operation in a checked code body.
type Instr struct {
	Kind       OpKind
	Obligation string
}

// Branch forks execution into mutually exclusive arms. Each arm is a
// complete continuation of the body from the branch point — nothing in a
// Body follows a Step whose Branch is set, matching how a checked function
// actually forks (an if/else's two arms are the entire remainder of that
// control path, not a shared tail merged back together).
type Branch struct {
	Arms [][]Step
}

// Step is a Body element: exactly one of Instr or Branch is set.
type Step struct {
	Instr  *Instr
	Branch *Branch
}

// Body is the sequential (and branching) instruction stream the checker
// symbolically executes, modeling a task body's obligation operations
// without running it. This is the static counterpart to obligation.Ledger's
// dynamic tracking: Ledger catches leaks at runtime by correlating to real
// ids; Check catches them ahead of time by exhaustively walking every
// control-flow path a body could take.
type Body struct {
	Steps []Step
}

// DiagnosticKind classifies a Check finding.
type DiagnosticKind uint8

const (
	// DefiniteLeak means the named obligation is open at the end of every
	// path through the body.
	DefiniteLeak DiagnosticKind = iota
	// PotentialLeak means the named obligation is open at the end of some,
	// but not all, paths through the body.
	PotentialLeak
	// DoubleResolve means a Commit or Abort targeted an obligation that was
	// not open on that path (never reserved, or already resolved earlier on
	// the same path).
	DoubleResolve
)

func (k DiagnosticKind) String() string {
	switch k {
	case DefiniteLeak:
		return "definite_leak"
	case PotentialLeak:
		return "potential_leak"
	case DoubleResolve:
		return "double_resolve"
	default:
		return fmt.Sprintf("diagnostic(%d)", uint8(k))
	}
}

// Diagnostic is one finding from Check.
type Diagnostic struct {
	Kind       DiagnosticKind
	Obligation string
	Detail     string
}

type path struct {
	open  map[string]bool
	diags []Diagnostic
}

func clonePath(p path) path {
	open := make(map[string]bool, len(p.open))
	for k, v := range p.open {
		open[k] = v
	}
	diags := make([]Diagnostic, len(p.diags))
	copy(diags, p.diags)
	return path{open: open, diags: diags}
}

// exec walks steps from the given starting path, returning one result per
// distinct control-flow path reachable from it (branches multiply the
// path count; a body with no branches always returns exactly one path).
func exec(steps []Step, start path) []path {
	cur := clonePath(start)
	for _, step := range steps {
		if step.Branch != nil {
			var out []path
			for _, arm := range step.Branch.Arms {
				out = append(out, exec(arm, cur)...)
			}
			return out
		}
		switch step.Instr.Kind {
		case OpReserve:
			cur.open[step.Instr.Obligation] = true
		case OpCommit, OpAbort:
			name := step.Instr.Obligation
			if !cur.open[name] {
				cur.diags = append(cur.diags, Diagnostic{
					Kind:       DoubleResolve,
					Obligation: name,
					Detail:     fmt.Sprintf("%s without an open reservation on this path", step.Instr.Kind),
				})
				continue
			}
			delete(cur.open, name)
		}
	}
	return []path{cur}
}

func allObligationNames(steps []Step) map[string]struct{} {
	names := make(map[string]struct{})
	for _, step := range steps {
		if step.Branch != nil {
			for _, arm := range step.Branch.Arms {
				for name := range allObligationNames(arm) {
					names[name] = struct{}{}
				}
			}
			continue
		}
		if step.Instr.Kind == OpReserve {
			names[step.Instr.Obligation] = struct{}{}
		}
	}
	return names
}

// Check symbolically executes body over every control-flow path and
// returns deterministically ordered diagnostics: an obligation reserved on
// every path and never resolved on any of them is DefiniteLeak; reserved-
// and-unresolved on some but not all paths is PotentialLeak; any Commit or
// Abort without a matching open reservation on its path is DoubleResolve.
func Check(body Body) []Diagnostic {
	paths := exec(body.Steps, path{open: map[string]bool{}})
	names := allObligationNames(body.Steps)

	var diags []Diagnostic
	for _, p := range paths {
		diags = append(diags, p.diags...)
	}

	total := len(paths)
	for name := range names {
		openCount := 0
		for _, p := range paths {
			if p.open[name] {
				openCount++
			}
		}
		switch {
		case openCount == total && total > 0:
			diags = append(diags, Diagnostic{Kind: DefiniteLeak, Obligation: name,
				Detail: "open at the end of every path"})
		case openCount > 0:
			diags = append(diags, Diagnostic{Kind: PotentialLeak, Obligation: name,
				Detail: fmt.Sprintf("open at the end of %d/%d paths", openCount, total)})
		}
	}

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Kind != diags[j].Kind {
			return diags[i].Kind < diags[j].Kind
		}
		if diags[i].Obligation != diags[j].Obligation {
			return diags[i].Obligation < diags[j].Obligation
		}
		return diags[i].Detail < diags[j].Detail
	})
	return diags
}
