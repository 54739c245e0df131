// Package deps checks and repairs the dependency graph of a task list and
// renders it for the tm CLI.
package deps

import (
	"fmt"
	"io"
	"strings"

	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/types"
)

// IssueKind classifies a dependency problem.
type IssueKind string

const (
	IssueSelf      IssueKind = "self"
	IssueMissing   IssueKind = "missing"
	IssueDuplicate IssueKind = "duplicate"
	IssueCycle     IssueKind = "cycle"
)

// Issue is one problem found by Validate. For cycles, Owner -> Ref is the
// edge that closes the cycle and Path lists it from Ref to Owner.
type Issue struct {
	Kind  IssueKind   `json:"type"`
	Owner types.Ref   `json:"taskId"`
	Ref   types.Ref   `json:"dependencyId"`
	Path  []types.Ref `json:"path,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueSelf:
		return fmt.Sprintf("%s depends on itself", i.Owner)
	case IssueMissing:
		return fmt.Sprintf("%s depends on missing %s", i.Owner, i.Ref)
	case IssueDuplicate:
		return fmt.Sprintf("%s lists %s more than once", i.Owner, i.Ref)
	case IssueCycle:
		parts := make([]string, 0, len(i.Path)+1)
		for _, r := range i.Path {
			parts = append(parts, r.String())
		}
		parts = append(parts, i.Ref.String())
		return fmt.Sprintf("circular dependency: %s", strings.Join(parts, " -> "))
	}
	return string(i.Kind)
}

// Graph maps every task and subtask to the references it depends on, and
// records the order nodes appear in the document.
type Graph struct {
	Order []types.Ref
	Deps  map[types.Ref][]types.Ref
}

// Build collects the dependency lists of tasks.
func Build(tasks []types.Task) Graph {
	g := Graph{Deps: make(map[types.Ref][]types.Ref)}
	for _, t := range tasks {
		g.Order = append(g.Order, t.Ref())
		g.Deps[t.Ref()] = t.Dependencies
		for _, s := range t.Subtasks {
			r := s.Ref(t.ID)
			g.Order = append(g.Order, r)
			g.Deps[r] = s.Dependencies
		}
	}
	return g
}

// Has reports whether r is a node of g.
func (g Graph) Has(r types.Ref) bool {
	_, ok := g.Deps[r]
	return ok
}

// Validate reports self references, references to missing tasks or
// subtasks, repeated references and cycles. It does not modify tasks.
func Validate(tasks []types.Task) []Issue {
	g := Build(tasks)
	var issues []Issue
	for _, owner := range g.Order {
		seen := make(map[types.Ref]bool)
		for _, r := range g.Deps[owner] {
			switch {
			case r == owner:
				issues = append(issues, Issue{Kind: IssueSelf, Owner: owner, Ref: r})
			case !g.Has(r):
				issues = append(issues, Issue{Kind: IssueMissing, Owner: owner, Ref: r})
			case seen[r]:
				issues = append(issues, Issue{Kind: IssueDuplicate, Owner: owner, Ref: r})
			}
			seen[r] = true
		}
	}

	for _, e := range taskid.FindAllCycles(g.Order, cleanEdges(g)) {
		issues = append(issues, Issue{Kind: IssueCycle, Owner: e.From, Ref: e.To, Path: e.Path})
	}
	return issues
}

// cleanEdges drops self, missing and repeated edges so cycle detection only
// sees real cycles of two or more nodes.
func cleanEdges(g Graph) map[types.Ref][]types.Ref {
	out := make(map[types.Ref][]types.Ref, len(g.Deps))
	for _, owner := range g.Order {
		seen := make(map[types.Ref]bool)
		for _, r := range g.Deps[owner] {
			if r == owner || !g.Has(r) || seen[r] {
				continue
			}
			seen[r] = true
			out[owner] = append(out[owner], r)
		}
	}
	return out
}

// Fix removes every problem Validate reports and returns the repaired
// tasks with the issues that were fixed. Missing references go through the
// engine so each one is logged. Cycles are broken by removing the edges
// that close them.
func Fix(engine *taskid.Engine, tasks []types.Task) ([]types.Task, []Issue) {
	issues := Validate(tasks)
	if len(issues) == 0 {
		return tasks, nil
	}

	drop := make(map[types.Ref]map[types.Ref]bool)
	for _, is := range issues {
		if is.Kind == IssueCycle {
			if drop[is.Owner] == nil {
				drop[is.Owner] = make(map[types.Ref]bool)
			}
			drop[is.Owner][is.Ref] = true
		}
	}
	clean := func(owner types.Ref, refs []types.Ref) []types.Ref {
		if refs == nil {
			return nil
		}
		out := make([]types.Ref, 0, len(refs))
		seen := make(map[types.Ref]bool)
		for _, r := range refs {
			if r == owner || seen[r] || drop[owner][r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
		return out
	}

	out := make([]types.Task, len(tasks))
	for i, t := range tasks {
		nt := t.Clone()
		nt.Dependencies = clean(t.Ref(), t.Dependencies)
		for j, s := range t.Subtasks {
			nt.Subtasks[j].Dependencies = clean(s.Ref(t.ID), s.Dependencies)
		}
		out[i] = nt
	}
	return engine.Prune(out).Tasks, issues
}

// WouldCycle reports whether adding the edge from -> to closes a cycle.
func WouldCycle(tasks []types.Task, from, to types.Ref) bool {
	if from == to {
		return true
	}
	g := cleanEdges(Build(tasks))
	g[from] = append(append([]types.Ref(nil), g[from]...), to)
	for _, hit := range taskid.FindCycles(from, g) {
		if hit == from {
			return true
		}
	}
	return false
}

// Satisfied reports whether every reference in refs points at finished
// work in doc. Missing references count as unsatisfied.
func Satisfied(doc *types.Document, refs []types.Ref) bool {
	for _, r := range refs {
		t, _, ok := doc.Task(r.Task)
		if !ok {
			return false
		}
		status := t.Status
		if r.IsSubtask() {
			s, _, ok := t.Subtask(r.Subtask)
			if !ok {
				return false
			}
			status = s.Status
		}
		if !status.IsDone() {
			return false
		}
	}
	return true
}

// StatusSymbol returns a symbol for a status in graph output.
func StatusSymbol(status types.Status) string {
	switch types.Status(strings.ToLower(string(status))) {
	case types.StatusInProgress, types.StatusReview:
		return "◧" // Square Left Half Black
	case types.StatusBlocked:
		return "⚠" // Warning Sign
	case types.StatusDeferred:
		return "❄" // Snowflake
	case types.StatusDone, types.StatusCompleted:
		return "☑" // Ballot Box with Check
	case types.StatusCancelled:
		return "☒" // Ballot Box with X
	default:
		return "☐" // Ballot Box
	}
}

func nodeName(r types.Ref) string {
	return "T" + strings.ReplaceAll(r.String(), ".", "_")
}

func mermaidLabel(r types.Ref, title string, status types.Status) string {
	label := fmt.Sprintf("%s %s: %s", StatusSymbol(status), r, title)
	label = strings.ReplaceAll(label, "\\", "\\\\")
	return strings.ReplaceAll(label, "\"", "\\\"")
}

// WriteMermaid writes tasks as a Mermaid flowchart. Edges point from a
// dependency to the task that needs it.
func WriteMermaid(w io.Writer, tasks []types.Task, subtasks bool) error {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if len(tasks) == 0 {
		b.WriteString("  empty[\"No tasks\"]\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	nodes := make(map[types.Ref]bool)
	for _, t := range tasks {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", nodeName(t.Ref()), mermaidLabel(t.Ref(), t.Title, t.Status))
		nodes[t.Ref()] = true
		if !subtasks {
			continue
		}
		for _, s := range t.Subtasks {
			r := s.Ref(t.ID)
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", nodeName(r), mermaidLabel(r, s.Title, s.Status))
			nodes[r] = true
		}
	}

	b.WriteString("\n")
	edge := func(owner types.Ref, refs []types.Ref) {
		for _, r := range refs {
			if !subtasks && r.IsSubtask() {
				r = r.Parent()
			}
			if nodes[r] && r != owner {
				fmt.Fprintf(&b, "  %s --> %s\n", nodeName(r), nodeName(owner))
			}
		}
	}
	for _, t := range tasks {
		edge(t.Ref(), t.Dependencies)
		if !subtasks {
			continue
		}
		for _, s := range t.Subtasks {
			fmt.Fprintf(&b, "  %s -.- %s\n", nodeName(t.Ref()), nodeName(s.Ref(t.ID)))
			edge(s.Ref(t.ID), s.Dependencies)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// TreeRenderer prints what a task depends on, transitively, with
// box-drawing connectors. Nodes already printed are marked instead of
// expanded again, so cycles terminate.
type TreeRenderer struct {
	doc      *types.Document
	graph    Graph
	seen     map[types.Ref]bool
	maxDepth int

	// StyleFunc renders a node's id by status. Defaults to plain text.
	StyleFunc func(types.Status, string) string
	// MutedFunc renders secondary text. Defaults to plain text.
	MutedFunc func(string) string
}

// NewTreeRenderer returns a renderer over doc that stops at maxDepth.
func NewTreeRenderer(doc *types.Document, maxDepth int) *TreeRenderer {
	plain := func(s string) string { return s }
	return &TreeRenderer{
		doc:       doc,
		graph:     Build(doc.Tasks),
		seen:      make(map[types.Ref]bool),
		maxDepth:  maxDepth,
		StyleFunc: func(_ types.Status, s string) string { return s },
		MutedFunc: plain,
	}
}

// Render writes the tree rooted at root.
func (r *TreeRenderer) Render(w io.Writer, root types.Ref) error {
	var b strings.Builder
	r.renderNode(&b, root, "", 0, true)
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *TreeRenderer) lookup(ref types.Ref) (string, types.Status, bool) {
	t, _, ok := r.doc.Task(ref.Task)
	if !ok {
		return "", "", false
	}
	if !ref.IsSubtask() {
		return t.Title, t.Status, true
	}
	s, _, ok := t.Subtask(ref.Subtask)
	if !ok {
		return "", "", false
	}
	return s.Title, s.Status, true
}

func (r *TreeRenderer) renderNode(b *strings.Builder, ref types.Ref, indent string, depth int, last bool) {
	prefix := indent
	childIndent := indent
	if depth > 0 {
		if last {
			prefix += "└── "
			childIndent += "    "
		} else {
			prefix += "├── "
			childIndent += "│   "
		}
	}

	title, status, ok := r.lookup(ref)
	if !ok {
		fmt.Fprintf(b, "%s%s\n", prefix, r.MutedFunc(ref.String()+" (missing)"))
		return
	}
	if r.seen[ref] {
		fmt.Fprintf(b, "%s%s\n", prefix, r.MutedFunc(ref.String()+" (shown above)"))
		return
	}
	r.seen[ref] = true

	if status == "" {
		status = types.StatusPending
	}
	line := fmt.Sprintf("%s %s: %s (%s)", StatusSymbol(status), r.StyleFunc(status, ref.String()), title, status)
	children := r.graph.Deps[ref]
	if depth == r.maxDepth && len(children) > 0 {
		line += r.MutedFunc(" …")
		children = nil
	}
	fmt.Fprintf(b, "%s%s\n", prefix, line)
	for i, c := range children {
		r.renderNode(b, c, childIndent, depth+1, i == len(children)-1)
	}
}
