package taskid

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/types"
)

// recLogger captures log calls so tests can assert on warnings.
type recLogger struct {
	warns []string
	infos []string
}

func (l *recLogger) Debug(interface{}, ...interface{}) {}
func (l *recLogger) Info(msg interface{}, _ ...interface{}) {
	l.infos = append(l.infos, fmt.Sprint(msg))
}
func (l *recLogger) Warn(msg interface{}, _ ...interface{}) {
	l.warns = append(l.warns, fmt.Sprint(msg))
}
func (l *recLogger) Error(interface{}, ...interface{}) {}

func refs(ss ...string) []types.Ref {
	out := []types.Ref{}
	for _, s := range ss {
		out = append(out, types.MustParseRef(s))
	}
	return out
}

func task(id int, deps ...string) types.Task {
	return types.Task{ID: id, Title: fmt.Sprintf("Task %d", id), Dependencies: refs(deps...)}
}

func sub(id int, deps ...string) types.Subtask {
	return types.Subtask{ID: id, Title: fmt.Sprintf("Subtask %d", id), Dependencies: refs(deps...)}
}

func withSubs(t types.Task, subs ...types.Subtask) types.Task {
	t.Subtasks = subs
	return t
}

func ids(tasks []types.Task) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestRenumberScenario(t *testing.T) {
	e := New(nil)
	in := []types.Task{task(1), task(5, "1"), task(10, "5"), task(100, "10", "1")}

	res := e.Renumber(in)

	assert.Equal(t, []int{1, 2, 3, 4}, ids(res.Tasks))
	assert.Equal(t, refs(), res.Tasks[0].Dependencies)
	assert.Equal(t, refs("1"), res.Tasks[1].Dependencies)
	assert.Equal(t, refs("2"), res.Tasks[2].Dependencies)
	assert.Equal(t, refs("3", "1"), res.Tasks[3].Dependencies)
	assert.Equal(t, 3, res.Shifted)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, []int{1, 5, 10, 100}, ids(in), "input must not change")
}

func TestRenumberSubtaskReference(t *testing.T) {
	e := New(nil)
	in := []types.Task{
		task(1),
		withSubs(task(10), sub(7, "10.5"), sub(5)),
		task(20, "10.5", "10.7"),
	}

	res := e.Renumber(in)

	require.Equal(t, []int{1, 2, 3}, ids(res.Tasks))
	parent := res.Tasks[1]
	require.Len(t, parent.Subtasks, 2)
	assert.Equal(t, 1, parent.Subtasks[0].ID)
	assert.Equal(t, "Subtask 5", parent.Subtasks[0].Title)
	assert.Equal(t, 2, parent.Subtasks[1].ID)
	assert.Equal(t, refs("2.1"), parent.Subtasks[1].Dependencies)
	assert.Equal(t, refs("2.1", "2.2"), res.Tasks[2].Dependencies)
	assert.Equal(t, types.SubtaskRef(2, 1), res.Mapping.Subtasks[types.SubtaskRef(10, 5)])
}

func TestRenumberKeepOrder(t *testing.T) {
	e := New(nil)
	in := []types.Task{task(3), task(1, "3")}

	res := e.Renumber(in, WithSortByID(false))

	assert.Equal(t, []int{1, 2}, ids(res.Tasks))
	assert.Equal(t, "Task 3", res.Tasks[0].Title)
	assert.Equal(t, refs("1"), res.Tasks[1].Dependencies)
}

func TestRenumberDropsDanglingWithOneWarningEach(t *testing.T) {
	log := &recLogger{}
	e := New(log)
	in := []types.Task{
		task(1, "99"),
		withSubs(task(2, "1"), sub(1, "2.9", "1")),
	}

	res := e.Renumber(in)

	require.Len(t, res.Dropped, 2)
	assert.Equal(t, Dropped{Owner: types.TaskRef(1), Ref: types.TaskRef(99)}, res.Dropped[0])
	assert.Equal(t, Dropped{Owner: types.SubtaskRef(2, 1), Ref: types.SubtaskRef(2, 9)}, res.Dropped[1])
	require.Len(t, log.warns, 2)
	assert.Contains(t, log.warns[0], "99")
	assert.Contains(t, log.warns[1], "2.9")
	assert.Equal(t, refs(), res.Tasks[0].Dependencies)
	assert.Equal(t, refs("1"), res.Tasks[1].Subtasks[0].Dependencies)
}

func TestRenumberIdempotent(t *testing.T) {
	log := &recLogger{}
	e := New(log)
	in := []types.Task{
		withSubs(task(8, "3"), sub(4), sub(2, "8.4", "3")),
		task(3),
		task(12, "8.2", "44"),
	}

	first := e.Renumber(in)
	warnsAfterFirst := len(log.warns)
	second := e.Renumber(first.Tasks)

	assert.Equal(t, first.Tasks, second.Tasks)
	assert.Zero(t, second.Shifted)
	assert.Empty(t, second.Dropped)
	assert.Len(t, log.warns, warnsAfterFirst)
}

func TestInsertAtScenario(t *testing.T) {
	e := New(nil)
	in := []types.Task{task(1), task(2, "1"), task(3, "1", "2")}

	res, err := e.InsertAt(in, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, ids(res.Tasks))
	assert.Equal(t, refs("1"), res.Tasks[1].Dependencies)
	assert.Equal(t, refs("1", "3"), res.Tasks[2].Dependencies)
	assert.Equal(t, 2, res.Shifted)
	assert.Empty(t, res.Dropped)
}

func TestInsertAtShiftsSubtaskParents(t *testing.T) {
	e := New(nil)
	in := []types.Task{
		withSubs(task(1), sub(1, "2.1", "1.2", "3")),
		withSubs(task(2), sub(1), sub(2, "2.1")),
		task(3, "2.2"),
	}

	res, err := e.InsertAt(in, 2)
	require.NoError(t, err)

	assert.Equal(t, refs("3.1", "1.2", "4"), res.Tasks[0].Subtasks[0].Dependencies)
	assert.Equal(t, []int{1, 2}, []int{res.Tasks[1].Subtasks[0].ID, res.Tasks[1].Subtasks[1].ID})
	assert.Equal(t, refs("3.1"), res.Tasks[1].Subtasks[1].Dependencies)
	assert.Equal(t, refs("3.2"), res.Tasks[2].Dependencies)
	assert.Equal(t, refs("2.1", "1.2", "3"), in[0].Subtasks[0].Dependencies, "input must not change")
}

func TestInsertAtBeyondMaxAndInvalid(t *testing.T) {
	e := New(nil)
	in := []types.Task{task(1), task(2, "1")}

	res, err := e.InsertAt(in, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(res.Tasks))
	assert.Zero(t, res.Shifted)

	_, err = e.InsertAt(in, 0)
	assert.True(t, errors.Is(err, ErrInvalidPosition))
}

func TestInsertAtNeverDrops(t *testing.T) {
	log := &recLogger{}
	e := New(log)
	in := []types.Task{task(1, "77"), task(2, "5.5")}

	res, err := e.InsertAt(in, 1)
	require.NoError(t, err)
	assert.Equal(t, refs("78"), res.Tasks[0].Dependencies)
	assert.Equal(t, refs("6.5"), res.Tasks[1].Dependencies)
	assert.Empty(t, log.warns)
}

func TestCompactScenario(t *testing.T) {
	log := &recLogger{}
	e := New(log)
	surviving := []types.Task{task(1), task(3, "2", "1"), task(4, "3")}

	res, err := e.Compact(surviving, []int{2})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ids(res.Tasks))
	assert.Equal(t, refs("1"), res.Tasks[1].Dependencies)
	assert.Equal(t, refs("2"), res.Tasks[2].Dependencies)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, types.TaskRef(2), res.Dropped[0].Ref)
	require.Len(t, log.warns, 1)
	assert.Contains(t, log.warns[0], "removed task 2")
}

func TestCompactSubtaskReferences(t *testing.T) {
	e := New(nil)
	surviving := []types.Task{
		withSubs(task(1), sub(1, "4.2", "2.1")),
		withSubs(task(4), sub(2)),
	}

	res, err := e.Compact(surviving, []int{2, 3})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, ids(res.Tasks))
	assert.Equal(t, refs("2.2"), res.Tasks[0].Subtasks[0].Dependencies)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, types.SubtaskRef(2, 1), res.Dropped[0].Ref)
}

// walkMapping is the reference mapping: walk 1..max(existing, removed) and
// hand out sequential ids to ids that were not removed.
func walkMapping(tasks []types.Task, removed []int) map[int]int {
	gone := map[int]bool{}
	max := 0
	for _, id := range removed {
		gone[id] = true
		if id > max {
			max = id
		}
	}
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	m := map[int]int{}
	next := 1
	for id := 1; id <= max; id++ {
		if gone[id] {
			continue
		}
		m[id] = next
		next++
	}
	return m
}

func TestCompactMatchesWalk(t *testing.T) {
	e := New(nil)
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var surviving []types.Task
		var removed []int
		for id := 1; id <= 30; id++ {
			switch rng.Intn(3) {
			case 0:
				surviving = append(surviving, task(id))
			case 1:
				removed = append(removed, id)
			}
		}
		rng.Shuffle(len(removed), func(i, j int) { removed[i], removed[j] = removed[j], removed[i] })

		res, err := e.Compact(surviving, removed)
		require.NoError(t, err)
		want := walkMapping(surviving, removed)
		for _, s := range surviving {
			assert.Equal(t, want[s.ID], res.Mapping.Tasks[s.ID], "iteration %d, id %d", iter, s.ID)
		}
	}
}

func TestCompactRejectsSurvivorInRemovedList(t *testing.T) {
	e := New(nil)
	_, err := e.Compact([]types.Task{task(1), task(2)}, []int{2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Contains(t, err.Error(), "task 2")
}

func TestResolveEmptyListSkipsLookups(t *testing.T) {
	e := New(nil)
	out, dropped := e.Resolve(types.TaskRef(1), []types.Ref{}, Mapping{})
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Empty(t, dropped)

	out, _ = e.Resolve(types.TaskRef(1), nil, Mapping{})
	assert.Nil(t, out)
}

func TestResolveKeepsOrder(t *testing.T) {
	e := New(nil)
	m := Mapping{
		Tasks:    map[int]int{1: 3, 2: 1},
		Subtasks: map[types.Ref]types.Ref{types.SubtaskRef(2, 4): types.SubtaskRef(1, 1)},
	}
	out, dropped := e.Resolve(types.TaskRef(9), refs("2", "5", "2.4", "1", "2.3"), m)
	assert.Equal(t, refs("1", "1.1", "3"), out)
	assert.Len(t, dropped, 2)
}

func TestPrune(t *testing.T) {
	e := New(nil)
	in := []types.Task{withSubs(task(1, "3"), sub(1, "1.2")), task(3, "1.1")}
	res := e.Prune(in)
	assert.Equal(t, refs("3"), res.Tasks[0].Dependencies)
	assert.Equal(t, refs(), res.Tasks[0].Subtasks[0].Dependencies)
	assert.Equal(t, refs("1.1"), res.Tasks[1].Dependencies)
	assert.Len(t, res.Dropped, 1)
}

// TestTransformInvariants drives all three transformations over random
// documents and checks uniqueness and reference integrity.
func TestTransformInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := New(nil)

	for iter := 0; iter < 100; iter++ {
		tasks := randomTasks(rng)

		renum := e.Renumber(tasks)
		assertCanonical(t, renum.Tasks)
		assertIntegrity(t, renum.Tasks)

		pos := rng.Intn(len(renum.Tasks)+2) + 1
		shifted, err := e.InsertAt(renum.Tasks, pos)
		require.NoError(t, err)
		assertUnique(t, shifted.Tasks)
		for _, tk := range shifted.Tasks {
			assert.NotEqual(t, pos, tk.ID)
		}
		withNew := append(append([]types.Task(nil), shifted.Tasks...), task(pos))
		assertIntegrity(t, withNew)

		if len(renum.Tasks) > 1 {
			victim := renum.Tasks[rng.Intn(len(renum.Tasks))].ID
			var surviving []types.Task
			for _, tk := range renum.Tasks {
				if tk.ID != victim {
					surviving = append(surviving, tk)
				}
			}
			compacted, err := e.Compact(surviving, []int{victim})
			require.NoError(t, err)
			assertCanonicalIDs(t, compacted.Tasks)
			assertIntegrity(t, compacted.Tasks)
		}
	}
}

func randomTasks(rng *rand.Rand) []types.Task {
	n := rng.Intn(8) + 1
	used := map[int]bool{}
	var tasks []types.Task
	for len(tasks) < n {
		id := rng.Intn(50) + 1
		if used[id] {
			continue
		}
		used[id] = true
		tk := types.Task{ID: id}
		for s := rng.Intn(4); s > 0; s-- {
			tk.Subtasks = append(tk.Subtasks, types.Subtask{ID: rng.Intn(9) + 1 + s*10})
		}
		tasks = append(tasks, tk)
	}
	for i := range tasks {
		tasks[i].Dependencies = randomRefs(rng, tasks)
		for j := range tasks[i].Subtasks {
			tasks[i].Subtasks[j].Dependencies = randomRefs(rng, tasks)
		}
	}
	return tasks
}

func randomRefs(rng *rand.Rand, tasks []types.Task) []types.Ref {
	var out []types.Ref
	for k := rng.Intn(4); k > 0; k-- {
		target := tasks[rng.Intn(len(tasks))]
		switch {
		case rng.Intn(5) == 0:
			out = append(out, types.TaskRef(60+rng.Intn(10)))
		case len(target.Subtasks) > 0 && rng.Intn(2) == 0:
			out = append(out, target.Subtasks[rng.Intn(len(target.Subtasks))].Ref(target.ID))
		default:
			out = append(out, target.Ref())
		}
	}
	return out
}

func assertUnique(t *testing.T, tasks []types.Task) {
	t.Helper()
	seen := map[int]bool{}
	for _, tk := range tasks {
		if seen[tk.ID] {
			t.Fatalf("duplicate task id %d in %v", tk.ID, ids(tasks))
		}
		seen[tk.ID] = true
	}
}

func assertCanonicalIDs(t *testing.T, tasks []types.Task) {
	t.Helper()
	got := ids(tasks)
	sort.Ints(got)
	for i, id := range got {
		if id != i+1 {
			t.Fatalf("task ids %v are not 1..%d", got, len(got))
		}
	}
}

func assertCanonical(t *testing.T, tasks []types.Task) {
	t.Helper()
	assertCanonicalIDs(t, tasks)
	for _, tk := range tasks {
		for j, s := range tk.Subtasks {
			if s.ID != j+1 {
				t.Fatalf("task %d subtask ids are not 1..%d", tk.ID, len(tk.Subtasks))
			}
		}
	}
}

func assertIntegrity(t *testing.T, tasks []types.Task) {
	t.Helper()
	doc := types.NewDocument(tasks)
	check := func(owner string, rs []types.Ref) {
		for _, r := range rs {
			if !doc.Exists(r) {
				var all []string
				for _, tk := range tasks {
					all = append(all, fmt.Sprint(tk.ID))
				}
				t.Fatalf("%s depends on %s which does not exist (tasks %s)", owner, r, strings.Join(all, ","))
			}
		}
	}
	for _, tk := range tasks {
		check(tk.Ref().String(), tk.Dependencies)
		for _, s := range tk.Subtasks {
			check(s.Ref(tk.ID).String(), s.Dependencies)
		}
	}
}
