package timesheet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warp/timesheet-engine/generic"
)

// Sentinel change descriptions.
const (
	ChangeNewTimesheet    = "New timesheet submitted"
	ChangeDiffUnavailable = "Unable to detect changes."
)

// maxDiffDepth bounds the walk. A timesheet tree is three levels deep.
const maxDiffDepth = 8

var errDiffTooDeep = errors.New("diff depth exceeded")

// =============================================================================
// DIFF - Human readable changes between two submissions
// =============================================================================

// Diff lists the changes from previous to next. A nil previous means the week
// has never been submitted. Diff never fails: an internal fault yields the
// single entry ChangeDiffUnavailable.
func Diff(previous *Timesheet, next Timesheet) (changes []string) {
	if previous == nil {
		return []string{ChangeNewTimesheet}
	}

	defer func() {
		if r := recover(); r != nil {
			changes = []string{ChangeDiffUnavailable}
		}
	}()

	d := &differ{changes: []string{}}
	if err := d.walk(timesheetNode(previous), timesheetNode(&next), "", 0); err != nil {
		return []string{ChangeDiffUnavailable}
	}
	return d.changes
}

// diffNode is one node of the comparison tree. Exactly one of children,
// scalar or isTasks is meaningful. A nil *diffNode is an absent field.
type diffNode struct {
	children map[string]*diffNode
	scalar   string
	isScalar bool
	isTasks  bool
	tasks    []Task
}

func timesheetNode(ts *Timesheet) *diffNode {
	n := &diffNode{children: make(map[string]*diffNode, len(ts.Days)+2)}
	for date, day := range ts.Days {
		n.children[date] = dayNode(day)
	}
	n.children[KeyTotalHours] = scalarNode(ts.TotalHours.String())
	n.children[KeyFormat] = scalarNode(formatScalar(ts.Format))
	return n
}

func dayNode(day DayEntry) *diffNode {
	n := &diffNode{children: map[string]*diffNode{
		"hoursWorked": scalarNode(day.HoursWorked.String()),
	}}
	if day.HasTasks() {
		n.children["tasks"] = &diffNode{isTasks: true, tasks: day.Tasks}
	}
	return n
}

func scalarNode(v string) *diffNode {
	return &diffNode{scalar: v, isScalar: true}
}

func formatScalar(s string) string {
	if s == "" {
		return `""`
	}
	return s
}

type differ struct {
	changes []string
}

func (d *differ) emit(format string, args ...any) {
	d.changes = append(d.changes, fmt.Sprintf(format, args...))
}

func (d *differ) walk(prev, next *diffNode, path string, depth int) error {
	if depth > maxDiffDepth {
		return errDiffTooDeep
	}

	if isScalar(prev) || isScalar(next) {
		oldV, newV := scalarText(prev), scalarText(next)
		if oldV != newV {
			d.emit("%s: changed from %s to %s", path, oldV, newV)
		}
		return nil
	}

	prevTasks, prevHas := tasksOf(prev)
	nextTasks, nextHas := tasksOf(next)
	handledTasks := prevHas || nextHas
	if handledTasks {
		d.compareTasks(prevTasks, nextTasks, path)
	}

	for _, key := range childKeys(prev, next) {
		if key == "tasks" && handledTasks {
			continue
		}
		if err := d.walk(child(prev, key), child(next, key), joinPath(path, key), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// compareTasks reports per-task changes for one day, keyed by taskCode.
func (d *differ) compareTasks(prev, next []Task, day string) {
	oldTotal := sumTasks(prev)
	newTotal := sumTasks(next)
	if !oldTotal.Equal(newTotal) {
		d.emit("Total hours changed from %s to %s for %s", oldTotal, newTotal, day)
	}

	prevByCode, _ := indexTasks(prev)
	nextByCode, nextOrder := indexTasks(next)

	for _, code := range nextOrder {
		task := nextByCode[code]
		old, existed := prevByCode[code]
		switch {
		case !existed:
			d.emit("New task added (%s) with %s hours for %s", task.TaskName, task.Hours, day)
		case !old.Hours.Equal(task.Hours):
			d.emit("Task (%s) hours changed from %s to %s %s", task.TaskName, old.Hours, task.Hours, day)
		}
	}

	_, prevOrder := indexTasks(prev)
	for _, code := range prevOrder {
		if _, kept := nextByCode[code]; !kept {
			d.emit("Task (%s) was removed for %s", prevByCode[code].TaskName, day)
		}
	}
}

// indexTasks maps taskCode to task (last occurrence wins) and returns the
// codes in first-seen order.
func indexTasks(tasks []Task) (map[string]Task, []string) {
	byCode := make(map[string]Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, seen := byCode[t.TaskCode]; !seen {
			order = append(order, t.TaskCode)
		}
		byCode[t.TaskCode] = t
	}
	return byCode, order
}

func sumTasks(tasks []Task) generic.Hours {
	return DayEntry{Tasks: tasks}.TaskHours()
}

func isScalar(n *diffNode) bool {
	return n != nil && n.isScalar
}

func scalarText(n *diffNode) string {
	if n == nil || !n.isScalar {
		return "none"
	}
	return n.scalar
}

func tasksOf(n *diffNode) ([]Task, bool) {
	t := child(n, "tasks")
	if t == nil || !t.isTasks {
		return nil, false
	}
	return t.tasks, true
}

func child(n *diffNode, key string) *diffNode {
	if n == nil {
		return nil
	}
	return n.children[key]
}

// childKeys returns the union of both nodes' keys, sorted. Date keys sort
// ahead of the reserved scalar keys.
func childKeys(a, b *diffNode) []string {
	seen := make(map[string]struct{})
	for _, n := range []*diffNode{a, b} {
		if n == nil {
			continue
		}
		for k := range n.children {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
