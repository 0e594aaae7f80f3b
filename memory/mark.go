package memory

import (
	"slices"

	"github.com/youssefsiam38/agentscope/types"
)

// MarkIndex maps message ids to their marks. Marks keep the order in which
// they were first added. The index does not own messages: removing a mark
// never removes a message.
type MarkIndex map[string][]string

// Has reports whether id carries mark
func (ix MarkIndex) Has(id, mark string) bool {
	return slices.Contains(ix[id], mark)
}

// HasAny reports whether id carries at least one of marks
func (ix MarkIndex) HasAny(id string, marks []string) bool {
	for _, m := range marks {
		if ix.Has(id, m) {
			return true
		}
	}
	return false
}

// Add attaches marks to id and reports whether anything changed
func (ix MarkIndex) Add(id string, marks ...string) bool {
	changed := false
	for _, m := range marks {
		if m == "" || ix.Has(id, m) {
			continue
		}
		ix[id] = append(ix[id], m)
		changed = true
	}
	return changed
}

// Remove detaches mark from id and reports whether it was present
func (ix MarkIndex) Remove(id, mark string) bool {
	i := slices.Index(ix[id], mark)
	if i < 0 {
		return false
	}
	ix[id] = slices.Delete(ix[id], i, i+1)
	return true
}

// Get returns a copy of the marks of id
func (ix MarkIndex) Get(id string) []string {
	return slices.Clone(ix[id])
}

// Drop forgets id entirely
func (ix MarkIndex) Drop(id string) {
	delete(ix, id)
}

// Retarget applies one UpdateMessagesMark step to a single message's marks.
// It returns the new marks and whether the message matched the filters and
// changed.
func Retarget(marks []string, newMark, oldMark *string) ([]string, bool) {
	if oldMark != nil && !slices.Contains(marks, *oldMark) {
		return marks, false
	}
	out := slices.Clone(marks)
	changed := false
	if oldMark != nil && (newMark == nil || *newMark != *oldMark) {
		out = slices.DeleteFunc(out, func(m string) bool { return m == *oldMark })
		changed = true
	}
	if newMark != nil && *newMark != "" && !slices.Contains(out, *newMark) {
		out = append(out, *newMark)
		changed = true
	}
	return out, changed
}

// Entry is a message together with its marks
type Entry struct {
	Msg   *types.Msg
	Marks []string
}

// Select filters entries by opts and prepends the summary message when the
// exclusion filter was applied. Entries must be in insertion order.
func Select(entries []Entry, summary string, opts GetOptions) []*types.Msg {
	out := make([]*types.Msg, 0, len(entries)+1)
	if opts.PrependSummary && opts.ExcludeMark != "" && summary != "" {
		out = append(out, SummaryMsg(summary))
	}
	for _, e := range entries {
		if opts.Mark != "" && !slices.Contains(e.Marks, opts.Mark) {
			continue
		}
		if opts.ExcludeMark != "" && slices.Contains(e.Marks, opts.ExcludeMark) {
			continue
		}
		out = append(out, e.Msg)
	}
	return out
}
