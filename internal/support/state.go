// Package support implements the customer-service answer workflow: a
// manager plans, a policy expert researches, a junior agent drafts and a
// QA reviewer critiques until the revision budget is spent.
package support

import "fmt"

// State keys
const (
	KeyTask           = "task"
	KeyPlan           = "plan"
	KeyDraft          = "draft"
	KeyCritique       = "critique"
	KeyContent        = "content"
	KeyRevisionNumber = "revision_number"
	KeyMaxRevisions   = "max_revisions"
)

// State is the record threaded through the workflow
type State struct {
	Task           string
	Plan           string
	Draft          string
	Critique       string
	Content        []string
	RevisionNumber int
	MaxRevisions   int
}

// Values converts s to runtime state. A zero RevisionNumber is left out so
// the draft step applies its default.
func (s State) Values() map[string]interface{} {
	v := map[string]interface{}{
		KeyTask:         s.Task,
		KeyPlan:         s.Plan,
		KeyDraft:        s.Draft,
		KeyCritique:     s.Critique,
		KeyContent:      append([]string(nil), s.Content...),
		KeyMaxRevisions: s.MaxRevisions,
	}
	if s.RevisionNumber != 0 {
		v[KeyRevisionNumber] = s.RevisionNumber
	}
	return v
}

// StateFrom reads runtime state, including shapes produced by checkpoint
// decoding.
func StateFrom(v map[string]interface{}) State {
	return State{
		Task:           str(v[KeyTask]),
		Plan:           str(v[KeyPlan]),
		Draft:          str(v[KeyDraft]),
		Critique:       str(v[KeyCritique]),
		Content:        strs(v[KeyContent]),
		RevisionNumber: num(v[KeyRevisionNumber]),
		MaxRevisions:   num(v[KeyMaxRevisions]),
	}
}

func str(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func strs(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, str(e))
		}
		return out
	default:
		return nil
	}
}

func num(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
