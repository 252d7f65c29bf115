package audit

import (
	"fmt"
	"strings"
)

// Changes accumulates the human-readable fragments that make up an audit
// entry's action text. Handlers build it up as an operation progresses so
// that whatever was gathered before a failure still reaches the trail.
type Changes struct {
	items []string
}

// NewChanges creates an empty change list.
func NewChanges() *Changes {
	return &Changes{}
}

// Set records a field and its value, used when creating or deleting rows:
// "[라벨] : 값".
func (c *Changes) Set(label, value string) {
	c.items = append(c.items, fmt.Sprintf("[%s] : %s", label, value))
}

// Setf records a field with a formatted value.
func (c *Changes) Setf(label, format string, args ...any) {
	c.Set(label, fmt.Sprintf(format, args...))
}

// Diff records a field transition, used on updates: "[라벨] old → new".
// Nothing is recorded when the value did not change.
func (c *Changes) Diff(label, oldValue, newValue string) {
	if oldValue == newValue {
		return
	}
	c.items = append(c.items, fmt.Sprintf("[%s] %s → %s", label, oldValue, newValue))
}

// Mark records a bare marker fragment, used for fields whose values must not
// appear in the trail (encrypted columns): "[계좌번호 변경]".
func (c *Changes) Mark(label string) {
	c.items = append(c.items, fmt.Sprintf("[%s]", label))
}

// Empty reports whether nothing has been recorded.
func (c *Changes) Empty() bool {
	return len(c.items) == 0
}

// Wrap renders the accumulated fragments under an action verb:
// "편집 ( [이름] a → b, [장소] x → y )".
func (c *Changes) Wrap(verb string) string {
	return fmt.Sprintf("%s ( %s )", verb, strings.Join(c.items, ", "))
}
