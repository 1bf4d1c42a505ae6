package sanitize

// StyleTable remembers which raw style payloads have already crossed the
// channel. It only grows; Release drops it at bridge teardown.
type StyleTable struct {
	sent map[string]bool
}

// NewStyleTable returns an empty table.
func NewStyleTable() *StyleTable {
	return &StyleTable{sent: make(map[string]bool)}
}

// Sent reports whether text was already transmitted.
func (t *StyleTable) Sent(text string) bool { return t.sent[text] }

// MarkSent records text as transmitted.
func (t *StyleTable) MarkSent(text string) { t.sent[text] = true }

// Len returns the number of distinct payloads sent.
func (t *StyleTable) Len() int { return len(t.sent) }

// Release drops every entry.
func (t *StyleTable) Release() { t.sent = make(map[string]bool) }
