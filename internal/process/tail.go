package process

import "sync"

// DefaultTailSize is the number of output lines retained per process.
const DefaultTailSize = 80

// tail keeps the last n output lines.
type tail struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newTail(n int) *tail {
	if n <= 0 {
		n = DefaultTailSize
	}
	return &tail{lines: make([]string, n)}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// last returns up to n of the most recent lines, oldest first.
func (t *tail) last(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.next
	if t.full {
		count = len(t.lines)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]string, n)
	start := (t.next - n + len(t.lines)) % len(t.lines)
	for i := range n {
		out[i] = t.lines[(start+i)%len(t.lines)]
	}
	return out
}
