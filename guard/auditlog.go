package guard

import "sync"

const (
	DefaultAuditCapacity = 1000
	DefaultAuditLimit    = 100
)

// AuditLog is a fixed-capacity FIFO of audit entries. Once full, each append
// evicts the oldest entry.
type AuditLog struct {
	mu    sync.RWMutex
	buf   []AuditEntry
	start int
	n     int
}

func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{buf: make([]AuditEntry, capacity)}
}

func (l *AuditLog) Append(e AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	capacity := len(l.buf)
	if l.n < capacity {
		l.buf[(l.start+l.n)%capacity] = e
		l.n++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % capacity
}

// Recent returns up to limit of the newest entries, oldest first. A negative
// limit means DefaultAuditLimit.
func (l *AuditLog) Recent(limit int) []AuditEntry {
	if limit < 0 {
		limit = DefaultAuditLimit
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit > l.n {
		limit = l.n
	}
	out := make([]AuditEntry, 0, limit)
	capacity := len(l.buf)
	for i := l.n - limit; i < l.n; i++ {
		out = append(out, l.buf[(l.start+i)%capacity])
	}
	return out
}

func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.n
}

func (l *AuditLog) Cap() int {
	return len(l.buf)
}
