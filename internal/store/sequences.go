package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"repairdesk/internal/ids"
	"repairdesk/internal/kv"
)

// KeySequences holds the highest sequence number ever issued per prefix, so
// identifiers freed by deletions are never handed out again.
const KeySequences = "idSequences"

type sequences struct {
	kv  kv.Store
	log zerolog.Logger

	mu    sync.Mutex
	marks map[string]int
}

func newSequences(store kv.Store, log zerolog.Logger) *sequences {
	return &sequences{kv: store, log: log, marks: make(map[string]int)}
}

func (s *sequences) load(ctx context.Context) error {
	marks := make(map[string]int)
	if _, err := kv.GetJSON(ctx, s.kv, KeySequences, &marks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = marks
	return nil
}

func (s *sequences) floor(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks[scope]
}

// raise records n for scope when it is higher than the stored mark. A failed
// write is logged only: the scan over existing identifiers still protects
// every identifier that is currently in use.
func (s *sequences) raise(ctx context.Context, scope string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= s.marks[scope] {
		return
	}
	s.marks[scope] = n
	if err := kv.PutJSON(ctx, s.kv, KeySequences, s.marks); err != nil {
		s.log.Warn().Err(err).Str("scope", scope).Int("mark", n).Msg("Failed to persist sequence mark")
	}
}

func (s *sequences) reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marks = make(map[string]int)
	return s.kv.Delete(ctx, KeySequences)
}

// idScheme generates identifiers for one collection.
type idScheme interface {
	next(existing []string) string
	observe(ctx context.Context, id string)
}

// prefixScheme issues PREFIX-1001, PREFIX-1002, ...
type prefixScheme struct {
	prefix string
	seq    *sequences
}

func (p prefixScheme) next(existing []string) string {
	return ids.Next(p.prefix, existing, p.seq.floor(p.prefix))
}

func (p prefixScheme) observe(ctx context.Context, id string) {
	if n, ok := ids.Suffix(p.prefix, id); ok {
		p.seq.raise(ctx, p.prefix, n)
	}
}

// yearScheme issues PREFIX-YYYY-0001 numbered within the current year.
type yearScheme struct {
	prefix string
	seq    *sequences
	now    func() time.Time
}

func (y yearScheme) next(existing []string) string {
	year := y.now().Year()
	return ids.NextYearScoped(y.prefix, year, existing, y.seq.floor(ids.YearScope(y.prefix, year)))
}

func (y yearScheme) observe(ctx context.Context, id string) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != y.prefix {
		return
	}
	scope := parts[0] + "-" + parts[1]
	if n, ok := ids.YearScopedSuffix(scope, id); ok {
		y.seq.raise(ctx, scope, n)
	}
}
