package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/value"
)

// DefaultRecheckInterval is the minimum time between two stat calls on the
// rule file.
const DefaultRecheckInterval = time.Second

// ReloadFunc is called after every reload attempt that read the file.
// On failure set is the empty RuleSet that replaced the previous one.
type ReloadFunc func(set *RuleSet, err error)

// Store serves the current RuleSet for a rule file and reloads it when the
// file changes. It is safe for concurrent use.
type Store struct {
	path         string
	interval     time.Duration
	matchTimeout time.Duration
	log          *slog.Logger
	onReload     ReloadFunc
	now          func() time.Time

	current   atomic.Pointer[RuleSet]
	lastCheck atomic.Int64
	forced    atomic.Bool

	// reloadMu guards the fields below and is only ever try-locked on the
	// request path, so a slow reload never blocks matching.
	reloadMu sync.Mutex
	loaded   bool
	modTime  time.Time
	size     int64
	lastErr  string
}

// Option configures a Store.
type Option func(*Store)

// WithRecheckInterval sets the minimum interval between file checks.
func WithRecheckInterval(d time.Duration) Option {
	return func(s *Store) {
		s.interval = d
	}
}

// WithLogger sets the logger used for reload messages.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithReloadHook registers a callback for reload results.
func WithReloadHook(fn ReloadFunc) Option {
	return func(s *Store) {
		s.onReload = fn
	}
}

// WithRegexTimeout bounds each pattern evaluation of loaded rules.
func WithRegexTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.matchTimeout = d
	}
}

// NewStore creates a store for the rule file at path. Nothing is read
// until the first Snapshot or Reload call.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:         path,
		interval:     DefaultRecheckInterval,
		matchTimeout: DefaultMatchTimeout,
		log:          logging.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(Empty())
	return s
}

// Path returns the rule file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the last published RuleSet without checking the file.
func (s *Store) Current() *RuleSet {
	return s.current.Load()
}

// Invalidate makes the next Snapshot check the file regardless of the
// recheck interval. The file watcher calls it on change events.
func (s *Store) Invalidate() {
	s.forced.Store(true)
}

// Snapshot returns the RuleSet to use for one request, reloading first if
// the file changed and the recheck interval has elapsed.
func (s *Store) Snapshot() *RuleSet {
	now := s.now()
	if !s.forced.Load() {
		last := s.lastCheck.Load()
		if last != 0 && now.Sub(time.Unix(0, last)) < s.interval {
			return s.current.Load()
		}
	}

	// Another goroutine is already reloading; serve what is published.
	if !s.reloadMu.TryLock() {
		return s.current.Load()
	}
	defer s.reloadMu.Unlock()

	s.forced.Store(false)
	s.lastCheck.Store(now.UnixNano())
	s.reloadLocked(false)
	return s.current.Load()
}

// Match matches a request against the current snapshot.
func (s *Store) Match(url, method string, headers http.Header) MatchOutcome {
	return s.Snapshot().Match(url, method, headers)
}

// Reload reads the file now, ignoring the interval and modification time,
// and returns the error that caused an empty set to be published, if any.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.lastCheck.Store(s.now().UnixNano())
	return s.reloadLocked(true)
}

func (s *Store) reloadLocked(force bool) error {
	info, err := os.Stat(s.path)
	if err != nil {
		// Forget the old mtime so a re-created file is always read.
		s.loaded = false
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
		} else {
			err = fmt.Errorf("%w: %s: %v", ErrConfigRead, s.path, err)
		}
		s.publishFailure(err)
		return err
	}

	if !force && s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return nil
	}

	// Record the version even on failure so a broken file is parsed once
	// per change rather than on every check.
	s.loaded = true
	s.modTime = info.ModTime()
	s.size = info.Size()

	set, err := LoadFile(s.path, WithMatchTimeout(s.matchTimeout))
	if err != nil {
		s.publishFailure(err)
		return err
	}

	s.current.Store(set)
	s.lastErr = ""
	s.log.Info("rules reloaded", "path", s.path, "rules", set.Len())
	if s.onReload != nil {
		s.onReload(set, nil)
	}
	return nil
}

// publishFailure swaps in an empty set. The same error is reported once
// until it changes.
func (s *Store) publishFailure(err error) {
	empty := Empty()
	s.current.Store(empty)

	msg := err.Error()
	if msg == s.lastErr {
		return
	}
	s.lastErr = msg
	if errors.Is(err, ErrConfigNotFound) {
		s.log.Warn("rule file missing, forwarding all requests", "path", s.path)
	} else {
		s.log.Error("failed to load rules, forwarding all requests", "path", s.path, "error", err)
	}
	if s.onReload != nil {
		s.onReload(empty, err)
	}
}

// LoadFile reads and compiles a rule file.
func LoadFile(path string, opts ...ParseOption) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigRead, path, err)
	}
	return Load(data, opts...)
}

// Load compiles rules from YAML bytes.
func Load(data []byte, opts ...ParseOption) (*RuleSet, error) {
	tree, err := value.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	return Parse(tree, opts...)
}
