// Package engine resolves oracle rolls: single samples, cascades through
// row references, region and category substitution, and shortcut macros.
//
// The engine owns the session roll log. Entries are prepended, their child
// lists grow only while the operation that created them runs, and they are
// frozen afterwards.
package engine

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/dice"
	"github.com/louisbranch/oracles/internal/platform/i18n/catalog"
	"github.com/louisbranch/oracles/internal/platform/id"
)

// DefaultMaxDepth bounds reference chains below a top-level roll.
const DefaultMaxDepth = 8

// RollRecord is one sampled outcome and the records cascaded from it.
type RollRecord struct {
	ID         string
	OracleID   string
	OracleName string
	// Roll is zero for the synthetic record of a shortcut.
	Roll   int
	Result string
	// OriginalResult is the dataset text before translation.
	OriginalResult string
	References     []string
	Children       []RollRecord
}

// LogEntry is a top-level record in the session log.
type LogEntry struct {
	RollRecord
	// Shortcut is the shortcut key when the entry was produced by one.
	Shortcut  string
	Region    dataset.Region
	Language  string
	CreatedAt time.Time
}

// RollOptions is the per-call context.
type RollOptions struct {
	Region   dataset.Region
	Language string
}

// Translator localizes display text. Resolution never depends on it.
type Translator interface {
	Name(id string, fallback string, lang string) string
	Result(id string, rowMin int, fallback string, lang string) string
}

// ChildHook is notified after a child record is attached to an open entry.
// It runs outside the engine lock, so it may call RollOracle with the
// parent's ID to attach further children.
type ChildHook func(parent LogEntry, child RollRecord)

// Engine resolves rolls against one dataset.
type Engine struct {
	ds *dataset.Dataset

	mu       sync.Mutex
	roller   dice.Roller
	entries  []*LogEntry
	open     map[string]*LogEntry
	sequence int

	maxDepth   int
	hook       ChildHook
	translator Translator
	messages   *catalog.Bundle
	language   string
	logger     *log.Logger
	now        func() time.Time
	newID      func() (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRoller sets the die source.
func WithRoller(roller dice.Roller) Option {
	return func(e *Engine) {
		if roller != nil {
			e.roller = roller
		}
	}
}

// WithSeed seeds the default die source.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.roller = dice.NewRoller(seed)
	}
}

// WithMaxDepth bounds reference chains. Values below one keep the default.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithChildHook registers the child notification.
func WithChildHook(hook ChildHook) Option {
	return func(e *Engine) {
		e.hook = hook
	}
}

// WithTranslator sets the oracle text translator.
func WithTranslator(translator Translator) Option {
	return func(e *Engine) {
		e.translator = translator
	}
}

// WithMessages sets the UI string catalog.
func WithMessages(bundle *catalog.Bundle) Option {
	return func(e *Engine) {
		if bundle != nil {
			e.messages = bundle
		}
	}
}

// WithLanguage sets the language used when a call does not name one.
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the record ID source.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// New builds an engine over ds.
func New(ds *dataset.Dataset, opts ...Option) *Engine {
	e := &Engine{
		ds:       ds,
		roller:   dice.NewRoller(time.Now().UnixNano()),
		open:     map[string]*LogEntry{},
		maxDepth: DefaultMaxDepth,
		messages: catalog.Default(),
		language: catalog.BaseLocale,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		newID:    id.NewID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dataset returns the dataset the engine rolls against.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

// FindOracleByID returns the rollable table with the exact id.
func (e *Engine) FindOracleByID(oracleID string) (*dataset.Table, bool) {
	if e.ds == nil {
		return nil, false
	}
	return e.ds.FindOracleByID(oracleID)
}

// Log returns a copy of the session log, most recent first.
func (e *Engine) Log() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		out = append(out, entry.clone())
	}
	return out
}

// ClearLog drops every entry. Operations still running keep resolving into
// their own entry, which is no longer listed.
func (e *Engine) ClearLog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = nil
}

func (e *Engine) lang(requested string) string {
	if requested != "" {
		return requested
	}
	return e.language
}

// nextID must be called with e.mu held.
func (e *Engine) nextID() string {
	e.sequence++
	value, err := e.newID()
	if err != nil || value == "" {
		e.logger.Printf("generate record id: %v", err)
		return fmt.Sprintf("local-%d", e.sequence)
	}
	return value
}

// prepend publishes entry at the front of the log and opens it. Must be
// called with e.mu held.
func (e *Engine) prepend(entry *LogEntry) {
	e.entries = append([]*LogEntry{entry}, e.entries...)
	e.open[entry.ID] = entry
}

func (e *Engine) notify(entry LogEntry, child RollRecord) {
	if e.hook != nil {
		e.hook(entry, child)
	}
}

func (r RollRecord) clone() RollRecord {
	out := r
	if r.References != nil {
		out.References = append([]string(nil), r.References...)
	}
	if r.Children != nil {
		out.Children = make([]RollRecord, len(r.Children))
		for i, child := range r.Children {
			out.Children[i] = child.clone()
		}
	}
	return out
}

func (l *LogEntry) clone() LogEntry {
	out := *l
	out.RollRecord = l.RollRecord.clone()
	return out
}
