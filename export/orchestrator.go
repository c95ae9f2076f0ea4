package export

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tsawler/marginalia/annotate"
	"github.com/tsawler/marginalia/compose"
	"github.com/tsawler/marginalia/content"
	"github.com/tsawler/marginalia/lines"
	"github.com/tsawler/marginalia/model"
	"github.com/tsawler/marginalia/reader"
	"github.com/tsawler/marginalia/search"
)

// State is the orchestrator's lifecycle state
type State int

const (
	// Idle means no export has started
	Idle State = iota
	// Scanning means pages are being searched for phrase matches
	Scanning
	// Compositing means highlight sources are being merged
	Compositing
	// Writing means the output document is being produced
	Writing
	// Done is terminal success
	Done
	// Failed is terminal failure
	Failed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Compositing:
		return "compositing"
	case Writing:
		return "writing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects how annotations are written
type Mode int

const (
	// ModeNative appends document-native markup annotations
	ModeNative Mode = iota
	// ModeOverlay draws flattened overlay graphics
	ModeOverlay
)

// Request describes one export
type Request struct {
	// Phrases to search for; empty skips the scanning phase
	Phrases []string
	Search  search.Options

	// Manual highlight rectangles and margin notes, caller-owned; treated
	// as read-only input and never mutated
	Manual   []model.Rect
	Notes    []model.Note
	NoteRefs []model.Rect

	Mode    Mode
	Subtype annotate.MarkupSubtype

	// LineEpsilon overrides the vertical clustering tolerance; zero means
	// the default
	LineEpsilon float64
}

// progressInterval is how many pages are scanned between progress messages
const progressInterval = 10

// Orchestrator owns one document buffer for the duration of one export. It
// must not be shared across concurrent exports, but State may be read from
// any goroutine while an export runs.
type Orchestrator struct {
	log   *zap.Logger
	state atomic.Int32
}

// NewOrchestrator creates an orchestrator. A nil logger disables logging.
func NewOrchestrator(log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{log: log}
}

// State returns the orchestrator's current lifecycle state. The export runs
// on a background goroutine, so the state is stored atomically and safe to
// poll concurrently.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Export runs the pipeline on a background goroutine and returns the event
// channel: zero or more progress events, then exactly one terminal Done or
// Failed event, then close. Cancelling the context closes the channel
// without a terminal event; callers must treat that as an abort.
func (o *Orchestrator) Export(ctx context.Context, data []byte, req Request) <-chan Event {
	events := make(chan Event, 1)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		defer func() {
			// A panic during any phase must still yield a terminal event,
			// not tear down the host
			if r := recover(); r != nil {
				o.setState(Failed)
				o.log.Error("export panicked", zap.Any("panic", r))
				emit(Event{Kind: EventFailed, Err: fmt.Errorf("internal failure: %v", r)})
			}
		}()

		out, warns, err := o.run(ctx, data, req, emit)
		if err != nil {
			o.setState(Failed)
			o.log.Warn("export failed", zap.Error(err))
			emit(Event{Kind: EventFailed, Err: err})
			return
		}
		if out == nil {
			// Cancelled mid-flight: no terminal event
			return
		}
		o.setState(Done)
		emit(Event{Kind: EventDone, Data: out, Warnings: warns})
	}()

	return events
}

// run executes the pipeline phases in order. A nil output buffer with a nil
// error means the context was cancelled.
func (o *Orchestrator) run(ctx context.Context, data []byte, req Request, emit func(Event) bool) ([]byte, []string, error) {
	// The header is validated before any page is touched
	doc, err := reader.Open(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	pageCount := doc.PageCount()

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	manual := clampPages(req.Manual, pageCount, warn)
	noteRefs := clampPages(req.NoteRefs, pageCount, warn)
	notes := clampNotePages(req.Notes, pageCount, warn)

	var matches []model.Match
	matcher := search.NewMatcher(req.Phrases, req.Search)
	if !matcher.Empty() {
		o.setState(Scanning)
		matches, err = o.scan(ctx, doc, matcher, req.LineEpsilon, emit, warn)
		if err != nil {
			return nil, nil, err
		}
		if matches == nil && ctx.Err() != nil {
			return nil, nil, nil
		}
	}

	if ctx.Err() != nil {
		return nil, nil, nil
	}

	o.setState(Compositing)
	instructions := compose.Compose(compose.Input{
		Matches:  matches,
		Manual:   manual,
		Notes:    notes,
		NoteRefs: noteRefs,
	})

	o.setState(Writing)
	var out []byte
	switch req.Mode {
	case ModeOverlay:
		out, err = annotate.WriteOverlay(data, doc.PageGeometry, pageCount, instructions)
	default:
		out, err = annotate.WriteNative(doc, instructions, req.Subtype)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("writing annotations: %w", err)
	}
	return out, warnings, nil
}

// scan runs line assembly and phrase matching over every page in order,
// emitting coarse progress. Per-page anomalies are recovered locally.
func (o *Orchestrator) scan(ctx context.Context, doc *reader.Document, matcher *search.Matcher, epsilon float64, emit func(Event) bool, warn func(string, ...any)) ([]model.Match, error) {
	pageCount := doc.PageCount()
	matches := []model.Match{}

	for i := 0; i < pageCount; i++ {
		if ctx.Err() != nil {
			return nil, nil
		}
		if i%progressInterval == 0 {
			ok := emit(Event{
				Kind:     EventProgress,
				Progress: fmt.Sprintf("scanning page %d of %d", i+1, pageCount),
			})
			if !ok {
				return nil, nil
			}
		}

		page, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		geo := page.Geometry()
		if geo.IsDegenerate() {
			o.log.Debug("skipping degenerate page", zap.Int("page", i))
			warn("page %d has zero extent, skipped", i)
			continue
		}

		runs, err := o.pageRuns(doc, i)
		if err != nil {
			// A malformed content stream spoils one page, not the export
			o.log.Debug("page scan failed", zap.Int("page", i), zap.Error(err))
			warn("page %d could not be scanned: %v", i, err)
			continue
		}

		pageLines := lines.Assemble(runs, epsilon)
		matches = append(matches, matcher.MatchPage(i, pageLines, geo)...)
	}

	return matches, nil
}

// pageRuns extracts the glyph runs for one page
func (o *Orchestrator) pageRuns(doc *reader.Document, index int) ([]model.GlyphRun, error) {
	page, err := doc.Page(index)
	if err != nil {
		return nil, err
	}
	contents, err := page.Contents()
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, nil
	}
	resources, err := page.Resources()
	if err != nil {
		return nil, err
	}
	return content.ExtractRuns(contents, resources, doc.Resolve)
}

// FindMatches resolves phrase geometry without mutating the document: it
// runs scanning only and returns the matches in normalized form.
func (o *Orchestrator) FindMatches(ctx context.Context, data []byte, phrases []string, opts search.Options, epsilon float64) ([]model.Match, error) {
	doc, err := reader.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	matcher := search.NewMatcher(phrases, opts)
	if matcher.Empty() {
		return nil, nil
	}

	o.setState(Scanning)
	matches, err := o.scan(ctx, doc, matcher, epsilon, func(Event) bool { return true }, func(string, ...any) {})
	if err != nil {
		o.setState(Failed)
		return nil, err
	}
	o.setState(Done)
	return matches, nil
}

// clampPages clamps out-of-range rectangle page indexes into [0, pageCount)
// instead of failing, recording a warning for each. This mirrors documented
// writer behavior; a stricter caller can validate beforehand.
func clampPages(rects []model.Rect, pageCount int, warn func(string, ...any)) []model.Rect {
	if pageCount == 0 {
		return nil
	}
	out := make([]model.Rect, len(rects))
	for i, r := range rects {
		if r.Page < 0 || r.Page >= pageCount {
			clamped := clampIndex(r.Page, pageCount)
			warn("page index %d out of range, clamped to %d", r.Page, clamped)
			r.Page = clamped
		}
		out[i] = r
	}
	return out
}

func clampNotePages(notes []model.Note, pageCount int, warn func(string, ...any)) []model.Note {
	if pageCount == 0 {
		return nil
	}
	out := make([]model.Note, len(notes))
	for i, n := range notes {
		if n.Page < 0 || n.Page >= pageCount {
			clamped := clampIndex(n.Page, pageCount)
			warn("note %s page index %d out of range, clamped to %d", n.ID, n.Page, clamped)
			n.Page = clamped
		}
		out[i] = n
	}
	return out
}

func clampIndex(idx, pageCount int) int {
	if idx < 0 {
		return 0
	}
	if idx >= pageCount {
		return pageCount - 1
	}
	return idx
}
