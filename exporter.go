package marginalia

import (
	"context"

	"go.uber.org/zap"

	"github.com/tsawler/marginalia/annotate"
	"github.com/tsawler/marginalia/export"
	"github.com/tsawler/marginalia/model"
	"github.com/tsawler/marginalia/search"
)

// Exporter is the fluent entry point. Configuration methods return a
// modified copy, so a configured Exporter can be reused and further
// specialized without affecting earlier references.
type Exporter struct {
	src      Source
	opts     Options
	phrases  []string
	manual   []model.Rect
	notes    []model.Note
	noteRefs []model.Rect
	logger   *zap.Logger
}

// New creates an Exporter for the given document source with default
// options
func New(src Source) *Exporter {
	return &Exporter{src: src, opts: DefaultOptions()}
}

// clone returns a copy with freshly copied slices
func (e *Exporter) clone() *Exporter {
	c := *e
	c.phrases = append([]string(nil), e.phrases...)
	c.manual = append([]model.Rect(nil), e.manual...)
	c.notes = append([]model.Note(nil), e.notes...)
	c.noteRefs = append([]model.Rect(nil), e.noteRefs...)
	return &c
}

// WithOptions replaces the full option set
func (e *Exporter) WithOptions(opts Options) *Exporter {
	c := e.clone()
	c.opts = opts
	return c
}

// WithPhrases appends phrases to search for. Phrase order is significant:
// matches are reported in this order.
func (e *Exporter) WithPhrases(phrases ...string) *Exporter {
	c := e.clone()
	c.phrases = append(c.phrases, phrases...)
	return c
}

// CaseSensitive sets case-sensitive matching
func (e *Exporter) CaseSensitive(v bool) *Exporter {
	c := e.clone()
	c.opts.CaseSensitive = v
	return c
}

// WholeWord sets whole-word matching
func (e *Exporter) WholeWord(v bool) *Exporter {
	c := e.clone()
	c.opts.WholeWord = v
	return c
}

// WithHighlights appends caller-drawn highlight rectangles
func (e *Exporter) WithHighlights(rects ...model.Rect) *Exporter {
	c := e.clone()
	c.manual = append(c.manual, rects...)
	return c
}

// WithNotes appends margin notes
func (e *Exporter) WithNotes(notes ...model.Note) *Exporter {
	c := e.clone()
	c.notes = append(c.notes, notes...)
	return c
}

// WithNoteRefs appends note back-reference rectangles
func (e *Exporter) WithNoteRefs(rects ...model.Rect) *Exporter {
	c := e.clone()
	c.noteRefs = append(c.noteRefs, rects...)
	return c
}

// WithoutNote removes a note and every rectangle back-referencing it
func (e *Exporter) WithoutNote(id string) *Exporter {
	c := e.clone()
	notes := c.notes[:0]
	for _, n := range c.notes {
		if n.ID != id {
			notes = append(notes, n)
		}
	}
	c.notes = notes

	refs := c.noteRefs[:0]
	for _, r := range c.noteRefs {
		if r.NoteID != id {
			refs = append(refs, r)
		}
	}
	c.noteRefs = refs
	return c
}

// Overlay selects flattened overlay drawing
func (e *Exporter) Overlay() *Exporter {
	c := e.clone()
	c.opts.Mode = export.ModeOverlay
	return c
}

// Native selects document-native markup annotations of the given subtype
func (e *Exporter) Native(subtype annotate.MarkupSubtype) *Exporter {
	c := e.clone()
	c.opts.Mode = export.ModeNative
	c.opts.Subtype = subtype
	return c
}

// WithLogger installs a logger for policy decisions made during export
func (e *Exporter) WithLogger(logger *zap.Logger) *Exporter {
	c := e.clone()
	c.logger = logger
	return c
}

// Result is the outcome of a successful export
type Result struct {
	// Data is the annotated document, always a new buffer independent of
	// the input
	Data []byte

	// Warnings lists per-page anomalies that were recovered rather than
	// aborting: clamped page indexes, skipped degenerate pages
	Warnings Warnings
}

// request assembles the orchestrator request from the configured state
func (e *Exporter) request() export.Request {
	return export.Request{
		Phrases: e.phrases,
		Search: search.Options{
			CaseSensitive: e.opts.CaseSensitive,
			WholeWord:     e.opts.WholeWord,
		},
		Manual:      e.manual,
		Notes:       e.notes,
		NoteRefs:    e.noteRefs,
		Mode:        e.opts.Mode,
		Subtype:     e.opts.Subtype,
		LineEpsilon: e.opts.LineEpsilon,
	}
}

// Export runs the full pipeline and blocks until it terminates. The input
// buffer is never mutated; on failure the caller can retry with the same
// input.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	data, err := e.src.resolve()
	if err != nil {
		return nil, err
	}

	events := export.NewOrchestrator(e.logger).Export(ctx, data, e.request())
	for ev := range events {
		switch ev.Kind {
		case export.EventDone:
			return &Result{Data: ev.Data, Warnings: Warnings(ev.Warnings)}, nil
		case export.EventFailed:
			return nil, ev.Err
		}
	}
	// Channel closed without a terminal event: the export was aborted
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, export.ErrAborted
}

// ExportChannel runs the pipeline in the background and returns the raw
// event channel: zero or more progress events, then exactly one terminal
// event, then close
func (e *Exporter) ExportChannel(ctx context.Context) (<-chan export.Event, error) {
	data, err := e.src.resolve()
	if err != nil {
		return nil, err
	}
	return export.NewOrchestrator(e.logger).Export(ctx, data, e.request()), nil
}

// ExportToStore runs the pipeline and deposits the result buffer in the
// store, returning the id a caller fetches it under. The entry is served
// once and expires with the store's TTL.
func (e *Exporter) ExportToStore(ctx context.Context, store *export.Store) (string, *Result, error) {
	res, err := e.Export(ctx)
	if err != nil {
		return "", nil, err
	}
	return store.Put(res.Data), res, nil
}

// FindMatches resolves phrase geometry only, without producing an output
// document
func (e *Exporter) FindMatches(ctx context.Context) ([]model.Match, error) {
	data, err := e.src.resolve()
	if err != nil {
		return nil, err
	}
	return export.NewOrchestrator(e.logger).FindMatches(ctx, data, e.phrases, search.Options{
		CaseSensitive: e.opts.CaseSensitive,
		WholeWord:     e.opts.WholeWord,
	}, e.opts.LineEpsilon)
}
