package xiplugin

import (
	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/linecache"
	"github.com/xi-editor/xi-plugin-go/style"
)

func newBuffer(core *CoreProxy, info BufferInfo, fetchSize int) *Buffer {
	b := &Buffer{
		id:      info.BufferID,
		path:    info.Path,
		syntax:  info.Syntax,
		nbLines: info.NbLines,
		views:   append([]string(nil), info.Views...),
		core:    core,
	}
	b.lines = linecache.New(info.BufSize, info.Rev, "",
		linecache.WithFetcher(b),
		linecache.WithFetchSize(fetchSize),
	)
	return b
}

// Fetch implements linecache.Fetcher, by asking the core for data through
// one of the buffer's views.
func (b *Buffer) Fetch(offset, rev, maxBytes int) (string, error) {
	if len(b.views) == 0 {
		return "", errors.Wrapf(linecache.ErrNoFetcher, "buffer %d has no views left", b.id)
	}
	return b.core.GetData(b.views[0], offset, rev, maxBytes)
}

func (b *Buffer) removeView(id string) (empty bool) {
	for i, v := range b.views {
		if v == id {
			b.views = append(b.views[:i], b.views[i+1:]...)
			break
		}
	}
	return len(b.views) == 0
}

// Less implements the btree.Item interface
func (v *View) Less(b btree.Item) bool {
	return v.id < b.(*View).id
}

// ID returns the id of the view.
func (v *View) ID() string {
	return v.id
}

// BufferID returns the id of the underlying buffer.
func (v *View) BufferID() int {
	return v.buf.id
}

// Path returns the path the buffer was last loaded from or saved to. It
// is empty for buffers that were never saved.
func (v *View) Path() string {
	return v.buf.path
}

// Syntax returns the syntax of the buffer, as determined by the core.
func (v *View) Syntax() string {
	return v.buf.syntax
}

// NbLines returns the number of lines the core reported when the buffer
// was opened. Unlike Lines().LineCount(), this does not fetch anything,
// but it is not kept up to date.
func (v *View) NbLines() int {
	return v.buf.nbLines
}

// Lines returns the cache of the buffer's contents. It is shared by all
// views of the buffer.
func (v *View) Lines() *linecache.LineCache {
	return v.buf.lines
}

// Selections asks the core for the view's selections.
func (v *View) Selections() ([]Selection, error) {
	return v.buf.core.GetSelections(v.id)
}

// UpdateSpans styles [start, start+length) with spans relative to start,
// replacing whatever spans the plugin had set in that region.
func (v *View) UpdateSpans(start, length int, spans []style.Span) error {
	return v.buf.core.UpdateSpans(v.id, start, length, spans, v.buf.lines.Revision())
}

// UpdateSpanSet is like UpdateSpans, covering the extent of the set.
func (v *View) UpdateSpanSet(s *style.SpanSet) error {
	start, end, ok := s.Extent()
	if !ok {
		return nil
	}
	return v.UpdateSpans(start, end-start, s.Relative(start))
}

// AddScopes registers scopes for the view.
func (v *View) AddScopes(scopes [][]string) error {
	return v.buf.core.AddScopes(v.id, scopes)
}

// Edit asks the core to apply an edit to the view.
func (v *View) Edit(e *edit.Edit) error {
	return v.buf.core.Edit(v.id, e)
}
