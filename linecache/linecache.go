package linecache

import (
	"io"
	"slices"
	"sort"
	"strings"

	pdebug "github.com/lestrrat-go/pdebug"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
)

// New creates a LineCache for a buffer of totalBytes bytes at revision
// rev. initial is the beginning of the buffer, and may be anywhere from
// empty to the entire buffer. Nothing is fetched until it is needed.
func New(totalBytes, rev int, initial string, options ...Option) *LineCache {
	lc := &LineCache{
		totalBytes: totalBytes,
		revision:   rev,
		fetchSize:  DefaultFetchSize,
		lines:      splitLines(initial),
	}
	for _, o := range options {
		o(lc)
	}

	lc.offsets = make([]int, 1, len(lc.lines)+1)
	for _, l := range lc.lines {
		lc.offsets = append(lc.offsets, lc.offsets[len(lc.offsets)-1]+len(l))
	}
	return lc
}

// splitLines splits s after each '\n'. An empty string yields a single
// empty line, and a trailing '\n' does not start a new line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// TotalBytes returns the length of the whole buffer, fetched or not.
func (lc *LineCache) TotalBytes() int {
	return lc.totalBytes
}

// Revision returns the buffer revision the cache is consistent with.
func (lc *LineCache) Revision() int {
	return lc.revision
}

// HighWater returns the offset one past the last cached byte.
func (lc *LineCache) HighWater() int {
	return lc.offsets[len(lc.offsets)-1]
}

// CachedLines returns the number of lines currently held in the cache.
// The last one may be incomplete.
func (lc *LineCache) CachedLines() int {
	return len(lc.lines)
}

// HasMissing returns true if the cache does not hold the full buffer.
func (lc *LineCache) HasMissing() bool {
	return lc.HighWater() != lc.totalBytes
}

// lineFor returns the index of the cached line containing offset. An
// offset sitting on a line boundary belongs to the line starting there,
// and the last line extends past its end.
func (lc *LineCache) lineFor(offset int) int {
	// offsets[0] is always 0, so this never goes below 0
	return sort.Search(len(lc.lines), func(i int) bool {
		return lc.offsets[i] > offset
	}) - 1
}

// complete reports whether line i is cached in its entirety.
func (lc *LineCache) complete(i int) bool {
	switch n := len(lc.lines); {
	case i < n-1:
		return true
	case i == n-1:
		return !lc.HasMissing() || strings.HasSuffix(lc.lines[i], "\n")
	default:
		return false
	}
}

// Line returns line i without its trailing newline, fetching more of the
// buffer as needed.
func (lc *LineCache) Line(i int) (string, error) {
	if i < 0 {
		return "", errors.Wrapf(ErrOutOfRange, "line %d", i)
	}

	for !lc.complete(i) && lc.HasMissing() {
		if err := lc.fetchNext(0); err != nil {
			return "", errors.Wrapf(err, "failed to fetch line %d", i)
		}
	}

	if i >= len(lc.lines) {
		return "", errors.Wrapf(ErrOutOfRange, "line %d (buffer has %d lines)", i, len(lc.lines))
	}
	return strings.TrimSuffix(lc.lines[i], "\n"), nil
}

// LineCount returns the number of lines in the buffer. This requires the
// entire buffer, so it is fetched first if need be: don't call this on a
// hot path.
func (lc *LineCache) LineCount() (int, error) {
	if err := lc.Extend(lc.totalBytes); err != nil {
		return 0, errors.Wrap(err, "failed to count lines")
	}
	return len(lc.lines), nil
}

// Locate returns the line and column (in bytes) of offset.
func (lc *LineCache) Locate(offset int) (int, int, error) {
	if offset < 0 || offset > lc.totalBytes {
		return 0, 0, errors.Wrapf(ErrOutOfBounds, "offset %d invalid for buffer length %d", offset, lc.totalBytes)
	}
	if offset == 0 {
		return 0, 0, nil
	}
	if offset > lc.HighWater() {
		if err := lc.Extend(offset); err != nil {
			return 0, 0, errors.Wrapf(err, "failed to locate offset %d", offset)
		}
	}
	// a newline right at the high water mark means offset starts a line
	// that is not cached yet
	if offset == lc.HighWater() && lc.HasMissing() && strings.HasSuffix(lc.lines[len(lc.lines)-1], "\n") {
		if err := lc.fetchNext(0); err != nil {
			return 0, 0, errors.Wrapf(err, "failed to locate offset %d", offset)
		}
	}

	i := lc.lineFor(offset)
	return i, offset - lc.offsets[i], nil
}

// PreviousWord returns the last run of non-whitespace characters before
// offset on the same line, or "" if there is none. If offset is in
// the middle of a word, only the part of the word before it is returned.
func (lc *LineCache) PreviousWord(offset int) (string, error) {
	i, col, err := lc.Locate(offset)
	if err != nil {
		return "", err
	}

	words := strings.Fields(lc.lines[i][:col])
	if len(words) == 0 {
		return "", nil
	}
	return words[len(words)-1], nil
}

// DisplayColumn returns the number of terminal cells taken by the part of
// the line before offset.
func (lc *LineCache) DisplayColumn(offset int) (int, error) {
	i, col, err := lc.Locate(offset)
	if err != nil {
		return 0, err
	}
	return runewidth.StringWidth(strings.TrimSuffix(lc.lines[i][:col], "\n")), nil
}

// ApplyUpdate applies an edit that replaced the bytes in [start, end) with
// text, bringing the buffer to revision rev. newLen is the declared length
// of text.
//
// Offsets past the edit are shifted, but lines beyond the cached region are
// not fetched. Either the whole edit is applied, or nothing is.
func (lc *LineCache) ApplyUpdate(rev, start, end, newLen int, text string) (err error) {
	if pdebug.Enabled {
		g := pdebug.Marker("LineCache.ApplyUpdate (rev=%d, start=%d, end=%d, new_len=%d)", rev, start, end, newLen).BindError(&err)
		defer g.End()
	}

	if len(text) != newLen {
		return errors.Wrapf(ErrLengthMismatch, "text is %d bytes long, expected %d", len(text), newLen)
	}
	if start < 0 || start > end || end > lc.totalBytes {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d) for buffer length %d", start, end, lc.totalBytes)
	}

	// can't splice into data we don't have
	if end > lc.HighWater() {
		if err := lc.Extend(end); err != nil {
			return errors.Wrapf(err, "failed to fetch data up to %d", end)
		}
	}

	first := lc.lineFor(start)
	last := lc.lineFor(end)
	joined := lc.lines[first][:start-lc.offsets[first]] + text + lc.lines[last][end-lc.offsets[last]:]

	// Emptying the tail of the buffer drops its last line, unless it is
	// the only one left.
	var fragments []string
	if joined != "" || first == 0 {
		fragments = splitLines(joined)
	}

	delta := (start - end) + newLen
	fragOffsets := make([]int, len(fragments))
	pos := lc.offsets[first]
	for i, f := range fragments {
		pos += len(f)
		fragOffsets[i] = pos
	}

	lc.lines = slices.Replace(lc.lines, first, last+1, fragments...)
	lc.offsets = slices.Replace(lc.offsets, first+1, last+2, fragOffsets...)
	for i := first + 1 + len(fragments); i < len(lc.offsets); i++ {
		lc.offsets[i] += delta
	}

	lc.revision = rev
	lc.totalBytes += delta
	return nil
}

// Extend fetches data until the cache holds at least the first `to` bytes
// of the buffer, or the whole buffer.
func (lc *LineCache) Extend(to int) error {
	if to > lc.totalBytes {
		to = lc.totalBytes
	}
	for lc.HighWater() < to {
		if err := lc.fetchNext(to - lc.HighWater()); err != nil {
			return err
		}
	}
	return nil
}

// fetchNext makes one round trip to the Fetcher, asking for at least want
// bytes, and appends whatever comes back.
func (lc *LineCache) fetchNext(want int) (err error) {
	hw := lc.HighWater()
	if pdebug.Enabled {
		g := pdebug.Marker("LineCache.fetchNext (offset=%d, rev=%d, want=%d)", hw, lc.revision, want).BindError(&err)
		defer g.End()
	}

	if lc.fetcher == nil {
		return errors.Wrapf(ErrNoFetcher, "data missing at offset %d", hw)
	}

	size := lc.fetchSize
	if want > size {
		size = want
	}

	data, err := lc.fetcher.Fetch(hw, lc.revision, size)
	eof := errors.Is(err, io.EOF)
	if err != nil && !eof {
		return errors.Wrapf(err, "failed to fetch data at offset %d", hw)
	}

	if len(data) == 0 {
		if eof {
			return errors.Wrapf(ErrFetchProtocol, "end of data at offset %d, buffer length is %d", hw, lc.totalBytes)
		}
		return errors.Wrapf(ErrFetchProtocol, "no data at offset %d (revision %d)", hw, lc.revision)
	}
	if hw+len(data) > lc.totalBytes {
		return errors.Wrapf(ErrFetchProtocol, "got %d bytes at offset %d, buffer length is %d", len(data), hw, lc.totalBytes)
	}

	lc.appendData(data)
	return nil
}

// appendData adds freshly fetched data after the last cached byte. A chunk
// boundary is not a line boundary: if the last line has no newline yet,
// the first new line continues it.
func (lc *LineCache) appendData(data string) {
	fragments := splitLines(data)

	last := len(lc.lines) - 1
	if !strings.HasSuffix(lc.lines[last], "\n") {
		lc.lines[last] += fragments[0]
		lc.offsets[last+1] += len(fragments[0])
		fragments = fragments[1:]
	}

	for _, f := range fragments {
		lc.lines = append(lc.lines, f)
		lc.offsets = append(lc.offsets, lc.offsets[len(lc.offsets)-1]+len(f))
	}
}
