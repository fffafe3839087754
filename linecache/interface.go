// Package linecache keeps a partial, lazily fetched copy of a text buffer
// and maps between byte offsets and line/column positions as the buffer
// is edited.
package linecache

import (
	"github.com/pkg/errors"
)

// DefaultFetchSize is the maximum number of bytes requested from a
// Fetcher in a single round trip, unless more is needed to reach a
// specific offset.
const DefaultFetchSize = 1024 * 1024

var (
	// ErrOutOfBounds is returned when an offset lies outside of the buffer.
	ErrOutOfBounds = errors.New("offset out of bounds")

	// ErrOutOfRange is returned when a line number does not exist in the
	// buffer, even after the whole buffer has been fetched.
	ErrOutOfRange = errors.New("line out of range")

	// ErrInvalidRange is returned when an edit's range is malformed.
	ErrInvalidRange = errors.New("invalid edit range")

	// ErrLengthMismatch is returned when the text of an edit does not have
	// the declared length. This means the caller (or the transport) is
	// broken, and should not be recovered from.
	ErrLengthMismatch = errors.New("edit text length mismatch")

	// ErrFetchProtocol is returned when the Fetcher does not behave: it
	// returned no data without signaling the end of the buffer, or it
	// returned more data than the buffer holds. Not recoverable.
	ErrFetchProtocol = errors.New("fetch protocol violation")

	// ErrNoFetcher is returned when data is missing from the cache, but
	// no Fetcher was configured.
	ErrNoFetcher = errors.New("no fetcher configured")
)

// Fetcher supplies buffer contents on demand.
//
// Fetch returns up to maxBytes bytes of the buffer starting at offset, as
// of revision rev. When offset is at or past the end of the buffer it must
// return io.EOF. Short reads are fine, but returning nothing with a nil
// error is a protocol violation.
type Fetcher interface {
	Fetch(offset, rev, maxBytes int) (string, error)
}

// FetcherFunc is a function that implements Fetcher.
type FetcherFunc func(int, int, int) (string, error)

// Fetch calls the underlying function.
func (f FetcherFunc) Fetch(offset, rev, maxBytes int) (string, error) {
	return f(offset, rev, maxBytes)
}

// Option configures a LineCache.
type Option func(*LineCache)

// WithFetcher sets the source used to fill in missing data.
func WithFetcher(f Fetcher) Option {
	return func(lc *LineCache) {
		lc.fetcher = f
	}
}

// WithFetchSize sets the number of bytes requested per fetch.
// Values <= 0 are ignored.
func WithFetchSize(n int) Option {
	return func(lc *LineCache) {
		if n > 0 {
			lc.fetchSize = n
		}
	}
}

// LineCache holds the lines of a buffer fetched so far, along with the
// offset at which each of them starts.
//
// LineCache is not safe for concurrent use. Any method that may need data
// beyond what has been fetched calls the Fetcher inline, and blocks until
// it returns.
type LineCache struct {
	totalBytes int
	revision   int
	fetcher    Fetcher
	fetchSize  int

	// lines keep their '\n' terminators. Only the last one may lack it.
	lines []string

	// offsets[i] is where lines[i] starts. The extra last element is
	// the high-water mark: one past the last cached byte.
	offsets []int
}
