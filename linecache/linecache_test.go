package linecache

import (
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// source serves a buffer in chunks of at most max bytes, and counts how
// many times it has been asked for data.
type source struct {
	data  string
	max   int
	calls int
}

func newSource(data string, max int) *source {
	return &source{data: data, max: max}
}

func (s *source) Fetch(offset, _ int, maxBytes int) (string, error) {
	s.calls++
	if offset >= len(s.data) {
		return "", io.EOF
	}
	n := min(maxBytes, s.max)
	return s.data[offset:min(len(s.data), offset+n)], nil
}

func (s *source) replace(start, end int, text string) {
	s.data = s.data[:start] + text + s.data[end:]
}

func checkInvariants(t *testing.T, lc *LineCache) {
	t.Helper()
	require.NotEmpty(t, lc.lines, "lines must never be empty")
	require.Len(t, lc.offsets, len(lc.lines)+1)
	require.Equal(t, 0, lc.offsets[0])
	for i, l := range lc.lines {
		require.Equal(t, len(l), lc.offsets[i+1]-lc.offsets[i], "offset mismatch at line %d", i)
		if i < len(lc.lines)-1 {
			require.True(t, strings.HasSuffix(l, "\n"), "line %d (%q) must end with a newline", i, l)
		}
	}
	require.LessOrEqual(t, lc.HighWater(), lc.TotalBytes())
	require.Equal(t, lc.HighWater() != lc.TotalBytes(), lc.HasMissing())
}

const sample = "this\nhas\nsome\nlines\nin it"

func TestNew(t *testing.T) {
	t.Parallel()
	lc := New(len(sample), 0, sample)
	checkInvariants(t, lc)

	l, err := lc.Line(0)
	require.NoError(t, err)
	require.Equal(t, "this", l)

	l, err = lc.Line(4)
	require.NoError(t, err)
	require.Equal(t, "in it", l)

	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = lc.Line(5)
	require.True(t, errors.Is(err, ErrOutOfRange), "expected ErrOutOfRange, got %v", err)

	_, err = lc.Line(-1)
	require.True(t, errors.Is(err, ErrOutOfRange), "expected ErrOutOfRange, got %v", err)
}

func TestOffsets(t *testing.T) {
	t.Parallel()
	lc := New(len(sample), 0, sample)
	require.Equal(t, lc.TotalBytes(), lc.HighWater())
	require.False(t, lc.HasMissing())
	require.Equal(t, "has\n", sample[lc.offsets[1]:lc.offsets[2]])
	require.Equal(t, sample, strings.Join(lc.lines, ""), "fragments reproduce the buffer")
}

func TestEmptyBuffer(t *testing.T) {
	t.Parallel()
	lc := New(0, 0, "")
	checkInvariants(t, lc)
	require.Equal(t, []string{""}, lc.lines)
	require.Equal(t, []int{0, 0}, lc.offsets)

	l, err := lc.Line(0)
	require.NoError(t, err)
	require.Equal(t, "", l)

	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestTrailingNewline(t *testing.T) {
	t.Parallel()
	lc := New(4, 0, "abc\n")
	require.Equal(t, []string{"abc\n"}, lc.lines)
	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

var chunked = strings.Repeat("a", 31) + "\n" +
	strings.Repeat("b", 31) + "\n" +
	strings.Repeat("c", 31) + "\n" +
	strings.Repeat("d", 31)

func TestExtend(t *testing.T) {
	t.Parallel()

	t.Run("whole lines", func(t *testing.T) {
		t.Parallel()
		src := newSource(chunked, 32)
		lc := New(len(chunked), 0, chunked[:32], WithFetcher(src), WithFetchSize(32))
		require.Equal(t, 1, lc.CachedLines())
		require.True(t, strings.HasSuffix(lc.lines[0], "\n"))
		require.True(t, lc.HasMissing())
		require.Equal(t, 0, src.calls, "nothing is fetched at construction")

		require.NoError(t, lc.Extend(64))
		checkInvariants(t, lc)
		require.Equal(t, 2, lc.CachedLines())
		require.Equal(t, 64, lc.HighWater())
		require.Equal(t, byte('b'), lc.lines[1][10])
		require.Equal(t, 1, src.calls)
	})

	t.Run("no newlines in chunk", func(t *testing.T) {
		t.Parallel()
		src := newSource(chunked, 8)
		lc := New(len(chunked), 0, chunked[:8], WithFetcher(src), WithFetchSize(8))
		require.NoError(t, lc.Extend(16))
		checkInvariants(t, lc)
		require.Equal(t, 1, lc.CachedLines(), "chunk boundary must not break the line")
		require.Equal(t, chunked[:16], lc.lines[0])
	})

	t.Run("past the end", func(t *testing.T) {
		t.Parallel()
		src := newSource(chunked, 32)
		lc := New(len(chunked), 0, "", WithFetcher(src))
		require.NoError(t, lc.Extend(len(chunked)+100))
		checkInvariants(t, lc)
		require.False(t, lc.HasMissing())
		require.Equal(t, 4, lc.CachedLines())
	})

	t.Run("requests at least what is needed", func(t *testing.T) {
		t.Parallel()
		var asked []int
		data := strings.Repeat("x", 100)
		f := FetcherFunc(func(offset, _, maxBytes int) (string, error) {
			asked = append(asked, maxBytes)
			return data[offset:min(len(data), offset+maxBytes)], nil
		})
		lc := New(len(data), 0, "", WithFetcher(f), WithFetchSize(10))
		require.NoError(t, lc.Extend(50))
		require.Equal(t, []int{50}, asked)
		require.Equal(t, 50, lc.HighWater())
	})
}

func TestLineFetchesOnDemand(t *testing.T) {
	t.Parallel()

	t.Run("alphabet", func(t *testing.T) {
		t.Parallel()
		data := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\nk\nl\nm\nn\no\np\nq\nr\ns\nt\nu\nv\nw\nx\ny\nz"
		src := newSource(data, 32)
		lc := New(len(data), 0, data[:8], WithFetcher(src), WithFetchSize(32))
		require.Equal(t, 4, lc.CachedLines())

		l, err := lc.Line(14)
		require.NoError(t, err)
		require.Equal(t, "o", l)
		require.Equal(t, 1, src.calls)
		require.True(t, lc.HasMissing())

		n, err := lc.LineCount()
		require.NoError(t, err)
		require.Equal(t, 26, n)
		require.False(t, lc.HasMissing())
		require.Equal(t, 2, src.calls)

		_, err = lc.Line(26)
		require.True(t, errors.Is(err, ErrOutOfRange), "expected ErrOutOfRange, got %v", err)
		require.Equal(t, 2, src.calls, "a full cache is never refetched")
	})

	t.Run("32 byte chunks", func(t *testing.T) {
		t.Parallel()
		src := newSource(chunked, 32)
		lc := New(len(chunked), 0, chunked[:32], WithFetcher(src), WithFetchSize(32))

		l, err := lc.Line(2)
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("c", 31), l)
		require.Equal(t, 2, src.calls)
		require.True(t, lc.HasMissing())

		l, err = lc.Line(3)
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("d", 31), l)
		require.Equal(t, 3, src.calls)
		require.False(t, lc.HasMissing())
		checkInvariants(t, lc)
	})

	t.Run("partial last line is completed", func(t *testing.T) {
		t.Parallel()
		src := newSource(chunked, 32)
		lc := New(len(chunked), 0, chunked[:10], WithFetcher(src), WithFetchSize(32))
		l, err := lc.Line(0)
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("a", 31), l)
	})
}

func TestLocate(t *testing.T) {
	t.Parallel()
	data := "abc\ndef\nghi\njkl\nmno\n"
	lc := New(len(data), 0, data)

	cases := []struct {
		offset int
		line   int
		col    int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{6, 1, 2},
		{4, 1, 0},
		{8, 2, 0},
		{19, 4, 3},
		{20, 4, 4},
	}
	for _, c := range cases {
		line, col, err := lc.Locate(c.offset)
		require.NoError(t, err, "offset %d", c.offset)
		require.Equal(t, c.line, line, "line for offset %d", c.offset)
		require.Equal(t, c.col, col, "column for offset %d", c.offset)
	}

	for _, offset := range []int{-1, 21, 100} {
		_, _, err := lc.Locate(offset)
		require.True(t, errors.Is(err, ErrOutOfBounds), "offset %d: expected ErrOutOfBounds, got %v", offset, err)
	}
}

func TestLocateFetches(t *testing.T) {
	t.Parallel()
	src := newSource(chunked, 32)
	lc := New(len(chunked), 0, "", WithFetcher(src), WithFetchSize(32))

	line, col, err := lc.Locate(0)
	require.NoError(t, err)
	require.Equal(t, 0, line)
	require.Equal(t, 0, col)
	require.Equal(t, 0, src.calls, "offset 0 never fetches")

	line, col, err = lc.Locate(70)
	require.NoError(t, err)
	require.Equal(t, 2, line)
	require.Equal(t, 6, col)
	calls := src.calls
	require.Equal(t, 3, calls)

	line2, col2, err := lc.Locate(70)
	require.NoError(t, err)
	require.Equal(t, line, line2)
	require.Equal(t, col, col2)
	require.Equal(t, calls, src.calls, "locate does not refetch cached data")
}

func TestLocateAtHighWater(t *testing.T) {
	t.Parallel()
	data := "a\nbcd"
	src := newSource(data, 2)
	lc := New(len(data), 0, data[:2], WithFetcher(src))

	line, col, err := lc.Locate(2)
	require.NoError(t, err)
	require.Equal(t, 1, line, "offset 2 starts the second line")
	require.Equal(t, 0, col)
	require.Equal(t, 1, src.calls)
	checkInvariants(t, lc)

	w, err := lc.PreviousWord(2)
	require.NoError(t, err)
	require.Equal(t, "", w, "words on the previous line are not considered")

	l, err := lc.Line(1)
	require.NoError(t, err)
	require.Equal(t, "bcd", l)
	require.False(t, lc.HasMissing())

	line, col, err = lc.Locate(2)
	require.NoError(t, err)
	require.Equal(t, 1, line)
	require.Equal(t, 0, col)

	w, err = lc.PreviousWord(2)
	require.NoError(t, err)
	require.Equal(t, "", w)
}

func TestPreviousWord(t *testing.T) {
	t.Parallel()
	data := "this is a single line\n"
	lc := New(len(data), 0, data)

	cases := map[int]string{
		0:  "",
		3:  "thi",
		4:  "this",
		5:  "this",
		7:  "is",
		8:  "is",
		22: "line",
	}
	for offset, expected := range cases {
		w, err := lc.PreviousWord(offset)
		require.NoError(t, err, "offset %d", offset)
		require.Equal(t, expected, w, "previous word at offset %d", offset)
	}

	_, err := lc.PreviousWord(23)
	require.True(t, errors.Is(err, ErrOutOfBounds), "expected ErrOutOfBounds, got %v", err)
}

func TestPreviousWordStartOfLine(t *testing.T) {
	t.Parallel()
	data := "first\n   second"
	lc := New(len(data), 0, data)

	w, err := lc.PreviousWord(6)
	require.NoError(t, err)
	require.Equal(t, "", w, "words on the previous line are not considered")

	w, err = lc.PreviousWord(8)
	require.NoError(t, err)
	require.Equal(t, "", w)
}

func TestDisplayColumn(t *testing.T) {
	t.Parallel()
	data := "日本語 text\nabc"
	lc := New(len(data), 0, data)

	col, err := lc.DisplayColumn(9)
	require.NoError(t, err)
	require.Equal(t, 6, col)

	col, err = lc.DisplayColumn(len("日本語 te"))
	require.NoError(t, err)
	require.Equal(t, 9, col)

	col, err = lc.DisplayColumn(len(data))
	require.NoError(t, err)
	require.Equal(t, 3, col)
}

func TestApplyUpdate(t *testing.T) {
	t.Parallel()
	lc := New(len(sample), 0, sample)

	require.NoError(t, lc.ApplyUpdate(1, 4, 4, 3, "tle"))
	checkInvariants(t, lc)
	require.Equal(t, "thistle\n", lc.lines[0])
	require.Equal(t, len(lc.lines[0]), lc.offsets[1])
	require.Equal(t, len(sample)+3, lc.HighWater())
	require.Equal(t, 28, lc.TotalBytes())
	require.Equal(t, 1, lc.Revision())
	require.Equal(t, 5, lc.CachedLines())

	l, err := lc.Line(0)
	require.NoError(t, err)
	require.Equal(t, "thistle", l)
	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.NoError(t, lc.ApplyUpdate(2, 10, 11, 5, "ha\noh"))
	checkInvariants(t, lc)
	require.Equal(t, 6, lc.CachedLines())
	require.Equal(t, "haha\n", lc.lines[1])
	require.Equal(t, "oh\n", lc.lines[2])
	require.Equal(t, 2, lc.Revision())
}

func TestApplyUpdateJoinsLines(t *testing.T) {
	t.Parallel()
	lc := New(len(sample), 0, sample)

	// delete "\nhas\n"
	require.NoError(t, lc.ApplyUpdate(1, 4, 9, 0, ""))
	checkInvariants(t, lc)
	require.Equal(t, []string{"thissome\n", "lines\n", "in it"}, lc.lines)
	require.Equal(t, len(sample)-5, lc.TotalBytes())
}

func TestApplyUpdateEmptyBuffer(t *testing.T) {
	t.Parallel()
	lc := New(0, 0, "")
	require.Len(t, lc.lines, 1)
	require.Len(t, lc.offsets, 2)

	require.NoError(t, lc.ApplyUpdate(1, 0, 0, 1, "q"))
	require.Len(t, lc.offsets, 2)
	require.NoError(t, lc.ApplyUpdate(2, 1, 1, 1, "\n"))
	require.Len(t, lc.offsets, 2)
	require.NoError(t, lc.ApplyUpdate(3, 2, 2, 1, "z"))
	checkInvariants(t, lc)
	require.Len(t, lc.lines, 2)
	require.Len(t, lc.offsets, 3)

	l, err := lc.Line(0)
	require.NoError(t, err)
	require.Equal(t, "q", l)
}

func TestApplyUpdateDeleteAll(t *testing.T) {
	t.Parallel()
	lc := New(len(sample), 0, sample)
	require.NoError(t, lc.ApplyUpdate(1, 0, len(sample), 0, ""))
	checkInvariants(t, lc)
	require.Equal(t, 0, lc.TotalBytes())
	require.Equal(t, []string{""}, lc.lines)
	require.False(t, lc.HasMissing())
}

func TestApplyUpdateDeleteLastLine(t *testing.T) {
	t.Parallel()
	data := "abc\ndef"
	lc := New(len(data), 0, data)
	require.NoError(t, lc.ApplyUpdate(1, 4, 7, 0, ""))
	checkInvariants(t, lc)
	require.Equal(t, []string{"abc\n"}, lc.lines, "same shape as a cache built from \"abc\\n\"")
}

func TestApplyUpdateAtHighWater(t *testing.T) {
	t.Parallel()
	data := "abc\ndef\nghi"
	src := newSource(data, 32)
	lc := New(len(data), 0, data[:6], WithFetcher(src))

	// replace "de", which ends exactly where the cache does
	require.NoError(t, lc.ApplyUpdate(1, 4, 6, 1, "X"))
	src.replace(4, 6, "X")
	checkInvariants(t, lc)
	require.Equal(t, 0, src.calls)
	require.Equal(t, 5, lc.HighWater())
	require.Equal(t, 10, lc.TotalBytes())

	l, err := lc.Line(1)
	require.NoError(t, err)
	require.Equal(t, "Xf", l)

	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, src.data, strings.Join(lc.lines, ""))
}

func TestApplyUpdatePastHighWater(t *testing.T) {
	t.Parallel()
	data := "abc\ndef\nghi"
	src := newSource(data, 32)
	lc := New(len(data), 0, data[:4], WithFetcher(src))

	// delete "c\ndef\ng", most of which is not cached yet
	require.NoError(t, lc.ApplyUpdate(1, 2, 9, 0, ""))
	src.replace(2, 9, "")
	checkInvariants(t, lc)
	require.Equal(t, 1, src.calls)
	require.Equal(t, []string{"abhi"}, lc.lines)
	require.Equal(t, 4, lc.TotalBytes())
	require.False(t, lc.HasMissing())
}

func TestApplyUpdateShiftsUncachedTail(t *testing.T) {
	t.Parallel()
	src := newSource(chunked, 32)
	lc := New(len(chunked), 0, chunked[:32], WithFetcher(src), WithFetchSize(32))

	require.NoError(t, lc.ApplyUpdate(1, 0, 0, 3, "xx\n"))
	src.replace(0, 0, "xx\n")
	checkInvariants(t, lc)
	require.Equal(t, 35, lc.HighWater())
	require.Equal(t, len(chunked)+3, lc.TotalBytes())
	require.True(t, lc.HasMissing())

	l, err := lc.Line(2)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("b", 31), l)

	n, err := lc.LineCount()
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, src.data, strings.Join(lc.lines, ""))
}

func TestApplyUpdateErrors(t *testing.T) {
	t.Parallel()

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()
		lc := New(len(sample), 0, sample)
		err := lc.ApplyUpdate(1, 0, 0, 3, "ab")
		require.True(t, errors.Is(err, ErrLengthMismatch), "expected ErrLengthMismatch, got %v", err)
		require.Equal(t, 0, lc.Revision())
		require.Equal(t, len(sample), lc.TotalBytes())
		require.Equal(t, sample, strings.Join(lc.lines, ""))
	})

	t.Run("invalid range", func(t *testing.T) {
		t.Parallel()
		lc := New(len(sample), 0, sample)
		for _, r := range [][2]int{{5, 4}, {-1, 2}, {0, len(sample) + 1}} {
			err := lc.ApplyUpdate(1, r[0], r[1], 0, "")
			require.True(t, errors.Is(err, ErrInvalidRange), "range %v: expected ErrInvalidRange, got %v", r, err)
		}
		require.Equal(t, 0, lc.Revision())
		checkInvariants(t, lc)
	})

	t.Run("no fetcher", func(t *testing.T) {
		t.Parallel()
		lc := New(len(sample), 0, sample[:4])
		err := lc.ApplyUpdate(1, 0, 10, 0, "")
		require.True(t, errors.Is(err, ErrNoFetcher), "expected ErrNoFetcher, got %v", err)
		require.Equal(t, 0, lc.Revision())
		require.Equal(t, len(sample), lc.TotalBytes())
	})
}

func TestFetchProtocolViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]FetcherFunc{
		"empty without eof": func(int, int, int) (string, error) {
			return "", nil
		},
		"early eof": func(int, int, int) (string, error) {
			return "", io.EOF
		},
		"too much data": func(int, int, int) (string, error) {
			return strings.Repeat("z", 100), nil
		},
	}
	for name, f := range cases {
		f := f
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			lc := New(len(sample), 0, sample[:4], WithFetcher(f))
			_, err := lc.Line(3)
			require.True(t, errors.Is(err, ErrFetchProtocol), "expected ErrFetchProtocol, got %v", err)
			checkInvariants(t, lc)
		})
	}

	t.Run("fetch error is passed through", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		lc := New(len(sample), 0, "", WithFetcher(FetcherFunc(func(int, int, int) (string, error) {
			return "", boom
		})))
		_, _, err := lc.Locate(3)
		require.True(t, errors.Is(err, boom), "expected boom, got %v", err)
	})
}

func TestRandomEdits(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	alphabet := "ab \n"
	randomText := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}

	for round := 0; round < 50; round++ {
		ref := randomText(rng.Intn(200))
		src := newSource(ref, 1+rng.Intn(16))
		lc := New(len(ref), 0, ref[:rng.Intn(len(ref)+1)], WithFetcher(src), WithFetchSize(1+rng.Intn(16)))

		for rev := 1; rev <= 30; rev++ {
			start := rng.Intn(len(src.data) + 1)
			end := start + rng.Intn(len(src.data)-start+1)
			text := randomText(rng.Intn(6))

			require.NoError(t, lc.ApplyUpdate(rev, start, end, len(text), text), "round %d rev %d", round, rev)
			src.replace(start, end, text)
			checkInvariants(t, lc)
			require.Equal(t, len(src.data), lc.TotalBytes())
			require.Equal(t, src.data[:lc.HighWater()], strings.Join(lc.lines, ""), "cached prefix, round %d rev %d", round, rev)
		}

		_, err := lc.LineCount()
		require.NoError(t, err)
		require.Equal(t, src.data, strings.Join(lc.lines, ""), "round trip, round %d", round)
		require.Equal(t, splitLines(src.data), lc.lines, "round %d", round)
	}
}
