package plugins

import (
	"encoding/json"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/config"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/internal/util"
	"github.com/xi-editor/xi-plugin-go/linecache"
	"github.com/xi-editor/xi-plugin-go/style"
)

const WordCheckName = "wordcheck"

// Custom commands accepted by WordCheck.
const (
	CommandAddWord = "add_word"
)

// WordCheck marks words missing from its word list as they are typed. It
// is attached to every buffer.
type WordCheck struct {
	xiplugin.Base
	words     map[string]struct{}
	highlight config.Highlight
	// views currently in the middle of a word
	inWord map[string]bool
}

func NewWordCheck(words []string, h config.Highlight, w io.Writer) *WordCheck {
	p := &WordCheck{
		Base:      xiplugin.NewBaseWithOutput(WordCheckName, w),
		words:     make(map[string]struct{}, len(words)),
		highlight: h,
		inWord:    make(map[string]bool),
	}
	for _, word := range words {
		p.AddWord(word)
	}
	p.Printf("loaded %d words", len(p.words))
	return p
}

// AddWord adds word to the list of known words. Case is ignored.
func (p *WordCheck) AddWord(word string) {
	p.words[strings.ToLower(word)] = struct{}{}
}

// Known returns true if word is in the word list, or has no letters.
func (p *WordCheck) Known(word string) bool {
	word = strings.Trim(word, "\"'()[]{}<>")
	if !strings.ContainsFunc(word, unicode.IsLetter) {
		return true
	}
	_, ok := p.words[strings.ToLower(word)]
	return ok
}

func (p *WordCheck) Initialize(v *xiplugin.View) error {
	p.inWord[v.ID()] = false
	return nil
}

func (p *WordCheck) NewBuffer(v *xiplugin.View) error {
	return p.Initialize(v)
}

func (p *WordCheck) DidClose(viewID string) error {
	delete(p.inWord, viewID)
	return nil
}

func (p *WordCheck) Update(v *xiplugin.View, u *edit.Update) (*edit.Edit, error) {
	if u.Author == p.Identifier() || u.Text == "" {
		return nil, nil
	}

	id := v.ID()
	switch {
	case !p.inWord[id] && util.IsAlphabetic(u.Text):
		p.inWord[id] = true
	case p.inWord[id] && util.EndsWord(u.Text):
		p.inWord[id] = false
		if err := p.check(v, u.Start); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// check marks the word that ends at offset, if it is unknown.
func (p *WordCheck) check(v *xiplugin.View, offset int) error {
	word, err := v.Lines().PreviousWord(offset)
	if err != nil {
		return errors.Wrap(err, "failed to find previous word")
	}
	if word == "" || p.Known(word) {
		return nil
	}

	line, col, err := wordPosition(v.Lines(), offset-len(word))
	if err != nil {
		return errors.Wrap(err, "failed to locate word")
	}
	p.Tracef("unknown word %q at %d:%d in %s", word, line, col, v.ID())

	spans := style.NewSpanSet()
	spans.Add(p.highlight.Span(offset-len(word), offset))
	return v.UpdateSpanSet(spans)
}

// wordPosition returns the 1-based line and screen column of offset.
func wordPosition(lines *linecache.LineCache, offset int) (int, int, error) {
	line, _, err := lines.Locate(offset)
	if err != nil {
		return 0, 0, err
	}
	col, err := lines.DisplayColumn(offset)
	if err != nil {
		return 0, 0, err
	}
	return line + 1, col + 1, nil
}

// Command implements xiplugin.CustomCommander.
func (p *WordCheck) Command(_ *xiplugin.View, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case CommandAddWord:
		var args struct {
			Word string `json:"word"`
		}
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, errors.Wrap(err, "invalid add_word params")
		}
		if args.Word == "" {
			return nil, errors.New("add_word needs a word")
		}
		p.AddWord(args.Word)
		return len(p.words), nil
	default:
		return nil, errors.Errorf("unknown command %s", method)
	}
}
