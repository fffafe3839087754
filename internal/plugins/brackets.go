package plugins

import (
	"io"

	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/edit"
)

const BracketCloserName = "brackets"

// BracketCloser naively closes opened brackets, parens and braces.
type BracketCloser struct {
	xiplugin.Base
	pairs map[string]string
}

// NewBracketCloser creates a BracketCloser inserting pairs[open] whenever
// open is typed.
func NewBracketCloser(pairs map[string]string, w io.Writer) *BracketCloser {
	return &BracketCloser{
		Base:  xiplugin.NewBaseWithOutput(BracketCloserName, w),
		pairs: pairs,
	}
}

func (p *BracketCloser) Update(_ *xiplugin.View, u *edit.Update) (*edit.Edit, error) {
	if u.Author == p.Identifier() {
		return nil, nil
	}
	closer, ok := p.pairs[u.Text]
	if !ok {
		return nil, nil
	}

	// High priority so that the edit lands after concurrent ones, and to
	// the right of the cursor.
	cursor := u.Start + u.NewLen
	e := p.NewEdit(u.Rev, cursor, cursor, closer).
		WithPriority(edit.PriorityHigh).
		WithAfterCursor(true)
	p.Tracef("closing %q at %d", u.Text, cursor)
	return e, nil
}
