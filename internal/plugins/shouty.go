package plugins

import (
	"io"
	"strings"

	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/internal/util"
)

const ShoutyName = "shouty"

// Shouty replaces lowercase input with uppercase input.
type Shouty struct {
	xiplugin.Base
}

func NewShouty(w io.Writer) *Shouty {
	return &Shouty{Base: xiplugin.NewBaseWithOutput(ShoutyName, w)}
}

func (p *Shouty) Update(_ *xiplugin.View, u *edit.Update) (*edit.Edit, error) {
	if u.Author == p.Identifier() || !util.IsAlphabetic(u.Text) {
		return nil, nil
	}

	upper := strings.ToUpper(u.Text)
	if upper == u.Text {
		return nil, nil
	}
	// the inserted text now sits at [start, start+new_len)
	return p.NewEdit(u.Rev, u.Start, u.Start+u.NewLen, upper), nil
}
