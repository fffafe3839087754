package plugins

import (
	"fmt"
	"io"
	"strings"

	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/edit"
)

const EchoName = "echo"

// Echo logs the whole buffer after each update. It is mostly useful to
// watch the line cache at work.
type Echo struct {
	xiplugin.Base
}

func NewEcho(w io.Writer) *Echo {
	return &Echo{Base: xiplugin.NewBaseWithOutput(EchoName, w)}
}

func (p *Echo) Update(v *xiplugin.View, u *edit.Update) (*edit.Edit, error) {
	lc := v.Lines()
	n, err := lc.LineCount()
	if err != nil {
		return nil, err
	}

	lines := make([]string, n)
	for i := range lines {
		if lines[i], err = lc.Line(i); err != nil {
			return nil, err
		}
	}

	header := fmt.Sprintf("### BUFFER REV %d LEN %d ###", u.Rev, lc.TotalBytes())
	p.Printf("\n%s\n%s\n%s", header, strings.Join(lines, "\n"), strings.Repeat("#", len(header)))
	return nil, nil
}
