package xiplugin

import (
	"io"
	"log"
	"os"
	"strconv"

	"github.com/xi-editor/xi-plugin-go/edit"
)

// Base implements every Plugin method as a no-op, and provides logging.
// Embed it in plugins, and override what is needed.
type Base struct {
	name   string
	logger *log.Logger
}

// NewBase creates a Base for a plugin called name. Output goes to stderr,
// since stdout is used to talk to the core.
func NewBase(name string) Base {
	return NewBaseWithOutput(name, os.Stderr)
}

// NewBaseWithOutput is like NewBase, but logs to w.
func NewBaseWithOutput(name string, w io.Writer) Base {
	return Base{
		name:   name,
		logger: log.New(w, "PLUGIN "+name+">>> ", 0),
	}
}

// Identifier returns the name of the plugin, used as the author of its
// edits.
func (b Base) Identifier() string {
	return b.name
}

// Printf logs a message.
func (b Base) Printf(f string, args ...interface{}) {
	if b.logger == nil {
		return
	}
	b.logger.Printf(f, args...)
}

// Tracef logs a message only if XI_PLUGIN_TRACE is set.
func (b Base) Tracef(f string, args ...interface{}) {
	if tracing {
		b.Printf(f, args...)
	}
}

var tracing bool

func init() {
	if v, err := strconv.ParseBool(os.Getenv("XI_PLUGIN_TRACE")); err == nil && v {
		tracing = true
	}
}

// NewEdit creates an edit authored by this plugin.
func (b Base) NewEdit(rev, start, end int, text string) *edit.Edit {
	return edit.NewReplace(b.name, rev, start, end, text)
}

func (b Base) Initialize(*View) error { return nil }

func (b Base) Update(*View, *edit.Update) (*edit.Edit, error) { return nil, nil }

func (b Base) DidSave(*View, string) error { return nil }

func (b Base) Shutdown() {}
