package xiplugin

import (
	"encoding/json"
	"io"

	"github.com/google/btree"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/linecache"
	"github.com/xi-editor/xi-plugin-go/rpc"
)

// These are the methods the core may invoke on a plugin.
const (
	MethodInitialize    = "initialize"
	MethodNewBuffer     = "new_buffer"
	MethodDidSave       = "did_save"
	MethodDidClose      = "did_close"
	MethodUpdate        = "update"
	MethodPing          = "ping"
	MethodShutdown      = "shutdown"
	MethodCustomCommand = "custom_command"
)

// These are the methods a plugin may invoke on the core.
const (
	coreGetData       = "get_data"
	coreGetSelections = "get_selections"
	coreUpdateSpans   = "update_spans"
	coreAddScopes     = "add_scopes"
	coreEdit          = "edit"
)

// Plugin receives the events of the buffer it is attached to.
type Plugin interface {
	// Initialize is called once the first buffer is available.
	Initialize(*View) error

	// Update is called after an edit has been applied to the view's
	// buffer. It may return an edit to make in response, or nil.
	Update(*View, *edit.Update) (*edit.Edit, error)

	// DidSave is called when the buffer has been saved, possibly
	// under a new path.
	DidSave(v *View, oldPath string) error

	// Shutdown is called before the plugin exits.
	Shutdown()
}

// GlobalPlugin is a Plugin that can be attached to several buffers.
type GlobalPlugin interface {
	Plugin
	NewBuffer(*View) error
	DidClose(viewID string) error
}

// CustomCommander is a Plugin that accepts commands of its own. v may be
// nil if the command did not name a view.
type CustomCommander interface {
	Command(v *View, method string, params json.RawMessage) (interface{}, error)
}

// BufferInfo describes a buffer the plugin is attached to.
type BufferInfo struct {
	BufferID int             `json:"buffer_id"`
	Views    []string        `json:"views"`
	Rev      int             `json:"rev"`
	BufSize  int             `json:"buf_size"`
	NbLines  int             `json:"nb_lines"`
	Path     string          `json:"path,omitempty"`
	Syntax   string          `json:"syntax"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Selection is a selected region in a view. A selection with an empty
// range is a caret.
type Selection struct {
	Start int
	End   int
}

// CoreProxy wraps the methods the core exposes to plugins.
type CoreProxy struct {
	peer     *rpc.Peer
	pluginID int
}

// Buffer holds the state shared by all views of a buffer.
type Buffer struct {
	id      int
	path    string
	syntax  string
	nbLines int
	views   []string
	lines   *linecache.LineCache
	core    *CoreProxy
}

// View is a view into a buffer.
type View struct {
	id  string
	buf *Buffer
}

// Host receives raw messages from the core, keeps track of views and their
// caches, and calls the plugin.
type Host struct {
	plugin    Plugin
	core      *CoreProxy
	views     *btree.BTree
	fetchSize int
	log       io.Writer
}

// HostOption configures a Host.
type HostOption func(*Host)
