// Package xiplugin lets xi plugins be written in Go. The Host speaks the
// plugin protocol with the core, keeps a cache of every buffer the plugin
// is attached to, and calls the Plugin as events arrive.
package xiplugin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/btree"
	pdebug "github.com/lestrrat-go/pdebug"
	"github.com/pkg/errors"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/linecache"
	"github.com/xi-editor/xi-plugin-go/rpc"
)

// WithFetchSize sets how much data buffer caches request from the core at
// a time.
func WithFetchSize(n int) HostOption {
	return func(h *Host) {
		h.fetchSize = n
	}
}

// WithLog sets where the host reports problems that are not sent back to
// the core. Defaults to os.Stderr.
func WithLog(w io.Writer) HostOption {
	return func(h *Host) {
		h.log = w
	}
}

// NewHost creates a Host for p.
func NewHost(p Plugin, options ...HostOption) *Host {
	h := &Host{
		plugin:    p,
		views:     btree.New(32),
		fetchSize: linecache.DefaultFetchSize,
		log:       os.Stderr,
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Run serves p over in and out until the core shuts the plugin down, the
// input ends, or ctx is done.
func Run(ctx context.Context, p Plugin, in io.Reader, out io.Writer, options ...HostOption) error {
	h := NewHost(p, options...)
	peer := rpc.NewPeer(h, in, out)
	peer.SetErrorLog(h.log)
	if err := peer.Loop(ctx); err != nil {
		return errors.Wrap(err, "plugin main loop failed")
	}
	return nil
}

// View returns the view with the given id, or nil.
func (h *Host) View(id string) *View {
	it := h.views.Get(&View{id: id})
	if it == nil {
		return nil
	}
	return it.(*View)
}

// Views returns all views, ordered by id.
func (h *Host) Views() []*View {
	views := make([]*View, 0, h.views.Len())
	h.views.Ascend(func(it btree.Item) bool {
		views = append(views, it.(*View))
		return true
	})
	return views
}

func (h *Host) mustView(id string) (*View, error) {
	v := h.View(id)
	if v == nil {
		return nil, errors.Errorf("unknown view %q", id)
	}
	return v, nil
}

func (h *Host) printf(f string, args ...interface{}) {
	fmt.Fprintf(h.log, f+"\n", args...)
}

// HandleRPC implements rpc.Handler.
func (h *Host) HandleRPC(peer *rpc.Peer, m *rpc.Message) (result interface{}, err error) {
	if pdebug.Enabled {
		g := pdebug.Marker("Host.HandleRPC (method=%s)", m.Method).BindError(&err)
		defer g.End()
	}

	switch m.Method {
	case MethodInitialize:
		return nil, h.initialize(peer, m)
	case MethodNewBuffer:
		return nil, h.newBuffer(m)
	case MethodDidSave:
		return nil, h.didSave(m)
	case MethodDidClose:
		return nil, h.didClose(m)
	case MethodUpdate:
		return h.update(m)
	case MethodPing:
		return nil, nil
	case MethodShutdown:
		h.plugin.Shutdown()
		peer.Stop()
		return nil, nil
	case MethodCustomCommand:
		return h.customCommand(m)
	default:
		h.printf("plugin has no handler for method %s", m.Method)
		if m.IsNotification() {
			return nil, nil
		}
		return nil, errors.Errorf("unknown method %s", m.Method)
	}
}

func (h *Host) addBuffers(infos []BufferInfo) ([]*View, error) {
	firsts := make([]*View, 0, len(infos))
	for _, info := range infos {
		if len(info.Views) == 0 {
			return nil, errors.Errorf("buffer %d has no views", info.BufferID)
		}
		buf := newBuffer(h.core, info, h.fetchSize)
		for _, id := range info.Views {
			h.views.ReplaceOrInsert(&View{id: id, buf: buf})
		}
		firsts = append(firsts, h.View(info.Views[0]))
	}
	return firsts, nil
}

func (h *Host) initialize(peer *rpc.Peer, m *rpc.Message) error {
	var params struct {
		PluginID   int          `json:"plugin_id"`
		BufferInfo []BufferInfo `json:"buffer_info"`
	}
	if err := m.DecodeParams(&params); err != nil {
		return err
	}

	_, global := h.plugin.(GlobalPlugin)
	if !global && len(params.BufferInfo) != 1 {
		return errors.Errorf("plugin expects a single buffer, got %d", len(params.BufferInfo))
	}

	h.core = NewCoreProxy(peer, params.PluginID)
	views, err := h.addBuffers(params.BufferInfo)
	if err != nil {
		return err
	}
	for _, v := range views {
		if err := h.plugin.Initialize(v); err != nil {
			return errors.Wrapf(err, "failed to initialize plugin for view %s", v.ID())
		}
	}
	return nil
}

func (h *Host) newBuffer(m *rpc.Message) error {
	gp, ok := h.plugin.(GlobalPlugin)
	if !ok {
		return errors.New("new_buffer sent to a plugin that is not global")
	}
	if h.core == nil {
		return errors.New("new_buffer sent before initialize")
	}

	var params struct {
		BufferInfo []BufferInfo `json:"buffer_info"`
	}
	if err := m.DecodeParams(&params); err != nil {
		return err
	}
	views, err := h.addBuffers(params.BufferInfo)
	if err != nil {
		return err
	}
	for _, v := range views {
		if err := gp.NewBuffer(v); err != nil {
			return errors.Wrapf(err, "new_buffer failed for view %s", v.ID())
		}
	}
	return nil
}

func (h *Host) didSave(m *rpc.Message) error {
	var params struct {
		ViewID string `json:"view_id"`
		Path   string `json:"path"`
	}
	if err := m.DecodeParams(&params); err != nil {
		return err
	}
	v, err := h.mustView(params.ViewID)
	if err != nil {
		return err
	}
	oldPath := v.buf.path
	v.buf.path = params.Path
	return h.plugin.DidSave(v, oldPath)
}

func (h *Host) didClose(m *rpc.Message) error {
	var params struct {
		ViewID string `json:"view_id"`
	}
	if err := m.DecodeParams(&params); err != nil {
		return err
	}
	v, err := h.mustView(params.ViewID)
	if err != nil {
		return err
	}
	h.views.Delete(v)
	v.buf.removeView(v.id)

	if gp, ok := h.plugin.(GlobalPlugin); ok {
		return gp.DidClose(v.id)
	}
	return nil
}

// update applies the edit to the view's cache, then lets the plugin react.
// The core expects either an edit or 0 back.
func (h *Host) update(m *rpc.Message) (interface{}, error) {
	var u edit.Update
	if err := m.DecodeParams(&u); err != nil {
		return nil, rpc.Fatal(err)
	}
	v, err := h.mustView(u.ViewID)
	if err != nil {
		return nil, err
	}

	if err := u.Validate(); err != nil {
		return nil, rpc.Fatal(err)
	}
	// A cache that missed an edit no longer matches the buffer.
	if err := v.Lines().ApplyUpdate(u.Rev, u.Start, u.End, u.NewLen, u.Text); err != nil {
		return nil, rpc.Fatal(errors.Wrapf(err, "failed to apply update to view %s", v.id))
	}

	e, err := h.plugin.Update(v, &u)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin failed to handle update rev %d", u.Rev)
	}
	if e == nil {
		return 0, nil
	}
	return e, nil
}

func (h *Host) customCommand(m *rpc.Message) (interface{}, error) {
	cc, ok := h.plugin.(CustomCommander)
	if !ok {
		return nil, errors.New("plugin does not accept custom commands")
	}

	var params struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := m.DecodeParams(&params); err != nil {
		return nil, err
	}

	var v *View
	if id := m.Param("params.view").String(); id != "" {
		v = h.View(id)
	}
	return cc.Command(v, params.Method, params.Params)
}
