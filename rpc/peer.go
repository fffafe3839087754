package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	pdebug "github.com/lestrrat-go/pdebug"
	"github.com/pkg/errors"
)

// NewPeer creates a new Peer reading messages from in and writing them to
// out. Nothing is read until Loop or Call is invoked.
func NewPeer(h Handler, in io.Reader, out io.Writer) *Peer {
	return &Peer{
		handler:  h,
		in:       bufio.NewReader(in),
		out:      out,
		errlog:   os.Stderr,
		incoming: make(chan input),
		done:     make(chan struct{}),
	}
}

// SetErrorLog sets where failed notifications are reported. The default
// is stderr.
func (p *Peer) SetErrorLog(w io.Writer) {
	p.errlog = w
}

// Fatal marks err as fatal: when returned by a Handler, the peer stops and
// Loop returns it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err}
}

// IsFatal returns true if err was marked with Fatal.
func IsFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}

func (e fatalError) Unwrap() error {
	return e.error
}

// Stop makes Loop return. It is safe to call more than once, and from
// other goroutines.
func (p *Peer) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// Done returns a channel that is closed once the peer is stopped.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) startReader() {
	p.readOnce.Do(func() { go p.readLoop() })
}

func (p *Peer) readLoop() {
	defer close(p.incoming)
	for {
		buf, err := p.in.ReadBytes('\n')
		if len(bytes.TrimSpace(buf)) > 0 {
			select {
			case p.incoming <- input{buf: buf}:
			case <-p.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case p.incoming <- input{err: err}:
				case <-p.done:
				}
			}
			return
		}
	}
}

// next blocks until the next message arrives. It returns ErrClosed once
// the input is exhausted.
func (p *Peer) next() (*Message, error) {
	in, ok := <-p.incoming
	if !ok {
		return nil, ErrClosed
	}
	if in.err != nil {
		return nil, errors.Wrap(in.err, "failed to read message")
	}
	return ParseMessage(in.buf)
}

func (p *Peer) send(buf []byte) error {
	if _, err := p.out.Write(append(buf, '\n')); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	if f, ok := p.out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return errors.Wrap(err, "failed to flush output")
		}
	}
	return nil
}

// Notify sends a notification. It does not wait for anything.
func (p *Peer) Notify(method string, params interface{}) error {
	buf, err := encodeRequest(nil, method, params)
	if err != nil {
		return err
	}
	return p.send(buf)
}

// Call sends a request, and blocks until the matching response arrives.
// The result is unmarshaled into result, unless it is nil. Messages that
// arrive in the meantime are queued, and dispatched by Loop later.
//
// Calls cannot be cancelled.
func (p *Peer) Call(method string, params interface{}, result interface{}) (err error) {
	id := p.nextID
	p.nextID++
	if pdebug.Enabled {
		g := pdebug.Marker("Peer.Call (method=%s, id=%d)", method, id).BindError(&err)
		defer g.End()
	}

	buf, err := encodeRequest(&id, method, params)
	if err != nil {
		return err
	}

	p.startReader()
	if err := p.send(buf); err != nil {
		return err
	}

	for {
		m, err := p.next()
		if err != nil {
			return errors.Wrapf(err, "waiting for response to %s", method)
		}

		if !m.IsResponse() {
			p.pending = append(p.pending, m)
			continue
		}

		if *m.ID != id {
			return errors.Wrapf(ErrUnexpectedResponse, "waiting for %d, got %d", id, *m.ID)
		}
		if len(m.Error) > 0 {
			return remoteError(method, m.Error)
		}
		if result != nil && len(m.Result) > 0 {
			if err := json.Unmarshal(m.Result, result); err != nil {
				return errors.Wrapf(err, "failed to decode result of %s", method)
			}
		}
		return nil
	}
}

// Loop reads and dispatches incoming messages until the input ends, the
// peer is stopped, ctx is done, or a handler returns a fatal error.
func (p *Peer) Loop(ctx context.Context) error {
	p.startReader()
	for {
		for len(p.pending) > 0 {
			m := p.pending[0]
			p.pending = p.pending[1:]
			if err := p.dispatch(m); err != nil {
				return err
			}
			select {
			case <-p.done:
				return nil
			default:
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case in, ok := <-p.incoming:
			if !ok {
				return nil
			}
			if in.err != nil {
				return errors.Wrap(in.err, "failed to read message")
			}
			m, err := ParseMessage(in.buf)
			if err != nil {
				return err
			}
			if m.IsResponse() {
				return errors.Wrapf(ErrUnexpectedResponse, "id %d", *m.ID)
			}
			p.pending = append(p.pending, m)
		}
	}
}

func (p *Peer) dispatch(m *Message) (err error) {
	if pdebug.Enabled {
		g := pdebug.Marker("Peer.dispatch (method=%s)", m.Method).BindError(&err)
		defer g.End()
	}

	result, herr := p.handler.HandleRPC(p, m)

	if m.IsNotification() {
		if herr != nil {
			if IsFatal(herr) {
				return herr
			}
			fmt.Fprintf(p.errlog, "notification %s failed: %s\n", m.Method, herr)
			return nil
		}
		if result != nil {
			return errors.Errorf("unexpected return value for notification %s", m.Method)
		}
		return nil
	}

	buf, err := encodeResponse(*m.ID, result, herr)
	if err != nil {
		return err
	}
	if err := p.send(buf); err != nil {
		return err
	}
	if IsFatal(herr) {
		return herr
	}
	return nil
}
