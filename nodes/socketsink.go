package nodes

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// SocketSinkNode is a sink node (zero outputs) that streams every value it
// receives over a Socket.IO client connection, emitted as EmitEvent. It
// generalizes "push one step's final output" to "push every dispatch
// pass's output": the connection opens once, at Open, and stays live for
// as many Forward calls as the graph makes before Close.
type SocketSinkNode struct {
	URL                string
	Namespace          string
	EmitEvent          string
	InsecureSkipVerify bool

	manager   *socket.Manager
	io        *socket.Socket
	connected atomic.Bool
}

// Open parses URL and opens the underlying Socket.IO connection. It does
// not block waiting for the handshake to complete; Forward silently drops
// values emitted before "connect" fires.
func (s *SocketSinkNode) Open() error {
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("socketsink: parsing url: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	opts := socket.DefaultOptions()
	opts.SetPath(parsed.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if s.InsecureSkipVerify {
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	s.manager = socket.NewManager(baseURL, opts)
	s.io = s.manager.Socket(s.Namespace, opts)
	s.connected.Store(false)

	s.io.On(types.EventName("connect"), func(...any) {
		s.connected.Store(true)
	})
	s.io.On(types.EventName("disconnect"), func(...any) {
		s.connected.Store(false)
	})

	s.io.Connect()
	return nil
}

// Close disconnects the socket.
func (s *SocketSinkNode) Close() {
	if s.io != nil {
		s.io.Disconnect()
	}
}

// Forward emits v as EmitEvent if currently connected. It declares no
// return value: a sink never writes its own output slot.
func (s *SocketSinkNode) Forward(v any) {
	if s.io == nil || !s.connected.Load() {
		return
	}
	s.io.Emit(s.EmitEvent, v)
}

func init() {
	if err := methodreg.Register[SocketSinkNode]("Open", "Close", "Forward"); err != nil {
		panic(err)
	}
}

// RegisterSocketSinkNode installs "socket_sink" in f: params "url"
// (default ""), "namespace" (default "/"), "emit_event" (default
// "message"), and "insecure_skip_verify" (default false).
func RegisterSocketSinkNode(f *nodefactory.Factory) error {
	return f.Register("socket_sink", []nodefactory.ParamSpec{
		{Name: "url", Default: ""},
		{Name: "namespace", Default: "/"},
		{Name: "emit_event", Default: "message"},
		{Name: "insecure_skip_verify", Default: false},
	}, func(resolved map[string]any) (any, error) {
		return &SocketSinkNode{
			URL:                nodefactory.Extract(resolved, "url", ""),
			Namespace:          nodefactory.Extract(resolved, "namespace", "/"),
			EmitEvent:          nodefactory.Extract(resolved, "emit_event", "message"),
			InsecureSkipVerify: nodefactory.Extract(resolved, "insecure_skip_verify", false),
		}, nil
	})
}
