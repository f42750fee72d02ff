package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Listen creates a listener for the given transport and address.
//
// transport is "tcp" for a plain stream socket, or "ws" for WebSocket
// framing behind an HTTP upgrade — for deployments sitting behind an
// HTTP-terminating load balancer that cannot pass through raw TCP.
func Listen(transport, addr string) (net.Listener, error) {
	switch strings.ToLower(transport) {
	case "tcp", "":
		return net.Listen("tcp", addr)
	case "ws":
		return newWSListener(addr)
	default:
		return nil, fmt.Errorf("server: unsupported transport: %s", transport)
	}
}

// wsListener implements net.Listener by running an HTTP server that
// upgrades every request to a WebSocket and hands the resulting
// connection to Accept.
type wsListener struct {
	connCh    chan net.Conn
	errCh     chan error
	closeOnce sync.Once
	closeCh   chan struct{}
	server    *http.Server
	ln        net.Listener
	upgrader  websocket.Upgrader
}

func newWSListener(addr string) (*wsListener, error) {
	l := &wsListener{
		connCh:  make(chan net.Conn, 100),
		errCh:   make(chan error, 1),
		closeCh: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)
	l.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l.ln = ln

	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case l.errCh <- err:
			default:
			}
		}
	}()

	return l, nil
}

func (l *wsListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &wsConn{ws: ws}
	select {
	case l.connCh <- conn:
	case <-l.closeCh:
		conn.Close()
	}
}

func (l *wsListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case err := <-l.errCh:
		return nil, err
	case <-l.closeCh:
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.server.Close()
	})
	return nil
}

func (l *wsListener) Addr() net.Addr { return l.ln.Addr() }

var _ net.Listener = (*wsListener)(nil)
