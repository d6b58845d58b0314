// Package websocket carries one packet per binary websocket message.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ReadWriter implements sink.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket server.
func Dial(url, origin string) (*ReadWriter, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Broadcaster is an http.Handler accepting websocket clients, and a
// PacketWriter sending every packet to all connected clients.
// A client failing a write is disconnected.
type Broadcaster struct {
	lock    sync.Mutex
	clients map[*websocket.Conn]chan struct{}
	server  websocket.Server
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{clients: make(map[*websocket.Conn]chan struct{})}
	b.server.Handler = b.serve
	return b
}

// ServeHTTP implements http.Handler.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.server.ServeHTTP(w, r)
}

// NumClients gets the number of connected clients.
func (b *Broadcaster) NumClients() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.clients)
}

// WritePacket implements PacketWriter. It never fails, the packet is
// simply lost when there are no clients.
func (b *Broadcaster) WritePacket(pkt []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for conn, done := range b.clients {
		if err := websocket.Message.Send(conn, pkt); err != nil {
			glog.Warningf("websocket %s: %v", conn.Request().RemoteAddr, err)
			delete(b.clients, conn)
			close(done)
		}
	}
	return nil
}

func (b *Broadcaster) serve(conn *websocket.Conn) {
	done := make(chan struct{})
	b.lock.Lock()
	b.clients[conn] = done
	b.lock.Unlock()
	glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)

	// clients are not expected to send anything, reading only detects close.
	go func() {
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		b.lock.Lock()
		if _, ok := b.clients[conn]; ok {
			delete(b.clients, conn)
			close(done)
		}
		b.lock.Unlock()
	}()
	<-done
	glog.Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
}
