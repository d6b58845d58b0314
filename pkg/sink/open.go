package sink

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/robotalks/ringblk/pkg/sink/mqtt"
	"github.com/robotalks/ringblk/pkg/sink/stream"
	"github.com/robotalks/ringblk/pkg/sink/websocket"
)

type mqttWriter struct {
	*mqtt.Writer
}

func (w *mqttWriter) Close() error {
	return w.Queue.Close()
}

type nopCloser struct {
	PacketWriter
}

func (nopCloser) Close() error {
	return nil
}

// Open creates a PacketWriter from URL:
//
//	-                       length prefixed on stdout
//	file:///path            length prefixed into a file
//	tcp://host:port         length prefixed over TCP
//	ws://host:port/path     websocket messages
//	mqtt://host:port/prefix publish to prefix + topic
func Open(sinkURL, topic string) (PacketWriteCloser, error) {
	if sinkURL == "-" {
		return nopCloser{stream.NewWriter(os.Stdout)}, nil
	}
	u, err := url.Parse(sinkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "file":
		f, err := os.OpenFile(u.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		return stream.NewWriter(f), nil
	case "tcp", "unix":
		addr := u.Host
		if u.Scheme == "unix" {
			addr = u.Path
		}
		conn, err := net.Dial(u.Scheme, addr)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "ws", "wss":
		rw, err := websocket.Dial(sinkURL, "")
		if err != nil {
			return nil, err
		}
		return rw, nil
	case "mqtt", "mqtts":
		q, err := mqtt.NewQueueFromURL(sinkURL)
		if err != nil {
			return nil, err
		}
		if err = q.Connect(); err != nil {
			return nil, err
		}
		return &mqttWriter{mqtt.NewWriter(q, topic)}, nil
	}
	return nil, fmt.Errorf("unsupported sink %q", sinkURL)
}
