package server

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Conn is the item type the queue carries from the accept loop to a
// worker. The queue treats it as opaque; only the receiving worker's read
// loop touches the underlying connection.
type Conn struct {
	ID         string
	netConn    net.Conn
	acceptedAt time.Time
}

func newConn(nc net.Conn) *Conn {
	return &Conn{
		ID:         uuid.NewString(),
		netConn:    nc,
		acceptedAt: time.Now(),
	}
}

func (c *Conn) Close() error {
	return c.netConn.Close()
}
