package session

import (
	"net"

	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/protocol"
)

func newTestPlayerRegistry() *player.Registry {
	return player.NewRegistry()
}

// drain reads and discards packets from conn in the background until it
// errors or is closed, so writes on the other end of a net.Pipe (which is
// unbuffered and synchronous) never block a test.
func drain(conn net.Conn) {
	go func() {
		for {
			if _, err := protocol.Recv(conn); err != nil {
				return
			}
		}
	}()
}
