// Package session implements the per-connection Client, its bound
// Invitations, and the registry that tracks every live connection.
package session

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/protocol"
)

// defaultWriteTimeout applies when a registry is constructed with a
// non-positive write timeout.
const defaultWriteTimeout = 5 * time.Second

// Client is a server-side session object for one TCP connection. writeMu
// serializes outbound packets on conn; mu guards the bound player and
// the per-client invitation slot table.
type Client struct {
	seq          uint64
	conn         net.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	mu          sync.Mutex
	player      *player.Player
	invitations []*Invitation
}

func newClient(seq uint64, conn net.Conn, writeTimeout time.Duration) *Client {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Client{seq: seq, conn: conn, writeTimeout: writeTimeout}
}

// Send writes p to this client's connection. Write failures (a
// disconnected peer) are logged and otherwise ignored: per spec, a
// dropped peer notification never fails the local operation that sent it.
func (c *Client) Send(p protocol.Packet) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := protocol.Send(c.conn, p); err != nil {
		slog.Debug("send failed, peer likely gone", "error", err)
	}
}

// Player returns the bound player, or nil if not logged in.
func (c *Client) Player() *player.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// Login binds name's player to this client. Fails if already bound.
func (c *Client) Login(name string, players *player.Registry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		return fmt.Errorf("client already logged in as %q", c.player.Name())
	}
	c.player = players.GetOrCreate(name)
	return nil
}

// Logout walks this client's invitation list, closing each one (resigning
// any in-progress game, else revoking or declining), notifying the peer,
// then unbinds the player. It tolerates invitations the peer has already
// closed concurrently.
func (c *Client) Logout() {
	for _, inv := range c.snapshotInvitations() {
		role, peer, peerID, ok := inv.roleAndPeer(c)
		if !ok {
			continue
		}

		_, hasGame := inv.activeGame()

		var closeRole protocol.Role
		var notify protocol.Type
		switch {
		case hasGame:
			closeRole, notify = role, protocol.TypeResigned
		case inv.source == c:
			closeRole, notify = protocol.RoleNull, protocol.TypeRevoked
		default:
			closeRole, notify = protocol.RoleNull, protocol.TypeDeclined
		}

		if err := inv.close(closeRole); err != nil {
			continue // already closed by a concurrent peer action
		}
		if hasGame {
			postGameResult(inv, role.Other())
		}
		detachInvitation(inv)
		peer.Send(protocol.New(notify, uint8(peerID), protocol.RoleNull, nil))
	}

	c.mu.Lock()
	c.player = nil
	c.invitations = nil
	c.mu.Unlock()
}

func (c *Client) appendInvitation(inv *Invitation) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invitations = append(c.invitations, inv)
	return len(c.invitations) - 1
}

func (c *Client) lookupInvitation(id int) (*Invitation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id < 0 || id >= len(c.invitations) || c.invitations[id] == nil {
		return nil, false
	}
	return c.invitations[id], true
}

func (c *Client) snapshotInvitations() []*Invitation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Invitation, 0, len(c.invitations))
	for _, inv := range c.invitations {
		if inv != nil {
			out = append(out, inv)
		}
	}
	return out
}

// closeRead half-closes the connection's read side so a blocked Recv
// returns EOF, used by the registry's shutdown broadcast. Falls back to
// a full close for connections (e.g. in tests) that don't support it.
func (c *Client) closeRead() error {
	if cr, ok := c.conn.(interface{ CloseRead() error }); ok {
		return cr.CloseRead()
	}
	return c.conn.Close()
}
