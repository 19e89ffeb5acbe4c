package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/protocol"
)

// Serve accepts connections on ln until ctx is cancelled, running one
// session loop per connection. It returns once the accept loop and every
// in-flight session has exited. readTimeout bounds the idle time between
// packets on a connection before it is dropped; zero disables it.
func Serve(ctx context.Context, ln net.Listener, registry *ClientRegistry, players *player.Registry, readTimeout time.Duration) error {
	go func() {
		<-ctx.Done()
		registry.ShutdownAll()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptLoop(ctx, &wg, ln, registry, players, readTimeout)
	}()
	wg.Wait()

	registry.WaitForEmpty()
	return nil
}

func acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener, registry *ClientRegistry, players *player.Registry, readTimeout time.Duration) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			slog.Error("accept failed", "error", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConnection(conn, registry, players, readTimeout)
		}()
	}
}

// handleConnection registers a Client, runs the packet dispatch loop
// until EOF or an unrecognized packet type, then logs out and
// unregisters the client.
func handleConnection(conn net.Conn, registry *ClientRegistry, players *player.Registry, readTimeout time.Duration) {
	defer conn.Close()

	c, err := registry.Register(conn)
	if err != nil {
		slog.Warn("rejecting connection, registry at capacity", "remote", conn.RemoteAddr())
		return
	}
	defer func() {
		c.Logout()
		registry.Unregister(c)
	}()

	slog.Debug("client connected", "remote", conn.RemoteAddr())

	for {
		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		pkt, err := protocol.Recv(conn)
		if err != nil {
			slog.Debug("session read error", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		if pkt.Type == protocol.TypeNone {
			return
		}
		if !dispatch(c, pkt, registry, players) {
			return
		}
	}
}

// dispatch runs pkt's operation against c, sending exactly one ACK or
// NACK in response. It returns false if the session should terminate
// (an unrecognized packet type).
func dispatch(c *Client, pkt protocol.Packet, registry *ClientRegistry, players *player.Registry) bool {
	switch pkt.Type {
	case protocol.TypeLogin:
		err := c.Login(string(pkt.Payload), players)
		ack(c, pkt.ID, pkt.Role, nil, err)

	case protocol.TypeUsers:
		ack(c, pkt.ID, pkt.Role, usersListing(registry.AllPlayers()), nil)

	case protocol.TypeInvite:
		sourceID, err := c.MakeInvitation(string(pkt.Payload), pkt.Role.Other(), pkt.Role, registry)
		if err != nil {
			ack(c, pkt.ID, pkt.Role, nil, err)
		} else {
			ack(c, uint8(sourceID), pkt.Role, nil, nil)
		}

	case protocol.TypeRevoke:
		ack(c, pkt.ID, pkt.Role, nil, c.Revoke(int(pkt.ID)))

	case protocol.TypeDecline:
		ack(c, pkt.ID, pkt.Role, nil, c.Decline(int(pkt.ID)))

	case protocol.TypeAccept:
		payload, err := c.Accept(int(pkt.ID))
		ack(c, pkt.ID, pkt.Role, payload, err)

	case protocol.TypeMove:
		ack(c, pkt.ID, pkt.Role, nil, c.MakeMove(int(pkt.ID), string(pkt.Payload)))

	case protocol.TypeResign:
		ack(c, pkt.ID, pkt.Role, nil, c.Resign(int(pkt.ID)))

	default:
		return false
	}
	return true
}

// ack sends an ACK (with optional payload) on success or a NACK on
// failure, in response to a request carrying id.
func ack(c *Client, id uint8, role protocol.Role, payload []byte, err error) {
	if err != nil {
		slog.Debug("operation failed", "error", err)
		c.Send(protocol.New(protocol.TypeNACK, id, role, []byte(err.Error())))
		return
	}
	c.Send(protocol.New(protocol.TypeACK, id, role, payload))
}
