package session

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jeux/server/internal/player"
)

// ClientRegistry is a bounded, ordered collection of live clients.
type ClientRegistry struct {
	mu           sync.Mutex
	capacity     int
	writeTimeout time.Duration
	nextSeq      uint64
	order        []uint64
	clients      map[uint64]*Client
	empty        *sync.Cond
}

// NewClientRegistry creates a registry holding at most capacity clients.
// writeTimeout bounds every outbound packet write on a registered client
// (see Client.Send); a non-positive value falls back to defaultWriteTimeout.
func NewClientRegistry(capacity int, writeTimeout time.Duration) *ClientRegistry {
	r := &ClientRegistry{capacity: capacity, writeTimeout: writeTimeout, clients: make(map[uint64]*Client)}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// Register creates and tracks a new Client for conn, or fails if the
// registry is at capacity.
func (r *ClientRegistry) Register(conn net.Conn) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= r.capacity {
		return nil, fmt.Errorf("client registry at capacity (%d)", r.capacity)
	}

	r.nextSeq++
	c := newClient(r.nextSeq, conn, r.writeTimeout)
	r.clients[c.seq] = c
	r.order = append(r.order, c.seq)
	return c, nil
}

// Unregister removes c from the registry.
func (r *ClientRegistry) Unregister(c *Client) {
	r.mu.Lock()
	delete(r.clients, c.seq)
	for i, seq := range r.order {
		if seq == c.seq {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		r.empty.Broadcast()
	}
}

// Lookup returns the first registered client whose bound player's name
// matches name.
func (r *ClientRegistry) Lookup(name string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, seq := range r.order {
		c := r.clients[seq]
		if p := c.Player(); p != nil && p.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// AllPlayers returns a snapshot of every currently-bound player.
func (r *ClientRegistry) AllPlayers() []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*player.Player, 0, len(r.clients))
	for _, seq := range r.order {
		if p := r.clients[seq].Player(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// AtCapacity reports whether the registry currently holds capacity
// clients.
func (r *ClientRegistry) AtCapacity() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients) >= r.capacity
}

// ShutdownAll closes the read half of every registered client's
// connection, unblocking their session loops with EOF.
func (r *ClientRegistry) ShutdownAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, seq := range r.order {
		clients = append(clients, r.clients[seq])
	}
	r.mu.Unlock()

	for _, c := range clients {
		_ = c.closeRead()
	}
}

// WaitForEmpty blocks until no clients remain registered.
func (r *ClientRegistry) WaitForEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.clients) > 0 {
		r.empty.Wait()
	}
}
