package session

import (
	"fmt"
	"sync"

	"github.com/jeux/server/internal/game"
	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/protocol"
)

type invState int

const (
	invOpen invState = iota
	invAccepted
	invClosed
)

// Invitation binds a source and target Client to a pair of distinct game
// roles, and, once accepted, a Game. sourceID/targetID are each
// participant's local slot index for this invitation; they are assigned
// once at creation and never change.
type Invitation struct {
	source, target         *Client
	sourceRole, targetRole protocol.Role
	sourceID, targetID     int

	mu    sync.Mutex
	state invState
	game  *game.Game
}

func newInvitation(source, target *Client, sourceRole, targetRole protocol.Role) *Invitation {
	return &Invitation{source: source, target: target, sourceRole: sourceRole, targetRole: targetRole}
}

// roleAndPeer returns c's role in this invitation, the other participant,
// and that participant's local slot id for this invitation. ok is false
// if c is neither participant.
func (inv *Invitation) roleAndPeer(c *Client) (role protocol.Role, peer *Client, peerID int, ok bool) {
	switch c {
	case inv.source:
		return inv.sourceRole, inv.target, inv.targetID, true
	case inv.target:
		return inv.targetRole, inv.source, inv.sourceID, true
	default:
		return protocol.RoleNull, nil, 0, false
	}
}

// accept transitions OPEN → ACCEPTED, creating a fresh Game.
func (inv *Invitation) accept() (*game.Game, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != invOpen {
		return nil, fmt.Errorf("invitation not open")
	}
	inv.game = game.New()
	inv.state = invAccepted
	return inv.game, nil
}

// activeGame returns the invitation's game and whether it is presently
// ACCEPTED (i.e. has a live game).
func (inv *Invitation) activeGame() (*game.Game, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.game, inv.state == invAccepted
}

// close transitions toward CLOSED. With role == RoleNull it is a
// revoke/decline, valid only while OPEN. With a non-null role it resigns
// the game on that role's behalf, valid only while ACCEPTED. CLOSED is
// terminal; any close on it fails.
func (inv *Invitation) close(role protocol.Role) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	switch inv.state {
	case invClosed:
		return fmt.Errorf("invitation already closed")
	case invOpen:
		if role != protocol.RoleNull {
			return fmt.Errorf("no game in progress to resign")
		}
		inv.state = invClosed
		return nil
	default: // invAccepted
		if role == protocol.RoleNull {
			return fmt.Errorf("game in progress")
		}
		inv.game.Resign(role)
		inv.state = invClosed
		return nil
	}
}

// closeFinished transitions ACCEPTED → CLOSED after the game has ended
// on its own (a win or draw), without touching the game's result.
func (inv *Invitation) closeFinished() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != invAccepted {
		return fmt.Errorf("invitation not accepted")
	}
	inv.state = invClosed
	return nil
}

// lockClientsOrdered locks the two clients in a stable order derived from
// their registration sequence, so concurrent operations on the same pair
// of clients never deadlock. Returns an unlock function.
func lockClientsOrdered(a, b *Client) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.seq < first.seq {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// detachInvitation removes inv from both participants' invitation slot
// tables (without compacting; the slot itself stays, now empty). Returns
// whether each side's slot still held inv immediately before removal.
func detachInvitation(inv *Invitation) (sourceHad, targetHad bool) {
	unlock := lockClientsOrdered(inv.source, inv.target)
	defer unlock()

	if inv.source.invitations[inv.sourceID] == inv {
		inv.source.invitations[inv.sourceID] = nil
		sourceHad = true
	}
	if inv.target.invitations[inv.targetID] == inv {
		inv.target.invitations[inv.targetID] = nil
		targetHad = true
	}
	return sourceHad, targetHad
}

// postGameResult applies a finished game's outcome to both participants'
// ratings, from the perspective of winner (RoleNull means a draw).
func postGameResult(inv *Invitation, winner protocol.Role) {
	sp, tp := inv.source.Player(), inv.target.Player()
	if sp == nil || tp == nil {
		return
	}

	var outcome player.Outcome
	switch winner {
	case inv.sourceRole:
		outcome = player.Win
	case inv.targetRole:
		outcome = player.Loss
	default:
		outcome = player.Draw
	}
	player.PostResult(sp, tp, outcome)
}
