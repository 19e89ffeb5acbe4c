package session

import (
	"fmt"

	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/protocol"
)

// MakeInvitation creates an OPEN invitation from c to the player named
// targetName, appends it to both participants' invitation lists, notifies
// the target, and returns the source-local id the caller should ACK with.
func (c *Client) MakeInvitation(targetName string, sourceRole, targetRole protocol.Role, registry *ClientRegistry) (int, error) {
	if c.Player() == nil {
		return 0, fmt.Errorf("not logged in")
	}
	if sourceRole == protocol.RoleNull || targetRole == protocol.RoleNull || sourceRole == targetRole {
		return 0, fmt.Errorf("roles must be distinct and non-null")
	}
	if registry.AtCapacity() {
		return 0, fmt.Errorf("client registry at capacity")
	}

	target, ok := registry.Lookup(targetName)
	if !ok {
		return 0, fmt.Errorf("unknown player %q", targetName)
	}
	if target == c {
		return 0, fmt.Errorf("cannot invite self")
	}
	if target.Player() == nil {
		return 0, fmt.Errorf("target not logged in")
	}

	inv := newInvitation(c, target, sourceRole, targetRole)
	inv.sourceID = c.appendInvitation(inv)
	inv.targetID = target.appendInvitation(inv)

	target.Send(protocol.New(protocol.TypeInvited, uint8(inv.targetID), targetRole, []byte(c.Player().Name())))

	return inv.sourceID, nil
}

// Revoke closes the OPEN invitation id, which must have been created by
// c, and notifies the target unless it has already removed its own slot.
func (c *Client) Revoke(id int) error {
	inv, ok := c.lookupInvitation(id)
	if !ok {
		return fmt.Errorf("unknown invitation %d", id)
	}
	if c.Player() == nil {
		return fmt.Errorf("not logged in")
	}
	if inv.source != c {
		return fmt.Errorf("client did not create invitation %d", id)
	}
	if _, hasGame := inv.activeGame(); hasGame {
		return fmt.Errorf("invitation %d already accepted", id)
	}

	if err := inv.close(protocol.RoleNull); err != nil {
		return err
	}
	_, targetHad := detachInvitation(inv)
	if targetHad {
		inv.target.Send(protocol.New(protocol.TypeRevoked, uint8(inv.targetID), protocol.RoleNull, nil))
	}
	return nil
}

// Decline closes the OPEN invitation id, which must target c, and
// notifies the source unless it has already removed its own slot.
func (c *Client) Decline(id int) error {
	inv, ok := c.lookupInvitation(id)
	if !ok {
		return fmt.Errorf("unknown invitation %d", id)
	}
	if c.Player() == nil {
		return fmt.Errorf("not logged in")
	}
	if inv.target != c {
		return fmt.Errorf("client is not the target of invitation %d", id)
	}
	if _, hasGame := inv.activeGame(); hasGame {
		return fmt.Errorf("invitation %d already accepted", id)
	}

	if err := inv.close(protocol.RoleNull); err != nil {
		return err
	}
	sourceHad, _ := detachInvitation(inv)
	if sourceHad {
		inv.source.Send(protocol.New(protocol.TypeDeclined, uint8(inv.sourceID), protocol.RoleNull, nil))
	}
	return nil
}

// Accept accepts the OPEN invitation id, which must target c, creating a
// Game and notifying the source with an ACCEPTED packet. It returns the
// payload the caller should ACK with: the initial board text if the
// target plays FIRST (so the first-mover, the target itself, gets the
// board through its own ACK), or nil if the source plays FIRST (the
// source's own ACCEPTED packet then carries the board instead). The
// first-mover always receives the initial board so it can move.
func (c *Client) Accept(id int) ([]byte, error) {
	inv, ok := c.lookupInvitation(id)
	if !ok {
		return nil, fmt.Errorf("unknown invitation %d", id)
	}
	if c.Player() == nil {
		return nil, fmt.Errorf("not logged in")
	}
	if inv.target != c {
		return nil, fmt.Errorf("client is not the target of invitation %d", id)
	}

	g, err := inv.accept()
	if err != nil {
		return nil, err
	}
	state := []byte(g.UnparseState())

	if inv.targetRole == protocol.RoleFirst {
		inv.source.Send(protocol.New(protocol.TypeAccepted, uint8(inv.sourceID), inv.sourceRole, nil))
		return state, nil
	}
	inv.source.Send(protocol.New(protocol.TypeAccepted, uint8(inv.sourceID), inv.sourceRole, state))
	return nil, nil
}

// MakeMove applies a move from c's role in invitation id, notifies the
// peer of the new board, and, if the move ends the game, posts the
// rating result, closes and detaches the invitation, and notifies both
// participants.
func (c *Client) MakeMove(id int, text string) error {
	inv, ok := c.lookupInvitation(id)
	if !ok {
		return fmt.Errorf("unknown invitation %d", id)
	}
	if c.Player() == nil {
		return fmt.Errorf("not logged in")
	}
	g, hasGame := inv.activeGame()
	if !hasGame {
		return fmt.Errorf("no game in progress for invitation %d", id)
	}
	role, peer, peerID, ok := inv.roleAndPeer(c)
	if !ok {
		return fmt.Errorf("client is not a participant in invitation %d", id)
	}

	move, err := g.ParseMove(role, text)
	if err != nil {
		return err
	}
	if err := g.ApplyMove(role, move); err != nil {
		return err
	}

	peer.Send(protocol.New(protocol.TypeMoved, uint8(peerID), protocol.RoleNull, []byte(g.UnparseState())))

	if !g.Over() {
		return nil
	}

	winner := g.Winner()
	postGameResult(inv, winner)
	if err := inv.closeFinished(); err != nil {
		return err
	}
	detachInvitation(inv)

	inv.source.Send(protocol.New(protocol.TypeEnded, uint8(inv.sourceID), winner, nil))
	inv.target.Send(protocol.New(protocol.TypeEnded, uint8(inv.targetID), winner, nil))
	return nil
}

// Resign resigns invitation id's game on c's behalf, posts the rating
// result (peer wins), closes and detaches the invitation, and notifies
// the peer.
func (c *Client) Resign(id int) error {
	inv, ok := c.lookupInvitation(id)
	if !ok {
		return fmt.Errorf("unknown invitation %d", id)
	}
	if c.Player() == nil {
		return fmt.Errorf("not logged in")
	}
	if _, hasGame := inv.activeGame(); !hasGame {
		return fmt.Errorf("no game in progress for invitation %d", id)
	}
	role, peer, peerID, ok := inv.roleAndPeer(c)
	if !ok {
		return fmt.Errorf("client is not a participant in invitation %d", id)
	}

	if err := inv.close(role); err != nil {
		return err
	}
	postGameResult(inv, role.Other())
	detachInvitation(inv)

	peer.Send(protocol.New(protocol.TypeResigned, uint8(peerID), protocol.RoleNull, nil))
	return nil
}

// usersListing renders a USERS ACK payload from registry's bound players:
// one "username\trating\n" line per player.
func usersListing(players []*player.Player) []byte {
	var out []byte
	for _, p := range players {
		out = fmt.Appendf(out, "%s\t%g\n", p.Name(), p.Rating())
	}
	return out
}
