// Package game implements the tic-tac-toe board: turn tracking, legal-move
// checking, win/draw detection, resignation, and a textual rendering of the
// board used as notification payloads.
package game

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jeux/server/internal/protocol"
)

// cell values on the board.
type cell byte

const (
	cellEmpty cell = 0
	cellX     cell = 'X'
	cellO     cell = 'O'
)

const boardSize = 3

// Move is a validated (row, col) position ready to apply.
type Move struct {
	Pos      int // 1..9, as received on the wire
	Row, Col int
}

// Game is a single tic-tac-toe match. All state-mutating operations are
// serialized by mu.
type Game struct {
	mu     sync.Mutex
	board  [boardSize][boardSize]cell
	turn   protocol.Role
	over   bool
	winner protocol.Role // RoleNull until over, then FIRST/SECOND/NULL(draw)
}

// New creates a fresh game: empty board, FIRST to move, not over.
func New() *Game {
	return &Game{turn: protocol.RoleFirst}
}

// Turn returns whose turn it currently is.
func (g *Game) Turn() protocol.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Over reports whether the game has concluded.
func (g *Game) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// Winner returns the winning role once the game is over (RoleNull means a
// draw, or the game is still in progress).
func (g *Game) Winner() protocol.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// ParseMove parses a decimal position 1..9 from text and validates that
// role is the player to move. It does not mutate the board.
func (g *Game) ParseMove(role protocol.Role, text string) (Move, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return Move{}, fmt.Errorf("parsing move %q: %w", text, err)
	}
	if pos < 1 || pos > 9 {
		return Move{}, fmt.Errorf("position %d out of range 1..9", pos)
	}

	g.mu.Lock()
	turn := g.turn
	g.mu.Unlock()
	if turn != role {
		return Move{}, fmt.Errorf("not role %v's turn", role)
	}

	idx := pos - 1
	return Move{Pos: pos, Row: idx / boardSize, Col: idx % boardSize}, nil
}

// ApplyMove writes role's mark at move's position, flips the turn, and
// evaluates termination. The target cell must be empty and the game must
// not already be over.
func (g *Game) ApplyMove(role protocol.Role, move Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return fmt.Errorf("game already over")
	}
	if g.turn != role {
		return fmt.Errorf("not role %v's turn", role)
	}
	if g.board[move.Row][move.Col] != cellEmpty {
		return fmt.Errorf("cell %d,%d occupied", move.Row, move.Col)
	}

	g.board[move.Row][move.Col] = markFor(role)
	g.turn = role.Other()

	if g.wins(markFor(role)) {
		g.winner = role
		g.over = true
	} else if g.full() {
		g.winner = protocol.RoleNull
		g.over = true
	}
	return nil
}

// Resign ends the game in favor of the other role. Fails if already over.
func (g *Game) Resign(role protocol.Role) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return fmt.Errorf("game already over")
	}
	g.winner = role.Other()
	g.over = true
	return nil
}

// UnparseState renders the board as text: a header line, three rows of
// `c|c|c` separated by `-----` lines, then a line naming whose turn it is,
// or, once the game is over, a line naming the winner or the draw.
func (g *Game) UnparseState() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Board:\n")
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			ch := g.board[r][c]
			if ch == cellEmpty {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(byte(ch))
			}
			if c < boardSize-1 {
				sb.WriteByte('|')
			}
		}
		sb.WriteByte('\n')
		if r < boardSize-1 {
			sb.WriteString("-----\n")
		}
	}
	if g.over {
		switch g.winner {
		case protocol.RoleNull:
			sb.WriteString("Game over: draw\n")
		default:
			fmt.Fprintf(&sb, "Game over: %v wins\n", g.winner)
		}
	} else {
		fmt.Fprintf(&sb, "Turn: %v\n", g.turn)
	}
	return sb.String()
}

func markFor(role protocol.Role) cell {
	if role == protocol.RoleFirst {
		return cellX
	}
	return cellO
}

func (g *Game) full() bool {
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			if g.board[r][c] == cellEmpty {
				return false
			}
		}
	}
	return true
}

func (g *Game) wins(mark cell) bool {
	for i := 0; i < boardSize; i++ {
		if g.board[i][0] == mark && g.board[i][1] == mark && g.board[i][2] == mark {
			return true
		}
		if g.board[0][i] == mark && g.board[1][i] == mark && g.board[2][i] == mark {
			return true
		}
	}
	if g.board[0][0] == mark && g.board[1][1] == mark && g.board[2][2] == mark {
		return true
	}
	if g.board[0][2] == mark && g.board[1][1] == mark && g.board[2][0] == mark {
		return true
	}
	return false
}
