// Package protocol implements the wire codec shared by every connection: a
// fixed 16-byte header followed by an optional payload.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Type identifies the kind of a packet.
type Type uint8

const (
	TypeNone Type = iota

	// Client requests.
	TypeLogin
	TypeUsers
	TypeInvite
	TypeRevoke
	TypeAccept
	TypeDecline
	TypeMove
	TypeResign

	// Synchronous server responses.
	TypeACK
	TypeNACK

	// Asynchronous notifications to a peer.
	TypeInvited
	TypeRevoked
	TypeAccepted
	TypeDeclined
	TypeMoved
	TypeResigned
	TypeEnded
)

func (t Type) String() string {
	switch t {
	case TypeLogin:
		return "LOGIN"
	case TypeUsers:
		return "USERS"
	case TypeInvite:
		return "INVITE"
	case TypeRevoke:
		return "REVOKE"
	case TypeAccept:
		return "ACCEPT"
	case TypeDecline:
		return "DECLINE"
	case TypeMove:
		return "MOVE"
	case TypeResign:
		return "RESIGN"
	case TypeACK:
		return "ACK"
	case TypeNACK:
		return "NACK"
	case TypeInvited:
		return "INVITED"
	case TypeRevoked:
		return "REVOKED"
	case TypeAccepted:
		return "ACCEPTED"
	case TypeDeclined:
		return "DECLINED"
	case TypeMoved:
		return "MOVED"
	case TypeResigned:
		return "RESIGNED"
	case TypeEnded:
		return "ENDED"
	default:
		return "NONE"
	}
}

// Role mirrors the game role carried in a packet's role field.
type Role uint8

const (
	RoleNull Role = iota
	RoleFirst
	RoleSecond
)

func (r Role) String() string {
	switch r {
	case RoleFirst:
		return "FIRST"
	case RoleSecond:
		return "SECOND"
	default:
		return "NULL"
	}
}

// Other returns the opposing role. RoleNull maps to itself.
func (r Role) Other() Role {
	switch r {
	case RoleFirst:
		return RoleSecond
	case RoleSecond:
		return RoleFirst
	default:
		return RoleNull
	}
}

// headerSize is the fixed wire size of a Packet's header, per spec §4.1:
// type(1) id(1) role(1) pad(1) size(2) timestamp_sec(4) timestamp_nsec(4)
// fill bytes 0..13; the last two bytes are reserved, written as zero and
// ignored on read.
const headerSize = 16

// Packet is one frame: a fixed header plus an optional payload.
type Packet struct {
	Type      Type
	ID        uint8
	Role      Role
	Size      uint16
	Timestamp time.Time
	Payload   []byte
}

// New builds a packet with the timestamp set to now; callers should use
// this rather than setting Timestamp themselves so that every outbound
// packet carries a fresh wall-clock time, per spec §4.1 and the Open
// Question in spec §9 about timestamp assignment.
func New(typ Type, id uint8, role Role, payload []byte) Packet {
	return Packet{
		Type:      typ,
		ID:        id,
		Role:      role,
		Size:      uint16(len(payload)),
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Send writes header+payload to w as a single framed write. Callers are
// responsible for serializing concurrent sends to the same w (see
// session.Client's write lock).
func Send(w io.Writer, p Packet) error {
	buf := make([]byte, headerSize+len(p.Payload))
	buf[0] = byte(p.Type)
	buf[1] = p.ID
	buf[2] = byte(p.Role)
	buf[3] = 0 // reserved, zero
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(p.Payload)))
	binary.BigEndian.PutUint32(buf[6:10], uint32(p.Timestamp.Unix()))
	binary.BigEndian.PutUint32(buf[10:14], uint32(p.Timestamp.Nanosecond()))
	copy(buf[headerSize:], p.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// Recv reads exactly one header then exactly Size payload bytes from r.
// On a short read (including a clean EOF before any header bytes), it
// returns a synthetic TypeNone packet and a nil error so callers can treat
// "no packet" as an ordinary termination signal rather than a distinct
// error case; io errors other than EOF are still returned.
func Recv(r io.Reader) (Packet, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Packet{Type: TypeNone}, nil
		}
		return Packet{}, fmt.Errorf("reading packet header: %w", err)
	}

	size := binary.BigEndian.Uint16(header[4:6])
	sec := binary.BigEndian.Uint32(header[6:10])
	nsec := binary.BigEndian.Uint32(header[10:14])

	var payload []byte
	if size > 0 {
		payload = make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return Packet{Type: TypeNone}, nil
			}
			return Packet{}, fmt.Errorf("reading packet payload: %w", err)
		}
	}

	return Packet{
		Type:      Type(header[0]),
		ID:        header[1],
		Role:      Role(header[2]),
		Size:      size,
		Timestamp: time.Unix(int64(sec), int64(nsec)),
		Payload:   payload,
	}, nil
}
