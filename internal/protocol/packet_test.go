package protocol

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestSendRecvRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		id      uint8
		role    Role
		payload []byte
	}{
		{"no payload", TypeACK, 0, RoleNull, nil},
		{"invited", TypeInvited, 3, RoleSecond, []byte("alice")},
		{"moved state text", TypeMoved, 255, RoleNull, []byte("X|O|X\n-----\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.typ, tt.id, tt.role, tt.payload)

			var buf bytes.Buffer
			if err := Send(&buf, p); err != nil {
				t.Fatalf("Send: %v", err)
			}

			got, err := Recv(&buf)
			if err != nil {
				t.Fatalf("Recv: %v", err)
			}

			if got.Type != tt.typ {
				t.Errorf("Type = %v; want %v", got.Type, tt.typ)
			}
			if got.ID != tt.id {
				t.Errorf("ID = %d; want %d", got.ID, tt.id)
			}
			if got.Role != tt.role {
				t.Errorf("Role = %v; want %v", got.Role, tt.role)
			}
			if int(got.Size) != len(tt.payload) {
				t.Errorf("Size = %d; want %d", got.Size, len(tt.payload))
			}
			if !bytes.Equal(got.Payload, tt.payload) {
				t.Errorf("Payload = %q; want %q", got.Payload, tt.payload)
			}
			if got.Timestamp.Unix() != p.Timestamp.Unix() {
				t.Errorf("Timestamp.Unix() = %d; want %d", got.Timestamp.Unix(), p.Timestamp.Unix())
			}
		})
	}
}

func TestRecvShortReadYieldsNonePacket(t *testing.T) {
	// Fewer than headerSize bytes: treated as "no packet", not an error.
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03})
	p, err := Recv(r)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if p.Type != TypeNone {
		t.Errorf("Type = %v; want TypeNone", p.Type)
	}
}

func TestRecvCleanEOF(t *testing.T) {
	p, err := Recv(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if p.Type != TypeNone {
		t.Errorf("Type = %v; want TypeNone", p.Type)
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestRecvPropagatesNonEOFError(t *testing.T) {
	wantErr := io.ErrClosedPipe
	_, err := Recv(errReader{err: wantErr})
	if err == nil {
		t.Fatal("Recv: want error, got nil")
	}
}

func TestTimestampFreshPerPacket(t *testing.T) {
	p1 := New(TypeACK, 0, RoleNull, nil)
	time.Sleep(time.Millisecond)
	p2 := New(TypeACK, 0, RoleNull, nil)
	if !p2.Timestamp.After(p1.Timestamp) && p2.Timestamp != p1.Timestamp {
		t.Errorf("expected p2 timestamp >= p1 timestamp")
	}
}

func TestRoleOther(t *testing.T) {
	if RoleFirst.Other() != RoleSecond {
		t.Errorf("RoleFirst.Other() = %v; want RoleSecond", RoleFirst.Other())
	}
	if RoleSecond.Other() != RoleFirst {
		t.Errorf("RoleSecond.Other() = %v; want RoleFirst", RoleSecond.Other())
	}
	if RoleNull.Other() != RoleNull {
		t.Errorf("RoleNull.Other() = %v; want RoleNull", RoleNull.Other())
	}
}
