package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderLen is the fixed size of every frame header
	HeaderLen = 24

	// FlagsLen is the size of the opaque flags block carried by SET
	FlagsLen = 4

	MagicRequest  byte = 0x80
	MagicResponse byte = 0x81
)

// Opcode selects the command of a request frame
type Opcode uint8

const (
	OpGet Opcode = 0x00
	OpSet Opcode = 0x01
)

func (o Opcode) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("opcode(0x%02x)", uint8(o))
	}
}

// Status is the response status; only the low byte is used
type Status uint16

const (
	StatusNoError     Status = 0x0000
	StatusKeyNotFound Status = 0x0001
	// StatusKeyExists is reserved by the protocol family; SET here never produces it.
	StatusKeyExists Status = 0x0002
)

func (s Status) String() string {
	switch s {
	case StatusNoError:
		return "no error"
	case StatusKeyNotFound:
		return "key not found"
	case StatusKeyExists:
		return "key exists"
	default:
		return fmt.Sprintf("status(0x%04x)", uint16(s))
	}
}

// Header is the decoded form of the 24 byte frame header.
//
// Layout (big endian):
//
//	0     magic
//	1     opcode
//	2-3   key length
//	4     extras length
//	5     data type (unused)
//	6-7   status (responses) / vbucket (requests, unused)
//	8-11  total body length
//	12-23 opaque + cas (unused)
type Header struct {
	Magic        byte
	Opcode       Opcode
	KeyLength    uint16
	ExtrasLength uint8
	Status       Status
	BodyLength   uint32
}

// DecodeHeader parses a request header. Only request frames carrying GET or
// SET are accepted; any error means the peer must be dropped without a reply.
func DecodeHeader(b []byte) (Header, error) {
	h, err := parseHeader(b)
	if err != nil {
		return Header{}, err
	}
	if h.Magic != MagicRequest {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrBadMagic, h.Magic)
	}
	if h.Opcode != OpGet && h.Opcode != OpSet {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, uint8(h.Opcode))
	}
	return h, nil
}

// DecodeResponseHeader parses a response header as sent by a server
func DecodeResponseHeader(b []byte) (Header, error) {
	h, err := parseHeader(b)
	if err != nil {
		return Header{}, err
	}
	if h.Magic != MagicResponse {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrBadMagic, h.Magic)
	}
	return h, nil
}

// BodyLength extracts the total body length from raw header bytes 8..11
func BodyLength(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[8:12])
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	return Header{
		Magic:        b[0],
		Opcode:       Opcode(b[1]),
		KeyLength:    binary.BigEndian.Uint16(b[2:4]),
		ExtrasLength: b[4],
		Status:       Status(binary.BigEndian.Uint16(b[6:8])),
		BodyLength:   BodyLength(b),
	}, nil
}
