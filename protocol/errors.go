package protocol

import "errors"

var (
	// ErrShortHeader is returned when fewer than HeaderLen bytes are supplied
	ErrShortHeader = errors.New("short header")

	// ErrBadMagic is returned when the magic byte does not match the expected direction
	ErrBadMagic = errors.New("bad magic byte")

	// ErrUnknownOpcode is returned for any opcode other than GET or SET
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrShortBody is returned when the body cannot hold the regions the header describes
	ErrShortBody = errors.New("body shorter than header declares")
)
