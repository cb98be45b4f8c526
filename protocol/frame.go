package protocol

import "encoding/binary"

// EncodeResponse builds a complete response frame ready for a single write.
// Extras length is 4 only for a successful response that carries a body.
func EncodeResponse(status Status, body []byte) []byte {
	buf := make([]byte, HeaderLen+len(body))

	buf[0] = MagicResponse
	if status == StatusNoError && len(body) > 0 {
		buf[4] = FlagsLen
	}
	binary.BigEndian.PutUint16(buf[6:8], uint16(status))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(body)))
	copy(buf[HeaderLen:], body)

	return buf
}

// EncodeRequest builds a request frame: extras, then key, then value
func EncodeRequest(op Opcode, extras, key, value []byte) []byte {
	bodyLen := len(extras) + len(key) + len(value)
	buf := make([]byte, HeaderLen+bodyLen)

	buf[0] = MagicRequest
	buf[1] = byte(op)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(key)))
	buf[4] = uint8(len(extras))
	binary.BigEndian.PutUint32(buf[8:12], uint32(bodyLen))

	offset := HeaderLen
	offset += copy(buf[offset:], extras)
	offset += copy(buf[offset:], key)
	copy(buf[offset:], value)

	return buf
}
