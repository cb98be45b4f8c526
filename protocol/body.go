package protocol

// SetRequest holds the regions of a SET body. All slices alias the body.
type SetRequest struct {
	Key   []byte
	Flags [FlagsLen]byte
	Value []byte
}

// keyRegion returns the [start, end) offsets of the key inside body
func keyRegion(h Header, body []byte) (int, int, error) {
	start := int(h.ExtrasLength)
	end := start + int(h.KeyLength)
	if len(body) < end {
		return 0, 0, ErrShortBody
	}
	return start, end, nil
}

// DecodeGetBody returns the key of a GET body. The key starts after the
// extras and spans KeyLength bytes.
func DecodeGetBody(h Header, body []byte) ([]byte, error) {
	start, end, err := keyRegion(h, body)
	if err != nil {
		return nil, err
	}
	return body[start:end], nil
}

// DecodeSetBody splits a SET body into key, flags and value.
//
// The extras length locates the key, but the flags are always the leading
// four body bytes whatever extras length the header declares. The value is
// everything after the key.
func DecodeSetBody(h Header, body []byte) (SetRequest, error) {
	start, end, err := keyRegion(h, body)
	if err != nil {
		return SetRequest{}, err
	}
	if len(body) < FlagsLen {
		return SetRequest{}, ErrShortBody
	}

	req := SetRequest{
		Key:   body[start:end],
		Value: body[end:],
	}
	copy(req.Flags[:], body[:FlagsLen])
	return req, nil
}
