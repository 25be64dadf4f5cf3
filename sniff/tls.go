package sniff

import "encoding/binary"

// TLS record/handshake constants, see RFC 8446 ¤5.1 and ¤4.1.2.
const (
	recordTypeHandshake = 0x16
	handshakeClientHello = 0x01
	extServerName        = 0x0000
	sniHostName          = 0x00
)

// ClientHelloView is the result of parsing a TLS record stream as a
// ClientHello. All offsets are absolute into the buffer given to
// ParseClientHello.
type ClientHelloView struct {
	// RecordLength is the TLS record's total length (record header + body).
	RecordLength int
	// HandshakeTypeOffset is the absolute offset of the handshake-type
	// byte, always 5 for a well-formed record.
	HandshakeTypeOffset int
	// SNIOffset and SNILength describe the hostname bytes (excluding
	// length prefixes) inside the server_name extension, when present.
	SNIOffset int
	SNILength int
	// Hostname is the decoded ASCII hostname.
	Hostname string
}

func isTLSVersion(major, minor byte) bool {
	if major != 0x03 {
		return false
	}
	switch minor {
	case 0x01, 0x02, 0x03, 0x04:
		return true
	default:
		return false
	}
}

// ParseClientHello parses the first TLS record of buf as a ClientHello.
//
// It returns ErrIncomplete if buf doesn't yet hold enough bytes to reach a
// decision, ErrMalformed if the record isn't a TLS 1.x handshake carrying a
// ClientHello, ErrNoSNI if the ClientHello parses but carries no
// server_name extension, or nil with a populated view otherwise.
//
// On ErrNoSNI the returned view's RecordLength and HandshakeTypeOffset are
// still valid, since SNI-independent split strategies (e.g. "before
// handshake type") don't need the hostname.
func ParseClientHello(buf []byte) (ClientHelloView, error) {
	var view ClientHelloView

	if len(buf) < 5 {
		return view, ErrIncomplete
	}
	if buf[0] != recordTypeHandshake {
		return view, ErrMalformed
	}
	if !isTLSVersion(buf[1], buf[2]) {
		return view, ErrMalformed
	}
	recordLen := int(binary.BigEndian.Uint16(buf[3:5]))
	view.RecordLength = recordLen + 5
	view.HandshakeTypeOffset = 5

	if len(buf) < 6 {
		return view, ErrIncomplete
	}
	if buf[5] != handshakeClientHello {
		return view, ErrMalformed
	}
	if len(buf) < 5+recordLen {
		return view, ErrIncomplete
	}

	pos := 6
	end := 5 + recordLen // exclusive end of this TLS record

	// 3-byte handshake length.
	if pos+3 > end {
		return view, ErrMalformed
	}
	pos += 3
	// 2-byte legacy client version.
	if pos+2 > end {
		return view, ErrMalformed
	}
	pos += 2
	// 32-byte random.
	if pos+32 > end {
		return view, ErrMalformed
	}
	pos += 32
	// session id.
	if pos+1 > end {
		return view, ErrMalformed
	}
	sessionIDLen := int(buf[pos])
	pos++
	if pos+sessionIDLen > end {
		return view, ErrMalformed
	}
	pos += sessionIDLen
	// cipher suites.
	if pos+2 > end {
		return view, ErrMalformed
	}
	cipherLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	if pos+cipherLen > end {
		return view, ErrMalformed
	}
	pos += cipherLen
	// compression methods.
	if pos+1 > end {
		return view, ErrMalformed
	}
	compLen := int(buf[pos])
	pos++
	if pos+compLen > end {
		return view, ErrMalformed
	}
	pos += compLen
	// extensions.
	if pos+2 > end {
		// No extensions block at all: valid ClientHello, just no SNI.
		return view, ErrNoSNI
	}
	extTotalLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
	pos += 2
	extEnd := pos + extTotalLen
	if extEnd > end {
		return view, ErrMalformed
	}

	for pos+4 <= extEnd {
		extType := binary.BigEndian.Uint16(buf[pos : pos+2])
		extLen := int(binary.BigEndian.Uint16(buf[pos+2 : pos+4]))
		body := pos + 4
		if body+extLen > extEnd {
			return view, ErrMalformed
		}

		if extType == extServerName {
			if extLen < 2 {
				return view, ErrMalformed
			}
			listLen := int(binary.BigEndian.Uint16(buf[body : body+2]))
			entry := body + 2
			if listLen < 3 || entry+3 > body+extLen {
				return view, ErrNoSNI
			}
			nameType := buf[entry]
			nameLen := int(binary.BigEndian.Uint16(buf[entry+1 : entry+3]))
			nameOffset := entry + 3
			if nameType != sniHostName {
				return view, ErrNoSNI
			}
			if nameOffset+nameLen > body+extLen {
				return view, ErrMalformed
			}
			view.SNIOffset = nameOffset
			view.SNILength = nameLen
			view.Hostname = string(buf[nameOffset : nameOffset+nameLen])
			return view, nil
		}

		pos = body + extLen
	}

	return view, ErrNoSNI
}

// HasHostname reports whether the view carries a usable SNI hostname range.
// The split position inside that range (midpoint or other Position) is
// computed by the caller (package fragment).
func (v ClientHelloView) HasHostname() bool {
	return v.SNILength > 0
}
