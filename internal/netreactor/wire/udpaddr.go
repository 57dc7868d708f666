package wire

import (
	"encoding/binary"
	"errors"
	"net"
)

const (
	familyIPv4 = 1
	familyIPv6 = 2
)

// EncodeUDPAddr packs an address as a 1-byte family tag, 2-byte
// big-endian port, then 4 or 16 bytes of address.
func EncodeUDPAddr(ip net.IP, port int) []byte {
	if v4 := ip.To4(); v4 != nil {
		buf := make([]byte, 1+2+4)
		buf[0] = familyIPv4
		binary.BigEndian.PutUint16(buf[1:], uint16(port))
		copy(buf[3:], v4)
		return buf
	}
	v6 := ip.To16()
	buf := make([]byte, 1+2+16)
	buf[0] = familyIPv6
	binary.BigEndian.PutUint16(buf[1:], uint16(port))
	copy(buf[3:], v6)
	return buf
}

func DecodeUDPAddr(b []byte) (net.IP, int, error) {
	if len(b) < 3 {
		return nil, 0, ErrShortFrame
	}
	port := int(binary.BigEndian.Uint16(b[1:]))
	switch b[0] {
	case familyIPv4:
		if len(b) < 7 {
			return nil, 0, ErrShortFrame
		}
		return net.IP(append([]byte(nil), b[3:7]...)), port, nil
	case familyIPv6:
		if len(b) < 19 {
			return nil, 0, ErrShortFrame
		}
		return net.IP(append([]byte(nil), b[3:19]...)), port, nil
	default:
		return nil, 0, errors.New("wire: unknown udp address family tag")
	}
}

// PackNetpack prefixes payload with its 2-byte big-endian length for
// opaque-bytes inbound socket framing. Payloads at or above 65536 bytes
// are rejected at pack time.
func PackNetpack(payload []byte) ([]byte, error) {
	if len(payload) >= 1<<16 {
		return nil, errors.New("wire: netpack payload too large")
	}
	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	copy(buf[2:], payload)
	return buf, nil
}
