// Package wire implements the wire codecs: request/response framing,
// multi-part chunking, UDP address encoding, and a self-describing
// structured-value serializer.
package wire

import (
	"encoding/binary"
	"errors"
)

// ChunkSize bounds a single multi-part chunk: every chunk is exactly this
// size except the last.
const ChunkSize = 32 * 1024

// RequestTag identifies a request frame's addressing/chunking form.
type RequestTag byte

const (
	TagNumeric      RequestTag = 0
	TagNumericMulti RequestTag = 1
	TagNamed        RequestTag = 0x80
	TagNamedMulti   RequestTag = 0x81
	TagChunkMid     RequestTag = 2
	TagChunkLast    RequestTag = 3
)

var ErrShortFrame = errors.New("wire: frame too short")
var ErrBadTag = errors.New("wire: unrecognized request tag")

// Request is a decoded request frame of any tag.
type Request struct {
	Tag       RequestTag
	Addr      uint32 // TagNumeric/TagNumericMulti
	Name      string // TagNamed/TagNamedMulti
	Session   uint32
	Msg       []byte // TagNumeric/TagNamed
	TotalSize uint32 // TagNumericMulti/TagNamedMulti
	Chunk     []byte // TagChunkMid/TagChunkLast
}

// EncodeNumeric builds a numeric-address frame for payloads up to 32 KiB.
func EncodeNumeric(addr, session uint32, msg []byte) ([]byte, error) {
	if len(msg) > ChunkSize {
		return nil, errors.New("wire: use EncodeNumericHeader for payloads over 32 KiB")
	}
	size := 9 + len(msg)
	buf := make([]byte, 2+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	buf[2] = byte(TagNumeric)
	binary.BigEndian.PutUint32(buf[3:], addr)
	binary.BigEndian.PutUint32(buf[7:], session)
	copy(buf[11:], msg)
	return buf, nil
}

func EncodeNumericHeader(addr, session, totalSize uint32) []byte {
	buf := make([]byte, 2+13)
	binary.BigEndian.PutUint16(buf, 13)
	buf[2] = byte(TagNumericMulti)
	binary.BigEndian.PutUint32(buf[3:], addr)
	binary.BigEndian.PutUint32(buf[7:], session)
	binary.BigEndian.PutUint32(buf[11:], totalSize)
	return buf
}

func EncodeNamed(name string, session uint32, msg []byte) ([]byte, error) {
	if len(name) == 0 || len(name) > 255 {
		return nil, errors.New("wire: name length out of range")
	}
	if len(msg) > ChunkSize {
		return nil, errors.New("wire: use EncodeNamedHeader for payloads over 32 KiB")
	}
	size := 6 + len(name) + len(msg)
	buf := make([]byte, 2+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	buf[2] = byte(TagNamed)
	buf[3] = byte(len(name))
	copy(buf[4:], name)
	binary.BigEndian.PutUint32(buf[4+len(name):], session)
	copy(buf[8+len(name):], msg)
	return buf, nil
}

func EncodeNamedHeader(name string, session, totalSize uint32) ([]byte, error) {
	if len(name) == 0 || len(name) > 255 {
		return nil, errors.New("wire: name length out of range")
	}
	size := 10 + len(name)
	buf := make([]byte, 2+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	buf[2] = byte(TagNamedMulti)
	buf[3] = byte(len(name))
	copy(buf[4:], name)
	binary.BigEndian.PutUint32(buf[4+len(name):], session)
	binary.BigEndian.PutUint32(buf[8+len(name):], totalSize)
	return buf, nil
}

func EncodeChunk(session uint32, chunk []byte, last bool) []byte {
	tag := TagChunkMid
	if last {
		tag = TagChunkLast
	}
	size := 5 + len(chunk)
	buf := make([]byte, 2+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	buf[2] = byte(tag)
	binary.BigEndian.PutUint32(buf[3:], session)
	copy(buf[7:], chunk)
	return buf
}

// EncodeMultipart splits msg into a header frame plus ceil(n/32768) chunk
// frames, in send order.
func EncodeMultipart(addr uint32, name string, session uint32, msg []byte) ([][]byte, error) {
	var frames [][]byte
	if name != "" {
		hdr, err := EncodeNamedHeader(name, session, uint32(len(msg)))
		if err != nil {
			return nil, err
		}
		frames = append(frames, hdr)
	} else {
		frames = append(frames, EncodeNumericHeader(addr, session, uint32(len(msg))))
	}
	for off := 0; off < len(msg); off += ChunkSize {
		end := off + ChunkSize
		if end > len(msg) {
			end = len(msg)
		}
		frames = append(frames, EncodeChunk(session, msg[off:end], end == len(msg)))
	}
	return frames, nil
}

// DecodeRequest decodes one request frame body (the bytes after the 2-byte
// length prefix has already been stripped by the assembler).
func DecodeRequest(body []byte) (Request, error) {
	if len(body) < 1 {
		return Request{}, ErrShortFrame
	}
	switch RequestTag(body[0]) {
	case TagNumeric:
		if len(body) < 9 {
			return Request{}, ErrShortFrame
		}
		return Request{
			Tag:     TagNumeric,
			Addr:    binary.BigEndian.Uint32(body[1:]),
			Session: binary.BigEndian.Uint32(body[5:]),
			Msg:     body[9:],
		}, nil
	case TagNumericMulti:
		if len(body) < 13 {
			return Request{}, ErrShortFrame
		}
		return Request{
			Tag:       TagNumericMulti,
			Addr:      binary.BigEndian.Uint32(body[1:]),
			Session:   binary.BigEndian.Uint32(body[5:]),
			TotalSize: binary.BigEndian.Uint32(body[9:]),
		}, nil
	case TagNamed:
		if len(body) < 2 {
			return Request{}, ErrShortFrame
		}
		nlen := int(body[1])
		if len(body) < 2+nlen+4 {
			return Request{}, ErrShortFrame
		}
		name := string(body[2 : 2+nlen])
		session := binary.BigEndian.Uint32(body[2+nlen:])
		return Request{Tag: TagNamed, Name: name, Session: session, Msg: body[6+nlen:]}, nil
	case TagNamedMulti:
		if len(body) < 2 {
			return Request{}, ErrShortFrame
		}
		nlen := int(body[1])
		if len(body) < 2+nlen+8 {
			return Request{}, ErrShortFrame
		}
		name := string(body[2 : 2+nlen])
		session := binary.BigEndian.Uint32(body[2+nlen:])
		total := binary.BigEndian.Uint32(body[6+nlen:])
		return Request{Tag: TagNamedMulti, Name: name, Session: session, TotalSize: total}, nil
	case TagChunkMid, TagChunkLast:
		if len(body) < 5 {
			return Request{}, ErrShortFrame
		}
		return Request{
			Tag:     RequestTag(body[0]),
			Session: binary.BigEndian.Uint32(body[1:]),
			Chunk:   body[5:],
		}, nil
	default:
		return Request{}, ErrBadTag
	}
}
