package wire

import "encoding/binary"

// ResponseStatus is the 1-byte status of a response frame.
type ResponseStatus byte

const (
	StatusError      ResponseStatus = 0
	StatusOK         ResponseStatus = 1
	StatusMultiBegin ResponseStatus = 2
	StatusMultiChunk ResponseStatus = 3
	StatusMultiEnd   ResponseStatus = 4
)

// maxErrorPayload truncates error payloads so one oversized error can't
// itself require multi-part framing.
const maxErrorPayload = ChunkSize

type Response struct {
	Session   uint32
	Status    ResponseStatus
	Msg       []byte // status 0/1/4
	TotalSize uint32 // status 2
	Chunk     []byte // status 3
}

func EncodeResponse(session uint32, status ResponseStatus, msg []byte) []byte {
	if status == StatusError && len(msg) > maxErrorPayload {
		msg = msg[:maxErrorPayload]
	}
	size := 5 + len(msg)
	buf := make([]byte, 2+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	binary.BigEndian.PutUint32(buf[2:], session)
	buf[6] = byte(status)
	copy(buf[7:], msg)
	return buf
}

func EncodeMultiBegin(session uint32, totalSize uint32) []byte {
	buf := make([]byte, 2+9)
	binary.BigEndian.PutUint16(buf, 9)
	binary.BigEndian.PutUint32(buf[2:], session)
	buf[6] = byte(StatusMultiBegin)
	binary.BigEndian.PutUint32(buf[7:], totalSize)
	return buf
}

func DecodeResponse(body []byte) (Response, error) {
	if len(body) < 5 {
		return Response{}, ErrShortFrame
	}
	session := binary.BigEndian.Uint32(body)
	status := ResponseStatus(body[4])
	rest := body[5:]
	switch status {
	case StatusError, StatusOK, StatusMultiEnd:
		return Response{Session: session, Status: status, Msg: rest}, nil
	case StatusMultiBegin:
		if len(rest) < 4 {
			return Response{}, ErrShortFrame
		}
		return Response{Session: session, Status: status, TotalSize: binary.BigEndian.Uint32(rest)}, nil
	case StatusMultiChunk:
		return Response{Session: session, Status: status, Chunk: rest}, nil
	default:
		return Response{}, ErrBadTag
	}
}

// MultiPartAssembler reassembles a chunked response (or request) keyed by
// session, validating the advertised total length on the terminator.
type MultiPartAssembler struct {
	pending map[uint32]*multipartState
}

type multipartState struct {
	total int
	buf   []byte
}

func NewMultiPartAssembler() *MultiPartAssembler {
	return &MultiPartAssembler{pending: make(map[uint32]*multipartState)}
}

func (m *MultiPartAssembler) Begin(session uint32, total int) {
	m.pending[session] = &multipartState{total: total, buf: make([]byte, 0, total)}
}

// Chunk appends a chunk; when last is true it finalizes and returns the
// concatenated payload, checking it matches the advertised total.
func (m *MultiPartAssembler) Chunk(session uint32, data []byte, last bool) ([]byte, bool, error) {
	st, ok := m.pending[session]
	if !ok {
		return nil, false, errShortSession
	}
	st.buf = append(st.buf, data...)
	if !last {
		return nil, false, nil
	}
	delete(m.pending, session)
	if len(st.buf) != st.total {
		return nil, false, errMultipartLengthMismatch
	}
	return st.buf, true, nil
}

func (m *MultiPartAssembler) Abandon(session uint32) {
	delete(m.pending, session)
}
