// Package assembler implements the length-prefixed TCP frame reassembler:
// each connection has at most one in-progress frame plus a queue of frames
// that completed from the same read.
package assembler

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Outcome tells the caller whether exactly one frame completed (Data) or
// several did (More, requiring repeated Pop calls).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeData
	OutcomeMore
)

type stage int

const (
	stageIdle stage = iota
	stageHalfLength
	stageBody
)

type inProgress struct {
	stage    stage
	lenByte  byte // first length byte, while in stageHalfLength
	expected int
	buf      []byte
	read     int
}

// conn holds one connection's in-progress frame and its completed queue.
type conn struct {
	cur      inProgress
	complete [][]byte
}

// Table bounds the number of tracked connections with an LRU (from
// hashicorp/golang-lru/v2) so a misbehaving client population cannot grow
// the incomplete-frame table without bound.
type Table struct {
	conns *lru.Cache[uint32, *conn]
	pool  *bufferPool
}

func NewTable(maxConns int) (*Table, error) {
	if maxConns <= 0 {
		maxConns = 4096
	}
	c, err := lru.NewWithEvict[uint32, *conn](maxConns, nil)
	if err != nil {
		return nil, err
	}
	return &Table{conns: c, pool: newBufferPool()}, nil
}

// Feed processes one TCP read's worth of bytes for connection id: it
// consumes the 2-byte length header, accumulates the body across reads,
// and repeats for any further frames packed into the same chunk. It
// returns the outcome and, for OutcomeData, the single completed frame;
// for OutcomeMore, callers must drain with Pop until it returns ok=false.
func (t *Table) Feed(id uint32, chunk []byte) (Outcome, []byte) {
	c, ok := t.conns.Get(id)
	if !ok {
		c = &conn{}
		t.conns.Add(id, c)
	}

	var frames [][]byte

	for len(chunk) > 0 {
		switch c.cur.stage {
		case stageIdle:
			c.cur.lenByte = chunk[0]
			chunk = chunk[1:]
			c.cur.stage = stageHalfLength
		case stageHalfLength:
			lo := chunk[0]
			chunk = chunk[1:]
			c.cur.expected = int(c.cur.lenByte)<<8 | int(lo)
			c.cur.buf = t.pool.get(c.cur.expected)[:c.cur.expected]
			c.cur.read = 0
			c.cur.stage = stageBody
			if c.cur.expected == 0 {
				frames = append(frames, c.cur.buf)
				c.cur = inProgress{}
			}
		case stageBody:
			need := c.cur.expected - c.cur.read
			n := need
			if n > len(chunk) {
				n = len(chunk)
			}
			copy(c.cur.buf[c.cur.read:], chunk[:n])
			c.cur.read += n
			chunk = chunk[n:]
			if c.cur.read == c.cur.expected {
				frames = append(frames, c.cur.buf)
				c.cur = inProgress{}
			}
		}
	}

	switch len(frames) {
	case 0:
		return OutcomeNone, nil
	case 1:
		return OutcomeData, frames[0]
	default:
		c.complete = append(c.complete, frames...)
		return OutcomeMore, nil
	}
}

// Pop drains one previously queued completed frame (used after
// OutcomeMore). When one Feed completes several frames it queues all of
// them and returns none directly; Pop hands them out in arrival order.
func (t *Table) Pop(id uint32) ([]byte, bool) {
	c, ok := t.conns.Get(id)
	if !ok || len(c.complete) == 0 {
		return nil, false
	}
	f := c.complete[0]
	c.complete = c.complete[1:]
	return f, true
}

// Release discards a connection's in-progress frame and completed queue,
// returning its buffers to the pool. Call this on close or error.
func (t *Table) Release(id uint32) {
	c, ok := t.conns.Get(id)
	if !ok {
		return
	}
	if c.cur.buf != nil {
		t.pool.put(c.cur.buf)
	}
	for _, f := range c.complete {
		t.pool.put(f)
	}
	t.conns.Remove(id)
}
