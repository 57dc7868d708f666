package wire

import "errors"

var (
	errShortSession            = errors.New("wire: chunk for unknown session")
	errMultipartLengthMismatch = errors.New("wire: multi-part total length mismatch")
)
