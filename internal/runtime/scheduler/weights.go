package scheduler

// weightTable is the fixed 32-entry fairness table:
// negative weights dispatch one message per visit (responsiveness),
// positive weights favour throughput by draining a larger fraction of a
// single mailbox before yielding back to the run queue.
var weightTable = [32]int{
	-1, -1, -1, -1,
	0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 3, 3,
}

// weightFor returns the fairness weight for the kth worker; workers beyond
// the table default to 0.
func weightFor(k int) int {
	if k < len(weightTable) {
		return weightTable[k]
	}
	return 0
}

// batchSize computes how many messages a worker should drain from a
// mailbox holding queueLen messages at the given weight: exactly one if
// weight<0, max(1, len>>weight) if weight>=0.
func batchSize(queueLen, weight int) int {
	if weight < 0 {
		return 1
	}
	n := queueLen >> uint(weight)
	if n < 1 {
		n = 1
	}
	return n
}
