package engine

// flushThresholdEvents and flushThresholdBytes are the buffer limits in
// §4.E: "events >= 100 OR sizeBytes >= 65536".
const (
	flushThresholdEvents = 100
	flushThresholdBytes  = 65536
)

func newBatch(ns string, firstSeq uint64) *Batch {
	return &Batch{Namespace: ns, FirstSeq: firstSeq, LastSeq: firstSeq}
}

// append adds ev to the batch, tracking size via its JSON-encoded length
// (approximated here by the encoded event bytes produced by the caller).
func (b *Batch) append(ev Event, encodedSize int64) {
	b.Events = append(b.Events, ev)
	b.LastSeq = ev.Seq
	b.SizeBytes += encodedSize
}

// shouldFlush reports whether the buffer has crossed a flush threshold.
func (b *Batch) shouldFlush() bool {
	return len(b.Events) >= flushThresholdEvents || b.SizeBytes >= flushThresholdBytes
}

// reset clears the batch's events but preserves lastSeq as the next
// batch's firstSeq, per §4.E ("reset the buffer, preserving lastSeq as the
// new firstSeq").
func (b *Batch) reset() {
	b.Events = nil
	b.FirstSeq = b.LastSeq
	b.SizeBytes = 0
}
