package domain

// Stroke is one atomic drawing segment. Immutable once logged; the id is
// room-scoped and assigned sequentially by the relay.
type Stroke struct {
	ID        uint32
	X1, Y1    float32
	X2, Y2    float32
	Color     uint32
	Thickness uint32
	Timestamp uint64 // milliseconds since epoch
}
