// Package batch groups a record stream into bounded, ordered batches.
package batch

// Batch is an ordered run of records sharing one key.
type Batch[T any, K comparable] struct {
	// Index is the zero-based position of the batch in the stream.
	Index   int
	Key     K
	Records []T
}

// Len returns the number of records in the batch.
func (b Batch[T, K]) Len() int { return len(b.Records) }

// Accumulator collects records into batches of at most capacity records.
//
// A batch is closed when it is full or when the next record's key differs
// from the open batch's key. Records are never reordered, so the concatenation
// of all emitted batches is exactly the input sequence.
//
// An Accumulator is not safe for concurrent use.
type Accumulator[T any, K comparable] struct {
	capacity int
	keyOf    func(T) K

	open    []T
	openKey K

	seen    int
	emitted int
}

// New returns an Accumulator that keys every record with keyOf.
// Panics if capacity is not positive or keyOf is nil.
func New[T any, K comparable](capacity int, keyOf func(T) K) *Accumulator[T, K] {
	if capacity <= 0 {
		panic("batch capacity must be positive")
	}
	if keyOf == nil {
		panic("keyOf cannot be nil")
	}
	return &Accumulator[T, K]{capacity: capacity, keyOf: keyOf}
}

// Unkeyed returns an Accumulator where every record shares one key.
func Unkeyed[T any](capacity int) *Accumulator[T, struct{}] {
	return New(capacity, func(T) struct{} { return struct{}{} })
}

// Add appends a record. It returns the batches closed by this record: the
// open batch when the key changes, and the new batch when it reaches capacity.
func (a *Accumulator[T, K]) Add(record T) []Batch[T, K] {
	a.seen++
	key := a.keyOf(record)

	var closed []Batch[T, K]
	if len(a.open) > 0 && key != a.openKey {
		closed = append(closed, a.take())
	}
	if len(a.open) == 0 {
		a.openKey = key
		a.open = make([]T, 0, a.capacity)
	}
	a.open = append(a.open, record)
	if len(a.open) == a.capacity {
		closed = append(closed, a.take())
	}
	return closed
}

// Flush closes the trailing partial batch. ok is false when nothing is pending.
func (a *Accumulator[T, K]) Flush() (b Batch[T, K], ok bool) {
	if len(a.open) == 0 {
		return Batch[T, K]{}, false
	}
	return a.take(), true
}

// Pending returns the number of records in the open batch.
func (a *Accumulator[T, K]) Pending() int { return len(a.open) }

// Seen returns the number of records added so far.
func (a *Accumulator[T, K]) Seen() int { return a.seen }

// Emitted returns the number of batches closed so far.
func (a *Accumulator[T, K]) Emitted() int { return a.emitted }

func (a *Accumulator[T, K]) take() Batch[T, K] {
	b := Batch[T, K]{Index: a.emitted, Key: a.openKey, Records: a.open}
	a.emitted++
	a.open = nil
	var zero K
	a.openKey = zero
	return b
}

// Split partitions records into batches without streaming. It is the
// one-shot form of Add followed by Flush.
func Split[T any, K comparable](records []T, capacity int, keyOf func(T) K) []Batch[T, K] {
	acc := New(capacity, keyOf)
	var out []Batch[T, K]
	for _, r := range records {
		out = append(out, acc.Add(r)...)
	}
	if b, ok := acc.Flush(); ok {
		out = append(out, b)
	}
	return out
}
