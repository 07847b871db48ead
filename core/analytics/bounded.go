package analytics

// BoundedList is a FIFO list: appending past the limit evicts the oldest items.
type BoundedList[T any] []T

// Append returns a new list holding l followed by items, trimmed to the newest `limit` entries.
// A negative limit means unbounded.
func (l BoundedList[T]) Append(limit int, items ...T) BoundedList[T] {
	out := make(BoundedList[T], 0, len(l)+len(items))
	out = append(out, l...)
	out = append(out, items...)
	if over := len(out) - limit; limit >= 0 && over > 0 {
		out = append(BoundedList[T]{}, out[over:]...)
	}
	return out
}

// Filter returns the items matching keep, preserving order.
func (l BoundedList[T]) Filter(keep func(T) bool) BoundedList[T] {
	out := make(BoundedList[T], 0, len(l))
	for _, item := range l {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
