package envelope

// opt holds a value that may be unset. The zero opt is unset.
type opt[T any] struct {
	v  T
	ok bool
}

func some[T any](v T) opt[T] {
	return opt[T]{v: v, ok: true}
}

func (o opt[T]) get() (T, bool) {
	return o.v, o.ok
}
