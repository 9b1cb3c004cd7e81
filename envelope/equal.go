package envelope

import "reflect"

// Equal reports whether two envelopes carry the same message. Bodies are
// compared by value; the stream cursor, the object cache and the sent flag
// are ignored.
func (e *Envelope) Equal(o *Envelope) bool {
	if e == nil || o == nil {
		return e == o
	}
	return reflect.DeepEqual(e.h, o.h) &&
		e.body.equal(&o.body) &&
		e.properties.equal(&o.properties) &&
		e.context.equal(&o.context)
}
