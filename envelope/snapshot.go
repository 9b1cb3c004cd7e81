package envelope

import "github.com/glimte/mmate-mfp/contracts"

// Snapshot returns e itself when copy is false, otherwise a deep copy that
// shares nothing mutable with e. Copies are never frozen.
func (e *Envelope) Snapshot(copy bool) (*Envelope, error) {
	if !copy {
		return e, nil
	}
	return e.deepCopy("Snapshot")
}

// SnapshotForReceive returns a deep copy for one consumer
func (e *Envelope) SnapshotForReceive() (*Envelope, error) {
	return e.deepCopy("SnapshotForReceive")
}

// SnapshotForSend takes a snapshot and then freezes e. On failure e is left
// unfrozen.
func (e *Envelope) SnapshotForSend(copy bool) (*Envelope, error) {
	snap, err := e.Snapshot(copy)
	if err != nil {
		return nil, err
	}
	e.MarkSent()
	return snap, nil
}

func (e *Envelope) deepCopy(op string) (*Envelope, error) {
	b, err := e.body.clone()
	if err != nil {
		return nil, contracts.NewCopyFailed(op, err)
	}

	c := &Envelope{
		h:          e.h,
		body:       b,
		properties: e.properties.clone(),
		context:    e.context.clone(),
		serializer: e.serializer,
	}
	c.h.forwardPath = clonePath(e.h.forwardPath)
	c.h.reversePath = clonePath(e.h.reversePath)
	c.h.guaranteed, c.h.crossBus, c.h.remoteBrowse = nil, nil, nil
	c.h.remoteGet, c.h.exception, c.h.audit = nil, nil, nil
	c.h.cloneSections(&e.h)
	if e.h.routing != nil {
		c.h.routing = e.h.routing.clone()
	}
	if e.h.subscription != nil {
		c.h.subscription = e.h.subscription.clone()
	}
	if fp, ok := e.h.fingerprints.get(); ok {
		c.h.fingerprints = some(append([]string{}, fp...))
	}
	return c, nil
}
