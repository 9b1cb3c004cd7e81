package envelope

import "github.com/glimte/mmate-mfp/contracts"

// AddFingerprint records that the message visited nodeID. The list keeps
// insertion order and repeats; tracking starts with the first call.
func (e *Envelope) AddFingerprint(nodeID string) error {
	if err := e.mutable("AddFingerprint"); err != nil {
		return err
	}
	if nodeID == "" {
		return contracts.NewInvalidValue("AddFingerprint", "nodeID", nodeID)
	}
	fp, _ := e.h.fingerprints.get()
	if fp == nil {
		fp = make([]string, 0, 4)
	}
	e.h.fingerprints = some(append(fp, nodeID))
	return nil
}

// TrackFingerprints starts tracking with an empty list. It does nothing
// when tracking has already started.
func (e *Envelope) TrackFingerprints() error {
	if err := e.mutable("TrackFingerprints"); err != nil {
		return err
	}
	if !e.h.fingerprints.ok {
		e.h.fingerprints = some([]string{})
	}
	return nil
}

// Fingerprints returns a copy of the visited node list, or false when the
// message is not tracked
func (e *Envelope) Fingerprints() ([]string, bool) {
	fp, ok := e.h.fingerprints.get()
	if !ok {
		return nil, false
	}
	return append([]string{}, fp...), true
}

// ClearFingerprints stops tracking
func (e *Envelope) ClearFingerprints() error {
	if err := e.mutable("ClearFingerprints"); err != nil {
		return err
	}
	e.h.fingerprints = opt[[]string]{}
	return nil
}

// HasVisited reports whether nodeID appears in the fingerprint list
func (e *Envelope) HasVisited(nodeID string) bool {
	fp, _ := e.h.fingerprints.get()
	for _, id := range fp {
		if id == nodeID {
			return true
		}
	}
	return false
}
