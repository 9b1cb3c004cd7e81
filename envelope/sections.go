package envelope

import (
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/google/uuid"
)

// Optional header sections. A section is nil until one of its fields is set
// and every field inside it is individually optional.

type guaranteedSection struct {
	sourceME        opt[uuid.UUID]
	targetME        opt[uuid.UUID]
	targetDestDef   opt[uuid.UUID]
	streamID        opt[uuid.UUID]
	gatheringTarget opt[uuid.UUID]
	phase           opt[contracts.ProtocolPhase]
	version         opt[byte]
	valueStartTick  opt[int64]
	valueEndTick    opt[int64]
	valueTick       opt[int64]
	completedPrefix opt[int64]
	requestedOnly   opt[bool]
}

type crossBusSection struct {
	linkName      opt[string]
	sourceBusName opt[string]
}

type remoteBrowseSection struct {
	browseID       opt[int64]
	sequenceNumber opt[int64]
}

type remoteGetSection struct {
	prevTick  opt[int64]
	startTick opt[int64]
	valueTick opt[int64]
	waitTime  opt[int64]
}

type exceptionSection struct {
	reason              opt[contracts.Reason]
	inserts             opt[[]string]
	timestamp           opt[int64]
	problemDestination  opt[string]
	problemSubscription opt[string]
}

type auditSection struct {
	sessionID opt[string]
}

func (h *header) cloneSections(src *header) {
	if src.guaranteed != nil {
		g := *src.guaranteed
		h.guaranteed = &g
	}
	if src.crossBus != nil {
		c := *src.crossBus
		h.crossBus = &c
	}
	if src.remoteBrowse != nil {
		r := *src.remoteBrowse
		h.remoteBrowse = &r
	}
	if src.remoteGet != nil {
		r := *src.remoteGet
		h.remoteGet = &r
	}
	if src.exception != nil {
		x := *src.exception
		if ins, ok := x.inserts.get(); ok {
			x.inserts = some(cloneStrings(ins))
		}
		h.exception = &x
	}
	if src.audit != nil {
		a := *src.audit
		h.audit = &a
	}
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

func (e *Envelope) gd(op string) (*guaranteedSection, error) {
	if err := e.mutable(op); err != nil {
		return nil, err
	}
	if e.h.guaranteed == nil {
		e.h.guaranteed = &guaranteedSection{}
	}
	return e.h.guaranteed, nil
}

// HasGuaranteed reports whether the guaranteed-delivery section is present
func (e *Envelope) HasGuaranteed() bool {
	return e.h.guaranteed != nil
}

// ClearGuaranteed removes the guaranteed-delivery section
func (e *Envelope) ClearGuaranteed() error {
	if err := e.mutable("ClearGuaranteed"); err != nil {
		return err
	}
	e.h.guaranteed = nil
	return nil
}

// GetGuaranteedSourceME returns the sending messaging engine
func (e *Envelope) GetGuaranteedSourceME() (uuid.UUID, bool) {
	if e.h.guaranteed == nil {
		return uuid.Nil, false
	}
	return e.h.guaranteed.sourceME.get()
}

// SetGuaranteedSourceME sets the sending messaging engine
func (e *Envelope) SetGuaranteedSourceME(id uuid.UUID) error {
	g, err := e.gd("SetGuaranteedSourceME")
	if err != nil {
		return err
	}
	g.sourceME = some(id)
	return nil
}

// GetGuaranteedTargetME returns the receiving messaging engine
func (e *Envelope) GetGuaranteedTargetME() (uuid.UUID, bool) {
	if e.h.guaranteed == nil {
		return uuid.Nil, false
	}
	return e.h.guaranteed.targetME.get()
}

// SetGuaranteedTargetME sets the receiving messaging engine
func (e *Envelope) SetGuaranteedTargetME(id uuid.UUID) error {
	g, err := e.gd("SetGuaranteedTargetME")
	if err != nil {
		return err
	}
	g.targetME = some(id)
	return nil
}

// GetGuaranteedTargetDestDef returns the target destination definition
func (e *Envelope) GetGuaranteedTargetDestDef() (uuid.UUID, bool) {
	if e.h.guaranteed == nil {
		return uuid.Nil, false
	}
	return e.h.guaranteed.targetDestDef.get()
}

// SetGuaranteedTargetDestDef sets the target destination definition
func (e *Envelope) SetGuaranteedTargetDestDef(id uuid.UUID) error {
	g, err := e.gd("SetGuaranteedTargetDestDef")
	if err != nil {
		return err
	}
	g.targetDestDef = some(id)
	return nil
}

// GetGuaranteedStreamID returns the delivery stream used by the flush protocol
func (e *Envelope) GetGuaranteedStreamID() (uuid.UUID, bool) {
	if e.h.guaranteed == nil {
		return uuid.Nil, false
	}
	return e.h.guaranteed.streamID.get()
}

// SetGuaranteedStreamID sets the delivery stream
func (e *Envelope) SetGuaranteedStreamID(id uuid.UUID) error {
	g, err := e.gd("SetGuaranteedStreamID")
	if err != nil {
		return err
	}
	g.streamID = some(id)
	return nil
}

// GetGuaranteedGatheringTarget returns the gathering target
func (e *Envelope) GetGuaranteedGatheringTarget() (uuid.UUID, bool) {
	if e.h.guaranteed == nil {
		return uuid.Nil, false
	}
	return e.h.guaranteed.gatheringTarget.get()
}

// SetGuaranteedGatheringTarget sets the gathering target
func (e *Envelope) SetGuaranteedGatheringTarget(id uuid.UUID) error {
	g, err := e.gd("SetGuaranteedGatheringTarget")
	if err != nil {
		return err
	}
	g.gatheringTarget = some(id)
	return nil
}

// GetGuaranteedProtocolPhase returns the guaranteed-delivery protocol phase
func (e *Envelope) GetGuaranteedProtocolPhase() (contracts.ProtocolPhase, bool) {
	if e.h.guaranteed == nil {
		return contracts.ProtocolPhaseUnknown, false
	}
	return e.h.guaranteed.phase.get()
}

// SetGuaranteedProtocolPhase sets the guaranteed-delivery protocol phase
func (e *Envelope) SetGuaranteedProtocolPhase(p contracts.ProtocolPhase) error {
	g, err := e.gd("SetGuaranteedProtocolPhase")
	if err != nil {
		return err
	}
	g.phase = some(p)
	return nil
}

// GetGuaranteedProtocolVersion returns the guaranteed-delivery protocol version
func (e *Envelope) GetGuaranteedProtocolVersion() (byte, bool) {
	if e.h.guaranteed == nil {
		return 0, false
	}
	return e.h.guaranteed.version.get()
}

// SetGuaranteedProtocolVersion sets the guaranteed-delivery protocol version
func (e *Envelope) SetGuaranteedProtocolVersion(v byte) error {
	g, err := e.gd("SetGuaranteedProtocolVersion")
	if err != nil {
		return err
	}
	g.version = some(v)
	return nil
}

// GetGuaranteedValueStartTick returns the first tick covered by the message
func (e *Envelope) GetGuaranteedValueStartTick() (int64, bool) {
	if e.h.guaranteed == nil {
		return 0, false
	}
	return e.h.guaranteed.valueStartTick.get()
}

// SetGuaranteedValueStartTick sets the first tick covered by the message
func (e *Envelope) SetGuaranteedValueStartTick(tick int64) error {
	g, err := e.gd("SetGuaranteedValueStartTick")
	if err != nil {
		return err
	}
	g.valueStartTick = some(tick)
	return nil
}

// GetGuaranteedValueEndTick returns the last tick covered by the message
func (e *Envelope) GetGuaranteedValueEndTick() (int64, bool) {
	if e.h.guaranteed == nil {
		return 0, false
	}
	return e.h.guaranteed.valueEndTick.get()
}

// SetGuaranteedValueEndTick sets the last tick covered by the message
func (e *Envelope) SetGuaranteedValueEndTick(tick int64) error {
	g, err := e.gd("SetGuaranteedValueEndTick")
	if err != nil {
		return err
	}
	g.valueEndTick = some(tick)
	return nil
}

// GetGuaranteedValueTick returns the tick of the message value
func (e *Envelope) GetGuaranteedValueTick() (int64, bool) {
	if e.h.guaranteed == nil {
		return 0, false
	}
	return e.h.guaranteed.valueTick.get()
}

// SetGuaranteedValueTick sets the tick of the message value
func (e *Envelope) SetGuaranteedValueTick(tick int64) error {
	g, err := e.gd("SetGuaranteedValueTick")
	if err != nil {
		return err
	}
	g.valueTick = some(tick)
	return nil
}

// GetGuaranteedCompletedPrefix returns the stream's completed prefix tick
func (e *Envelope) GetGuaranteedCompletedPrefix() (int64, bool) {
	if e.h.guaranteed == nil {
		return 0, false
	}
	return e.h.guaranteed.completedPrefix.get()
}

// SetGuaranteedCompletedPrefix sets the stream's completed prefix tick
func (e *Envelope) SetGuaranteedCompletedPrefix(tick int64) error {
	g, err := e.gd("SetGuaranteedCompletedPrefix")
	if err != nil {
		return err
	}
	g.completedPrefix = some(tick)
	return nil
}

// GetGuaranteedRequestedOnly reports whether the message answers a request
// and must not be delivered to other consumers
func (e *Envelope) GetGuaranteedRequestedOnly() (bool, bool) {
	if e.h.guaranteed == nil {
		return false, false
	}
	return e.h.guaranteed.requestedOnly.get()
}

// SetGuaranteedRequestedOnly sets the requested-only flag
func (e *Envelope) SetGuaranteedRequestedOnly(v bool) error {
	g, err := e.gd("SetGuaranteedRequestedOnly")
	if err != nil {
		return err
	}
	g.requestedOnly = some(v)
	return nil
}

func (e *Envelope) xb(op string) (*crossBusSection, error) {
	if err := e.mutable(op); err != nil {
		return nil, err
	}
	if e.h.crossBus == nil {
		e.h.crossBus = &crossBusSection{}
	}
	return e.h.crossBus, nil
}

// HasGuaranteedCrossBus reports whether the cross-bus section is present
func (e *Envelope) HasGuaranteedCrossBus() bool {
	return e.h.crossBus != nil
}

// ClearGuaranteedCrossBus removes the cross-bus section
func (e *Envelope) ClearGuaranteedCrossBus() error {
	if err := e.mutable("ClearGuaranteedCrossBus"); err != nil {
		return err
	}
	e.h.crossBus = nil
	return nil
}

// GetGuaranteedCrossBusLinkName returns the inter-bus link the message crossed
func (e *Envelope) GetGuaranteedCrossBusLinkName() (string, bool) {
	if e.h.crossBus == nil {
		return "", false
	}
	return e.h.crossBus.linkName.get()
}

// SetGuaranteedCrossBusLinkName sets the inter-bus link name
func (e *Envelope) SetGuaranteedCrossBusLinkName(name string) error {
	x, err := e.xb("SetGuaranteedCrossBusLinkName")
	if err != nil {
		return err
	}
	x.linkName = some(name)
	return nil
}

// GetGuaranteedCrossBusSourceBusName returns the bus the message came from
func (e *Envelope) GetGuaranteedCrossBusSourceBusName() (string, bool) {
	if e.h.crossBus == nil {
		return "", false
	}
	return e.h.crossBus.sourceBusName.get()
}

// SetGuaranteedCrossBusSourceBusName sets the bus the message came from
func (e *Envelope) SetGuaranteedCrossBusSourceBusName(name string) error {
	x, err := e.xb("SetGuaranteedCrossBusSourceBusName")
	if err != nil {
		return err
	}
	x.sourceBusName = some(name)
	return nil
}

func (e *Envelope) rb(op string) (*remoteBrowseSection, error) {
	if err := e.mutable(op); err != nil {
		return nil, err
	}
	if e.h.remoteBrowse == nil {
		e.h.remoteBrowse = &remoteBrowseSection{}
	}
	return e.h.remoteBrowse, nil
}

// HasGuaranteedRemoteBrowse reports whether the remote-browse section is present
func (e *Envelope) HasGuaranteedRemoteBrowse() bool {
	return e.h.remoteBrowse != nil
}

// ClearGuaranteedRemoteBrowse removes the remote-browse section
func (e *Envelope) ClearGuaranteedRemoteBrowse() error {
	if err := e.mutable("ClearGuaranteedRemoteBrowse"); err != nil {
		return err
	}
	e.h.remoteBrowse = nil
	return nil
}

// GetGuaranteedRemoteBrowseID returns the remote browse session id
func (e *Envelope) GetGuaranteedRemoteBrowseID() (int64, bool) {
	if e.h.remoteBrowse == nil {
		return 0, false
	}
	return e.h.remoteBrowse.browseID.get()
}

// SetGuaranteedRemoteBrowseID sets the remote browse session id
func (e *Envelope) SetGuaranteedRemoteBrowseID(id int64) error {
	r, err := e.rb("SetGuaranteedRemoteBrowseID")
	if err != nil {
		return err
	}
	r.browseID = some(id)
	return nil
}

// GetGuaranteedRemoteBrowseSequenceNumber returns the position within the browse
func (e *Envelope) GetGuaranteedRemoteBrowseSequenceNumber() (int64, bool) {
	if e.h.remoteBrowse == nil {
		return 0, false
	}
	return e.h.remoteBrowse.sequenceNumber.get()
}

// SetGuaranteedRemoteBrowseSequenceNumber sets the position within the browse
func (e *Envelope) SetGuaranteedRemoteBrowseSequenceNumber(n int64) error {
	r, err := e.rb("SetGuaranteedRemoteBrowseSequenceNumber")
	if err != nil {
		return err
	}
	r.sequenceNumber = some(n)
	return nil
}

func (e *Envelope) rg(op string) (*remoteGetSection, error) {
	if err := e.mutable(op); err != nil {
		return nil, err
	}
	if e.h.remoteGet == nil {
		e.h.remoteGet = &remoteGetSection{}
	}
	return e.h.remoteGet, nil
}

// HasGuaranteedRemoteGet reports whether the remote-get section is present
func (e *Envelope) HasGuaranteedRemoteGet() bool {
	return e.h.remoteGet != nil
}

// ClearGuaranteedRemoteGet removes the remote-get section
func (e *Envelope) ClearGuaranteedRemoteGet() error {
	if err := e.mutable("ClearGuaranteedRemoteGet"); err != nil {
		return err
	}
	e.h.remoteGet = nil
	return nil
}

// GetGuaranteedRemoteGetPrevTick returns the tick preceding the requested value
func (e *Envelope) GetGuaranteedRemoteGetPrevTick() (int64, bool) {
	if e.h.remoteGet == nil {
		return 0, false
	}
	return e.h.remoteGet.prevTick.get()
}

// SetGuaranteedRemoteGetPrevTick sets the tick preceding the requested value
func (e *Envelope) SetGuaranteedRemoteGetPrevTick(tick int64) error {
	r, err := e.rg("SetGuaranteedRemoteGetPrevTick")
	if err != nil {
		return err
	}
	r.prevTick = some(tick)
	return nil
}

// GetGuaranteedRemoteGetStartTick returns the tick the get request started at
func (e *Envelope) GetGuaranteedRemoteGetStartTick() (int64, bool) {
	if e.h.remoteGet == nil {
		return 0, false
	}
	return e.h.remoteGet.startTick.get()
}

// SetGuaranteedRemoteGetStartTick sets the tick the get request started at
func (e *Envelope) SetGuaranteedRemoteGetStartTick(tick int64) error {
	r, err := e.rg("SetGuaranteedRemoteGetStartTick")
	if err != nil {
		return err
	}
	r.startTick = some(tick)
	return nil
}

// GetGuaranteedRemoteGetValueTick returns the tick of the delivered value
func (e *Envelope) GetGuaranteedRemoteGetValueTick() (int64, bool) {
	if e.h.remoteGet == nil {
		return 0, false
	}
	return e.h.remoteGet.valueTick.get()
}

// SetGuaranteedRemoteGetValueTick sets the tick of the delivered value
func (e *Envelope) SetGuaranteedRemoteGetValueTick(tick int64) error {
	r, err := e.rg("SetGuaranteedRemoteGetValueTick")
	if err != nil {
		return err
	}
	r.valueTick = some(tick)
	return nil
}

// GetGuaranteedRemoteGetWaitTime returns how long the remote consumer waited, in ms
func (e *Envelope) GetGuaranteedRemoteGetWaitTime() (int64, bool) {
	if e.h.remoteGet == nil {
		return 0, false
	}
	return e.h.remoteGet.waitTime.get()
}

// SetGuaranteedRemoteGetWaitTime sets how long the remote consumer waited
func (e *Envelope) SetGuaranteedRemoteGetWaitTime(ms int64) error {
	if err := e.mutable("SetGuaranteedRemoteGetWaitTime"); err != nil {
		return err
	}
	if ms < 0 {
		return contracts.NewInvalidValue("SetGuaranteedRemoteGetWaitTime", "waitTime", ms)
	}
	r, err := e.rg("SetGuaranteedRemoteGetWaitTime")
	if err != nil {
		return err
	}
	r.waitTime = some(ms)
	return nil
}

func (e *Envelope) ex(op string) (*exceptionSection, error) {
	if err := e.mutable(op); err != nil {
		return nil, err
	}
	if e.h.exception == nil {
		e.h.exception = &exceptionSection{}
	}
	return e.h.exception, nil
}

// HasException reports whether the exception section is present
func (e *Envelope) HasException() bool {
	return e.h.exception != nil
}

// ClearException removes the exception section
func (e *Envelope) ClearException() error {
	if err := e.mutable("ClearException"); err != nil {
		return err
	}
	e.h.exception = nil
	return nil
}

// GetExceptionReason returns why the message was rerouted
func (e *Envelope) GetExceptionReason() (contracts.Reason, bool) {
	if e.h.exception == nil {
		return contracts.ReasonNone, false
	}
	return e.h.exception.reason.get()
}

// SetExceptionReason sets why the message was rerouted
func (e *Envelope) SetExceptionReason(r contracts.Reason) error {
	x, err := e.ex("SetExceptionReason")
	if err != nil {
		return err
	}
	x.reason = some(r)
	return nil
}

// GetExceptionInserts returns a copy of the reason's inserts
func (e *Envelope) GetExceptionInserts() ([]string, bool) {
	if e.h.exception == nil {
		return nil, false
	}
	ins, ok := e.h.exception.inserts.get()
	return cloneStrings(ins), ok
}

// SetExceptionInserts sets the reason's inserts
func (e *Envelope) SetExceptionInserts(inserts []string) error {
	x, err := e.ex("SetExceptionInserts")
	if err != nil {
		return err
	}
	x.inserts = some(cloneStrings(inserts))
	return nil
}

// GetExceptionTimestamp returns when the message was rerouted, in ms since epoch
func (e *Envelope) GetExceptionTimestamp() (int64, bool) {
	if e.h.exception == nil {
		return 0, false
	}
	return e.h.exception.timestamp.get()
}

// SetExceptionTimestamp sets when the message was rerouted
func (e *Envelope) SetExceptionTimestamp(ms int64) error {
	x, err := e.ex("SetExceptionTimestamp")
	if err != nil {
		return err
	}
	x.timestamp = some(ms)
	return nil
}

// GetExceptionProblemDestination returns the destination delivery failed on
func (e *Envelope) GetExceptionProblemDestination() (string, bool) {
	if e.h.exception == nil {
		return "", false
	}
	return e.h.exception.problemDestination.get()
}

// SetExceptionProblemDestination sets the destination delivery failed on
func (e *Envelope) SetExceptionProblemDestination(name string) error {
	x, err := e.ex("SetExceptionProblemDestination")
	if err != nil {
		return err
	}
	x.problemDestination = some(name)
	return nil
}

// GetExceptionProblemSubscription returns the subscription delivery failed on
func (e *Envelope) GetExceptionProblemSubscription() (string, bool) {
	if e.h.exception == nil {
		return "", false
	}
	return e.h.exception.problemSubscription.get()
}

// SetExceptionProblemSubscription sets the subscription delivery failed on
func (e *Envelope) SetExceptionProblemSubscription(name string) error {
	x, err := e.ex("SetExceptionProblemSubscription")
	if err != nil {
		return err
	}
	x.problemSubscription = some(name)
	return nil
}

// HasAudit reports whether the audit section is present
func (e *Envelope) HasAudit() bool {
	return e.h.audit != nil
}

// ClearAudit removes the audit section
func (e *Envelope) ClearAudit() error {
	if err := e.mutable("ClearAudit"); err != nil {
		return err
	}
	e.h.audit = nil
	return nil
}

// GetAuditSessionID returns the producing session recorded for auditing
func (e *Envelope) GetAuditSessionID() (string, bool) {
	if e.h.audit == nil {
		return "", false
	}
	return e.h.audit.sessionID.get()
}

// SetAuditSessionID records the producing session for auditing
func (e *Envelope) SetAuditSessionID(id string) error {
	if err := e.mutable("SetAuditSessionID"); err != nil {
		return err
	}
	if e.h.audit == nil {
		e.h.audit = &auditSection{}
	}
	e.h.audit.sessionID = some(id)
	return nil
}
