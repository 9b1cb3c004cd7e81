package codec

import (
	"errors"
	"fmt"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/wire"
	"github.com/google/uuid"
)

var (
	errBadMagic      = errors.New("bad magic")
	errTrailingBytes = errors.New("trailing bytes")
	errNoSlices      = errors.New("no slices")
)

// decoder rebuilds an envelope through its public setters. The envelope is
// created as a JMS message so body views are reachable; the decoded kind is
// applied last.
type decoder struct {
	c    *Codec
	e    *envelope.Envelope
	kind contracts.MessageKind
	seen map[sectionID]bool
}

// readPreamble checks the size bound, the magic and the format version of
// slices and returns a reader positioned after the protocol version
func (c *Codec) readPreamble(slices [][]byte, magic []byte) (*wire.Reader, ProtocolVersion, error) {
	if len(slices) == 0 {
		return nil, 0, errNoSlices
	}
	if err := c.checkSize(slices); err != nil {
		return nil, 0, err
	}

	r := wire.NewReader(slices[0])
	for _, b := range magic {
		if r.Byte() != b {
			if err := r.Err(); err != nil {
				return nil, 0, err
			}
			return nil, 0, errBadMagic
		}
	}
	fv := r.Byte()
	pv := ProtocolVersion(r.Byte())
	if err := r.Err(); err != nil {
		return nil, 0, err
	}
	if fv != formatVersion {
		return nil, 0, fmt.Errorf("format version %d not supported", fv)
	}
	if pv < V1 {
		return nil, 0, fmt.Errorf("protocol version %d not supported", pv)
	}
	return r, pv, nil
}

// decodeEnvelope reads the core header remaining in r and every section slice
func (c *Codec) decodeEnvelope(r *wire.Reader, sectionSlices [][]byte) (*envelope.Envelope, error) {
	d := &decoder{
		c:    c,
		e:    c.factory.New(contracts.MessageKindJMS),
		seen: make(map[sectionID]bool, len(sectionSlices)),
	}

	if err := d.core(r); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if r.Remaining() > 0 {
		return nil, fmt.Errorf("core: %w", errTrailingBytes)
	}

	for i, s := range sectionSlices {
		if err := d.section(s); err != nil {
			return nil, fmt.Errorf("slice %d: %w", i+1, err)
		}
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return d.e, nil
}

func (d *decoder) core(r *wire.Reader) error {
	e := d.e
	mask, err := fieldMask(r, coreFieldCount, true, "core")
	if err != nil {
		return err
	}
	if !has(mask, coreMessageKind) {
		return errNoKind
	}

	id := uuid.Nil
	if has(mask, coreMessageID) {
		id = r.UUID()
	}
	if err := e.SetMessageID(id); err != nil {
		return err
	}

	d.kind, err = contracts.MessageKindOrdinals.Strict(r.Byte())
	if err := r.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}

	producer := contracts.ProducerUnknown
	if has(mask, coreProducer) {
		producer = contracts.ProducerKindOrdinals.Lenient(r.Byte(), contracts.ProducerUnknown)
	}
	if err := e.SetProducerKind(producer); err != nil {
		return err
	}

	if has(mask, corePhase) {
		phase := contracts.ProtocolPhaseOrdinals.Lenient(r.Byte(), contracts.ProtocolPhaseUnknown)
		if err := e.SetProtocolPhase(phase, r.Byte()); err != nil {
			return err
		}
	}
	if has(mask, corePersistence) {
		p := contracts.PersistenceKindOrdinals.Lenient(r.Byte(), contracts.PersistenceUnknown)
		if err := e.SetPersistence(p); err != nil {
			return err
		}
	}
	if has(mask, corePriority) {
		if err := e.SetPriority(int(r.Byte())); err != nil {
			return err
		}
	}
	if has(mask, coreOriginTS) {
		if err := e.SetOriginTimestamp(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, coreArrivalTS) {
		if err := e.SetArrivalTimestamp(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, coreWaitTime) {
		if err := e.SetWaitTime(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, coreTimeToLive) {
		if err := e.SetTimeToLive(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, coreDeliveryDelay) {
		if err := e.SetDeliveryDelay(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, coreForwardPath) {
		if err := e.SetForwardPath(getPath(r)); err != nil {
			return err
		}
	}
	if has(mask, coreReversePath) {
		if err := e.SetReversePath(getPath(r)); err != nil {
			return err
		}
	}
	if has(mask, coreDiscriminator) {
		if err := e.SetDiscriminator(r.String()); err != nil {
			return err
		}
	}
	if has(mask, coreBusName) {
		if err := e.SetBusName(r.String()); err != nil {
			return err
		}
	}
	if has(mask, coreSecurityUser) {
		if err := e.SetSecurityUserID(r.String()); err != nil {
			return err
		}
	}
	if has(mask, coreSentBySystem) {
		if err := e.SetSentBySystem(true); err != nil {
			return err
		}
	}
	if has(mask, coreCorrelationID) {
		if err := e.SetCorrelationID(r.String()); err != nil {
			return err
		}
	}
	if has(mask, coreJMSType) {
		if err := e.SetJMSType(r.String()); err != nil {
			return err
		}
	}
	if has(mask, coreRedelivered) {
		n := r.Varint()
		if int64(int32(n)) != n {
			return fmt.Errorf("redelivered count %d out of range", n)
		}
		if err := e.SetRedeliveredCount(int32(n)); err != nil {
			return err
		}
	}
	if has(mask, coreBodyKind) {
		kind, err := contracts.JmsBodyKindOrdinals.Strict(r.Byte())
		if err := r.Err(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
		if err := e.SetBodyKind(kind); err != nil {
			return err
		}
	} else if d.kind == contracts.MessageKindJMS {
		return errors.New("JMS message has no body kind")
	}
	if has(mask, coreFingerprints) {
		if err := e.TrackFingerprints(); err != nil {
			return err
		}
		for _, id := range getStrings(r) {
			if err := e.AddFingerprint(id); err != nil {
				return err
			}
		}
	}

	return r.Err()
}

func getPath(r *wire.Reader) []envelope.DestinationAddress {
	// name length + localOnly + uuid + bus length
	n := r.Count(19)
	if n == 0 {
		return nil
	}
	path := make([]envelope.DestinationAddress, n)
	for i := range path {
		path[i].DestinationName = r.String()
		path[i].LocalOnly = r.Bool()
		path[i].MEUUID = r.UUID()
		path[i].BusName = r.String()
	}
	return path
}

func getStrings(r *wire.Reader) []string {
	n := r.Count(1)
	if n == 0 {
		return nil
	}
	ss := make([]string, n)
	for i := range ss {
		ss[i] = r.String()
	}
	return ss
}

func (d *decoder) section(s []byte) error {
	r := wire.NewReader(s)
	id := sectionID(r.Byte())
	flags := r.Byte()
	if err := r.Err(); err != nil {
		return err
	}
	critical := flags&flagCritical != 0

	def, known := sectionsByID[id]
	if !known {
		if critical {
			return fmt.Errorf("unknown critical section %d", id)
		}
		d.c.logger.Warn("skipping unknown section",
			"section", byte(id),
			"bytes", len(s),
			"messageId", d.e.GetMessageID())
		return nil
	}
	if d.seen[id] {
		return fmt.Errorf("duplicate %s section", def.name)
	}
	d.seen[id] = true

	if err := def.decode(d, r, def.critical); err != nil {
		return fmt.Errorf("%s: %w", def.name, err)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", def.name, err)
	}
	if def.critical && r.Remaining() > 0 {
		return fmt.Errorf("%s: %w", def.name, errTrailingBytes)
	}
	return nil
}

// finish checks the kind-specific payloads and applies the decoded kind
func (d *decoder) finish() error {
	switch d.kind {
	case contracts.MessageKindRouting:
		if !d.seen[secRouting] {
			return errNoSubtype
		}
	case contracts.MessageKindSubscription:
		if !d.seen[secSubscription] {
			return errNoSubscription
		}
	}
	return d.e.SetMessageKind(d.kind)
}

// as switches the envelope to kind while a kind-specific section is read.
// Kind-specific payloads survive the switch, so reading one section never
// disturbs another.
func (d *decoder) as(kind contracts.MessageKind) error {
	return d.e.SetMessageKind(kind)
}

func decodeGuaranteed(d *decoder, r *wire.Reader, critical bool) error {
	e := d.e
	mask, err := fieldMask(r, 12, critical, "guaranteed")
	if err != nil {
		return err
	}
	uuids := []func(uuid.UUID) error{
		e.SetGuaranteedSourceME,
		e.SetGuaranteedTargetME,
		e.SetGuaranteedTargetDestDef,
		e.SetGuaranteedStreamID,
		e.SetGuaranteedGatheringTarget,
	}
	for bit, set := range uuids {
		if has(mask, uint(bit)) {
			if err := set(r.UUID()); err != nil {
				return err
			}
		}
	}
	if has(mask, 5) {
		p := contracts.ProtocolPhaseOrdinals.Lenient(r.Byte(), contracts.ProtocolPhaseUnknown)
		if err := e.SetGuaranteedProtocolPhase(p); err != nil {
			return err
		}
	}
	if has(mask, 6) {
		if err := e.SetGuaranteedProtocolVersion(r.Byte()); err != nil {
			return err
		}
	}
	ticks := []func(int64) error{
		e.SetGuaranteedValueStartTick,
		e.SetGuaranteedValueEndTick,
		e.SetGuaranteedValueTick,
		e.SetGuaranteedCompletedPrefix,
	}
	for i, set := range ticks {
		if has(mask, uint(7+i)) {
			if err := set(r.Varint()); err != nil {
				return err
			}
		}
	}
	if has(mask, 11) {
		if err := e.SetGuaranteedRequestedOnly(r.Bool()); err != nil {
			return err
		}
	}
	return nil
}

func decodeCrossBus(d *decoder, r *wire.Reader, critical bool) error {
	mask, err := fieldMask(r, 2, critical, "crossBus")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		if err := d.e.SetGuaranteedCrossBusLinkName(r.String()); err != nil {
			return err
		}
	}
	if has(mask, 1) {
		if err := d.e.SetGuaranteedCrossBusSourceBusName(r.String()); err != nil {
			return err
		}
	}
	return nil
}

func decodeRemoteBrowse(d *decoder, r *wire.Reader, critical bool) error {
	mask, err := fieldMask(r, 2, critical, "remoteBrowse")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		if err := d.e.SetGuaranteedRemoteBrowseID(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, 1) {
		if err := d.e.SetGuaranteedRemoteBrowseSequenceNumber(r.Varint()); err != nil {
			return err
		}
	}
	return nil
}

func decodeRemoteGet(d *decoder, r *wire.Reader, critical bool) error {
	e := d.e
	mask, err := fieldMask(r, 4, critical, "remoteGet")
	if err != nil {
		return err
	}
	setters := []func(int64) error{
		e.SetGuaranteedRemoteGetPrevTick,
		e.SetGuaranteedRemoteGetStartTick,
		e.SetGuaranteedRemoteGetValueTick,
		e.SetGuaranteedRemoteGetWaitTime,
	}
	for bit, set := range setters {
		if has(mask, uint(bit)) {
			if err := set(r.Varint()); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeException(d *decoder, r *wire.Reader, critical bool) error {
	e := d.e
	mask, err := fieldMask(r, 5, critical, "exception")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		n := r.Varint()
		if int64(int32(n)) != n {
			return fmt.Errorf("reason %d out of range", n)
		}
		if err := e.SetExceptionReason(contracts.Reason(n)); err != nil {
			return err
		}
	}
	if has(mask, 1) {
		if err := e.SetExceptionInserts(getStrings(r)); err != nil {
			return err
		}
	}
	if has(mask, 2) {
		if err := e.SetExceptionTimestamp(r.Varint()); err != nil {
			return err
		}
	}
	if has(mask, 3) {
		if err := e.SetExceptionProblemDestination(r.String()); err != nil {
			return err
		}
	}
	if has(mask, 4) {
		if err := e.SetExceptionProblemSubscription(r.String()); err != nil {
			return err
		}
	}
	return nil
}

func decodeAudit(d *decoder, r *wire.Reader, critical bool) error {
	mask, err := fieldMask(r, 1, critical, "audit")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		return d.e.SetAuditSessionID(r.String())
	}
	return nil
}

func decodeProperties(d *decoder, r *wire.Reader, _ bool) error {
	return getEntries(r, d.e.SetProperty)
}

func decodeSystemContext(d *decoder, r *wire.Reader, _ bool) error {
	return getEntries(r, d.e.SetSystemContext)
}

func decodeBody(d *decoder, r *wire.Reader, _ bool) error {
	if d.kind != contracts.MessageKindJMS {
		return errBodyNotJMS
	}
	jms, err := d.e.AsJmsMessage()
	if err != nil {
		return err
	}

	switch jms.BodyKind() {
	case contracts.JmsBodyBytes:
		m, _ := jms.AsBytes()
		b := r.Bytes()
		if err := r.Err(); err != nil {
			return err
		}
		if b == nil {
			b = []byte{}
		}
		return m.SetBytes(b)
	case contracts.JmsBodyText:
		m, _ := jms.AsText()
		s := r.String()
		if err := r.Err(); err != nil {
			return err
		}
		return m.SetText(s)
	case contracts.JmsBodyMap:
		m, _ := jms.AsMap()
		return getEntries(r, m.Set)
	case contracts.JmsBodyStream:
		m, _ := jms.AsStream()
		// one tag byte per element
		n := r.Count(1)
		for i := 0; i < n; i++ {
			v, err := getValue(r)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			if err := m.Write(v); err != nil {
				return err
			}
		}
		return r.Err()
	case contracts.JmsBodyObject:
		m, _ := jms.AsObject()
		typeName := r.String()
		data := r.Bytes()
		if err := r.Err(); err != nil {
			return err
		}
		if data == nil {
			data = []byte{}
		}
		return m.SetSerialized(typeName, data)
	default:
		return fmt.Errorf("body kind %s carries no content", jms.BodyKind())
	}
}

func decodeRouting(d *decoder, r *wire.Reader, critical bool) error {
	if d.kind != contracts.MessageKindRouting {
		return fmt.Errorf("routing payload on a %s message", d.kind)
	}
	subtype, err := contracts.RoutingSubtypeOrdinals.Strict(r.Byte())
	if err := r.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	if subtype == contracts.RoutingUnknown {
		return errNoSubtype
	}

	if err := d.as(contracts.MessageKindRouting); err != nil {
		return err
	}
	if err := decodeRoutingFields(d.e, r, subtype, critical); err != nil {
		return err
	}
	return d.as(contracts.MessageKindJMS)
}

func decodeRoutingFields(e *envelope.Envelope, r *wire.Reader, subtype contracts.RoutingSubtype, critical bool) error {
	v, err := e.AsRoutingMessage()
	if err != nil {
		return err
	}
	if err := v.SetSubtype(subtype); err != nil {
		return err
	}

	mask, err := fieldMask(r, 2, critical, "routing")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		if err := v.SetOriginME(r.UUID()); err != nil {
			return err
		}
	}
	if has(mask, 1) {
		// 16 bytes per route
		n := r.Count(16)
		routes := make([]uuid.UUID, n)
		for i := range routes {
			routes[i] = r.UUID()
		}
		if err := v.SetRoutes(routes); err != nil {
			return err
		}
	}
	return nil
}

func decodeSubscription(d *decoder, r *wire.Reader, critical bool) error {
	if d.kind != contracts.MessageKindSubscription {
		return fmt.Errorf("subscription payload on a %s message", d.kind)
	}
	kind, err := contracts.SubscriptionKindOrdinals.Strict(r.Byte())
	if err := r.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	if kind == contracts.SubscriptionUnknown {
		return errNoSubscription
	}

	if err := d.as(contracts.MessageKindSubscription); err != nil {
		return err
	}
	if err := decodeSubscriptionFields(d.e, r, kind, critical); err != nil {
		return err
	}
	return d.as(contracts.MessageKindJMS)
}

func decodeSubscriptionFields(e *envelope.Envelope, r *wire.Reader, kind contracts.SubscriptionKind, critical bool) error {
	v, err := e.AsSubscriptionMessage()
	if err != nil {
		return err
	}
	if err := v.SetKind(kind); err != nil {
		return err
	}

	mask, err := fieldMask(r, 4, critical, "subscription")
	if err != nil {
		return err
	}
	if has(mask, 0) {
		if err := v.SetTopics(getStrings(r)); err != nil {
			return err
		}
	}
	if has(mask, 1) {
		if err := v.SetTopicSpaces(getStrings(r)); err != nil {
			return err
		}
	}
	if has(mask, 2) {
		if err := v.SetMEName(r.String()); err != nil {
			return err
		}
	}
	if has(mask, 3) {
		if err := v.SetMEUUID(r.UUID()); err != nil {
			return err
		}
	}
	return nil
}
