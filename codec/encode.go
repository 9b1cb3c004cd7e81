package codec

import (
	"errors"
	"fmt"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/wire"
	"github.com/google/uuid"
)

// Core header field bits, in write order
const (
	coreMessageID uint = iota
	coreMessageKind
	coreProducer
	corePhase
	corePersistence
	corePriority
	coreOriginTS
	coreArrivalTS
	coreWaitTime
	coreTimeToLive
	coreDeliveryDelay
	coreForwardPath
	coreReversePath
	coreDiscriminator
	coreBusName
	coreSecurityUser
	coreSentBySystem
	coreCorrelationID
	coreJMSType
	coreRedelivered
	coreBodyKind
	coreFingerprints
	coreFieldCount
)

var (
	errNoKind         = errors.New("message kind is not set")
	errNoSubtype      = errors.New("routing message has no subtype")
	errNoSubscription = errors.New("subscription message has no kind")
	errBodyNotJMS     = errors.New("only JMS messages carry a body")
	errStalePayload   = errors.New("payload does not match the message kind")
)

// encode writes the preamble and every slice of e at version v
func encode(e *envelope.Envelope, preamble []byte, v ProtocolVersion) ([][]byte, error) {
	if err := checkRequired(e); err != nil {
		return nil, err
	}

	head := wire.NewWriter(128)
	head.PutRaw(preamble)
	if err := encodeCore(e, head, v); err != nil {
		return nil, err
	}

	slices := [][]byte{head.Bytes()}
	for i := range sections {
		s := &sections[i]
		if s.since > v {
			continue
		}
		w := wire.NewWriter(64)
		w.PutByte(byte(s.id))
		if s.critical {
			w.PutByte(flagCritical)
		} else {
			w.PutByte(0)
		}
		present, err := s.encode(e, w)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if present {
			slices = append(slices, w.Bytes())
		}
	}
	return slices, nil
}

func checkRequired(e *envelope.Envelope) error {
	switch e.GetMessageKind() {
	case contracts.MessageKindUnknown:
		return errNoKind
	case contracts.MessageKindRouting:
		r, _ := e.AsRoutingMessage()
		if r.Subtype() == contracts.RoutingUnknown {
			return errNoSubtype
		}
	case contracts.MessageKindSubscription:
		s, _ := e.AsSubscriptionMessage()
		if s.Kind() == contracts.SubscriptionUnknown {
			return errNoSubscription
		}
	}
	if _, err := contracts.MessageKindOrdinals.MustOrdinal(e.GetMessageKind()); err != nil {
		return err
	}
	kind := e.GetMessageKind()
	if e.HasRoutingPayload() && kind != contracts.MessageKindRouting {
		return fmt.Errorf("%w: routing payload on a %s message", errStalePayload, kind)
	}
	if e.HasSubscriptionPayload() && kind != contracts.MessageKindSubscription {
		return fmt.Errorf("%w: subscription payload on a %s message", errStalePayload, kind)
	}
	return nil
}

func encodeCore(e *envelope.Envelope, w *wire.Writer, v ProtocolVersion) error {
	f := newFieldWriter()

	if id := e.GetMessageID(); id != uuid.Nil {
		f.field(coreMessageID).PutUUID(id)
	}

	kind, err := contracts.MessageKindOrdinals.MustOrdinal(e.GetMessageKind())
	if err != nil {
		return err
	}
	f.field(coreMessageKind).PutByte(kind)

	if p := e.GetProducerKind(); p != contracts.ProducerUnknown {
		ord, err := contracts.ProducerKindOrdinals.MustOrdinal(p)
		if err != nil {
			return err
		}
		f.field(coreProducer).PutByte(ord)
	}

	if phase, version := e.GetProtocolPhase(); phase != contracts.ProtocolPhaseUnknown || version != 0 {
		ord, err := contracts.ProtocolPhaseOrdinals.MustOrdinal(phase)
		if err != nil {
			return err
		}
		fw := f.field(corePhase)
		fw.PutByte(ord)
		fw.PutByte(version)
	}

	if p := e.GetPersistence(); p != contracts.PersistenceUnknown {
		ord, err := contracts.PersistenceKindOrdinals.MustOrdinal(p)
		if err != nil {
			return err
		}
		f.field(corePersistence).PutByte(ord)
	}

	if p, ok := e.GetPriority(); ok {
		f.field(corePriority).PutByte(byte(p))
	}
	if ts, ok := e.GetOriginTimestamp(); ok {
		f.field(coreOriginTS).PutVarint(ts)
	}
	if ts, ok := e.GetArrivalTimestamp(); ok {
		f.field(coreArrivalTS).PutVarint(ts)
	}
	if wt := e.GetWaitTime(); wt != 0 {
		f.field(coreWaitTime).PutVarint(wt)
	}
	if ttl, ok := e.GetTimeToLive(); ok {
		f.field(coreTimeToLive).PutVarint(ttl)
	}
	if d, ok := e.GetDeliveryDelay(); ok && v >= V3 {
		f.field(coreDeliveryDelay).PutVarint(d)
	}
	if path := e.GetForwardPath(); len(path) > 0 {
		putPath(f.field(coreForwardPath), path)
	}
	if path := e.GetReversePath(); len(path) > 0 {
		putPath(f.field(coreReversePath), path)
	}
	putOptString(f, coreDiscriminator, e.GetDiscriminator())
	putOptString(f, coreBusName, e.GetBusName())
	putOptString(f, coreSecurityUser, e.GetSecurityUserID())
	if e.IsSentBySystem() {
		f.field(coreSentBySystem)
	}
	putOptString(f, coreCorrelationID, e.GetCorrelationID())
	putOptString(f, coreJMSType, e.GetJMSType())
	if n := e.GetRedeliveredCount(); n != 0 {
		f.field(coreRedelivered).PutVarint(int64(n))
	}

	if bk := e.GetBodyKind(); bk != contracts.JmsBodyNull || e.GetMessageKind() == contracts.MessageKindJMS {
		ord, err := contracts.JmsBodyKindOrdinals.MustOrdinal(bk)
		if err != nil {
			return err
		}
		f.field(coreBodyKind).PutByte(ord)
	}

	if fp, ok := e.Fingerprints(); ok && v >= V2 {
		fw := f.field(coreFingerprints)
		fw.PutUvarint(uint64(len(fp)))
		for _, id := range fp {
			fw.PutString(id)
		}
	}

	f.flush(w)
	return nil
}

func putOptString(f *fieldWriter, bit uint, s string) {
	if s != "" {
		f.field(bit).PutString(s)
	}
}

func putPath(w *wire.Writer, path []envelope.DestinationAddress) {
	w.PutUvarint(uint64(len(path)))
	for _, hop := range path {
		w.PutString(hop.DestinationName)
		w.PutBool(hop.LocalOnly)
		w.PutUUID(hop.MEUUID)
		w.PutString(hop.BusName)
	}
}

func encodeGuaranteed(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasGuaranteed() {
		return false, nil
	}
	f := newFieldWriter()
	if id, ok := e.GetGuaranteedSourceME(); ok {
		f.field(0).PutUUID(id)
	}
	if id, ok := e.GetGuaranteedTargetME(); ok {
		f.field(1).PutUUID(id)
	}
	if id, ok := e.GetGuaranteedTargetDestDef(); ok {
		f.field(2).PutUUID(id)
	}
	if id, ok := e.GetGuaranteedStreamID(); ok {
		f.field(3).PutUUID(id)
	}
	if id, ok := e.GetGuaranteedGatheringTarget(); ok {
		f.field(4).PutUUID(id)
	}
	if p, ok := e.GetGuaranteedProtocolPhase(); ok {
		ord, err := contracts.ProtocolPhaseOrdinals.MustOrdinal(p)
		if err != nil {
			return false, err
		}
		f.field(5).PutByte(ord)
	}
	if v, ok := e.GetGuaranteedProtocolVersion(); ok {
		f.field(6).PutByte(v)
	}
	if t, ok := e.GetGuaranteedValueStartTick(); ok {
		f.field(7).PutVarint(t)
	}
	if t, ok := e.GetGuaranteedValueEndTick(); ok {
		f.field(8).PutVarint(t)
	}
	if t, ok := e.GetGuaranteedValueTick(); ok {
		f.field(9).PutVarint(t)
	}
	if t, ok := e.GetGuaranteedCompletedPrefix(); ok {
		f.field(10).PutVarint(t)
	}
	if b, ok := e.GetGuaranteedRequestedOnly(); ok {
		f.field(11).PutBool(b)
	}
	if f.empty() {
		return false, nil
	}
	f.flush(w)
	return true, nil
}

func encodeCrossBus(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasGuaranteedCrossBus() {
		return false, nil
	}
	f := newFieldWriter()
	if s, ok := e.GetGuaranteedCrossBusLinkName(); ok {
		f.field(0).PutString(s)
	}
	if s, ok := e.GetGuaranteedCrossBusSourceBusName(); ok {
		f.field(1).PutString(s)
	}
	if f.empty() {
		return false, nil
	}
	f.flush(w)
	return true, nil
}

func encodeRemoteBrowse(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasGuaranteedRemoteBrowse() {
		return false, nil
	}
	f := newFieldWriter()
	if n, ok := e.GetGuaranteedRemoteBrowseID(); ok {
		f.field(0).PutVarint(n)
	}
	if n, ok := e.GetGuaranteedRemoteBrowseSequenceNumber(); ok {
		f.field(1).PutVarint(n)
	}
	if f.empty() {
		return false, nil
	}
	f.flush(w)
	return true, nil
}

func encodeRemoteGet(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasGuaranteedRemoteGet() {
		return false, nil
	}
	f := newFieldWriter()
	if t, ok := e.GetGuaranteedRemoteGetPrevTick(); ok {
		f.field(0).PutVarint(t)
	}
	if t, ok := e.GetGuaranteedRemoteGetStartTick(); ok {
		f.field(1).PutVarint(t)
	}
	if t, ok := e.GetGuaranteedRemoteGetValueTick(); ok {
		f.field(2).PutVarint(t)
	}
	if ms, ok := e.GetGuaranteedRemoteGetWaitTime(); ok {
		f.field(3).PutVarint(ms)
	}
	if f.empty() {
		return false, nil
	}
	f.flush(w)
	return true, nil
}

func encodeException(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasException() {
		return false, nil
	}
	f := newFieldWriter()
	if r, ok := e.GetExceptionReason(); ok {
		f.field(0).PutVarint(int64(r))
	}
	if inserts, ok := e.GetExceptionInserts(); ok {
		fw := f.field(1)
		fw.PutUvarint(uint64(len(inserts)))
		for _, s := range inserts {
			fw.PutString(s)
		}
	}
	if ts, ok := e.GetExceptionTimestamp(); ok {
		f.field(2).PutVarint(ts)
	}
	if s, ok := e.GetExceptionProblemDestination(); ok {
		f.field(3).PutString(s)
	}
	if s, ok := e.GetExceptionProblemSubscription(); ok {
		f.field(4).PutString(s)
	}
	if f.empty() {
		return false, nil
	}
	f.flush(w)
	return true, nil
}

func encodeAudit(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	id, ok := e.GetAuditSessionID()
	if !ok {
		return false, nil
	}
	f := newFieldWriter()
	f.field(0).PutString(id)
	f.flush(w)
	return true, nil
}

func encodeProperties(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	names := e.PropertyNames()
	if len(names) == 0 {
		return false, nil
	}
	return true, putEntries(w, names, e.GetProperty)
}

func encodeSystemContext(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	names := e.SystemContextNames()
	if len(names) == 0 {
		return false, nil
	}
	return true, putEntries(w, names, e.GetSystemContext)
}

func encodeBody(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	if !e.HasBody() {
		return false, nil
	}
	jms, err := e.AsJmsMessage()
	if err != nil {
		return false, errBodyNotJMS
	}

	switch e.GetBodyKind() {
	case contracts.JmsBodyBytes:
		m, _ := jms.AsBytes()
		w.PutBytes(m.GetBytes())
	case contracts.JmsBodyText:
		m, _ := jms.AsText()
		text, _ := m.GetText()
		w.PutString(text)
	case contracts.JmsBodyMap:
		m, _ := jms.AsMap()
		return true, putEntries(w, m.Names(), m.Get)
	case contracts.JmsBodyStream:
		m, _ := jms.AsStream()
		values := m.Values()
		w.PutUvarint(uint64(len(values)))
		for i, v := range values {
			if err := putValue(w, v); err != nil {
				return false, fmt.Errorf("element %d: %w", i, err)
			}
		}
	case contracts.JmsBodyObject:
		m, _ := jms.AsObject()
		typeName, data := m.GetSerialized()
		w.PutString(typeName)
		w.PutBytes(data)
	default:
		return false, nil
	}
	return true, nil
}

func encodeRouting(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	r, err := e.AsRoutingMessage()
	if err != nil {
		return false, nil
	}
	ord, err := contracts.RoutingSubtypeOrdinals.MustOrdinal(r.Subtype())
	if err != nil {
		return false, err
	}
	w.PutByte(ord)

	f := newFieldWriter()
	if id, ok := r.GetOriginME(); ok {
		f.field(0).PutUUID(id)
	}
	if routes := r.GetRoutes(); len(routes) > 0 {
		fw := f.field(1)
		fw.PutUvarint(uint64(len(routes)))
		for _, id := range routes {
			fw.PutUUID(id)
		}
	}
	f.flush(w)
	return true, nil
}

func encodeSubscription(e *envelope.Envelope, w *wire.Writer) (bool, error) {
	s, err := e.AsSubscriptionMessage()
	if err != nil {
		return false, nil
	}
	ord, err := contracts.SubscriptionKindOrdinals.MustOrdinal(s.Kind())
	if err != nil {
		return false, err
	}
	w.PutByte(ord)

	f := newFieldWriter()
	if topics := s.GetTopics(); len(topics) > 0 {
		putStrings(f.field(0), topics)
	}
	if spaces := s.GetTopicSpaces(); len(spaces) > 0 {
		putStrings(f.field(1), spaces)
	}
	if name, ok := s.GetMEName(); ok {
		f.field(2).PutString(name)
	}
	if id, ok := s.GetMEUUID(); ok {
		f.field(3).PutUUID(id)
	}
	f.flush(w)
	return true, nil
}

func putStrings(w *wire.Writer, ss []string) {
	w.PutUvarint(uint64(len(ss)))
	for _, s := range ss {
		w.PutString(s)
	}
}
