package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
)

const previewBytes = 64

// messageSummary is the printable form of an envelope
type messageSummary struct {
	MessageID      string            `json:"messageId"`
	Kind           string            `json:"kind"`
	Specialization string            `json:"specialization"`
	Producer       string            `json:"producer"`
	Persistence    string            `json:"persistence"`
	Priority       *int              `json:"priority,omitempty"`
	Origin         string            `json:"origin,omitempty"`
	Arrival        string            `json:"arrival,omitempty"`
	TimeToLiveMs   *int64            `json:"timeToLiveMs,omitempty"`
	DeliveryDelay  *int64            `json:"deliveryDelayMs,omitempty"`
	WaitTimeMs     int64             `json:"waitTimeMs"`
	Redelivered    int32             `json:"redeliveredCount"`
	CorrelationID  string            `json:"correlationId,omitempty"`
	JMSType        string            `json:"jmsType,omitempty"`
	Discriminator  string            `json:"discriminator,omitempty"`
	BusName        string            `json:"busName,omitempty"`
	UserID         string            `json:"userId,omitempty"`
	ForwardPath    []string          `json:"forwardPath,omitempty"`
	ReversePath    []string          `json:"reversePath,omitempty"`
	Fingerprints   []string          `json:"fingerprints,omitempty"`
	Exception      *exceptionSummary `json:"exception,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
	SystemContext  map[string]string `json:"systemContext,omitempty"`
	Body           []string          `json:"body,omitempty"`
}

type exceptionSummary struct {
	Reason              string   `json:"reason"`
	Message             string   `json:"message"`
	Inserts             []string `json:"inserts,omitempty"`
	Timestamp           string   `json:"timestamp,omitempty"`
	ProblemDestination  string   `json:"problemDestination,omitempty"`
	ProblemSubscription string   `json:"problemSubscription,omitempty"`
}

func summarize(env *envelope.Envelope) messageSummary {
	s := messageSummary{
		MessageID:      env.GetMessageID().String(),
		Kind:           env.GetMessageKind().String(),
		Specialization: env.Specialization().String(),
		Producer:       env.GetProducerKind().String(),
		Persistence:    env.GetPersistence().String(),
		WaitTimeMs:     env.GetWaitTime(),
		Redelivered:    env.GetRedeliveredCount(),
		CorrelationID:  env.GetCorrelationID(),
		JMSType:        env.GetJMSType(),
		Discriminator:  env.GetDiscriminator(),
		BusName:        env.GetBusName(),
		UserID:         env.GetSecurityUserID(),
		ForwardPath:    addresses(env.GetForwardPath()),
		ReversePath:    addresses(env.GetReversePath()),
	}

	if p, ok := env.GetPriority(); ok {
		s.Priority = &p
	}
	if ms, ok := env.GetOriginTimestamp(); ok {
		s.Origin = formatMillis(ms)
	}
	if ms, ok := env.GetArrivalTimestamp(); ok {
		s.Arrival = formatMillis(ms)
	}
	if ms, ok := env.GetTimeToLive(); ok {
		s.TimeToLiveMs = &ms
	}
	if ms, ok := env.GetDeliveryDelay(); ok {
		s.DeliveryDelay = &ms
	}
	if fps, ok := env.Fingerprints(); ok {
		s.Fingerprints = fps
	}
	if env.HasException() {
		s.Exception = summarizeException(env)
	}

	s.Properties = values(env.PropertyNames(), env.GetProperty)
	s.SystemContext = values(env.SystemContextNames(), env.GetSystemContext)
	s.Body = describeBody(env)
	return s
}

func summarizeException(env *envelope.Envelope) *exceptionSummary {
	reason, _ := env.GetExceptionReason()
	inserts, _ := env.GetExceptionInserts()
	ex := &exceptionSummary{
		Reason:  reason.String(),
		Message: reason.Format(inserts),
		Inserts: inserts,
	}
	if ms, ok := env.GetExceptionTimestamp(); ok {
		ex.Timestamp = formatMillis(ms)
	}
	ex.ProblemDestination, _ = env.GetExceptionProblemDestination()
	ex.ProblemSubscription, _ = env.GetExceptionProblemSubscription()
	return ex
}

func describeBody(env *envelope.Envelope) []string {
	switch env.Specialization() {
	case contracts.SpecializationRouting:
		return describeRouting(env)
	case contracts.SpecializationSubscription:
		return describeSubscription(env)
	case contracts.SpecializationGeneric:
		return nil
	}

	jms, err := env.AsJmsMessage()
	if err != nil {
		return []string{"error: " + err.Error()}
	}

	switch jms.BodyKind() {
	case contracts.JmsBodyText:
		tm, err := jms.AsText()
		if err != nil {
			return []string{"error: " + err.Error()}
		}
		if text, ok := tm.GetText(); ok {
			return []string{fmt.Sprintf("text: %q", text)}
		}
		return []string{"text: <unset>"}
	case contracts.JmsBodyBytes:
		bm, err := jms.AsBytes()
		if err != nil {
			return []string{"error: " + err.Error()}
		}
		return []string{fmt.Sprintf("bytes: %d", bm.Len()), "hex: " + hexPreview(bm.GetBytes())}
	case contracts.JmsBodyMap:
		mm, err := jms.AsMap()
		if err != nil {
			return []string{"error: " + err.Error()}
		}
		names := mm.Names()
		sort.Strings(names)
		lines := make([]string, 0, len(names))
		for _, name := range names {
			v, _ := mm.Get(name)
			lines = append(lines, fmt.Sprintf("%s = %v (%T)", name, v, v))
		}
		return lines
	case contracts.JmsBodyStream:
		sm, err := jms.AsStream()
		if err != nil {
			return []string{"error: " + err.Error()}
		}
		lines := make([]string, 0, sm.Len())
		for i, v := range sm.Values() {
			lines = append(lines, fmt.Sprintf("[%d] %v (%T)", i, v, v))
		}
		return lines
	case contracts.JmsBodyObject:
		om, err := jms.AsObject()
		if err != nil {
			return []string{"error: " + err.Error()}
		}
		typeName, data := om.GetSerialized()
		return []string{"type: " + typeName, "data: " + truncate(string(data), 200)}
	default:
		return nil
	}
}

func describeRouting(env *envelope.Envelope) []string {
	rv, err := env.AsRoutingMessage()
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	lines := []string{"subtype: " + rv.Subtype().String()}
	if me, ok := rv.GetOriginME(); ok {
		lines = append(lines, "origin ME: "+me.String())
	}
	for _, route := range rv.GetRoutes() {
		lines = append(lines, "route: "+route.String())
	}
	return lines
}

func describeSubscription(env *envelope.Envelope) []string {
	sv, err := env.AsSubscriptionMessage()
	if err != nil {
		return []string{"error: " + err.Error()}
	}
	lines := []string{"kind: " + sv.Kind().String()}
	if name, ok := sv.GetMEName(); ok {
		lines = append(lines, "ME name: "+name)
	}
	if id, ok := sv.GetMEUUID(); ok {
		lines = append(lines, "ME uuid: "+id.String())
	}
	if topics := sv.GetTopics(); len(topics) > 0 {
		lines = append(lines, "topics: "+strings.Join(topics, ", "))
	}
	if spaces := sv.GetTopicSpaces(); len(spaces) > 0 {
		lines = append(lines, "topic spaces: "+strings.Join(spaces, ", "))
	}
	return lines
}

func printSummary(w io.Writer, s messageSummary) {
	fmt.Fprintf(w, "Message %s\n", s.MessageID)
	fmt.Fprintf(w, "  Kind: %s (%s)\n", s.Kind, s.Specialization)
	fmt.Fprintf(w, "  Producer: %s\n", s.Producer)
	fmt.Fprintf(w, "  Persistence: %s\n", s.Persistence)
	if s.Priority != nil {
		fmt.Fprintf(w, "  Priority: %d\n", *s.Priority)
	} else {
		fmt.Fprintf(w, "  Priority: unset\n")
	}
	printOptional(w, "Origin", s.Origin)
	printOptional(w, "Arrival", s.Arrival)
	if s.TimeToLiveMs != nil {
		fmt.Fprintf(w, "  Time To Live: %s\n", time.Duration(*s.TimeToLiveMs)*time.Millisecond)
	}
	if s.DeliveryDelay != nil {
		fmt.Fprintf(w, "  Delivery Delay: %s\n", time.Duration(*s.DeliveryDelay)*time.Millisecond)
	}
	if s.WaitTimeMs > 0 {
		fmt.Fprintf(w, "  Wait Time: %s\n", time.Duration(s.WaitTimeMs)*time.Millisecond)
	}
	if s.Redelivered > 0 {
		fmt.Fprintf(w, "  Redelivered: %d\n", s.Redelivered)
	}
	printOptional(w, "Correlation ID", s.CorrelationID)
	printOptional(w, "JMS Type", s.JMSType)
	printOptional(w, "Discriminator", s.Discriminator)
	printOptional(w, "Bus", s.BusName)
	printOptional(w, "User", s.UserID)
	printList(w, "Forward Path", s.ForwardPath)
	printList(w, "Reverse Path", s.ReversePath)
	printList(w, "Fingerprints", s.Fingerprints)

	if ex := s.Exception; ex != nil {
		fmt.Fprintf(w, "  Exception: %s\n", ex.Reason)
		fmt.Fprintf(w, "    %s\n", ex.Message)
		if ex.Timestamp != "" {
			fmt.Fprintf(w, "    At: %s\n", ex.Timestamp)
		}
		if ex.ProblemDestination != "" {
			fmt.Fprintf(w, "    Destination: %s\n", ex.ProblemDestination)
		}
		if ex.ProblemSubscription != "" {
			fmt.Fprintf(w, "    Subscription: %s\n", ex.ProblemSubscription)
		}
	}

	printMap(w, "Properties", s.Properties)
	printMap(w, "System Context", s.SystemContext)
	printList(w, "Body", s.Body)
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

func printOptional(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "  %s: %s\n", label, value)
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "    %s\n", item)
	}
}

func printMap(w io.Writer, label string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "  %s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(w, "    %s: %s\n", k, m[k])
	}
}

func addresses(path []envelope.DestinationAddress) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, 0, len(path))
	for _, a := range path {
		hop := a.DestinationName
		if a.BusName != "" {
			hop += "@" + a.BusName
		}
		if a.LocalOnly {
			hop += " (local)"
		}
		out = append(out, hop)
	}
	return out
}

func values(names []string, get func(string) (interface{}, bool)) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, _ := get(name)
		out[name] = fmt.Sprintf("%v", v)
	}
	return out
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func hexPreview(b []byte) string {
	if len(b) > previewBytes {
		return hex.EncodeToString(b[:previewBytes]) + "..."
	}
	return hex.EncodeToString(b)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
