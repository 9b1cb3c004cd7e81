package codec

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/wire"
	"github.com/glimte/mmate-mfp/metrics"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullMessage builds a JMS map message with every section populated
func fullMessage(t *testing.T, f *envelope.Factory) *envelope.Envelope {
	t.Helper()
	jms, err := f.NewJmsMessage(contracts.JmsBodyMap)
	require.NoError(t, err)
	mm, err := jms.AsMap()
	require.NoError(t, err)
	e := jms.Envelope()

	for _, kv := range []struct {
		name  string
		value interface{}
	}{
		{"bool", true},
		{"int8", int8(-8)},
		{"int16", int16(-1600)},
		{"char", uint16('z')},
		{"int32", int32(-320000)},
		{"int64", int64(1) << 40},
		{"float32", float32(3.25)},
		{"float64", -2.5e-10},
		{"string", "héllo"},
		{"bytes", []byte{0, 1, 2}},
		{"empty", []byte{}},
		{"nullBytes", []byte(nil)},
	} {
		require.NoError(t, mm.Set(kv.name, kv.value))
	}

	require.NoError(t, e.SetProducerKind(contracts.ProducerTargetProtocol))
	require.NoError(t, e.SetProtocolPhase(contracts.ProtocolPhaseDurableOut, 2))
	require.NoError(t, e.SetPersistence(contracts.PersistencePersistent))
	require.NoError(t, e.SetPriority(7))
	require.NoError(t, e.SetOriginTimestamp(1_700_000_000_000))
	require.NoError(t, e.SetArrivalTimestamp(1_700_000_000_250))
	require.NoError(t, e.SetWaitTime(250))
	require.NoError(t, e.SetTimeToLive(60_000))
	require.NoError(t, e.SetDeliveryDelay(500))
	require.NoError(t, e.SetForwardPath([]envelope.DestinationAddress{
		{DestinationName: "orders", MEUUID: uuid.New()},
		{DestinationName: "audit", LocalOnly: true, BusName: "remote"},
	}))
	require.NoError(t, e.SetReversePath([]envelope.DestinationAddress{{DestinationName: "replies"}}))
	require.NoError(t, e.SetDiscriminator("orders/eu"))
	require.NoError(t, e.SetBusName("bus-a"))
	require.NoError(t, e.SetSecurityUserID("svc-orders"))
	require.NoError(t, e.SetSentBySystem(true))
	require.NoError(t, e.SetCorrelationID("corr-1"))
	require.NoError(t, e.SetJMSType("OrderPlaced"))
	require.NoError(t, e.SetRedeliveredCount(3))

	require.NoError(t, e.SetGuaranteedSourceME(uuid.New()))
	require.NoError(t, e.SetGuaranteedTargetME(uuid.New()))
	require.NoError(t, e.SetGuaranteedStreamID(uuid.New()))
	require.NoError(t, e.SetGuaranteedProtocolPhase(contracts.ProtocolPhaseUnicastOut))
	require.NoError(t, e.SetGuaranteedProtocolVersion(1))
	require.NoError(t, e.SetGuaranteedValueStartTick(10))
	require.NoError(t, e.SetGuaranteedValueEndTick(20))
	require.NoError(t, e.SetGuaranteedValueTick(-1))
	require.NoError(t, e.SetGuaranteedRequestedOnly(false))
	require.NoError(t, e.SetGuaranteedCrossBusLinkName("link-1"))
	require.NoError(t, e.SetGuaranteedRemoteBrowseID(42))
	require.NoError(t, e.SetGuaranteedRemoteBrowseSequenceNumber(7))
	require.NoError(t, e.SetGuaranteedRemoteGetStartTick(100))
	require.NoError(t, e.SetGuaranteedRemoteGetWaitTime(250))
	require.NoError(t, e.SetExceptionReason(contracts.ReasonHandlerFailed))
	require.NoError(t, e.SetExceptionInserts([]string{"orders", "boom"}))
	require.NoError(t, e.SetExceptionTimestamp(1_700_000_000_500))
	require.NoError(t, e.SetExceptionProblemDestination("orders"))
	require.NoError(t, e.SetAuditSessionID("session-9"))

	require.NoError(t, e.SetProperty("region", "eu"))
	require.NoError(t, e.SetProperty("attempt", int32(2)))
	require.NoError(t, e.SetSystemContext("trace", "abc"))
	require.NoError(t, e.SetSystemContext("parent", nil))
	require.NoError(t, e.AddFingerprint("me-1"))
	require.NoError(t, e.AddFingerprint("me-2"))
	require.NoError(t, e.AddFingerprint("me-1"))
	return e
}

func assertSameMessage(t *testing.T, want, got *envelope.Envelope) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded envelope differs (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)
	e := fullMessage(t, f)

	t.Run("transport at current version", func(t *testing.T) {
		slices, err := c.EncodeForTransport(e, Current)
		require.NoError(t, err)
		assert.Equal(t, transportMagic, slices[0][:4])

		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)
		assertSameMessage(t, e, got)
		assert.False(t, got.IsSent())
	})

	t.Run("persistence", func(t *testing.T) {
		slices, err := c.EncodeForPersistence(e)
		require.NoError(t, err)
		assert.Equal(t, persistenceMagic, slices[0][:4])

		got, err := c.Unflatten(slices)
		require.NoError(t, err)
		assertSameMessage(t, e, got)
		assert.Equal(t, contracts.SpecializationJmsMap, got.Specialization())
	})

	t.Run("frozen envelopes encode", func(t *testing.T) {
		sent, err := e.SnapshotForSend(true)
		require.NoError(t, err)
		require.True(t, e.IsSent())

		slices, err := c.EncodeForTransport(e, Current)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)
		assertSameMessage(t, sent, got)
	})

	t.Run("transport and persistence forms are not interchangeable", func(t *testing.T) {
		slices, err := c.EncodeForTransport(fullMessage(t, f), Current)
		require.NoError(t, err)
		_, err = c.Unflatten(slices)
		assert.ErrorIs(t, err, contracts.ErrDecodeFailed)
	})
}

func TestBodyRoundTrip(t *testing.T) {
	payload := map[string]interface{}{"k": "v"}
	f := envelope.NewFactory()
	c := New(f)

	tests := []struct {
		name string
		kind contracts.JmsBodyKind
		fill func(t *testing.T, jms *envelope.JmsView)
	}{
		{"null body", contracts.JmsBodyNull, func(t *testing.T, jms *envelope.JmsView) {}},
		{"empty bytes", contracts.JmsBodyBytes, func(t *testing.T, jms *envelope.JmsView) {
			m, _ := jms.AsBytes()
			require.NoError(t, m.SetBytes([]byte{}))
		}},
		{"bytes", contracts.JmsBodyBytes, func(t *testing.T, jms *envelope.JmsView) {
			m, _ := jms.AsBytes()
			require.NoError(t, m.SetBytes([]byte("payload")))
		}},
		{"unset text", contracts.JmsBodyText, func(t *testing.T, jms *envelope.JmsView) {}},
		{"empty text", contracts.JmsBodyText, func(t *testing.T, jms *envelope.JmsView) {
			m, _ := jms.AsText()
			require.NoError(t, m.SetText(""))
		}},
		{"stream", contracts.JmsBodyStream, func(t *testing.T, jms *envelope.JmsView) {
			m, _ := jms.AsStream()
			for _, v := range []interface{}{int8(1), nil, "two", []byte{3}, float64(4), uint16('5')} {
				require.NoError(t, m.Write(v))
			}
			_, err := m.ReadInt8()
			require.NoError(t, err)
		}},
		{"object", contracts.JmsBodyObject, func(t *testing.T, jms *envelope.JmsView) {
			m, _ := jms.AsObject()
			require.NoError(t, m.SetObject(payload))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jms, err := f.NewJmsMessage(tt.kind)
			require.NoError(t, err)
			tt.fill(t, jms)
			e := jms.Envelope()

			slices, err := c.EncodeForPersistence(e)
			require.NoError(t, err)
			got, err := c.Unflatten(slices)
			require.NoError(t, err)

			assertSameMessage(t, e, got)
			assert.Equal(t, e.HasBody(), got.HasBody())
			assert.Equal(t, tt.kind, got.GetBodyKind())
		})
	}

	t.Run("stream cursor is reset", func(t *testing.T) {
		jms, _ := f.NewJmsMessage(contracts.JmsBodyStream)
		m, _ := jms.AsStream()
		require.NoError(t, m.Write(int32(1)))
		require.NoError(t, m.Write(int32(2)))
		_, _ = m.ReadInt32()

		slices, err := c.EncodeForTransport(jms.Envelope(), Current)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		gj, _ := got.AsJmsMessage()
		gs, _ := gj.AsStream()
		v, err := gs.ReadInt32()
		require.NoError(t, err)
		assert.Equal(t, int32(1), v)
	})

	t.Run("object materializes lazily after decode", func(t *testing.T) {
		jms, _ := f.NewJmsMessage(contracts.JmsBodyObject)
		m, _ := jms.AsObject()
		require.NoError(t, m.SetObject(map[string]interface{}{"sku": "A-1"}))

		slices, err := c.EncodeForTransport(jms.Envelope(), Current)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		gj, _ := got.AsJmsMessage()
		gm, _ := gj.AsObject()
		v, err := gm.GetObject()
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"sku": "A-1"}, v)
	})
}

func TestSpecializedRoundTrip(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)

	t.Run("routing", func(t *testing.T) {
		r, err := f.NewRoutingMessage(contracts.RoutingMELinkRequest)
		require.NoError(t, err)
		require.NoError(t, r.SetOriginME(uuid.New()))
		require.NoError(t, r.SetRoutes([]uuid.UUID{uuid.New(), uuid.New()}))
		require.NoError(t, r.Envelope().SetPriority(9))

		slices, err := c.EncodeForPersistence(r.Envelope())
		require.NoError(t, err)
		got, err := c.Unflatten(slices)
		require.NoError(t, err)

		assertSameMessage(t, r.Envelope(), got)
		gr, err := got.AsRoutingMessage()
		require.NoError(t, err)
		assert.Equal(t, contracts.RoutingMELinkRequest, gr.Subtype())
		_, err = got.AsJmsMessage()
		assert.ErrorIs(t, err, contracts.ErrIncorrectKind)
	})

	t.Run("subscription", func(t *testing.T) {
		s, err := f.NewSubscriptionMessage(contracts.SubscriptionCreate)
		require.NoError(t, err)
		require.NoError(t, s.SetTopics([]string{"orders/#"}))
		require.NoError(t, s.SetTopicSpaces([]string{"default"}))
		require.NoError(t, s.SetMEName("me-east"))
		require.NoError(t, s.SetMEUUID(uuid.New()))

		slices, err := c.EncodeForTransport(s.Envelope(), V1)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		assertSameMessage(t, s.Envelope(), got)
		assert.Equal(t, contracts.SpecializationSubscription, got.Specialization())
	})

	t.Run("generic kinds", func(t *testing.T) {
		e := f.New(contracts.MessageKindControl)
		require.NoError(t, e.SetProperty("op", "flush"))

		slices, err := c.EncodeForPersistence(e)
		require.NoError(t, err)
		got, err := c.Unflatten(slices)
		require.NoError(t, err)
		assertSameMessage(t, e, got)
		assert.Equal(t, contracts.SpecializationGeneric, got.Specialization())
	})
}

func TestNaNRoundTrip(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)

	jms, err := f.NewJmsMessage(contracts.JmsBodyStream)
	require.NoError(t, err)
	sm, err := jms.AsStream()
	require.NoError(t, err)
	require.NoError(t, sm.Write(math.NaN()))
	require.NoError(t, sm.Write(float32(math.NaN())))
	e := jms.Envelope()
	require.NoError(t, e.SetProperty("ratio", math.NaN()))

	slices, err := c.EncodeForPersistence(e)
	require.NoError(t, err)
	got, err := c.Unflatten(slices)
	require.NoError(t, err)

	assert.True(t, e.Equal(got))
	assert.True(t, e.Equal(e))
}

func TestPersistAndRecoverText(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)

	jms, err := f.NewJmsMessage(contracts.JmsBodyText)
	require.NoError(t, err)
	tm, err := jms.AsText()
	require.NoError(t, err)
	require.NoError(t, tm.SetText("hello"))
	require.NoError(t, jms.Envelope().SetPriority(4))

	slices, err := c.EncodeForPersistence(jms.Envelope())
	require.NoError(t, err)

	recovered, err := c.Unflatten(slices)
	require.NoError(t, err)

	rj, err := recovered.AsJmsMessage()
	require.NoError(t, err)
	rt, err := rj.AsText()
	require.NoError(t, err)
	text, ok := rt.GetText()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)

	p, ok := recovered.GetPriority()
	assert.True(t, ok)
	assert.Equal(t, 4, p)
}

func TestOptionalSectionsStayAbsent(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)

	jms, _ := f.NewJmsMessage(contracts.JmsBodyText)
	e := jms.Envelope()
	require.NoError(t, e.SetGuaranteedStreamID(uuid.New()))

	slices, err := c.EncodeForTransport(e, Current)
	require.NoError(t, err)
	require.Len(t, slices, 2, "core and guaranteed only")

	got, err := c.DecodeFromTransport(slices)
	require.NoError(t, err)
	assert.True(t, got.HasGuaranteed())
	for name, present := range map[string]bool{
		"crossBus":     got.HasGuaranteedCrossBus(),
		"remoteBrowse": got.HasGuaranteedRemoteBrowse(),
		"remoteGet":    got.HasGuaranteedRemoteGet(),
		"exception":    got.HasException(),
		"audit":        got.HasAudit(),
		"body":         got.HasBody(),
	} {
		assert.False(t, present, name)
	}
	_, tracked := got.Fingerprints()
	assert.False(t, tracked)
	_, ok := got.GetPriority()
	assert.False(t, ok)
}

func TestVersionTrimming(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)
	e := fullMessage(t, f)

	t.Run("v1 drops newer content", func(t *testing.T) {
		slices, err := c.EncodeForTransport(e, V1)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		assert.False(t, got.HasGuaranteedRemoteBrowse())
		assert.False(t, got.HasGuaranteedRemoteGet())
		assert.False(t, got.HasAudit())
		assert.Empty(t, got.SystemContextNames())
		_, ok := got.GetDeliveryDelay()
		assert.False(t, ok)
		_, ok = got.Fingerprints()
		assert.False(t, ok)

		assert.True(t, got.HasGuaranteed())
		assert.True(t, got.HasException())
		assert.Equal(t, e.PropertyNames(), got.PropertyNames())
	})

	t.Run("v2 keeps fingerprints", func(t *testing.T) {
		slices, err := c.EncodeForTransport(e, V2)
		require.NoError(t, err)
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		fp, ok := got.Fingerprints()
		assert.True(t, ok)
		assert.Equal(t, []string{"me-1", "me-2", "me-1"}, fp)
		assert.True(t, got.HasGuaranteedRemoteGet())
		assert.False(t, got.HasAudit())
	})

	t.Run("unsupported versions are refused", func(t *testing.T) {
		for _, v := range []ProtocolVersion{0, Current + 1} {
			_, err := c.EncodeForTransport(e, v)
			assert.ErrorIs(t, err, contracts.ErrEncodeFailed, v.String())
		}
	})
}

func TestEncodeFailures(t *testing.T) {
	f := envelope.NewFactory()

	t.Run("unknown message kind", func(t *testing.T) {
		_, err := New(f).EncodeForPersistence(f.New(contracts.MessageKindUnknown))
		assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
		assert.True(t, contracts.IsFatal(err))
	})

	t.Run("body on a non JMS message", func(t *testing.T) {
		jms, _ := f.NewJmsMessage(contracts.JmsBodyText)
		tm, _ := jms.AsText()
		require.NoError(t, tm.SetText("x"))
		require.NoError(t, jms.Envelope().SetMessageKind(contracts.MessageKindAdmin))

		_, err := New(f).EncodeForTransport(jms.Envelope(), Current)
		assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
	})

	t.Run("payload left behind by a kind change", func(t *testing.T) {
		tests := []struct {
			name string
			kind contracts.MessageKind
			make func(t *testing.T) *envelope.Envelope
		}{
			{"routing payload on an SDO message", contracts.MessageKindSDO, func(t *testing.T) *envelope.Envelope {
				r, err := f.NewRoutingMessage(contracts.RoutingRouteData)
				require.NoError(t, err)
				require.NoError(t, r.SetOriginME(uuid.New()))
				return r.Envelope()
			}},
			{"subscription payload on a control message", contracts.MessageKindControl, func(t *testing.T) *envelope.Envelope {
				s, err := f.NewSubscriptionMessage(contracts.SubscriptionCreate)
				require.NoError(t, err)
				require.NoError(t, s.SetTopics([]string{"orders/#"}))
				return s.Envelope()
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e := tt.make(t)
				require.NoError(t, e.SetMessageKind(tt.kind))

				slices, err := New(f).EncodeForPersistence(e)
				assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
				assert.Nil(t, slices)

				_, err = New(f).EncodeForTransport(e, Current)
				assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
			})
		}
	})

	t.Run("slice above the size limit", func(t *testing.T) {
		jms, _ := f.NewJmsMessage(contracts.JmsBodyBytes)
		bm, _ := jms.AsBytes()
		require.NoError(t, bm.SetBytes(make([]byte, 256)))

		slices, err := New(f, WithMaxSliceBytes(128)).EncodeForTransport(jms.Envelope(), Current)
		assert.ErrorIs(t, err, contracts.ErrEncodeFailed)
		assert.Nil(t, slices)
	})
}

func textSlices(t *testing.T, c *Codec, text string) [][]byte {
	t.Helper()
	jms, err := c.factory.NewJmsMessage(contracts.JmsBodyText)
	require.NoError(t, err)
	tm, _ := jms.AsText()
	require.NoError(t, tm.SetText(text))
	slices, err := c.EncodeForTransport(jms.Envelope(), Current)
	require.NoError(t, err)
	require.Len(t, slices, 2)
	return slices
}

func coreSlice(mask uint64, fields func(w *wire.Writer)) []byte {
	w := wire.NewWriter(32)
	w.PutRaw(transportMagic)
	w.PutByte(formatVersion)
	w.PutByte(byte(Current))
	w.PutUvarint(mask)
	fields(w)
	return w.Bytes()
}

func TestDecodeFailsClosed(t *testing.T) {
	c := New(envelope.NewFactory())

	tests := []struct {
		name   string
		slices func(t *testing.T) [][]byte
	}{
		{"no slices", func(t *testing.T) [][]byte { return nil }},
		{"bad magic", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			s[0][0] = 'X'
			return s
		}},
		{"unsupported format version", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			s[0][4] = 9
			return s
		}},
		{"truncated core", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			s[0] = s[0][:len(s[0])-1]
			return s
		}},
		{"truncated section", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hello")
			s[1] = s[1][:len(s[1])-1]
			return s
		}},
		{"trailing bytes in a critical section", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			s[1] = append(s[1], 0)
			return s
		}},
		{"duplicate section", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			return append(s, s[1])
		}},
		{"unknown critical section", func(t *testing.T) [][]byte {
			return append(textSlices(t, c, "hi"), []byte{99, flagCritical, 1, 2})
		}},
		{"reserved message kind ordinal", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind, func(w *wire.Writer) { w.PutByte(2) })}
		}},
		{"missing message kind", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreBusName, func(w *wire.Writer) { w.PutString("bus") })}
		}},
		{"unknown core field", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind|1<<40, func(w *wire.Writer) { w.PutByte(3) })}
		}},
		{"JMS message without body kind", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind, func(w *wire.Writer) { w.PutByte(3) })}
		}},
		{"unknown body kind ordinal", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind|1<<coreBodyKind, func(w *wire.Writer) {
				w.PutByte(3)
				w.PutByte(77)
			})}
		}},
		{"priority out of range", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind|1<<corePriority|1<<coreBodyKind, func(w *wire.Writer) {
				w.PutByte(3)
				w.PutByte(10)
				w.PutByte(5)
			})}
		}},
		{"routing message without payload", func(t *testing.T) [][]byte {
			return [][]byte{coreSlice(1<<coreMessageKind, func(w *wire.Writer) { w.PutByte(1) })}
		}},
		{"unknown value tag", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			w := wire.NewWriter(8)
			w.PutByte(byte(secProperties))
			w.PutByte(flagCritical)
			w.PutUvarint(1)
			w.PutString("k")
			w.PutByte(99)
			return append(s, w.Bytes())
		}},
		{"unknown field in a critical section", func(t *testing.T) [][]byte {
			s := textSlices(t, c, "hi")
			w := wire.NewWriter(8)
			w.PutByte(byte(secGuaranteed))
			w.PutByte(flagCritical)
			w.PutUvarint(1 << 12)
			return append(s, w.Bytes())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := c.DecodeFromTransport(tt.slices(t))
			assert.Nil(t, env)
			assert.ErrorIs(t, err, contracts.ErrDecodeFailed)
			assert.True(t, contracts.IsFatal(err))
		})
	}
}

func TestDecodeSkipsUnknownOptionalContent(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	c := New(envelope.NewFactory(), WithLogger(logger))

	t.Run("unknown non critical section", func(t *testing.T) {
		slices := append(textSlices(t, c, "hi"), []byte{99, 0, 0xde, 0xad})
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)

		jms, _ := got.AsJmsMessage()
		tm, _ := jms.AsText()
		text, _ := tm.GetText()
		assert.Equal(t, "hi", text)
		assert.Contains(t, logs.String(), "skipping unknown section")
	})

	t.Run("unknown fields of the exception section", func(t *testing.T) {
		w := wire.NewWriter(16)
		w.PutByte(byte(secException))
		w.PutByte(0)
		w.PutUvarint(1<<0 | 1<<7)
		w.PutVarint(int64(contracts.ReasonHandlerFailed))
		w.PutRaw([]byte{0xff, 0xff})

		got, err := c.DecodeFromTransport(append(textSlices(t, c, "hi"), w.Bytes()))
		require.NoError(t, err)
		reason, ok := got.GetExceptionReason()
		assert.True(t, ok)
		assert.Equal(t, contracts.ReasonHandlerFailed, reason)
	})

	t.Run("unknown producer ordinal decodes as unknown", func(t *testing.T) {
		slices := [][]byte{coreSlice(1<<coreMessageKind|1<<coreProducer|1<<coreBodyKind, func(w *wire.Writer) {
			w.PutByte(3)
			w.PutByte(200)
			w.PutByte(5)
		})}
		got, err := c.DecodeFromTransport(slices)
		require.NoError(t, err)
		assert.Equal(t, contracts.ProducerUnknown, got.GetProducerKind())
	})
}

func TestUnflattenChecksSpecialization(t *testing.T) {
	f := envelope.NewFactory()
	c := New(f)
	jms, _ := f.NewJmsMessage(contracts.JmsBodyText)

	slices, err := c.EncodeForPersistence(jms.Envelope())
	require.NoError(t, err)

	ord, _ := contracts.SpecializationOrdinals.Ordinal(contracts.SpecializationJmsBytes)
	slices[0][6] = ord

	_, err = c.Unflatten(slices)
	assert.ErrorIs(t, err, contracts.ErrDecodeFailed)
	assert.Contains(t, err.Error(), "JMS_BYTES")
}

func TestCodecMetrics(t *testing.T) {
	collector := metrics.NewSimpleCollector()
	f := envelope.NewFactory()
	c := New(f, WithMetrics(collector))

	jms, _ := f.NewJmsMessage(contracts.JmsBodyText)
	slices, err := c.EncodeForTransport(jms.Envelope(), Current)
	require.NoError(t, err)
	_, err = c.DecodeFromTransport(slices)
	require.NoError(t, err)
	_, err = c.DecodeFromTransport(nil)
	require.Error(t, err)

	s := collector.Summary()
	assert.Equal(t, int64(1), s.Counts[metrics.OpEncode])
	assert.Equal(t, int64(2), s.Counts[metrics.OpDecode])
	assert.Equal(t, int64(1), s.Errors[metrics.OpDecode]["decode_failed"])
}

func TestNegotiateVersion(t *testing.T) {
	tests := []struct {
		peer    string
		want    ProtocolVersion
		wantErr bool
	}{
		{peer: "3.0.0", want: V3},
		{peer: "4.2.1", want: V3},
		{peer: "2.9.9", want: V2},
		{peer: "2.0.0", want: V2},
		{peer: "1.4.0", want: V1},
		{peer: "0.9.0", wantErr: true},
		{peer: "not-a-version", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.peer, func(t *testing.T) {
			got, err := NegotiateVersion(tt.peer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
