package envelope

import (
	"testing"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newText(t *testing.T, f *Factory) *Envelope {
	t.Helper()
	jms, err := f.NewJmsMessage(contracts.JmsBodyText)
	require.NoError(t, err)
	return jms.Envelope()
}

func TestFactory(t *testing.T) {
	t.Run("assigns a fresh message id", func(t *testing.T) {
		f := NewFactory()
		a := f.New(contracts.MessageKindJMS)
		b := f.New(contracts.MessageKindJMS)

		assert.NotEqual(t, uuid.Nil, a.GetMessageID())
		assert.NotEqual(t, a.GetMessageID(), b.GetMessageID())
		assert.Equal(t, contracts.ProducerAPI, a.GetProducerKind())
	})

	t.Run("uses injected id generator", func(t *testing.T) {
		id := uuid.MustParse("5f1c7a52-0c2b-4a77-9d2e-3c1f0e9a8b7c")
		f := NewFactory(WithIDGenerator(func() uuid.UUID { return id }))

		assert.Equal(t, id, f.New(contracts.MessageKindControl).GetMessageID())
	})

	t.Run("shapes jms messages", func(t *testing.T) {
		jms, err := NewFactory().NewJmsMessage(contracts.JmsBodyMap)
		require.NoError(t, err)

		assert.Equal(t, contracts.MessageKindJMS, jms.Envelope().GetMessageKind())
		assert.Equal(t, contracts.JmsBodyMap, jms.BodyKind())
		assert.Equal(t, contracts.SpecializationJmsMap, jms.Envelope().Specialization())
	})

	t.Run("rejects unknown body kind", func(t *testing.T) {
		_, err := NewFactory().NewJmsMessage(contracts.JmsBodyKind(42))
		assert.ErrorIs(t, err, contracts.ErrInvalidValue)
	})

	t.Run("shapes routing and subscription messages", func(t *testing.T) {
		f := NewFactory()

		r, err := f.NewRoutingMessage(contracts.RoutingMELinkRequest)
		require.NoError(t, err)
		assert.Equal(t, contracts.RoutingMELinkRequest, r.Subtype())
		assert.Equal(t, contracts.SpecializationRouting, r.Envelope().Specialization())

		s, err := f.NewSubscriptionMessage(contracts.SubscriptionCreate)
		require.NoError(t, err)
		assert.Equal(t, contracts.SubscriptionCreate, s.Kind())

		_, err = f.NewRoutingMessage(contracts.RoutingUnknown)
		assert.ErrorIs(t, err, contracts.ErrInvalidValue)
		_, err = f.NewSubscriptionMessage(contracts.SubscriptionUnknown)
		assert.ErrorIs(t, err, contracts.ErrInvalidValue)
	})

	t.Run("generic kinds have no specialization", func(t *testing.T) {
		e := NewFactory().New(contracts.MessageKindAdmin)
		assert.Equal(t, contracts.SpecializationGeneric, e.Specialization())
	})
}

func TestOptionalSectionsStartUnset(t *testing.T) {
	e := newText(t, NewFactory())

	assert.False(t, e.HasGuaranteed())
	assert.False(t, e.HasGuaranteedCrossBus())
	assert.False(t, e.HasGuaranteedRemoteBrowse())
	assert.False(t, e.HasGuaranteedRemoteGet())
	assert.False(t, e.HasException())
	assert.False(t, e.HasAudit())

	unsetUUID := []func() (uuid.UUID, bool){
		e.GetGuaranteedSourceME,
		e.GetGuaranteedTargetME,
		e.GetGuaranteedTargetDestDef,
		e.GetGuaranteedStreamID,
		e.GetGuaranteedGatheringTarget,
	}
	for _, get := range unsetUUID {
		_, ok := get()
		assert.False(t, ok)
	}

	unsetInt := []func() (int64, bool){
		e.GetGuaranteedValueStartTick,
		e.GetGuaranteedValueEndTick,
		e.GetGuaranteedValueTick,
		e.GetGuaranteedCompletedPrefix,
		e.GetGuaranteedRemoteBrowseID,
		e.GetGuaranteedRemoteBrowseSequenceNumber,
		e.GetGuaranteedRemoteGetPrevTick,
		e.GetGuaranteedRemoteGetStartTick,
		e.GetGuaranteedRemoteGetValueTick,
		e.GetGuaranteedRemoteGetWaitTime,
		e.GetExceptionTimestamp,
		e.GetTimeToLive,
		e.GetDeliveryDelay,
		e.GetOriginTimestamp,
		e.GetArrivalTimestamp,
	}
	for _, get := range unsetInt {
		_, ok := get()
		assert.False(t, ok)
	}

	unsetString := []func() (string, bool){
		e.GetGuaranteedCrossBusLinkName,
		e.GetGuaranteedCrossBusSourceBusName,
		e.GetExceptionProblemDestination,
		e.GetExceptionProblemSubscription,
		e.GetAuditSessionID,
	}
	for _, get := range unsetString {
		_, ok := get()
		assert.False(t, ok)
	}

	_, ok := e.GetPriority()
	assert.False(t, ok)
	_, ok = e.GetGuaranteedProtocolPhase()
	assert.False(t, ok)
	_, ok = e.GetGuaranteedProtocolVersion()
	assert.False(t, ok)
	_, ok = e.GetGuaranteedRequestedOnly()
	assert.False(t, ok)
	_, ok = e.GetExceptionReason()
	assert.False(t, ok)
	_, ok = e.GetExceptionInserts()
	assert.False(t, ok)
	_, ok = e.Fingerprints()
	assert.False(t, ok)
}

func TestSections(t *testing.T) {
	t.Run("setting a field allocates only its section", func(t *testing.T) {
		e := newText(t, NewFactory())
		me := uuid.New()

		require.NoError(t, e.SetGuaranteedSourceME(me))

		assert.True(t, e.HasGuaranteed())
		got, ok := e.GetGuaranteedSourceME()
		assert.True(t, ok)
		assert.Equal(t, me, got)

		_, ok = e.GetGuaranteedTargetME()
		assert.False(t, ok, "sibling fields stay unset")
		assert.False(t, e.HasGuaranteedRemoteGet())
	})

	t.Run("zero values are distinguishable from unset", func(t *testing.T) {
		e := newText(t, NewFactory())
		require.NoError(t, e.SetGuaranteedValueTick(0))
		require.NoError(t, e.SetGuaranteedRequestedOnly(false))

		tick, ok := e.GetGuaranteedValueTick()
		assert.True(t, ok)
		assert.Zero(t, tick)
		flag, ok := e.GetGuaranteedRequestedOnly()
		assert.True(t, ok)
		assert.False(t, flag)
	})

	t.Run("clearing deallocates the section", func(t *testing.T) {
		e := newText(t, NewFactory())
		require.NoError(t, e.SetGuaranteedRemoteBrowseID(7))
		require.NoError(t, e.SetGuaranteedRemoteGetWaitTime(250))
		require.NoError(t, e.SetGuaranteedCrossBusLinkName("link-a"))

		require.NoError(t, e.ClearGuaranteedRemoteBrowse())
		assert.False(t, e.HasGuaranteedRemoteBrowse())
		_, ok := e.GetGuaranteedRemoteBrowseID()
		assert.False(t, ok)
		assert.True(t, e.HasGuaranteedRemoteGet(), "other sections are kept")

		require.NoError(t, e.ClearGuaranteedRemoteGet())
		require.NoError(t, e.ClearGuaranteedCrossBus())
		assert.False(t, e.HasGuaranteedRemoteGet())
		assert.False(t, e.HasGuaranteedCrossBus())
	})

	t.Run("invalid remote get wait time leaves section absent", func(t *testing.T) {
		e := newText(t, NewFactory())
		err := e.SetGuaranteedRemoteGetWaitTime(-1)
		assert.ErrorIs(t, err, contracts.ErrInvalidValue)
		assert.False(t, e.HasGuaranteedRemoteGet())
	})

	t.Run("exception inserts are copied", func(t *testing.T) {
		e := newText(t, NewFactory())
		inserts := []string{"queue.orders", "boom"}
		require.NoError(t, e.SetExceptionReason(contracts.ReasonHandlerFailed))
		require.NoError(t, e.SetExceptionInserts(inserts))

		inserts[0] = "mutated"
		got, ok := e.GetExceptionInserts()
		require.True(t, ok)
		assert.Equal(t, []string{"queue.orders", "boom"}, got)

		got[1] = "mutated"
		again, _ := e.GetExceptionInserts()
		assert.Equal(t, "boom", again[1])
	})
}

func TestBoundaryChecks(t *testing.T) {
	tests := []struct {
		name    string
		set     func(e *Envelope) error
		wantErr bool
	}{
		{"priority 0", func(e *Envelope) error { return e.SetPriority(0) }, false},
		{"priority 9", func(e *Envelope) error { return e.SetPriority(9) }, false},
		{"priority 10", func(e *Envelope) error { return e.SetPriority(10) }, true},
		{"priority -1", func(e *Envelope) error { return e.SetPriority(-1) }, true},
		{"ttl 0", func(e *Envelope) error { return e.SetTimeToLive(0) }, false},
		{"ttl max", func(e *Envelope) error { return e.SetTimeToLive(MaxTimeToLive) }, false},
		{"ttl above max", func(e *Envelope) error { return e.SetTimeToLive(MaxTimeToLive + 1) }, true},
		{"ttl negative", func(e *Envelope) error { return e.SetTimeToLive(-5) }, true},
		{"delay max", func(e *Envelope) error { return e.SetDeliveryDelay(MaxTimeToLive) }, false},
		{"delay above max", func(e *Envelope) error { return e.SetDeliveryDelay(MaxTimeToLive + 1) }, true},
		{"negative wait time", func(e *Envelope) error { return e.SetWaitTime(-1) }, true},
		{"negative redelivered count", func(e *Envelope) error { return e.SetRedeliveredCount(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newText(t, NewFactory())
			err := tt.set(e)
			if tt.wantErr {
				assert.ErrorIs(t, err, contracts.ErrInvalidValue)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("rejected priority is not clamped", func(t *testing.T) {
		e := newText(t, NewFactory())
		require.NoError(t, e.SetPriority(3))
		require.Error(t, e.SetPriority(10))

		p, ok := e.GetPriority()
		assert.True(t, ok)
		assert.Equal(t, 3, p)
	})
}

func TestFreeze(t *testing.T) {
	t.Run("send freezes the original and not the snapshot", func(t *testing.T) {
		e := newText(t, NewFactory())
		require.NoError(t, e.SetPriority(4))

		snap, err := e.SnapshotForSend(true)
		require.NoError(t, err)

		assert.True(t, e.IsSent())
		assert.False(t, snap.IsSent())

		err = e.SetPriority(5)
		assert.ErrorIs(t, err, contracts.ErrFrozenEnvelope)
		assert.True(t, contracts.IsFatal(err))

		require.NoError(t, snap.SetPriority(5))
		p, _ := e.GetPriority()
		assert.Equal(t, 4, p)
	})

	t.Run("every setter family rejects a frozen envelope", func(t *testing.T) {
		e := newText(t, NewFactory())
		e.MarkSent()
		text, err := e.AsJmsMessage()
		require.NoError(t, err)
		tm, err := text.AsText()
		require.NoError(t, err)

		setters := map[string]func() error{
			"core":        func() error { return e.SetBusName("bus") },
			"guaranteed":  func() error { return e.SetGuaranteedStreamID(uuid.New()) },
			"cross bus":   func() error { return e.SetGuaranteedCrossBusLinkName("l") },
			"exception":   func() error { return e.SetExceptionTimestamp(1) },
			"audit":       func() error { return e.SetAuditSessionID("s") },
			"clear":       func() error { return e.ClearGuaranteed() },
			"property":    func() error { return e.SetProperty("k", "v") },
			"context":     func() error { return e.SetSystemContext("k", nil) },
			"fingerprint": func() error { return e.AddFingerprint("me-1") },
			"body":        func() error { return tm.SetText("x") },
			"body kind":   func() error { return e.SetBodyKind(contracts.JmsBodyBytes) },
			"priority":    func() error { return e.SetPriority(10) },
		}
		for name, set := range setters {
			t.Run(name, func(t *testing.T) {
				assert.ErrorIs(t, set(), contracts.ErrFrozenEnvelope)
			})
		}
	})

	t.Run("snapshot for send without copy returns the frozen original", func(t *testing.T) {
		e := newText(t, NewFactory())
		snap, err := e.SnapshotForSend(false)
		require.NoError(t, err)
		assert.Same(t, e, snap)
		assert.True(t, snap.IsSent())
	})
}

func TestCoreFields(t *testing.T) {
	e := newText(t, NewFactory())
	path := []DestinationAddress{{DestinationName: "orders", MEUUID: uuid.New()}, {DestinationName: "audit", LocalOnly: true}}

	require.NoError(t, e.SetForwardPath(path))
	require.NoError(t, e.SetProtocolPhase(contracts.ProtocolPhasePubSubOut, 2))
	require.NoError(t, e.SetPersistence(contracts.PersistencePersistent))
	require.NoError(t, e.AddWaitTime(30))
	require.NoError(t, e.AddWaitTime(12))
	require.NoError(t, e.IncrementRedeliveredCount())

	path[0].DestinationName = "mutated"
	got := e.GetForwardPath()
	assert.Equal(t, "orders", got[0].DestinationName)
	assert.Nil(t, e.GetReversePath())

	phase, version := e.GetProtocolPhase()
	assert.Equal(t, contracts.ProtocolPhasePubSubOut, phase)
	assert.Equal(t, byte(2), version)
	assert.Equal(t, contracts.PersistencePersistent, e.GetPersistence())
	assert.Equal(t, int64(42), e.GetWaitTime())
	assert.Equal(t, int32(1), e.GetRedeliveredCount())

	require.NoError(t, e.SetForwardPath([]DestinationAddress{}))
	assert.Nil(t, e.GetForwardPath())
}
