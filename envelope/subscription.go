package envelope

import (
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/google/uuid"
)

type subscriptionPayload struct {
	kind        contracts.SubscriptionKind
	topics      []string
	topicSpaces []string
	meName      opt[string]
	meUUID      opt[uuid.UUID]
}

// SubscriptionView narrows an envelope to a subscription-propagation message
type SubscriptionView struct {
	e *Envelope
}

// AsSubscriptionMessage returns a subscription view or an incorrect-kind error
func (e *Envelope) AsSubscriptionMessage() (*SubscriptionView, error) {
	if e.h.kind != contracts.MessageKindSubscription {
		return nil, contracts.NewIncorrectKind("AsSubscriptionMessage", contracts.MessageKindSubscription, e.h.kind)
	}
	return &SubscriptionView{e: e}, nil
}

// Envelope returns the underlying envelope
func (v *SubscriptionView) Envelope() *Envelope { return v.e }

func (v *SubscriptionView) payload(op string) (*subscriptionPayload, error) {
	if err := v.e.mutable(op); err != nil {
		return nil, err
	}
	if v.e.h.subscription == nil {
		v.e.h.subscription = &subscriptionPayload{}
	}
	return v.e.h.subscription, nil
}

// Kind returns the propagated operation
func (v *SubscriptionView) Kind() contracts.SubscriptionKind {
	if v.e.h.subscription == nil {
		return contracts.SubscriptionUnknown
	}
	return v.e.h.subscription.kind
}

// SetKind sets the propagated operation
func (v *SubscriptionView) SetKind(k contracts.SubscriptionKind) error {
	if err := v.e.mutable("SetKind"); err != nil {
		return err
	}
	if _, ok := contracts.SubscriptionKindOrdinals.Ordinal(k); !ok {
		return contracts.NewInvalidValue("SetKind", "subscriptionKind", k)
	}
	p, err := v.payload("SetKind")
	if err != nil {
		return err
	}
	p.kind = k
	return nil
}

// GetTopics returns a copy of the topics
func (v *SubscriptionView) GetTopics() []string {
	if v.e.h.subscription == nil {
		return nil
	}
	return cloneStrings(v.e.h.subscription.topics)
}

// SetTopics replaces the topics
func (v *SubscriptionView) SetTopics(topics []string) error {
	p, err := v.payload("SetTopics")
	if err != nil {
		return err
	}
	p.topics = cloneStrings(topics)
	return nil
}

// GetTopicSpaces returns a copy of the topic spaces, parallel to the topics
func (v *SubscriptionView) GetTopicSpaces() []string {
	if v.e.h.subscription == nil {
		return nil
	}
	return cloneStrings(v.e.h.subscription.topicSpaces)
}

// SetTopicSpaces replaces the topic spaces
func (v *SubscriptionView) SetTopicSpaces(spaces []string) error {
	p, err := v.payload("SetTopicSpaces")
	if err != nil {
		return err
	}
	p.topicSpaces = cloneStrings(spaces)
	return nil
}

// GetMEName returns the name of the messaging engine owning the subscriptions
func (v *SubscriptionView) GetMEName() (string, bool) {
	if v.e.h.subscription == nil {
		return "", false
	}
	return v.e.h.subscription.meName.get()
}

// SetMEName sets the owning messaging engine name
func (v *SubscriptionView) SetMEName(name string) error {
	p, err := v.payload("SetMEName")
	if err != nil {
		return err
	}
	p.meName = some(name)
	return nil
}

// GetMEUUID returns the owning messaging engine
func (v *SubscriptionView) GetMEUUID() (uuid.UUID, bool) {
	if v.e.h.subscription == nil {
		return uuid.Nil, false
	}
	return v.e.h.subscription.meUUID.get()
}

// SetMEUUID sets the owning messaging engine
func (v *SubscriptionView) SetMEUUID(id uuid.UUID) error {
	p, err := v.payload("SetMEUUID")
	if err != nil {
		return err
	}
	p.meUUID = some(id)
	return nil
}

func (p *subscriptionPayload) clone() *subscriptionPayload {
	c := *p
	c.topics = cloneStrings(p.topics)
	c.topicSpaces = cloneStrings(p.topicSpaces)
	return &c
}
