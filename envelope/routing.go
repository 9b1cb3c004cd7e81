package envelope

import (
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/google/uuid"
)

type routingPayload struct {
	subtype  contracts.RoutingSubtype
	originME opt[uuid.UUID]
	routes   []uuid.UUID
}

// RoutingView narrows an envelope to a topology-routing message
type RoutingView struct {
	e *Envelope
}

// AsRoutingMessage returns a routing view or an incorrect-kind error
func (e *Envelope) AsRoutingMessage() (*RoutingView, error) {
	if e.h.kind != contracts.MessageKindRouting {
		return nil, contracts.NewIncorrectKind("AsRoutingMessage", contracts.MessageKindRouting, e.h.kind)
	}
	return &RoutingView{e: e}, nil
}

// Envelope returns the underlying envelope
func (v *RoutingView) Envelope() *Envelope { return v.e }

func (v *RoutingView) payload(op string) (*routingPayload, error) {
	if err := v.e.mutable(op); err != nil {
		return nil, err
	}
	if v.e.h.routing == nil {
		v.e.h.routing = &routingPayload{}
	}
	return v.e.h.routing, nil
}

// Subtype returns the routing message subtype
func (v *RoutingView) Subtype() contracts.RoutingSubtype {
	if v.e.h.routing == nil {
		return contracts.RoutingUnknown
	}
	return v.e.h.routing.subtype
}

// SetSubtype sets the routing message subtype
func (v *RoutingView) SetSubtype(s contracts.RoutingSubtype) error {
	if err := v.e.mutable("SetSubtype"); err != nil {
		return err
	}
	if _, ok := contracts.RoutingSubtypeOrdinals.Ordinal(s); !ok {
		return contracts.NewInvalidValue("SetSubtype", "routingSubtype", s)
	}
	p, err := v.payload("SetSubtype")
	if err != nil {
		return err
	}
	p.subtype = s
	return nil
}

// GetOriginME returns the messaging engine that originated the routing data
func (v *RoutingView) GetOriginME() (uuid.UUID, bool) {
	if v.e.h.routing == nil {
		return uuid.Nil, false
	}
	return v.e.h.routing.originME.get()
}

// SetOriginME sets the messaging engine that originated the routing data
func (v *RoutingView) SetOriginME(id uuid.UUID) error {
	p, err := v.payload("SetOriginME")
	if err != nil {
		return err
	}
	p.originME = some(id)
	return nil
}

// GetRoutes returns a copy of the messaging engines reachable from the origin
func (v *RoutingView) GetRoutes() []uuid.UUID {
	if v.e.h.routing == nil || len(v.e.h.routing.routes) == 0 {
		return nil
	}
	return append([]uuid.UUID(nil), v.e.h.routing.routes...)
}

// SetRoutes replaces the reachable messaging engines
func (v *RoutingView) SetRoutes(routes []uuid.UUID) error {
	p, err := v.payload("SetRoutes")
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		p.routes = nil
		return nil
	}
	p.routes = append([]uuid.UUID(nil), routes...)
	return nil
}

func (p *routingPayload) clone() *routingPayload {
	c := *p
	if len(p.routes) > 0 {
		c.routes = append([]uuid.UUID(nil), p.routes...)
	}
	return &c
}
