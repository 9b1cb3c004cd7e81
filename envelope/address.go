package envelope

import "github.com/google/uuid"

// DestinationAddress is one hop of a forward or reverse routing path
type DestinationAddress struct {
	// DestinationName is the bus-wide name of the destination
	DestinationName string
	// LocalOnly restricts delivery to the local messaging engine
	LocalOnly bool
	// MEUUID pins the hop to one messaging engine; uuid.Nil leaves it unpinned
	MEUUID uuid.UUID
	// BusName names a foreign bus; empty means the local bus
	BusName string
}

func clonePath(path []DestinationAddress) []DestinationAddress {
	if len(path) == 0 {
		return nil
	}
	return append([]DestinationAddress(nil), path...)
}
