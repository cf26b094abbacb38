package leosim

// packet.go holds the Packet and FlowTag data model. FlowTag survives
// hop-by-hop forwarding unchanged except for HopCount, which the
// forwarding engine increments exactly once per successful Forward
// decision.

// FlowTag is the identity and provenance a packet carries from source to
// sink. Every field but HopCount is fixed at origin.
type FlowTag struct {
	AppID         uint32
	PacketNumber  uint64
	SendTimestamp float64 // SimTime, seconds, stamped once at origin
	HopCount      uint16
}

// Packet is the unit the forwarding engine moves between nodes. SrcAddr
// and DstAddr are the IPv4-style Addresses of the flow's endpoints; they
// do not change hop to hop (only the engine's resolution of the next hop
// changes).
type Packet struct {
	Tag      FlowTag
	SizeBits int
	SrcAddr  Address
	DstAddr  Address
}
