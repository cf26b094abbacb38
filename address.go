package leosim

// address.go implements the three bidirectional mappings forwarding
// resolution needs: Address -> NodeId, (NodeId, NodeId) -> LinkId
// (symmetric), and Device -> Address, where a Device is one node's
// endpoint on one specific link (the "local_device"/"peer_device" pair
// resolved before checking ingress-link equality for loop avoidance).
// Plays the role of an interface-by-id/interface-by-name map, generalized
// from link-card interface numbers to per-link endpoint identity.

// Address is a 32-bit IPv4-style value. Each physical link endpoint has a
// unique Address.
type Address uint32

// Device identifies one node's endpoint on one specific link.
type Device struct {
	Node NodeId
	Link LinkId
}

type nodePair struct {
	a, b NodeId
}

func normalizePair(a, b NodeId) nodePair {
	if a <= b {
		return nodePair{a: a, b: b}
	}
	return nodePair{a: b, b: a}
}

// AddressBook owns the three mappings. It is populated once during setup
// (as links are created) and is read-only for the remainder of the run.
type AddressBook struct {
	ownerOf     map[Address]NodeId
	linkBetween map[nodePair]LinkId
	addrOf      map[Device]Address
}

// NewAddressBook constructs an empty AddressBook.
func NewAddressBook() *AddressBook {
	return &AddressBook{
		ownerOf:     make(map[Address]NodeId),
		linkBetween: make(map[nodePair]LinkId),
		addrOf:      make(map[Device]Address),
	}
}

// bind records that address addr is owned by node, reachable via the
// given device. Called exactly twice per link (once per endpoint) when
// the link is created.
func (ab *AddressBook) bind(node NodeId, link LinkId, addr Address) error {
	if existing, present := ab.ownerOf[addr]; present && existing != node {
		return newConfigError("AddressBook.bind", "address %d already owned by %q, cannot rebind to %q", addr, existing, node)
	}
	ab.ownerOf[addr] = node
	ab.addrOf[Device{Node: node, Link: link}] = addr
	return nil
}

// bindLink records that linkID connects a and b, symmetrically.
func (ab *AddressBook) bindLink(a, b NodeId, linkID LinkId) error {
	key := normalizePair(a, b)
	if existing, present := ab.linkBetween[key]; present && existing != linkID {
		return newConfigError("AddressBook.bindLink", "nodes %q/%q already connected by link %d", a, b, existing)
	}
	ab.linkBetween[key] = linkID
	return nil
}

// OwnerOf returns the NodeId that owns addr, and whether it is known.
func (ab *AddressBook) OwnerOf(addr Address) (NodeId, bool) {
	id, present := ab.ownerOf[addr]
	return id, present
}

// LinkBetween returns the LinkId connecting a and b, if any — consulted
// when resolving a candidate's local_device/peer_device pair.
func (ab *AddressBook) LinkBetween(a, b NodeId) (LinkId, bool) {
	id, present := ab.linkBetween[normalizePair(a, b)]
	return id, present
}

// AddressOf returns the Address bound to the given device, and whether it
// is known.
func (ab *AddressBook) AddressOf(dev Device) (Address, bool) {
	addr, present := ab.addrOf[dev]
	return addr, present
}
