package leosim

import "fmt"

// ConfigError reports a problem discovered during setup: an unparseable
// input, an unknown node id referenced by a table or event, overlapping
// switching-table validity intervals, or a malformed rate unit. Setup
// errors are fatal — the run must not start once one has been returned.
type ConfigError struct {
	Op  string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Op, e.Msg)
}

func newConfigError(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// DropReason enumerates the ways a single packet can be dropped by the
// forwarding engine. Unlike ConfigError these never abort the simulation;
// they are accounted against the node that dropped the packet and the run
// continues.
type DropReason int

const (
	// NoRoute covers: unknown destination address, no valid switching
	// table at the current instant, no entry for the destination in the
	// valid table, or every candidate next hop unusable.
	NoRoute DropReason = iota
	// LinkInactive covers every candidate next hop resolving to a link
	// that is currently down, rather than missing from the switching
	// table at all.
	LinkInactive
)

func (r DropReason) String() string {
	switch r {
	case NoRoute:
		return "NoRoute"
	case LinkInactive:
		return "LinkInactive"
	default:
		return "Unknown"
	}
}

// ShapingOverrun marks a traffic source's last, partial emission window as
// suppressed: the rate/duration combination would have emitted a packet
// that doesn't fit before start_time+duration+epsilon, so it is silently
// not sent. It is never returned as an error from emit itself; a source
// records its own on TrafficSource.Overrun for a caller that asks.
type ShapingOverrun struct {
	AppID uint32
}

func (e *ShapingOverrun) Error() string {
	return fmt.Sprintf("shaping overrun suppressed final packet for app %d", e.AppID)
}
