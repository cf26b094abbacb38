package leosim

// metrics.go implements FlowStats and MetricsCollector. The three output
// artifacts — text summary, per-run CSV, appended totals.csv row — are
// this repo's outputs, not input parsing. DumpDebug's YAML snapshot
// adapts a trace writer's json/yaml-by-extension switch down to a single
// yaml.v3 dump of the in-memory FlowStats map.

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlowKey identifies one flow: (app_id, src_addr, dst_addr).
type FlowKey struct {
	AppID   uint32
	SrcAddr Address
	DstAddr Address
}

// FlowStats accumulates the delivery/loss/latency counters for one flow.
type FlowStats struct {
	Sent     uint64
	Received uint64

	MinLatency float64
	MaxLatency float64
	TotLatency float64

	HopCountTotal uint64
	MinHopCount   int32 // -1 sentinel for "nothing received yet"; 0 is a valid hop count
	MaxHopCount   uint16

	ActivelyDroppedByNode map[NodeId]uint64
	BackupPathUsed        uint64
	LoopAvoidanceTriggered uint64
}

func newFlowStats() *FlowStats {
	return &FlowStats{
		MinLatency:            -1,
		MinHopCount:           -1,
		ActivelyDroppedByNode: make(map[NodeId]uint64),
	}
}

// meanLatency returns the mean received latency, or -1 (the sentinel for
// "no packets received yet") if nothing has been received yet.
func (fs *FlowStats) meanLatency() float64 {
	if fs.Received == 0 {
		return -1
	}
	return fs.TotLatency / float64(fs.Received)
}

func (fs *FlowStats) meanHopCount() float64 {
	if fs.Received == 0 {
		return 0
	}
	return float64(fs.HopCountTotal) / float64(fs.Received)
}

func (fs *FlowStats) totalDropped() uint64 {
	var total uint64
	for _, n := range fs.ActivelyDroppedByNode {
		total += n
	}
	return total
}

// flowEndpoints is the address-book-derived context metrics.go needs to
// render one flow's CSV row (source/destination node and town), kept
// separate from FlowStats so the hot accounting path never touches the
// AddressBook or NodeArena.
type flowEndpoints struct {
	srcNode, dstNode NodeId
	srcTown, dstTown string
}

// MetricsCollector owns every FlowStats for a run. It is a field of
// Simulation, never a package singleton (Design Notes, reject-the-global
// guidance).
type MetricsCollector struct {
	flows map[FlowKey]*FlowStats
}

// NewMetricsCollector constructs an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{flows: make(map[FlowKey]*FlowStats)}
}

func (mc *MetricsCollector) get(key FlowKey) *FlowStats {
	fs, present := mc.flows[key]
	if !present {
		fs = newFlowStats()
		mc.flows[key] = fs
	}
	return fs
}

func (mc *MetricsCollector) recordSent(key FlowKey) {
	mc.get(key).Sent++
}

func (mc *MetricsCollector) recordDelivered(key FlowKey, latency float64, hopCount uint16) {
	fs := mc.get(key)
	fs.Received++
	fs.TotLatency += latency
	if fs.MinLatency < 0 || latency < fs.MinLatency {
		fs.MinLatency = latency
	}
	if latency > fs.MaxLatency {
		fs.MaxLatency = latency
	}
	fs.HopCountTotal += uint64(hopCount)
	if fs.MinHopCount < 0 || int32(hopCount) < fs.MinHopCount {
		fs.MinHopCount = int32(hopCount)
	}
	if hopCount > fs.MaxHopCount {
		fs.MaxHopCount = hopCount
	}
}

func (mc *MetricsCollector) recordDrop(key FlowKey, at NodeId, _ DropReason) {
	mc.get(key).ActivelyDroppedByNode[at]++
}

func (mc *MetricsCollector) recordBackupPathUsed(key FlowKey) {
	mc.get(key).BackupPathUsed++
}

func (mc *MetricsCollector) recordLoopAvoidance(key FlowKey) {
	mc.get(key).LoopAvoidanceTriggered++
}

// sortedKeys returns every FlowKey in a stable order (by AppID, then
// SrcAddr, then DstAddr), so text/CSV output is deterministic run to run.
func (mc *MetricsCollector) sortedKeys() []FlowKey {
	keys := make([]FlowKey, 0, len(mc.flows))
	for k := range mc.flows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AppID != keys[j].AppID {
			return keys[i].AppID < keys[j].AppID
		}
		if keys[i].SrcAddr != keys[j].SrcAddr {
			return keys[i].SrcAddr < keys[j].SrcAddr
		}
		return keys[i].DstAddr < keys[j].DstAddr
	})
	return keys
}

// TotalsRow is one row of the appended totals.csv.
type TotalsRow struct {
	Run              string
	FailureScenario  string
	TotalPacketsSent uint64
	TotalPacketsReceived uint64
}

// DeliveryRatio returns the percentage of sent packets that were
// received, across every flow in the collector.
func (mc *MetricsCollector) DeliveryRatio() float64 {
	var sent, received uint64
	for _, fs := range mc.flows {
		sent += fs.Sent
		received += fs.Received
	}
	if sent == 0 {
		return 0
	}
	return 100 * float64(received) / float64(sent)
}

// TextSummary renders the plain-text per-flow-lines-plus-totals report.
func (mc *MetricsCollector) TextSummary() string {
	var b strings.Builder
	var totalSent, totalReceived uint64
	for _, key := range mc.sortedKeys() {
		fs := mc.flows[key]
		totalSent += fs.Sent
		totalReceived += fs.Received
		fmt.Fprintf(&b, "flow app=%d %d->%d: sent=%d received=%d latency(min/mean/max)=%.3f/%.3f/%.3f ms "+
			"hops(mean)=%.2f backup_used=%d loop_avoided=%d dropped=%d\n",
			key.AppID, key.SrcAddr, key.DstAddr, fs.Sent, fs.Received,
			latencyMs(fs.MinLatency), latencyMs(fs.meanLatency()), latencyMs(fs.MaxLatency),
			fs.meanHopCount(), fs.BackupPathUsed, fs.LoopAvoidanceTriggered, fs.totalDropped())
	}
	ratio := 0.0
	if totalSent > 0 {
		ratio = 100 * float64(totalReceived) / float64(totalSent)
	}
	fmt.Fprintf(&b, "totals: sent=%d received=%d delivery_ratio=%.2f%%\n", totalSent, totalReceived, ratio)
	return b.String()
}

func latencyMs(seconds float64) float64 {
	if seconds < 0 {
		return -1
	}
	return seconds * 1000
}

// WriteCSV renders the per-flow CSV report, using endpoints to look up
// each flow's node/town labels. Whether to call this at all is the
// caller's decision (the write_csv config option).
func (mc *MetricsCollector) WriteCSV(path string, endpoints map[FlowKey]flowEndpoints) error {
	var b strings.Builder
	b.WriteString("AppId,Source IP,Source Node,Source Town,Destination IP,Destination Node,Destination Town," +
		"Packets Sent,Packets Received,Min Latency (ms),Max Latency (ms),Avg Latency (ms),Avg Hop Count," +
		"Dropped Packets,Dropped Locations,Backup Path Used,Loop Avoidance Triggered\n")

	for _, key := range mc.sortedKeys() {
		fs := mc.flows[key]
		ep := endpoints[key]
		fmt.Fprintf(&b, "%d,%d,%s,%s,%d,%s,%s,%d,%d,%.3f,%.3f,%.3f,%.2f,%d,%s,%d,%d\n",
			key.AppID, key.SrcAddr, ep.srcNode, ep.srcTown, key.DstAddr, ep.dstNode, ep.dstTown,
			fs.Sent, fs.Received,
			latencyMs(fs.MinLatency), latencyMs(fs.MaxLatency), latencyMs(fs.meanLatency()), fs.meanHopCount(),
			fs.totalDropped(), droppedLocations(fs.ActivelyDroppedByNode), fs.BackupPathUsed, fs.LoopAvoidanceTriggered)
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func droppedLocations(byNode map[NodeId]uint64) string {
	if len(byNode) == 0 {
		return "{}"
	}
	nodes := make([]NodeId, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var b strings.Builder
	b.WriteString("{")
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s:%d", n, byNode[n])
	}
	b.WriteString("}")
	return b.String()
}

// AppendTotalsRow appends one row to the shared totals.csv file, writing
// the header first if the file doesn't exist yet.
func AppendTotalsRow(path string, row TotalsRow) error {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if needsHeader {
		if _, err := f.WriteString("Run,FailureScenario,TotalPacketsSent,TotalPacketsReceived,DeliveryRatio(%)\n"); err != nil {
			return err
		}
	}

	ratio := 0.0
	if row.TotalPacketsSent > 0 {
		ratio = 100 * float64(row.TotalPacketsReceived) / float64(row.TotalPacketsSent)
	}
	_, err = fmt.Fprintf(f, "%s,%s,%d,%d,%.2f\n", row.Run, row.FailureScenario,
		row.TotalPacketsSent, row.TotalPacketsReceived, ratio)
	return err
}

// debugDump is the shape yaml.v3 marshals for DumpDebug, mirroring the
// field names operators see in the CSV/text outputs.
type debugDump struct {
	Flows map[string]*FlowStats `yaml:"flows"`
}

// DumpDebug renders every FlowStats as YAML, for post-run analysis the
// way a trace snapshot would be rendered.
func (mc *MetricsCollector) DumpDebug() (string, error) {
	dump := debugDump{Flows: make(map[string]*FlowStats, len(mc.flows))}
	for key, fs := range mc.flows {
		label := fmt.Sprintf("app%d:%d->%d", key.AppID, key.SrcAddr, key.DstAddr)
		dump.Flows[label] = fs
	}
	out, err := yaml.Marshal(dump)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
