package netstack

import (
	"sync"

	"github.com/mochios/kernel/internal/executor"
	"github.com/mochios/kernel/internal/hpet"
	"github.com/mochios/kernel/internal/klog"
)

// Interface is the minimal contract a network device driver exposes to the
// manager: its hardware address and a place to enqueue outbound frames.
// The RTL8139 NIC driver itself is out of scope (spec.md §1); this is its
// contract as consumed here.
type Interface interface {
	MAC() MACAddr
	Send(frame []byte) error
	// Recv returns the next buffered inbound frame, if one is ready. It
	// must not block: the manager task drains it on a fixed period
	// alongside transmit and probe, never waiting on hardware.
	Recv() ([]byte, bool)
}

// ARPEntry pairs a resolved hardware address with the interface it was
// learned on (spec.md §3 "Network state": "ARP table keyed by IPv4 address
// with value (ethernet_addr, weak interface)").
type ARPEntry struct {
	MAC   MACAddr
	Iface Interface
}

// Network is the process-wide singleton holding interface state, the last
// DHCP lease, the ARP table, and a transmit queue (spec.md §3 "Network
// state"). Every cross-cutting singleton in this kernel is accessed via a
// lock-guarded value initialized on first Take, never reconstructed
// (spec.md §5).
type Network struct {
	mu sync.Mutex

	interfaces []Interface

	selfIP  *IPv4Addr
	netmask *IPv4Addr
	router  *IPv4Addr
	dns     *IPv4Addr

	arpTable map[IPv4Addr]ARPEntry
	txQueue  [][]byte
}

var (
	singletonMu sync.Mutex
	singleton   *Network
)

// Take returns the process-wide Network instance, constructing it on first
// call (spec.md §5 "lock-guarded Option, initialized on first take()").
func Take() *Network {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		singleton = &Network{arpTable: make(map[IPv4Addr]ARPEntry)}
	}
	return singleton
}

// AddInterface registers iface, mirroring probe_interfaces discovering a
// new NIC.
func (n *Network) AddInterface(iface Interface) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interfaces = append(n.interfaces, iface)
}

// Lease reports the current DHCP-derived configuration, if any.
func (n *Network) Lease() (self, netmask, router, dns IPv4Addr, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.selfIP == nil {
		return IPv4Addr{}, IPv4Addr{}, IPv4Addr{}, IPv4Addr{}, false
	}
	return *n.selfIP, *n.netmask, *n.router, *n.dns, true
}

// ApplyLease stores a DHCP lease's four values, replacing any prior one.
func (n *Network) ApplyLease(lease DHCPLease) {
	n.mu.Lock()
	defer n.mu.Unlock()
	self, netmask, router, dns := lease.YourIP, lease.Netmask, lease.Router, lease.DNS
	n.selfIP, n.netmask, n.router, n.dns = &self, &netmask, &router, &dns
	klog.Infof("netstack: dhcp lease %s netmask=%s router=%s dns=%s\n", self, netmask, router, dns)
}

// LearnARP records (or refreshes) the hardware address behind ip.
func (n *Network) LearnARP(ip IPv4Addr, mac MACAddr, iface Interface) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.arpTable[ip] = ARPEntry{MAC: mac, Iface: iface}
}

// ResolveARP looks up the hardware address behind ip.
func (n *Network) ResolveARP(ip IPv4Addr) (ARPEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.arpTable[ip]
	return e, ok
}

// EnqueueTX appends frame to the outbound queue, drained by ProcessTX.
func (n *Network) EnqueueTX(frame []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txQueue = append(n.txQueue, frame)
}

// ProcessTX drains the transmit queue across every registered interface,
// mirroring manager.rs's process_tx. Send errors are logged and the loop
// continues (spec.md §7: "Network and USB receive errors are logged and
// the loop continues").
func (n *Network) ProcessTX() {
	n.mu.Lock()
	queue := n.txQueue
	n.txQueue = nil
	ifaces := append([]Interface(nil), n.interfaces...)
	n.mu.Unlock()

	for _, frame := range queue {
		for _, iface := range ifaces {
			if err := iface.Send(frame); err != nil {
				klog.Warnf("netstack: send failed: %v\n", err)
			}
		}
	}
}

// drainRX pulls every currently-buffered frame off each registered
// interface and dispatches it, the RX half of the manager task's per-tick
// work (spec.md §4.7: "probes interfaces, drains a transmit queue, and
// dispatches received frames" — this is the "dispatches received frames"
// step, run from ManagerTask.Poll alongside ProcessTX).
func (n *Network) drainRX() {
	n.mu.Lock()
	ifaces := append([]Interface(nil), n.interfaces...)
	n.mu.Unlock()

	for _, iface := range ifaces {
		for {
			frame, ok := iface.Recv()
			if !ok {
				break
			}
			n.ProcessRX(iface, frame)
		}
	}
}

// ProcessRX dispatches one received Ethernet frame, handling ARP and IPv4
// (UDP/DHCP, ICMP, and TCP parse-only) per manager.rs's handle_rx_*
// functions. Errors are logged and swallowed, never propagated, matching
// the "receive errors are logged and the loop continues" policy.
func (n *Network) ProcessRX(iface Interface, frame []byte) {
	eth, payload, err := ParseEthernet(frame)
	if err != nil {
		klog.Warnf("netstack: rx ethernet parse: %v\n", err)
		return
	}

	switch eth.Type {
	case EtherTypeARP:
		n.handleRxARP(iface, payload)
	case EtherTypeIPv4:
		n.handleRxIPv4(iface, payload)
	default:
		klog.Debugf("netstack: rx unknown ethertype %#x\n", eth.Type)
	}
}

func (n *Network) handleRxARP(iface Interface, payload []byte) {
	p, err := ParseARP(payload)
	if err != nil {
		klog.Warnf("netstack: rx arp parse: %v\n", err)
		return
	}
	n.LearnARP(p.SenderIP, p.SenderMAC, iface)

	if p.Op != ARPRequest {
		return
	}
	self, _, _, _, ok := n.Lease()
	if !ok || p.TargetIP != self {
		return
	}
	reply := ARPPacket{Op: ARPReply, SenderMAC: iface.MAC(), SenderIP: self, TargetMAC: p.SenderMAC, TargetIP: p.SenderIP}
	frame := SerializeEthernet(EthernetHeader{Dst: p.SenderMAC, Src: iface.MAC(), Type: EtherTypeARP}, SerializeARP(reply))
	n.EnqueueTX(frame)
}

func (n *Network) handleRxIPv4(iface Interface, payload []byte) {
	h, body, err := ParseIPv4(payload)
	if err != nil {
		klog.Warnf("netstack: rx ipv4 parse: %v\n", err)
		return
	}
	switch h.Protocol {
	case ProtoUDP:
		n.handleRxUDP(iface, h, body)
	case ProtoICMP:
		n.handleRxICMP(iface, h, body)
	case ProtoTCP:
		n.handleRxTCP(h, body)
	default:
		klog.Debugf("netstack: rx unknown ip protocol %d\n", h.Protocol)
	}
}

const (
	udpPortDHCPServer = 67
	udpPortDHCPClient = 68
)

func (n *Network) handleRxUDP(iface Interface, ipHeader IPv4Header, payload []byte) {
	udpHeader, body, err := ParseUDP(payload)
	if err != nil {
		klog.Warnf("netstack: rx udp parse: %v\n", err)
		return
	}
	if udpHeader.DstPort == udpPortDHCPClient && udpHeader.SrcPort == udpPortDHCPServer {
		n.handleRxDHCPClient(body)
		return
	}
	klog.Debugf("netstack: rx udp %s:%d -> :%d (%d bytes)\n", ipHeader.Src, udpHeader.SrcPort, udpHeader.DstPort, len(body))
}

func (n *Network) handleRxDHCPClient(body []byte) {
	lease, err := ParseDHCP(body)
	if err != nil {
		klog.Warnf("netstack: rx dhcp parse: %v\n", err)
		return
	}
	if lease.MsgType != DHCPOffer && lease.MsgType != DHCPAck {
		return
	}
	n.ApplyLease(lease)
}

func (n *Network) handleRxICMP(iface Interface, ipHeader IPv4Header, payload []byte) {
	echo, err := ParseICMPEcho(payload)
	if err != nil {
		klog.Warnf("netstack: rx icmp parse: %v\n", err)
		return
	}
	if echo.Type != ICMPTypeEchoRequest {
		return
	}
	reply := ICMPEcho{Type: ICMPTypeEchoReply, Identifier: echo.Identifier, Sequence: echo.Sequence, Payload: echo.Payload}
	self, _, _, _, ok := n.Lease()
	if !ok {
		self = ipHeader.Dst
	}
	ipOut := SerializeIPv4(IPv4Header{TTL: 64, Protocol: ProtoICMP, Src: self, Dst: ipHeader.Src}, SerializeICMPEcho(reply))
	dstMAC := BroadcastMAC
	if entry, ok := n.ResolveARP(ipHeader.Src); ok {
		dstMAC = entry.MAC
	}
	frame := SerializeEthernet(EthernetHeader{Dst: dstMAC, Src: iface.MAC(), Type: EtherTypeIPv4}, ipOut)
	n.EnqueueTX(frame)
}

func (n *Network) handleRxTCP(ipHeader IPv4Header, payload []byte) {
	h, err := ParseTCP(payload)
	if err != nil {
		klog.Warnf("netstack: rx tcp parse: %v\n", err)
		return
	}
	klog.Debugf("netstack: rx tcp %s:%d -> :%d flags=%#x\n", ipHeader.Src, h.SrcPort, h.DstPort, h.Flags)
}

// networkManagerPeriodMs is the polling period of the periodic manager
// task (spec.md §2 step 6: "periodic task that probes interfaces, drains a
// transmit queue, and dispatches received frames"); manager.rs polls every
// 100ms.
const networkManagerPeriodMs = 100

// ManagerTask is the executor.Task driving the network manager loop:
// probe for newly attached interfaces (left to the caller via onProbe),
// drain the transmit queue, and sleep for networkManagerPeriodMs before
// running again. It never completes — Poll always returns Pending after
// doing its periodic work, which is what keeps it perpetually re-enqueued.
type ManagerTask struct {
	net     *Network
	clock   hpet.Clock
	timeout *executor.TimeoutFuture
	onProbe func()
}

// NewManagerTask builds the periodic network manager task.
func NewManagerTask(net *Network, clock hpet.Clock, onProbe func()) *ManagerTask {
	return &ManagerTask{net: net, clock: clock, onProbe: onProbe}
}

// Poll implements executor.Task.
func (m *ManagerTask) Poll() executor.PollResult {
	if m.timeout == nil {
		m.timeout = executor.NewTimeoutMs(m.clock, networkManagerPeriodMs)
	}
	if m.timeout.Poll() != executor.Ready {
		return executor.Pending
	}
	if m.onProbe != nil {
		m.onProbe()
	}
	m.net.drainRX()
	m.net.ProcessTX()
	m.timeout = nil
	return executor.Pending
}
