// Package netstack implements the simple IPv4 stack (spec.md §4.6,
// §6 "Wire formats"): Ethernet II framing, ARP request/reply, IPv4 with the
// internet checksum, UDP, TCP (parsed only), ICMP Echo, and a DHCP
// (BOOTP) client. Grounded on os/src/net/*.rs of the original and
// biscuit's netdump-style diagnostics in main.go.
package netstack

import (
	"encoding/binary"
	"fmt"
)

// MACAddr is a 6-byte Ethernet hardware address.
type MACAddr [6]byte

func (m MACAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IPv4Addr is a 4-byte IPv4 address.
type IPv4Addr [4]byte

func (a IPv4Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

var BroadcastMAC = MACAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
var ZeroIPv4 = IPv4Addr{0, 0, 0, 0}
var BroadcastIPv4 = IPv4Addr{255, 255, 255, 255}

// EtherType identifies the payload carried by an Ethernet II frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// EthernetHeader is a 14-byte Ethernet II header.
type EthernetHeader struct {
	Dst  MACAddr
	Src  MACAddr
	Type EtherType
}

const ethernetHeaderLen = 14

// ParseEthernet splits buf into its header and payload.
func ParseEthernet(buf []byte) (EthernetHeader, []byte, error) {
	if len(buf) < ethernetHeaderLen {
		return EthernetHeader{}, nil, fmt.Errorf("netstack: ethernet frame too short")
	}
	var h EthernetHeader
	copy(h.Dst[:], buf[0:6])
	copy(h.Src[:], buf[6:12])
	h.Type = EtherType(binary.BigEndian.Uint16(buf[12:14]))
	return h, buf[ethernetHeaderLen:], nil
}

// SerializeEthernet writes h followed by payload into a fresh buffer.
func SerializeEthernet(h EthernetHeader, payload []byte) []byte {
	out := make([]byte, ethernetHeaderLen+len(payload))
	copy(out[0:6], h.Dst[:])
	copy(out[6:12], h.Src[:])
	binary.BigEndian.PutUint16(out[12:14], uint16(h.Type))
	copy(out[ethernetHeaderLen:], payload)
	return out
}

// ARPOp is an ARP operation code.
type ARPOp uint16

const (
	ARPRequest ARPOp = 1
	ARPReply   ARPOp = 2
)

// ARPPacket is an Ethernet/IPv4 ARP request or reply.
type ARPPacket struct {
	Op          ARPOp
	SenderMAC   MACAddr
	SenderIP    IPv4Addr
	TargetMAC   MACAddr
	TargetIP    IPv4Addr
}

const arpPacketLen = 28

// ParseARP decodes an Ethernet+IPv4 ARP packet (htype=1, ptype=0x0800,
// hlen=6, plen=4 are assumed, matching every sender this stack talks to).
func ParseARP(buf []byte) (ARPPacket, error) {
	if len(buf) < arpPacketLen {
		return ARPPacket{}, fmt.Errorf("netstack: arp packet too short")
	}
	var p ARPPacket
	p.Op = ARPOp(binary.BigEndian.Uint16(buf[6:8]))
	copy(p.SenderMAC[:], buf[8:14])
	copy(p.SenderIP[:], buf[14:18])
	copy(p.TargetMAC[:], buf[18:24])
	copy(p.TargetIP[:], buf[24:28])
	return p, nil
}

// SerializeARP encodes p with the fixed Ethernet/IPv4 ARP header fields.
func SerializeARP(p ARPPacket) []byte {
	out := make([]byte, arpPacketLen)
	binary.BigEndian.PutUint16(out[0:2], 1)      // htype = Ethernet
	binary.BigEndian.PutUint16(out[2:4], 0x0800) // ptype = IPv4
	out[4] = 6                                   // hlen
	out[5] = 4                                   // plen
	binary.BigEndian.PutUint16(out[6:8], uint16(p.Op))
	copy(out[8:14], p.SenderMAC[:])
	copy(out[14:18], p.SenderIP[:])
	copy(out[18:24], p.TargetMAC[:])
	copy(out[24:28], p.TargetIP[:])
	return out
}

// IPv4Protocol identifies an IPv4 payload.
type IPv4Protocol uint8

const (
	ProtoICMP IPv4Protocol = 1
	ProtoTCP  IPv4Protocol = 6
	ProtoUDP  IPv4Protocol = 17
)

// IPv4Header is a 20-byte IPv4 header (no options).
type IPv4Header struct {
	TotalLength uint16
	Identification uint16
	TTL         uint8
	Protocol    IPv4Protocol
	Checksum    uint16
	Src         IPv4Addr
	Dst         IPv4Addr
}

const ipv4HeaderLen = 20

// InternetChecksum computes the RFC 1071 ones-complement checksum used by
// IPv4/ICMP/UDP (spec.md §6: "IPv4 (with internet checksum)").
func InternetChecksum(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// ParseIPv4 decodes a fixed 20-byte IPv4 header (options are not supported,
// matching the scope of this stack) and validates the checksum.
func ParseIPv4(buf []byte) (IPv4Header, []byte, error) {
	if len(buf) < ipv4HeaderLen {
		return IPv4Header{}, nil, fmt.Errorf("netstack: ipv4 header too short")
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < ipv4HeaderLen || len(buf) < ihl {
		return IPv4Header{}, nil, fmt.Errorf("netstack: ipv4 invalid IHL")
	}
	if InternetChecksum(buf[:ihl]) != 0 {
		return IPv4Header{}, nil, fmt.Errorf("netstack: ipv4 header checksum mismatch")
	}
	var h IPv4Header
	h.TotalLength = binary.BigEndian.Uint16(buf[2:4])
	h.Identification = binary.BigEndian.Uint16(buf[4:6])
	h.TTL = buf[8]
	h.Protocol = IPv4Protocol(buf[9])
	h.Checksum = binary.BigEndian.Uint16(buf[10:12])
	copy(h.Src[:], buf[12:16])
	copy(h.Dst[:], buf[16:20])

	if int(h.TotalLength) > len(buf) {
		return IPv4Header{}, nil, fmt.Errorf("netstack: ipv4 total length exceeds buffer")
	}
	return h, buf[ihl:h.TotalLength], nil
}

// SerializeIPv4 encodes h (fixed 20-byte header, no options) followed by
// payload, computing the header checksum.
func SerializeIPv4(h IPv4Header, payload []byte) []byte {
	total := ipv4HeaderLen + len(payload)
	out := make([]byte, total)
	out[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(out[2:4], uint16(total))
	binary.BigEndian.PutUint16(out[4:6], h.Identification)
	out[8] = h.TTL
	out[9] = uint8(h.Protocol)
	copy(out[12:16], h.Src[:])
	copy(out[16:20], h.Dst[:])
	binary.BigEndian.PutUint16(out[10:12], InternetChecksum(out[:ipv4HeaderLen]))
	copy(out[ipv4HeaderLen:], payload)
	return out
}

// UDPHeader is an 8-byte UDP header.
type UDPHeader struct {
	SrcPort, DstPort uint16
	Length           uint16
}

const udpHeaderLen = 8

// ParseUDP decodes a UDP datagram.
func ParseUDP(buf []byte) (UDPHeader, []byte, error) {
	if len(buf) < udpHeaderLen {
		return UDPHeader{}, nil, fmt.Errorf("netstack: udp header too short")
	}
	h := UDPHeader{
		SrcPort: binary.BigEndian.Uint16(buf[0:2]),
		DstPort: binary.BigEndian.Uint16(buf[2:4]),
		Length:  binary.BigEndian.Uint16(buf[4:6]),
	}
	if int(h.Length) > len(buf) {
		return UDPHeader{}, nil, fmt.Errorf("netstack: udp length exceeds buffer")
	}
	return h, buf[udpHeaderLen:h.Length], nil
}

// SerializeUDP encodes h followed by payload (checksum left zero, which
// IPv4/UDP permits).
func SerializeUDP(h UDPHeader, payload []byte) []byte {
	total := udpHeaderLen + len(payload)
	out := make([]byte, total)
	binary.BigEndian.PutUint16(out[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(out[2:4], h.DstPort)
	binary.BigEndian.PutUint16(out[4:6], uint16(total))
	copy(out[udpHeaderLen:], payload)
	return out
}

// TCPHeader is a parsed-only subset of the TCP header (spec.md §6: "TCP
// (parsed only)") — enough to identify a flow and flags, never enough to
// drive a connection (there is no TCP state machine in scope).
type TCPHeader struct {
	SrcPort, DstPort       uint16
	SeqNum, AckNum         uint32
	DataOffsetWords        uint8
	Flags                  uint8
}

const (
	TCPFlagFIN = 1 << 0
	TCPFlagSYN = 1 << 1
	TCPFlagRST = 1 << 2
	TCPFlagACK = 1 << 4
)

const tcpHeaderMinLen = 20

// ParseTCP decodes the fixed portion of a TCP segment, ignoring options.
func ParseTCP(buf []byte) (TCPHeader, error) {
	if len(buf) < tcpHeaderMinLen {
		return TCPHeader{}, fmt.Errorf("netstack: tcp header too short")
	}
	return TCPHeader{
		SrcPort:         binary.BigEndian.Uint16(buf[0:2]),
		DstPort:         binary.BigEndian.Uint16(buf[2:4]),
		SeqNum:          binary.BigEndian.Uint32(buf[4:8]),
		AckNum:          binary.BigEndian.Uint32(buf[8:12]),
		DataOffsetWords: buf[12] >> 4,
		Flags:           buf[13],
	}, nil
}

// ICMPType identifies the ICMP message kind.
type ICMPType uint8

const (
	ICMPTypeEchoReply   ICMPType = 0
	ICMPTypeEchoRequest ICMPType = 8
)

// ICMPEcho is a parsed Echo request/reply (spec.md §6 "ICMP Echo").
type ICMPEcho struct {
	Type       ICMPType
	Identifier uint16
	Sequence   uint16
	Payload    []byte
}

const icmpEchoHeaderLen = 8

// ParseICMPEcho decodes an ICMP Echo request or reply.
func ParseICMPEcho(buf []byte) (ICMPEcho, error) {
	if len(buf) < icmpEchoHeaderLen {
		return ICMPEcho{}, fmt.Errorf("netstack: icmp echo too short")
	}
	return ICMPEcho{
		Type:       ICMPType(buf[0]),
		Identifier: binary.BigEndian.Uint16(buf[4:6]),
		Sequence:   binary.BigEndian.Uint16(buf[6:8]),
		Payload:    buf[icmpEchoHeaderLen:],
	}, nil
}

// SerializeICMPEcho encodes e with a freshly computed checksum.
func SerializeICMPEcho(e ICMPEcho) []byte {
	out := make([]byte, icmpEchoHeaderLen+len(e.Payload))
	out[0] = uint8(e.Type)
	binary.BigEndian.PutUint16(out[4:6], e.Identifier)
	binary.BigEndian.PutUint16(out[6:8], e.Sequence)
	copy(out[icmpEchoHeaderLen:], e.Payload)
	binary.BigEndian.PutUint16(out[2:4], InternetChecksum(out))
	return out
}
