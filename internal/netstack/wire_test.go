package netstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEthernetRoundTrip(t *testing.T) {
	h := EthernetHeader{Dst: BroadcastMAC, Src: MACAddr{1, 2, 3, 4, 5, 6}, Type: EtherTypeARP}
	frame := SerializeEthernet(h, []byte{0xaa, 0xbb})

	got, payload, err := ParseEthernet(frame)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, []byte{0xaa, 0xbb}, payload)
}

func TestARPRoundTrip(t *testing.T) {
	p := ARPPacket{
		Op:        ARPReply,
		SenderMAC: MACAddr{1, 1, 1, 1, 1, 1},
		SenderIP:  IPv4Addr{10, 0, 2, 2},
		TargetMAC: MACAddr{2, 2, 2, 2, 2, 2},
		TargetIP:  IPv4Addr{10, 0, 2, 15},
	}
	got, err := ParseARP(SerializeARP(p))
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestIPv4ChecksumValidatesOnRoundTrip(t *testing.T) {
	h := IPv4Header{TTL: 64, Protocol: ProtoUDP, Src: IPv4Addr{10, 0, 2, 15}, Dst: IPv4Addr{10, 0, 2, 2}}
	payload := []byte("hello")
	buf := SerializeIPv4(h, payload)

	got, gotPayload, err := ParseIPv4(buf)
	require.NoError(t, err)
	require.Equal(t, payload, gotPayload)
	require.Equal(t, h.Src, got.Src)
	require.Equal(t, h.Dst, got.Dst)
	require.NotZero(t, got.Checksum)
}

func TestUDPRoundTrip(t *testing.T) {
	h := UDPHeader{SrcPort: 68, DstPort: 67}
	buf := SerializeUDP(h, []byte("dhcp"))
	got, payload, err := ParseUDP(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(68), got.SrcPort)
	require.Equal(t, uint16(67), got.DstPort)
	require.Equal(t, []byte("dhcp"), payload)
}

func TestICMPEchoRoundTrip(t *testing.T) {
	e := ICMPEcho{Type: ICMPTypeEchoRequest, Identifier: 1, Sequence: 2, Payload: []byte("ping")}
	got, err := ParseICMPEcho(SerializeICMPEcho(e))
	require.NoError(t, err)
	require.Equal(t, e.Type, got.Type)
	require.Equal(t, e.Identifier, got.Identifier)
	require.Equal(t, e.Sequence, got.Sequence)
	require.Equal(t, e.Payload, got.Payload)
}

func TestParseTCPFlags(t *testing.T) {
	buf := make([]byte, tcpHeaderMinLen)
	buf[13] = TCPFlagSYN | TCPFlagACK
	buf[12] = 5 << 4
	h, err := ParseTCP(buf)
	require.NoError(t, err)
	require.NotZero(t, h.Flags&TCPFlagSYN)
	require.NotZero(t, h.Flags&TCPFlagACK)
	require.Zero(t, h.Flags&TCPFlagFIN)
}
