package netstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Testable property 9 (spec.md §8): given a canonical DHCP Offer with
// netmask=255.255.255.0, router=10.0.2.2, dns=10.0.2.3, yiaddr=10.0.2.15,
// the lease ParseDHCP returns carries exactly those four values.
func TestDHCPParseCanonicalOffer(t *testing.T) {
	buf := make([]byte, bootpFixedLen)
	copy(buf[yiaddrOffset:yiaddrOffset+4], []byte{10, 0, 2, 15})
	buf = append(buf, dhcpMagicCookie[:]...)
	buf = append(buf,
		dhcpOptMessageType, 1, byte(DHCPOffer),
		dhcpOptNetmask, 4, 255, 255, 255, 0,
		dhcpOptRouter, 4, 10, 0, 2, 2,
		dhcpOptDNS, 4, 10, 0, 2, 3,
		dhcpOptEnd,
	)

	lease, err := ParseDHCP(buf)
	require.NoError(t, err)
	require.Equal(t, IPv4Addr{10, 0, 2, 15}, lease.YourIP)
	require.Equal(t, IPv4Addr{255, 255, 255, 0}, lease.Netmask)
	require.Equal(t, IPv4Addr{10, 0, 2, 2}, lease.Router)
	require.Equal(t, IPv4Addr{10, 0, 2, 3}, lease.DNS)
	require.Equal(t, DHCPOffer, lease.MsgType)
}

func TestDHCPParseRejectsBadCookie(t *testing.T) {
	buf := make([]byte, bootpFixedLen+4)
	_, err := ParseDHCP(buf)
	require.Error(t, err)
}

func TestDHCPParseSkipsPaddingOptions(t *testing.T) {
	buf := make([]byte, bootpFixedLen)
	buf = append(buf, dhcpMagicCookie[:]...)
	buf = append(buf, dhcpOptPadding, dhcpOptPadding, dhcpOptMessageType, 1, byte(DHCPAck), dhcpOptEnd)

	lease, err := ParseDHCP(buf)
	require.NoError(t, err)
	require.Equal(t, DHCPAck, lease.MsgType)
}

func TestBuildDHCPDiscoverRoundTripsThroughMessageType(t *testing.T) {
	mac := MACAddr{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	buf := BuildDHCPDiscover(0xdeadbeef, mac)
	lease, err := ParseDHCP(buf)
	require.NoError(t, err)
	require.Equal(t, DHCPDiscover, lease.MsgType)
}
