package netstack

import (
	"encoding/binary"
	"fmt"
)

// DHCP (BOOTP) message tags this stack reads from a DHCP Offer/Ack
// (spec.md §6: "DHCP (BOOTP with magic cookie and tag-length-value
// options: MessageType=53, Netmask=1, Router=3, DNS=6, Padding=0, End=255)").
const (
	dhcpOptPadding     = 0
	dhcpOptNetmask     = 1
	dhcpOptRouter      = 3
	dhcpOptDNS         = 6
	dhcpOptMessageType = 53
	dhcpOptEnd         = 255
)

// DHCPMessageType is the value of option 53.
type DHCPMessageType uint8

const (
	DHCPDiscover DHCPMessageType = 1
	DHCPOffer    DHCPMessageType = 2
	DHCPRequest  DHCPMessageType = 3
	DHCPAck      DHCPMessageType = 5
)

var dhcpMagicCookie = [4]byte{99, 130, 83, 99}

const (
	bootpFixedLen  = 236 // up to and including the 192-byte sname/file omitted fields per this stack's minimal parse
	yiaddrOffset   = 16
)

// DHCPLease is what the Network singleton retains from a successful
// Offer/Ack (spec.md §3 "Network state": "last DHCP lease's
// self-IP/netmask/router/DNS").
type DHCPLease struct {
	YourIP  IPv4Addr
	Netmask IPv4Addr
	Router  IPv4Addr
	DNS     IPv4Addr
	MsgType DHCPMessageType
}

// ParseDHCP decodes a BOOTP message: the fixed header up to yiaddr, then
// the magic cookie and a TLV option stream. Unknown options are skipped by
// their length; option 0 (Padding) has no length byte and option 255 (End)
// terminates the scan (spec.md §6).
func ParseDHCP(buf []byte) (DHCPLease, error) {
	if len(buf) < bootpFixedLen+4 {
		return DHCPLease{}, fmt.Errorf("netstack: dhcp message too short")
	}
	var lease DHCPLease
	copy(lease.YourIP[:], buf[yiaddrOffset:yiaddrOffset+4])

	cookieOff := bootpFixedLen
	if [4]byte{buf[cookieOff], buf[cookieOff+1], buf[cookieOff+2], buf[cookieOff+3]} != dhcpMagicCookie {
		return DHCPLease{}, fmt.Errorf("netstack: dhcp magic cookie mismatch")
	}

	i := cookieOff + 4
	for i < len(buf) {
		tag := buf[i]
		if tag == dhcpOptEnd {
			break
		}
		if tag == dhcpOptPadding {
			i++
			continue
		}
		if i+1 >= len(buf) {
			return DHCPLease{}, fmt.Errorf("netstack: dhcp option %d missing length", tag)
		}
		length := int(buf[i+1])
		valueStart := i + 2
		if valueStart+length > len(buf) {
			return DHCPLease{}, fmt.Errorf("netstack: dhcp option %d value exceeds buffer", tag)
		}
		value := buf[valueStart : valueStart+length]

		switch tag {
		case dhcpOptMessageType:
			if length >= 1 {
				lease.MsgType = DHCPMessageType(value[0])
			}
		case dhcpOptNetmask:
			if length >= 4 {
				copy(lease.Netmask[:], value[:4])
			}
		case dhcpOptRouter:
			if length >= 4 {
				copy(lease.Router[:], value[:4])
			}
		case dhcpOptDNS:
			if length >= 4 {
				copy(lease.DNS[:], value[:4])
			}
		}
		i = valueStart + length
	}

	return lease, nil
}

// BuildDHCPDiscover constructs a minimal DHCP Discover broadcast with the
// given transaction ID and client MAC, enough to drive the client side of
// probe_interfaces (spec.md §2 step 6 "Network manager").
func BuildDHCPDiscover(xid uint32, clientMAC MACAddr) []byte {
	buf := make([]byte, bootpFixedLen+4+3+1) // fixed + cookie + msgtype option + end
	buf[0] = 1                               // op = BOOTREQUEST
	buf[1] = 1                               // htype = Ethernet
	buf[2] = 6                               // hlen
	binary.BigEndian.PutUint32(buf[4:8], xid)
	copy(buf[28:34], clientMAC[:])
	copy(buf[bootpFixedLen:bootpFixedLen+4], dhcpMagicCookie[:])

	opt := buf[bootpFixedLen+4:]
	opt[0] = dhcpOptMessageType
	opt[1] = 1
	opt[2] = uint8(DHCPDiscover)
	opt[3] = dhcpOptEnd
	return buf
}
