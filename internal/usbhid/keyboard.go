// Package usbhid implements the USB HID boot-keyboard class driver
// (spec.md §1, §4.5 wrap-up), grounded on os/src/usb_hid_keyboard.rs:
// config/interface selection, protocol setup, and the 8-byte boot-report
// parsing loop that diffs pressed-key sets and pushes characters into the
// input manager.
package usbhid

// ConfigDescriptor and InterfaceDescriptor are the minimal USB descriptor
// fields pick_config needs. Full descriptor parsing is the (out-of-scope)
// USB core's job; this driver only consumes the decoded fields.
type ConfigDescriptor struct {
	ConfigurationValue uint8
	Interfaces         []InterfaceDescriptor
}

type InterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
}

const (
	classHID         = 3
	subclassBoot     = 1
	protocolKeyboard = 1
)

// PickConfig selects the last configuration that offers a
// (class=3, subclass=1, protocol=1) boot-keyboard interface, and that
// interface, mirroring usb_hid_keyboard.rs's pick_config. It reports false
// if no configuration offers one.
func PickConfig(configs []ConfigDescriptor) (ConfigDescriptor, InterfaceDescriptor, bool) {
	for i := len(configs) - 1; i >= 0; i-- {
		for _, iface := range configs[i].Interfaces {
			if iface.InterfaceClass == classHID && iface.InterfaceSubClass == subclassBoot && iface.InterfaceProtocol == protocolKeyboard {
				return configs[i], iface, true
			}
		}
	}
	return ConfigDescriptor{}, InterfaceDescriptor{}, false
}

// usageIDToChar maps a HID boot-keyboard usage ID to a character, mirroring
// usb_hid_keyboard.rs's usage_id_to_char: 0 = none, 4-29 = 'a'-'z', 30-39 =
// digits (1-9 then 0), 40 = Enter ('\r').
func usageIDToChar(usageID uint8) (rune, bool) {
	switch {
	case usageID == 0:
		return 0, false
	case usageID >= 4 && usageID <= 29:
		return rune('a' + (usageID - 4)), true
	case usageID >= 30 && usageID <= 38:
		return rune('1' + (usageID - 30)), true
	case usageID == 39:
		return '0', true
	case usageID == 40:
		return '\r', true
	default:
		return 0, false
	}
}

// BootReport is the fixed 8-byte HID boot-keyboard input report: byte 0 is
// the modifier bitmask, byte 1 reserved, bytes 2-7 are up to six
// simultaneously pressed usage IDs.
type BootReport [8]byte

// pressedSet decodes a report's six usage-ID slots into a 256-bit
// presence set, matching attach_usb_device's BitSet<32>-based diffing
// (generalized here to a full byte-indexed bitset for clarity).
type pressedSet [256 / 8]byte

func (s *pressedSet) set(usageID uint8) {
	s[usageID/8] |= 1 << (usageID % 8)
}

func (s pressedSet) isSet(usageID uint8) bool {
	return s[usageID/8]&(1<<(usageID%8)) != 0
}

func reportToPressedSet(r BootReport) pressedSet {
	var s pressedSet
	for _, usageID := range r[2:8] {
		if usageID != 0 {
			s.set(usageID)
		}
	}
	return s
}

// KeySink receives decoded characters, typically input.Manager.PushChar.
type KeySink func(r rune)

// KeyboardState tracks the previously reported pressed set across polls so
// newly-pressed keys can be diffed out (spec.md §4.5/usb_hid_keyboard.rs's
// attach_usb_device: "prev/next pressed keys, XOR diffing").
type KeyboardState struct {
	prev pressedSet
}

// HandleReport diffs report against the previously seen pressed set,
// emitting a character via sink for every usage ID that is newly pressed
// (present now, absent before) and decodes to a character.
func (ks *KeyboardState) HandleReport(report BootReport, sink KeySink) {
	next := reportToPressedSet(report)
	for usageID := 4; usageID <= 40; usageID++ {
		id := uint8(usageID)
		if next.isSet(id) && !ks.prev.isSet(id) {
			if r, ok := usageIDToChar(id); ok {
				sink(r)
			}
		}
	}
	ks.prev = next
}
