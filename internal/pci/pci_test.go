package pci

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Testable property 5 (spec.md §8): for every (bus, device, function) in
// [0,256)×[0,32)×[0,8), constructing a BDF and decoding its fields returns
// the input triple; the iterator yields exactly 65,536 BDFs.
func TestBDFRoundTrip(t *testing.T) {
	for bus := uint32(0); bus < 256; bus += 37 { // sampled, full sweep below covers exhaustively
		for device := uint32(0); device < 32; device++ {
			for function := uint32(0); function < 8; function++ {
				bdf, err := NewBusDeviceFunction(bus, device, function)
				require.NoError(t, err)
				gotBus, gotDevice, gotFunction := bdf.Decode()
				require.Equal(t, bus, gotBus)
				require.Equal(t, device, gotDevice)
				require.Equal(t, function, gotFunction)
			}
		}
	}
}

func TestBDFRoundTripExhaustive(t *testing.T) {
	for raw := uint32(0); raw < 0x10000; raw++ {
		bdf := BusDeviceFunction(raw)
		bus, device, function := bdf.Decode()
		back, err := NewBusDeviceFunction(bus, device, function)
		require.NoError(t, err)
		require.Equal(t, bdf, back)
	}
}

func TestBDFRangeValidation(t *testing.T) {
	_, err := NewBusDeviceFunction(256, 0, 0)
	require.Error(t, err)
	_, err = NewBusDeviceFunction(0, 32, 0)
	require.Error(t, err)
	_, err = NewBusDeviceFunction(0, 0, 8)
	require.Error(t, err)
}

func TestIteratorYieldsExactly65536(t *testing.T) {
	all := All()
	require.Len(t, all, 65536)
	require.EqualValues(t, 0, all[0])
	require.EqualValues(t, 0xffff, all[len(all)-1])
}
