package max1704x

import "testing"

func TestThresholdCodecLaw(t *testing.T) {
	for p := uint8(ThresholdMin); p <= ThresholdMax; p++ {
		e := EncodeThreshold(p)
		if e&^cfgThresholdMask != 0 {
			t.Fatalf("EncodeThreshold(%d) = %#02x leaks outside ATHD", p, e)
		}
		if got := DecodeThreshold(e); got != p {
			t.Fatalf("decode(encode(%d)) = %d", p, got)
		}
	}
}

func TestThresholdDecodeIgnoresStatusBits(t *testing.T) {
	e := EncodeThreshold(7)
	for _, upper := range []uint8{0, cfgSleep, cfgAlert, cfgAlertSOCChang, 0xE0} {
		if got := DecodeThreshold(upper | e); got != 7 {
			t.Fatalf("DecodeThreshold(%#02x) = %d, want 7", upper|e, got)
		}
	}
}

func TestEncodeClampsBeforePacking(t *testing.T) {
	if EncodeThreshold(0) != EncodeThreshold(1) {
		t.Fatal("0 should clamp to 1")
	}
	if EncodeThreshold(200) != EncodeThreshold(32) {
		t.Fatal("200 should clamp to 32")
	}
	// 32 is the field's zero point: two's complement of 32 in 5 bits is 0.
	if EncodeThreshold(32) != 0 {
		t.Fatalf("EncodeThreshold(32) = %#02x, want 0", EncodeThreshold(32))
	}
}

func TestVCellRaw(t *testing.T) {
	cases := []struct {
		hi, lo byte
		want   uint16
	}{
		{0x00, 0x00, 0x000},
		{0xFF, 0xF0, 0xFFF},
		{0x99, 0x90, 0x999},
		{0x12, 0x3F, 0x123}, // low nibble discarded
	}
	for _, c := range cases {
		if got := vcellRaw(c.hi, c.lo); got != c.want {
			t.Errorf("vcellRaw(%#02x,%#02x) = %#03x, want %#03x", c.hi, c.lo, got, c.want)
		}
	}
}

func TestVCellMicroV(t *testing.T) {
	if got := vcellMicroV(0x999, 1); got != 3071250 {
		t.Fatalf("vcellMicroV(0x999,1) = %d", got)
	}
	if got := vcellMicroV(0x999, 2); got != 6142500 {
		t.Fatalf("vcellMicroV(0x999,2) = %d", got)
	}
}

func TestSOCCentiPct(t *testing.T) {
	cases := []struct {
		hi, lo byte
		want   uint32
	}{
		{0, 0, 0},
		{100, 0, 10000},
		{77, 128, 7750},
		{3, 64, 325},
	}
	for _, c := range cases {
		if got := socCentiPct(c.hi, c.lo); got != c.want {
			t.Errorf("socCentiPct(%d,%d) = %d, want %d", c.hi, c.lo, got, c.want)
		}
	}
}
