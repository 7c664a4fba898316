package drvshim

import "testing"

type recordingOwner struct {
	addr    uint16
	timeout int
}

func (o *recordingOwner) Tx(addr uint16, w, r []byte, timeoutMS int) error {
	o.addr = addr
	o.timeout = timeoutMS
	return nil
}

func TestDefaultTimeout(t *testing.T) {
	o := &recordingOwner{}
	s := NewI2C(o)
	if err := s.Tx(0x36, []byte{0x02}, make([]byte, 2)); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if o.addr != 0x36 {
		t.Errorf("addr = %#02x, want 0x36", o.addr)
	}
	if o.timeout != 25 {
		t.Errorf("timeout = %d, want default 25", o.timeout)
	}
}

func TestWithTimeout(t *testing.T) {
	o := &recordingOwner{}
	s := NewI2C(o).WithTimeout(40)
	_ = s.Tx(0x36, []byte{0x02}, nil)
	if o.timeout != 40 {
		t.Errorf("timeout = %d, want 40", o.timeout)
	}

	// Non-positive values keep the current setting.
	s = s.WithTimeout(0)
	_ = s.Tx(0x36, []byte{0x02}, nil)
	if o.timeout != 40 {
		t.Errorf("timeout after WithTimeout(0) = %d, want 40", o.timeout)
	}
}
