// Package drvshim adapts HAL bus claims to the tinygo driver interfaces.
package drvshim

import "gaugecode-go/services/hal/core"

// I2C adapts a core.I2COwner (direct Tx) to the tinygo driver Tx shape.
type I2C struct {
	o         core.I2COwner
	timeoutMS int
}

func NewI2C(owner core.I2COwner) I2C {
	return I2C{o: owner, timeoutMS: 25}
}

func (s I2C) WithTimeout(ms int) I2C {
	if ms > 0 {
		s.timeoutMS = ms
	}
	return s
}

func (s I2C) Tx(addr uint16, w, r []byte) error {
	return s.o.Tx(addr, w, r, s.timeoutMS)
}
