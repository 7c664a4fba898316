package max1704x

// I2C 16-bit word operations (big-endian: HIGH then LOW). The MAX1704x
// transfers every register MSB first, unlike most SMBus parts.
//
// I2C.Tx must perform the write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) readBytes(reg byte) (byte, byte, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, 0, err
	}
	return d.r[0], d.r[1], nil
}

func (d *Device) readByte(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}

func (d *Device) writeBytes(reg, hi, lo byte) error {
	d.w[0] = reg
	d.w[1] = hi
	d.w[2] = lo
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
