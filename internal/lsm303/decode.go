package lsm303

// RawTriple is one un-scaled sample.
type RawTriple struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

func le16(lo, hi byte) int16 {
	return int16(uint16(lo) | uint16(hi)<<8)
}

// decodeAccel reads X/Y/Z as low byte first and drops the 4 padding bits.
// The shift is arithmetic so the sign is kept.
func decodeAccel(b []byte) RawTriple {
	return RawTriple{
		X: le16(b[0], b[1]) >> accelPadBit,
		Y: le16(b[2], b[3]) >> accelPadBit,
		Z: le16(b[4], b[5]) >> accelPadBit,
	}
}

// decodeMag reads the X, Z, Y register order, high byte first, full 16 bits.
func decodeMag(b []byte) RawTriple {
	return RawTriple{
		X: le16(b[1], b[0]),
		Z: le16(b[3], b[2]),
		Y: le16(b[5], b[4]),
	}
}
