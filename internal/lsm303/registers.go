// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lsm303

import "fmt"

// 7-bit I2C addresses.
const (
	AccelAddr uint16 = 0x32 >> 1 // 0x19
	MagAddr   uint16 = 0x3C >> 1 // 0x1E
)

// Accelerometer register map.
const (
	regCtrl1A   = 0x20
	regOutXLA   = 0x28 // X LSB, X MSB, Y LSB, Y MSB, Z LSB, Z MSB
	autoIncrRA  = 0x80 // sub-address MSB enables register auto-increment
	accelPadBit = 4    // low bits of each sample are not data
)

// Magnetometer register map.
const (
	regCRAM   = 0x00
	regCRBM   = 0x01
	regMRM    = 0x02
	regOutXHM = 0x03 // X MSB, X LSB, Z MSB, Z LSB, Y MSB, Y LSB

	magModeContinuous = 0x00
)

const sampleBytes = 6

// AccelMGPerLSB is the fixed accelerometer scale (1 mg/LSB). It does not track
// the full-scale selection in CTRL_REG4_A.
const AccelMGPerLSB = 0.001

// AccelDataRate is a CTRL_REG1_A value: ODR in bits 7..4 with X/Y/Z enabled.
type AccelDataRate byte

const (
	AccelRate1Hz    AccelDataRate = 0x17
	AccelRate10Hz   AccelDataRate = 0x27
	AccelRate25Hz   AccelDataRate = 0x37
	AccelRate50Hz   AccelDataRate = 0x47
	AccelRate100Hz  AccelDataRate = 0x57
	AccelRate200Hz  AccelDataRate = 0x67
	AccelRate400Hz  AccelDataRate = 0x77
	AccelRate1620Hz AccelDataRate = 0x87 // low-power mode only
	AccelRate1344Hz AccelDataRate = 0x97 // 5376 Hz in low-power mode

	DefaultAccelDataRate = AccelRate100Hz
)

var accelRateHz = map[AccelDataRate]float64{
	AccelRate1Hz:    1,
	AccelRate10Hz:   10,
	AccelRate25Hz:   25,
	AccelRate50Hz:   50,
	AccelRate100Hz:  100,
	AccelRate200Hz:  200,
	AccelRate400Hz:  400,
	AccelRate1620Hz: 1620,
	AccelRate1344Hz: 1344,
}

// Valid reports whether r is one of the supported rate codes.
func (r AccelDataRate) Valid() bool {
	_, ok := accelRateHz[r]
	return ok
}

// Hz returns the nominal output data rate.
func (r AccelDataRate) Hz() float64 { return accelRateHz[r] }

func (r AccelDataRate) String() string {
	if !r.Valid() {
		return fmt.Sprintf("AccelDataRate(0x%02X)", byte(r))
	}
	return fmt.Sprintf("%gHz", r.Hz())
}

// AccelDataRateFromHz looks up the rate code for a nominal frequency.
func AccelDataRateFromHz(hz float64) (AccelDataRate, error) {
	for r, v := range accelRateHz {
		if v == hz {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: accelerometer data rate %g Hz", ErrInvalidConfiguration, hz)
}

// MagDataRate is a CRA_REG_M value: DO bits 4..2.
type MagDataRate byte

const (
	MagRate0_75Hz MagDataRate = 0x00
	MagRate1_5Hz  MagDataRate = 0x04
	MagRate3Hz    MagDataRate = 0x08
	MagRate7_5Hz  MagDataRate = 0x0C
	MagRate15Hz   MagDataRate = 0x10
	MagRate30Hz   MagDataRate = 0x14
	MagRate75Hz   MagDataRate = 0x18
	MagRate220Hz  MagDataRate = 0x1C

	DefaultMagDataRate = MagRate15Hz
)

var magRateHz = map[MagDataRate]float64{
	MagRate0_75Hz: 0.75,
	MagRate1_5Hz:  1.5,
	MagRate3Hz:    3,
	MagRate7_5Hz:  7.5,
	MagRate15Hz:   15,
	MagRate30Hz:   30,
	MagRate75Hz:   75,
	MagRate220Hz:  220,
}

func (r MagDataRate) Valid() bool {
	_, ok := magRateHz[r]
	return ok
}

func (r MagDataRate) Hz() float64 { return magRateHz[r] }

func (r MagDataRate) String() string {
	if !r.Valid() {
		return fmt.Sprintf("MagDataRate(0x%02X)", byte(r))
	}
	return fmt.Sprintf("%gHz", r.Hz())
}

// MagDataRateFromHz looks up the rate code for a nominal frequency.
func MagDataRateFromHz(hz float64) (MagDataRate, error) {
	for r, v := range magRateHz {
		if v == hz {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: magnetometer data rate %g Hz", ErrInvalidConfiguration, hz)
}

// MagGain is a CRB_REG_M value: GN bits 7..5.
type MagGain byte

const (
	MagGain1_3 MagGain = 0x20 // ±1.3 gauss
	MagGain1_9 MagGain = 0x40 // ±1.9 gauss
	MagGain2_5 MagGain = 0x60 // ±2.5 gauss
	MagGain4_0 MagGain = 0x80 // ±4.0 gauss
	MagGain4_7 MagGain = 0xA0 // ±4.7 gauss
	MagGain5_6 MagGain = 0xC0 // ±5.6 gauss
	MagGain8_1 MagGain = 0xE0 // ±8.1 gauss

	DefaultMagGain = MagGain1_3
)

// MagScale holds LSB-per-gauss sensitivities. X and Y share one value.
type MagScale struct {
	XY float64
	Z  float64
}

type gainInfo struct {
	gauss float64
	scale MagScale
}

var magGains = map[MagGain]gainInfo{
	MagGain1_3: {1.3, MagScale{XY: 1100, Z: 980}},
	MagGain1_9: {1.9, MagScale{XY: 855, Z: 760}},
	MagGain2_5: {2.5, MagScale{XY: 670, Z: 600}},
	MagGain4_0: {4.0, MagScale{XY: 450, Z: 400}},
	MagGain4_7: {4.7, MagScale{XY: 400, Z: 355}},
	MagGain5_6: {5.6, MagScale{XY: 330, Z: 295}},
	MagGain8_1: {8.1, MagScale{XY: 230, Z: 205}},
}

func (g MagGain) Valid() bool {
	_, ok := magGains[g]
	return ok
}

// Gauss returns the full-scale range.
func (g MagGain) Gauss() float64 { return magGains[g].gauss }

// Scale returns the sensitivity table entry for g.
func (g MagGain) Scale() (MagScale, error) {
	info, ok := magGains[g]
	if !ok {
		return MagScale{}, fmt.Errorf("%w: magnetometer gain 0x%02X", ErrInvalidConfiguration, byte(g))
	}
	return info.scale, nil
}

func (g MagGain) String() string {
	if !g.Valid() {
		return fmt.Sprintf("MagGain(0x%02X)", byte(g))
	}
	return fmt.Sprintf("±%.1fGa", g.Gauss())
}

// MagGainFromGauss looks up the gain code for a full-scale range in gauss.
func MagGainFromGauss(gauss float64) (MagGain, error) {
	for g, info := range magGains {
		if info.gauss == gauss {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: magnetometer gain ±%g gauss", ErrInvalidConfiguration, gauss)
}
