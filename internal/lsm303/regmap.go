// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lsm303

import (
	"context"
	"fmt"
)

// BitField describes a group of bits within a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is register map metadata used by the register debugger.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R" or "RW"
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// Writable reports whether the register accepts writes.
func (r RegisterInfo) Writable() bool { return r.Access == "RW" }

var accelRegisters = []RegisterInfo{
	{Address: regCtrl1A, Name: "CTRL_REG1_A", Description: "Data rate and axis enable", Access: "RW",
		BitFields: []BitField{
			{Bits: "7:4", Name: "ODR", Description: "Output data rate", Values: "1=1Hz 2=10Hz 3=25Hz 4=50Hz 5=100Hz 6=200Hz 7=400Hz 9=1344Hz"},
			{Bits: "3", Name: "LPen", Description: "Low power mode"},
			{Bits: "2:0", Name: "Zen Yen Xen", Description: "Axis enable"},
		}},
	{Address: 0x21, Name: "CTRL_REG2_A", Description: "High pass filter", Access: "RW"},
	{Address: 0x22, Name: "CTRL_REG3_A", Description: "INT1 routing", Access: "RW"},
	{Address: 0x23, Name: "CTRL_REG4_A", Description: "Full scale and data format", Access: "RW",
		BitFields: []BitField{
			{Bits: "5:4", Name: "FS", Description: "Full scale", Values: "0=±2g 1=±4g 2=±8g 3=±16g"},
			{Bits: "3", Name: "HR", Description: "High resolution"},
		}},
	{Address: 0x27, Name: "STATUS_REG_A", Description: "Data ready and overrun", Access: "R"},
	{Address: regOutXLA, Name: "OUT_X_L_A", Description: "X low byte", Access: "R"},
	{Address: 0x29, Name: "OUT_X_H_A", Description: "X high byte", Access: "R"},
	{Address: 0x2A, Name: "OUT_Y_L_A", Description: "Y low byte", Access: "R"},
	{Address: 0x2B, Name: "OUT_Y_H_A", Description: "Y high byte", Access: "R"},
	{Address: 0x2C, Name: "OUT_Z_L_A", Description: "Z low byte", Access: "R"},
	{Address: 0x2D, Name: "OUT_Z_H_A", Description: "Z high byte", Access: "R"},
}

var magRegisters = []RegisterInfo{
	{Address: regCRAM, Name: "CRA_REG_M", Description: "Data rate", Access: "RW",
		BitFields: []BitField{
			{Bits: "4:2", Name: "DO", Description: "Output data rate", Values: "0=0.75Hz 1=1.5Hz 2=3Hz 3=7.5Hz 4=15Hz 5=30Hz 6=75Hz 7=220Hz"},
		}},
	{Address: regCRBM, Name: "CRB_REG_M", Description: "Gain", Access: "RW",
		BitFields: []BitField{
			{Bits: "7:5", Name: "GN", Description: "Gain", Values: "1=±1.3 2=±1.9 3=±2.5 4=±4.0 5=±4.7 6=±5.6 7=±8.1 gauss"},
		}},
	{Address: regMRM, Name: "MR_REG_M", Description: "Operating mode", Access: "RW",
		BitFields: []BitField{
			{Bits: "1:0", Name: "MD", Description: "Mode", Values: "0=Continuous 1=Single 2,3=Sleep"},
		}},
	{Address: regOutXHM, Name: "OUT_X_H_M", Description: "X high byte", Access: "R"},
	{Address: 0x04, Name: "OUT_X_L_M", Description: "X low byte", Access: "R"},
	{Address: 0x05, Name: "OUT_Z_H_M", Description: "Z high byte", Access: "R"},
	{Address: 0x06, Name: "OUT_Z_L_M", Description: "Z low byte", Access: "R"},
	{Address: 0x07, Name: "OUT_Y_H_M", Description: "Y high byte", Access: "R"},
	{Address: 0x08, Name: "OUT_Y_L_M", Description: "Y low byte", Access: "R"},
	{Address: 0x09, Name: "SR_REG_M", Description: "Lock and data ready", Access: "R"},
	{Address: 0x0A, Name: "IRA_REG_M", Description: "Identification A, reads 0x48", Access: "R"},
	{Address: 0x0B, Name: "IRB_REG_M", Description: "Identification B, reads 0x34", Access: "R"},
	{Address: 0x0C, Name: "IRC_REG_M", Description: "Identification C, reads 0x33", Access: "R"},
}

// RegisterMap returns the register metadata for the device at addr.
func RegisterMap(addr uint16) ([]RegisterInfo, error) {
	switch addr {
	case AccelAddr:
		return accelRegisters, nil
	case MagAddr:
		return magRegisters, nil
	}
	return nil, fmt.Errorf("%w: no register map for address 0x%02X", ErrInvalidConfiguration, addr)
}

// LookupRegister finds reg in the map of the device at addr.
func LookupRegister(addr uint16, reg byte) (RegisterInfo, error) {
	regs, err := RegisterMap(addr)
	if err != nil {
		return RegisterInfo{}, err
	}
	for _, r := range regs {
		if r.Address == reg {
			return r, nil
		}
	}
	return RegisterInfo{}, fmt.Errorf("%w: unknown register 0x%02X on 0x%02X", ErrInvalidConfiguration, reg, addr)
}

// ReadRegister reads one register. It bypasses the channels, so values written
// with WriteRegister are not reflected in their cached configuration.
func (b *Bus) ReadRegister(ctx context.Context, addr uint16, reg byte) (byte, error) {
	if _, err := LookupRegister(addr, reg); err != nil {
		return 0, err
	}
	v, err := b.readBlock(ctx, addr, reg, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// WriteRegister writes one writable register.
func (b *Bus) WriteRegister(addr uint16, reg, value byte) error {
	info, err := LookupRegister(addr, reg)
	if err != nil {
		return err
	}
	if !info.Writable() {
		return fmt.Errorf("%w: %s is read-only", ErrInvalidConfiguration, info.Name)
	}
	return b.writeReg(addr, reg, value)
}
