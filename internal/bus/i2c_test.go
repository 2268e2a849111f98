package bus

import (
	"context"
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
)

func TestI2CAccelOverPlayback(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x19, W: []byte{0x20, 0x57}},
			{Addr: 0x19, W: []byte{0xA8}, R: []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		},
	}
	d := NewI2C(pb)
	ctx := context.Background()

	a, err := lsm303.NewAccel(ctx, lsm303.NewBus(d, nil), nil)
	if err != nil {
		t.Fatalf("NewAccel: %v", err)
	}
	raw, err := a.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if raw.X != 16 || raw.Y != 0 || raw.Z != 0 {
		t.Errorf("Poll = %+v, want X=16", raw)
	}
	if err := pb.Close(); err != nil {
		t.Errorf("playback not fully consumed: %v", err)
	}
}

func TestI2CMagOverPlayback(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x1E, W: []byte{0x02, 0x00}},
			{Addr: 0x1E, W: []byte{0x01, 0x20}},
			{Addr: 0x1E, W: []byte{0x00, 0x10}},
			{Addr: 0x1E, W: []byte{0x03}, R: []byte{0x00, 0x64, 0x00, 0x32, 0x00, 0x0A}},
		},
	}
	ctx := context.Background()

	m, err := lsm303.NewMag(ctx, lsm303.NewBus(NewI2C(pb), nil), nil)
	if err != nil {
		t.Fatalf("NewMag: %v", err)
	}
	raw, err := m.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if raw != (lsm303.RawTriple{X: 100, Y: 10, Z: 50}) {
		t.Errorf("Poll = %+v", raw)
	}
	if err := pb.Close(); err != nil {
		t.Errorf("playback not fully consumed: %v", err)
	}
}

type nackBus struct{}

func (nackBus) String() string                    { return "nack" }
func (nackBus) Tx(addr uint16, w, r []byte) error { return errors.New("i2c: NACK") }
func (nackBus) SetSpeed(f physic.Frequency) error { return nil }

func TestI2CNackIsBusTransactionError(t *testing.T) {
	_, err := lsm303.NewAccel(context.Background(), lsm303.NewBus(NewI2C(nackBus{}), nil), nil)
	if !errors.Is(err, lsm303.ErrBusTransaction) {
		t.Fatalf("error = %v, want ErrBusTransaction", err)
	}
}

func TestI2CReadByteEmpty(t *testing.T) {
	d := NewI2C(nackBus{})
	if d.Available() != 0 {
		t.Fatalf("Available() = %d", d.Available())
	}
	if _, err := d.ReadByte(); err == nil {
		t.Fatal("expected error on empty buffer")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
