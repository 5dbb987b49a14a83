package observability

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// stringArray records what a level encoder appends.
type stringArray struct {
	items []string
}

func (s *stringArray) AppendString(v string) { s.items = append(s.items, v) }

func (s *stringArray) AppendBool(bool) {}
func (s *stringArray) AppendByteString([]byte) {}
func (s *stringArray) AppendComplex128(complex128) {}
func (s *stringArray) AppendComplex64(complex64) {}
func (s *stringArray) AppendFloat64(float64) {}
func (s *stringArray) AppendFloat32(float32) {}
func (s *stringArray) AppendInt(int) {}
func (s *stringArray) AppendInt64(int64) {}
func (s *stringArray) AppendInt32(int32) {}
func (s *stringArray) AppendInt16(int16) {}
func (s *stringArray) AppendInt8(int8) {}
func (s *stringArray) AppendUint(uint) {}
func (s *stringArray) AppendUint64(uint64) {}
func (s *stringArray) AppendUint32(uint32) {}
func (s *stringArray) AppendUint16(uint16) {}
func (s *stringArray) AppendUint8(uint8) {}
func (s *stringArray) AppendUintptr(uintptr) {}
func (s *stringArray) AppendDuration(time.Duration) {}
func (s *stringArray) AppendTime(time.Time) {}

var _ zapcore.PrimitiveArrayEncoder = (*stringArray)(nil)
