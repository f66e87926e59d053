package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

// EntryZ is a log record under construction. A nil *EntryZ is returned when
// the level is disabled for a module: all methods are no-op on nil, so call
// chains cost next to nothing when logging is off.
type EntryZ struct {
	mod   Module
	lvl   Level
	msg   string
	zfbuf [16]ZField
	zfidx int
}

var entryPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	z := entryPool.Get().(*EntryZ)
	z.zfidx = 0
	return z
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil {
		return nil
	}
	if z.zfidx < len(z.zfbuf) {
		z.zfbuf[z.zfidx] = f
		z.zfidx++
	}
	return z
}

func (z *EntryZ) Bool(key string, b bool) *EntryZ {
	return z.add(ZField{Type: FieldTypeBool, Key: key, Boolean: b})
}

func (z *EntryZ) String(key, s string) *EntryZ {
	return z.add(ZField{Type: FieldTypeString, Key: key, String: s})
}

func (z *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex8, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex16, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Hex32(key string, v uint32) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex32, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Int(key string, v int) *EntryZ {
	return z.add(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Int64(key string, v int64) *EntryZ {
	return z.add(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Uint(key string, v uint) *EntryZ {
	return z.add(ZField{Type: FieldTypeUint, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Uint8(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeUint, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Float(key string, v float64) *EntryZ {
	return z.add(ZField{Type: FieldTypeFloat, Key: key, Float: v})
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	return z.add(ZField{Type: FieldTypeError, Key: key, Error: err})
}

func (z *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return z.add(ZField{Type: FieldTypeDuration, Key: key, Duration: d})
}

func (z *EntryZ) Stringer(key string, s fmt.Stringer) *EntryZ {
	return z.add(ZField{Type: FieldTypeStringer, Key: key, Interface: s})
}

func (z *EntryZ) Blob(key string, b []byte) *EntryZ {
	return z.add(ZField{Type: FieldTypeBlob, Key: key, Blob: b})
}

// End emits the record and releases the entry.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	fields := make(logrus.Fields, z.zfidx+len(contexts)+1)
	fields["_mod"] = modNames[z.mod]

	// Contexts come first so that explicit fields can shadow them.
	var ctxz EntryZ
	for _, c := range contexts {
		c.AddLogContext(&ctxz)
	}
	for i := range ctxz.zfbuf[:ctxz.zfidx] {
		fields[ctxz.zfbuf[i].Key] = ctxz.zfbuf[i].Value()
	}
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	entry := logrus.StandardLogger().WithFields(fields)
	switch z.lvl {
	case DebugLevel:
		entry.Debug(z.msg)
	case InfoLevel:
		entry.Info(z.msg)
	case WarnLevel:
		entry.Warn(z.msg)
	case ErrorLevel:
		entry.Error(z.msg)
	case FatalLevel:
		entry.Fatal(z.msg)
	case PanicLevel:
		entryPool.Put(z)
		entry.Panic(z.msg)
	}
	entryPool.Put(z)
}
