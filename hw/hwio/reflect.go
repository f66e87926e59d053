package hwio

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type bankRegInfo struct {
	name   string
	offset uint16
	regPtr any
}

// tagOptions holds the parsed content of a "hwio" struct tag.
type tagOptions struct {
	offset    int64 // -1 if absent
	bank      int64
	reset     int64
	rwmask    int64 // -1 if absent
	readonly  bool
	writeonly bool
	callbacks map[string]string // callback kind -> method name, empty if default
}

var callbackKinds = map[string]bool{
	"rcb": true, "wcb": true, "pcb": true, // Reg8
	"get": true, "set": true, "peek": true, "getbit": true, "setbit": true, // IOReg
}

func parseTag(tag string) (tagOptions, error) {
	opts := tagOptions{offset: -1, rwmask: -1, callbacks: make(map[string]string)}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, val, hasVal := strings.Cut(opt, "=")
		parseNum := func(max int64) (int64, error) {
			n, err := strconv.ParseInt(val, 0, 64)
			if err != nil {
				return 0, errors.Wrapf(err, "invalid %s value", key)
			}
			if n < 0 || n > max {
				return 0, errors.Errorf("%s value out of range: %s", key, val)
			}
			return n, nil
		}

		var err error
		switch {
		case key == "offset":
			opts.offset, err = parseNum(0xFFFF)
		case key == "bank":
			opts.bank, err = parseNum(0xFF)
		case key == "reset":
			opts.reset, err = parseNum(0xFF)
		case key == "rwmask":
			opts.rwmask, err = parseNum(0xFF)
		case key == "readonly":
			opts.readonly = true
		case key == "writeonly":
			opts.writeonly = true
		case callbackKinds[key]:
			if hasVal {
				opts.callbacks[key] = val
			} else {
				opts.callbacks[key] = ""
			}
		default:
			err = errors.Errorf("unknown option %q", key)
		}
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

var cbPrefix = map[string]string{
	"rcb":    "Read",
	"wcb":    "Write",
	"pcb":    "Peek",
	"get":    "Get",
	"set":    "Set",
	"peek":   "Peek",
	"getbit": "GetBit",
	"setbit": "SetBit",
}

// method returns the bound method implementing the given callback kind for
// the register named regname.
func method(bank reflect.Value, regname, kind, name string) (reflect.Value, error) {
	if name == "" {
		name = cbPrefix[kind] + strings.ToUpper(regname)
	}
	m := bank.MethodByName(name)
	if !m.IsValid() {
		return m, errors.Errorf("register %s: missing method %s for %s", regname, name, kind)
	}
	return m, nil
}

func bindCallback[F any](dst *F, bank reflect.Value, regname, kind, name string) error {
	m, err := method(bank, regname, kind, name)
	if err != nil {
		return err
	}
	f, ok := m.Interface().(F)
	if !ok {
		var zero F
		return errors.Errorf("register %s: %s callback has type %s, want %T", regname, kind, m.Type(), zero)
	}
	*dst = f
	return nil
}

func initReg8(reg *Reg8, bank reflect.Value, name string, opts tagOptions) error {
	reg.Name = name
	reg.ResetValue = uint8(opts.reset)
	reg.Value = reg.ResetValue
	if opts.rwmask >= 0 {
		reg.RoMask = ^uint8(opts.rwmask)
	}
	if opts.readonly {
		reg.Flags |= ReadOnlyFlag
	}
	if opts.writeonly {
		reg.Flags |= WriteOnlyFlag
	}

	for kind, mname := range opts.callbacks {
		var err error
		switch kind {
		case "rcb":
			err = bindCallback(&reg.ReadCb, bank, name, kind, mname)
		case "wcb":
			err = bindCallback(&reg.WriteCb, bank, name, kind, mname)
		case "pcb":
			err = bindCallback(&reg.PeekCb, bank, name, kind, mname)
		default:
			err = errors.Errorf("register %s: option %s not supported by Reg8", name, kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func initIOReg(reg *IOReg, bank reflect.Value, name string, opts tagOptions) error {
	if reg.Name == "" {
		reg.Name = name
	}
	if opts.reset != 0 || opts.rwmask >= 0 {
		return errors.Errorf("register %s: IOReg holds no value, reset and rwmask are not supported", name)
	}

	for kind, mname := range opts.callbacks {
		var err error
		switch kind {
		case "get":
			err = bindCallback(&reg.Get, bank, name, kind, mname)
		case "set":
			err = bindCallback(&reg.Set, bank, name, kind, mname)
		case "peek":
			err = bindCallback(&reg.Peek, bank, name, kind, mname)
		case "getbit":
			err = bindCallback(&reg.GetBit, bank, name, kind, mname)
		case "setbit":
			err = bindCallback(&reg.SetBit, bank, name, kind, mname)
		default:
			err = errors.Errorf("register %s: option %s not supported by IOReg", name, kind)
		}
		if err != nil {
			return err
		}
	}
	// readonly/writeonly on an IOReg simply means no setter/getter.
	if opts.readonly && reg.Set != nil || opts.writeonly && reg.Get != nil {
		return errors.Errorf("register %s: conflicting access flags and accessors", name)
	}
	return reg.checkBound()
}

// structFields iterates over the hwio-tagged fields of the struct pointed to
// by bank.
func structFields(bank any, fn func(f reflect.StructField, v reflect.Value, opts tagOptions) error) error {
	pv := reflect.ValueOf(bank)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Struct {
		return errors.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sv := pv.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return errors.Errorf("hwio: unexported register field %s.%s", st.Name(), f.Name)
		}
		opts, err := parseTag(tag)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", st.Name(), f.Name)
		}
		if err := fn(f, sv.Field(i), opts); err != nil {
			return errors.Wrapf(err, "%s.%s", st.Name(), f.Name)
		}
	}
	return nil
}

// InitRegs initializes the registers of a structure according to their
// "hwio" struct tags, binding callbacks to the methods of bank. Supported
// options, besides offset and bank (see Table.MapBank):
//
//	reset=0x12        reset value (Reg8)
//	rwmask=0xF0       writable bits (Reg8), others are read-only
//	readonly          writes are rejected
//	writeonly         reads are rejected
//	rcb, wcb, pcb     bind ReadNAME, WriteNAME, PeekNAME (Reg8)
//	get, set, peek    bind GetNAME, SetNAME, PeekNAME (IOReg)
//	getbit, setbit    bind GetBitNAME, SetBitNAME (IOReg)
//
// where NAME is the upper-cased field name. Any callback option accepts an
// explicit method name, as in pcb=PeekStatus.
func InitRegs(bank any) error {
	bv := reflect.ValueOf(bank)
	return structFields(bank, func(f reflect.StructField, v reflect.Value, opts tagOptions) error {
		switch p := v.Addr().Interface().(type) {
		case *Reg8:
			return initReg8(p, bv, f.Name, opts)
		case *IOReg:
			return initIOReg(p, bv, f.Name, opts)
		case *SpecialReg:
			if p.Name == "" {
				p.Name = f.Name
			}
			p.ResetTo(uint8(opts.reset))
			return nil
		case *Mem:
			if p.Name == "" {
				p.Name = f.Name
			}
			return nil
		}
		return errors.Errorf("unsupported register type %s", f.Type)
	})
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

func bankGetRegs(bank any, bankNum int) ([]bankRegInfo, error) {
	var regs []bankRegInfo
	err := structFields(bank, func(f reflect.StructField, v reflect.Value, opts tagOptions) error {
		if opts.offset < 0 || opts.bank != int64(bankNum) {
			return nil
		}
		regs = append(regs, bankRegInfo{
			name:   f.Name,
			offset: uint16(opts.offset),
			regPtr: v.Addr().Interface(),
		})
		return nil
	})
	return regs, err
}
