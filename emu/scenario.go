package emu

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// A Scenario describes a device, what is attached to it, and an ordered list
// of actions performed on it. Scenarios are read from TOML files:
//
//	model = "attiny85"
//	vcc = 5.0
//
//	[spi]
//	ss = "B3"
//	sclk = "B2"
//	data = "B0"
//
//	[[step]]
//	op = "write"
//	addr = 0x37
//	value = 0x0d
//
//	[[step]]
//	op = "run"
//	ticks = 1000
type Scenario struct {
	Name   string  `toml:"name"`
	Model  string  `toml:"model"`
	Vcc    float64 `toml:"vcc"`
	Period int64   `toml:"period"`

	Trace string   `toml:"trace"` // trace format, overrides the config
	SPI   *SPISpec `toml:"spi"`
	Steps []Step   `toml:"step"`
}

// SPISpec attaches an SPI sink to three device pins.
type SPISpec struct {
	SS      string `toml:"ss"`
	SCLK    string `toml:"sclk"`
	Data    string `toml:"data"`
	IdleLow bool   `toml:"idle_low"`
	Trail   bool   `toml:"trailing"`
	Quantum int64  `toml:"quantum"`
}

// Op is a scenario action.
type Op string

const (
	OpWrite    Op = "write"    // write value at addr
	OpSetBit   Op = "setbit"   // set bit of addr
	OpClearBit Op = "clearbit" // clear bit of addr
	OpRead     Op = "read"     // read addr, check expect if present
	OpAnalog   Op = "analog"   // drive volts on pin
	OpForce    Op = "force"    // force state on pin
	OpRelease  Op = "release"  // release pin
	OpLevel    Op = "level"    // check the logic level of pin
	OpSPI      Op = "spi"      // check the bytes received by the SPI sink
	OpRun      Op = "run"      // advance time by ticks
	OpReset    Op = "reset"    // reset the device
)

type Step struct {
	Op     Op      `toml:"op"`
	Addr   uint16  `toml:"addr"`
	Value  uint8   `toml:"value"`
	Bit    uint    `toml:"bit"`
	Expect *uint8  `toml:"expect"`
	Pin    string  `toml:"pin"`
	Volts  float64 `toml:"volts"`
	State  string  `toml:"state"`
	High   bool    `toml:"high"`
	Bytes  []uint8 `toml:"bytes"`
	Ticks  int64   `toml:"ticks"`
}

// LoadScenario reads and checks the scenario file at path. The scenario is
// named after the file if it has no name.
func LoadScenario(path string) (*Scenario, error) {
	var sc Scenario
	md, err := toml.DecodeFile(path, &sc)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, errors.Errorf("scenario %s: unknown key %s", path, undec[0])
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return &sc, nil
}

// ParseScenario is like LoadScenario, for a scenario held in memory.
func ParseScenario(name, data string) (*Scenario, error) {
	var sc Scenario
	md, err := toml.Decode(data, &sc)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", name)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, errors.Errorf("scenario %s: unknown key %s", name, undec[0])
	}
	if sc.Name == "" {
		sc.Name = name
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", name)
	}
	return &sc, nil
}

// Validate checks the scenario for errors that don't need a device to be
// detected. Unknown pins are reported when the scenario runs.
func (sc *Scenario) Validate() error {
	switch sc.Trace {
	case "", "text", "json":
	default:
		return errors.Errorf("invalid trace format %q", sc.Trace)
	}
	if sc.SPI != nil {
		if sc.SPI.SS == "" || sc.SPI.SCLK == "" || sc.SPI.Data == "" {
			return errors.New("spi: ss, sclk and data pins are required")
		}
		if sc.SPI.Quantum < 0 {
			return errors.Errorf("spi: invalid quantum %d", sc.SPI.Quantum)
		}
	}
	for i, st := range sc.Steps {
		if err := st.validate(sc); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, st.Op)
		}
	}
	return nil
}

func (st *Step) validate(sc *Scenario) error {
	switch st.Op {
	case OpWrite, OpRead:
	case OpSetBit, OpClearBit:
		if st.Bit > 7 {
			return errors.Errorf("invalid bit %d", st.Bit)
		}
	case OpAnalog, OpRelease, OpLevel:
		if st.Pin == "" {
			return errors.New("missing pin")
		}
	case OpForce:
		if st.Pin == "" {
			return errors.New("missing pin")
		}
		if _, err := parseState(st.State); err != nil {
			return err
		}
	case OpSPI:
		if sc.SPI == nil {
			return errors.New("no spi sink attached")
		}
	case OpRun:
		if st.Ticks <= 0 {
			return errors.Errorf("invalid tick count %d", st.Ticks)
		}
	case OpReset:
	case "":
		return errors.New("missing op")
	default:
		return errors.Errorf("unknown op %q", st.Op)
	}
	return nil
}
