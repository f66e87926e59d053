package adc

import "avrsim/hw/hwio"

// TriggerClient lets the converter take its auto trigger source from the
// upper 3 bits of a shared SFIOR register instead of ADCSRB.
type TriggerClient struct {
	adts uint8
}

func (c *TriggerClient) SetFromReg(reg *hwio.SpecialReg, val uint8) uint8 {
	c.adts = val >> 5
	return val
}

func (c *TriggerClient) GetFromClient(reg *hwio.SpecialReg, val uint8) uint8 {
	return val
}

// NewWithSFIOR returns a converter whose trigger source is held in sfior.
func NewWithSFIOR(cfg Config, sfior *hwio.SpecialReg) *ADC {
	a := New(cfg)
	a.sfior = &TriggerClient{}
	sfior.Connect(a.sfior)
	return a
}
