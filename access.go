package modbus

// CoilValue is the state written to a coil.
type CoilValue int

const (
	CoilOff CoilValue = iota
	CoilOn
)

// Word returns the wire encoding used by write single coil.
func (v CoilValue) Word() uint16 {
	if v == CoilOn {
		return CoilWordOn
	}
	return CoilWordOff
}

func (v CoilValue) String() string {
	if v == CoilOn {
		return "on"
	}
	return "off"
}

// CoilValueOf maps a boolean state to a CoilValue.
func CoilValueOf(on bool) CoilValue {
	if on {
		return CoilOn
	}
	return CoilOff
}

// Access wraps a Master and drops the diagnostics: reads return the data or
// an empty slice, writes report success as a bool.
type Access struct {
	master Master
}

func NewAccess(m Master) *Access {
	return &Access{master: m}
}

// Master returns the wrapped client.
func (a *Access) Master() Master { return a.master }

func (a *Access) ReadCoils(address, quantity uint16) []bool {
	return dataOrEmpty(a.master.ReadCoils(address, quantity))
}

func (a *Access) ReadDiscreteInputs(address, quantity uint16) []bool {
	return dataOrEmpty(a.master.ReadDiscreteInputs(address, quantity))
}

func (a *Access) ReadHoldingRegisters(address, quantity uint16) []uint16 {
	return dataOrEmpty(a.master.ReadHoldingRegisters(address, quantity))
}

func (a *Access) ReadInputRegisters(address, quantity uint16) []uint16 {
	return dataOrEmpty(a.master.ReadInputRegisters(address, quantity))
}

func (a *Access) WriteSingleCoil(address uint16, value CoilValue) bool {
	return a.master.WriteSingleCoil(address, value.Word()).IsGood()
}

func (a *Access) WriteSingleRegister(address, value uint16) bool {
	return a.master.WriteSingleRegister(address, value).IsGood()
}

// WriteMultipleCoils writes values starting at address, first value to the
// lowest coil.
func (a *Access) WriteMultipleCoils(address uint16, values []CoilValue) bool {
	if len(values) > MaxWriteCoils {
		return false
	}
	states := make([]bool, len(values))
	for i, v := range values {
		states[i] = v == CoilOn
	}
	return a.master.WriteMultipleCoils(address, uint16(len(values)), PackCoils(states)).IsGood()
}

func (a *Access) WriteMultipleRegisters(address uint16, values []uint16) bool {
	return a.master.WriteMultipleRegisters(address, values).IsGood()
}

func dataOrEmpty[T bool | uint16](o Outcome[T]) []T {
	if data := o.Data(); data != nil {
		return data
	}
	return []T{}
}
