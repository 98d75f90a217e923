package modbus

import "fmt"

// State tells which branch of an Outcome is populated.
type State int

const (
	StateNone State = iota // no attempt was made
	StateGood
	StateBad
)

func (s State) String() string {
	switch s {
	case StateGood:
		return "good"
	case StateBad:
		return "bad"
	default:
		return "none"
	}
}

// Good is a successful transaction.
type Good[T bool | uint16] struct {
	Data                []T
	ElapsedMilliseconds uint64
}

// Bad is a failed transaction. ErrorCode and ExceptionCode are set when the
// server answered with an unexpected function code; otherwise Message holds a
// local diagnostic and both codes are zero.
type Bad struct {
	ErrorCode     uint8
	ExceptionCode uint8
	Message       string
	Err           error
}

func (b Bad) String() string {
	if b.ErrorCode != 0 {
		return fmt.Sprintf("error code 0x%02X, exception code 0x%02X: %s", b.ErrorCode, b.ExceptionCode, b.Message)
	}
	return b.Message
}

// Outcome is the result of one client call.
type Outcome[T bool | uint16] struct {
	state State
	good  Good[T]
	bad   Bad
}

// CoilOutcome carries coil or discrete input states.
type CoilOutcome = Outcome[bool]

// RegisterOutcome carries register words.
type RegisterOutcome = Outcome[uint16]

func goodOutcome[T bool | uint16](data []T, elapsed uint64) Outcome[T] {
	return Outcome[T]{state: StateGood, good: Good[T]{Data: data, ElapsedMilliseconds: elapsed}}
}

func badOutcome[T bool | uint16](bad Bad) Outcome[T] {
	return Outcome[T]{state: StateBad, bad: bad}
}

// badMessage wraps a local failure into a Bad outcome.
func badMessage[T bool | uint16](message string, err error) Outcome[T] {
	return badOutcome[T](Bad{Message: message, Err: err})
}

func noneOutcome[T bool | uint16]() Outcome[T] {
	return Outcome[T]{state: StateNone}
}

func (o Outcome[T]) State() State { return o.state }

func (o Outcome[T]) IsGood() bool { return o.state == StateGood }

func (o Outcome[T]) IsBad() bool { return o.state == StateBad }

func (o Outcome[T]) IsNone() bool { return o.state == StateNone }

// IsSome reports whether an attempt was made, successful or not.
func (o Outcome[T]) IsSome() bool { return o.state != StateNone }

// Good returns the successful branch.
func (o Outcome[T]) Good() (Good[T], bool) {
	return o.good, o.state == StateGood
}

// Bad returns the failure branch.
func (o Outcome[T]) Bad() (Bad, bool) {
	return o.bad, o.state == StateBad
}

// Data returns the payload of a good outcome and nil otherwise.
func (o Outcome[T]) Data() []T {
	if o.state != StateGood {
		return nil
	}
	return o.good.Data
}

// Err converts the outcome into a Go error. It is nil for good outcomes.
func (o Outcome[T]) Err() error {
	switch o.state {
	case StateGood:
		return nil
	case StateNone:
		return ErrNotConnected
	}
	if o.bad.Err != nil {
		return o.bad.Err
	}
	return fmt.Errorf("modbus: %s", o.bad)
}

func (o Outcome[T]) String() string {
	switch o.state {
	case StateGood:
		return fmt.Sprintf("good %v (%d ms)", o.good.Data, o.good.ElapsedMilliseconds)
	case StateBad:
		return "bad: " + o.bad.String()
	default:
		return "none"
	}
}
