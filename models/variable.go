package models

import "plotter/utils"

// Number is every type a Variable can be bound to.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Reader reads the current value of some externally owned storage.
type Reader interface {
	Read() float64
}

// ReaderFunc adapts a plain function to a Reader.
type ReaderFunc func() float64

func (f ReaderFunc) Read() float64 {
	return f()
}

type ref[T Number] struct {
	p *T
}

func (r ref[T]) Read() float64 {
	return float64(*r.p)
}

// Ref binds p. The value is converted on every Read, never copied at bind time.
func Ref[T Number](p *T) Reader {
	return ref[T]{p}
}

type boolRef struct {
	p *bool
}

func (r boolRef) Read() float64 {
	return utils.BoolToFloat(*r.p)
}

// Bool binds a flag, read as 1 or 0.
func Bool(p *bool) Reader {
	return boolRef{p}
}

type Variable struct {
	// label is shown in the listener legend.
	label string
	// colour is a palette name or anything the listener understands.
	colour string
	// ref points at storage owned by the caller, the variable only reads it.
	ref Reader
}

func NewVariable(label string, ref Reader, colour string) *Variable {
	return &Variable{
		label,
		colour,
		ref,
	}
}

func (v *Variable) Label() string {
	return v.label
}

func (v *Variable) Colour() string {
	return v.colour
}

func (v *Variable) SetColour(colour string) {
	v.colour = colour
}

// Value reads the bound storage now.
func (v *Variable) Value() float64 {
	return v.ref.Read()
}
