package frame

type (
	Slot struct {
		Name   string
		Width  int
		Offset int
	}

	// Layout records where one function's parameters and locals live
	// relative to the frame pointer. The header at [fp-8, fp) holds the
	// saved return address and frame pointer, so locals start at -12.
	// Parameter slots sit above the header at +8, +12, ...
	Layout struct {
		Func string

		Params map[string]*Slot
		Locals map[string]*Slot

		ParamOrder []string
		LocalOrder []string

		localBytes int
	}

	// Registry holds the layout of every function seen so far.
	Registry struct {
		frames map[string]*Layout
	}
)

const (
	// HeaderSize reserves the saved return address and frame pointer.
	HeaderSize = 8

	slotWidth = 4
	align     = 8
)

func NewLayout(fn string) *Layout {
	return &Layout{
		Func:   fn,
		Params: map[string]*Slot{},
		Locals: map[string]*Slot{},
	}
}

func (l *Layout) AddParam(name string) *Slot {
	if s, ok := l.Params[name]; ok {
		return s
	}

	s := &Slot{
		Name:   name,
		Width:  slotWidth,
		Offset: HeaderSize + slotWidth*len(l.ParamOrder),
	}

	l.Params[name] = s
	l.ParamOrder = append(l.ParamOrder, name)

	return s
}

func (l *Layout) AddLocal(name string) *Slot {
	if s, ok := l.Locals[name]; ok {
		return s
	}

	l.localBytes += slotWidth

	s := &Slot{
		Name:   name,
		Width:  slotWidth,
		Offset: -(HeaderSize + l.localBytes),
	}

	l.Locals[name] = s
	l.LocalOrder = append(l.LocalOrder, name)

	return s
}

// Lookup finds a slot by name, params first.
func (l *Layout) Lookup(name string) *Slot {
	if s, ok := l.Params[name]; ok {
		return s
	}
	if s, ok := l.Locals[name]; ok {
		return s
	}

	return nil
}

// Size is the padded frame size: header plus locals, 8-aligned. It is
// meaningful only once the whole body has been walked.
func (l *Layout) Size() int {
	return alignUp(HeaderSize + l.localBytes)
}

func alignUp(n int) int {
	return (n + align - 1) &^ (align - 1)
}

func NewRegistry() *Registry {
	return &Registry{
		frames: map[string]*Layout{},
	}
}

// Frame returns the layout for fn, creating it on first use.
func (r *Registry) Frame(fn string) *Layout {
	l, ok := r.frames[fn]
	if !ok {
		l = NewLayout(fn)
		r.frames[fn] = l
	}

	return l
}

// Has reports whether fn already has a layout.
func (r *Registry) Has(fn string) bool {
	_, ok := r.frames[fn]
	return ok
}
