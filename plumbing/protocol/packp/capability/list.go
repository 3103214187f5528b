package capability

import (
	"errors"
	"strings"
)

var (
	// ErrArguments is returned when a capability that takes no arguments
	// is given one.
	ErrArguments = errors.New("arguments not allowed for this capability")
	// ErrArgumentsRequired is returned when a capability that requires at
	// least one argument is given none.
	ErrArgumentsRequired = errors.New("arguments required for this capability")
	// ErrEmptyArgument is returned when a capability argument is an empty
	// string.
	ErrEmptyArgument = errors.New("empty capability argument")
	// ErrMultipleArguments is returned when a single-argument capability
	// is set more than once, or with more than one value at a time.
	ErrMultipleArguments = errors.New("multiple arguments not allowed for this capability")
)

// List is an ordered, deduplicated set of capabilities and their
// arguments, as carried on the first line of a ref advertisement or
// command list.
type List struct {
	m     map[Capability][]string
	order []Capability
}

// NewList returns an empty List.
func NewList() *List {
	return &List{m: make(map[Capability][]string)}
}

// IsEmpty returns true if the list carries no capability.
func (l *List) IsEmpty() bool {
	return len(l.m) == 0
}

// Decode replaces the list's content by parsing a space-separated
// "name[=value]" token list, such as the one trailing the first pkt-line
// of an advertisement or command.
func (l *List) Decode(data []byte) error {
	l.m = make(map[Capability][]string)
	l.order = nil

	for _, token := range strings.Fields(string(data)) {
		idx := strings.IndexByte(token, '=')
		if idx < 0 {
			if err := l.Add(Capability(token)); err != nil {
				return err
			}
			continue
		}

		name := Capability(token[:idx])
		value := token[idx+1:]
		if err := l.Add(name, value); err != nil {
			return err
		}
	}

	return nil
}

// Supports returns whether the capability is present in the list.
func (l *List) Supports(cap Capability) bool {
	_, ok := l.m[cap]
	return ok
}

// Get returns the arguments carried by cap, or nil if it carries none or
// is absent.
func (l *List) Get(cap Capability) []string {
	return l.m[cap]
}

// Set replaces any arguments already carried by cap with values.
func (l *List) Set(cap Capability, values ...string) error {
	if l.Supports(cap) {
		l.Delete(cap)
	}

	return l.Add(cap, values...)
}

// Add appends values to cap, validating the argument count against the
// capability's known policy. Unknown capabilities accept any arguments.
func (l *List) Add(cap Capability, values ...string) error {
	if policy, ok := knownCapabilities[cap]; ok {
		switch policy {
		case argsNone:
			if len(values) > 0 {
				return ErrArguments
			}
		case argsOne:
			if len(values) == 0 {
				return ErrArgumentsRequired
			}
			if len(values) > 1 {
				return ErrMultipleArguments
			}
			if values[0] == "" {
				return ErrEmptyArgument
			}
			if l.Supports(cap) {
				return ErrMultipleArguments
			}
		case argsMany:
			if len(values) == 0 {
				return ErrArgumentsRequired
			}
			for _, v := range values {
				if v == "" {
					return ErrEmptyArgument
				}
			}
		}
	}

	if !l.Supports(cap) {
		l.order = append(l.order, cap)
	}
	l.m[cap] = append(l.m[cap], values...)

	return nil
}

// Delete removes cap and its arguments from the list.
func (l *List) Delete(cap Capability) {
	if !l.Supports(cap) {
		return
	}

	delete(l.m, cap)
	for i, c := range l.order {
		if c == cap {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// All returns every capability in the list, in the order it was first
// added.
func (l *List) All() []Capability {
	return l.order
}

// String encodes the list back into its wire form.
func (l *List) String() string {
	var parts []string
	for _, cap := range l.order {
		args := l.m[cap]
		if len(args) == 0 {
			parts = append(parts, string(cap))
			continue
		}

		for _, a := range args {
			parts = append(parts, string(cap)+"="+a)
		}
	}

	return strings.Join(parts, " ")
}
