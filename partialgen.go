// Package partialgen is the run-time contract of code generated by the
// partialgen tool.
//
// Types opt into generation by embedding Base (directly or through other
// embedded structs) and marking the declaration with a directive:
//
//	//partialgen:partial
//	//partialgen:method MapModifiedTo(dst *CustomerRecord) error
//	type Customer struct {
//		partialgen.Base
//
//		Name  string  `partial:""`
//		Email *string `partial:""`
//	}
//
// The generator then writes customer_partial.go with GetName/SetName style
// accessors that forward to Read and Write, and a MapModifiedTo body that
// copies modified properties into the destination.
//
// Base is a minimal property store. It is not safe for concurrent use.
package partialgen

import (
	"fmt"
	"sort"
)

// Host is implemented by every type that embeds Base.
type Host interface {
	partialBase() *Base
}

// Base is the marker base type. Generated accessors keep property values
// here, keyed by property name.
type Base struct {
	props map[string]*Property
}

func (b *Base) partialBase() *Base { return b }

// Property is the by-name view of a single property.
type Property struct {
	name     string
	value    any
	set      bool
	modified bool
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Value returns the raw stored value, or nil if the property was never set.
func (p *Property) Value() any { return p.value }

// IsSet reports whether the property holds a value.
func (p *Property) IsSet() bool { return p.set }

// IsModified reports whether the property was written since the last
// call to MarkClean.
func (p *Property) IsModified() bool { return p.modified }

// Property returns the property with the given name. It never returns nil;
// unknown names yield an unset, unmodified property.
func (b *Base) Property(name string) *Property {
	if p, ok := b.props[name]; ok {
		return p
	}
	return &Property{name: name}
}

// IsModified reports whether any property was modified.
func (b *Base) IsModified() bool {
	for _, p := range b.props {
		if p.modified {
			return true
		}
	}
	return false
}

// Modified returns the names of the modified properties in sorted order.
func (b *Base) Modified() []string {
	var names []string
	for name, p := range b.props {
		if p.modified {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// MarkClean resets the modified flag of all properties.
func (b *Base) MarkClean() {
	for _, p := range b.props {
		p.modified = false
	}
}

// LoadProperty stores a value without marking the property modified.
// It is meant for hydrating an instance from storage.
func (b *Base) LoadProperty(name string, value any) {
	p := b.property(name)
	p.value, p.set = value, true
}

func (b *Base) property(name string) *Property {
	if b.props == nil {
		b.props = make(map[string]*Property)
	}
	p, ok := b.props[name]
	if !ok {
		p = &Property{name: name}
		b.props[name] = p
	}
	return p
}

// Read returns the value of the named property. Unset properties yield the
// zero value of T. It panics with a *PropertyTypeError if the stored value
// is not a T.
func Read[T any](h Host, name string) T {
	var zero T
	p, ok := h.partialBase().props[name]
	if !ok || !p.set || p.value == nil {
		return zero
	}
	v, ok := p.value.(T)
	if !ok {
		panic(&PropertyTypeError{Property: name, Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", p.value)})
	}
	return v
}

// Write stores the value of the named property and marks it modified.
func Write[T any](h Host, name string, value T) {
	p := h.partialBase().property(name)
	p.value, p.set, p.modified = value, true, true
}

// Required returns v unchanged. Generated mappers use it to copy a nullable
// property into a non-nullable destination; it panics with a
// *NilPropertyError naming typ and property when v is nil.
func Required[T any](v *T, typ, property string) *T {
	if v == nil {
		panic(NewNilPropertyError(typ, property))
	}
	return v
}
