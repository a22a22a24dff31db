package subst

import (
	"log/slog"
	"reflect"
	"strings"
)

// Slot declares one position of a context tuple: a name (used by [FieldIn]
// and by expression evaluators) and the static type of the value supplied
// there at expansion time.
type Slot struct {
	Name string
	Type reflect.Type
}

// SlotOf returns a Slot named name holding values of type T.
func SlotOf[T any](name string) Slot {
	return Slot{Name: name, Type: reflect.TypeFor[T]()}
}

// String returns "name:type".
func (s Slot) String() string {
	if s.Type == nil {
		return s.Name + ":<nil>"
	}

	return s.Name + ":" + s.Type.String()
}

// Shape is the ordered list of slots every context tuple expanded against a
// registry must match.
type Shape []Slot

// Index returns the position of the slot named name.
func (s Shape) Index(name string) (int, bool) {
	for i, slot := range s {
		if slot.Name == name {
			return i, true
		}
	}

	return -1, false
}

// String returns the shape formatted as "(name:type, ...)".
func (s Shape) String() string {
	part := make([]string, len(s))
	for i, slot := range s {
		part[i] = slot.String()
	}

	return "(" + strings.Join(part, ", ") + ")"
}

// Resolve returns the index of the unique slot whose values can be read as a
// t: slots of type t itself, of a type assignable to t, or of type *t.
// It fails with ErrNoSuchSlot or ErrAmbiguousSlot otherwise.
func (s Shape) Resolve(t reflect.Type) (int, error) {
	found := -1

	var names []string

	for i, slot := range s {
		if !satisfies(slot.Type, t) {
			continue
		}

		names = append(names, slot.Name)

		if found < 0 {
			found = i
		}
	}

	switch len(names) {
	case 0:
		return -1, ErrNoSuchSlot.With(
			slog.String("type", t.String()),
			slog.String("shape", s.String()),
		)

	case 1:
		return found, nil

	default:
		return -1, ErrAmbiguousSlot.With(
			slog.String("type", t.String()),
			slog.String("slots", strings.Join(names, ",")),
		)
	}
}

func satisfies(slot, want reflect.Type) bool {
	if slot == nil || want == nil {
		return false
	}

	if slot == want || slot.AssignableTo(want) {
		return true
	}

	return slot.Kind() == reflect.Pointer && slot.Elem() == want
}

// Check verifies that ctx has exactly one value per slot and that each value
// is assignable to its slot's type. Nil values are accepted for slots of a
// nillable kind.
func (s Shape) Check(ctx Context) error {
	if len(ctx) != len(s) {
		return ErrContextShape.With(
			slog.Int("want", len(s)),
			slog.Int("got", len(ctx)),
			slog.String("shape", s.String()),
		)
	}

	for i, slot := range s {
		v := ctx[i]
		if v == nil {
			if nillable(slot.Type) {
				continue
			}

			return ErrContextShape.With(
				slog.String("slot", slot.Name),
				slog.String("want", slot.Type.String()),
				slog.String("got", "nil"),
			)
		}

		if t := reflect.TypeOf(v); !t.AssignableTo(slot.Type) {
			return ErrContextShape.With(
				slog.String("slot", slot.Name),
				slog.String("want", slot.Type.String()),
				slog.String("got", t.String()),
			)
		}
	}

	return nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// Context is one tuple of values supplied to an expansion, ordered as the
// registry's [Shape].
type Context []any

// At returns the value in slot i, or nil if i is out of range.
func (c Context) At(i int) any {
	if i < 0 || i >= len(c) {
		return nil
	}

	return c[i]
}

// slotRange reports an ErrSlotRange for index i of shape s.
func slotRange(s Shape, i int) error {
	return ErrSlotRange.With(
		slog.Int("index", i),
		slog.Int("slots", len(s)),
	)
}
