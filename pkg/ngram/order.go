package ngram

import "fmt"

// Order is the number of tokens in a model key.
type Order int

const (
	Bigram    Order = 1
	Trigram   Order = 2
	Tetragram Order = 3
)

const (
	BigramLabel    = "Bi-gram"
	TrigramLabel   = "Tri-gram"
	TetragramLabel = "Tetra-gram"
)

// ParseOrder maps a model type label to its Order.
func ParseOrder(label string) (Order, error) {
	switch label {
	case BigramLabel:
		return Bigram, nil
	case TrigramLabel:
		return Trigram, nil
	case TetragramLabel:
		return Tetragram, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected '%s', '%s', or '%s')",
			ErrInvalidModelType, label, BigramLabel, TrigramLabel, TetragramLabel)
	}
}

// OrderOf validates a raw window size.
func OrderOf(window int) (Order, error) {
	o := Order(window)
	if !o.Valid() {
		return 0, fmt.Errorf("%w: window size %d (expected 1, 2, or 3)", ErrInvalidModelType, window)
	}
	return o, nil
}

// Valid reports whether o is one of the supported orders.
func (o Order) Valid() bool {
	return o >= Bigram && o <= Tetragram
}

// Label returns the human-readable model type, e.g. "Tri-gram".
func (o Order) Label() string {
	switch o {
	case Bigram:
		return BigramLabel
	case Trigram:
		return TrigramLabel
	case Tetragram:
		return TetragramLabel
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

func (o Order) String() string {
	return o.Label()
}

// MarshalText encodes the order as its label.
func (o Order) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: window size %d", ErrInvalidModelType, int(o))
	}
	return []byte(o.Label()), nil
}

// UnmarshalText accepts a model type label.
func (o *Order) UnmarshalText(text []byte) error {
	parsed, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
