package nodelist

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBatchSize is the number of range tokens sent in one update command.
// scontrol fails somewhere below 100000 hosts in a single range
// ("Too many hosts in range"), 100 keeps every command well under it.
const DefaultBatchSize = 100

var (
	// ErrMisaligned is returned when address or hostname lists do not have
	// the same number of entries as the node list
	ErrMisaligned = errors.New("misaligned node attribute count")

	// ErrMalformed is returned for unbalanced brackets or empty entries
	ErrMalformed = errors.New("malformed node range expression")
)

// List is a node range expression split into top level tokens,
// e.g. "a-[1,2],b-[3]" is List{"a-[1,2]", "b-[3]"}
type List []string

// Parse splits expr on commas that are not inside a bracketed range
func Parse(expr string) (List, error) {
	list := List{}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return list, nil
	}

	inside := false
	start := 0
	for i, c := range expr {
		switch c {
		case '[':
			if inside {
				return nil, fmt.Errorf("%w: nested brackets in %q", ErrMalformed, expr)
			}
			inside = true
		case ']':
			if !inside {
				return nil, fmt.Errorf("%w: unmatched end bracket in %q", ErrMalformed, expr)
			}
			inside = false
		case ',':
			if inside {
				continue
			}
			token := strings.TrimSpace(expr[start:i])
			if token == "" {
				return nil, fmt.Errorf("%w: empty entry in %q", ErrMalformed, expr)
			}
			list = append(list, token)
			start = i + 1
		}
	}
	if inside {
		return nil, fmt.Errorf("%w: missing end bracket in %q", ErrMalformed, expr)
	}
	token := strings.TrimSpace(expr[start:])
	if token == "" {
		return nil, fmt.Errorf("%w: empty entry in %q", ErrMalformed, expr)
	}
	return append(list, token), nil
}

// MustParse is like Parse but panics on malformed input
func MustParse(expr string) List {
	l, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return l
}

// String joins the tokens back into a single expression
func (l List) String() string {
	return strings.Join(l, ",")
}

// Batch is one chunk of nodes with the aligned address and hostname chunks.
// Addrs and Hostnames are empty when not supplied.
type Batch struct {
	Nodes     string
	Addrs     string
	Hostnames string
}

// Split groups nodes and the optional parallel addrs and hostnames into
// batches of at most size tokens. Chunk boundaries are identical across the
// three lists. A non-empty addrs or hostnames list must have exactly as many
// tokens as nodes.
func Split(nodes, addrs, hostnames List, size int) ([]Batch, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(addrs) > 0 && len(addrs) != len(nodes) {
		return nil, fmt.Errorf("%w: %d nodes (%s), %d node addresses (%s)",
			ErrMisaligned, len(nodes), nodes, len(addrs), addrs)
	}
	if len(hostnames) > 0 && len(hostnames) != len(nodes) {
		return nil, fmt.Errorf("%w: %d nodes (%s), %d node hostnames (%s)",
			ErrMisaligned, len(nodes), nodes, len(hostnames), hostnames)
	}

	batches := make([]Batch, 0, (len(nodes)+size-1)/size)
	for start := 0; start < len(nodes); start += size {
		end := start + size
		if end > len(nodes) {
			end = len(nodes)
		}
		b := Batch{Nodes: nodes[start:end].String()}
		if len(addrs) > 0 {
			b.Addrs = addrs[start:end].String()
		}
		if len(hostnames) > 0 {
			b.Hostnames = hostnames[start:end].String()
		}
		batches = append(batches, b)
	}
	return batches, nil
}
