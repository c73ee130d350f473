package customers

import (
	"regexp"
	"strconv"
	"strings"
)

var suffixRegex = regexp.MustCompile(`^(.*?)(\d+)$`)

// Generator issues sequential customer identifiers such as C1, C2, ...
// It is seeded once from the persisted identifiers; within a run the caller
// threads the previously issued identifier back into Next.
type Generator struct {
	prefix string
	floor  int // highest number observed or reserved
}

// NewGenerator seeds a generator from the persisted identifiers.
// The prefix of the highest persisted identifier wins over defaultPrefix.
func NewGenerator(defaultPrefix string, persisted []string) *Generator {
	g := &Generator{prefix: defaultPrefix}
	for _, id := range persisted {
		prefix, n, ok := splitIdentifier(id)
		if !ok {
			continue
		}
		if n > g.floor {
			g.floor = n
			g.prefix = prefix
		}
	}
	return g
}

// Next returns the identifier after lastIssued and after every persisted or
// reserved identifier. An empty lastIssued starts from the persisted maximum.
func (g *Generator) Next(lastIssued string) string {
	n := g.floor
	if _, last, ok := splitIdentifier(lastIssued); ok && last > n {
		n = last
	}
	n++
	if n > g.floor {
		g.floor = n
	}
	return g.prefix + strconv.Itoa(n)
}

// Reserve records an identifier committed outside the generator so it is never issued
func (g *Generator) Reserve(identifier string) {
	if _, n, ok := splitIdentifier(identifier); ok && n > g.floor {
		g.floor = n
	}
}

// splitIdentifier parses "C42" into ("C", 42)
func splitIdentifier(id string) (string, int, bool) {
	m := suffixRegex.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}
