package store

import (
	"strconv"
	"strings"
)

// Predicates accumulates AND-ed WHERE fragments and their positional arguments.
// Fragments use `?` for values; Add renumbers them to `$n` in call order, so
// callers never format values into SQL.
type Predicates struct {
	clauses []string
	args    []interface{}
}

// Add appends one fragment. The number of `?` in fragment must match len(args).
func (p *Predicates) Add(fragment string, args ...interface{}) *Predicates {
	if strings.Count(fragment, "?") != len(args) {
		panic("store: placeholder count does not match arguments in " + strconv.Quote(fragment))
	}
	var b strings.Builder
	n := 0
	for _, r := range fragment {
		if r == '?' {
			b.WriteString("$" + strconv.Itoa(len(p.args)+n+1))
			n++
			continue
		}
		b.WriteRune(r)
	}
	p.clauses = append(p.clauses, b.String())
	p.args = append(p.args, args...)
	return p
}

// Where renders " WHERE a AND b", or "" when nothing was added.
func (p *Predicates) Where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// Args returns a copy of the bound arguments.
func (p *Predicates) Args() []interface{} {
	return append([]interface{}(nil), p.args...)
}

// Page renders " LIMIT $n OFFSET $n+1" after the filter arguments and
// returns the full argument list for the paged query.
func (p *Predicates) Page(limit, offset int) (string, []interface{}) {
	next := len(p.args) + 1
	clause := " LIMIT $" + strconv.Itoa(next) + " OFFSET $" + strconv.Itoa(next+1)
	return clause, append(p.Args(), limit, offset)
}
