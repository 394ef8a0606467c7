package database

import (
	"slices"
	"strings"
)

// Filters holds equality filters for List queries, keyed by filter name.
// Unknown keys and empty values are ignored.
type Filters map[string]string

// Fields holds a partial update keyed by field name
type Fields map[string]any

// Entity identifies a repository's record type
type Entity string

const (
	EntityUser     Entity = "user"
	EntityDisaster Entity = "disaster"
	EntityCamp     Entity = "camp"
	EntityDonation Entity = "donation"
)

// fieldSet is the ordered allow-list of columns an Update may assign
type fieldSet []string

var mutableFields = map[Entity]fieldSet{
	EntityUser: {"full_name", "email", "phone", "status"},
	EntityDisaster: {
		"disaster_name", "disaster_type", "location", "latitude", "longitude", "severity",
		"description", "affected_population", "casualties", "status", "end_date",
	},
	EntityCamp: {
		"camp_name", "location", "latitude", "longitude", "capacity", "current_occupancy",
		"facilities", "status", "manager_id", "closed_date",
	},
	EntityDonation: {"status", "payment_method", "transaction_id", "notes"},
}

// MutableFields returns the fields Update accepts for an entity
func MutableFields(e Entity) []string {
	return slices.Clone(mutableFields[e])
}

// assignments builds the SET clause for the allowed fields present in the input.
// Column names always come from the allow-list.
func (fs fieldSet) assignments(fields Fields) (string, []any, error) {
	var sets []string
	var args []any
	for _, name := range fs {
		value, ok := fields[name]
		if !ok || value == nil {
			continue
		}
		sets = append(sets, name+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return "", nil, ErrNothingToUpdate
	}
	return strings.Join(sets, ", "), args, nil
}

// filterKey maps a public filter name to the column it constrains
type filterKey struct {
	name   string
	column string
}

// predicate is a conjunction of equality clauses with bound parameters
type predicate struct {
	clauses []string
	args    []any
}

func where() *predicate {
	return &predicate{clauses: []string{"1=1"}}
}

func (p *predicate) eq(column string, value any) *predicate {
	p.clauses = append(p.clauses, column+" = ?")
	p.args = append(p.args, value)
	return p
}

// filter appends one clause per recognised, non-empty filter
func (p *predicate) filter(filters Filters, vocabulary []filterKey) *predicate {
	for _, k := range vocabulary {
		if v := filters[k.name]; v != "" {
			p.eq(k.column, v)
		}
	}
	return p
}

func (p *predicate) String() string {
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
