package document

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidFieldRef = errors.New("invalid field reference")

// FieldRef identifies one field inside a CanonicalDocument.
//
// Textual form:
//
//	totals.subtotal
//	line_items[2].tax_amount
//	document.issue_date
//	supplier.bank.iban
//	unknown
type FieldRef interface {
	String() string
	fieldRef()
}

type TotalsField struct{ Name string }

type LineItemField struct {
	Index int // zero-based
	Name  string
}

type DocumentField struct{ Name string }

type PartyRole string

const (
	Supplier PartyRole = "supplier"
	Customer PartyRole = "customer"
)

// PartyField names a supplier or customer field; Name may be nested ("bank.iban").
type PartyField struct {
	Role PartyRole
	Name string
}

// UnknownField is used when a finding cannot be mapped to a field.
type UnknownField struct{}

func (TotalsField) fieldRef()   {}
func (LineItemField) fieldRef() {}
func (DocumentField) fieldRef() {}
func (PartyField) fieldRef()    {}
func (UnknownField) fieldRef()  {}

func (f TotalsField) String() string   { return "totals." + f.Name }
func (f LineItemField) String() string { return fmt.Sprintf("line_items[%d].%s", f.Index, f.Name) }
func (f DocumentField) String() string { return "document." + f.Name }
func (f PartyField) String() string    { return string(f.Role) + "." + f.Name }
func (UnknownField) String() string    { return "unknown" }

var (
	reFieldName = regexp.MustCompile(`^[a-z0-9_]+(\[\d+\])?(\.[a-z0-9_]+(\[\d+\])?)*$`)
	reLineItem  = regexp.MustCompile(`^line_items\[(\d+)\]\.(.+)$`)
)

// ParseFieldRef is the inverse of FieldRef.String.
func ParseFieldRef(s string) (FieldRef, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "unknown" {
		return UnknownField{}, nil
	}

	if m := reLineItem.FindStringSubmatch(s); m != nil {
		idx, err := strconv.Atoi(m[1])
		if err != nil || !reFieldName.MatchString(m[2]) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFieldRef, s)
		}
		return LineItemField{Index: idx, Name: m[2]}, nil
	}

	head, rest, ok := strings.Cut(s, ".")
	if !ok || !reFieldName.MatchString(rest) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldRef, s)
	}
	switch head {
	case "totals":
		return TotalsField{Name: rest}, nil
	case "document":
		return DocumentField{Name: rest}, nil
	case string(Supplier), string(Customer):
		return PartyField{Role: PartyRole(head), Name: rest}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidFieldRef, s)
}

// MustParseFieldRef panics on malformed input; for literals only.
func MustParseFieldRef(s string) FieldRef {
	ref, err := ParseFieldRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}
