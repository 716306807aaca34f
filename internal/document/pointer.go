package document

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldPointer resolves ref to a pointer to the addressed field, e.g. *decimal.Decimal,
// **decimal.Decimal for optional amounts, **Date, *int or *string.
// Path segments are matched against json tag names.
func (d *CanonicalDocument) FieldPointer(ref FieldRef) (any, error) {
	var segments []string
	switch f := ref.(type) {
	case TotalsField:
		segments = append([]string{"totals"}, strings.Split(f.Name, ".")...)
	case LineItemField:
		segments = append([]string{fmt.Sprintf("line_items[%d]", f.Index)}, strings.Split(f.Name, ".")...)
	case DocumentField:
		segments = append([]string{"document"}, strings.Split(f.Name, ".")...)
	case PartyField:
		segments = append([]string{string(f.Role)}, strings.Split(f.Name, ".")...)
	default:
		return nil, fmt.Errorf("%w: %s is not addressable", ErrInvalidFieldRef, ref)
	}

	v := reflect.ValueOf(d).Elem()
	for _, seg := range segments {
		name, idx, hasIdx, err := splitIndex(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, ref)
		}
		if v, err = fieldByJSONName(v, name); err != nil {
			return nil, fmt.Errorf("%w: %s", err, ref)
		}
		if hasIdx {
			if v.Kind() != reflect.Slice || idx < 0 || idx >= v.Len() {
				return nil, fmt.Errorf("%w: index %d out of range in %s", ErrInvalidFieldRef, idx, ref)
			}
			v = v.Index(idx)
		}
	}
	return v.Addr().Interface(), nil
}

func splitIndex(seg string) (name string, idx int, hasIdx bool, err error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, 0, false, nil
	}
	if !strings.HasSuffix(seg, "]") {
		return "", 0, false, ErrInvalidFieldRef
	}
	idx, err = strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return "", 0, false, ErrInvalidFieldRef
	}
	return seg[:open], idx, true, nil
}

func fieldByJSONName(v reflect.Value, name string) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil parent of %q", ErrInvalidFieldRef, name)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %q is not a struct field", ErrInvalidFieldRef, name)
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if tag == name {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: no field %q", ErrInvalidFieldRef, name)
}
