package llm

// BuildCanonicalJSONSchema returns the JSON-Schema (draft 2020-12 subset) of a
// canonical document candidate as a generic map. It is sent to the model and
// used locally to validate what comes back.
func BuildCanonicalJSONSchema() map[string]any {
	address := object(map[string]any{
		"street":      nullableString(),
		"city":        nullableString(),
		"postal_code": nullableString(),
		"country":     map[string]any{"type": []string{"string", "null"}, "pattern": `^[A-Za-z]{2}$`},
		"region":      nullableString(),
	})
	party := object(map[string]any{
		"name":                nullableString(),
		"tax_id":              nullableString(),
		"registration_number": nullableString(),
		"address":             address,
		"contact": object(map[string]any{
			"email":   nullableString(),
			"phone":   nullableString(),
			"website": nullableString(),
		}),
		"bank": object(map[string]any{
			"iban":           nullableString(),
			"bic":            nullableString(),
			"account_number": nullableString(),
			"bank_name":      nullableString(),
		}),
	})

	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"line_number":      map[string]any{"type": []string{"integer", "null"}, "minimum": 1},
			"description":      nullableString(),
			"quantity":         amountProp(),
			"unit":             nullableString(),
			"unit_price":       amountProp(),
			"discount_percent": amountProp(),
			"discount_amount":  amountProp(),
			"tax_rate":         amountProp(),
			"tax_amount":       amountProp(),
			"line_total":       amountProp(),
			"notes":            nullableString(),
		},
	}
	taxBreakdown := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rate":           amountProp(),
			"taxable_amount": amountProp(),
			"tax_amount":     amountProp(),
		},
	}

	props := map[string]any{
		"schema_version": nullableString(),
		"document": object(map[string]any{
			"type":       nullableString(),
			"number":     nullableString(),
			"issue_date": dateProp(),
			"due_date":   dateProp(),
			"currency":   map[string]any{"type": []string{"string", "null"}, "pattern": `^[A-Za-z]{3}$`},
			"language":   nullableString(),
		}),
		"supplier":   party,
		"customer":   party,
		"line_items": map[string]any{"type": []string{"array", "null"}, "items": lineItem},
		"totals": object(map[string]any{
			"subtotal":        amountProp(),
			"tax_breakdown":   map[string]any{"type": []string{"array", "null"}, "items": taxBreakdown},
			"total_tax":       amountProp(),
			"shipping_amount": amountProp(),
			"total_amount":    amountProp(),
			"amount_due":      amountProp(),
			"prepaid_amount":  amountProp(),
			"rounding_amount": amountProp(),
			"currency":        nullableString(),
		}),
		"payment": object(map[string]any{
			"method":      nullableString(),
			"terms":       nullableString(),
			"reference":   nullableString(),
			"paid_amount": amountProp(),
			"paid_date":   dateProp(),
		}),
		"notes": nullableString(),
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func object(props map[string]any) map[string]any {
	return map[string]any{"type": []string{"object", "null"}, "properties": props}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func dateProp() map[string]any {
	return map[string]any{"type": []string{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

// amountProp accepts JSON numbers or plain decimal strings ("1234.56").
func amountProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `^-?\d+(\.\d+)?$`},
			map[string]any{"type": "null"},
		},
	}
}
