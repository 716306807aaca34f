package validate

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRulesYAML []byte

// CountryRules are the tax conventions of one country.
type CountryRules struct {
	Code      string
	Rates     []decimal.Decimal
	VATPrefix string
	vatID     *regexp.Regexp
}

// RuleTable maps ISO 3166-1 alpha-2 codes to their tax conventions.
type RuleTable struct {
	countries map[string]*CountryRules
	// codes in VAT prefix order, for deterministic prefix matching
	byPrefix []*CountryRules
}

type ruleFile struct {
	Countries map[string]struct {
		Rates     []string `yaml:"rates"`
		VATID     string   `yaml:"vat_id"`
		VATPrefix string   `yaml:"vat_prefix"`
	} `yaml:"countries"`
}

// ParseRules reads a rule table in the rates.yaml layout.
func ParseRules(data []byte) (*RuleTable, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tax rules: %w", err)
	}

	t := &RuleTable{countries: make(map[string]*CountryRules, len(f.Countries))}
	for code, c := range f.Countries {
		code = strings.ToUpper(code)
		cr := &CountryRules{Code: code, VATPrefix: c.VATPrefix}
		if cr.VATPrefix == "" {
			cr.VATPrefix = code
		}
		for _, r := range c.Rates {
			d, err := decimal.NewFromString(r)
			if err != nil {
				return nil, fmt.Errorf("parse tax rules: %s rate %q: %w", code, r, err)
			}
			cr.Rates = append(cr.Rates, d)
		}
		if c.VATID != "" {
			re, err := regexp.Compile(c.VATID)
			if err != nil {
				return nil, fmt.Errorf("parse tax rules: %s vat_id: %w", code, err)
			}
			cr.vatID = re
			t.byPrefix = append(t.byPrefix, cr)
		}
		t.countries[code] = cr
	}
	sort.Slice(t.byPrefix, func(i, j int) bool { return t.byPrefix[i].VATPrefix < t.byPrefix[j].VATPrefix })
	return t, nil
}

var defaultRules = sync.OnceValue(func() *RuleTable {
	t, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultRules returns the embedded rule table.
func DefaultRules() *RuleTable {
	return defaultRules()
}

// Country returns the rules for code, or nil.
func (t *RuleTable) Country(code string) *CountryRules {
	return t.countries[strings.ToUpper(strings.TrimSpace(code))]
}

// StandardRates lists the standard rates for code; nil when unknown.
func (t *RuleTable) StandardRates(code string) []decimal.Decimal {
	if c := t.Country(code); c != nil {
		return c.Rates
	}
	return nil
}

// ValidVATID reports whether id matches the format of the country its prefix
// names. Ids with an unknown prefix are accepted.
func (t *RuleTable) ValidVATID(id string) bool {
	id = cleanVATID(id)
	for _, c := range t.byPrefix {
		if strings.HasPrefix(id, c.VATPrefix) {
			return c.vatID.MatchString(id)
		}
	}
	return true
}

var vatIDReplacer = strings.NewReplacer(" ", "", "-", "", ".", "")

func cleanVATID(id string) string {
	return vatIDReplacer.Replace(strings.ToUpper(id))
}
