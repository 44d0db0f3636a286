package pricing

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeStyle canonicalises one component of a lookup key.
type NormalizeStyle func(string) string

// NormalizeInsensitive trims and case-folds. Used when matching trips against rules.
func NormalizeInsensitive(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NormalizeExact trims only. Used by invoice generation's direct rate lookup.
func NormalizeExact(s string) string {
	return strings.TrimSpace(s)
}

// Resolver is an immutable lookup table built from a contractor's price list.
type Resolver struct {
	norm  NormalizeStyle
	rates map[string]Rate
}

// NewResolver indexes every rule under every site of contractor. When two rules
// share a key the one seen last wins.
func NewResolver(contractor Contractor, style NormalizeStyle) *Resolver {
	if style == nil {
		style = NormalizeInsensitive
	}
	r := &Resolver{norm: style, rates: make(map[string]Rate)}
	for _, site := range contractor.Sites {
		for _, rule := range site.Rules {
			r.rates[r.key(rule.Material, rule.From, rule.To)] = Rate{
				Price: decimalFromFloat(rule.Price),
				Unit:  ParseUnit(rule.Unit),
			}
		}
	}
	return r
}

// Resolve finds the rate for material moved from -> to.
func (r *Resolver) Resolve(material, from, to string) (Rate, bool) {
	rate, ok := r.rates[r.key(material, from, to)]
	return rate, ok
}

// Len reports the number of distinct keys.
func (r *Resolver) Len() int {
	return len(r.rates)
}

func (r *Resolver) key(material, from, to string) string {
	return r.norm(material) + "|" + r.norm(from) + "|" + r.norm(to)
}

// ResolvePrice looks up the exact (trim-only) material/route pair on contractor.
func ResolvePrice(contractor Contractor, material, from, to string) (Rate, bool) {
	return NewResolver(contractor, NormalizeExact).Resolve(material, from, to)
}

// ParseRoute splits "From|To" into a Route.
func ParseRoute(raw string) (Route, error) {
	from, to, ok := strings.Cut(raw, "|")
	if !ok {
		return Route{}, ErrInvalidRoute
	}
	route := Route{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if route.From == "" || route.To == "" {
		return Route{}, ErrInvalidRoute
	}
	return route, nil
}

// String renders the route back to its "From|To" form.
func (r Route) String() string {
	return r.From + "|" + r.To
}
