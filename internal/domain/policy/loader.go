package policy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/haebom/tariff/pkg/errors"
)

// DefaultRootLabel is the root caption used when no option overrides it.
const DefaultRootLabel = "Hardware Products Imported To The United States From"

// Condition keys recognised in the policy document, with the question text
// shown when the document does not supply its own label.
var conditionLabels = map[string]string{
	"usmca_compliant":            "USMCA Compliant?",
	"april_11_exemption":         "April 11th Exemption?",
	"us_content_over_20_percent": ">20% of Content from US?",
}

var conditionAliases = map[string]string{
	"usmca_compliant_products": "usmca_compliant",
}

// Keys that carry data for the enclosing object rather than a branch.
var metadataKeys = map[string]bool{
	"label":       true,
	"keyword":     true,
	"description": true,
	"notes":       true,
}

const (
	keyRate             = "rate"
	keyBaseTariffRate   = "base_tariff_rate"
	keySpecialProvision = "special_provisions"
)

// LoadOption customises LoadTree.
type LoadOption func(*loadOptions)

type loadOptions struct {
	rootLabel string
}

// WithRootLabel overrides the root node caption.
func WithRootLabel(label string) LoadOption {
	return func(o *loadOptions) {
		if label != "" {
			o.rootLabel = label
		}
	}
}

// draft is a parsed but not yet attached subtree.
type draft struct {
	node     Node
	branch   string
	children []*draft
}

type loader struct {
	omissions []Omission
}

func (l *loader) omit(path, format string, args ...interface{}) {
	l.omissions = append(l.omissions, Omission{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// LoadTree parses a country-keyed policy document into a Tree.
//
// Malformed or missing branches are skipped and listed in Tree.Omissions.
// A document that is not a JSON object, or that yields no usable country,
// fails with a LOAD_001 error.
func LoadTree(data []byte, opts ...LoadOption) (*Tree, error) {
	o := loadOptions{rootLabel: DefaultRootLabel}
	for _, opt := range opts {
		opt(&o)
	}

	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodePolicyLoad, "policy document is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New(errors.ErrCodePolicyLoad, "policy document root must be an object").
			WithDetail(doc.Type.String())
	}

	l := &loader{}
	var countries []*draft
	seen := make(map[string]bool)
	doc.ForEach(func(key, value gjson.Result) bool {
		id := slug(key.String())
		if id == "" || id == RootID || seen[id] {
			l.omit(key.String(), "duplicate or empty country key")
			return true
		}
		if c := l.country(id, key.String(), value); c != nil {
			seen[id] = true
			countries = append(countries, c)
		}
		return true
	})
	if len(countries) == 0 {
		return nil, errors.New(errors.ErrCodePolicyLoad, "policy document has no usable country branches")
	}

	t := newTree(Node{ID: RootID, Kind: KindRoot, Label: o.rootLabel})
	for _, c := range countries {
		t.attachDraft(RootID, c)
	}
	t.Omissions = l.omissions
	return t, nil
}

func (t *Tree) attachDraft(parent string, d *draft) {
	t.attach(parent, d.node, d.branch)
	for _, c := range d.children {
		t.attachDraft(d.node.ID, c)
	}
}

func (l *loader) country(id, key string, v gjson.Result) *draft {
	if !v.IsObject() {
		l.omit(id, "country branch is %s, want object", v.Type)
		return nil
	}

	label := v.Get("label").String()
	if label == "" {
		label = key
	}
	d := &draft{node: Node{ID: id, Kind: KindCountry, Label: label, Keyword: v.Get("keyword").String()}}

	seen := make(map[string]bool)
	v.ForEach(func(k, child gjson.Result) bool {
		name := k.String()
		slot := canonicalCondition(name)
		if name == keyRate || name == keyBaseTariffRate {
			slot = "base"
		}
		if seen[slot] {
			l.omit(id+"/"+name, "duplicate branch key")
			return true
		}
		seen[slot] = true

		switch {
		case metadataKeys[name]:
		case slot == "base":
			if out := l.outcome(id+"/base", child, v); out != nil {
				d.children = append(d.children, out)
			}
		case name == keySpecialProvision:
			d.children = append(d.children, l.provisions(id+"/"+keySpecialProvision, child)...)
		case isCondition(name):
			if q := l.question(id, name, child); q != nil {
				d.children = append(d.children, q)
			}
		default:
			l.omit(id+"/"+name, "unrecognised branch key")
		}
		return true
	})
	return d
}

func (l *loader) provisions(path string, v gjson.Result) []*draft {
	if !v.IsArray() {
		l.omit(path, "special provisions must be an array")
		return nil
	}
	var out []*draft
	for i, item := range v.Array() {
		o := l.outcome(fmt.Sprintf("%s/%d", path, i), item, gjson.Result{})
		if o == nil {
			continue
		}
		o.branch = BranchSpecial
		out = append(out, o)
	}
	return out
}

// question parses a {label?, yes, no} condition.  A question with no usable
// branch is dropped entirely.
func (l *loader) question(parentID, name string, v gjson.Result) *draft {
	canonical := canonicalCondition(name)
	id := parentID + "/" + canonical
	if !v.IsObject() {
		l.omit(id, "condition is %s, want object", v.Type)
		return nil
	}

	label := v.Get("label").String()
	if label == "" {
		label = conditionLabels[canonical]
	}
	d := &draft{node: Node{ID: id, Kind: KindQuestion, Label: label}}

	answered := make(map[string]bool)
	v.ForEach(func(k, child gjson.Result) bool {
		var branch string
		switch strings.ToLower(k.String()) {
		case "yes":
			branch = BranchYes
		case "no":
			branch = BranchNo
		case "label":
			return true
		default:
			l.omit(id+"/"+k.String(), "unrecognised answer key")
			return true
		}
		if answered[branch] {
			l.omit(id+"/"+k.String(), "duplicate answer key")
			return true
		}
		answered[branch] = true
		if o := l.outcome(id+"/"+strings.ToLower(branch), child, gjson.Result{}); o != nil {
			o.branch = branch
			d.children = append(d.children, o)
		}
		return true
	})

	if len(d.children) == 0 {
		l.omit(id, "condition has no usable yes/no branch")
		return nil
	}
	return d
}

// outcome parses a rate-bearing leaf.  It accepts a bare rate string, a bare
// percentage number, or an object with rate/base_tariff_rate plus optional
// label, keyword and follow-up conditions.  When v is a rate field lifted from
// a country object, owner supplies the keyword.
func (l *loader) outcome(id string, v, owner gjson.Result) *draft {
	switch {
	case v.Type == gjson.String || v.Type == gjson.Number:
		rate, ok := l.rate(id, v, "empty rate")
		if !ok {
			return nil
		}
		return &draft{node: Node{ID: id, Kind: KindOutcome, Label: rate, RateExpression: rate,
			Keyword: owner.Get("keyword").String()}}
	case v.IsObject():
	default:
		l.omit(id, "outcome is %s, want rate or object", v.Type)
		return nil
	}

	raw := v.Get(keyRate)
	if !raw.Exists() {
		raw = v.Get(keyBaseTariffRate)
	}
	rate, ok := l.rate(id, raw, "outcome has no rate")
	if !ok {
		return nil
	}

	label := v.Get("label").String()
	if label == "" {
		label = rate
	}
	d := &draft{node: Node{
		ID:             id,
		Kind:           KindOutcome,
		Label:          label,
		Keyword:        v.Get("keyword").String(),
		RateExpression: rate,
	}}

	seen := make(map[string]bool)
	v.ForEach(func(k, child gjson.Result) bool {
		name := canonicalCondition(k.String())
		if isCondition(name) && !seen[name] {
			seen[name] = true
			if q := l.question(id, name, child); q != nil {
				d.children = append(d.children, q)
			}
		}
		return true
	})
	return d
}

// rate reads a rate field of outcome id, recording an omission when it is
// unusable.  Numeric rates must be whole, non-negative percentages.
func (l *loader) rate(id string, v gjson.Result, missing string) (string, bool) {
	if v.Type == gjson.Number {
		if n := v.Float(); n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			l.omit(id, "rate %s is not a whole percentage", v.Raw)
			return "", false
		}
	}
	rate, ok := rateText(v)
	if !ok {
		l.omit(id, missing)
	}
	return rate, ok
}

// rateText normalises a rate field.  Numbers become "N% Tariff", zero
// becomes "No Tariffs".
func rateText(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		s := strings.TrimSpace(v.String())
		return s, s != ""
	case gjson.Number:
		n := v.Int()
		if n == 0 {
			return "No Tariffs", true
		}
		return strconv.FormatInt(n, 10) + "% Tariff", true
	default:
		return "", false
	}
}

func isCondition(name string) bool {
	_, ok := conditionLabels[canonicalCondition(name)]
	return ok
}

func canonicalCondition(name string) string {
	if c, ok := conditionAliases[name]; ok {
		return c
	}
	return name
}

// slug lower-cases key and collapses runs of anything outside [a-z0-9_] into
// a single hyphen.
func slug(key string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
