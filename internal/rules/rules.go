// Package rules describes the declarative rule sets that drive the sanitizer.
//
// A rule set is data, not code: one YAML file per target site, applied in four
// fixed phases (pre_remove, directives, post_remove, whitelist). Inside the
// directives phase the order is the explicit step number of each directive.
package rules

// LinkPolicy decides what happens to anchors that have no text once links are
// flattened.
type LinkPolicy string

const (
	LinkEmptyHref LinkPolicy = "empty_href"
	LinkRemove    LinkPolicy = "remove"
)

// SVGPolicy decides how inline vector graphics are treated.
type SVGPolicy string

const (
	SVGStripNonIcons SVGPolicy = "strip_non_icons"
	SVGRetainAll     SVGPolicy = "retain_all"
)

// DirectiveType names a structural edit.
type DirectiveType string

const (
	ExtractTitle           DirectiveType = "extract_title"
	FlattenLinks           DirectiveType = "flatten_links"
	StripAttributes        DirectiveType = "strip_attributes"
	Retag                  DirectiveType = "retag"
	BackgroundToBlockquote DirectiveType = "background_to_blockquote"
	InsertSeparator        DirectiveType = "insert_separator"
	NormalizeHeading       DirectiveType = "normalize_heading"
	SVG                    DirectiveType = "svg"
	PruneVariants          DirectiveType = "prune_variants"
	RemoveIf               DirectiveType = "remove_if"
	Remove                 DirectiveType = "remove"
)

// RemovalSpec identifies elements to remove. With Attribute and Contains set,
// only matches whose attribute value contains the substring are removed.
type RemovalSpec struct {
	Selector  string `yaml:"selector"  mapstructure:"selector"  validate:"required"`
	Attribute string `yaml:"attribute" mapstructure:"attribute" validate:"required_with=Contains"`
	Contains  string `yaml:"contains"  mapstructure:"contains"`
}

// Conditional reports whether the spec filters on an attribute value.
func (r RemovalSpec) Conditional() bool {
	return r.Attribute != "" && r.Contains != ""
}

// VariantPair says the Remove set is a redundant responsive variant whenever
// both Keep and Remove match something.
type VariantPair struct {
	Keep   string `yaml:"keep"   validate:"required"`
	Remove string `yaml:"remove" validate:"required"`
}

// Directive is one structural edit of the directives phase. Which fields are
// read depends on Type.
type Directive struct {
	Step int           `yaml:"step" validate:"gt=0"`
	Type DirectiveType `yaml:"type" validate:"required,oneof=extract_title flatten_links strip_attributes retag background_to_blockquote insert_separator normalize_heading svg prune_variants remove_if remove"`

	// Selector scopes the directive. Its meaning is per type: title source,
	// retag target, lazy background marker, separator marker, removal target.
	Selector string `yaml:"selector,omitempty"`

	// Selectors is used by remove.
	Selectors []string `yaml:"selectors,omitempty"`

	// Tag is the replacement tag name for retag.
	Tag string `yaml:"tag,omitempty" validate:"omitempty,alphanum"`

	// Heading selects the nested heading for background_to_blockquote.
	Heading string `yaml:"heading,omitempty"`

	// Attributes lists attribute names for strip_attributes.
	Attributes []string `yaml:"attributes,omitempty"`

	// Except exempts matching elements from strip_attributes.
	Except string `yaml:"except,omitempty"`

	// LinkPolicy overrides the rule set policy for flatten_links.
	LinkPolicy LinkPolicy `yaml:"link_policy,omitempty" validate:"omitempty,oneof=empty_href remove"`

	// SVGPolicy overrides the rule set policy for svg.
	SVGPolicy SVGPolicy `yaml:"svg_policy,omitempty" validate:"omitempty,oneof=strip_non_icons retain_all"`

	// IconSelector and Height configure the svg directive.
	IconSelector string `yaml:"icon_selector,omitempty"`
	Height       string `yaml:"height,omitempty"`

	// Variants is used by prune_variants.
	Variants *VariantPair `yaml:"variants,omitempty"`

	// Attribute and Contains make remove_if conditional.
	Attribute string `yaml:"attribute,omitempty"`
	Contains  string `yaml:"contains,omitempty"`
}

// RemovalSpec returns the remove_if parameters of the directive.
func (d Directive) RemovalSpec() RemovalSpec {
	return RemovalSpec{Selector: d.Selector, Attribute: d.Attribute, Contains: d.Contains}
}

// RuleSet is the full configuration of one sanitizer run. It is never mutated
// by the engine.
type RuleSet struct {
	Name    string `yaml:"name"    validate:"required"`
	Version int    `yaml:"version" validate:"gte=0"`

	// TitleSelector is the default title source for extract_title. Empty keeps
	// the document's own <title>.
	TitleSelector string `yaml:"title_selector,omitempty"`

	LinkPolicy LinkPolicy `yaml:"link_policy,omitempty" validate:"omitempty,oneof=empty_href remove"`
	SVGPolicy  SVGPolicy  `yaml:"svg_policy,omitempty"  validate:"omitempty,oneof=strip_non_icons retain_all"`

	PreRemove  []string    `yaml:"pre_remove,omitempty"  validate:"dive,required"`
	Directives []Directive `yaml:"directives,omitempty"  validate:"dive"`
	PostRemove []string    `yaml:"post_remove,omitempty" validate:"dive,required"`
	Whitelist  []string    `yaml:"whitelist,omitempty"   validate:"dive,required"`
}

// EffectiveLinkPolicy resolves the link policy of d against the rule set.
func (rs *RuleSet) EffectiveLinkPolicy(d Directive) LinkPolicy {
	switch {
	case d.LinkPolicy != "":
		return d.LinkPolicy
	case rs.LinkPolicy != "":
		return rs.LinkPolicy
	default:
		return LinkEmptyHref
	}
}

// EffectiveSVGPolicy resolves the svg policy of d against the rule set.
func (rs *RuleSet) EffectiveSVGPolicy(d Directive) SVGPolicy {
	switch {
	case d.SVGPolicy != "":
		return d.SVGPolicy
	case rs.SVGPolicy != "":
		return rs.SVGPolicy
	default:
		return SVGStripNonIcons
	}
}

// Selectors returns every selector expression referenced by the rule set, in
// the order the engine uses them.
func (rs *RuleSet) Selectors() []string {
	var out []string
	add := func(exprs ...string) {
		for _, e := range exprs {
			if e != "" {
				out = append(out, e)
			}
		}
	}

	add(rs.TitleSelector)
	add(rs.PreRemove...)
	for _, d := range rs.Directives {
		add(d.Selector, d.Heading, d.Except, d.IconSelector)
		add(d.Selectors...)
		if d.Variants != nil {
			add(d.Variants.Keep, d.Variants.Remove)
		}
	}
	add(rs.PostRemove...)
	add(rs.Whitelist...)
	return out
}
