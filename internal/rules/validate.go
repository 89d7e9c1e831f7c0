package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/IshaanNene/folio/internal/parser"
	"github.com/IshaanNene/folio/internal/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field values, per-directive parameters, step ordering and
// that every selector compiles.
func Validate(rs *RuleSet) error {
	if err := structValidator().Struct(rs); err != nil {
		return &types.RuleError{RuleSet: rs.Name, Err: err}
	}

	prev := 0
	for _, d := range rs.Directives {
		if d.Step <= prev {
			return &types.RuleError{
				RuleSet: rs.Name,
				Step:    d.Step,
				Err:     fmt.Errorf("steps must be strictly increasing (previous step %d)", prev),
			}
		}
		prev = d.Step

		if err := validateDirective(d); err != nil {
			return &types.RuleError{RuleSet: rs.Name, Step: d.Step, Err: err}
		}
	}

	for _, expr := range rs.Selectors() {
		if _, err := parser.Compile(expr); err != nil {
			return &types.RuleError{RuleSet: rs.Name, Err: err}
		}
	}
	return nil
}

func validateDirective(d Directive) error {
	switch d.Type {
	case Retag:
		if d.Selector == "" || d.Tag == "" {
			return errors.New("retag needs selector and tag")
		}
	case PruneVariants:
		if d.Variants == nil {
			return errors.New("prune_variants needs variants.keep and variants.remove")
		}
		if err := structValidator().Struct(d.Variants); err != nil {
			return err
		}
	case RemoveIf:
		if err := structValidator().Struct(d.RemovalSpec()); err != nil {
			return err
		}
	case Remove:
		if len(d.Selectors) == 0 {
			return errors.New("remove needs at least one selector")
		}
	}
	return nil
}
