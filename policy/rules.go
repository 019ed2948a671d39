package policy

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleEnv is the environment a rule is evaluated in, once per candidate
// member.
type RuleEnv struct {
	// Owner is the owning struct type, e.g. "scene.Light".
	Owner      string
	Name       string
	GoName     string
	Kind       string
	Type       string
	ReadOnly   bool
	Deprecated bool
	Tags       map[string]string
}

type rule struct {
	src string
	prg *vm.Program
}

// WithRule adds a boolean expr-lang rule.  A member is eligible only when
// every rule evaluates to true, e.g.
//
//	!(Owner == "scene.Light" && Name == "bakeIndex")
//	Kind != "property" || !ReadOnly
func WithRule(src string) Option {
	return func(p *TagPolicy) error {
		prg, err := expr.Compile(src, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return fmt.Errorf("invalid rule %q: %w", src, err)
		}
		p.rules = append(p.rules, &rule{src: src, prg: prg})
		return nil
	}
}

// WithRules adds several rules.
func WithRules(srcs ...string) Option {
	return func(p *TagPolicy) error {
		for _, src := range srcs {
			if err := WithRule(src)(p); err != nil {
				return err
			}
		}
		return nil
	}
}

func (p *TagPolicy) evalRules(owner reflect.Type, m *MemberInfo) (bool, error) {
	if len(p.rules) == 0 {
		return true, nil
	}
	env := RuleEnv{
		Owner:      owner.String(),
		Name:       m.Name,
		GoName:     m.GoName,
		Kind:       m.Kind.String(),
		Type:       m.Type.String(),
		ReadOnly:   !m.Writable(),
		Deprecated: m.Deprecated,
		Tags:       m.Tags,
	}
	for _, r := range p.rules {
		out, err := expr.Run(r.prg, env)
		if err != nil {
			return false, fmt.Errorf("rule %q on %s.%s: %w", r.src, env.Owner, m.GoName, err)
		}
		if ok, _ := out.(bool); !ok {
			return false, nil
		}
	}
	return true, nil
}
