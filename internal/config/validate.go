package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ldaudit/ldaudit/internal/engine"
)

//nolint:gochecknoglobals // Validator caches struct metadata; build it once.
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
})

// ValidationProblem is one failed rule, named by its YAML path.
type ValidationProblem struct {
	Field string
	Rule  string
	Value any
}

func (p ValidationProblem) String() string {
	return fmt.Sprintf("%s: must satisfy %s (got %v)", p.Field, p.Rule, p.Value)
}

// Problems returns every validation failure of c.
func (c *Config) Problems() []ValidationProblem {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationProblem{{Field: "config", Rule: err.Error()}}
	}

	problems := make([]ValidationProblem, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		problems = append(problems, ValidationProblem{Field: field, Rule: rule, Value: fe.Value()})
	}
	return problems
}

// Validate returns ErrConfigInvalid describing every failed rule.
func (c *Config) Validate() error {
	problems := c.Problems()
	if len(problems) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.String())
	}
	return fmt.Errorf("%w: %s", engine.ErrConfigInvalid, strings.Join(msgs, "; "))
}
