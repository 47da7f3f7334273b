package module

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Descriptor identifies one installable module and the modules it requires.
//
// ID is the package identifier other modules refer to in Requires. Title is
// for display only and never takes part in dependency matching.
type Descriptor struct {
	ID       string   `yaml:"id" json:"id" validate:"required,module_id"`
	Version  string   `yaml:"version" json:"version" validate:"required,module_version"`
	Title    string   `yaml:"title,omitempty" json:"title,omitempty"`
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty" validate:"dive,required,module_id"`
}

// Name returns the package identifier. Together with DependsOn it lets a
// Descriptor take part in graph ordering.
func (d Descriptor) Name() string { return d.ID }

// DependsOn returns a copy of the required module ids.
func (d Descriptor) DependsOn() []string {
	return slices.Clone(d.Requires)
}

// RequiresID reports whether d declares id as a hard dependency.
func (d Descriptor) RequiresID(id string) bool {
	return slices.Contains(d.Requires, id)
}

func (d Descriptor) String() string {
	return d.ID + "@" + d.Version
}

// Validator checks descriptors against the struct rules plus the
// self-dependency invariant.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator with the module_id and module_version
// rules registered. It panics if a rule cannot be registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	rules := []struct {
		tag string
		fn  validator.Func
	}{
		{"module_id", validModuleID},
		{"module_version", validModuleVersion},
	}
	for _, r := range rules {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			panic(fmt.Sprintf("module: register %s rule: %v", r.tag, err))
		}
	}
	return &Validator{v: v}
}

// Validate returns a LoadFailed error describing the first broken rule.
func (mv *Validator) Validate(d Descriptor) error {
	if err := mv.v.Struct(d); err != nil {
		return &Error{Kind: KindLoadFailed, ModuleID: d.ID, Err: fmt.Errorf("invalid descriptor: %w", err)}
	}
	if d.RequiresID(d.ID) {
		return &Error{Kind: KindLoadFailed, ModuleID: d.ID, Err: fmt.Errorf("module %q requires itself", d.ID)}
	}
	seen := make(map[string]bool, len(d.Requires))
	for _, r := range d.Requires {
		if seen[r] {
			return &Error{Kind: KindLoadFailed, ModuleID: d.ID, Err: fmt.Errorf("requirement %q listed twice", r)}
		}
		seen[r] = true
	}
	return nil
}

// module ids look like package names: lowercase letters, digits, '.', '-'
// and '_', starting with a letter.
func validModuleID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_'):
		default:
			return false
		}
	}
	return true
}

// versions are dot separated numeric parts with an optional -qualifier,
// e.g. 1.2, 2.0.1, 1.4.0-SNAPSHOT.
func validModuleVersion(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	core, _, _ := strings.Cut(s, "-")
	if core == "" {
		return false
	}
	digits := 0
	for _, r := range core {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			if digits == 0 {
				return false
			}
			digits = 0
		default:
			return false
		}
	}
	return digits > 0
}
