package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Binder decodes map[string]any data into Go structs and validates the result.
//
// Decoding uses mapstructure with weak typing, so the strings produced by the
// env and cli sources convert to ints, bools and durations. Struct fields are
// mapped with `config` tags and checked with `validate` tags:
//
//	type ServerConfig struct {
//	    Addr    string        `config:"addr" validate:"required"`
//	    Timeout time.Duration `config:"timeout"`
//	}
type Binder struct {
	validator *validator.Validate
	// Strict rejects keys that map to no struct field.
	Strict bool
}

// BindError reports which stage of Bind failed: "decode" or "validate".
type BindError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As.
func (e *BindError) Unwrap() error {
	return e.Err
}

// NewBinder creates a Binder. Validation messages name fields by their
// `config` tag rather than the Go field name.
func NewBinder() *Binder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("config"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Binder{validator: v}
}

// Bind decodes source into target, which must be a pointer to a struct, and
// validates the result. target may be partially populated when validation
// fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	if err := b.decode(source, target); err != nil {
		return &BindError{Stage: "decode", Err: err}
	}
	if err := b.validator.Struct(target); err != nil {
		return &BindError{Stage: "validate", Err: err}
	}
	return nil
}

func (b *Binder) decode(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      b.Strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToSlogLevelHook,
		),
		TagName: "config",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(source)
}

var slogLevelType = reflect.TypeOf(slog.Level(0))

// stringToSlogLevelHook turns "debug", "WARN", "info+2" into slog.Level.
func stringToSlogLevelHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != slogLevelType {
		return data, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(data.(string))); err != nil {
		return nil, err
	}
	return lvl, nil
}
