package module_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/skekre98/modhost/module"
)

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		archive string
		want    module.Descriptor
		wantErr bool
	}{
		{
			name: "full manifest",
			archive: `
id: reporting
version: 1.2.0
title: Reporting
requires: [patients, forms]
`,
			want: module.Descriptor{
				ID:       "reporting",
				Version:  "1.2.0",
				Title:    "Reporting",
				Requires: []string{"patients", "forms"},
			},
		},
		{
			name:    "no requirements",
			archive: "id: patients\nversion: \"2.0\"\n",
			want:    module.Descriptor{ID: "patients", Version: "2.0"},
		},
		{
			name:    "empty archive",
			archive: "   \n",
			wantErr: true,
		},
		{
			name:    "unknown key",
			archive: "id: x\nversion: 1.0\nrequire: [y]\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			archive: "{{{",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := module.ParseManifest([]byte(tt.archive))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, module.ErrLoadFailed) {
					t.Errorf("expected LoadFailed, got %v", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseManifest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestManifestRoundTrip(t *testing.T) {
	d := module.Descriptor{ID: "forms", Version: "1.0.1", Requires: []string{"concepts"}}
	b, err := module.MarshalManifest(d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := module.ParseManifest(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, d) {
		t.Errorf("round trip = %+v, want %+v", got, d)
	}
}

func TestValidator(t *testing.T) {
	v := module.NewValidator()

	tests := []struct {
		name    string
		d       module.Descriptor
		wantErr bool
	}{
		{"valid", module.Descriptor{ID: "forms", Version: "1.0.0", Requires: []string{"concepts"}}, false},
		{"qualified version", module.Descriptor{ID: "forms", Version: "1.4.0-SNAPSHOT"}, false},
		{"qualifier with dashes", module.Descriptor{ID: "forms", Version: "2.0-rc-1"}, false},
		{"qualifier only", module.Descriptor{ID: "forms", Version: "-beta"}, true},
		{"missing id", module.Descriptor{Version: "1.0"}, true},
		{"missing version", module.Descriptor{ID: "forms"}, true},
		{"bad version", module.Descriptor{ID: "forms", Version: "one"}, true},
		{"trailing dot", module.Descriptor{ID: "forms", Version: "1."}, true},
		{"uppercase id", module.Descriptor{ID: "Forms", Version: "1.0"}, true},
		{"self dependency", module.Descriptor{ID: "forms", Version: "1.0", Requires: []string{"forms"}}, true},
		{"duplicate requirement", module.Descriptor{ID: "forms", Version: "1.0", Requires: []string{"a", "a"}}, true},
		{"empty requirement", module.Descriptor{ID: "forms", Version: "1.0", Requires: []string{""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && module.KindOf(err) != module.KindLoadFailed {
				t.Errorf("KindOf() = %q, want %q", module.KindOf(err), module.KindLoadFailed)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    module.State
		ev      module.Event
		want    module.State
		wantErr bool
	}{
		{module.StateUnloaded, module.EventLoad, module.StateLoaded, false},
		{module.StateLoaded, module.EventStart, module.StateStarted, false},
		{module.StateStopped, module.EventStart, module.StateStarted, false},
		{module.StateStarted, module.EventStop, module.StateStopped, false},
		{module.StateStopped, module.EventUnload, module.StateUnloaded, false},
		{module.StateLoaded, module.EventUnload, module.StateUnloaded, false},
		{module.StateStarted, module.EventFail, module.StateError, false},
		{module.StateStarted, module.EventUnload, module.StateStarted, true},
		{module.StateStarted, module.EventStart, module.StateStarted, true},
		{module.StateLoaded, module.EventStop, module.StateLoaded, true},
		{module.StateLoaded, module.EventLoad, module.StateLoaded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := module.Transition(tt.from, tt.ev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Transition() = %s, want %s", got, tt.want)
			}
			if err != nil && !errors.Is(err, module.ErrPrecondition) {
				t.Errorf("expected PreconditionViolation, got %v", err)
			}
		})
	}
}

func TestError(t *testing.T) {
	err := module.Errorf(module.KindStartFailed, "forms", "requirement %s not started", "concepts")
	if got, want := err.Error(), "StartFailed: module forms: requirement concepts not started"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, module.ErrStartFailed) {
		t.Error("expected errors.Is to match ErrStartFailed")
	}
	if errors.Is(err, module.ErrLoadFailed) {
		t.Error("StartFailed must not match ErrLoadFailed")
	}

	wrapped := module.WithModule(&module.Error{Kind: module.KindLoadFailed, Err: errors.New("bad")}, module.KindStartFailed, "x")
	var me *module.Error
	if !errors.As(wrapped, &me) || me.ModuleID != "x" || me.Kind != module.KindLoadFailed {
		t.Errorf("WithModule() = %#v", wrapped)
	}

	plain := module.WithModule(errors.New("boom"), module.KindStartFailed, "y")
	if module.KindOf(plain) != module.KindStartFailed {
		t.Errorf("KindOf(plain) = %q", module.KindOf(plain))
	}
	if module.WithModule(nil, module.KindStartFailed, "z") != nil {
		t.Error("WithModule(nil) should be nil")
	}
}
