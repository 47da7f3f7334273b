package config

import (
	"reflect"
	"sort"
)

// diffEvent compares two configurations field by field. Nested structs are
// descended into, so a change to Root.Admin.Token is reported as both
// "Admin" and "Admin.Token".
func diffEvent(old, new any) Event {
	evt := Event{ChangedKeys: []string{}, OldConfig: old, NewConfig: new}
	if old == nil || new == nil {
		return evt
	}

	oldVal := reflect.Indirect(reflect.ValueOf(old))
	newVal := reflect.Indirect(reflect.ValueOf(new))
	if oldVal.Kind() != reflect.Struct || oldVal.Type() != newVal.Type() {
		return evt
	}

	changed := map[string]bool{}
	diffStruct(oldVal, newVal, "", changed)
	for k := range changed {
		evt.ChangedKeys = append(evt.ChangedKeys, k)
	}
	sort.Strings(evt.ChangedKeys)
	return evt
}

func diffStruct(oldVal, newVal reflect.Value, prefix string, changed map[string]bool) bool {
	differs := false
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := prefix + f.Name
		o, n := oldVal.Field(i), newVal.Field(i)
		if o.Kind() == reflect.Struct {
			if diffStruct(o, n, key+".", changed) {
				changed[key] = true
				differs = true
			}
			continue
		}
		if !reflect.DeepEqual(o.Interface(), n.Interface()) {
			changed[key] = true
			differs = true
		}
	}
	return differs
}

// Changed reports whether key, e.g. "Logging.Level", is among the changed
// keys.
func (e Event) Changed(key string) bool {
	for _, k := range e.ChangedKeys {
		if k == key {
			return true
		}
	}
	return false
}
