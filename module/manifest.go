package module

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseManifest decodes a module archive's manifest into a Descriptor.
//
// The archive is a YAML document:
//
//	id: reporting
//	version: 1.2.0
//	title: Reporting
//	requires: [patients, forms]
//
// Unknown keys are rejected so typos in "requires" do not silently drop a
// dependency. The result is not validated; see Validator.
func ParseManifest(archive []byte) (Descriptor, error) {
	var d Descriptor
	if len(bytes.TrimSpace(archive)) == 0 {
		return d, &Error{Kind: KindLoadFailed, Err: errors.New("empty module archive")}
	}
	dec := yaml.NewDecoder(bytes.NewReader(archive))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return d, &Error{Kind: KindLoadFailed, Err: errors.New("empty module archive")}
		}
		return d, &Error{Kind: KindLoadFailed, Err: fmt.Errorf("parse manifest: %w", err)}
	}
	return d, nil
}

// MarshalManifest renders d in the archive format ParseManifest reads.
func MarshalManifest(d Descriptor) ([]byte, error) {
	return yaml.Marshal(d)
}
