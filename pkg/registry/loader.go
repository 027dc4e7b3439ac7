package registry

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk schema format.
//
//	entities:
//	  - kind: Location
//	    identity_field: name
//	    properties: [name, description]
//	    transforms: {name: trim}
//	relationships:
//	  - kind: EXITS_TO
//	    source: Location
//	    target: Location
//	    properties: {direction: direction}
type Document struct {
	Entities      []entityDoc       `yaml:"entities"`
	Relationships []relationshipDoc `yaml:"relationships"`
}

type entityDoc struct {
	EntityTypeSpec `yaml:",inline"`
	Transforms     map[string]string `yaml:"transforms"`
}

type relationshipDoc struct {
	RelationshipTypeSpec `yaml:",inline"`
	Transforms           map[string]string `yaml:"transforms"`
}

// LoadFile reads a YAML schema file and registers its kinds into r.
func LoadFile(r *Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	if err := Load(r, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load decodes a YAML schema document and registers entity kinds before
// relationship kinds.
func Load(r *Registry, in io.Reader) error {
	var doc Document
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode schema: %w", err)
	}

	for _, e := range doc.Entities {
		spec := e.EntityTypeSpec
		transforms, err := parseTransforms(e.Transforms)
		if err != nil {
			return fmt.Errorf("entity %s: %w", spec.Kind, err)
		}
		spec.Transforms = transforms
		if err := r.RegisterEntityType(spec); err != nil {
			return err
		}
	}
	for _, rel := range doc.Relationships {
		spec := rel.RelationshipTypeSpec
		transforms, err := parseTransforms(rel.Transforms)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", spec.Kind, err)
		}
		spec.Transforms = transforms
		if err := r.RegisterRelationshipType(spec); err != nil {
			return err
		}
	}
	return nil
}

func parseTransforms(in map[string]string) (map[string]Transform, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]Transform, len(in))
	for field, name := range in {
		t, err := ParseTransform(name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		out[field] = t
	}
	return out, nil
}
