// Package registry holds the schema that drives extraction and mapping.
//
// An EntityTypeSpec names the node label, the identity field and the
// field-to-property mapping for one kind of extracted object. A
// RelationshipTypeSpec names the edge label and the source and target entity
// kinds. Both may carry a JSON schema used to prompt the model.
//
// Specs can be registered in code, loaded from YAML with LoadFile, or taken
// from the built-in narrative world with RegisterDefaults.
//
// # Modes
//
// By default re-registering a kind replaces the previous spec. WithStrict turns
// that into a DuplicateKindError. WithLazyResolution lets relationships be
// registered before their endpoint kinds; the check then happens when the
// relationship is resolved.
package registry
