// Package registry loads the ordered list of entities a sync run tracks.
//
// The registry file may be TOML ([[entity]] tables), YAML (an entities list),
// or CSV with a name,rut header; the extension selects the format. RUTs are
// normalized to their digit body so "91.297.000-5" and "91297000" name the
// same entity, and a verifier digit, when given, must pass the module-11
// check.
package registry
