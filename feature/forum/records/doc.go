// Package records defines the typed input of an import.
//
// A RecordSet holds one collection per entity kind. References between records
// use natural keys (username, category name, post title) or foreign-system ids
// (external_id); numeric ids are normalized to strings while decoding, so
// {"author": 17} and {"author": "17"} are the same reference.
//
// Each record validates itself at the boundary. Validate returns nil or a
// *MalformedError listing every problem, and the importer counts such records
// as malformed without attempting them.
package records
