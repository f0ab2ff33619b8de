// Package integrity provides health checks for the infrastructure the importer
// depends on.
//
// # Checks Provided
//
//   - Schema: Validates that every forum table exists and that typed columns
//     match the GORM models (missing columns, type mismatches).
//   - Storage: Checks that the import bucket exists and carries a marker for
//     each configured folder (e.g. reports/imports/).
//
// Both checks can repair what they find: the schema check migrates the models,
// the storage check creates the bucket and folder markers.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs schema check (supports ?fix=true).
//   - GET /integrity/storage : Runs storage check (supports ?fix=true).
package integrity
