// Package forum exposes the forum import pipeline over HTTP.
//
// The heavy lifting lives in the sub-packages:
//
//   - models: GORM models of the forum schema.
//   - records: the foreign record set, its validation and its JSON/YAML decoding.
//   - importer: resolvers, stages, statistics and purge wired onto core/reconcile.
//
// # Components
//
//   - Service: runs imports, previews and recounts, and loads record sets from storage.
//   - Handler: HTTP endpoints.
//   - Loader: registers the feature with the application.
//
// # HTTP Endpoints
//
//   - POST /import : Import the posted record set. ?clear=true also requires X-Confirm-Purge: yes.
//   - POST /import/object?key= : Import a record set stored in the bucket.
//   - POST /import/preview : Dry run comparing natural keys with the database.
//   - POST /import/recount : Recalculate comment and post counters.
package forum
