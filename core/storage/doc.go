// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a narrow interface. The importer reads
// record sets from a bucket and writes run reports back to it, so only bucket,
// stat, get and put operations are exposed, plus MakeBucket for the integrity fix. Both AWS S3 and self-hosted MinIO
// are supported.
//
// # Client Interface
//
// The Client interface makes storage interactions easy to mock in unit tests
// (see core/storage/mocks).
//
// # Helpers
//
//   - ReadObject: downloads an object into memory with an optional size cap.
//   - WriteJSON: encodes a value as JSON and uploads it.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	data, err := storage.ReadObject(ctx, client, cfg.Storage.Bucket, "sets/2024-05.json", cfg.Storage.MaxObjectBytes)
package storage
