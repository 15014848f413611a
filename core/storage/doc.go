// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface, which carries only the
// operations the object payload store needs: bucket checks, upload, download and
// removal. Both AWS S3 and self-hosted MinIO are supported.
//
// The interface makes it easy to mock storage interactions in unit tests
// (see core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
