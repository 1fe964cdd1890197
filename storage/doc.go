// Package storage persists transcript artifacts to pluggable object stores.
//
// # Backends
//
//   - storage/local: local filesystem; with base_path "/" keys are absolute
//     paths, so sidecars land next to the evidence files
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO)
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "evidence-transcripts"
//	  region: "eu-central-1"
package storage
