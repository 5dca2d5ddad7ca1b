// Package s3keep provides one-way content-addressed backup and restore
// between a local directory tree and an S3 bucket.
//
// A backup hashes every file under a local directory, compares the checksums
// against a signed manifest stored in the bucket, uploads only what changed,
// and rewrites the manifest once all transfers finish. A restore treats the
// manifest as authoritative and downloads whatever is missing or mismatched
// locally, verifying each file against its manifest checksum before putting
// it in place.
//
// Basic usage:
//
//	vault, _ := s3keep.Open(ctx, s3keep.S3Config{Bucket: "my-backups"}, secretKey)
//
//	res, _ := vault.Backup(ctx, "./photos", "laptop/photos", s3keep.BackupOptions{})
//	fmt.Println(res.Uploaded, "files uploaded")
//
//	res2, _ := vault.Restore(ctx, "./photos-copy", "laptop/photos", s3keep.RestoreOptions{})
//	fmt.Println(res2.Downloaded, "files restored")
//
// The manifest is a single object (index.bin) holding an HMAC-SHA512
// signature followed by the serialized directory tree. A signature mismatch
// aborts before any transfer; the vault never trusts an unsigned or tampered
// manifest. Running the same backup twice uploads nothing the second time.
//
// Only the manifest is authenticated. File contents are stored as raw bytes,
// one object per file, under backup/<remote-path>/.
package s3keep
