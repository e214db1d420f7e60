// Package b2 is a client for the Backblaze B2 Cloud Storage native API.
//
// A Client authorizes lazily on first use and transparently re-authorizes
// once when the account token expires. Operations are grouped by area:
// buckets, files, downloads, application keys, and the large file workflow.
//
// Example:
//
//	client, err := b2.New(keyID, applicationKey,
//	    b2.WithMaxRetries(3),
//	    b2.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	file, err := client.UploadFile(ctx, bucketID, "docs/report.pdf", reader)
//
// Large files are uploaded through a session that tracks successfully
// stored parts and finishes with their ordered checksums:
//
//	lf, err := client.StartLargeFile(ctx, bucketID, "movie.mp4")
//	if err != nil {
//	    return err
//	}
//	if _, err := lf.UploadPart(ctx, 1, partOne); err != nil {
//	    return err
//	}
//	if _, err := lf.UploadPart(ctx, 2, partTwo); err != nil {
//	    return err
//	}
//	file, err := lf.Finish(ctx)
package b2
