package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// multipartWriter is not safe for concurrent use; the recording writer owns it.
// ctx keeps the values of the Create context but never its cancellation, so
// an upload started by a short-lived request can still be completed.
type multipartWriter struct {
	ctx      context.Context
	s        *Storage
	key      string
	uploadID string

	buf   []byte
	parts []types.CompletedPart
	done  bool
	err   error
}

func (w *multipartWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("storage: write to finished object %s", w.key)
	}
	if w.err != nil {
		return 0, w.err
	}

	written := 0
	for len(p) > 0 {
		room := int(w.s.partSize) - len(w.buf)
		n := min(room, len(p))
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n
		if int64(len(w.buf)) >= w.s.partSize {
			if err := w.flush(); err != nil {
				w.err = err
				return written, err
			}
		}
	}
	return written, nil
}

func (w *multipartWriter) flush() error {
	partNumber := int32(len(w.parts) + 1)
	out, err := w.s.client.UploadPart(w.ctx, &awss3.UploadPartInput{
		Bucket:     aws.String(w.s.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(w.buf),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 upload part %d: %w", partNumber, err)
	}
	w.parts = append(w.parts, types.CompletedPart{
		ETag:           out.ETag,
		PartNumber:     aws.Int32(partNumber),
		ChecksumCRC32:  out.ChecksumCRC32,
		ChecksumCRC32C: out.ChecksumCRC32C,
		ChecksumSHA1:   out.ChecksumSHA1,
		ChecksumSHA256: out.ChecksumSHA256,
	})
	w.buf = w.buf[:0]
	return nil
}

// Close uploads the buffered tail as the last part and completes the upload.
func (w *multipartWriter) Close() error {
	if w.done {
		return fmt.Errorf("storage: object %s already finished", w.key)
	}
	w.done = true
	if w.err != nil {
		_ = w.abort()
		return w.err
	}

	if len(w.buf) > 0 || len(w.parts) == 0 {
		if err := w.flush(); err != nil {
			_ = w.abort()
			return err
		}
	}

	_, err := w.s.client.CompleteMultipartUpload(w.ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.s.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		_ = w.abort()
		return fmt.Errorf("storage: s3 complete multipart upload: %w", err)
	}
	return nil
}

// Abort discards the upload and every part sent so far.
func (w *multipartWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.abort()
}

func (w *multipartWriter) abort() error {
	_, err := w.s.client.AbortMultipartUpload(w.ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.s.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	if err != nil {
		w.s.log.Warn("Abort multipart upload failed", map[string]interface{}{
			"key":   w.key,
			"error": err.Error(),
		})
		return fmt.Errorf("storage: s3 abort multipart upload: %w", err)
	}
	return nil
}
