// Package s3readseeker lets an S3 object back an archive opened in read mode.
package s3readseeker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReadSeeker uses ranged GetObject to implement io.ReadSeeker and io.ReaderAt.
type ReadSeeker interface {
	io.ReadSeeker
	io.ReaderAt

	// Name returns the S3 URI of the object in the form s3://bucket/key.
	Name() string
	// Size returns the size of the S3 object that was determined from the initial HeadObject.
	Size() int64
}

// ReadSeekerClient abstracts the S3 APIs that are needed to implement ReadSeeker.
type ReadSeekerClient interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// DefaultBufferSize is the default value for Options.BufferSize.
//
// Archive drivers tend to make many small reads, typically one 512-byte tar block at a time, so the read-ahead is
// fairly generous.
const DefaultBufferSize = 256 * 1024

// Options customises New.
type Options struct {
	// BufferSize is used to provide buffered read-ahead for every Read call.
	//
	// By default, DefaultBufferSize is used so that consecutive small Reads don't end up with several GetObject
	// calls if one bigger GetObject call is more efficient.
	//
	// Pass zero or a negative value to disable this feature.
	BufferSize int

	// ExpectedBucketOwner is added to every HeadObject and GetObject call if not empty.
	ExpectedBucketOwner string

	// CtxFn returns a context.Context to be used with every GetObject or HeadObject call.
	//
	// By default, context.Background is used.
	CtxFn func() context.Context
}

// New returns a ReadSeeker with the given bucket and key.
//
// The client will be used to determine a valid size for the file.
func New(client ReadSeekerClient, bucket, key string, optFns ...func(*Options)) (ReadSeeker, error) {
	opts := &Options{
		BufferSize: DefaultBufferSize,
		CtxFn:      context.Background,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	headObjectOutput, err := client.HeadObject(opts.CtxFn(), &s3.HeadObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		ExpectedBucketOwner: expectedBucketOwner(opts),
	})
	if err != nil {
		return nil, fmt.Errorf(`determine size of "s3://%s/%s" error: %w`, bucket, key, err)
	}

	return &readSeeker{
		client:     client,
		bucket:     bucket,
		key:        key,
		owner:      expectedBucketOwner(opts),
		ctxFn:      opts.CtxFn,
		size:       aws.ToInt64(headObjectOutput.ContentLength),
		bufferSize: opts.BufferSize,
	}, nil
}

func expectedBucketOwner(opts *Options) *string {
	if opts.ExpectedBucketOwner == "" {
		return nil
	}

	return aws.String(opts.ExpectedBucketOwner)
}

// readSeeker keeps buf as the bytes immediately following off.
type readSeeker struct {
	client      ReadSeekerClient
	bucket, key string
	owner       *string
	ctxFn       func() context.Context
	off, size   int64
	buf         bytes.Buffer
	bufferSize  int
}

func (r *readSeeker) Name() string {
	return fmt.Sprintf("s3://%s/%s", r.bucket, r.key)
}

func (r *readSeeker) Size() int64 {
	return r.size
}

func (r *readSeeker) getRange(start, end int64) (io.ReadCloser, error) {
	getObjectOutput, err := r.client.GetObject(r.ctxFn(), &s3.GetObjectInput{
		Bucket:              aws.String(r.bucket),
		Key:                 aws.String(r.key),
		ExpectedBucketOwner: r.owner,
		Range:               aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, fmt.Errorf(`get "%s" range %d-%d error: %w`, r.Name(), start, end, err)
	}

	return getObjectOutput.Body, nil
}

func (r *readSeeker) Read(p []byte) (n int, err error) {
	m := len(p)
	if m == 0 {
		return 0, nil
	}

	// always uses from buffer if possible.
	if r.buf.Len() >= m {
		n, _ = r.buf.Read(p)
		r.off += int64(n)
		return n, nil
	}

	rangeStart := r.off + int64(r.buf.Len())
	if rangeStart >= r.size {
		if r.buf.Len() == 0 {
			return 0, io.EOF
		}

		n, _ = r.buf.Read(p)
		r.off += int64(n)
		return n, nil
	}

	// fills the buffer with the next batch then reads from buffer again.
	rangeEnd := min(r.size, rangeStart+int64(max(m-r.buf.Len(), r.bufferSize))) - 1
	body, err := r.getRange(rangeStart, rangeEnd)
	if err != nil {
		return 0, err
	}

	_, err = r.buf.ReadFrom(body)
	if _ = body.Close(); err != nil {
		return 0, err
	}

	n, _ = r.buf.Read(p)
	r.off += int64(n)
	return n, nil
}

func (r *readSeeker) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, ErrSeekBeforeFirstByte
	}
	if off >= r.size {
		return 0, io.EOF
	}

	m := int64(len(p))
	if m == 0 {
		return 0, nil
	}

	body, err := r.getRange(off, min(r.size, off+m)-1)
	if err != nil {
		return 0, err
	}

	n, err = io.ReadFull(body, p[:min(m, r.size-off)])
	_ = body.Close()
	if err == nil && int64(n) < m {
		err = io.EOF
	}

	return
}

var ErrSeekBeforeFirstByte = errors.New("seek ends up before first byte")
var ErrSeekPastLastByte = errors.New("seek ends up past end of file")

func (r *readSeeker) Seek(offset int64, whence int) (int64, error) {
	var off int64
	switch whence {
	case io.SeekStart:
		off = offset
	case io.SeekCurrent:
		off = r.off + offset
	case io.SeekEnd:
		off = r.size + offset
	default:
		return r.off, fmt.Errorf("invalid whence %d", whence)
	}

	if off < 0 {
		return r.off, ErrSeekBeforeFirstByte
	}
	if off > r.size {
		return r.off, ErrSeekPastLastByte
	}

	// keeps the buffered bytes that are still ahead of the new offset.
	if delta := off - r.off; delta >= 0 && delta <= int64(r.buf.Len()) {
		r.buf.Next(int(delta))
	} else {
		r.buf.Reset()
	}

	r.off = off
	return r.off, nil
}
