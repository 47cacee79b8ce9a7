package util

import (
	"context"
	"io"
)

// CopyBufferWithContext is a variant of io.CopyBuffer that stops as soon as the context is done.
//
// If buf is nil, a new buffer of size 32*1024 is created. src's io.WriterTo and dst's io.ReaderFrom are never used
// since they can't be interrupted. The context is checked after every write, so the size of buf is a tradeoff between
// per-write overhead and how quickly cancellation takes effect.
func CopyBufferWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (written int64, err error) {
	if buf == nil {
		buf = make([]byte, 32*1024)
	}

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)

			switch {
			case werr != nil:
				return written, werr
			case nw != nr:
				return written, io.ErrShortWrite
			}

			if err = ctx.Err(); err != nil {
				return written, err
			}
		}

		switch {
		case rerr == io.EOF:
			return written, nil
		case rerr != nil:
			return written, rerr
		}
	}
}

// WriteNoopCloser implements a no-op io.Closer for an io.Writer.
type WriteNoopCloser struct {
	io.Writer
}

func (w *WriteNoopCloser) Close() error {
	return nil
}

// ChainCloser makes sure all the close functions are called at least once and will return the first error.
//
// The order of the close functions matters when one layer wraps another: a compressor must be closed before the buffer
// it writes into is flushed, for example.
func ChainCloser(fn1 func() error, fn2 func() error, fns ...func() error) func() error {
	return func() error {
		err, err2 := fn1(), fn2()

		if err2 != nil && err == nil {
			err = err2
		}

		for _, fn := range fns {
			if err2 = fn(); err2 != nil && err == nil {
				err = err2
			}
		}

		return err
	}
}
