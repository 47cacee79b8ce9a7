package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"io"
	"syscall"
)

// result is the outcome of a call into a format driver or codec.
type result int

const (
	resultOK result = iota
	// resultWarn means the call succeeded but has a diagnostic worth reporting.
	resultWarn
	// resultEOF means there are no more entries.
	resultEOF
	// resultRetry means the call failed transiently and may be attempted again.
	resultRetry
	// resultFailed means the call failed but the session is still usable.
	resultFailed
	// resultFatal means the session is no longer usable.
	resultFatal
)

// maxRetries is the number of attempts made on resultRetry before giving up.
const maxRetries = 3

// Warning can be returned by a format driver to report a non-fatal diagnostic alongside a valid result.
type Warning struct {
	Err error
}

func (w *Warning) Error() string {
	return "warning: " + w.Err.Error()
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// classify maps an error returned by a driver to a result.
func classify(err error) result {
	if err == nil {
		return resultOK
	}

	var w *Warning
	var te interface{ Timeout() bool }

	switch {
	case err == io.EOF:
		return resultEOF
	case errors.As(err, &w), errors.Is(err, tar.ErrInsecurePath), errors.Is(err, zip.ErrInsecurePath):
		return resultWarn
	case errors.Is(err, io.ErrNoProgress), errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EAGAIN):
		return resultRetry
	case errors.As(err, &te) && te.Timeout():
		return resultRetry
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, tar.ErrHeader), errors.Is(err, zip.ErrFormat):
		return resultFatal
	default:
		return resultFailed
	}
}
