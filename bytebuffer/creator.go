// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package bytebuffer

import (
	"io"
	"os"
)

// ReadWriteSeekCloser is an interface that groups the Read, Write,
// Seek, and Close methods.
type ReadWriteSeekCloser interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// A type that implements Creator allocates the backing store for one
// byte buffer. The [ReadWriteSeekCloser] returned from CreateBuffer
// must be of the given size and start with its offset at 0. A size
// less than 1 indicates that the caller does not know how many bytes
// will be written.
type Creator interface {
	CreateBuffer(size int64) (ReadWriteSeekCloser, error)
}

// TempFileCreator implements [Creator] with [os.CreateTemp]. The
// fields of TempFileCreator are given as arguments to [os.CreateTemp].
// The created file is removed when the returned buffer is closed, so a
// channel backed by one leaves nothing on disk once it is closed.
type TempFileCreator struct {
	Dir     string
	Pattern string
}

// CreateBuffer creates a new temporary file of the given size.
func (tfc TempFileCreator) CreateBuffer(size int64) (ReadWriteSeekCloser, error) {
	f, err := os.CreateTemp(tfc.Dir, tfc.Pattern)
	if err != nil {
		return nil, err
	}
	if size >= 1 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	return removeOnCloseFile{f}, nil
}

type removeOnCloseFile struct {
	*os.File
}

func (f removeOnCloseFile) Close() error {
	closeError := f.File.Close()
	removeError := os.Remove(f.Name())
	if closeError != nil {
		return closeError
	}
	return removeError
}
