// Package file keeps accounts and the book catalog in the plain text files the library has
// always used. Everything is read once at start and written back in one pass at the end.
package file

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic replaces path with whatever write produces, via a temp file in the same directory
// so an interrupted save leaves the previous file intact.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
