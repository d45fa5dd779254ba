// Package archive compresses retired measurement tables with lz4 so
// historical data survives a cleancsv without keeping full-size files around.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640

	// Ext is appended to archived table file names.
	Ext = ".lz4"
)

// CompressFile writes an lz4-compressed copy of src to dst.
func CompressFile(src, dst string) error {
	in, openErr := os.Open(src)
	if openErr != nil {
		return fmt.Errorf("open %s: %w", src, openErr)
	}
	defer in.Close()

	out, createErr := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if createErr != nil {
		return fmt.Errorf("create %s: %w", dst, createErr)
	}
	defer out.Close()

	writer := lz4.NewWriter(out)

	_, copyErr := io.Copy(writer, in)
	if copyErr != nil {
		return fmt.Errorf("compress %s: %w", src, copyErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return fmt.Errorf("flush %s: %w", dst, closeErr)
	}

	return nil
}

// Tables compresses every regular file in srcDir into dstDir, returning the
// number of files archived. Source files are left in place; the caller
// decides when to delete them.
func Tables(srcDir, dstDir string) (int, error) {
	entries, readErr := os.ReadDir(srcDir)
	if readErr != nil {
		return 0, fmt.Errorf("read %s: %w", srcDir, readErr)
	}

	mkErr := os.MkdirAll(dstDir, dirPerm)
	if mkErr != nil {
		return 0, fmt.Errorf("create %s: %w", dstDir, mkErr)
	}

	archived := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(dstDir, entry.Name()+Ext)

		compressErr := CompressFile(src, dst)
		if compressErr != nil {
			return archived, compressErr
		}

		archived++
	}

	return archived, nil
}
