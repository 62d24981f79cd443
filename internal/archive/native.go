package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// NativeBackend reads and writes tar.gz containers in process.
type NativeBackend struct{}

// NewNativeBackend returns a Backend that needs no external tools.
func NewNativeBackend() *NativeBackend {
	return &NativeBackend{}
}

// archiveWriters closes its writers in reverse order.
type archiveWriters struct {
	tw      *tar.Writer
	closers []io.Closer
}

func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Create writes stagingDir into a new tar.gz at archivePath. It refuses to
// overwrite an existing file.
func (b *NativeBackend) Create(ctx context.Context, archivePath, stagingDir string) (err error) {
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	gz := gzip.NewWriter(out)
	aw := &archiveWriters{tw: tar.NewWriter(gz), closers: []io.Closer{out, gz}}
	aw.closers = append(aw.closers, aw.tw)
	defer func() {
		if closeErr := aw.Close(); err == nil {
			err = closeErr
		}
	}()

	return filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		return addEntry(aw.tw, path, filepath.ToSlash(rel), d)
	})
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if d.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if d.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// openReader opens archivePath for reading through gzip and tar.
func openReader(archivePath string) (*tar.Reader, func(), error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read gzip stream: %w", err)
	}
	return tar.NewReader(gz), func() { gz.Close(); f.Close() }, nil
}

// List returns every header name in the container.
func (b *NativeBackend) List(ctx context.Context, archivePath string) ([]string, error) {
	tr, closeFn, err := openReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)
	}
}

// Extract unpacks directories and regular files into targetDir. Entries that
// would land outside targetDir are rejected.
func (b *NativeBackend) Extract(ctx context.Context, archivePath, targetDir string) error {
	tr, closeFn, err := openReader(archivePath)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		dest, err := destPath(targetDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := extractFile(tr, dest, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
		}
	}
}

// destPath joins name under targetDir and checks the result stays inside it.
func destPath(targetDir, name string) (string, error) {
	clean := filepath.Clean(targetDir)
	dest := filepath.Join(clean, filepath.FromSlash(name))
	if dest != clean && !strings.HasPrefix(dest, clean+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes target directory: %s", name)
	}
	return dest, nil
}

func extractFile(r io.Reader, dest string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
