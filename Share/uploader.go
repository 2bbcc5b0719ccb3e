package Share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnreachable means the share could not be reached, so nothing was copied.
var ErrUnreachable = errors.New("network share is unreachable")

// Destination is where finished artifacts are delivered.
type Destination interface {
	Reachable(ctx context.Context) bool
	Copy(localPath string) error
}

// FolderShare is a mounted or UNC folder.
type FolderShare struct {
	Root string
}

// Reachable checks that Root exists as a directory. A hung network path
// counts as unreachable once ctx is done.
func (s FolderShare) Reachable(ctx context.Context) bool {
	done := make(chan bool, 1)
	go func() {
		info, err := os.Stat(s.Root)
		done <- err == nil && info.IsDir()
	}()
	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Copy places localPath under Root with the same name. The data goes to a
// temporary name first and is renamed into place, so readers never see a
// half-written file. The modification time is preserved.
func (s FolderShare) Copy(localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dest := filepath.Join(s.Root, filepath.Base(localPath))
	tmp, err := os.CreateTemp(s.Root, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Uploader copies batches of files to a Destination.
type Uploader struct {
	Dest         Destination
	ProbeTimeout time.Duration
	Log          logrus.FieldLogger
}

// NewUploader creates an Uploader.
func NewUploader(dest Destination, probeTimeout time.Duration, log logrus.FieldLogger) *Uploader {
	return &Uploader{Dest: dest, ProbeTimeout: probeTimeout, Log: log}
}

// Upload copies every path and reports which succeeded and which failed.
// The destination is probed once up front; if it is unreachable every path
// is reported failed without any copy being attempted and ErrUnreachable is
// returned. A failed copy does not stop the rest, and copies that did succeed
// are left in place.
func (u *Uploader) Upload(ctx context.Context, paths []string) (ok, failed []string, err error) {
	probeCtx := ctx
	if u.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, u.ProbeTimeout)
		defer cancel()
	}
	if !u.Dest.Reachable(probeCtx) {
		u.Log.WithField("files", len(paths)).Error(ErrUnreachable.Error())
		return nil, append([]string(nil), paths...), ErrUnreachable
	}

	for _, p := range paths {
		if cerr := u.Dest.Copy(p); cerr != nil {
			u.Log.WithFields(logrus.Fields{"file": filepath.Base(p)}).Errorf("upload failed: %v", cerr)
			failed = append(failed, p)
			continue
		}
		u.Log.WithField("file", filepath.Base(p)).Info("uploaded")
		ok = append(ok, p)
	}
	if len(failed) > 0 {
		return ok, failed, fmt.Errorf("%d of %d files failed to upload", len(failed), len(paths))
	}
	return ok, nil, nil
}
