// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package firmware locates controller configuration blobs on the host.
package firmware

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Loader resolves a firmware name to its content. A nil blob with a nil
// error means the blob does not exist on this host, which callers treat
// as "run with built-in defaults".
type Loader interface {
	Load(name string) ([]byte, error)
}

// Dir is a Loader backed by a directory, typically /lib/firmware.
type Dir string

// Load implements Loader.
func (d Dir) Load(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(string(d), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// RequestNowait resolves name on a new goroutine and hands the result to
// cb. cb always runs, with a nil blob when the loader is nil, the blob is
// missing, or loading failed.
func RequestNowait(l Loader, name string, cb func(blob []byte)) {
	go func() {
		if l == nil {
			cb(nil)
			return
		}
		b, err := l.Load(name)
		if err != nil {
			log.Printf("firmware: %s: %v", name, err)
			b = nil
		}
		cb(b)
	}()
}
