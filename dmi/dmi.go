// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dmi exposes the host's DMI identity strings, used to key panel
// quirks on x86 tablets.
package dmi

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Identity is the subset of the DMI tables drivers match quirks against.
type Identity struct {
	SysVendor   string
	ProductName string
}

var (
	once sync.Once
	host Identity
)

// Host returns the identity of the running system. Fields that cannot be
// read, e.g. on hosts without DMI, are left empty.
func Host() Identity {
	once.Do(func() {
		host = idFromRoot("/sys/class/dmi/id")
	})
	return host
}

func idFromRoot(root string) Identity {
	return Identity{
		SysVendor:   readField(root, "sys_vendor"),
		ProductName: readField(root, "product_name"),
	}
}

func readField(root, name string) string {
	b, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
