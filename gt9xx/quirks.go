// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import "strings"

// Identity describes the host system, as reported by DMI on x86 boards.
// It is matched against the quirk tables below.
type Identity struct {
	SysVendor   string
	ProductName string
}

type dmiMatch struct {
	ident   string
	vendor  string
	product string
}

// Tablets with their coordinate origin at the bottom right of the panel,
// as if rotated 180 degrees.
var rotatedScreen = []dmiMatch{
	{"WinBook TW100", "WinBook", "TW100"},
	{"WinBook TW700", "WinBook", "TW700"},
}

func matchRotatedScreen(id Identity) bool {
	for _, m := range rotatedScreen {
		if strings.Contains(id.SysVendor, m.vendor) && strings.Contains(id.ProductName, m.product) {
			return true
		}
	}
	return false
}
