// Unpaired-fob personality entry point.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import "log"

func main() {
	fob := newUnpairedFob()

	stop := make(chan struct{})
	if err := fob.Run(stop); err != nil {
		log.Fatalf("unpairedfob: %v", err)
	}
}
