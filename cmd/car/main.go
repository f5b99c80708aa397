// Car personality entry point.
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
	car := newCar()

	stop := make(chan struct{})
	if err := car.Run(stop); err != nil {
		log.Fatalf("car: %v", err)
	}
}
