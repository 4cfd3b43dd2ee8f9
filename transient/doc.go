// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies transport errors as transient or
// non-transient. The fetch service's retry policy uses it to decide
// whether an attempt is worth repeating, and its metrics use the
// category name as a label.
//
// Package transient depends only on the standard library.
package transient
