// Copyright 2023 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import "time"

func (b *cachedBackend) SetNowFn(f func() time.Time) {
	b.nowFn = f
}
