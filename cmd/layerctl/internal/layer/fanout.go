// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package layer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachRegion runs fn concurrently for every region. The first error
// cancels the shared context so in-flight siblings can stop early, and is
// the one returned.
func ForEachRegion(ctx context.Context, regions []string, fn func(ctx context.Context, region string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		g.Go(func() error {
			return fn(ctx, region)
		})
	}
	return g.Wait()
}
