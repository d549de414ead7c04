package kernel

import "golang.org/x/sync/errgroup"

// BuildMany builds every Builder in builders concurrently (spec §5:
// "parallelism is achieved by constructing multiple independent stacks
// over a shareable underlying physical connector"). If any Builder fails,
// BuildMany returns the first error encountered; the other builds still
// run to completion since errgroup.Group only cancels cooperatively and
// none of these builds accept a context.
func BuildMany(builders []*Builder) ([]*Kernel, error) {
	kernels := make([]*Kernel, len(builders))
	var g errgroup.Group
	for i, b := range builders {
		i, b := i, b
		g.Go(func() error {
			k, err := b.Build()
			if err != nil {
				return err
			}
			kernels[i] = k
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return kernels, nil
}
