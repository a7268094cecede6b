package hwcomp

import (
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/pipe"
)

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := hwcomp.NewContext(caps, dev, alloc,
//	    hwcomp.WithPolicy(policy),
//	    hwcomp.WithBlitter(blitter))
type Option func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	policy     Policy
	blitter    hal.Blitter
	pipePolicy *pipe.Policy
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		policy: DefaultPolicy(),
	}
}

// WithPolicy sets the strategy selector thresholds.
func WithPolicy(p Policy) Option {
	return func(o *contextOptions) {
		o.policy = p
	}
}

// WithBlitter sets the 2D engine used by overlap removal. Without a blitter
// the overlap strategy is never chosen.
func WithBlitter(b hal.Blitter) Option {
	return func(o *contextOptions) {
		o.blitter = b
	}
}

// WithPipePolicy overrides the pipe-class table selected by
// Capabilities.Variant.
func WithPipePolicy(p pipe.Policy) Option {
	return func(o *contextOptions) {
		o.pipePolicy = &p
	}
}
