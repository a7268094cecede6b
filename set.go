package hwcomp

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/internal/logging"
	"github.com/gogpu/hwcomp/pipe"
	"github.com/gogpu/hwcomp/rotator"
)

// Set plays the last prepared frame of a display: buffers are queued
// through their rotation sessions and pipes, release fences are written to
// the layers and the mixer is committed. The retire fence is stored in
// list.RetireFence.
//
// Queue failures do not stop the frame; they are joined into the returned
// error.
func (c *Context) Set(id int, list *LayerList) error {
	if c.inFrame {
		return ErrInFrame
	}
	if list == nil {
		return ErrNilList
	}
	d, ok := c.displays[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}
	a := d.last
	if a == nil {
		return fmt.Errorf("%w: %d", ErrNotPrepared, id)
	}
	if len(a.Layers) != len(list.Layers) {
		return fmt.Errorf("%w: display %d prepared %d layers, got %d",
			ErrNotPrepared, id, len(a.Layers), len(list.Layers))
	}
	list.RetireFence = nil
	if d.blank {
		return nil
	}

	var errs []error
	for i := range list.Layers {
		la := &a.Layers[i]
		if la.Composition != CompositionOverlay || la.Overlap {
			continue
		}
		var sess *rotator.Session
		if i < len(d.sessions) {
			sess = d.sessions[i]
		}
		if err := c.queueLayer(&list.Layers[i], la.Pipes, sess); err != nil {
			errs = append(errs, fmt.Errorf("layer %d: %w", i, err))
		}
	}

	if a.OverlapPipe != pipe.Invalid {
		if err := c.blitOverlap(d, a, list); err != nil {
			errs = append(errs, err)
		}
	}

	if t := &list.Target; len(a.TargetPipes) > 0 && t.Buffer != nil {
		if err := c.queueLayer(t, a.TargetPipes, nil); err != nil {
			errs = append(errs, fmt.Errorf("framebuffer target: %w", err))
		}
	}

	retire, err := c.dev.Commit(id)
	if err != nil {
		errs = append(errs, fmt.Errorf("display %d: commit: %w", id, err))
	} else {
		list.RetireFence = retire
	}
	if len(errs) > 0 {
		logging.Logger().Warn("hwcomp: set failed", "display", id, "errors", len(errs))
	}
	return errors.Join(errs...)
}

// queueLayer queues l on its pipes, through sess when the layer is rotated.
// The release fence of the first pipe is written back to the layer and, for
// rotated layers, guards the ring buffer the pipe reads.
func (c *Context) queueLayer(l *Layer, pipes []pipe.ID, sess *rotator.Session) error {
	buf, acquire := l.Buffer, l.AcquireFence
	if sess != nil {
		out, done, err := sess.Queue(buf, acquire)
		if err != nil {
			return err
		}
		buf, acquire = out, done
	}
	var release hal.Fence
	var errs []error
	for _, id := range pipes {
		f, err := c.pipes.Queue(id, buf, acquire)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if release == nil {
			release = f
		}
	}
	if sess != nil {
		sess.SetReleaseFence(release)
	}
	l.ReleaseFence = release
	return errors.Join(errs...)
}
