package hwcomp

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
)

// Dump writes the displays, their last assignments and the pipe table to w.
func (c *Context) Dump(w io.Writer) error {
	ids := make([]int, 0, len(c.displays))
	for id := range c.displays {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		d := c.displays[id]
		fmt.Fprintf(w, "display %d: %dx%d split=%s splitX=%d blank=%t padding=%d\n",
			id, d.attrs.Width, d.attrs.Height, d.split, d.splitX, d.blank, d.padding)
		a := d.last
		if a == nil {
			fmt.Fprintf(w, "  not prepared\n")
			continue
		}
		fmt.Fprintf(w, "  strategy=%s roi=%s fbZ=%d target=%v %s", a.Strategy, a.ROI, a.FramebufferZ, a.TargetPipes, a.TargetFormat)
		if a.Reason != nil {
			fmt.Fprintf(w, " reason=%q", a.Reason)
		}
		fmt.Fprintln(w)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "  LAYER\tCOMP\tPIPES\tZ\tROT\tCACHED\tOVERLAP\n")
		for i, la := range a.Layers {
			fmt.Fprintf(tw, "  %d\t%s\t%v\t%d\t%d\t%t\t%t\n",
				i, la.Composition, la.Pipes, la.Z, la.Rotator, la.Cached, la.Overlap)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "rotator sessions: %d/%d in use, %d live\n", c.rots.InUse(), c.rots.Capacity(), c.rots.Live())
	return c.pipes.Dump(w)
}
