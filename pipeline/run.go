package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/inkpost/logx"
)

// Run executes the nodes of p in dependency order, loading inputs from and
// saving outputs to c.
func Run(ctx context.Context, p *Pipeline, c *Catalog) error {
	nodes, err := p.Sorted()
	if err != nil {
		return err
	}
	for _, name := range p.Inputs() {
		if !c.Has(name) {
			return fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
	}
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runNode(ctx, n, c); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	return nil
}

func runNode(ctx context.Context, n *Node, c *Catalog) error {
	in := make(Values, len(n.Inputs))
	for _, arg := range sortedKeys(n.Inputs) {
		v, err := c.Load(ctx, n.Inputs[arg])
		if err != nil {
			return err
		}
		in[arg] = v
	}

	start := time.Now()
	logx.L().Debug("running node", "node", n.Name)
	out, err := n.Func(ctx, in)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(n.Outputs) {
		v, ok := out[key]
		if !ok {
			return fmt.Errorf("result %q not returned", key)
		}
		if err := c.Save(ctx, n.Outputs[key], v); err != nil {
			return err
		}
	}
	logx.L().Info("node completed", "node", n.Name, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Runner runs the independent parts of a pipeline concurrently.
type Runner struct {
	Catalog  *Catalog
	Parallel int
}

// RunAll splits p into independent components and runs up to Parallel of
// them at a time. A failing component does not stop the others; all
// failures are returned joined.
func (r *Runner) RunAll(ctx context.Context, p *Pipeline) error {
	parts, err := p.Components()
	if err != nil {
		return err
	}
	limit := r.Parallel
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	errs := make([]error, len(parts))
	for i, part := range parts {
		g.Go(func() error {
			errs[i] = Run(ctx, part, r.Catalog)
			if errs[i] != nil {
				logx.L().Error("pipeline part failed", "first_node", part.nodes[0].Name, "err", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
