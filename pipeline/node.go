// Package pipeline wires generation steps into a dependency graph of nodes
// that read and write named datasets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCycle is returned when nodes depend on each other's outputs in a loop.
	ErrCycle = errors.New("pipeline: dependency cycle")
	// ErrDuplicateOutput is returned when two nodes write the same dataset.
	ErrDuplicateOutput = errors.New("pipeline: dataset written by more than one node")
)

const paramsPrefix = "params:"

// Values maps a node's argument or result keys to values.
type Values map[string]any

// Func is the work a node performs.
type Func func(ctx context.Context, in Values) (Values, error)

// Node reads the datasets bound in Inputs, calls Func with the values keyed by
// argument name and saves the results keyed by Outputs.
type Node struct {
	Name    string
	Inputs  map[string]string // argument -> dataset
	Outputs map[string]string // result key -> dataset
	Func    Func
}

func (n *Node) inputDatasets() []string  { return sortedValues(n.Inputs) }
func (n *Node) outputDatasets() []string { return sortedValues(n.Outputs) }

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Pipeline is an ordered collection of nodes.
type Pipeline struct {
	nodes []*Node
}

// New creates a pipeline from nodes.
func New(nodes ...*Node) *Pipeline {
	return &Pipeline{nodes: append([]*Node(nil), nodes...)}
}

// Add returns a pipeline containing the nodes of p followed by those of others.
func (p *Pipeline) Add(others ...*Pipeline) *Pipeline {
	out := New(p.nodes...)
	for _, o := range others {
		if o != nil {
			out.nodes = append(out.nodes, o.nodes...)
		}
	}
	return out
}

// Nodes returns the nodes in insertion order.
func (p *Pipeline) Nodes() []*Node { return append([]*Node(nil), p.nodes...) }

// Len returns the number of nodes.
func (p *Pipeline) Len() int { return len(p.nodes) }

// Namespace returns a copy of p whose node names and dataset names are
// prefixed with "ns.". Datasets listed in shared and parameters are left alone.
func (p *Pipeline) Namespace(ns string, shared ...string) *Pipeline {
	keep := map[string]bool{}
	for _, s := range shared {
		keep[s] = true
	}
	rename := func(name string) string {
		if keep[name] || strings.HasPrefix(name, paramsPrefix) {
			return name
		}
		return ns + "." + name
	}
	out := &Pipeline{nodes: make([]*Node, len(p.nodes))}
	for i, n := range p.nodes {
		c := &Node{
			Name:    ns + "." + n.Name,
			Inputs:  make(map[string]string, len(n.Inputs)),
			Outputs: make(map[string]string, len(n.Outputs)),
			Func:    n.Func,
		}
		for k, v := range n.Inputs {
			c.Inputs[k] = rename(v)
		}
		for k, v := range n.Outputs {
			c.Outputs[k] = rename(v)
		}
		out.nodes[i] = c
	}
	return out
}

// Only returns the nodes whose name starts with prefix.
func (p *Pipeline) Only(prefix string) *Pipeline {
	out := New()
	for _, n := range p.nodes {
		if strings.HasPrefix(n.Name, prefix) {
			out.nodes = append(out.nodes, n)
		}
	}
	return out
}

// Inputs lists datasets that are read but not produced inside p.
func (p *Pipeline) Inputs() []string {
	produced := map[string]bool{}
	for _, n := range p.nodes {
		for _, d := range n.outputDatasets() {
			produced[d] = true
		}
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range p.nodes {
		for _, d := range n.inputDatasets() {
			if !produced[d] && !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Outputs lists every dataset written by p.
func (p *Pipeline) Outputs() []string {
	var out []string
	for _, n := range p.nodes {
		out = append(out, n.outputDatasets()...)
	}
	sort.Strings(out)
	return out
}

func (p *Pipeline) producers() (map[string]int, error) {
	producer := map[string]int{}
	for i, n := range p.nodes {
		for _, d := range n.outputDatasets() {
			if j, ok := producer[d]; ok {
				return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateOutput, d, p.nodes[j].Name, n.Name)
			}
			producer[d] = i
		}
	}
	return producer, nil
}

// Sorted returns the nodes in an order where every node runs after the nodes
// producing its inputs. Ties keep insertion order.
func (p *Pipeline) Sorted() ([]*Node, error) {
	producer, err := p.producers()
	if err != nil {
		return nil, err
	}
	indegree := make([]int, len(p.nodes))
	dependents := make([][]int, len(p.nodes))
	for i, n := range p.nodes {
		for _, d := range n.inputDatasets() {
			if j, ok := producer[d]; ok {
				indegree[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	var ready []int
	for i, deg := range indegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}
	out := make([]*Node, 0, len(p.nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		out = append(out, p.nodes[i])
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	if len(out) != len(p.nodes) {
		var stuck []string
		for i, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, p.nodes[i].Name)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return out, nil
}

// Components splits p into pipelines that share no produced dataset, so they
// can run independently.
func (p *Pipeline) Components() ([]*Pipeline, error) {
	producer, err := p.producers()
	if err != nil {
		return nil, err
	}
	parent := make([]int, len(p.nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i, n := range p.nodes {
		for _, d := range n.inputDatasets() {
			if j, ok := producer[d]; ok {
				a, b := find(i), find(j)
				if a != b {
					parent[a] = b
				}
			}
		}
	}

	index := map[int]int{}
	var out []*Pipeline
	for i, n := range p.nodes {
		root := find(i)
		k, ok := index[root]
		if !ok {
			k = len(out)
			index[root] = k
			out = append(out, New())
		}
		out[k].nodes = append(out[k].nodes, n)
	}
	return out, nil
}
