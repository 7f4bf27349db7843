package engine

import "strings"

// component is the state shared by one connected hierarchy: the flat
// id directory, the broker, and the topology generation counter.
//
// INVARIANT: the directory contains exactly the ids of the nodes
// reachable from the component root, and every one of those nodes
// points back at this component. Attach and detach are the only
// operations that may violate and must restore this.
type component struct {
	directory  map[string]Node
	opera      *Opera
	generation uint64
}

func newComponent(n Node) *component {
	return &component{
		directory: map[string]Node{n.ID(): n},
		opera:     newOpera(),
	}
}

// Root returns the root of the connected component containing n.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

// Attach splices child (which must be a root) under parent. The
// child's directory and pending broker actions merge into the parent's
// component, every node of the attached subtree is re-pointed at the
// parent's broker, and the topology generation is bumped so stale
// path-cache entries stop validating.
func Attach(parent, child Node) error {
	cb := child.base()
	if cb.parent != nil {
		return &ConfigError{
			Code:    ErrCodeAlreadyAttached,
			Message: "node already has a parent",
			NodeID:  child.ID(),
		}
	}
	pb := parent.base()
	if pb.comp == cb.comp {
		// child is a root, so sharing a component means parent lives
		// inside child's own subtree (or is child itself)
		return &ConfigError{
			Code:    ErrCodeAttachCycle,
			Message: "attach would make a node its own ancestor",
			NodeID:  child.ID(),
		}
	}
	if _, ok := pb.byName[child.Name()]; ok {
		return &ConfigError{
			Code:    ErrCodeDuplicateName,
			Message: "parent already has a child named " + child.Name(),
			NodeID:  parent.ID(),
		}
	}

	dst := pb.comp
	src := cb.comp
	for id, n := range src.directory {
		dst.directory[id] = n
		n.base().comp = dst
	}
	dst.opera.absorb(src.opera)
	dst.generation++

	cb.parent = parent
	pb.children = append(pb.children, child)
	pb.byName[child.Name()] = child
	return nil
}

// Detach removes child and its subtree from its parent, giving it a
// fresh component: a directory scoped to the subtree and a broker
// holding exactly the pending actions owned by subtree nodes. Returns
// false, leaving everything unchanged, when child has no parent.
func Detach(child Node) bool {
	cb := child.base()
	parent := cb.parent
	if parent == nil {
		return false
	}
	pb := parent.base()
	for i, c := range pb.children {
		if c == child {
			pb.children = append(pb.children[:i], pb.children[i+1:]...)
			break
		}
	}
	delete(pb.byName, child.Name())
	cb.parent = nil

	old := cb.comp
	// generation starts past the old counter so cache entries written
	// under the old component can never validate against the new one
	fresh := &component{
		directory:  make(map[string]Node),
		generation: old.generation + 1,
	}
	Inspect(child, func(n Node) bool {
		fresh.directory[n.ID()] = n
		n.base().comp = fresh
		delete(old.directory, n.ID())
		return true
	})
	fresh.opera = old.opera.split(func(owner string) bool {
		_, ok := fresh.directory[owner]
		return ok
	})
	old.generation++
	return true
}

// A Visitor's Visit method is invoked for each node encountered by
// Walk. If the returned visitor w is not nil, Walk visits each child
// of the node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses the subtree rooted at n in depth-first pre-order.
func Walk(v Visitor, n Node) {
	if v = v.Visit(n); v == nil {
		return
	}
	for _, c := range n.Children() {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if n != nil && f(n) {
		return f
	}
	return nil
}

// Inspect traverses the subtree rooted at n in depth-first pre-order,
// calling f for every node. If f returns false the node's children
// are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

// Resolve walks the relative path from n: path segments are child
// names, ".." steps to the parent, "." and empty segments are ignored.
// Lookups are memoized per node; a cached entry is trusted only while
// the component topology generation it was written under is current.
func Resolve(n Node, path string) (Node, error) {
	b := n.base()
	if e, ok := b.pathCache[path]; ok && e.gen == b.comp.generation {
		if hit, ok := b.comp.directory[e.id]; ok {
			return hit, nil
		}
	}

	cur := n
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			p := cur.Parent()
			if p == nil {
				return nil, &LookupError{Path: path, NodeID: n.ID()}
			}
			cur = p
		default:
			c, ok := cur.Child(seg)
			if !ok {
				return nil, &LookupError{Path: path, NodeID: n.ID()}
			}
			cur = c
		}
	}

	if b.pathCache == nil {
		b.pathCache = make(map[string]pathEntry)
	}
	b.pathCache[path] = pathEntry{id: cur.ID(), gen: b.comp.generation}
	return cur, nil
}
