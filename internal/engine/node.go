package engine

// Node is a participant in a hierarchy: either a leaf with its own
// evolution rule or a pure container. Concrete variants embed *Base,
// which provides the full Node implementation; the unexported base
// method restricts implementations to exactly those variants.
type Node interface {
	// ID returns the process-unique identifier of the node.
	ID() string
	// Name returns the human-readable name, unique among siblings.
	Name() string
	// Parent returns the owning container, or nil for a root.
	Parent() Node
	// Children returns the children in insertion order. The returned
	// slice must not be modified.
	Children() []Node
	// Child returns the child with the given name, if any.
	Child(name string) (Node, bool)
	// Opera returns the broker shared by the node's connected
	// component.
	Opera() *Opera
	// Lookup resolves a node id through the component directory.
	Lookup(id string) (Node, bool)

	base() *Base
}

// Advancer is implemented by nodes with their own evolution rule.
// AdvanceOneUnit is only called when the node's projected time equals
// the current frontier exactly; it mutates the node's state and moves
// its projected time forward by one of its own units.
type Advancer interface {
	AdvanceOneUnit() error
}

// Projector is implemented by nodes that project their own time.
// Containers do not implement it: their projection is the fold of
// their children, computed by the scheduler.
type Projector interface {
	ProjectedTime() Horizon
}

// PreAdvancer is an optional hook invoked once per external Step call,
// pre-order over the whole tree, before any advance. Subsystems that
// lazily extend state up to the frontier implement it.
type PreAdvancer interface {
	PreAdvance(frontier float64) error
}

// Reinitializer resets a node to its initial condition. The scheduler
// applies it recursively; a node never resets its own descendants.
type Reinitializer interface {
	Reinitialize() error
}

// Base carries the fields common to every node variant: identity,
// tree links, the shared-component handle, and the relative-path
// memoization cache. Variants embed *Base and add their own state.
type Base struct {
	id     string
	name   string
	parent Node
	// children in insertion order, with a name index alongside.
	// Insertion order is the deterministic iteration order required
	// for reproducible logs.
	children []Node
	byName   map[string]Node

	comp *component

	// pathCache memoizes relative-path lookups. Entries are validated
	// against the component generation on read; attach and detach
	// bump the generation instead of pruning eagerly.
	pathCache map[string]pathEntry
}

type pathEntry struct {
	id  string
	gen uint64
}

// NodeOption configures a Base under construction.
type NodeOption func(*Base)

// WithID pins the node id instead of generating one. Used by tests and
// loaders that need deterministic directories.
func WithID(id string) NodeOption {
	return func(b *Base) { b.id = id }
}

// WithIDGenerator generates the node id with g instead of the default
// UUIDv7 generator.
func WithIDGenerator(g IDGenerator) NodeOption {
	return func(b *Base) { b.id = g.Generate() }
}

// NewBase constructs the common fields of a node variant. The variant
// must be finalized with Wrap before it joins a hierarchy.
func NewBase(name string, opts ...NodeOption) *Base {
	b := &Base{
		name:   name,
		byName: make(map[string]Node),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.id == "" {
		b.id = UUIDv7Generator{}.Generate()
	}
	return b
}

// Wrap finalizes a freshly constructed variant: the node becomes the
// root of its own single-node component with a private broker and a
// directory containing only itself.
func Wrap[T Node](n T) T {
	b := n.base()
	b.comp = newComponent(n)
	return n
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Name() string { return b.name }
func (b *Base) Parent() Node { return b.parent }

func (b *Base) Children() []Node { return b.children }

func (b *Base) Child(name string) (Node, bool) {
	c, ok := b.byName[name]
	return c, ok
}

// Opera returns the broker shared by the node's connected component.
func (b *Base) Opera() *Opera { return b.comp.opera }

// Lookup resolves a node id through the component directory.
func (b *Base) Lookup(id string) (Node, bool) {
	n, ok := b.comp.directory[id]
	return n, ok
}

// DirectorySize returns the number of nodes in the component
// directory. Exposed for introspection and invariant tests.
func (b *Base) DirectorySize() int { return len(b.comp.directory) }

func (b *Base) base() *Base { return b }

// Container is a pure grouping node: no evolution rule of its own, no
// projected time. Its contribution to any frontier is the fold over
// its children.
type Container struct {
	*Base
}

// NewContainer creates an isolated container node.
func NewContainer(name string, opts ...NodeOption) *Container {
	return Wrap(&Container{Base: NewBase(name, opts...)})
}
