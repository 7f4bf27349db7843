package engine

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directoryIDs(n Node) []string {
	ids := make([]string, 0, n.base().DirectorySize())
	for id := range n.base().comp.directory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func buildTree(t *testing.T) (*Container, *Container, *ticker, *ticker) {
	t.Helper()
	root := NewContainer("root", WithID("root"))
	group := NewContainer("group", WithID("group"))
	a := newTicker("a", 1, 10)
	b := newTicker("b", 2, 10)
	require.NoError(t, Attach(group, a))
	require.NoError(t, Attach(group, b))
	require.NoError(t, Attach(root, group))
	return root, group, a, b
}

func TestAttachMergesDirectoryAndBroker(t *testing.T) {
	root, group, a, b := buildTree(t)

	if diff := cmp.Diff([]string{"a", "b", "group", "root"}, directoryIDs(root)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
	// every node of the component shares one broker
	for _, n := range []Node{root, group, a, b} {
		assert.Same(t, root.Opera(), n.Opera())
	}
}

func TestAttachCarriesPendingActions(t *testing.T) {
	root := NewContainer("root", WithID("root"))
	sub := newTicker("sub", 1, 10)
	sub.Opera().EnqueueFuture(mark(nil), 3, WithActionID("carried"), OwnedBy("sub"))

	require.NoError(t, Attach(root, sub))
	assert.Equal(t, 1, root.Opera().PendingFutures())
	assert.Equal(t, At(3), root.Opera().NextFuture())
}

func TestAttachRejectsCycle(t *testing.T) {
	root, group, _, _ := buildTree(t)
	err := Attach(group, root)
	require.Error(t, err)
	// root still has a parentless top, so the already-attached check
	// cannot fire here; this is the component-identity cycle check
	assert.True(t, IsConfigError(err, ErrCodeAttachCycle))
}

func TestAttachRejectsNonRootChild(t *testing.T) {
	_, _, a, _ := buildTree(t)
	other := NewContainer("other")
	err := Attach(other, a)
	require.Error(t, err)
	assert.True(t, IsConfigError(err, ErrCodeAlreadyAttached))
}

func TestAttachRejectsDuplicateSiblingName(t *testing.T) {
	_, group, _, _ := buildTree(t)
	dup := newTickerID("a2", "a", 1, 10)
	err := Attach(group, dup)
	require.Error(t, err)
	assert.True(t, IsConfigError(err, ErrCodeDuplicateName))
}

func TestDetachRoundTrip(t *testing.T) {
	root, group, a, _ := buildTree(t)
	op := root.Opera()
	op.EnqueueFuture(mark(nil), 5, WithActionID("stays"), OwnedBy("root"))
	op.EnqueueFuture(mark(nil), 6, WithActionID("moves"), OwnedBy("a"))
	op.EnqueueFuture(mark(nil), 7, WithActionID("ambiguous"))

	require.True(t, Detach(group))

	assert.Nil(t, group.Parent())
	assert.Empty(t, root.Children())
	if diff := cmp.Diff([]string{"root"}, directoryIDs(root)); diff != "" {
		t.Errorf("parent directory (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "group"}, directoryIDs(group)); diff != "" {
		t.Errorf("detached directory (-want +got):\n%s", diff)
	}

	// fresh broker scoped to the subtree: subtree-owned actions moved,
	// ownerless ones stayed behind
	assert.NotSame(t, root.Opera(), group.Opera())
	assert.Equal(t, 1, group.Opera().PendingFutures())
	assert.Equal(t, At(6), group.Opera().NextFuture())
	assert.Equal(t, 2, root.Opera().PendingFutures())
	assert.Same(t, group.Opera(), a.Opera())
}

func TestDetachWithoutParentIsNoOp(t *testing.T) {
	root := NewContainer("root")
	assert.False(t, Detach(root))
}

func TestReattachAfterDetach(t *testing.T) {
	root, group, _, _ := buildTree(t)
	require.True(t, Detach(group))
	require.NoError(t, Attach(root, group))
	if diff := cmp.Diff([]string{"a", "b", "group", "root"}, directoryIDs(root)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkPreOrderInsertionOrder(t *testing.T) {
	root, _, _, _ := buildTree(t)
	var names []string
	Inspect(root, func(n Node) bool {
		names = append(names, n.Name())
		return true
	})
	assert.Equal(t, []string{"root", "group", "a", "b"}, names)
}

func TestResolve(t *testing.T) {
	root, group, a, _ := buildTree(t)

	got, err := Resolve(root, "group/a")
	require.NoError(t, err)
	assert.Same(t, Node(a), got)

	got, err = Resolve(a, "../b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name())

	got, err = Resolve(a, "..")
	require.NoError(t, err)
	assert.Same(t, Node(group), got)

	_, err = Resolve(root, "group/missing")
	require.Error(t, err)
	assert.True(t, IsLookupError(err))

	_, err = Resolve(root, "..")
	require.Error(t, err)
	assert.True(t, IsLookupError(err))
}

// A cached relative path must resolve exactly as a fresh walk would, or
// miss. Topology changes bump the component generation, so entries
// cached before an attach or detach stop validating.
func TestResolveCacheInvalidatedByTopologyChange(t *testing.T) {
	root, group, a, _ := buildTree(t)

	got, err := Resolve(root, "group/a")
	require.NoError(t, err)
	assert.Same(t, Node(a), got)

	require.True(t, Detach(group))
	_, err = Resolve(root, "group/a")
	require.Error(t, err)
	assert.True(t, IsLookupError(err))

	// reattach a different subtree under the same name
	group2 := NewContainer("group", WithID("group2"))
	a2 := newTickerID("a2", "a", 1, 10)
	require.NoError(t, Attach(group2, a2))
	require.NoError(t, Attach(root, group2))

	got, err = Resolve(root, "group/a")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.ID())
}

func TestNodeIdentity(t *testing.T) {
	gen := NewFixedGenerator("n-1")
	n := NewContainer("thing", WithIDGenerator(gen))
	assert.Equal(t, "n-1", n.ID())
	assert.Equal(t, "thing", n.Name())
	assert.Nil(t, n.Parent())

	byID, ok := n.Lookup("n-1")
	require.True(t, ok)
	assert.Same(t, Node(n), byID)
}

func TestRoot(t *testing.T) {
	root, _, a, _ := buildTree(t)
	assert.Same(t, Node(root), Root(a))
	assert.Same(t, Node(root), Root(root))
}
