package engine

type thunkKind uint8

const (
	thunkNone thunkKind = iota
	thunkPlain
	thunkBroker
	thunkRoot
)

// Thunk is a deferred zero-argument action registered with the Opera.
// The call shape is fixed at registration time by the constructor
// used: Do for parameterless actions, WithBroker for actions that need
// the broker itself, WithRoot for actions that need whatever the
// current root of the hierarchy is at execution time.
//
// The root shape exists so a scheduled action never captures a stale
// root reference across attach and detach.
//
// A zero Thunk has no shape; executing one is a fatal configuration
// error, the registration was broken.
type Thunk struct {
	kind   thunkKind
	plain  func() (any, error)
	broker func(*Opera) (any, error)
	root   func(Node) (any, error)
}

// Do wraps a parameterless action.
func Do(f func() (any, error)) Thunk {
	return Thunk{kind: thunkPlain, plain: f}
}

// WithBroker wraps an action that receives the executing Opera.
func WithBroker(f func(*Opera) (any, error)) Thunk {
	return Thunk{kind: thunkBroker, broker: f}
}

// WithRoot wraps an action that receives the current root of the
// hierarchy the Opera belongs to.
func WithRoot(f func(Node) (any, error)) Thunk {
	return Thunk{kind: thunkRoot, root: f}
}

func (t Thunk) call(op *Opera, root Node, actionID string) (any, error) {
	switch t.kind {
	case thunkPlain:
		return t.plain()
	case thunkBroker:
		return t.broker(op)
	case thunkRoot:
		return t.root(root)
	default:
		return nil, &ConfigError{
			Code:     ErrCodeBadThunk,
			Message:  "action registered without a call shape",
			ActionID: actionID,
		}
	}
}
