package loaders

import (
	"io"
	"slices"
	"sync"

	"github.com/aweris/stacks"
)

// Live holds a value that is replaced whenever its file changes. It is safe
// for concurrent use.
type Live[T any] struct {
	value   T
	version uint64
	subs    []func(T)

	mu sync.RWMutex
}

// Get returns the current value.
func (l *Live[T]) Get() T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

// Version starts at 1 and grows by one on each successful reload.
func (l *Live[T]) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// OnChange registers fn to be called with each new value. Callbacks run on
// the goroutine that delivers the change.
func (l *Live[T]) OnChange(fn func(T)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *Live[T]) set(v T) {
	l.mu.Lock()
	l.value = v
	l.version++
	subs := slices.Clone(l.subs)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

type liveLoader[T any] struct {
	dec Decoder[T]
}

// NewLive returns a reloadable loader producing *Live[T] values decoded by
// dec. A reload that fails to decode keeps the previous value.
func NewLive[T any](dec Decoder[T]) stacks.ReloadableLoader[*Live[T]] {
	return liveLoader[T]{dec: dec}
}

func (ll liveLoader[T]) Load(r io.Reader, _ *stacks.Library) (*Live[T], error) {
	v, err := ll.decode(r)
	if err != nil {
		return nil, err
	}
	live := &Live[T]{}
	live.set(v)
	return live, nil
}

func (ll liveLoader[T]) Update(item *Live[T], r io.Reader) error {
	v, err := ll.decode(r)
	if err != nil {
		return err
	}
	item.set(v)
	return nil
}

func (ll liveLoader[T]) decode(r io.Reader) (T, error) {
	var zero T
	data, err := io.ReadAll(r)
	if err != nil {
		return zero, err
	}
	return ll.dec(data)
}

// LiveText loads a file as text that follows changes on disk.
func LiveText() stacks.ReloadableLoader[*Live[string]] { return NewLive[string](decodeString) }

// LiveJSON is the reloadable form of JSON.
func LiveJSON[T any]() stacks.ReloadableLoader[*Live[T]] { return NewLive[T](decodeJSON[T]) }

// LiveYAML is the reloadable form of YAML.
func LiveYAML[T any]() stacks.ReloadableLoader[*Live[T]] { return NewLive[T](decodeYAML[T]) }

// LiveTOML is the reloadable form of TOML.
func LiveTOML[T any]() stacks.ReloadableLoader[*Live[T]] { return NewLive[T](decodeTOML[T]) }
