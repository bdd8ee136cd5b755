package loaders_test

import (
	"bytes"
	"io"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aweris/stacks"
	"github.com/aweris/stacks/loaders"
)

type config struct {
	Name string   `json:"name" yaml:"name" toml:"name"`
	Port int      `json:"port" yaml:"port" toml:"port"`
	Tags []string `json:"tags" yaml:"tags" toml:"tags"`
}

// fileStore is a flat in-memory store that can fire change callbacks.
type fileStore struct {
	mu       sync.Mutex
	files    map[string]string
	watchers map[string][]func(io.Reader) error
}

func newFileStore(files map[string]string) *fileStore {
	return &fileStore{files: files, watchers: make(map[string][]func(io.Reader) error)}
}

func (s *fileStore) FileExists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

func (s *fileStore) DirExists(path string) bool { return path == "" }

func (s *fileStore) Open(path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(strings.NewReader(s.files[path])), nil
}

func (s *fileStore) Files(dir string) iter.Seq[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	if dir == "" {
		for name := range s.files {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Values(names)
}

func (s *fileStore) Dirs(string) iter.Seq[string] { return slices.Values([]string(nil)) }

func (s *fileStore) Watch(path string, fn func(io.Reader) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[path] = append(s.watchers[path], fn)
	return nil
}

func (s *fileStore) change(path, content string) []error {
	s.mu.Lock()
	s.files[path] = content
	fns := slices.Clone(s.watchers[path])
	s.mu.Unlock()

	var errs []error
	for _, fn := range fns {
		if err := fn(strings.NewReader(content)); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *fileStore) Close() error { return nil }

func newLibrary(t *testing.T, s stacks.Store) *stacks.Library {
	t.Helper()
	lib, err := stacks.New(stacks.WithStores(s))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestDecodeFormats(t *testing.T) {
	want := config{Name: "api", Port: 8080, Tags: []string{"a", "b"}}
	s := newFileStore(map[string]string{
		"app.json": `{"name":"api","port":8080,"tags":["a","b"]}`,
		"app.yaml": "name: api\nport: 8080\ntags: [a, b]\n",
		"app.toml": "name = \"api\"\nport = 8080\ntags = [\"a\", \"b\"]\n",
	})

	tests := []struct {
		path   string
		loader stacks.Loader[config]
	}{
		{"app.json", loaders.JSON[config]()},
		{"app.yaml", loaders.YAML[config]()},
		{"app.toml", loaders.TOML[config]()},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			lib := newLibrary(t, s)
			if err := stacks.RegisterLoader(lib, tt.loader); err != nil {
				t.Fatalf("RegisterLoader() error = %v", err)
			}
			got, err := stacks.Load[config](lib, tt.path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got.Name != want.Name || got.Port != want.Port || !slices.Equal(got.Tags, want.Tags) {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	s := newFileStore(map[string]string{"bad": "{{{ not valid"})

	tests := map[string]stacks.Loader[config]{
		"json": loaders.JSON[config](),
		"yaml": loaders.YAML[config](),
		"toml": loaders.TOML[config](),
	}
	for name, ld := range tests {
		t.Run(name, func(t *testing.T) {
			lib := newLibrary(t, s)
			if err := stacks.RegisterLoader(lib, ld); err != nil {
				t.Fatalf("RegisterLoader() error = %v", err)
			}
			if _, err := stacks.Load[config](lib, "bad"); err == nil {
				t.Error("Load() error = nil, want decode error")
			}
			if got := lib.Stats().Resources; got != 0 {
				t.Errorf("Stats().Resources = %d after failed load, want 0", got)
			}
		})
	}
}

func TestBytesAndString(t *testing.T) {
	s := newFileStore(map[string]string{"a.bin": "\x00\x01raw"})
	lib := newLibrary(t, s)

	if err := stacks.RegisterLoader(lib, loaders.Bytes()); err != nil {
		t.Fatalf("RegisterLoader(Bytes) error = %v", err)
	}
	if err := stacks.RegisterLoader(lib, loaders.String()); err != nil {
		t.Fatalf("RegisterLoader(String) error = %v", err)
	}

	b, err := stacks.Load[[]byte](lib, "a.bin")
	if err != nil {
		t.Fatalf("Load[[]byte]() error = %v", err)
	}
	if !bytes.Equal(b, []byte("\x00\x01raw")) {
		t.Errorf("Load[[]byte]() = %q", b)
	}

	str, err := stacks.Load[string](lib, "a.bin")
	if err != nil {
		t.Fatalf("Load[string]() error = %v", err)
	}
	if str != "\x00\x01raw" {
		t.Errorf("Load[string]() = %q", str)
	}
}

func TestCustomDecoder(t *testing.T) {
	type lines []string

	s := newFileStore(map[string]string{"list.txt": "a\nb\nc"})
	lib := newLibrary(t, s)

	ld := loaders.Decode[lines](func(data []byte) (lines, error) {
		return strings.Split(string(data), "\n"), nil
	})
	if err := stacks.RegisterLoader(lib, ld); err != nil {
		t.Fatalf("RegisterLoader() error = %v", err)
	}

	got, err := stacks.Load[lines](lib, "list.txt")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !slices.Equal(got, lines{"a", "b", "c"}) {
		t.Errorf("Load() = %v", got)
	}
}

func TestLiveReload(t *testing.T) {
	s := newFileStore(map[string]string{"app.yaml": "name: api\nport: 80\n"})
	lib := newLibrary(t, s)

	if err := stacks.RegisterLoader[*loaders.Live[config]](lib, loaders.LiveYAML[config]()); err != nil {
		t.Fatalf("RegisterLoader() error = %v", err)
	}

	live, err := stacks.Load[*loaders.Live[config]](lib, "app.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if live.Version() != 1 || live.Get().Port != 80 {
		t.Fatalf("initial value = v%d %+v", live.Version(), live.Get())
	}

	var seen []int
	live.OnChange(func(c config) { seen = append(seen, c.Port) })

	if errs := s.change("app.yaml", "name: api\nport: 81\n"); len(errs) != 0 {
		t.Fatalf("change errors = %v", errs)
	}
	if live.Version() != 2 || live.Get().Port != 81 {
		t.Errorf("after change = v%d %+v, want v2 port 81", live.Version(), live.Get())
	}

	// A broken edit keeps the last good value.
	if errs := s.change("app.yaml", "port: [unterminated"); len(errs) != 1 {
		t.Errorf("change(broken) errors = %v, want one decode error", errs)
	}
	if live.Version() != 2 || live.Get().Port != 81 {
		t.Errorf("after broken change = v%d %+v, want previous value kept", live.Version(), live.Get())
	}

	again, err := stacks.Load[*loaders.Live[config]](lib, "app.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again != live {
		t.Error("Load() returned a new instance after reload")
	}
	if !slices.Equal(seen, []int{81}) {
		t.Errorf("OnChange saw %v, want [81]", seen)
	}
}

func TestLiveVariants(t *testing.T) {
	s := newFileStore(map[string]string{
		"a.txt":  "one",
		"a.json": `{"port": 1}`,
		"a.toml": "port = 1",
	})
	lib := newLibrary(t, s)

	if err := stacks.RegisterLoader[*loaders.Live[string]](lib, loaders.LiveText()); err != nil {
		t.Fatalf("RegisterLoader(LiveText) error = %v", err)
	}
	text, err := stacks.Load[*loaders.Live[string]](lib, "a.txt")
	if err != nil {
		t.Fatalf("Load(a.txt) error = %v", err)
	}
	s.change("a.txt", "two")
	if text.Get() != "two" {
		t.Errorf("LiveText after change = %q, want %q", text.Get(), "two")
	}

	type port struct {
		Port int `json:"port" toml:"port"`
	}
	if err := stacks.RegisterLoader[*loaders.Live[port]](lib, loaders.LiveJSON[port]()); err != nil {
		t.Fatalf("RegisterLoader(LiveJSON) error = %v", err)
	}
	j, err := stacks.Load[*loaders.Live[port]](lib, "a.json")
	if err != nil {
		t.Fatalf("Load(a.json) error = %v", err)
	}
	s.change("a.json", `{"port": 2}`)
	if j.Get().Port != 2 {
		t.Errorf("LiveJSON after change = %d, want 2", j.Get().Port)
	}

	// One loader per type, so TOML gets its own library.
	lib2 := newLibrary(t, s)
	if err := stacks.RegisterLoader[*loaders.Live[port]](lib2, loaders.LiveTOML[port]()); err != nil {
		t.Fatalf("RegisterLoader(LiveTOML) error = %v", err)
	}
	tm, err := stacks.Load[*loaders.Live[port]](lib2, "a.toml")
	if err != nil {
		t.Fatalf("Load(a.toml) error = %v", err)
	}
	s.change("a.toml", "port = 3")
	if tm.Get().Port != 3 {
		t.Errorf("LiveTOML after change = %d, want 3", tm.Get().Port)
	}
}

func TestLiveOnChangeSubscribers(t *testing.T) {
	s := newFileStore(map[string]string{"a.txt": "one"})
	lib := newLibrary(t, s)

	if err := stacks.RegisterLoader[*loaders.Live[string]](lib, loaders.LiveText()); err != nil {
		t.Fatalf("RegisterLoader() error = %v", err)
	}
	live, err := stacks.Load[*loaders.Live[string]](lib, "a.txt")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var first, second, late []string
	live.OnChange(func(v string) {
		first = append(first, v)
		// Subscribers added during delivery see the next change only.
		live.OnChange(func(v string) { late = append(late, v) })
	})
	live.OnChange(func(v string) { second = append(second, v) })
	live.OnChange(nil)

	s.change("a.txt", "two")
	if !slices.Equal(first, []string{"two"}) || !slices.Equal(second, []string{"two"}) {
		t.Errorf("OnChange got %v and %v, want [two] for both", first, second)
	}
	if len(late) != 0 {
		t.Errorf("subscriber added during delivery got %v, want nothing", late)
	}

	s.change("a.txt", "three")
	if !slices.Equal(late, []string{"three"}) {
		t.Errorf("late subscriber got %v, want [three]", late)
	}
}
