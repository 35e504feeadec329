package poller

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
)

// fakeSource is an in-memory directory. File contents equal their names.
type fakeSource struct {
	mu        sync.Mutex
	name      string
	entries   []model.Entry
	listErr   error
	openErr   map[string]error
	deleteErr map[string]error
	opened    []string
	deleted   []string
	closed    bool

	// listDelay is spent before each entry is yielded.
	listDelay time.Duration
	lists     int
	streams   int
}

func newFakeSource(entries ...model.Entry) *fakeSource {
	return &fakeSource{
		name:      "fake",
		entries:   entries,
		openErr:   make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) List(ctx context.Context, dir string) iter.Seq2[model.Entry, error] {
	return func(yield func(model.Entry, error) bool) {
		f.mu.Lock()
		f.lists++
		entries := slices.Clone(f.entries)
		listErr := f.listErr
		delay := f.listDelay
		f.mu.Unlock()

		for _, e := range entries {
			if delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(delay):
				}
			}
			if err := ctx.Err(); err != nil {
				yield(model.Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if listErr != nil {
			yield(model.Entry{}, listErr)
		}
	}
}

func (f *fakeSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, name)
	if err := f.openErr[name]; err != nil {
		return nil, err
	}
	if !f.has(name) {
		return nil, source.ErrNotFound
	}
	f.streams++
	return &fakeStream{Reader: strings.NewReader(name), src: f}, nil
}

// fakeStream reports its Close back to the source.
type fakeStream struct {
	io.Reader
	src    *fakeSource
	closed bool
}

func (s *fakeStream) Close() error {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.src.streams--
	}
	return nil
}

func (f *fakeSource) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[name]; err != nil {
		return err
	}
	f.entries = slices.DeleteFunc(f.entries, func(e model.Entry) bool { return e.Name == name })
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeSource) has(name string) bool {
	return slices.ContainsFunc(f.entries, func(e model.Entry) bool { return e.Name == name })
}

func (f *fakeSource) Has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.has(name)
}

func (f *fakeSource) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleted)
}

// OpenStreams returns how many opened streams have not been closed.
func (f *fakeSource) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams
}

func (f *fakeSource) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeSource) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.opened)
}

// fakeSink records the contents of every stream it accepts.
type fakeSink struct {
	mu       sync.Mutex
	name     string
	startErr error
	started  bool
	stopped  bool
	received []string
	closed   int

	// ingest, when set, decides the outcome for a stream's contents.
	ingest func(ctx context.Context, body string) error
}

func newFakeSink() *fakeSink {
	return &fakeSink{name: "fake"}
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeSink) Ingest(ctx context.Context, r io.ReadCloser, dest model.Destination) error {
	defer func() {
		_ = r.Close()
		s.mu.Lock()
		s.closed++
		s.mu.Unlock()
	}()

	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	body := string(b)

	if s.ingest != nil {
		if err := s.ingest(ctx, body); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, body)
	return nil
}

func (s *fakeSink) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.received)
}

func (s *fakeSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// failOn returns an ingest hook failing for the listed contents.
func failOn(names ...string) func(context.Context, string) error {
	return func(ctx context.Context, body string) error {
		if slices.Contains(names, body) {
			return errors.New("sink unavailable")
		}
		return nil
	}
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func file(name string, createdAt time.Time) model.Entry {
	return model.Entry{Name: name, CreatedAt: createdAt, Size: int64(len(name))}
}

func dir(name string) model.Entry {
	return model.Entry{Name: name, IsDir: true}
}
