package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/lumikids/radiogen-backend/internal/platform/gcp"
	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// memStore is an in-memory ObjectStore for lock/publish/pipeline tests. Put
// with IfAbsent is atomic under the mutex, modelling the conditional-create
// the real backend offers.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]gcp.PutOptions
	// failPut/failGet/failDelete force storage errors for degradation tests.
	failPut    bool
	failGet    bool
	failDelete bool
	putCount   map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		objects:  map[string][]byte{},
		meta:     map[string]gcp.PutOptions{},
		putCount: map[string]int{},
	}
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, opts gcp.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return fmt.Errorf("simulated put failure")
	}
	if opts.IfAbsent {
		if _, ok := m.objects[key]; ok {
			return gcp.ErrObjectExists
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.meta[key] = opts
	m.putCount[key]++
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, fmt.Errorf("simulated get failure")
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, gcp.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return fmt.Errorf("simulated delete failure")
	}
	delete(m.objects, key)
	delete(m.meta, key)
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStore) contents(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key]
}

func (m *memStore) options(key string) gcp.PutOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[key]
}

// fakeMixer records requested operations and their ordering; outputs are
// plain marker files so the pipeline sees real paths.
type fakeMixer struct {
	mu  sync.Mutex
	ops []string
	// failOn makes the named op return a MixError.
	failOn string
}

func (f *fakeMixer) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeMixer) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeMixer) AssertReady(ctx context.Context) error { return nil }

func (f *fakeMixer) SynthesizeSilence(ctx context.Context, seconds float64, outPath string) (string, error) {
	f.record(fmt.Sprintf("silence(%.0fs)", seconds))
	if f.failOn == "silence" {
		return "", fmt.Errorf("simulated silence failure")
	}
	if err := os.WriteFile(outPath, []byte("silence"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeMixer) ConcatWithBackground(ctx context.Context, answerPaths []string, backgroundPath string, outPath string) (string, error) {
	f.record(fmt.Sprintf("concat(%d answers)", len(answerPaths)))
	if f.failOn == "concat" {
		return "", fmt.Errorf("simulated concat failure")
	}
	var buf bytes.Buffer
	for _, p := range answerPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		buf.Write(data)
		buf.WriteByte('|')
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeMixer) AssembleFinal(ctx context.Context, segmentPaths []string, outPath string) (string, error) {
	f.record(fmt.Sprintf("assemble(%d segments)", len(segmentPaths)))
	if f.failOn == "assemble" {
		return "", fmt.Errorf("simulated assemble failure")
	}
	var buf bytes.Buffer
	for _, p := range segmentPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
