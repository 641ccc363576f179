package reportpdf

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf/render"
)

var testNow = time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		SrcBucket:        "src",
		DestBucket:       "dst",
		BasePrefix:       "uptime",
		DestBasePrefix:   "uptime",
		SrcFileName:      "uptime-report.html",
		OutHTMLName:      "uptime-report.html",
		OutPDFName:       "uptime-report.pdf",
		NestedDepth:      1,
		TieBreak:         "first",
		PDFFormat:        "A4",
		WaitMode:         "load",
		PageTimeoutMS:    1000,
		PrintBackground:  true,
		Renderers:        []string{"stub"},
	}
}

func newTestService(cfg *config.Config, store storage.ObjectStore, r render.Renderer) *Service {
	svc := NewService(cfg, store, render.NewChain(r))
	svc.now = func() time.Time { return testNow }
	return svc
}

type memObject struct {
	data []byte
	mod  time.Time
	opts storage.PutOptions
}

// memStore is an in-memory ObjectStore that pages List results
type memStore struct {
	mu       sync.Mutex
	buckets  map[string]map[string]*memObject
	pageSize int
	pages    int
	listErr  error
	getErr   error
	putErr   error
}

func newMemStore(buckets ...string) *memStore {
	m := &memStore{buckets: make(map[string]map[string]*memObject), pageSize: 1000}
	for _, b := range buckets {
		m.buckets[b] = make(map[string]*memObject)
	}
	return m
}

func (m *memStore) add(bucket, key, data string, mod time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket][key] = &memObject{data: []byte(data), mod: mod}
}

func (m *memStore) object(bucket, key string) *memObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buckets[bucket][key]
}

func (m *memStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, &storage.BucketNotFoundError{Bucket: bucket}
	}
	obj, ok := objects[key]
	if !ok {
		return nil, &storage.ObjectNotFoundError{Bucket: bucket, Key: key}
	}
	return obj.data, nil
}

func (m *memStore) Put(ctx context.Context, bucket, key string, data []byte, opts storage.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		return &storage.BucketNotFoundError{Bucket: bucket}
	}
	objects[key] = &memObject{data: append([]byte(nil), data...), mod: testNow, opts: opts}
	return nil
}

func (m *memStore) List(ctx context.Context, bucket, prefix string, fn func(page []models.ObjectInfo) error) error {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return m.listErr
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		m.mu.Unlock()
		return &storage.BucketNotFoundError{Bucket: bucket}
	}
	var all []models.ObjectInfo
	for k, o := range objects {
		if strings.HasPrefix(k, prefix) {
			all = append(all, models.ObjectInfo{Key: k, LastModified: o.mod, Size: int64(len(o.data))})
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	for i := 0; i < len(all); i += m.pageSize {
		end := i + m.pageSize
		if end > len(all) {
			end = len(all)
		}
		m.mu.Lock()
		m.pages++
		m.mu.Unlock()
		if err := fn(all[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

type stubRenderer struct {
	mu       sync.Mutex
	pdf      []byte
	err      error
	failOn   string // fail when the document contains this text
	panicMsg string
	calls    int
	lastOpts render.Options
}

func (s *stubRenderer) Name() string { return "stub" }

func (s *stubRenderer) Render(ctx context.Context, html string, opts render.Options) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastOpts = opts
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.failOn != "" && strings.Contains(html, s.failOn) {
		return nil, context.DeadlineExceeded
	}
	return s.pdf, nil
}

type stubLedger struct {
	mu   sync.Mutex
	runs []models.RunRecord
	err  error
}

func (l *stubLedger) RecordRun(ctx context.Context, run *models.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, *run)
	return l.err
}

type stubNotifier struct {
	mu   sync.Mutex
	runs []models.RunRecord
}

func (n *stubNotifier) Notify(ctx context.Context, run models.RunRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run)
	return nil
}
