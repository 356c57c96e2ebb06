package datasource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/infrastructure/messaging/kafka"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	objstore "github.com/haebom/tariff/internal/infrastructure/storage/minio"
	"github.com/haebom/tariff/pkg/errors"
)

const sectionsCSV = `section,name
I,live animals
II,vegetable products
`

const entriesCSV = `section,hscode,description,parent,level
I,01,Animals; live,TOTAL,2
I,0101,Horses; live,01,4
II,06,Trees; live,TOTAL,2
II,0601,Bulbs and tubers,06,4
`

const policyJSON = `{
  "china": {"label": "China", "april_11_exemption": {"yes": "No Tariffs", "no": "145% Tariff"}},
  "other": {"label": "All Other Regions", "base_tariff_rate": "10% Tariff"}
}`

type fixture struct {
	dir   string
	paths Paths
}

func writeFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		Policy:   filepath.Join(dir, "policy.json"),
		Sections: filepath.Join(dir, "sections.csv"),
		Entries:  filepath.Join(dir, "entries.csv"),
	}
	require.NoError(t, os.WriteFile(p.Policy, []byte(policyJSON), 0o644))
	require.NoError(t, os.WriteFile(p.Sections, []byte(sectionsCSV), 0o644))
	require.NoError(t, os.WriteFile(p.Entries, []byte(entriesCSV), 0o644))
	return fixture{dir: dir, paths: p}
}

type recordingListener struct {
	mu       sync.Mutex
	payloads []kafka.DatasetReloadedPayload
}

func (r *recordingListener) DatasetReloaded(_ context.Context, p kafka.DatasetReloadedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestLoad_Files(t *testing.T) {
	fx := writeFixture(t)
	snap, err := Load(context.Background(), FileSource{}, fx.paths, "Goods From")
	require.NoError(t, err)

	assert.Equal(t, "Goods From", snap.Tree.Root().Label)
	_, ok := snap.Tree.Node("china/april_11_exemption/no")
	assert.True(t, ok)
	assert.Equal(t, 4, snap.Reference.Len())
	assert.Equal(t, KindFile, snap.Source)
}

func TestLoad_DefaultPolicyWhenPathEmpty(t *testing.T) {
	fx := writeFixture(t)
	fx.paths.Policy = ""
	snap, err := Load(context.Background(), FileSource{}, fx.paths, "")
	require.NoError(t, err)
	_, ok := snap.Tree.Node("china")
	assert.True(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	fx := writeFixture(t)

	missing := fx.paths
	missing.Entries = filepath.Join(fx.dir, "nope.csv")
	_, err := Load(context.Background(), FileSource{}, missing, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))

	require.NoError(t, os.WriteFile(fx.paths.Policy, []byte(`{"china": `), 0o644))
	_, err = Load(context.Background(), FileSource{}, fx.paths, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodePolicyLoad))

	noSections := fx.paths
	noSections.Sections = ""
	_, err = Load(context.Background(), FileSource{}, noSections, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferenceLoad))
}

type fakeOpener map[string]string

func (f fakeOpener) Open(_ context.Context, key string) (io.ReadCloser, objstore.ObjectInfo, error) {
	body, ok := f[key]
	if !ok {
		return nil, objstore.ObjectInfo{}, objstore.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewBufferString(body)), objstore.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}

func TestObjectSource(t *testing.T) {
	src := NewObjectSource(fakeOpener{
		"datasets/policy.json":  policyJSON,
		"datasets/sections.csv": sectionsCSV,
		"datasets/entries.csv":  entriesCSV,
	})
	paths := Paths{Policy: "datasets/policy.json", Sections: "datasets/sections.csv", Entries: "datasets/entries.csv"}

	snap, err := Load(context.Background(), src, paths, "")
	require.NoError(t, err)
	assert.Equal(t, KindObject, snap.Source)
	assert.Len(t, snap.Reference.Sections(), 2)

	paths.Entries = "datasets/missing.csv"
	_, err = Load(context.Background(), src, paths, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))
}

func TestManager_ReloadKeepsPreviousOnFailure(t *testing.T) {
	fx := writeFixture(t)
	listener := &recordingListener{}
	m := NewManager(FileSource{}, fx.paths, ManagerOptions{Listener: listener}, logging.NewNopLogger())

	assert.False(t, m.Ready())
	_, err := m.Tree()
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))

	first, err := m.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Version)
	assert.True(t, m.Ready())
	require.Equal(t, 1, listener.count())
	assert.Equal(t, 4, listener.payloads[0].Entries)

	require.NoError(t, os.WriteFile(fx.paths.Sections, []byte("bogus\n"), 0o644))
	_, err = m.Reload(context.Background(), fx.paths.Sections)
	require.Error(t, err)
	assert.True(t, errors.IsLoadError(err))
	assert.Same(t, first, m.Current())
	assert.Equal(t, 1, listener.count())

	require.NoError(t, os.WriteFile(fx.paths.Sections, []byte(sectionsCSV), 0o644))
	second, err := m.Reload(context.Background(), fx.paths.Sections)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Version)
	assert.Equal(t, []string{fx.paths.Sections}, listener.payloads[1].ChangedFiles)
}

func TestManager_ConcurrentReaders(t *testing.T) {
	fx := writeFixture(t)
	m := NewManager(FileSource{}, fx.paths, ManagerOptions{}, logging.NewNopLogger())
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := m.Current()
				assert.NotNil(t, s.Tree)
				assert.NotNil(t, s.Reference)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := m.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, uint64(6), m.Current().Version)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	fx := writeFixture(t)

	var mu sync.Mutex
	var calls [][]string
	w, err := NewWatcher([]string{fx.paths.Sections, fx.paths.Entries, ""}, 50*time.Millisecond,
		func(_ context.Context, changed []string) {
			mu.Lock()
			calls = append(calls, changed)
			mu.Unlock()
		}, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(fx.paths.Sections, []byte(sectionsCSV), 0o644))
	}
	require.NoError(t, os.WriteFile(fx.paths.Entries, []byte(entriesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "unrelated.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	got := calls[0]
	mu.Unlock()
	sections, _ := filepath.Abs(fx.paths.Sections)
	entries, _ := filepath.Abs(fx.paths.Entries)
	assert.ElementsMatch(t, []string{sections, entries}, got)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestManager_WatchSkipsObjectSource(t *testing.T) {
	m := NewManager(NewObjectSource(fakeOpener{}), Paths{}, ManagerOptions{}, logging.NewNopLogger())
	assert.NoError(t, m.Watch(context.Background(), time.Millisecond))
}
