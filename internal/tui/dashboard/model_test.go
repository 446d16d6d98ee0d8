package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

type call struct {
	op    string
	name  string
	force bool
}

type fakeService struct {
	mu        sync.Mutex
	plugins   []plugin.Plugin
	calls     []call
	launchErr error
	scans     int
}

func (s *fakeService) Plugins() []plugin.Plugin { return s.plugins }

func (s *fakeService) Search(query string) []plugin.Plugin {
	var out []plugin.Plugin
	for _, p := range s.plugins {
		if strings.Contains(p.Name, query) {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeService) Scan(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	return nil
}

func (s *fakeService) Launch(_ context.Context, name string, opts ...orchestrator.LaunchOption) error {
	s.record(call{op: "launch", name: name, force: len(opts) > 0})
	return s.launchErr
}

func (s *fakeService) ExecuteCommand(_ context.Context, name, text string) error {
	s.record(call{op: "exec", name: name + ":" + text})
	return nil
}

func (s *fakeService) OpenPluginDir(_ context.Context, name string) error {
	s.record(call{op: "open", name: name})
	return nil
}

func (s *fakeService) OpenManual(_ context.Context, path string) error {
	s.record(call{op: "manual", name: path})
	return nil
}

func (s *fakeService) record(c call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func samplePlugins() []plugin.Plugin {
	return []plugin.Plugin{
		{
			Name:        "alpha",
			Version:     "1.0.0",
			Description: "First plugin",
			Path:        "/plugins/alpha",
			Executable:  true,
			Tags:        []string{"tools"},
			Commands:    []plugin.Snippet{{Name: "hello", Command: "echo hello", Description: "Say hello"}},
			Manuals:     []string{"/plugins/alpha/manuals/guide.pdf"},
		},
		{Name: "beta", Version: "0.2.0", Description: "Second plugin", Path: "/plugins/beta", Executable: true},
		{Name: "gamma", Version: "3.1.0", Description: "No entry file", Path: "/plugins/gamma"},
	}
}

func newTestModel(t *testing.T) (Model, *fakeService) {
	t.Helper()
	svc := &fakeService{plugins: samplePlugins()}
	return NewModel(context.Background(), svc), svc
}

func TestNewModelLoadsPlugins(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Len(t, m.plugins, 3)
	assert.Equal(t, ViewList, m.GetViewMode())
	assert.NotNil(t, m.Init())

	p, ok := m.GetSelectedPlugin()
	require.True(t, ok)
	assert.Equal(t, "alpha", p.Name)
}

func TestCursorWraps(t *testing.T) {
	m, _ := newTestModel(t)

	m.MoveCursorUp()
	assert.Equal(t, 2, m.cursor)
	m.MoveCursorDown()
	assert.Equal(t, 0, m.cursor)
}

func TestCursorOnEmptyList(t *testing.T) {
	m := NewModel(context.Background(), &fakeService{})
	m.MoveCursorDown()
	m.MoveCursorUp()
	assert.Equal(t, 0, m.cursor)
	_, ok := m.GetSelectedPlugin()
	assert.False(t, ok)
}

func TestSetPluginsKeepsSelection(t *testing.T) {
	m, _ := newTestModel(t)
	m.MoveCursorDown()

	plugins := samplePlugins()
	m.setPlugins([]plugin.Plugin{plugins[2], plugins[1]})

	p, ok := m.GetSelectedPlugin()
	require.True(t, ok)
	assert.Equal(t, "beta", p.Name)
}

func TestDetailItemsListSnippetsThenManuals(t *testing.T) {
	items := detailItems(samplePlugins()[0])

	require.Len(t, items, 2)
	require.NotNil(t, items[0].snippet)
	assert.Equal(t, "hello", items[0].label)
	assert.Equal(t, "guide.pdf", items[1].label)
	assert.Equal(t, "/plugins/alpha/manuals/guide.pdf", items[1].manual)
}

func TestSetErrorDescribesTypedErrors(t *testing.T) {
	m, _ := newTestModel(t)
	m.setError(errors.New("boom"))

	assert.True(t, m.showError)
	assert.Contains(t, m.errorMsg, "boom")
}
