package jsonstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "store.json"))
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Initialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	store := New(path)

	if store.IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "store.json"))

	if _, err := store.Get(1); err != domain.ErrNotInitialized {
		t.Errorf("Get() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_NextID(t *testing.T) {
	store := newTestStore(t)

	for want := 1; want <= 3; want++ {
		got, err := store.NextID()
		if err != nil {
			t.Fatalf("NextID() error = %v", err)
		}
		if got != want {
			t.Errorf("NextID() = %d, want %d", got, want)
		}
	}
}

func TestStore_NextID_Concurrent(t *testing.T) {
	store := newTestStore(t)

	const n = 20
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.NextID()
			if err != nil {
				t.Errorf("NextID() error = %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	task := &domain.Task{
		ID:              1,
		ProjectID:       "web",
		Title:           "Add login",
		Status:          domain.StatusInProgress,
		Mode:            domain.ModeDevelopment,
		WorktreeEnabled: true,
		Created:         now,
		Workspace:       &domain.WorkspaceRef{Branch: "flow-1", Path: "/tmp/wt/1", Created: now},
		Stages: []domain.StageResult{
			{Created: now, From: domain.StatusBacklog, Status: domain.StatusAnalysis, Actor: "user"},
		},
	}
	if err := store.Save(task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if got.ID != 1 || got.Title != "Add login" || got.Status != domain.StatusInProgress {
		t.Errorf("Get() = %+v", got)
	}
	if got.Workspace == nil || got.Workspace.Branch != "flow-1" {
		t.Errorf("Workspace = %+v, want branch flow-1", got.Workspace)
	}
	if len(got.Stages) != 1 || got.Stages[0].Status != domain.StatusAnalysis {
		t.Errorf("Stages = %+v", got.Stages)
	}
	if !got.Created.Equal(now) {
		t.Errorf("Created = %v, want %v", got.Created, now)
	}

	missing, err := store.Get(99)
	if err != nil {
		t.Fatalf("Get(99) error = %v", err)
	}
	if missing != nil {
		t.Errorf("Get(99) = %+v, want nil", missing)
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	tasks := []*domain.Task{
		{ID: 3, ProjectID: "web", Status: domain.StatusBacklog},
		{ID: 1, ProjectID: "web", Status: domain.StatusTesting},
		{ID: 2, ProjectID: "api", Status: domain.StatusTesting},
	}
	for _, task := range tasks {
		if err := store.Save(task); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []int
	}{
		{"all", domain.TaskFilter{}, []int{1, 2, 3}},
		{"by project", domain.TaskFilter{ProjectID: "web"}, []int{1, 3}},
		{"by status", domain.TaskFilter{Status: domain.StatusTesting}, []int{1, 2}},
		{"both", domain.TaskFilter{ProjectID: "api", Status: domain.StatusBacklog}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d tasks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("List()[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_Projects(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveProject(domain.NewDefaultProjectSettings("web", "/src/web")); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if err := store.SaveProject(&domain.ProjectSettings{ID: "api", Dir: "/src/api", Mode: domain.ModeSimple}); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	got, err := store.GetProject("web")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got == nil || got.ID != "web" || got.Mode != domain.ModeDevelopment || !got.WorktreeEnabled {
		t.Errorf("GetProject() = %+v", got)
	}

	list, err := store.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "api" || list[1].ID != "web" {
		t.Errorf("ListProjects() = %+v", list)
	}
}

func TestStore_Hooks(t *testing.T) {
	store := newTestStore(t)

	def := &domain.HookDefinition{
		Name:   "lint",
		Event:  domain.HookPostTool,
		Origin: domain.OriginCustom,
		Action: domain.HookAction{Command: "make lint", Timeout: 30 * time.Second},
	}
	if err := store.SaveHook(def); err != nil {
		t.Fatalf("SaveHook() error = %v", err)
	}

	got, err := store.GetHook("lint")
	if err != nil {
		t.Fatalf("GetHook() error = %v", err)
	}
	if got == nil || got.Action.Timeout != 30*time.Second {
		t.Errorf("GetHook() = %+v", got)
	}

	if err := store.DeleteHook("lint"); err != nil {
		t.Fatalf("DeleteHook() error = %v", err)
	}
	list, err := store.ListHooks()
	if err != nil {
		t.Fatalf("ListHooks() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListHooks() = %d hooks, want 0", len(list))
	}
}

func TestStore_Bindings(t *testing.T) {
	store := newTestStore(t)

	first, created, err := store.AddBinding("web", "zeta")
	if err != nil || !created {
		t.Fatalf("AddBinding() = %v, %v", created, err)
	}
	if _, _, err := store.AddBinding("web", "alpha"); err != nil {
		t.Fatalf("AddBinding() error = %v", err)
	}
	if _, _, err := store.AddBinding("api", "alpha"); err != nil {
		t.Fatalf("AddBinding() error = %v", err)
	}

	again, created, err := store.AddBinding("web", "zeta")
	if err != nil {
		t.Fatalf("AddBinding() error = %v", err)
	}
	if created || again.Seq != first.Seq {
		t.Errorf("re-enabling must be a no-op: created=%v seq=%d want %d", created, again.Seq, first.Seq)
	}

	bindings, err := store.ListBindings("web")
	if err != nil {
		t.Fatalf("ListBindings() error = %v", err)
	}
	if len(bindings) != 2 || bindings[0].HookName != "zeta" || bindings[1].HookName != "alpha" {
		t.Errorf("ListBindings() = %+v, want enable order", bindings)
	}

	removed, err := store.RemoveBinding("web", "zeta")
	if err != nil || !removed {
		t.Fatalf("RemoveBinding() = %v, %v", removed, err)
	}
	removed, err = store.RemoveBinding("web", "zeta")
	if err != nil || removed {
		t.Errorf("second RemoveBinding() = %v, %v", removed, err)
	}

	// Sequence keeps increasing after removals
	readded, _, err := store.AddBinding("web", "zeta")
	if err != nil {
		t.Fatalf("AddBinding() error = %v", err)
	}
	if readded.Seq <= first.Seq {
		t.Errorf("Seq = %d, want > %d", readded.Seq, first.Seq)
	}
}

func TestStore_BindingCreatedUsesClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	store := New(filepath.Join(t.TempDir(), "store.json")).WithClock(&testutil.MockClock{NowTime: at})
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	binding, _, err := store.AddBinding("web", "fmt")
	if err != nil {
		t.Fatalf("AddBinding() error = %v", err)
	}
	if !binding.Created.Equal(at) {
		t.Errorf("Created = %v, want %v", binding.Created, at)
	}

	bindings, err := store.ListBindings("web")
	if err != nil || len(bindings) != 1 {
		t.Fatalf("ListBindings() = %v, %v", bindings, err)
	}
	if !bindings[0].Created.Equal(at) {
		t.Errorf("stored Created = %v, want %v", bindings[0].Created, at)
	}
}

func TestSortBindings(t *testing.T) {
	bindings := []domain.HookBinding{
		{HookName: "b", Seq: 2},
		{HookName: "c", Seq: 1},
		{HookName: "a", Seq: 2},
	}
	SortBindings(bindings)

	want := []string{"c", "a", "b"}
	for i, name := range want {
		if bindings[i].HookName != name {
			t.Errorf("bindings[%d] = %s, want %s", i, bindings[i].HookName, name)
		}
	}
}

func TestStore_Sessions(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Truncate(time.Second)
	later := &domain.Session{ID: "b", Name: "flow-2", TaskID: 2, Status: domain.SessionActive, Created: base.Add(time.Minute)}
	earlier := &domain.Session{ID: "a", Name: "flow-adhoc-a", Status: domain.SessionInitializing, Created: base}
	for _, s := range []*domain.Session{later, earlier} {
		if err := store.SaveSession(s); err != nil {
			t.Fatalf("SaveSession() error = %v", err)
		}
	}

	got, err := store.GetSession("b")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got == nil || got.TaskID != 2 || got.ID != "b" {
		t.Errorf("GetSession() = %+v", got)
	}

	list, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("ListSessions() order = %+v", list)
	}
}
