package project_test

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"pipeline/internal/document"
	"pipeline/internal/project"
	"pipeline/internal/property"
	"pipeline/internal/testsupport"
)

func TestAvailableIDReusesGaps(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	if got := p.AvailableID(project.NamespaceConcept); got != 1 {
		t.Fatalf("AvailableID on empty project = %d, want 1", got)
	}
	var members []*project.Member
	for range 4 {
		members = append(members, mustConcept(t, p))
	}
	if got := p.AvailableID(project.NamespaceConcept); got != 5 {
		t.Fatalf("AvailableID = %d, want 5", got)
	}
	if err := p.DeleteMember(members[1]); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if got := p.AvailableID(project.NamespaceConcept); got != 2 {
		t.Fatalf("AvailableID after deleting id 2 = %d, want 2", got)
	}
	if got := mustConcept(t, p); got.ID() != 2 {
		t.Fatalf("new concept id = %d, want 2", got.ID())
	}
	if got := p.AvailableID(project.NamespaceAbstract); got != 1 {
		t.Fatalf("namespaces share ids: abstract AvailableID = %d", got)
	}
}

func TestAddMemberRejectsCollisionsAndBadInput(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	mustConcept(t, p, project.WithID(3))

	_, err := p.AddConcept(project.WithID(3))
	if !errors.Is(err, project.ErrIDCollision) || !errors.Is(err, project.ErrIntegrity) {
		t.Fatalf("expected ID collision, got %v", err)
	}
	if _, err := p.AddAbstractStep("camera"); !errors.Is(err, project.ErrInvalidStepType) {
		t.Fatalf("expected ErrInvalidStepType, got %v", err)
	}
	concept := mustConcept(t, p)
	if _, err := p.AddConcreteStep(concept); !errors.Is(err, project.ErrUserInput) {
		t.Fatalf("concrete step over a concept: got %v", err)
	}
	if _, err := p.AddAbstractStep(project.StepTask, project.WithParent(42)); !errors.Is(err, project.ErrMemberNotFound) {
		t.Fatalf("missing parent: got %v", err)
	}
	if len(p.AbstractSteps()) != 0 {
		t.Fatal("failed adds left members behind")
	}
}

func TestParentLoopIsRejected(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	root, err := p.AddAbstractStep(project.StepAsset)
	if err != nil {
		t.Fatal(err)
	}
	child, err := p.AddAbstractStep(project.StepAsset, project.WithParent(root.ID()))
	if err != nil {
		t.Fatal(err)
	}
	if err := root.SetParent(child.ID()); !errors.Is(err, project.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if root.ParentID() != 0 {
		t.Fatalf("root parent = %d, want 0", root.ParentID())
	}
	if children := root.Children(); len(children) != 1 || children[0] != child {
		t.Fatalf("Children() = %v", children)
	}
}

func TestDeleteMemberHonoursRuleAndLeavesDanglingLinks(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	sub := mustConcept(t, p, project.WithSuper(super))

	if err := super.SetRule("delete", false); err != nil {
		t.Fatal(err)
	}
	err := p.DeleteMember(super)
	if !errors.Is(err, project.ErrRuleDenied) || !errors.Is(err, project.ErrUserInput) {
		t.Fatalf("expected rule denial, got %v", err)
	}
	if _, err := p.Concept(super.ID()); err != nil {
		t.Fatalf("denied delete removed the member: %v", err)
	}

	if err := super.SetRule("delete", true); err != nil {
		t.Fatal(err)
	}
	if err := p.DeleteMember(super); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if _, err := p.Concept(super.ID()); !errors.Is(err, project.ErrMemberNotFound) {
		t.Fatalf("expected deleted member to be gone, got %v", err)
	}
	if sub.SuperMember() != nil {
		t.Fatal("dangling link still resolves")
	}
	if got := sub.Name(); got != "concept2" {
		t.Fatalf("dependant name = %q, want concept2", got)
	}
}

func TestSaveAndReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, backend, _ := testsupport.NewProject(t)
	super := mustConcept(t, p, project.WithName("hero"))
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}
	if _, err := super.CreateProperty(property.TypeInt, "fps", property.WithValue(24), property.WithMin(1), property.WithVisibility(property.Protected)); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super), project.WithAlias("villain"))
	if err := sub.SetProperty("color", "blue"); err != nil {
		t.Fatal(err)
	}
	if err := sub.AddCommand("linux", "publish", "publish.lua"); err != nil {
		t.Fatal(err)
	}
	want := map[string][]byte{}
	for _, m := range []*project.Member{super, sub} {
		raw, err := m.Serialize()
		if err != nil {
			t.Fatal(err)
		}
		want[m.Path()] = raw
	}

	if err := p.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.Edited() || len(p.DirtyMembers()) != 0 {
		t.Fatal("project still dirty after save")
	}

	reopened := testsupport.Reopen(t, backend, nil)
	for path, raw := range want {
		m, err := reopened.Member(path)
		if err != nil {
			t.Fatalf("Member(%s): %v", path, err)
		}
		got, err := m.Serialize()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(raw) {
			t.Fatalf("%s round trip:\n got %s\nwant %s", path, got, raw)
		}
	}
	sub2, _ := reopened.Concept(sub.ID())
	if sub2.Name() != "villain" {
		t.Fatalf("Name() = %q, want villain", sub2.Name())
	}
	if sub2.SuperMember() == nil || sub2.SuperMember().Name() != "hero" {
		t.Fatal("super link lost across reopen")
	}
	if got, _ := sub2.PropertyValue("fps"); got != 24 {
		t.Fatalf("fps = %v, want 24", got)
	}
	if !slices.Equal(reopened.PropertiesOrder(), p.PropertiesOrder()) {
		t.Fatalf("properties order = %v, want %v", reopened.PropertiesOrder(), p.PropertiesOrder())
	}
	if reopened.Edited() {
		t.Fatal("freshly opened project reports edits")
	}
}

func TestSaveFailureKeepsStateForRetry(t *testing.T) {
	ctx := context.Background()
	p, backend, capture := testsupport.NewProject(t)
	mustConcept(t, p)

	backend.FailWrites = errors.New("disk full")
	err := p.Save(ctx)
	if !errors.Is(err, project.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if project.KindOf(err) != project.KindPersistence {
		t.Fatalf("KindOf = %q", project.KindOf(err))
	}
	if !p.Edited() || len(p.DirtyMembers()) != 1 {
		t.Fatalf("failed save changed state: edited=%v dirty=%v", p.Edited(), p.DirtyMembers())
	}
	if backend.Writes() != 0 {
		t.Fatalf("Writes() = %d, want 0", backend.Writes())
	}
	if _, ok := capture.Find(slog.LevelError, "project save failed"); !ok {
		t.Fatal("expected the save failure to be logged at error level")
	}

	backend.FailWrites = nil
	if err := p.Save(ctx); err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if err := p.Save(ctx); err != nil {
		t.Fatalf("clean Save: %v", err)
	}
	if backend.Writes() != 1 {
		t.Fatalf("Writes() = %d, want 1 (clean save must not write)", backend.Writes())
	}
}

func TestCancelledSaveIsPersistenceError(t *testing.T) {
	p, backend, _ := testsupport.NewProject(t)
	mustConcept(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Save(ctx)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, project.ErrPersistence) {
		t.Fatalf("expected a cancelled persistence error, got %v", err)
	}
	if project.KindOf(err) != project.KindPersistence {
		t.Fatalf("KindOf = %q", project.KindOf(err))
	}
	if !p.Edited() || backend.Writes() != 0 {
		t.Fatalf("cancelled save changed state: edited=%v writes=%d", p.Edited(), backend.Writes())
	}
}

func TestSaveHooksSeeCommittedDocument(t *testing.T) {
	var events []project.SaveEvent
	hook := func(_ context.Context, event project.SaveEvent) error {
		events = append(events, event)
		return errors.New("hook offline")
	}
	p, _, capture := testsupport.NewProject(t, project.WithSaveHook(hook))
	m := mustConcept(t, p)

	if err := p.Save(context.Background()); err != nil {
		t.Fatalf("hook errors must not fail the save: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("hook ran %d times, want 1", len(events))
	}
	if !slices.Equal(events[0].Members, []string{m.Path()}) {
		t.Fatalf("event members = %v", events[0].Members)
	}
	tree, err := document.Parse(events[0].Document)
	if err != nil {
		t.Fatalf("event document: %v", err)
	}
	if !tree.Exists(m.Path()) {
		t.Fatal("event document is missing the saved member")
	}
	if _, ok := capture.Find(slog.LevelWarn, "save hook failed"); !ok {
		t.Fatal("expected the hook failure to be logged")
	}
}

func TestConcretePathIndex(t *testing.T) {
	ctx := context.Background()
	p, backend, _ := testsupport.NewProject(t)
	asset, err := p.AddAbstractStep(project.StepAsset)
	if err != nil {
		t.Fatal(err)
	}
	task, err := p.AddAbstractStep(project.StepTask)
	if err != nil {
		t.Fatal(err)
	}
	chair, err := p.AddConcreteStep(asset, project.WithAlias("chair"))
	if err != nil {
		t.Fatal(err)
	}
	model, err := p.AddConcreteStep(task, project.WithParent(chair.ID()), project.WithAlias("model"))
	if err != nil {
		t.Fatal(err)
	}
	if got := model.ConcretePath(); got != "chair/model" {
		t.Fatalf("ConcretePath() = %q, want chair/model", got)
	}
	if model.StepType() != project.StepTask {
		t.Fatalf("StepType() = %q, want task", model.StepType())
	}
	if err := p.Save(ctx); err != nil {
		t.Fatal(err)
	}

	found, err := p.ConcreteStepByPath("chair/model")
	if err != nil || found != model {
		t.Fatalf("ConcreteStepByPath = %v, %v", found, err)
	}
	reopened := testsupport.Reopen(t, backend, nil)
	again, err := reopened.ConcreteStepByPath("chair/model")
	if err != nil || again.ID() != model.ID() {
		t.Fatalf("after reopen: %v, %v", again, err)
	}

	if err := p.DeleteMember(model); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ConcreteStepByPath("chair/model"); !errors.Is(err, project.ErrMemberNotFound) {
		t.Fatalf("deleted step still indexed: %v", err)
	}
	if err := p.Save(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ConcreteStepByPath("chair"); err != nil {
		t.Fatalf("index rebuilt without surviving step: %v", err)
	}
}

func TestLoadRejectsBrokenDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "step without type",
			doc:  `{"abstract":{"id":{"1":{"name":{"setup":"str-01","value":"x"}}}}}`,
			want: project.ErrMalformedMember,
		},
		{
			name: "inheritance cycle",
			doc: `{"concept":{"id":{
				"1":{"super_member":{"setup":"member-00","value":"concept.id.2"}},
				"2":{"super_member":{"setup":"member-00","value":"concept.id.1"}}}}}`,
			want: project.ErrCycle,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := document.NewMemoryBackend([]byte(tc.doc))
			_, err := project.Open(backend)
			if !errors.Is(err, tc.want) || !errors.Is(err, project.ErrIntegrity) {
				t.Fatalf("Open error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDanglingSuperIsLoggedNotFatal(t *testing.T) {
	logger, capture := testsupport.CaptureLogger()
	backend := document.NewMemoryBackend([]byte(`{"concept":{"id":{"1":{"super_member":{"setup":"member-00","value":"concept.id.9"}}}}}`))
	p, err := project.Open(backend, project.WithLogger(logger))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m, err := p.Concept(1)
	if err != nil {
		t.Fatal(err)
	}
	if m.SuperMember() != nil {
		t.Fatal("dangling super resolved")
	}
	if _, ok := capture.Find(slog.LevelWarn, "super member not found"); !ok {
		t.Fatal("expected a dangling super warning")
	}
}

func TestOperationsOnUnloadedProject(t *testing.T) {
	p := project.New(document.NewMemoryBackend(nil))
	if _, err := p.AddConcept(); !errors.Is(err, project.ErrNotLoaded) {
		t.Fatalf("AddConcept: %v", err)
	}
	if err := p.Save(context.Background()); !errors.Is(err, project.ErrNotLoaded) {
		t.Fatalf("Save: %v", err)
	}
	if p.AvailableID(project.NamespaceConcept) != 1 {
		t.Fatal("AvailableID on an unloaded project should be 1")
	}
}
