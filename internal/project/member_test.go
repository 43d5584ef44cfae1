package project_test

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"pipeline/internal/project"
	"pipeline/internal/property"
	"pipeline/internal/scripts"
	"pipeline/internal/testsupport"
)

func mustConcept(t *testing.T, p *project.Project, opts ...project.AddOption) *project.Member {
	t.Helper()
	m, err := p.AddConcept(opts...)
	if err != nil {
		t.Fatalf("AddConcept: %v", err)
	}
	return m
}

func mustString(t *testing.T, m *project.Member, name string) string {
	t.Helper()
	prop, ok := m.GetProperty(name, true)
	if !ok {
		t.Fatalf("%s: property %q not found", m.Path(), name)
	}
	return prop.String()
}

func TestOverrideAndDeleteFallsBackToInherited(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))

	if got := mustString(t, sub, "color"); got != "red" {
		t.Fatalf("inherited color = %q, want red", got)
	}
	if err := sub.SetProperty("color", "blue"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if !sub.HasLocal("color") {
		t.Fatal("expected a local override after SetProperty")
	}
	if got := mustString(t, sub, "color"); got != "blue" {
		t.Fatalf("overridden color = %q, want blue", got)
	}
	if got := mustString(t, super, "color"); got != "red" {
		t.Fatalf("super color = %q, want red", got)
	}

	if err := sub.DeleteProperty("color"); err != nil {
		t.Fatalf("DeleteProperty: %v", err)
	}
	if got := mustString(t, sub, "color"); got != "red" {
		t.Fatalf("color after delete = %q, want red", got)
	}
}

func TestCreatingWithSuperCompactsBuiltins(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	sub := mustConcept(t, p, project.WithSuper(super))

	var local []string
	for _, prop := range sub.LocalProperties() {
		local = append(local, prop.Name())
	}
	if !slices.Equal(local, []string{"super_member"}) {
		t.Fatalf("local properties = %v, want only super_member", local)
	}
	if got := sub.Name(); got != "concept2" {
		t.Fatalf("Name() = %q, want concept2", got)
	}
	if subs := super.SubMembers(); len(subs) != 1 || subs[0] != sub {
		t.Fatalf("SubMembers() = %v, want [%s]", subs, sub.Path())
	}
}

func TestSuperMemberCycleIsRejected(t *testing.T) {
	p, _, capture := testsupport.NewProject(t)
	a := mustConcept(t, p)
	b := mustConcept(t, p)

	if err := b.SetSuperMember(a); err != nil {
		t.Fatalf("SetSuperMember: %v", err)
	}
	err := a.SetSuperMember(b)
	if !errors.Is(err, project.ErrCycle) || !errors.Is(err, project.ErrIntegrity) {
		t.Fatalf("expected integrity cycle error, got %v", err)
	}
	if a.SuperMember() != nil {
		t.Fatalf("a.SuperMember() = %v, want nil", a.SuperMember())
	}
	if b.SuperMember() != a {
		t.Fatalf("b.SuperMember() = %v, want %s", b.SuperMember(), a.Path())
	}
	if err := a.SetSuperMember(a); !errors.Is(err, project.ErrCycle) {
		t.Fatalf("self link: expected ErrCycle, got %v", err)
	}
	if _, ok := capture.Find(slog.LevelError, "inheritance cycle"); !ok {
		t.Fatal("expected the cycle to be logged at error level")
	}
}

func TestRefreshDropsIdenticalPublicCopy(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))
	if _, err := sub.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}

	if !sub.RefreshProperty("color") {
		t.Fatal("expected RefreshProperty to drop the identical copy")
	}
	if sub.HasLocal("color") {
		t.Fatal("local copy still present after refresh")
	}
	got, _ := sub.GetProperty("color", true)
	want, _ := super.GetProperty("color", true)
	if !got.Equal(want) {
		t.Fatalf("sub color %v != super color %v", got.Value(), want.Value())
	}
}

func TestRefreshKeepsDifferentPublicAndDropsProtected(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}
	if _, err := super.CreateProperty(property.TypeInt, "fps", property.WithValue(24), property.WithVisibility(property.Protected)); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))
	if err := sub.SetProperty("color", "blue"); err != nil {
		t.Fatal(err)
	}
	own, err := p.Registry().Create(property.TypeInt, "fps", property.WithValue(30))
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.AddProperty(own); err != nil {
		t.Fatal(err)
	}

	sub.Refresh()

	if !sub.HasLocal("color") {
		t.Fatal("differing PUBLIC override was dropped")
	}
	if sub.HasLocal("fps") {
		t.Fatal("PROTECTED local copy survived refresh")
	}
	prop, _ := sub.GetProperty("fps", true)
	if prop.Int() != 24 {
		t.Fatalf("fps = %d, want 24", prop.Int())
	}
}

func TestPrivatePropertyIsInvisibleToSubMember(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "secret", property.WithValue("x"), property.WithVisibility(property.Private)); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))

	if _, ok := super.GetProperty("secret", true); !ok {
		t.Fatal("super should resolve its own private property")
	}
	if _, ok := sub.GetProperty("secret", true); ok {
		t.Fatal("sub resolved a PRIVATE property of its super")
	}
	if slices.Contains(sub.PropertyNames(), "secret") {
		t.Fatal("PropertyNames lists a PRIVATE property of the super")
	}
	if err := sub.SetProperty("secret", "y"); !errors.Is(err, project.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestProtectedPropertyIsReadOnlyForSubMember(t *testing.T) {
	p, _, capture := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeInt, "fps", property.WithValue(24), property.WithVisibility(property.Protected)); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))

	prop, ok := sub.GetProperty("fps", true)
	if !ok || prop.Int() != 24 {
		t.Fatalf("sub fps = %v (found %v), want 24", prop, ok)
	}
	err := sub.SetProperty("fps", 25)
	if !errors.Is(err, project.ErrProtected) || !errors.Is(err, project.ErrUserInput) {
		t.Fatalf("expected protected user input error, got %v", err)
	}
	if sub.HasLocal("fps") {
		t.Fatal("a local override was created for a PROTECTED property")
	}

	// Editing the bound copy is refused as well.
	if err := prop.SetValue(30); !errors.Is(err, property.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from the bound copy, got %v", err)
	}
	if prop.Int() != 24 {
		t.Fatalf("bound copy holds %d after a refused write, want 24", prop.Int())
	}
	if sub.HasLocal("fps") {
		t.Fatal("editing the inherited copy created an override")
	}
	if got, _ := super.GetProperty("fps", true); got.Int() != 24 {
		t.Fatalf("super fps = %d, want 24", got.Int())
	}
	if _, ok := capture.Find(slog.LevelWarn, "set property rejected"); !ok {
		t.Fatal("expected the rejection to be logged")
	}
}

func TestSuperVisibilityChangeReachesSubMembers(t *testing.T) {
	tests := []struct {
		name       string
		prop       string
		override   string
		visibility string
		wantLocal  bool
		want       func(t *testing.T, m *project.Member) string
		wantSub    string
		wantLeaf   string
	}{
		{
			name: "private color is copied", prop: "color", visibility: "private", wantLocal: true,
			want:    func(t *testing.T, m *project.Member) string { return mustString(t, m, "color") },
			wantSub: "red", wantLeaf: "red",
		},
		{
			name: "private name is copied", prop: "name", visibility: "private", wantLocal: true,
			want:    func(_ *testing.T, m *project.Member) string { return m.Name() },
			wantSub: "concept2", wantLeaf: "concept3",
		},
		{
			name: "protected color reads through", prop: "color", visibility: "protected",
			want:    func(t *testing.T, m *project.Member) string { return mustString(t, m, "color") },
			wantSub: "red", wantLeaf: "red",
		},
		{
			name: "protected drops an override", prop: "color", override: "blue", visibility: "protected",
			want:    func(t *testing.T, m *project.Member) string { return mustString(t, m, "color") },
			wantSub: "red", wantLeaf: "red",
		},
		{
			name: "private keeps an override", prop: "color", override: "blue", visibility: "private", wantLocal: true,
			want:    func(t *testing.T, m *project.Member) string { return mustString(t, m, "color") },
			wantSub: "blue", wantLeaf: "blue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := testsupport.NewProject(t)
			super := mustConcept(t, p)
			if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
				t.Fatal(err)
			}
			sub := mustConcept(t, p, project.WithSuper(super))
			leaf := mustConcept(t, p, project.WithSuper(sub))
			if tt.override != "" {
				if err := sub.SetProperty(tt.prop, tt.override); err != nil {
					t.Fatal(err)
				}
			}

			if err := super.EditProperty(tt.prop, "visibility", tt.visibility); err != nil {
				t.Fatalf("EditProperty: %v", err)
			}

			if sub.HasLocal(tt.prop) != tt.wantLocal {
				t.Fatalf("sub HasLocal(%s) = %v, want %v", tt.prop, sub.HasLocal(tt.prop), tt.wantLocal)
			}
			if got := tt.want(t, sub); got != tt.wantSub {
				t.Fatalf("sub %s = %q, want %q", tt.prop, got, tt.wantSub)
			}
			if got := tt.want(t, leaf); got != tt.wantLeaf {
				t.Fatalf("leaf %s = %q, want %q", tt.prop, got, tt.wantLeaf)
			}
			if tt.wantLocal && tt.override == "" {
				local, _ := sub.GetProperty(tt.prop, false)
				if local.Visibility() != property.Private {
					t.Fatalf("sub copy visibility = %v, want private", local.Visibility())
				}
				if !slices.Contains(p.DirtyMembers(), sub.Path()) {
					t.Fatal("sub-member holding a new copy is not dirty")
				}
			}
		})
	}
}

func TestRelinkCopiesPrivateBuiltins(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	first := mustConcept(t, p)
	second := mustConcept(t, p)
	if err := second.SetIndex(5); err != nil {
		t.Fatal(err)
	}
	if err := second.EditProperty("index", "visibility", "private"); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(first))
	if sub.HasLocal("index") {
		t.Fatal("index should be compacted against a public super index")
	}

	if err := sub.SetSuperMember(second); err != nil {
		t.Fatalf("SetSuperMember: %v", err)
	}
	if !sub.HasLocal("index") || sub.Index() != 5 {
		t.Fatalf("sub index local=%v value=%d, want a private copy of 5", sub.HasLocal("index"), sub.Index())
	}
}

func TestCreatePropertyWithInvalidVisibilityStaysPublic(t *testing.T) {
	p, _, capture := testsupport.NewProject(t)
	m := mustConcept(t, p)

	prop, err := m.CreateProperty(property.TypeStr, "x", property.WithVisibility(property.Visibility(7)))
	if err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	if prop == nil || !m.HasLocal("x") {
		t.Fatal("property with an invalid visibility was not created")
	}
	if prop.Visibility() != property.Public {
		t.Fatalf("visibility = %v, want public", prop.Visibility())
	}
	if _, ok := capture.Find(slog.LevelWarn, "create property rejected"); !ok {
		t.Fatal("expected the invalid visibility to be logged")
	}
}

func TestEditingInheritedCopyPromotesOverride(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))

	prop, _ := sub.GetProperty("color", true)
	if err := prop.SetValue("green"); err != nil {
		t.Fatal(err)
	}
	if !sub.HasLocal("color") || mustString(t, sub, "color") != "green" {
		t.Fatal("expected the edited copy to become the local override")
	}
	if mustString(t, super, "color") != "red" {
		t.Fatal("super value changed through the inherited copy")
	}
}

func TestSuperChangeCascadesToSubMembers(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	if _, err := super.CreateProperty(property.TypeStr, "color", property.WithValue("red")); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(super))
	leaf := mustConcept(t, p, project.WithSuper(sub))
	if err := sub.SetProperty("color", "blue"); err != nil {
		t.Fatal(err)
	}

	var seen []string
	cancel := leaf.OnChange(func(m *project.Member, name string) {
		seen = append(seen, m.Path()+":"+name)
	})
	defer cancel()

	if err := super.SetProperty("color", "blue"); err != nil {
		t.Fatal(err)
	}
	if sub.HasLocal("color") {
		t.Fatal("override equal to the super value should be compacted")
	}
	if mustString(t, leaf, "color") != "blue" {
		t.Fatalf("leaf color = %q, want blue", mustString(t, leaf, "color"))
	}
	if !slices.Contains(seen, leaf.Path()+":color") {
		t.Fatalf("leaf observers saw %v, want a color change", seen)
	}
}

func TestDetachingRecreatesBuiltins(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	sub := mustConcept(t, p, project.WithSuper(super))

	if err := sub.SetSuperMember(nil); err != nil {
		t.Fatalf("SetSuperMember(nil): %v", err)
	}
	for _, name := range []string{"name", "alias", "index", "padding", "commands", "rules"} {
		if !sub.HasLocal(name) {
			t.Fatalf("built-in %q not recreated after detaching", name)
		}
	}
	if len(super.SubMembers()) != 0 {
		t.Fatal("detached member still listed as sub-member")
	}
}

func TestSetPropertyRoutesSpecialNames(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	super := mustConcept(t, p)
	sub := mustConcept(t, p)

	if err := sub.SetProperty("super_member", super.Path()); err != nil {
		t.Fatalf("SetProperty(super_member): %v", err)
	}
	if sub.SuperMember() != super {
		t.Fatal("super_member path did not relink")
	}
	if err := sub.SetProperty("index.visibility", "protected"); err != nil {
		t.Fatalf("SetProperty(index.visibility): %v", err)
	}
	prop, _ := sub.GetProperty("index", false)
	if prop == nil || prop.Visibility() != property.Protected {
		t.Fatalf("expected a local protected index override, got %v", prop)
	}
	if err := sub.SetProperty("index.colour", 1); !errors.Is(err, property.ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	err := sub.EditProperty("index", "visibility", 9)
	if !errors.Is(err, property.ErrInvalidVisibility) {
		t.Fatalf("expected ErrInvalidVisibility, got %v", err)
	}
	if prop.Visibility() != property.Protected {
		t.Fatal("invalid visibility changed the property")
	}
	if err := sub.DeleteProperty("super_member"); !errors.Is(err, project.ErrSticky) {
		t.Fatalf("expected ErrSticky, got %v", err)
	}
}

func TestProceduralNames(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	assets, err := p.AddAbstractStep(project.StepAsset, project.WithName("ASSETS"))
	if err != nil {
		t.Fatal(err)
	}
	step, err := p.AddAbstractStep(project.StepAsset, project.WithParent(assets.ID()))
	if err != nil {
		t.Fatal(err)
	}
	if err := step.SetIndex(7); err != nil {
		t.Fatal(err)
	}
	if err := step.SetPadding(3); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		template string
		want     string
	}{
		{template: "{parent}_{index}", want: "ASSETS_007"},
		{template: "{parent}__{alias}_{index}", want: "ASSETS_007"},
		{template: "_{alias}{parent}-{id}", want: "ASSETS-2"},
		{template: "{type}{id}_{index}", want: "asset2_007"},
		{template: "{unknown}_{index}", want: "{unknown}_007"},
		{template: "{parent.index}.{index}", want: "0.007"},
		{template: "plain", want: "plain"},
	}
	for _, tc := range tests {
		if err := step.SetName(tc.template); err != nil {
			t.Fatal(err)
		}
		if got := step.Name(); got != tc.want {
			t.Fatalf("Name() for %q = %q, want %q", tc.template, got, tc.want)
		}
	}

	if err := step.SetAlias("hero"); err != nil {
		t.Fatal(err)
	}
	if step.Name() != "hero" || step.FormattedName() != "plain" {
		t.Fatalf("alias handling: Name() = %q, FormattedName() = %q", step.Name(), step.FormattedName())
	}
}

func TestSelfReferentialNamesKeepTokens(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	m := mustConcept(t, p)
	if err := m.SetIndex(7); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateProperty(property.TypeStr, "label", property.WithValue("{name}")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		template string
		want     string
	}{
		{template: "{name}", want: "{name}"},
		{template: "{name}{name}{name}", want: "{name}{name}{name}"},
		{template: "{name}_{index}", want: "{name}_7"},
		{template: "{label}_{id}", want: "{name}_1"},
		{template: "{super_member.name}_{name}", want: "{name}"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			if err := m.SetName(tt.template); err != nil {
				t.Fatal(err)
			}
			done := make(chan string, 1)
			go func() { done <- m.Name() }()
			select {
			case got := <-done:
				if got != tt.want {
					t.Fatalf("Name() = %q, want %q", got, tt.want)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("Name() for %q did not return", tt.template)
			}
		})
	}
}

func TestProceduralNameAcrossSuperMember(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	concept := mustConcept(t, p, project.WithName("hero"))
	step, err := p.AddAbstractStep(project.StepTask, project.WithSuper(concept))
	if err != nil {
		t.Fatal(err)
	}
	if err := step.SetName("{super_member.name}_{task}"); err != nil {
		t.Fatal(err)
	}
	if got := step.Name(); got != "hero_task1" {
		t.Fatalf("Name() = %q, want hero_task1", got)
	}
}

func TestSuperWithProceduralNameDropsLocalName(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	abstract, err := p.AddAbstractStep(project.StepAsset)
	if err != nil {
		t.Fatal(err)
	}
	concrete, err := p.AddConcreteStep(abstract)
	if err != nil {
		t.Fatal(err)
	}
	if concrete.HasLocal("name") {
		t.Fatal("concrete step kept its own name under a procedural super name")
	}
	if concrete.StepType() != project.StepAsset {
		t.Fatalf("StepType() = %q, want asset", concrete.StepType())
	}
	if got := concrete.Name(); got != "asset1_0" {
		t.Fatalf("Name() = %q, want asset1_0", got)
	}
}

func TestRulesGateOperations(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	base := mustConcept(t, p)
	if err := base.SetRule("render", false); err != nil {
		t.Fatal(err)
	}
	m := mustConcept(t, p)
	if err := m.SameAs(base); err != nil {
		t.Fatal(err)
	}
	if err := m.SetRule("publish", "index > 2"); err != nil {
		t.Fatal(err)
	}
	if err := base.SameAs(m); err != nil {
		t.Fatal(err)
	}

	if m.Allowed("render") {
		t.Fatal("render should be denied through _same_as_")
	}
	if m.Allowed("publish") {
		t.Fatal("publish should be denied while index is 0")
	}
	if err := m.SetIndex(3); err != nil {
		t.Fatal(err)
	}
	if !m.Allowed("publish") {
		t.Fatal("publish should be allowed once index > 2")
	}
	if !m.Allowed("anything") {
		t.Fatal("operations without a rule are allowed")
	}
	if err := m.SetRule("broken", "index >"); !errors.Is(err, property.ErrInvalidValue) {
		t.Fatalf("expected invalid expression to be refused, got %v", err)
	}
}

func TestCallRunsEveryScriptAndContainsFailures(t *testing.T) {
	var calls []string
	runner := scripts.RunnerFunc(func(_ context.Context, command, script string, target scripts.Target) error {
		calls = append(calls, target.Path()+":"+command+":"+script)
		if script == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	p, _, capture := testsupport.NewProject(t, project.WithRunner(runner), project.WithSoftware("blender"))
	base := mustConcept(t, p)
	if err := base.AddCommand("blender", "publish", "a.lua", "bad", "c.js"); err != nil {
		t.Fatal(err)
	}
	sub := mustConcept(t, p, project.WithSuper(base))

	if err := sub.Call(context.Background(), "publish"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := []string{
		"concept.id.2:publish:a.lua",
		"concept.id.2:publish:bad",
		"concept.id.2:publish:c.js",
	}
	if !slices.Equal(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if _, ok := capture.Find(slog.LevelWarn, "script failures"); !ok {
		t.Fatal("expected a warning about the failed script")
	}

	if err := sub.Call(context.Background(), "missing"); !errors.Is(err, project.ErrMissingCommand) {
		t.Fatalf("expected ErrMissingCommand, got %v", err)
	}
	if err := base.SetRule("publish", false); err != nil {
		t.Fatal(err)
	}
	if err := sub.Call(context.Background(), "publish"); !errors.Is(err, project.ErrRuleDenied) {
		t.Fatalf("expected ErrRuleDenied, got %v", err)
	}
}

func TestAddCommandIsIdempotent(t *testing.T) {
	p, _, _ := testsupport.NewProject(t)
	m := mustConcept(t, p)
	for range 2 {
		if err := m.AddCommand("maya", "open"); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.AddCommand("maya", "open", "open.lua"); err != nil {
		t.Fatal(err)
	}
	cmds := m.Commands()
	if got := cmds["maya"]["open"]; !slices.Equal(got, []string{"open.lua"}) {
		t.Fatalf("scripts = %v, want [open.lua]", got)
	}
	if err := m.RemoveCommand("maya", "open"); err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveCommand("maya", "open"); !errors.Is(err, project.ErrMissingCommand) {
		t.Fatalf("expected ErrMissingCommand, got %v", err)
	}
}
