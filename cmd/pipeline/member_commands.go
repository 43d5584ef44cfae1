package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pipeline/internal/project"
	"pipeline/internal/property"
)

// addFlags are shared by concept, step and concrete add.
type addFlags struct {
	id     int
	super  string
	parent int
	name   string
	alias  string
}

func (f *addFlags) register(cmd *cobra.Command, withSuper bool) {
	cmd.Flags().IntVar(&f.id, "id", 0, "Use this id instead of the lowest free one")
	if withSuper {
		cmd.Flags().StringVar(&f.super, "super", "", "Super-member path")
	}
	cmd.Flags().IntVar(&f.parent, "parent", 0, "Parent concrete step id (concrete steps only)")
	cmd.Flags().StringVar(&f.name, "name", "", "Name, may use placeholders such as {parent}_{index}")
	cmd.Flags().StringVar(&f.alias, "alias", "", "Display alias")
}

func (f *addFlags) options(p *project.Project) ([]project.AddOption, error) {
	var opts []project.AddOption
	if f.id > 0 {
		opts = append(opts, project.WithID(f.id))
	}
	if strings.TrimSpace(f.super) != "" {
		super, err := resolveMember(p, f.super)
		if err != nil {
			return nil, err
		}
		opts = append(opts, project.WithSuper(super))
	}
	if f.parent > 0 {
		opts = append(opts, project.WithParent(f.parent))
	}
	if f.name != "" {
		opts = append(opts, project.WithName(f.name))
	}
	if f.alias != "" {
		opts = append(opts, project.WithAlias(f.alias))
	}
	return opts, nil
}

func printAdded(cmd *cobra.Command, m *project.Member) {
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", m.Path(), m.Name())
}

func newConceptCommand(ctx *commandContext) *cobra.Command {
	conceptCmd := &cobra.Command{
		Use:   "concept",
		Short: "Manage concepts",
	}
	var flags addFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a concept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				opts, err := flags.options(s.project)
				if err != nil {
					return err
				}
				m, err := s.project.AddConcept(opts...)
				if err != nil {
					return err
				}
				printAdded(cmd, m)
				return nil
			})
		},
	}
	flags.register(addCmd, true)
	conceptCmd.AddCommand(addCmd)
	return conceptCmd
}

func newStepCommand(ctx *commandContext) *cobra.Command {
	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "Manage abstract steps",
	}
	var (
		flags    addFlags
		stepType string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an abstract step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				opts, err := flags.options(s.project)
				if err != nil {
					return err
				}
				m, err := s.project.AddAbstractStep(project.StepType(stepType), opts...)
				if err != nil {
					return err
				}
				printAdded(cmd, m)
				return nil
			})
		},
	}
	flags.register(addCmd, true)
	addCmd.Flags().StringVar(&stepType, "type", string(project.StepAsset), "Step type (asset, task, workfile)")
	stepCmd.AddCommand(addCmd)
	return stepCmd
}

func newConcreteCommand(ctx *commandContext) *cobra.Command {
	concreteCmd := &cobra.Command{
		Use:   "concrete",
		Short: "Manage concrete steps",
	}
	var flags addFlags
	addCmd := &cobra.Command{
		Use:   "add <abstract-step>",
		Short: "Instantiate an abstract step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				super, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				opts, err := flags.options(s.project)
				if err != nil {
					return err
				}
				m, err := s.project.AddConcreteStep(super, opts...)
				if err != nil {
					return err
				}
				printAdded(cmd, m)
				return nil
			})
		},
	}
	flags.register(addCmd, false)
	concreteCmd.AddCommand(addCmd)
	return concreteCmd
}

// resolveMember accepts a member path ("concept.id.1") or the resolved path
// of a concrete step ("chair/model").
func resolveMember(p *project.Project, ref string) (*project.Member, error) {
	ref = strings.TrimSpace(ref)
	if _, _, err := project.ParseMemberPath(ref); err == nil {
		return p.Member(ref)
	}
	return p.ConcreteStepByPath(ref)
}

func newMemberCommand(ctx *commandContext) *cobra.Command {
	memberCmd := &cobra.Command{
		Use:   "member",
		Short: "Inspect and edit members",
	}
	memberCmd.AddCommand(newMemberListCommand(ctx))
	memberCmd.AddCommand(newMemberShowCommand(ctx))
	memberCmd.AddCommand(newMemberGetCommand(ctx))
	memberCmd.AddCommand(newMemberSetCommand(ctx))
	memberCmd.AddCommand(newMemberUnsetCommand(ctx))
	memberCmd.AddCommand(newMemberCreateCommand(ctx))
	memberCmd.AddCommand(newMemberSuperCommand(ctx))
	memberCmd.AddCommand(newMemberRuleCommand(ctx))
	memberCmd.AddCommand(newMemberDeleteCommand(ctx))
	return memberCmd
}

func newMemberListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [namespace]",
		Short: "List members",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespaces := project.Namespaces
			if len(args) == 1 {
				ns, err := project.ParseNamespace(args[0])
				if err != nil {
					return err
				}
				namespaces = []project.Namespace{ns}
			}
			return ctx.withProject(cmd, false, func(s *projectSession) error {
				var rows [][]string
				for _, ns := range namespaces {
					for _, m := range s.project.Members(ns) {
						super := ""
						if sm := m.SuperMember(); sm != nil {
							super = sm.Path()
						}
						rows = append(rows, []string{
							strconv.Itoa(m.ID()),
							m.Path(),
							m.Name(),
							super,
							string(m.StepType()),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No members")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Path", "Name", "Super", "Type"}, rows, 0))
				return nil
			})
		},
	}
}

type propertyView struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility"`
	Source     string `json:"source"`
	Value      any    `json:"value"`
}

type memberView struct {
	Path         string         `json:"path"`
	Name         string         `json:"name"`
	ConcretePath string         `json:"concrete_path,omitempty"`
	Properties   []propertyView `json:"properties"`
	Rules        map[string]any `json:"rules,omitempty"`
}

func describeMember(m *project.Member) memberView {
	view := memberView{Path: m.Path(), Name: m.Name(), Rules: m.Rules()}
	if m.Namespace() == project.NamespaceConcrete {
		view.ConcretePath = m.ConcretePath()
	}
	for _, name := range m.PropertyNames() {
		prop, ok := m.GetProperty(name, true)
		if !ok {
			continue
		}
		source := "inherited"
		if m.HasLocal(name) {
			source = "local"
		}
		view.Properties = append(view.Properties, propertyView{
			Name:       name,
			Type:       string(prop.Type()),
			Visibility: prop.Visibility().String(),
			Source:     source,
			Value:      prop.Value(),
		})
	}
	return view
}

func newMemberShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <member>",
		Short: "Show every property a member can read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, false, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				view := describeMember(m)
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n", view.Path, view.Name)
				if view.ConcretePath != "" {
					fmt.Fprintf(out, "Path: %s\n", view.ConcretePath)
				}
				rows := make([][]string, 0, len(view.Properties))
				for _, p := range view.Properties {
					rows = append(rows, []string{p.Name, p.Type, p.Visibility, p.Source, formatValue(p.Value)})
				}
				fmt.Fprintln(out, renderTable([]string{"Property", "Type", "Visibility", "Source", "Value"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newMemberGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <member> <property[.attr]>",
		Short: "Print a property value or attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, false, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				name, attr, dotted := strings.Cut(args[1], ".")
				prop, ok := m.GetProperty(name, true)
				if !ok {
					return fmt.Errorf("%w: %s", project.ErrPropertyNotFound, name)
				}
				value := prop.Value()
				if dotted {
					if value, err = prop.Query(attr); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
				return nil
			})
		},
	}
}

// parseValue turns command-line text into a value for name on m. Property
// values follow the property type; attributes are read as JSON when they
// parse and as plain text otherwise.
func parseValue(m *project.Member, name, text string) (any, error) {
	head, _, dotted := strings.Cut(name, ".")
	if dotted {
		var value any
		if err := json.Unmarshal([]byte(text), &value); err == nil {
			return value, nil
		}
		return text, nil
	}
	prop, ok := m.GetProperty(head, true)
	if !ok {
		return nil, fmt.Errorf("%w: %s", project.ErrPropertyNotFound, head)
	}
	return property.ParseText(prop.Type(), text)
}

func newMemberSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <member> <property[.attr]> <value>",
		Short: "Set a property value or attribute",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				value, err := parseValue(m, args[1], args[2])
				if err != nil {
					return err
				}
				return m.SetProperty(args[1], value)
			})
		},
	}
}

func newMemberUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <member> <property>",
		Short: "Delete a local property so the inherited value shows through",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				return m.DeleteProperty(args[1])
			})
		},
	}
}

func newMemberCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		visibility string
		hidden     bool
		choices    []string
	)
	cmd := &cobra.Command{
		Use:   "create <member> <type> <property> [value]",
		Short: "Create a local property",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			vis, err := property.ParseVisibility(visibility)
			if err != nil {
				return err
			}
			t := property.Type(args[1])
			opts := []property.Option{property.WithVisibility(vis), property.WithDisplay(!hidden)}
			if len(choices) > 0 {
				opts = append(opts, property.WithChoices(choices...))
			}
			if len(args) == 4 {
				value, err := property.ParseText(t, args[3])
				if err != nil {
					return err
				}
				opts = append(opts, property.WithValue(value))
			}
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				_, err = m.CreateProperty(t, args[2], opts...)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&visibility, "visibility", "public", "public, protected or private")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Hide the property from displays")
	cmd.Flags().StringSliceVar(&choices, "choices", nil, "Choices for enum properties")
	return cmd
}

func newMemberSuperCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "super <member> [super]",
		Short: "Link a member to a super-member, or detach it when super is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				var super *project.Member
				if len(args) == 2 {
					if super, err = resolveMember(s.project, args[1]); err != nil {
						return err
					}
				}
				return m.SetSuperMember(super)
			})
		},
	}
}

func newMemberRuleCommand(ctx *commandContext) *cobra.Command {
	var sameAs []string
	cmd := &cobra.Command{
		Use:   "rule <member> [operation] [condition]",
		Short: "Gate an operation on a member with a true/false or an expression",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return fmt.Errorf("rule %s needs a condition", args[1])
			}
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				if len(args) == 3 {
					var condition any = args[2]
					if b, err := strconv.ParseBool(args[2]); err == nil {
						condition = b
					}
					if err := m.SetRule(args[1], condition); err != nil {
						return err
					}
				}
				if len(sameAs) > 0 {
					others := make([]*project.Member, 0, len(sameAs))
					for _, ref := range sameAs {
						other, err := resolveMember(s.project, ref)
						if err != nil {
							return err
						}
						others = append(others, other)
					}
					return m.SameAs(others...)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&sameAs, "same-as", nil, "Members whose rules also apply")
	return cmd
}

func newMemberDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <member>",
		Short: "Delete a member; links pointing at it are left dangling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd, true, func(s *projectSession) error {
				m, err := resolveMember(s.project, args[0])
				if err != nil {
					return err
				}
				path := m.Path()
				if err := s.project.DeleteMember(m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
				return nil
			})
		},
	}
}
