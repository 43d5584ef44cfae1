package project

import (
	"fmt"
	"strconv"
	"strings"

	"pipeline/internal/document"
)

// Namespace is the top-level document key a member persists under.
type Namespace string

const (
	NamespaceConcept  Namespace = "concept"
	NamespaceAbstract Namespace = "abstract"
	NamespaceConcrete Namespace = "concrete"
)

// Namespaces lists every member namespace in load order.
var Namespaces = []Namespace{NamespaceConcept, NamespaceAbstract, NamespaceConcrete}

// ParseNamespace accepts a namespace name, case-insensitively.
func ParseNamespace(value string) (Namespace, error) {
	switch ns := Namespace(strings.ToLower(strings.TrimSpace(value))); ns {
	case NamespaceConcept, NamespaceAbstract, NamespaceConcrete:
		return ns, nil
	}
	return "", fmt.Errorf("%w: unknown namespace %q", ErrInvalidPath, value)
}

// StepType discriminates abstract and concrete steps.
type StepType string

const (
	StepAsset    StepType = "asset"
	StepTask     StepType = "task"
	StepWorkfile StepType = "workfile"
)

// StepTypes lists the valid step types in display order.
var StepTypes = []StepType{StepAsset, StepTask, StepWorkfile}

// ParseStepType validates a step type name.
func ParseStepType(value string) (StepType, error) {
	switch t := StepType(strings.ToLower(strings.TrimSpace(value))); t {
	case StepAsset, StepTask, StepWorkfile:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStepType, value)
}

func stepTypeNames() []string {
	names := make([]string, len(StepTypes))
	for i, t := range StepTypes {
		names[i] = string(t)
	}
	return names
}

// MemberPath returns the document path of a member: "{namespace}.id.{id}".
func MemberPath(ns Namespace, id int) string {
	return document.Join(string(ns), "id", strconv.Itoa(id))
}

// ParseMemberPath splits a member path into namespace and id.
func ParseMemberPath(path string) (Namespace, int, error) {
	parts := strings.Split(strings.TrimSpace(path), ".")
	if len(parts) != 3 || parts[1] != "id" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	ns, err := ParseNamespace(parts[0])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil || id < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return ns, id, nil
}

func idsPath(ns Namespace) string { return document.Join(string(ns), "id") }

func propertyPath(memberPath, name string) string {
	return document.Join(memberPath, document.Escape(name))
}

const (
	pathIndexRoot       = "concrete.path"
	propertiesOrderPath = "global.properties_order"
)

func pathIndexKey(resolved string) string {
	return document.Join(pathIndexRoot, document.Escape(resolved))
}
