package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeSignatureHash computes a deterministic hash of a class's
// declarations: identity, modifiers, doc comments, hierarchy, constants,
// properties and methods with their parameters. params[i] holds the
// parameters of methods[i]. Line numbers do not affect the hash.
func ComputeSignatureHash(
	c *ClassDecl,
	consts []*ConstantDecl,
	methods []*MethodDecl,
	props []*PropertyDecl,
	params [][]*ParameterDecl,
) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", strings.ToLower(c.Name))
	fmt.Fprintf(h, "kind:%s\n", c.Kind)
	fmt.Fprintf(h, "modifiers:%d\n", c.Modifiers)
	fmt.Fprintf(h, "doc:%q\n", c.DocComment)
	fmt.Fprintf(h, "parent:%s\n", strings.ToLower(c.ParentName))
	ifaces := make([]string, len(c.Interfaces))
	for i, name := range c.Interfaces {
		ifaces[i] = strings.ToLower(name)
	}
	sort.Strings(ifaces)
	fmt.Fprintf(h, "interfaces:%s\n", strings.Join(ifaces, ","))

	// Members are sorted by name for determinism.
	var lines []string
	for _, k := range consts {
		lines = append(lines, fmt.Sprintf("const:%s:%s:%s", k.Name, k.Value.Kind, k.Value.Text))
	}
	for _, p := range props {
		lines = append(lines, fmt.Sprintf("prop:%s:%d:%s:%q", p.Name, p.Modifiers, literalKey(p.Default), p.DocComment))
	}
	for i, m := range methods {
		var sig []string
		if i < len(params) {
			for _, p := range params[i] {
				sig = append(sig, fmt.Sprintf("%d:%s:%v:%v:%s:%s", p.Ordinal, p.Name, p.ByRef, p.Variadic, p.TypeHint, literalKey(p.Default)))
			}
		}
		lines = append(lines, fmt.Sprintf("method:%s:%d:(%s):%q", strings.ToLower(m.Name), m.Modifiers, strings.Join(sig, ","), m.DocComment))
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(h, line)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

func literalKey(l *Literal) string {
	if l == nil {
		return "-"
	}
	return string(l.Kind) + "=" + l.Text
}
