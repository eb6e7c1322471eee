package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatClassesText formats CLIClass results as aligned columns.
func formatClassesText(w io.Writer, classes []CLIClass) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPARENT\tFILE\tLINE")
	for _, c := range classes {
		parent := c.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.Name, c.Kind, parent, c.File, c.StartLine)
	}
	tw.Flush()
}

// formatReflectionText formats a reflected class as a PHP-like outline.
func formatReflectionText(w io.Writer, r CLIReflection) {
	header := append(append([]string{}, r.Modifiers...), r.Kind, r.Name)
	fmt.Fprint(w, strings.Join(header, " "))
	if r.Parent != "" {
		fmt.Fprintf(w, " extends %s", r.Parent)
	}
	if len(r.Interfaces) > 0 {
		keyword := "implements"
		if r.Kind == "interface" {
			keyword = "extends"
		}
		fmt.Fprintf(w, " %s %s", keyword, strings.Join(r.Interfaces, ", "))
	}
	fmt.Fprintln(w)

	if len(r.Constants) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Constants:")
		names := make([]string, 0, len(r.Constants))
		for name := range r.Constants {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %s\n", name, formatValue(r.Constants[name]))
		}
	}

	if len(r.Properties) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Properties:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range r.Properties {
			decl := strings.TrimSpace(strings.Join(p.Modifiers, " ") + " $" + p.Name)
			if p.Default != nil {
				decl += " = " + formatValue(p.Default)
			}
			fmt.Fprintf(tw, "  %s\t%s\n", decl, p.DeclaringClass)
		}
		tw.Flush()
	}

	if len(r.Methods) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Methods:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, m := range r.Methods {
			params := make([]string, len(m.Parameters))
			for i, p := range m.Parameters {
				params[i] = formatParameter(p)
			}
			sig := strings.TrimSpace(fmt.Sprintf("%s function %s(%s)",
				strings.Join(m.Modifiers, " "), m.Name, strings.Join(params, ", ")))
			fmt.Fprintf(tw, "  %s\t%s\n", sig, m.DeclaringClass)
		}
		tw.Flush()
	}
}

func formatParameter(p CLIParameter) string {
	var b strings.Builder
	if p.Type != "" {
		b.WriteString(p.Type)
		b.WriteByte(' ')
	}
	if p.ByRef {
		b.WriteByte('&')
	}
	b.WriteString("$" + p.Name)
	if p.Optional {
		b.WriteString(" = " + formatValue(p.Default))
	}
	return b.String()
}

// formatValue renders a default or constant value as PHP source.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(x, "'", `\'`) + "'"
	default:
		return fmt.Sprint(x)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. Falls back to fmt.Fprintln for unknown types.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIWhere:
		fmt.Fprintln(w, v.Path)
	case []CLIClass:
		formatClassesText(w, v)
	case CLIReflection:
		formatReflectionText(w, v)
	default:
		fmt.Fprintln(w, v)
	}
	return nil
}

// validFormats lists the accepted --format values.
var validFormats = []string{"json", "text"}

// validateFormat returns an error if the format is not recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
