package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/jward/staticrefl"
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/spf13/cobra"
)

var flagKind string

var whereCmd = &cobra.Command{
	Use:   "where <class>",
	Short: "Print the file that declares a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return outputError("where", err)
		}
		defer engine.Close()

		path, err := engine.Where(args[0])
		if err != nil {
			return outputError("where", err)
		}
		return outputResult(CLIResult{
			Command: "where",
			Results: CLIWhere{Class: args[0], Path: path},
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <class>",
	Short: "Reflect a class with its inherited members",
	Long:  "Builds the class and its ancestors from the index, indexing files found through the resolver chain on demand.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return outputError("inspect", err)
		}
		defer engine.Close()

		c, err := engine.ReflectClass(context.Background(), args[0])
		if err != nil {
			return outputError("inspect", err)
		}
		return outputResult(CLIResult{
			Command: "inspect",
			Results: reflectionToCLI(c),
		})
	},
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List indexed classes and interfaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return outputError("classes", err)
		}
		defer engine.Close()

		classes, err := engine.Query().Classes(flagKind)
		if err != nil {
			return outputError("classes", err)
		}
		results, err := classesToCLI(engine, classes)
		if err != nil {
			return outputError("classes", err)
		}
		total := len(results)
		return outputResult(CLIResult{
			Command:    "classes",
			Results:    results,
			TotalCount: &total,
		})
	},
}

var subclassesCmd = &cobra.Command{
	Use:   "subclasses <class>",
	Short: "List indexed classes that extend or implement a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return outputError("subclasses", err)
		}
		defer engine.Close()

		q := engine.Query()
		subs, err := q.Subclasses(args[0])
		if err != nil {
			return outputError("subclasses", err)
		}
		impls, err := q.Implementors(args[0])
		if err != nil {
			return outputError("subclasses", err)
		}
		results, err := classesToCLI(engine, append(subs, impls...))
		if err != nil {
			return outputError("subclasses", err)
		}
		total := len(results)
		return outputResult(CLIResult{
			Command:    "subclasses",
			Results:    results,
			TotalCount: &total,
		})
	},
}

func init() {
	classesCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind: class|interface")
}

// --- Helpers ---

// openEngine opens the Engine for the repository containing the working
// directory, configured the same way index configures it.
func openEngine() (*staticrefl.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	return staticrefl.NewFromConfig(repoRoot, cfg, staticrefl.WithLogger(slog.Default()))
}

// outputResult writes a CLIResult in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// classesToCLI converts declarations to CLIClass values with their file paths.
func classesToCLI(engine *staticrefl.Engine, classes []*staticrefl.ClassDecl) ([]CLIClass, error) {
	paths := make(map[int64]string)
	out := make([]CLIClass, 0, len(classes))
	for _, c := range classes {
		path, ok := paths[c.FileID]
		if !ok {
			f, err := engine.Store().FileByID(c.FileID)
			if err != nil {
				return nil, err
			}
			if f != nil {
				path = f.Path
			}
			paths[c.FileID] = path
		}
		out = append(out, CLIClass{
			Name:       c.Name,
			Kind:       c.Kind,
			Modifiers:  reflection.Modifier(c.Modifiers).ClassNames(),
			Parent:     c.ParentName,
			Interfaces: c.Interfaces,
			File:       path,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
		})
	}
	return out, nil
}

// reflectionToCLI flattens a reflected class, including inherited
// constants, methods and properties, into a CLIReflection.
func reflectionToCLI(c *staticrefl.Class) CLIReflection {
	r := CLIReflection{
		Name:      c.Name(),
		Kind:      c.Kind().String(),
		Modifiers: c.Modifiers().ClassNames(),
		Constants: c.Constants(),
	}
	if parent, ok := c.ParentClass(); ok {
		r.Parent = parent.Name()
	}
	for _, iface := range c.Interfaces() {
		r.Interfaces = append(r.Interfaces, iface.Name())
	}

	methods := c.Methods(staticrefl.FilterAll)
	for _, key := range sortedKeys(methods) {
		r.Methods = append(r.Methods, methodToCLI(methods[key]))
	}

	props := c.Properties(staticrefl.FilterAll)
	for _, key := range sortedKeys(props) {
		p := props[key]
		cp := CLIProperty{
			Name:      p.Name(),
			Modifiers: p.Modifiers().MemberNames(),
		}
		if dc, err := p.DeclaringClass(); err == nil {
			cp.DeclaringClass = dc.Name()
		}
		if v, err := p.DefaultValue(); err == nil {
			cp.Default = v
		}
		r.Properties = append(r.Properties, cp)
	}
	return r
}

func methodToCLI(m *staticrefl.Method) CLIMethod {
	cm := CLIMethod{
		Name:      m.Name(),
		Modifiers: m.Modifiers().MemberNames(),
	}
	if dc := m.DeclaringClass(); dc != nil {
		cm.DeclaringClass = dc.Name()
	}
	for _, p := range m.Parameters() {
		cp := CLIParameter{
			Name:     p.Name(),
			Position: p.Position(),
			ByRef:    p.IsPassedByReference(),
			Optional: p.IsOptional(),
		}
		if p.IsArray() {
			cp.Type = "array"
		} else if hint, ok := p.Class(); ok {
			cp.Type = hint.Name()
		}
		if v, err := p.DefaultValue(); err == nil {
			cp.Default = v
		}
		cm.Parameters = append(cm.Parameters, cp)
	}
	return cm
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
