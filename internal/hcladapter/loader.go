// Package hcladapter loads the rig configuration model from HCL files.
package hcladapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
)

// Loader is the HCL-specific implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all recognised top-level blocks from any file. Blocks may
// be split across files freely; the loader merges them into one model.
type fileRoot struct {
	Projects    []*projectBlock    `hcl:"project,block"`
	Groups      []*groupBlock      `hcl:"group,block"`
	Parts       []*partBlock       `hcl:"part,block"`
	BlendLinks  []*blendLinkBlock  `hcl:"blendshape_link,block"`
	SuffixRules []*suffixRuleBlock `hcl:"suffix_rule,block"`
	Stacks      []*stackBlock      `hcl:"stack,block"`
	Templates   []*templateBlock   `hcl:"template,block"`
	Connections []*connectionBlock `hcl:"connection,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type projectBlock struct {
	Asset            string   `hcl:"asset"`
	ProjectDirectory string   `hcl:"project_directory"`
	SubFolders       []string `hcl:"sub_folders,optional"`
}

type groupBlock struct {
	Kind string `hcl:"kind,label"`
	Node string `hcl:"node"`
}

type partBlock struct {
	Name      string         `hcl:"name,label"`
	Reference string         `hcl:"reference"`
	Groups    []string       `hcl:"groups"`
	Aliases   hcl.Expression `hcl:"aliases,optional"`
}

type blendLinkBlock struct {
	Source  string   `hcl:"source,label"`
	Targets []string `hcl:"targets"`
}

type suffixRuleBlock struct {
	Suffix string `hcl:"suffix,label"`
	Kind   string `hcl:"kind"`
}

type stackBlock struct {
	Mesh      string           `hcl:"mesh,label"`
	Deformers []*deformerBlock `hcl:"deformer,block"`
}

type deformerBlock struct {
	Name    string        `hcl:"name,label"`
	Skin    *skinBlock    `hcl:"skin,block"`
	Generic *genericBlock `hcl:"generic,block"`
}

type skinBlock struct {
	Joints       []string `hcl:"joints"`
	UseHierarchy bool     `hcl:"use_hierarchy,optional"`
	Envelope     *float64 `hcl:"envelope,optional"`
}

type genericBlock struct {
	Kind   string `hcl:"kind"`
	Source string `hcl:"source"`
}

type templateBlock struct {
	Label string `hcl:"label,label"`
	Path  string `hcl:"path"`
}

type connectionBlock struct {
	Name  string         `hcl:"name,label"`
	Pairs hcl.Expression `hcl:"pairs"`
}

// Load orchestrates the configuration loading: discover files, decode every
// block, merge into the model, validate. Duplicate keys across files are
// structural errors.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.findConfigFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	model := &config.Model{
		Groups:      make(map[string]string),
		Parts:       make(map[string]*config.Part),
		Stacks:      make(map[string]*config.Stack),
		BlendLinks:  make(map[string][]string),
		SuffixRules: make(map[string]string),
		Connections: make(map[string]*config.Connection),
	}

	parser := hclparse.NewParser()
	sawProject := false

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, report.Fatal("failed to parse %s: %s", file, diags.Error())
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, report.Fatal("failed to decode %s: %s", file, diags.Error())
		}

		if err := l.merge(model, &root, file, &sawProject); err != nil {
			return nil, err
		}
	}

	if !sawProject {
		return nil, report.Fatal("no project block found in %v", paths)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded.",
		"parts", len(model.Parts), "stacks", len(model.Stacks),
		"templates", len(model.Templates), "connections", len(model.Connections))
	return model, nil
}

// merge folds one decoded file into the model.
func (l *Loader) merge(model *config.Model, root *fileRoot, file string, sawProject *bool) error {
	for _, project := range root.Projects {
		if *sawProject {
			return report.Fatal("%s: more than one project block", file)
		}
		*sawProject = true
		model.Project = config.Project{
			Asset:            project.Asset,
			ProjectDirectory: project.ProjectDirectory,
			SubFolders:       project.SubFolders,
		}
	}

	for _, group := range root.Groups {
		if _, dup := model.Groups[group.Kind]; dup {
			return report.Fatal("%s: duplicate group block %q", file, group.Kind)
		}
		model.Groups[group.Kind] = group.Node
	}

	for _, part := range root.Parts {
		if _, dup := model.Parts[part.Name]; dup {
			return report.Fatal("%s: duplicate part block %q", file, part.Name)
		}
		aliases, err := stringMap(part.Aliases)
		if err != nil {
			return report.Fatal("%s: part %q aliases: %v", file, part.Name, err)
		}
		model.Parts[part.Name] = &config.Part{
			Name:      part.Name,
			Reference: part.Reference,
			Groups:    part.Groups,
			Aliases:   aliases,
		}
		model.PartOrder = append(model.PartOrder, part.Name)
	}

	for _, link := range root.BlendLinks {
		if _, dup := model.BlendLinks[link.Source]; dup {
			return report.Fatal("%s: duplicate blendshape_link block %q", file, link.Source)
		}
		model.BlendLinks[link.Source] = link.Targets
		model.BlendLinkOrder = append(model.BlendLinkOrder, link.Source)
	}

	for _, rule := range root.SuffixRules {
		if _, dup := model.SuffixRules[rule.Suffix]; dup {
			return report.Fatal("%s: duplicate suffix_rule block %q", file, rule.Suffix)
		}
		model.SuffixRules[rule.Suffix] = rule.Kind
	}

	for _, stack := range root.Stacks {
		if _, dup := model.Stacks[stack.Mesh]; dup {
			return report.Fatal("%s: duplicate stack block %q", file, stack.Mesh)
		}
		translated, err := translateStack(stack)
		if err != nil {
			return report.Fatal("%s: stack %q: %v", file, stack.Mesh, err)
		}
		model.Stacks[stack.Mesh] = translated
		model.StackOrder = append(model.StackOrder, stack.Mesh)
	}

	for _, tmpl := range root.Templates {
		model.Templates = append(model.Templates, config.Template{Label: tmpl.Label, Path: tmpl.Path})
	}

	for _, conn := range root.Connections {
		if _, dup := model.Connections[conn.Name]; dup {
			return report.Fatal("%s: duplicate connection block %q", file, conn.Name)
		}
		pairs, err := stringMap(conn.Pairs)
		if err != nil {
			return report.Fatal("%s: connection %q pairs: %v", file, conn.Name, err)
		}
		order := make([]string, 0, len(pairs))
		for key := range pairs {
			order = append(order, key)
		}
		sort.Strings(order)
		model.Connections[conn.Name] = &config.Connection{
			Name:      conn.Name,
			Pairs:     pairs,
			PairOrder: order,
		}
	}

	return nil
}

// translateStack turns a decoded stack block into the model's tagged-union
// form. A deformer with both a skin and a generic block is ambiguous.
func translateStack(block *stackBlock) (*config.Stack, error) {
	stack := &config.Stack{Mesh: block.Mesh}
	for _, def := range block.Deformers {
		if def.Skin != nil && def.Generic != nil {
			return nil, fmt.Errorf("deformer %q declares both skin and generic parameters", def.Name)
		}
		entry := config.DeformerEntry{Name: def.Name}
		switch {
		case def.Skin != nil:
			envelope := 1.0
			if def.Skin.Envelope != nil {
				envelope = *def.Skin.Envelope
			}
			entry.Params = config.SkinParams{
				Joints:       def.Skin.Joints,
				UseHierarchy: def.Skin.UseHierarchy,
				Envelope:     envelope,
			}
		case def.Generic != nil:
			entry.Params = config.GenericParams{
				Kind:   def.Generic.Kind,
				Source: def.Generic.Source,
			}
		}
		stack.Deformers = append(stack.Deformers, entry)
	}
	return stack, nil
}

// stringMap evaluates an HCL expression into a string-to-string map. A nil
// or absent expression yields an empty map.
func stringMap(expr hcl.Expression) (map[string]string, error) {
	out := make(map[string]string)
	if expr == nil {
		return out, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s", diags.Error())
	}
	if val.IsNull() {
		return out, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("expected a map of strings, got %s", val.Type().FriendlyName())
	}
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		if key.Type() != cty.String || elem.Type() != cty.String {
			return nil, fmt.Errorf("expected string keys and values")
		}
		out[key.AsString()] = elem.AsString()
	}
	return out, nil
}

// findConfigFiles walks the given paths and returns every .hcl file found,
// deterministically ordered.
func (l *Loader) findConfigFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, dup := seen[p]; !dup {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(all)
	return all, nil
}
