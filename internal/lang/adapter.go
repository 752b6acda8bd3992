package lang

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Adapter is the capability set spec §4.4 requires of a language adapter:
// parse, extractSymbols, extractImports, extractCalls, resolveCall. Unlike
// SimplyLiz-CodeMCP/internal/complexity.Parser, which wraps one
// *sitter.Parser field reused across calls, Adapter allocates a fresh
// *sitter.Parser per Parse call — the teacher's shared-parser shape is not
// safe when internal/parserpool runs many files concurrently across
// workers, and sitter.Parser carries mutable per-parse state.
type Adapter struct {
	language Language
	grammar  *sitter.Language
	spec     nodeSpec
}

// newAdapter constructs the Adapter for one language. Call sites must not
// invoke this directly — use Registry.For, which applies the lazy,
// call-once-per-extension factory semantics spec §4.4 describes.
func newAdapter(l Language) (*Adapter, error) {
	grammar, err := grammarFor(l)
	if err != nil {
		return nil, err
	}
	spec, ok := specs[l]
	if !ok {
		return nil, fmt.Errorf("sdlctl: no extraction table for language %q", l)
	}
	return &Adapter{language: l, grammar: grammar, spec: spec}, nil
}

// LanguageID returns the adapter's language tag.
func (a *Adapter) LanguageID() Language { return a.language }

// Parse parses source bytes into a tree-sitter AST root node.
func (a *Adapter) Parse(ctx context.Context, content []byte) (*sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(a.grammar)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: parsing %s source: %w", a.language, err)
	}
	return tree.RootNode(), nil
}

// ExtractSymbols walks the tree for function/method and type declarations.
func (a *Adapter) ExtractSymbols(root *sitter.Node, content []byte) []ExtractedSymbol {
	var out []ExtractedSymbol
	out = append(out, a.extractFunctions(root, content)...)
	out = append(out, a.extractTypes(root, content)...)
	return out
}

func (a *Adapter) extractFunctions(root *sitter.Node, content []byte) []ExtractedSymbol {
	var out []ExtractedSymbol
	for _, node := range findNodes(root, a.spec.functionTypes) {
		name := a.declName(node, content)
		if name == "" {
			continue
		}
		kind, container := a.classifyFunction(node, content)
		out = append(out, ExtractedSymbol{
			Name:          name,
			Kind:          kind,
			StartLine:     int(node.StartPoint().Row) + 1,
			StartColumn:   int(node.StartPoint().Column),
			EndLine:       int(node.EndPoint().Row) + 1,
			EndColumn:     int(node.EndPoint().Column),
			ContainerName: container,
			Signature:     firstLine(content, node),
		})
	}
	return out
}

func (a *Adapter) extractTypes(root *sitter.Node, content []byte) []ExtractedSymbol {
	var out []ExtractedSymbol
	for _, node := range findNodes(root, a.spec.typeTypes) {
		name := a.declName(node, content)
		if name == "" {
			continue
		}
		out = append(out, ExtractedSymbol{
			Name:        name,
			Kind:        classifyTypeKind(a.language, node.Type()),
			StartLine:   int(node.StartPoint().Row) + 1,
			StartColumn: int(node.StartPoint().Column),
			EndLine:     int(node.EndPoint().Row) + 1,
			EndColumn:   int(node.EndPoint().Column),
			Signature:   firstLine(content, node),
		})
	}
	return out
}

// declName extracts a declaration node's identifier, preferring the
// language's uniform name field and falling back to the first identifier
// child for languages (Go, Kotlin) where the field is absent or unreliable.
func (a *Adapter) declName(node *sitter.Node, content []byte) string {
	if a.spec.nameField != "" {
		if n := node.ChildByFieldName(a.spec.nameField); n != nil {
			return string(content[n.StartByte():n.EndByte()])
		}
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "simple_identifier", "field_identifier":
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// classifyFunction distinguishes a method from a plain function and, for
// methods, extracts the receiver/class name as the containerName (spec §3,
// Symbol.kind ∈ {function, method, ...}).
func (a *Adapter) classifyFunction(node *sitter.Node, content []byte) (kind string, container string) {
	switch a.language {
	case LangGo:
		if node.Type() != "method_declaration" {
			return "function", ""
		}
		recv := node.ChildByFieldName("receiver")
		return "method", receiverTypeName(recv, content)

	case LangJavaScript, LangJSX, LangTypeScript, LangTSX:
		if node.Type() != "method_definition" {
			return "function", ""
		}
		return "method", enclosingClassName(node, content, "class_declaration")

	case LangPython:
		for p := node.Parent(); p != nil; p = p.Parent() {
			if p.Type() == "class_definition" {
				return "method", nameOf(p, content)
			}
		}
		return "function", ""

	case LangJava, LangCSharp:
		for p := node.Parent(); p != nil; p = p.Parent() {
			if p.Type() == "class_declaration" {
				return "method", nameOf(p, content)
			}
		}
		return "function", ""

	default:
		return "function", ""
	}
}

func nameOf(node *sitter.Node, content []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return string(content[n.StartByte():n.EndByte()])
	}
	return ""
}

func receiverTypeName(recv *sitter.Node, content []byte) string {
	if recv == nil {
		return ""
	}
	var walk func(*sitter.Node) string
	walk = func(n *sitter.Node) string {
		if n.Type() == "type_identifier" {
			return string(content[n.StartByte():n.EndByte()])
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			if name := walk(n.Child(int(i))); name != "" {
				return name
			}
		}
		return ""
	}
	return walk(recv)
}

func enclosingClassName(node *sitter.Node, content []byte, classType string) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == classType {
			return nameOf(p, content)
		}
	}
	return ""
}

func classifyTypeKind(l Language, nodeType string) string {
	switch l {
	case LangJavaScript, LangJSX, LangTypeScript, LangTSX, LangCSharp, LangJava, LangKotlin, LangPHP:
		switch nodeType {
		case "interface_declaration":
			return "interface"
		case "enum_declaration", "enum_specifier":
			return "enum"
		case "struct_declaration", "struct_specifier":
			return "type"
		default:
			return "class"
		}
	case LangPython:
		return "class"
	case LangRust:
		switch nodeType {
		case "struct_item":
			return "type"
		case "enum_item":
			return "enum"
		case "trait_item":
			return "interface"
		default:
			return "type"
		}
	case LangC, LangCPP:
		switch nodeType {
		case "class_specifier":
			return "class"
		case "enum_specifier":
			return "enum"
		default:
			return "type"
		}
	default:
		return "type"
	}
}

// ExtractImports walks the tree for import/use statements.
func (a *Adapter) ExtractImports(root *sitter.Node, content []byte) []ExtractedImport {
	var out []ExtractedImport
	for _, node := range findNodes(root, a.spec.importTypes) {
		out = append(out, a.extractImportsFromNode(node, content)...)
	}
	return out
}

func (a *Adapter) extractImportsFromNode(node *sitter.Node, content []byte) []ExtractedImport {
	text := func(n *sitter.Node) string { return string(content[n.StartByte():n.EndByte()]) }

	switch a.language {
	case LangGo:
		pathNode := node.ChildByFieldName("path")
		nameNode := node.ChildByFieldName("name")
		if pathNode == nil {
			return nil
		}
		src := strings.Trim(text(pathNode), `"`)
		parts := strings.Split(src, "/")
		local := parts[len(parts)-1]
		namespace := true
		if nameNode != nil {
			local = text(nameNode)
		}
		return []ExtractedImport{{Source: src, ImportedName: local, Namespace: namespace}}

	case LangJavaScript, LangJSX, LangTypeScript, LangTSX:
		var source string
		if src := node.ChildByFieldName("source"); src != nil {
			source = strings.Trim(text(src), `"'`)
		}
		var out []ExtractedImport
		var walk func(*sitter.Node)
		walk = func(n *sitter.Node) {
			switch n.Type() {
			case "import_specifier":
				name := n
				if alias := n.ChildByFieldName("alias"); alias != nil {
					name = alias
				} else if nm := n.ChildByFieldName("name"); nm != nil {
					name = nm
				}
				out = append(out, ExtractedImport{Source: source, ImportedName: text(name)})
			case "namespace_import":
				if nm := n.ChildByFieldName("name"); nm != nil {
					out = append(out, ExtractedImport{Source: source, ImportedName: text(nm), Namespace: true})
				}
			case "identifier":
				if n.Parent() != nil && n.Parent().Type() == "import_clause" {
					out = append(out, ExtractedImport{Source: source, ImportedName: text(n)})
				}
			}
			for i := uint32(0); i < n.ChildCount(); i++ {
				walk(n.Child(int(i)))
			}
		}
		walk(node)
		return out

	case LangPython:
		var out []ExtractedImport
		var moduleName string
		if n := node.ChildByFieldName("module_name"); n != nil {
			moduleName = text(n)
		}
		var walk func(*sitter.Node)
		walk = func(n *sitter.Node) {
			switch n.Type() {
			case "dotted_name":
				if n.Parent() == node {
					src := text(n)
					local := src
					if i := strings.LastIndex(src, "."); i >= 0 {
						local = src[i+1:]
					}
					out = append(out, ExtractedImport{Source: src, ImportedName: local, Namespace: moduleName == ""})
				}
			case "aliased_import":
				if alias := n.ChildByFieldName("alias"); alias != nil {
					nm := n.ChildByFieldName("name")
					src := moduleName
					if nm != nil && src == "" {
						src = text(nm)
					}
					out = append(out, ExtractedImport{Source: src, ImportedName: text(alias), Namespace: moduleName == ""})
				}
			}
			for i := uint32(0); i < n.ChildCount(); i++ {
				walk(n.Child(int(i)))
			}
		}
		walk(node)
		if moduleName != "" && len(out) == 0 {
			var names func(*sitter.Node)
			names = func(n *sitter.Node) {
				if n.Type() == "dotted_name" || n.Type() == "identifier" {
					out = append(out, ExtractedImport{Source: moduleName, ImportedName: text(n)})
					return
				}
				for i := uint32(0); i < n.ChildCount(); i++ {
					names(n.Child(int(i)))
				}
			}
			for i := uint32(0); i < node.ChildCount(); i++ {
				names(node.Child(int(i)))
			}
		}
		return out

	case LangJava:
		src := strings.TrimSuffix(strings.TrimPrefix(text(node), "import "), ";")
		src = strings.TrimSpace(src)
		local := src
		if i := strings.LastIndex(src, "."); i >= 0 {
			local = src[i+1:]
		}
		return []ExtractedImport{{Source: src, ImportedName: local}}

	case LangRust:
		src := text(node)
		local := src
		if i := strings.LastIndex(src, "::"); i >= 0 {
			local = src[i+2:]
		}
		local = strings.TrimSuffix(strings.TrimSpace(local), ";")
		return []ExtractedImport{{Source: src, ImportedName: local}}

	default:
		return []ExtractedImport{{Source: text(node), ImportedName: text(node)}}
	}
}

// ExtractCalls walks the tree for call-expression sites.
func (a *Adapter) ExtractCalls(root *sitter.Node, content []byte) []ExtractedCall {
	var out []ExtractedCall
	for _, node := range findNodes(root, a.spec.callTypes) {
		call, ok := a.parseCall(node, content)
		if ok {
			out = append(out, call)
		}
	}
	return out
}

func (a *Adapter) parseCall(node *sitter.Node, content []byte) (ExtractedCall, bool) {
	text := func(n *sitter.Node) string { return string(content[n.StartByte():n.EndByte()]) }

	fn := node.ChildByFieldName("function")
	if fn == nil {
		fn = node.ChildByFieldName("name")
	}
	if fn == nil && node.ChildCount() > 0 {
		fn = node.Child(0)
	}
	if fn == nil {
		return ExtractedCall{}, false
	}

	callee := ExtractedCall{
		StartLine:   int(node.StartPoint().Row) + 1,
		StartColumn: int(node.StartPoint().Column),
		EndLine:     int(node.EndPoint().Row) + 1,
		EndColumn:   int(node.EndPoint().Column),
	}

	switch fn.Type() {
	case "member_expression", "attribute", "field_expression", "scoped_identifier":
		obj := fn.ChildByFieldName("object")
		if obj == nil {
			obj = fn.ChildByFieldName("value")
		}
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			prop = fn.ChildByFieldName("attribute")
		}
		if prop == nil {
			prop = fn.ChildByFieldName("field")
		}
		if prop == nil {
			prop = fn.ChildByFieldName("name")
		}
		if obj != nil && prop != nil {
			callee.Qualifier = text(obj)
			callee.CalleeName = text(prop)
			return callee, true
		}
		callee.CalleeName = text(fn)
		return callee, true

	case "selector_expression":
		if operand := fn.ChildByFieldName("operand"); operand != nil {
			if field := fn.ChildByFieldName("field"); field != nil {
				callee.Qualifier = text(operand)
				callee.CalleeName = text(field)
				return callee, true
			}
		}
		callee.CalleeName = text(fn)
		return callee, true

	default:
		callee.CalleeName = text(fn)
		return callee, true
	}
}

// ResolveCall implements spec §4.4's five-step resolution ladder, shared
// across every language: the ladder itself is language-agnostic, only the
// node walking that produced the call/import data above differs per
// grammar.
func (a *Adapter) ResolveCall(ctx ResolutionContext) ResolutionResult {
	return ResolveCall(ctx)
}

// ResolveCall is the free-function form of the resolution ladder, callable
// without constructing an Adapter (the indexer's global pass 2 resolves
// calls across every language in one pass, after the per-file, per-language
// extraction in pass 1 has already finished).
func ResolveCall(ctx ResolutionContext) ResolutionResult {
	call := ctx.Call

	if call.Qualifier != "" {
		if members, ok := ctx.NamespaceImports[call.Qualifier]; ok {
			if symbolID, ok := members[call.CalleeName]; ok {
				return ResolutionResult{IsResolved: true, Strategy: "exact", TargetSymbolIDs: []string{symbolID}}
			}
		}
	}

	if ids, ok := ctx.ImportedNameToSymbolIDs[call.CalleeName]; ok && len(ids) == 1 {
		return ResolutionResult{IsResolved: true, Strategy: "exact", TargetSymbolIDs: ids}
	}

	if ids, ok := ctx.NameToSymbolIDs[call.CalleeName]; ok && len(ids) > 0 {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		if len(sorted) == 1 {
			return ResolutionResult{IsResolved: true, Strategy: "heuristic", TargetSymbolIDs: sorted}
		}
		return ResolutionResult{
			IsResolved:      true,
			Strategy:        "heuristic",
			TargetSymbolIDs: []string{sorted[0]},
			CandidateCount:  len(sorted),
		}
	}

	return ResolutionResult{IsResolved: false, Strategy: "unresolved"}
}

func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	if root == nil || len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if typeSet[n.Type()] {
			result = append(result, n)
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(root)
	return result
}

func firstLine(content []byte, node *sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(content) {
		end = uint32(len(content))
	}
	chunk := content[start:end]
	if i := strings.IndexByte(string(chunk), '\n'); i >= 0 {
		chunk = chunk[:i]
	}
	if len(chunk) > 200 {
		chunk = chunk[:200]
	}
	return strings.TrimSpace(string(chunk))
}
