package lang

// nodeSpec is the per-language table entry the teacher's treesitter.go
// expressed as four parallel switch statements (one per concern); folding
// them into one table keeps adding a language a one-entry change instead of
// four scattered edits.
type nodeSpec struct {
	functionTypes []string
	typeTypes     []string
	callTypes     []string
	importTypes   []string

	// nameField is the tree-sitter field name holding a declaration's
	// identifier, when uniform across the language's declaration kinds.
	nameField string
}

var specs = map[Language]nodeSpec{
	LangGo: {
		functionTypes: []string{"function_declaration", "method_declaration"},
		typeTypes:     []string{"type_spec"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_spec"},
		nameField:     "name",
	},
	LangJavaScript: {
		functionTypes: []string{"function_declaration", "method_definition", "arrow_function", "function_expression"},
		typeTypes:     []string{"class_declaration"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_statement"},
		nameField:     "name",
	},
	LangJSX: {
		functionTypes: []string{"function_declaration", "method_definition", "arrow_function", "function_expression"},
		typeTypes:     []string{"class_declaration"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_statement"},
		nameField:     "name",
	},
	LangTypeScript: {
		functionTypes: []string{"function_declaration", "method_definition", "arrow_function", "function_expression"},
		typeTypes:     []string{"class_declaration", "interface_declaration", "type_alias_declaration"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_statement"},
		nameField:     "name",
	},
	LangTSX: {
		functionTypes: []string{"function_declaration", "method_definition", "arrow_function", "function_expression"},
		typeTypes:     []string{"class_declaration", "interface_declaration", "type_alias_declaration"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_statement"},
		nameField:     "name",
	},
	LangPython: {
		functionTypes: []string{"function_definition"},
		typeTypes:     []string{"class_definition"},
		callTypes:     []string{"call"},
		importTypes:   []string{"import_statement", "import_from_statement"},
		nameField:     "name",
	},
	LangRust: {
		functionTypes: []string{"function_item"},
		typeTypes:     []string{"struct_item", "enum_item", "trait_item", "impl_item"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"use_declaration"},
		nameField:     "name",
	},
	LangJava: {
		functionTypes: []string{"method_declaration", "constructor_declaration"},
		typeTypes:     []string{"class_declaration", "interface_declaration", "enum_declaration"},
		callTypes:     []string{"method_invocation"},
		importTypes:   []string{"import_declaration"},
		nameField:     "name",
	},
	LangKotlin: {
		functionTypes: []string{"function_declaration"},
		typeTypes:     []string{"class_declaration", "object_declaration"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"import_header"},
	},
	LangCSharp: {
		functionTypes: []string{"method_declaration", "constructor_declaration", "local_function_statement"},
		typeTypes:     []string{"class_declaration", "interface_declaration", "struct_declaration", "enum_declaration"},
		callTypes:     []string{"invocation_expression"},
		importTypes:   []string{"using_directive"},
		nameField:     "name",
	},
	LangC: {
		functionTypes: []string{"function_definition"},
		typeTypes:     []string{"struct_specifier", "enum_specifier", "type_definition"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"preproc_include"},
	},
	LangCPP: {
		functionTypes: []string{"function_definition"},
		typeTypes:     []string{"struct_specifier", "class_specifier", "enum_specifier"},
		callTypes:     []string{"call_expression"},
		importTypes:   []string{"preproc_include"},
		nameField:     "name",
	},
	LangPHP: {
		functionTypes: []string{"function_definition", "method_declaration"},
		typeTypes:     []string{"class_declaration", "interface_declaration"},
		callTypes:     []string{"function_call_expression", "member_call_expression", "scoped_call_expression"},
		importTypes:   []string{"namespace_use_declaration"},
		nameField:     "name",
	},
	LangShell: {
		functionTypes: []string{"function_definition"},
		callTypes:     []string{"command"},
	},
}
