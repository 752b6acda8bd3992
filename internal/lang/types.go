package lang

// ExtractedSymbol is one declaration found in a file, before identity
// hashing assigns it a symbolId (spec §3, Symbol; spec §4.4 extractSymbols).
type ExtractedSymbol struct {
	Name          string
	Kind          string // function, class, method, variable, const, type, interface, enum, module
	StartLine     int
	StartColumn   int
	EndLine       int
	EndColumn     int
	ContainerName string
	Signature     string
}

// ExtractedImport is one import/use statement (spec §4.4 extractImports).
// Source is the raw module specifier as written; ImportedName is the local
// bound identifier. Namespace imports (`import * as ns from "m"`) set
// Namespace true and ImportedName to the namespace alias.
type ExtractedImport struct {
	Source       string
	ImportedName string
	Namespace    bool
}

// ExtractedCall is one call-expression site (spec §4.4 extractCalls).
// Qualifier is the receiver/namespace identifier for a qualified call
// (`ns.member(...)`), empty for a bare call.
type ExtractedCall struct {
	CalleeName  string
	Qualifier   string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// ResolutionContext supplies the three lookup maps the resolution ladder
// consults, in order (spec §4.4).
type ResolutionContext struct {
	ImportedNameToSymbolIDs map[string][]string
	NamespaceImports        map[string]map[string]string
	NameToSymbolIDs         map[string][]string
	Call                    ExtractedCall
}

// ResolutionResult is the outcome of resolveCall (spec §4.4).
type ResolutionResult struct {
	IsResolved      bool
	Strategy        string // exact, heuristic, unresolved
	TargetSymbolIDs []string
	CandidateCount  int
}
