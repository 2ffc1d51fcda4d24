package grammar

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	ts_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
	ts_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ts_yaml "github.com/tree-sitter-grammars/tree-sitter-yaml/bindings/go"
)

func goLang() *tree_sitter.Language { return tree_sitter.NewLanguage(unsafe.Pointer(ts_go.Language())) }
func pyLang() *tree_sitter.Language { return tree_sitter.NewLanguage(unsafe.Pointer(ts_python.Language())) }
func jsonLang() *tree_sitter.Language {
	return tree_sitter.NewLanguage(unsafe.Pointer(ts_json.Language()))
}
func yamlLang() *tree_sitter.Language {
	return tree_sitter.NewLanguage(unsafe.Pointer(ts_yaml.Language()))
}

// Builtin returns a registry with the grammars compiled into this module:
// go, json, python and yaml, plus their common aliases and file matchers.
func Builtin() *Registry {
	r := NewRegistry()

	r.RegisterStatic("go", goLang())
	r.RegisterStatic("json", jsonLang())
	r.RegisterStatic("python", pyLang())
	r.RegisterStatic("yaml", yamlLang())

	r.Alias("golang", "go")
	r.Alias("jsonc", "json")
	r.Alias("py", "python")
	r.Alias("yml", "yaml")

	r.RegisterMatcher(Matcher{LanguageID: "go", Extensions: []string{".go"}})
	r.RegisterMatcher(Matcher{LanguageID: "json", Extensions: []string{".json", ".jsonc"}, Filenames: []string{".babelrc"}})
	r.RegisterMatcher(Matcher{LanguageID: "python", Extensions: []string{".py", ".pyi"}})
	r.RegisterMatcher(Matcher{LanguageID: "yaml", Extensions: []string{".yaml", ".yml"}, Pattern: ".github/workflows/*"})

	return r
}
