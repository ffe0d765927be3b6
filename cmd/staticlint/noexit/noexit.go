// Package noexit defines an Analyzer that reports process termination
// (os.Exit, log.Fatal*, zap Fatal*) anywhere but in main.main.
package noexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer reports calls that terminate the process outside main.main. Only
// main.main decides the exit status, so deferred cleanup in the rest of the
// code always runs.
var Analyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "forbids os.Exit, log.Fatal and zap Fatal calls outside main.main",
	Run:  run,
}

var terminating = map[string]map[string]bool{
	"os":              {"Exit": true},
	"log":             {"Fatal": true, "Fatalf": true, "Fatalln": true},
	"go.uber.org/zap": {"Fatal": true, "Fatalf": true, "Fatalw": true, "Fatalln": true},
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) || strings.HasSuffix(filename, "_test.go") {
			continue
		}

		for _, decl := range file.Decls {
			if fn, ok := decl.(*ast.FuncDecl); ok && isMainMain(pass, fn) {
				continue
			}

			ast.Inspect(decl, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				if name, ok := terminatingCall(pass.TypesInfo, call); ok {
					pass.Reportf(call.Pos(), "%s called outside main.main", name)
				}
				return true
			})
		}
	}
	return nil, nil
}

func isMainMain(pass *analysis.Pass, fn *ast.FuncDecl) bool {
	return pass.Pkg.Name() == "main" && fn.Name.Name == "main" && fn.Recv == nil
}

func terminatingCall(info *types.Info, call *ast.CallExpr) (string, bool) {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}
	if !terminating[fn.Pkg().Path()][fn.Name()] {
		return "", false
	}
	return fn.Pkg().Name() + "." + fn.Name(), true
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
