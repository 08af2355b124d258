package scanners

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// syntaxError locates the first parse error in content. ok is false when the
// content parses cleanly or the language has no grammar wired in.
type syntaxError struct {
	Line    int
	Column  int
	Message string
}

func checkSyntax(ctx context.Context, language, path, content string) (syntaxError, bool) {
	switch language {
	case "python":
		return treeSitterError(ctx, python.GetLanguage(), content)
	case "javascript":
		return treeSitterError(ctx, javascript.GetLanguage(), content)
	case "terraform":
		return hclError(path, content)
	}
	return syntaxError{}, false
}

func treeSitterError(ctx context.Context, lang *sitter.Language, content string) (syntaxError, bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, []byte(content))
	if err != nil {
		return syntaxError{}, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return syntaxError{}, false
	}
	node := firstErrorNode(root)
	if node == nil {
		return syntaxError{Line: 1, Message: "invalid syntax"}, true
	}
	pos := node.StartPoint()
	msg := "invalid syntax"
	if node.IsMissing() {
		msg = fmt.Sprintf("missing %q", node.Type())
	}
	return syntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Message: msg}, true
}

// firstErrorNode walks depth first, so the earliest error in the file wins.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

func hclError(path, content string) (syntaxError, bool) {
	_, diags := hclparse.NewParser().ParseHCL([]byte(content), path)
	if !diags.HasErrors() {
		return syntaxError{}, false
	}
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		se := syntaxError{Line: 1, Message: d.Summary}
		if d.Subject != nil {
			se.Line = d.Subject.Start.Line
			se.Column = d.Subject.Start.Column
		}
		return se, true
	}
	return syntaxError{Line: 1, Message: diags.Error()}, true
}
