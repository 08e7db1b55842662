package source

import "github.com/dop251/goja/ast"

// IsConsoleCall reports whether node is a bare statement of the form
// console.<method>(...). Aliased or indirect references to console do not match.
func IsConsoleCall(node ast.Statement) bool {
	stmt, ok := node.(*ast.ExpressionStatement)
	if !ok {
		return false
	}
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		return false
	}
	member, ok := call.Callee.(*ast.DotExpression)
	if !ok {
		return false
	}
	object, ok := member.Left.(*ast.Identifier)
	return ok && object.Name == "console"
}

// DeclaredNames returns the names a top-level statement binds in the global
// scope, in source order: let, const, var, function and class declarations,
// including names bound through destructuring patterns.
func DeclaredNames(node ast.Statement) []string {
	var names []string
	switch n := node.(type) {
	case *ast.LexicalDeclaration:
		for _, b := range n.List {
			names = bindingNames(b.Target, names)
		}
	case *ast.VariableStatement:
		for _, b := range n.List {
			names = bindingNames(b.Target, names)
		}
	case *ast.FunctionDeclaration:
		if n.Function != nil && n.Function.Name != nil {
			names = append(names, n.Function.Name.Name.String())
		}
	case *ast.ClassDeclaration:
		if n.Class != nil && n.Class.Name != nil {
			names = append(names, n.Class.Name.Name.String())
		}
	}
	return names
}

func bindingNames(target ast.Node, names []string) []string {
	switch t := target.(type) {
	case *ast.Identifier:
		names = append(names, t.Name.String())
	case *ast.ObjectPattern:
		for _, prop := range t.Properties {
			names = bindingNames(prop, names)
		}
		if t.Rest != nil {
			names = bindingNames(t.Rest, names)
		}
	case *ast.ArrayPattern:
		for _, elem := range t.Elements {
			if elem != nil {
				names = bindingNames(elem, names)
			}
		}
		if t.Rest != nil {
			names = bindingNames(t.Rest, names)
		}
	case *ast.PropertyShort:
		names = append(names, t.Name.Name.String())
	case *ast.PropertyKeyed:
		names = bindingNames(t.Value, names)
	case *ast.AssignExpression:
		names = bindingNames(t.Left, names)
	}
	return names
}
