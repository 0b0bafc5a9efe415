package checker

import (
	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (c *Checker) checkStmts(stmts []ast.Node) error {
	for _, s := range stmts {
		if _, err := c.visit(s); err != nil {
			return err
		}
	}
	return nil
}

// scoped checks n in a fresh scope.
func (c *Checker) scoped(n ast.Node) error {
	if n == nil {
		return nil
	}
	c.ctx.ChangeScope()
	_, err := c.visit(n)
	if lerr := c.ctx.LeaveScope(); err == nil {
		err = fail(n, lerr)
	}
	return err
}

func (c *Checker) checkCompound(n *ast.Compound) error {
	c.ctx.ChangeScope()
	err := c.checkStmts(n.BlockItems)
	if lerr := c.ctx.LeaveScope(); err == nil {
		err = fail(n, lerr)
	}
	return err
}

// checkCond requires a controlling expression to reduce to bool.
func (c *Checker) checkCond(stmt string, cond ast.Node) error {
	t, err := c.visit(cond)
	if err != nil {
		return err
	}
	want := types.CondType()
	return c.require(cond, t, want, "Expected %s condition of type %s but found %s", stmt, want, t)
}

func (c *Checker) checkIf(n *ast.If) error {
	if err := c.checkCond("if", n.Cond); err != nil {
		return err
	}
	if err := c.scoped(n.IfTrue); err != nil {
		return err
	}
	return c.scoped(n.IfFalse)
}

func (c *Checker) checkWhile(n *ast.While) error {
	if err := c.checkCond("while", n.Cond); err != nil {
		return err
	}
	return c.scoped(n.Stmt)
}

func (c *Checker) checkDoWhile(n *ast.DoWhile) error {
	if err := c.scoped(n.Stmt); err != nil {
		return err
	}
	return c.checkCond("do-while", n.Cond)
}

func (c *Checker) checkFor(n *ast.For) error {
	c.ctx.ChangeScope()
	err := c.checkForClauses(n)
	if lerr := c.ctx.LeaveScope(); err == nil {
		err = fail(n, lerr)
	}
	return err
}

func (c *Checker) checkForClauses(n *ast.For) error {
	if _, err := c.visit(n.Init); err != nil {
		return err
	}
	if n.Cond != nil {
		if err := c.checkCond("for", n.Cond); err != nil {
			return err
		}
	}
	if _, err := c.visit(n.Next); err != nil {
		return err
	}
	return c.scoped(n.Stmt)
}

func (c *Checker) checkSwitch(n *ast.Switch) error {
	t, err := c.visit(n.Cond)
	if err != nil {
		return err
	}
	prev := c.ctx.SwitchType
	c.ctx.SwitchType = t
	defer func() { c.ctx.SwitchType = prev }()
	return c.scoped(n.Stmt)
}

func (c *Checker) checkCase(n *ast.Case) error {
	if c.ctx.SwitchType == nil {
		return diagnostic.Errorf(n, "Case label not within a switch statement")
	}
	t, err := c.visit(n.Expr)
	if err != nil {
		return err
	}
	want := c.ctx.SwitchType
	if err := c.require(n.Expr, t, want, "Case label of type %s does not reduce to %s", t, want); err != nil {
		return err
	}
	return c.checkStmts(n.Stmts)
}

func (c *Checker) checkReturn(n *ast.Return) error {
	fn, ok := c.ctx.CurrentFunction()
	if !ok {
		return diagnostic.Errorf(n, "return statement outside of a function")
	}

	t := types.New("void")
	if n.Expr != nil {
		var err error
		if t, err = c.visit(n.Expr); err != nil {
			return err
		}
	}
	return c.require(n, t, fn.Return, "Returning from %s expected %s but got %s", fn.Name, fn.Return, t)
}
