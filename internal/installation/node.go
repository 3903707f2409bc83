// SPDX-License-Identifier: MPL-2.0

package installation

import (
	"context"
	"fmt"
	"maps"
)

// LocalNodeName is the name reported by LocalNode.
const LocalNodeName = "built-in"

type (
	// Node translates installation homes into the filesystem view of the
	// machine that runs the process. Implementations may block on remote I/O.
	Node interface {
		Name() string
		TranslateHome(ctx context.Context, inst Installation) (string, error)
	}

	// LocalNode is the node the process itself runs on; homes are used as is.
	LocalNode struct{}

	// ToolLocationNode overrides installation homes by installation name.
	// Installations without an override keep their configured home.
	ToolLocationNode struct {
		NodeName string
		Homes    map[string]string
	}
)

// Name implements Node.
func (LocalNode) Name() string { return LocalNodeName }

// TranslateHome implements Node.
func (LocalNode) TranslateHome(_ context.Context, inst Installation) (string, error) {
	return inst.Home, nil
}

// NewToolLocationNode creates a node with a private copy of homes.
func NewToolLocationNode(name string, homes map[string]string) *ToolLocationNode {
	return &ToolLocationNode{NodeName: name, Homes: maps.Clone(homes)}
}

// Name implements Node.
func (n *ToolLocationNode) Name() string { return n.NodeName }

// TranslateHome implements Node.
func (n *ToolLocationNode) TranslateHome(ctx context.Context, inst Installation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("translate home of %q for node %q: %w", inst.Name, n.NodeName, err)
	}
	if home, ok := n.Homes[inst.Name]; ok && home != "" {
		return home, nil
	}
	return inst.Home, nil
}

// ForNode returns a copy whose Home has been translated by node.
func (i Installation) ForNode(ctx context.Context, node Node) (Installation, error) {
	if node == nil {
		return i, nil
	}
	home, err := node.TranslateHome(ctx, i)
	if err != nil {
		return Installation{}, err
	}
	i.Home = home
	return i, nil
}
