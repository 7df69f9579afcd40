package thread

import (
	"sort"

	"github.com/deweblabs/depost/pkg/internal/models"
)

// Node wraps a post with its ordered replies. Nodes are ephemeral: the
// forest is rebuilt from the flat post collection on every load and never
// persisted anywhere.
type Node struct {
	Post    models.Post
	Replies []*Node
}

// Build reconstructs the reply forest. A post whose parent reference does
// not resolve to any known post is kept as an orphaned root rather than
// dropped. Replies sort oldest-first (conversation order) while roots sort
// newest-first (feed order); both orderings are fixed policy.
func Build(posts []models.Post) []*Node {
	nodes := make(map[string]*Node, len(posts))
	for _, post := range posts {
		nodes[post.ID] = &Node{Post: post}
	}

	var roots []*Node
	for _, post := range posts {
		node := nodes[post.ID]
		if parent, ok := nodes[post.ParentID]; ok && !post.IsRoot() && post.ParentID != post.ID {
			parent.Replies = append(parent.Replies, node)
		} else {
			roots = append(roots, node)
		}
	}

	for _, root := range roots {
		sortReplies(root)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Post.Timestamp.After(roots[j].Post.Timestamp)
	})

	return roots
}

func sortReplies(node *Node) {
	sort.SliceStable(node.Replies, func(i, j int) bool {
		return node.Replies[i].Post.Timestamp.Before(node.Replies[j].Post.Timestamp)
	})
	for _, reply := range node.Replies {
		sortReplies(reply)
	}
}

// Walk visits every node of the forest depth-first, parents before their
// replies, carrying the nesting depth. Presentation layers may cap visual
// nesting; the forest itself has no depth limit.
func Walk(roots []*Node, visit func(node *Node, depth int)) {
	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		visit(node, depth)
		for _, reply := range node.Replies {
			walk(reply, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
}
