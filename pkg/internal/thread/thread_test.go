package thread

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deweblabs/depost/pkg/internal/models"
)

func post(id, parentID string, at int64) models.Post {
	return models.Post{
		ID:        id,
		ParentID:  parentID,
		Content:   "post " + id,
		Author:    "a@b.com",
		Timestamp: time.Unix(at, 0),
	}
}

func ids(nodes []*Node) []string {
	return lo.Map(nodes, func(node *Node, _ int) string {
		return node.Post.ID
	})
}

func TestBuildOrdering(t *testing.T) {
	posts := []models.Post{
		post("A", "", 10),
		post("B", "A", 20),
		post("C", "A", 15),
		post("D", "", 30),
	}

	roots := Build(posts)

	// Roots newest first, replies oldest first.
	require.Empty(t, cmp.Diff([]string{"D", "A"}, ids(roots)))
	nodeA := roots[1]
	require.Empty(t, cmp.Diff([]string{"C", "B"}, ids(nodeA.Replies)))
}

func TestBuildNestedReplies(t *testing.T) {
	posts := []models.Post{
		post("root", "", 1),
		post("r1", "root", 2),
		post("r1a", "r1", 3),
		post("r1b", "r1", 4),
		post("r2", "root", 5),
	}

	roots := Build(posts)
	require.Len(t, roots, 1)

	assert.Equal(t, []string{"r1", "r2"}, ids(roots[0].Replies))
	assert.Equal(t, []string{"r1a", "r1b"}, ids(roots[0].Replies[0].Replies))
}

func TestBuildOrphanBecomesRoot(t *testing.T) {
	posts := []models.Post{
		post("A", "", 10),
		post("lost", "QmGone", 20),
	}

	roots := Build(posts)

	assert.Equal(t, []string{"lost", "A"}, ids(roots))
}

func TestBuildSelfReference(t *testing.T) {
	posts := []models.Post{post("loop", "loop", 5)}

	roots := Build(posts)

	require.Len(t, roots, 1)
	assert.Equal(t, "loop", roots[0].Post.ID)
	assert.Empty(t, roots[0].Replies)
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestWalkDepths(t *testing.T) {
	posts := []models.Post{
		post("root", "", 1),
		post("r1", "root", 2),
		post("r1a", "r1", 3),
	}

	type visit struct {
		ID    string
		Depth int
	}
	var visits []visit
	Walk(Build(posts), func(node *Node, depth int) {
		visits = append(visits, visit{node.Post.ID, depth})
	})

	want := []visit{{"root", 0}, {"r1", 1}, {"r1a", 2}}
	assert.Empty(t, cmp.Diff(want, visits))
}
