package orgchart

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"orgchart-explorer/pkg/genesys"
)

// Node is one rendered position in the chart. Reports is nil until the node
// has been expanded at least once.
type Node struct {
	User     *genesys.User
	Reports  []*Node
	Expanded bool
}

// Explorer resolves the reporting hierarchy around a target user: the chain
// of superiors above it and the lazily expanded subtree of direct reports
// below it. The reporting graph is assumed acyclic; there is no cycle
// detection.
type Explorer struct {
	client *genesys.Client

	mutex     sync.Mutex
	target    *genesys.User
	superiors []*genesys.User
	root      *Node
}

func New(client *genesys.Client) *Explorer {
	return &Explorer{
		client: client,
	}
}

// Recenter makes user the new chart target. The previous superior chain and
// the subordinate roster are dropped before the new chain is fetched, so a
// reader never observes stale data next to the new target.
func (e *Explorer) Recenter(ctx context.Context, user *genesys.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("orgchart-explorer: recenter requires a user with an ID")
	}

	e.mutex.Lock()
	e.target = user
	e.superiors = nil
	e.root = &Node{User: user}
	e.mutex.Unlock()

	e.client.Roster().Clear()

	superiors, err := e.client.Superiors(ctx, user.ID)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	e.superiors = superiors
	e.mutex.Unlock()

	return nil
}

// Expand resolves the direct reports of one node. Expanding a node again
// re-fetches instead of trusting the cache, so the subtree reflects the live
// directory.
func (e *Explorer) Expand(ctx context.Context, node *Node) error {
	if node == nil || node.User == nil {
		return nil
	}

	reports, err := e.client.DirectReports(ctx, node.User.ID)
	if err != nil {
		return err
	}

	children := make([]*Node, 0, len(reports))
	for _, u := range reports {
		children = append(children, &Node{User: u})
	}

	e.mutex.Lock()
	node.Reports = children
	node.Expanded = true
	e.mutex.Unlock()

	return nil
}

// ExpandToDepth expands the subtree below the target level by level, up to
// depth levels deep. Nodes within one level expand concurrently; the
// scheduler still bounds the number of calls actually in flight.
func (e *Explorer) ExpandToDepth(ctx context.Context, depth int) error {
	root := e.Root()
	if root == nil {
		return nil
	}

	level := []*Node{root}
	for d := 0; d < depth && len(level) > 0; d++ {
		p := pool.New().WithErrors().WithContext(ctx)
		for _, node := range level {
			node := node
			p.Go(func(ctx context.Context) error {
				return e.Expand(ctx, node)
			})
		}
		if err := p.Wait(); err != nil {
			return err
		}

		var next []*Node
		e.mutex.Lock()
		for _, node := range level {
			next = append(next, node.Reports...)
		}
		e.mutex.Unlock()
		level = next
	}

	return nil
}

func (e *Explorer) Target() *genesys.User {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.target
}

func (e *Explorer) Root() *Node {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.root
}

// SuperiorChain returns the superiors of the current target from the top of
// the organization down to the immediate manager.
func (e *Explorer) SuperiorChain() []*genesys.User {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	out := make([]*genesys.User, len(e.superiors))
	for i, u := range e.superiors {
		out[len(e.superiors)-1-i] = u
	}
	return out
}

// Subordinates returns every direct report discovered since the last
// recenter, first seen first.
func (e *Explorer) Subordinates() []*genesys.User {
	return e.client.Roster().Snapshot()
}

// ExportRosterCSV writes the subordinate roster to w.
func (e *Explorer) ExportRosterCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "title", "department", "email", "id"}); err != nil {
		return fmt.Errorf("orgchart-explorer: error writing roster: %w", err)
	}

	for _, u := range e.Subordinates() {
		if err := cw.Write([]string{u.Name, u.Title, u.Department, u.Email, u.ID}); err != nil {
			return fmt.Errorf("orgchart-explorer: error writing roster: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
