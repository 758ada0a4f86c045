package workers

import (
	"database/sql"
	"log"
	"time"
)

// JanitorWorker is the reconciliation sweep behind the delete cascades. The
// audit tables deliberately carry no foreign keys to their parents, and a
// crash between a parent delete and its children leaves remnants; the janitor
// deletes whatever no longer has a parent.
type JanitorWorker struct {
	PG       *sql.DB
	Interval time.Duration

	// Mirrors the workspace-delete cascade scope: when tasks or assets are
	// not cascaded, the sweep must not remove them either.
	CascadeKanbanTasks bool
	CascadeAssets      bool
}

func NewJanitorWorker(pg *sql.DB, interval time.Duration, cascadeTasks, cascadeAssets bool) *JanitorWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &JanitorWorker{
		PG:                 pg,
		Interval:           interval,
		CascadeKanbanTasks: cascadeTasks,
		CascadeAssets:      cascadeAssets,
	}
}

// StartJanitorWorker sweeps once immediately, then on every tick. It never
// returns.
func (w *JanitorWorker) StartJanitorWorker() {
	w.Sweep()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for range ticker.C {
		w.Sweep()
	}
}

type sweepStep struct {
	name  string
	query string
}

// Sweep runs one reconciliation pass.
func (w *JanitorWorker) Sweep() {
	steps := []sweepStep{
		{"orphaned ticket events", `
			DELETE FROM ticket_events e
			WHERE NOT EXISTS (SELECT 1 FROM tickets t WHERE t.id = e.ticket_id)`},
		{"orphaned ticket comments", `
			DELETE FROM ticket_comments c
			WHERE NOT EXISTS (SELECT 1 FROM tickets t WHERE t.id = c.ticket_id)`},
		{"orphaned kanban events", `
			DELETE FROM kanban_events e
			WHERE NOT EXISTS (SELECT 1 FROM kanban_tasks t WHERE t.id = e.task_id)`},
		{"orphaned kanban comments", `
			DELETE FROM kanban_comments c
			WHERE NOT EXISTS (SELECT 1 FROM kanban_tasks t WHERE t.id = c.task_id)`},
		{"tickets without a workspace", `
			DELETE FROM tickets t
			WHERE NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = t.workspace_id)`},
		{"workspace members without a workspace", `
			DELETE FROM workspace_members m
			WHERE NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = m.workspace_id)`},
		{"workspace requests without a workspace", `
			DELETE FROM workspace_requests r
			WHERE NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = r.workspace_id)`},
		{"workspace messages without a workspace", `
			DELETE FROM messages m
			WHERE m.workspace_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = m.workspace_id)`},
	}

	if w.CascadeKanbanTasks {
		steps = append(steps, sweepStep{"kanban tasks without a workspace", `
			DELETE FROM kanban_tasks t
			WHERE NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = t.workspace_id)`})
	}
	if w.CascadeAssets {
		steps = append(steps, sweepStep{"assets without a workspace", `
			DELETE FROM assets a
			WHERE a.workspace_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = a.workspace_id)`})
	} else {
		// Out-of-scope assets fall back to the company vault.
		steps = append(steps, sweepStep{"asset workspace references", `
			UPDATE assets a SET workspace_id = NULL
			WHERE a.workspace_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = a.workspace_id)`})
	}

	for _, step := range steps {
		res, err := w.PG.Exec(step.query)
		if err != nil {
			log.Printf("janitor: %s sweep failed: %v", step.name, err)
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("janitor: removed %d %s", n, step.name)
		}
	}
}
