package vehicle

import "github.com/kilianp07/fleetcore/core/model"

// CommandQueue holds the movement commands of one route and a forward-only
// cursor. It is not safe for concurrent use; the owning poll cycle
// serializes access.
type CommandQueue struct {
	commands []model.MovementCommand
	cursor   int
}

// NewCommandQueue turns route into commands. Every command but the last
// carries NOP, the last one carries operation.
func NewCommandQueue(route *model.Route, operation string) *CommandQueue {
	q := &CommandQueue{}
	if route == nil {
		return q
	}
	final, _ := route.Destination()
	q.commands = make([]model.MovementCommand, len(route.Steps))
	for i, step := range route.Steps {
		op := model.OperationNOP
		if i == len(route.Steps)-1 && operation != "" {
			op = operation
		}
		q.commands[i] = model.MovementCommand{Step: step, Operation: op, FinalDestination: final.Name}
	}
	return q
}

// Current returns the command at the cursor.
func (q *CommandQueue) Current() (model.MovementCommand, bool) {
	if q.Done() {
		return model.MovementCommand{}, false
	}
	return q.commands[q.cursor], true
}

// Advance moves the cursor forward and reports whether a command remains.
func (q *CommandQueue) Advance() bool {
	if q.cursor < len(q.commands) {
		q.cursor++
	}
	return !q.Done()
}

func (q *CommandQueue) Done() bool  { return q.cursor >= len(q.commands) }
func (q *CommandQueue) Len() int    { return len(q.commands) }
func (q *CommandQueue) Cursor() int { return q.cursor }
