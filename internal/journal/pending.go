package journal

import "context"

// Pending tracks the background store call behind one optimistic mutation.
type Pending struct {
	Op Op
	ID int64

	done   chan struct{}
	notice string
}

func newPending(op Op, id int64) *Pending {
	return &Pending{Op: op, ID: id, done: make(chan struct{})}
}

func (p *Pending) resolve(notice string) {
	p.notice = notice
	close(p.done)
}

// Done is closed once the store call has been acknowledged or rolled back.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait returns nil when the store accepted the change and ErrRolledBack when
// the change was reverted. It returns ctx.Err() if ctx ends first; the
// mutation keeps running in that case.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		if p.notice != "" {
			return ErrRolledBack
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notice is the rollback message, empty on success or while still pending.
func (p *Pending) Notice() string {
	select {
	case <-p.done:
		return p.notice
	default:
		return ""
	}
}
