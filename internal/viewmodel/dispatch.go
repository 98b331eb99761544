package viewmodel

import (
	"context"

	"github.com/roach88/roster/internal/student"
)

// AddRecord queues an insert of a new record.
//
// The returned error covers only rejection at the intent boundary: a
// ValidationError for an empty name or course, or student.ErrDisposed.
// The write itself happens later; its outcome shows up as a new snapshot.
func (c *Controller) AddRecord(name, course string) error {
	d, err := student.NewDraft(name, course)
	if err != nil {
		return err
	}
	return c.dispatch(Intent{Kind: IntentAdd, Name: d.Name, Course: d.Course})
}

// UpdateRecord queues a replacement of the name and course of record id.
// Rejection rules match AddRecord.
func (c *Controller) UpdateRecord(id int64, name, course string) error {
	rec := student.Record{ID: id, Name: name, Course: course}.Normalized()
	if err := rec.Validate(); err != nil {
		return err
	}
	return c.dispatch(Intent{Kind: IntentUpdate, RecordID: id, Name: rec.Name, Course: rec.Course})
}

// DeleteRecord queues removal of record id.
// It is rejected only after disposal.
func (c *Controller) DeleteRecord(id int64) error {
	return c.dispatch(Intent{Kind: IntentDelete, RecordID: id})
}

func (c *Controller) dispatch(in Intent) error {
	if c.disposed.IsSet() {
		return student.ErrDisposed
	}
	in.ID = c.ids.Generate()
	if !c.intents.Enqueue(job{intent: in}) {
		// Lost a race with Dispose.
		return student.ErrDisposed
	}
	c.logger.Debug("intent queued", "intent", in)
	return nil
}

// Settle blocks until every intent queued before the call has run, or ctx
// ends. It does not wait for the resulting snapshot; watch Changed for that.
func (c *Controller) Settle(ctx context.Context) error {
	barrier := make(chan struct{})
	if !c.intents.Enqueue(job{barrier: barrier}) {
		// Disposed: the worker is draining whatever is left.
		barrier = c.drained
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// work is the single intent worker. Intents run one at a time in the order
// they were queued.
//
// ERROR HANDLING: a failed intent is reported and the worker moves on.
// There is no retry.
func (c *Controller) work(ctx context.Context) {
	defer close(c.drained)

	for {
		j, ok := c.intents.TryDequeue()
		if ok {
			if j.barrier != nil {
				close(j.barrier)
				continue
			}
			c.execute(ctx, j.intent)
			continue
		}

		<-c.intents.Wait()
		if c.intents.Drained() {
			c.logger.Debug("intent worker stopped")
			return
		}
	}
}

func (c *Controller) execute(ctx context.Context, in Intent) {
	var err error
	switch in.Kind {
	case IntentAdd:
		var rec student.Record
		rec, err = c.source.Insert(ctx, student.Draft{Name: in.Name, Course: in.Course})
		in.RecordID = rec.ID
	case IntentUpdate:
		err = c.source.Update(ctx, student.Record{ID: in.RecordID, Name: in.Name, Course: in.Course})
	case IntentDelete:
		err = c.source.Delete(ctx, in.RecordID)
	}

	if err == nil {
		c.logger.Debug("intent done", "intent", in)
		return
	}

	if c.onFailure != nil {
		c.onFailure(IntentError{Intent: in, Err: err})
		return
	}
	c.logger.Warn("intent failed", "intent", in, "error", err, "code", student.Code(err))
}
