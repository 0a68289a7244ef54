package watch

import (
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"squirrel-go/internal/squirrel"
)

// entry is the coalesced state of one path.
type entry struct {
	kind squirrel.NotificationKind
	from string // rename source, NotifyRenamed only
	last time.Time
	seq  int
}

// departure is a path that was renamed away and may still be paired with the
// Create of its new name.
type departure struct {
	path  string
	prior *entry // coalesced state of path before it left, if any
	at    time.Time
	seq   int
}

// Coalescer folds raw fsnotify operations into one notification per path.
// A path is delivered once it has been quiet for the window:
//
//	Create, Write...           -> Created
//	Create ... Remove          -> nothing
//	Remove, Create             -> Written
//	Write ... Remove           -> Removed
//	Rename(a), Create(b)       -> Renamed(a, b)
//	Create(a), Rename(a->b)    -> Created(b)
//	Rename(a->b), Rename(b->c) -> Renamed(a, c)
//	Rename(a->b), Remove(b)    -> Removed(a)
//	Rename(a->b), Create(a), Remove(b) -> Written(a)
//	Rename(a) never paired     -> Removed(a)
//	Chmod alone                -> Other
//
// A Coalescer is not safe for concurrent use.
type Coalescer struct {
	window     time.Duration
	entries    map[string]*entry
	departures []departure
	seq        int
}

// NewCoalescer creates a Coalescer with the given quiet window.
func NewCoalescer(window time.Duration) *Coalescer {
	return &Coalescer{
		window:  window,
		entries: make(map[string]*entry),
	}
}

// Pending reports how many paths are waiting to be delivered.
func (c *Coalescer) Pending() int {
	return len(c.entries) + len(c.departures)
}

// Add records one raw operation on path at time now.
func (c *Coalescer) Add(op fsnotify.Op, path string, now time.Time) {
	// Renames are noted first so a combined Rename|Create on one path still pairs.
	if op.Has(fsnotify.Rename) {
		c.depart(path, now)
	}
	if op.Has(fsnotify.Create) {
		c.create(path, now)
	}
	if op.Has(fsnotify.Write) {
		c.write(path, now)
	}
	if op.Has(fsnotify.Remove) {
		c.remove(path, now)
	}
	if op.Has(fsnotify.Chmod) {
		if _, ok := c.entries[path]; !ok {
			c.set(path, squirrel.NotifyOther, "", now)
		}
	}
}

// Flush returns the notifications that have been quiet for the window, or
// all of them when force is set, in the order they were first seen.
func (c *Coalescer) Flush(now time.Time, force bool) []squirrel.Notification {
	type ready struct {
		seq int
		n   squirrel.Notification
	}
	var out []ready

	for path, e := range c.entries {
		if !force && now.Sub(e.last) < c.window {
			continue
		}
		delete(c.entries, path)
		out = append(out, ready{e.seq, squirrel.Notification{Kind: e.kind, Path: path, From: e.from}})
	}

	kept := c.departures[:0]
	for _, d := range c.departures {
		if !force && now.Sub(d.at) < c.window {
			kept = append(kept, d)
			continue
		}
		if n, ok := unpaired(d); ok {
			out = append(out, ready{d.seq, n})
		}
	}
	c.departures = kept

	slices.SortFunc(out, func(a, b ready) int { return a.seq - b.seq })
	notifications := make([]squirrel.Notification, len(out))
	for i, r := range out {
		notifications[i] = r.n
	}
	return notifications
}

// unpaired turns a rename that never found its destination into a removal.
func unpaired(d departure) (squirrel.Notification, bool) {
	if d.prior == nil {
		return squirrel.Notification{Kind: squirrel.NotifyRemoved, Path: d.path}, true
	}
	switch d.prior.kind {
	case squirrel.NotifyCreated:
		return squirrel.Notification{}, false
	case squirrel.NotifyRenamed:
		return squirrel.Notification{Kind: squirrel.NotifyRemoved, Path: d.prior.from}, true
	default:
		return squirrel.Notification{Kind: squirrel.NotifyRemoved, Path: d.path}, true
	}
}

func (c *Coalescer) depart(path string, now time.Time) {
	prior := c.entries[path]
	delete(c.entries, path)
	c.seq++
	c.departures = append(c.departures, departure{path: path, prior: prior, at: now, seq: c.seq})
}

func (c *Coalescer) create(path string, now time.Time) {
	if d, ok := c.takeDeparture(path, now); ok {
		switch {
		case d.prior != nil && d.prior.kind == squirrel.NotifyCreated:
			c.set(path, squirrel.NotifyCreated, "", now)
		case d.prior != nil && d.prior.kind == squirrel.NotifyRenamed:
			c.set(path, squirrel.NotifyRenamed, d.prior.from, now)
		default:
			c.set(path, squirrel.NotifyRenamed, d.path, now)
		}
		return
	}

	e, ok := c.entries[path]
	switch {
	case !ok, e.kind == squirrel.NotifyOther:
		c.set(path, squirrel.NotifyCreated, "", now)
	case e.kind == squirrel.NotifyRemoved:
		c.set(path, squirrel.NotifyWritten, "", now)
	default:
		e.last = now
	}
}

func (c *Coalescer) write(path string, now time.Time) {
	e, ok := c.entries[path]
	if !ok || e.kind == squirrel.NotifyOther || e.kind == squirrel.NotifyRemoved {
		c.set(path, squirrel.NotifyWritten, "", now)
		return
	}
	e.last = now
}

func (c *Coalescer) remove(path string, now time.Time) {
	e, ok := c.entries[path]
	if !ok {
		c.set(path, squirrel.NotifyRemoved, "", now)
		return
	}
	switch e.kind {
	case squirrel.NotifyCreated:
		delete(c.entries, path)
	case squirrel.NotifyRenamed:
		from := e.from
		delete(c.entries, path)
		// The source existed before it was renamed away, so a file that has
		// since reappeared there (backup-rename saves) is an update.
		if src, ok := c.entries[from]; ok && (src.kind == squirrel.NotifyCreated || src.kind == squirrel.NotifyWritten) {
			src.kind, src.last = squirrel.NotifyWritten, now
			return
		}
		c.set(from, squirrel.NotifyRemoved, "", now)
	default:
		c.set(path, squirrel.NotifyRemoved, "", now)
	}
}

// takeDeparture pops the most recent live departure other than path itself.
func (c *Coalescer) takeDeparture(path string, now time.Time) (departure, bool) {
	for i := len(c.departures) - 1; i >= 0; i-- {
		d := c.departures[i]
		if d.path == path || now.Sub(d.at) >= c.window {
			continue
		}
		c.departures = slices.Delete(c.departures, i, i+1)
		return d, true
	}
	return departure{}, false
}

// set replaces the entry for path, keeping its original position if any.
func (c *Coalescer) set(path string, kind squirrel.NotificationKind, from string, now time.Time) {
	if e, ok := c.entries[path]; ok {
		e.kind, e.from, e.last = kind, from, now
		return
	}
	c.seq++
	c.entries[path] = &entry{kind: kind, from: from, last: now, seq: c.seq}
}
