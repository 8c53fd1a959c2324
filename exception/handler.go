// Package exception implements the per-object exception ledger (spec.md
// §4.8): every error is recorded under the current context id with
// searchable, typed retrieval.
package exception

import (
	"reflect"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sqlscript-io/sqlscript/sqlerrors"
)

var ctxSeq int64

func nextCtxID() int64 {
	return atomic.AddInt64(&ctxSeq, 1) + time.Now().UnixNano()
}

// record pairs a collected error with the monotonic timestamp it was
// collected under.
type record struct {
	tmstmp int64
	err    error
}

// Handler is a per-object ledger of errors, keyed by context id and, within
// a context, by collection order.
type Handler struct {
	ctxID     int64
	hasCtx    bool
	inContext bool
	outcome   *int

	byCtx map[int64][]record
	seq   int64

	// children mirrors Set/Reset calls to other Handlers so that ctx_id
	// coordinates across an object tree (spec.md §5's "ExceptionHandler's
	// children-mirroring"). Non-owning references only.
	children []*Handler
}

// New returns an empty Handler.
func New() *Handler {
	return &Handler{byCtx: map[int64][]record{}}
}

// Mirror registers child as a non-owning mirror of this Handler's Set/Reset
// calls, so Script's own context id propagates to every owned Statement.
func (h *Handler) Mirror(child *Handler) {
	h.children = append(h.children, child)
}

// Set opens or updates the current context. ctxID == -1 is replaced by a
// fresh monotonic id. Assigning an existing ctxID is an internal error.
func (h *Handler) Set(ctxID int64, inContext bool, outcome *int) error {
	if ctxID != 0 {
		if ctxID == -1 {
			ctxID = nextCtxID()
		}

		if _, exists := h.byCtx[ctxID]; exists {
			return &sqlerrors.InternalError{
				Name: "ExceptionHandler.Set",
				Msg:  "an existing ctx_id was provided to Set(ctxID)",
			}
		}

		h.ctxID = ctxID
		h.hasCtx = true
		h.byCtx[ctxID] = nil
	}

	if inContext {
		h.inContext = true
	}

	if outcome != nil {
		h.outcome = outcome
	}

	for _, c := range h.children {
		_ = c.Set(ctxID, inContext, outcome)
	}

	return nil
}

// CtxID returns the current context id and whether one has been set.
func (h *Handler) CtxID() (int64, bool) { return h.ctxID, h.hasCtx }

// Reset clears the requested fields.
func (h *Handler) Reset(ctxID, inContext, outcome bool) {
	if ctxID {
		h.ctxID = 0
		h.hasCtx = false
	}

	if inContext {
		h.inContext = false
	}

	if outcome {
		h.outcome = nil
	}

	for _, c := range h.children {
		c.Reset(ctxID, inContext, outcome)
	}
}

// Collect appends e under the current context, keyed by a monotonic
// sequence number so retrieval ordering is stable even within one
// nanosecond.
func (h *Handler) Collect(e error) {
	if !h.hasCtx {
		h.ctxID = nextCtxID()
		h.hasCtx = true
	}

	h.seq++
	h.byCtx[h.ctxID] = append(h.byCtx[h.ctxID], record{tmstmp: h.seq, err: e})
}

// Query narrows the ledger by type, raise-intent, and context scope,
// returning matches ordered most-recent first. There is no filter by
// individual error id.
type Query struct {
	OfType  []error // matched when the collected error has the same concrete type name
	ToRaise *bool
	FromCtx *int64
	AllTime bool
}

// Seen reports whether any error matches q.
func (h *Handler) Seen(q Query) bool {
	return len(h.query(q)) > 0
}

// Get returns errors matching q, most-recent first. If last is true and no
// errors match, it returns an InternalError (spec.md §4.8: "raises if
// last=True and none match").
func (h *Handler) Get(q Query, last bool) ([]error, error) {
	matches := h.query(q)
	if last && len(matches) == 0 {
		return nil, &sqlerrors.InternalError{
			Name: "ExceptionHandler.Get",
			Msg:  "a call was made to Get() that returned no exceptions",
		}
	}

	return matches, nil
}

func (h *Handler) query(q Query) []error {
	var pool []record

	if q.AllTime {
		for _, recs := range h.byCtx {
			pool = append(pool, recs...)
		}
	} else {
		ctx := h.ctxID
		if q.FromCtx != nil {
			ctx = *q.FromCtx
		}

		pool = append(pool, h.byCtx[ctx]...)
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].tmstmp > pool[j].tmstmp })

	out := make([]error, 0, len(pool))

	for _, r := range pool {
		if q.ToRaise != nil {
			raisable, ok := r.err.(sqlerrors.Raisable)
			if !ok || raisable.ShouldRaise() != *q.ToRaise {
				continue
			}
		}

		if len(q.OfType) > 0 && !matchesAnyType(r.err, q.OfType) {
			continue
		}

		out = append(out, r.err)
	}

	return out
}

func matchesAnyType(err error, types []error) bool {
	for _, t := range types {
		if sameConcreteType(err, t) {
			return true
		}
	}

	return false
}

func sameConcreteType(a, b error) bool {
	return typeName(a) == typeName(b)
}

func typeName(e error) string {
	if e == nil {
		return ""
	}

	return reflect.TypeOf(e).String()
}
