// Package refpath is the reference implementation of the orchestration
// core's Ref/RefContext contract: a minimal expression language for
// "::instance::attribute" style paths, resolved against a live instance
// graph. Callers are free to supply their own evaluator instead — the core
// never imports this package.
package refpath

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
)

// Expr is a parsed path expression like "::db_server::host" or
// "::.::port" (the leading "." segment means "the context's own target").
type Expr struct {
	raw      string
	segments []string
	cache    *lru.Cache[string, any]
}

// defaultCacheSize bounds the shared resolution cache so a long-running
// Runner process doesn't grow it unbounded across many jobs.
const defaultCacheSize = 4096

var sharedCache, _ = lru.New[string, any](defaultCacheSize)

// Parse builds an Expr from raw. It never fails on malformed input — an
// expression with no segments at all (empty, or only colons) resolves to
// nothing, or to an error when resolved strictly. A bare name with no "::"
// is a single segment, looked up like any other head segment.
func Parse(raw string) *Expr {
	return &Expr{raw: raw, segments: orchestration.SplitKey(raw), cache: sharedCache}
}

// Resolve implements orchestration.Ref. The first segment selects a
// starting instance: "." or "SELF" for ctx.Target(), "ROOT" for the graph
// root, or any other value as the name of a context variable (checked
// first) or else of a resource found via Instance.FindResource. The next
// segment names an attribute and any further segments are map keys;
// list values are not descended into. The final Value's Raw() form is
// returned. When wantList is true a single result is wrapped in a
// one-element slice. When strict is true, failing to resolve any segment is
// an error instead of a nil result.
func (e *Expr) Resolve(ctx orchestration.RefContext, wantList, strict bool) (any, error) {
	if len(e.segments) == 0 {
		return e.notFound(wantList, strict, "empty expression")
	}

	cacheKey := e.cacheKey(ctx)
	if v, ok := e.cache.Get(cacheKey); ok {
		return wrapList(v, wantList), nil
	}

	target := ctx.Target()
	switch head := e.segments[0]; head {
	case ".", "SELF":
		// target already correct
	case "ROOT":
		target = target.Root()
	default:
		if v, ok := ctx.Var(head); ok {
			return e.resolveRemaining(v, e.segments[1:], wantList, strict)
		}
		found := target.FindResource(head)
		if found == nil {
			return e.notFound(wantList, strict, fmt.Sprintf("no resource named %q", head))
		}
		target = found
	}

	if len(e.segments) == 1 {
		e.cache.Add(cacheKey, target)
		return wrapList(target, wantList), nil
	}

	val, ok := target.Attributes[e.segments[1]]
	if !ok {
		return e.notFound(wantList, strict, fmt.Sprintf("%s has no attribute %q", target.Key(), e.segments[1]))
	}
	resolved, err := orchestration.MapValue(val, orchestration.NewRefContext(target, nil))
	if err != nil {
		return nil, err
	}
	result, err := e.resolveRemaining(resolved.Raw(), e.segments[2:], wantList, strict)
	if err != nil {
		return nil, err
	}
	e.cache.Add(cacheKey, result)
	return result, nil
}

// resolveRemaining walks segments as successive map-key lookups into v,
// the continuation of Resolve once the starting instance/variable is known.
func (e *Expr) resolveRemaining(v any, segments []string, wantList, strict bool) (any, error) {
	cur := v
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return e.notFound(wantList, strict, fmt.Sprintf("cannot descend into %q on non-map value", seg))
		}
		next, ok := m[seg]
		if !ok {
			return e.notFound(wantList, strict, fmt.Sprintf("missing key %q", seg))
		}
		cur = next
	}
	return wrapList(cur, wantList), nil
}

func (e *Expr) notFound(wantList, strict bool, reason string) (any, error) {
	if strict {
		return nil, fmt.Errorf("refpath: %s: %s", e.raw, reason)
	}
	if wantList {
		return []any{}, nil
	}
	return nil, nil
}

func wrapList(v any, wantList bool) any {
	if !wantList {
		return v
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func (e *Expr) cacheKey(ctx orchestration.RefContext) string {
	changeID, _ := ctx.Var("changeId")
	return strings.Join([]string{e.raw, ctx.Target().Key(), fmt.Sprint(changeID)}, "|")
}
