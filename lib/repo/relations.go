package repo

import (
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
)

// relationsIndex is the adjacency index of the COMMON relations of a tenant,
// kept in both directions.
//
// Thread-safety: not safe for concurrent use, guarded by the tenant lock.
type relationsIndex struct {
	from map[edqs.EntityID]map[edqs.RelationKey]*edqs.EntityRelation
	to   map[edqs.EntityID]map[edqs.RelationKey]*edqs.EntityRelation
	size int
}

func newRelationsIndex() *relationsIndex {
	return &relationsIndex{
		from: make(map[edqs.EntityID]map[edqs.RelationKey]*edqs.EntityRelation),
		to:   make(map[edqs.EntityID]map[edqs.RelationKey]*edqs.EntityRelation),
	}
}

// add inserts or replaces r and reports whether it is new.
func (idx *relationsIndex) add(key edqs.RelationKey, r *edqs.EntityRelation) bool {
	out, ok := idx.from[r.From]
	if !ok {
		out = make(map[edqs.RelationKey]*edqs.EntityRelation)
		idx.from[r.From] = out
	}
	_, existed := out[key]
	out[key] = r

	in, ok := idx.to[r.To]
	if !ok {
		in = make(map[edqs.RelationKey]*edqs.EntityRelation)
		idx.to[r.To] = in
	}
	in[key] = r

	if !existed {
		idx.size++
	}
	return !existed
}

// remove deletes the relation with the given key and reports whether it existed.
func (idx *relationsIndex) remove(key edqs.RelationKey) bool {
	out, ok := idx.from[key.From]
	if !ok {
		return false
	}
	if _, ok := out[key]; !ok {
		return false
	}
	delete(out, key)
	if len(out) == 0 {
		delete(idx.from, key.From)
	}
	if in, ok := idx.to[key.To]; ok {
		delete(in, key)
		if len(in) == 0 {
			delete(idx.to, key.To)
		}
	}
	idx.size--
	return true
}

// edges returns the relations leaving id in the given direction.
func (idx *relationsIndex) edges(id edqs.EntityID, direction query.SearchDirection) map[edqs.RelationKey]*edqs.EntityRelation {
	if direction == query.DirectionTo {
		return idx.to[id]
	}
	return idx.from[id]
}

func (idx *relationsIndex) objects(dst []edqs.Object) []edqs.Object {
	for _, out := range idx.from {
		for _, r := range out {
			dst = append(dst, r)
		}
	}
	return dst
}

// search walks the relations breadth first, starting at roots, for at most
// maxLevel levels (unbounded if maxLevel <= 0). Every entity is expanded
// once. An entity reached through a relation accepted by accept is part of
// the result. With lastLevelOnly, only entities on the last level, or with
// no further relations when the depth is unbounded, are returned.
func (idx *relationsIndex) search(roots []edqs.EntityID, direction query.SearchDirection, maxLevel int,
	lastLevelOnly bool, accept func(r *edqs.EntityRelation, target edqs.EntityID) bool) []edqs.EntityID {

	visited := make(map[edqs.EntityID]struct{}, len(roots))
	for _, root := range roots {
		visited[root] = struct{}{}
	}
	found := make(map[edqs.EntityID]struct{})
	var result []edqs.EntityID

	frontier := roots
	for level := 1; len(frontier) > 0 && (maxLevel <= 0 || level <= maxLevel); level++ {
		var next []edqs.EntityID
		for _, id := range frontier {
			for _, r := range idx.edges(id, direction) {
				target := r.To
				if direction == query.DirectionTo {
					target = r.From
				}

				if accept(r, target) {
					last := level == maxLevel || (maxLevel <= 0 && len(idx.edges(target, direction)) == 0)
					if _, ok := found[target]; !ok && (!lastLevelOnly || last) {
						found[target] = struct{}{}
						result = append(result, target)
					}
				}
				if _, ok := visited[target]; !ok {
					visited[target] = struct{}{}
					next = append(next, target)
				}
			}
		}
		frontier = next
	}
	return result
}
