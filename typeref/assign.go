package typeref

// IsAssignableFrom reports whether a value of type candidate may be supplied
// where requested is expected.
//
// Plain references are covariant: a candidate satisfies any of its
// supertypes, walking superclass and interface links transitively. Generic
// arguments are compared pairwise with the same rule. A "? super T" request is
// satisfied by any candidate that T is assignable to. Candidates whose
// hierarchy is unknown (opaque declarations) are only accepted by the top type
// and by lower-bounded requests.
func IsAssignableFrom(requested, candidate *Ref) bool {
	m := &matcher{seen: make(map[pair]bool)}
	return m.assignable(requested.deref(), candidate.deref())
}

type pair struct{ req, cand *Ref }

type matcher struct {
	// pairs already on the current path; revisiting one means a hierarchy
	// cycle, which never proves assignability
	seen map[pair]bool
}

func (m *matcher) assignable(req, cand *Ref) bool {
	req, cand = req.deref(), cand.deref()
	if req == nil || cand == nil {
		return false
	}
	if req == cand || req.key == cand.key {
		return true
	}

	p := pair{req, cand}
	if m.seen[p] {
		return false
	}
	m.seen[p] = true
	defer delete(m.seen, p)

	if req.lowerBound {
		return m.assignable(cand, req.bound) || cand.hierarchyUnknown()
	}
	if cand.lowerBound {
		return req.IsTop()
	}

	if req.list != cand.list {
		return req.IsTop()
	}
	if req.list {
		return m.assignable(req.elem, cand.elem)
	}

	if req.IsTop() {
		return true
	}

	if len(req.params) == 0 {
		return m.rawSubtype(req.raw, cand)
	}

	if req.raw == cand.raw && len(req.params) == len(cand.params) {
		for i := range req.params {
			if !m.assignable(req.params[i], cand.params[i]) {
				return false
			}
		}
		return true
	}

	for _, l := range cand.links() {
		if m.assignable(req, l) {
			return true
		}
	}
	return false
}

// rawSubtype walks the candidate's transitive supertypes looking for raw.
func (m *matcher) rawSubtype(raw string, cand *Ref) bool {
	visited := make(map[*Ref]bool)
	queue := []*Ref{cand}
	for len(queue) > 0 {
		c := queue[0].deref()
		queue = queue[1:]
		if c == nil || visited[c] {
			continue
		}
		visited[c] = true
		if c.raw == raw && !c.lowerBound && !c.list {
			return true
		}
		queue = append(queue, c.links()...)
	}
	return false
}
