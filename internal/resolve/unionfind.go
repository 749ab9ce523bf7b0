package resolve

// unionFind is a disjoint-set forest over record keys, used to turn pairwise
// merge decisions into the final entity partition. Not safe for concurrent
// use; the resolver serializes mutation behind its run lock.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (u *unionFind) add(key string) {
	if _, ok := u.parent[key]; !ok {
		u.parent[key] = key
	}
}

func (u *unionFind) find(key string) string {
	u.add(key)
	root := key
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Path compression.
	for u.parent[key] != root {
		u.parent[key], key = root, u.parent[key]
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

func (u *unionFind) connected(a, b string) bool {
	return u.find(a) == u.find(b)
}

// components groups every added key by its root.
func (u *unionFind) components() map[string][]string {
	out := make(map[string][]string)
	for key := range u.parent {
		root := u.find(key)
		out[root] = append(out[root], key)
	}
	return out
}
