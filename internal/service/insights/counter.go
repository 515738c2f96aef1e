package insights

// counter tallies keys and remembers the order they were first seen, so the
// maximum is always the earliest key to reach it.
type counter[K comparable] struct {
	order  []K
	counts map[K]int
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(key K) {
	c.addN(key, 1)
}

func (c *counter[K]) addN(key K, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

func (c *counter[K]) len() int { return len(c.order) }

func (c *counter[K]) get(key K) int { return c.counts[key] }

func (c *counter[K]) total() int {
	var sum int
	for _, k := range c.order {
		sum += c.counts[k]
	}
	return sum
}

// max returns the first key holding the highest count.
func (c *counter[K]) max() (K, int, bool) {
	var best K
	bestCount, found := 0, false
	for _, k := range c.order {
		if n := c.counts[k]; !found || n > bestCount {
			best, bestCount, found = k, n, true
		}
	}
	return best, bestCount, found
}

// min returns the first key holding the lowest count.
func (c *counter[K]) min() (K, int, bool) {
	var best K
	bestCount, found := 0, false
	for _, k := range c.order {
		if n := c.counts[k]; !found || n < bestCount {
			best, bestCount, found = k, n, true
		}
	}
	return best, bestCount, found
}
