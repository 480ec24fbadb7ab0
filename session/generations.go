package session

const devicesKey = "devices"

func appsKey(id string) string {
	return "apps:" + id
}

func detailsKey(id string) string {
	return "details:" + id
}

// generations counts the loads started per resource. Only the latest load of a
// resource may publish its result. Not safe for concurrent use.
type generations map[string]uint64

func (g generations) next(key string) uint64 {
	g[key]++
	return g[key]
}

func (g generations) current(key string, gen uint64) bool {
	return g[key] == gen
}

// invalidate makes every load in flight for key stale.
func (g generations) invalidate(keys ...string) {
	for _, key := range keys {
		g[key]++
	}
}
