package keywords

import "sync"

// testContext is a key-value store shared between keywords within a
// run. It is not reset between tests: values written by one test stay
// visible to later tests until explicitly cleared.
type testContext struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

func newTestContext() *testContext {
	return &testContext{values: make(map[string]interface{})}
}

func (c *testContext) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *testContext) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *testContext) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]interface{})
}
