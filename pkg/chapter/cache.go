package chapter

import "sync"

// Cache 单次评测运行内的章节解析缓存。
// 同一份测试集里章节标签大量重复，提取和匹配结果在运行内缓存，
// 运行结束随对象丢弃，避免跨运行的隐藏状态。
type Cache struct {
	mu      sync.RWMutex
	extract map[string]string
	match   map[string]bool
}

// NewCache 创建空缓存
func NewCache() *Cache {
	return &Cache{
		extract: make(map[string]string),
		match:   make(map[string]bool),
	}
}

// Extract 带缓存的 Extract
func (c *Cache) Extract(text string) string {
	c.mu.RLock()
	v, ok := c.extract[text]
	c.mu.RUnlock()
	if ok {
		return v
	}

	v = Extract(text)

	c.mu.Lock()
	c.extract[text] = v
	c.mu.Unlock()
	return v
}

// ValidMatch 带缓存的 IsValidMatch
func (c *Cache) ValidMatch(retrieved, reference string) bool {
	key := retrieved + "\x00" + reference

	c.mu.RLock()
	v, ok := c.match[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	v = IsValidMatch(retrieved, reference)

	c.mu.Lock()
	c.match[key] = v
	c.mu.Unlock()
	return v
}

// Size 返回缓存条目数（提取 + 匹配）
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.extract) + len(c.match)
}
