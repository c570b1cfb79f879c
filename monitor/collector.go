// Package monitor tracks in-process request counters for the stats endpoint.
package monitor

import (
	"sync"
	"time"
)

type Collector struct {
	mu           sync.Mutex
	uploads      int64
	chunks       int64
	searches     int64
	chats        int64
	promptTokens int64
	outputTokens int64
	errors       int64
	chatTotalMs  int64
	startedAt    time.Time
}

func NewCollector() *Collector {
	return &Collector{startedAt: time.Now()}
}

func (c *Collector) RecordUpload(chunks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads++
	c.chunks += int64(chunks)
}

func (c *Collector) RecordSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches++
}

// RecordChat counts one completed chat. Token counts are zero when the
// upstream response carried no usage data.
func (c *Collector) RecordChat(elapsed time.Duration, promptTokens, outputTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats++
	c.chatTotalMs += elapsed.Milliseconds()
	c.promptTokens += int64(promptTokens)
	c.outputTokens += int64(outputTokens)
}

func (c *Collector) RecordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var avg float64
	if c.chats > 0 {
		avg = float64(c.chatTotalMs) / float64(c.chats)
	}
	return Summary{
		Uploads:       c.uploads,
		ChunksStored:  c.chunks,
		Searches:      c.searches,
		Chats:         c.chats,
		PromptTokens:  c.promptTokens,
		OutputTokens:  c.outputTokens,
		Errors:        c.errors,
		AvgChatMs:     avg,
		StartedAt:     c.startedAt,
		UptimeSeconds: int64(time.Since(c.startedAt).Seconds()),
	}
}
