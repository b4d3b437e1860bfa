package webserver

import (
	"strconv"
	"sync/atomic"
)

type requestCounter struct {
	lastId atomic.Uint64
}

func (c *requestCounter) GetNextId() string {
	return "REQ-" + strconv.FormatUint(c.lastId.Add(1)-1, 10)
}
