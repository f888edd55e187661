package views

import (
	"sync"
	"time"
)

const maxNotices = 10

// Notice is a transient message shown after a failed action.
type Notice struct {
	At      time.Time `json:"at"`
	ID      uint      `json:"id"`
	Message string    `json:"message"`
}

type noticeLog struct {
	mu    sync.Mutex
	items []Notice
}

func (n *noticeLog) add(at time.Time, id uint, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notice{At: at, ID: id, Message: msg})
	if len(n.items) > maxNotices {
		n.items = n.items[len(n.items)-maxNotices:]
	}
}

// drain returns pending notices and forgets them.
func (n *noticeLog) drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	return out
}
