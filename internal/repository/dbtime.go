package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"personal-site-go/internal/model"
)

// 聚合函数返回的时间在不同驱动下格式不一样（MySQL parseTime 与 SQLite 文本），逐个尝试。
var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	model.TimeFormat,
}

func parseDBTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// time.Time.String() 可能带 monotonic 后缀 "m=+0.000"
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("repository: unrecognised time %q", s)
}

// sortThreads 最近活跃在前；时间相同时按 chat_id、sender_name 升序，保证顺序确定。
func sortThreads(threads []model.ThreadSummary) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		if a.ChatID != b.ChatID {
			return a.ChatID < b.ChatID
		}
		return a.SenderName < b.SenderName
	})
}
