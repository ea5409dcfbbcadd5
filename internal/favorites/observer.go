package favorites

import (
	"time"

	"github.com/John-Robertt/posterglow/internal/domain"
)

// Observer 把 update 的进度从核心流程中解耦出来。
//
// 约束：
// - favorites 包只发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全：OnItemDone 可能来自多个 worker goroutine
type Observer interface {
	// OnStart 在收藏区解析完成后调用。
	OnStart(opts Options, favorites int)
	// OnItemDone 在某部影片处理完成时调用（完成顺序，不保证与收藏区顺序一致）。
	// 已存在于列表中的影片不进入 worker，最先上报，dur 为 0。
	OnItemDone(done, total int, item domain.UpdateItem, dur time.Duration)
}
