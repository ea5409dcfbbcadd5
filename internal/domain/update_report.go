package domain

import "time"

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	ReasonAlreadyExists = "already_exists"
	ReasonColorFailed   = "color_failed"
)

// UpdateReport 是 update 命令对外稳定输出（stdout JSON）的结构。
type UpdateReport struct {
	Username string `json:"username"`
	Output   string `json:"output"`
	DryRun   bool   `json:"dry_run"`
	Saved    bool   `json:"saved"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary UpdateSummary `json:"summary"`
	Items   []UpdateItem  `json:"items"`
}

type UpdateSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Total     int `json:"total"` // 写出后列表的条目数
}

type UpdateItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	RGB    *RGB   `json:"rgb,omitempty"`

	// PosterURL 记录最终成功（或最后尝试）的海报地址，便于排查 slug 回退。
	PosterURL string `json:"poster_url"`
}

// Finalize 把时间统一为 UTC，并由 items 计算 summary。
// items 保持收藏区的原始顺序，不做排序。
func (r *UpdateReport) Finalize(listLen int) {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	s := UpdateSummary{Total: listLen}
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}
