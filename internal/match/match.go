package match

import (
	"strings"

	"github.com/John-Robertt/posterglow/internal/domain"
)

// Find 在 list 中线性查找第一条命中 film 的记录：id 相等，或 title 等于 film.Name。
//
// 约束：
// - 先到先得：多条记录命中时返回列表中最靠前的一条
// - 空 id / 空标题不参与比较（避免“双方都缺省”被当成相等）
func Find(list []domain.SpecialMovie, film domain.FilmContext) (domain.SpecialMovie, bool) {
	id := strings.TrimSpace(string(film.ID))
	for _, m := range list {
		if id != "" && strings.TrimSpace(string(m.ID)) == id {
			return m, true
		}
		if film.Name != "" && m.Title == film.Name {
			return m, true
		}
	}
	return domain.SpecialMovie{}, false
}
