package match

import (
	"testing"

	"github.com/John-Robertt/posterglow/internal/domain"
)

func TestFind(t *testing.T) {
	list := []domain.SpecialMovie{
		{ID: "1", Title: "First", RGB: domain.RGB{1, 1, 1}},
		{Title: "Shared", RGB: domain.RGB{2, 2, 2}},
		{ID: "3", Title: "Shared", RGB: domain.RGB{3, 3, 3}},
		{ID: "3", Title: "Other", RGB: domain.RGB{4, 4, 4}},
		{ID: "", Title: "", RGB: domain.RGB{5, 5, 5}},
	}

	cases := []struct {
		name    string
		film    domain.FilmContext
		wantOK  bool
		wantRGB domain.RGB
	}{
		{"按 id 命中", domain.FilmContext{ID: "1", Name: "nope"}, true, domain.RGB{1, 1, 1}},
		{"按标题命中", domain.FilmContext{ID: "99", Name: "First"}, true, domain.RGB{1, 1, 1}},
		{"标题并列取最前", domain.FilmContext{ID: "99", Name: "Shared"}, true, domain.RGB{2, 2, 2}},
		{"id 并列取最前", domain.FilmContext{ID: "3", Name: "nope"}, true, domain.RGB{3, 3, 3}},
		{"标题比 id 更靠前时取标题", domain.FilmContext{ID: "3", Name: "Shared"}, true, domain.RGB{2, 2, 2}},
		{"都不命中", domain.FilmContext{ID: "99", Name: "nope"}, false, domain.RGB{}},
		{"空 film 不匹配空记录", domain.FilmContext{}, false, domain.RGB{}},
		{"标题区分大小写", domain.FilmContext{Name: "first"}, false, domain.RGB{}},
	}
	for _, c := range cases {
		got, ok := Find(list, c.film)
		if ok != c.wantOK {
			t.Fatalf("%s：ok=%v，期望 %v", c.name, ok, c.wantOK)
		}
		if ok && got.RGB != c.wantRGB {
			t.Fatalf("%s：rgb=%v，期望 %v", c.name, got.RGB, c.wantRGB)
		}
	}
}

func TestFind_EmptyList(t *testing.T) {
	if _, ok := Find(nil, domain.FilmContext{ID: "42", Name: "X"}); ok {
		t.Fatalf("空列表不应命中")
	}
}
