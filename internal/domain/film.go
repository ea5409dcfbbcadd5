package domain

// FilmContext 是宿主页面提供的“当前影片”信息（Letterboxd 页面脚本里的 filmData）。
//
// 由适配层读取后显式传入匹配逻辑；本项目只读，不拥有其生命周期。
type FilmContext struct {
	ID   FilmID
	Name string
}

// Favorite 是从用户主页收藏区解析出的一部影片。
type Favorite struct {
	ID        FilmID
	Title     string
	Slug      string
	PosterURL string
}
