package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/posterglow/internal/domain"
	"github.com/John-Robertt/posterglow/internal/favorites"
	"github.com/John-Robertt/posterglow/internal/letterboxd"
)

const heatGlow = "box-shadow: 0 0 25px rgba(200, 10, 20, 0.75)"

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("期望输出包含 %q，实际：\n%s", substr, output)
	}
}

// listServer 返回 status 与 body 固定的列表服务。
func listServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// emptyConfig 写一个空配置文件，避免测试读到工作目录里的 posterglow.toml。
func emptyConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "posterglow.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return p
}

const specialList = `[
	{"id": "1", "title": "Other", "rgb": [1, 1, 1]},
	{"id": 51568, "title": "Heat", "rgb": [200, 10, 20]}
]`

func TestDecorate_FileMatchAppliesGlow(t *testing.T) {
	srv := listServer(t, http.StatusOK, specialList)
	cfg := emptyConfig(t, "")

	out, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "decorate", "testdata/heat.html")
	if err != nil {
		t.Fatalf("decorate: %v", err)
	}
	requireContains(t, out, `style="width: 230px; `+heatGlow+`"`)
	requireContains(t, out, "filmData")
}

func TestDecorate_ListFailureLeavesPageUnchanged(t *testing.T) {
	srv := listServer(t, http.StatusInternalServerError, "boom")
	cfg := emptyConfig(t, "")

	out, stderr, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "--log-format", "json", "decorate", "testdata/heat.html")
	if err != nil {
		t.Fatalf("列表拉取失败不应导致命令失败：%v", err)
	}
	if strings.Contains(out, "box-shadow") {
		t.Fatalf("列表拉取失败时不应有任何效果：\n%s", out)
	}
	requireContains(t, stderr, `"event_type":"special_list_fetch_failed"`)
}

func TestDecorate_StdinWithExplicitFilm(t *testing.T) {
	srv := listServer(t, http.StatusOK, specialList)
	cfg := emptyConfig(t, "list_url = \""+srv.URL+"\"\n")
	page := `<html><body><div class="film-poster"><img src="/x.jpg"></div></body></html>`

	out, _, err := runCLI(t, page, "-c", cfg, "decorate", "--film-name", "Heat", "-")
	if err != nil {
		t.Fatalf("decorate: %v", err)
	}
	requireContains(t, out, `style="`+heatGlow+`"`)
}

func TestDecorate_OutputNoOverwrite(t *testing.T) {
	srv := listServer(t, http.StatusOK, specialList)
	cfg := emptyConfig(t, "")
	dst := filepath.Join(t.TempDir(), "heat.out.html")

	stdout, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "decorate", "testdata/heat.html", "-o", dst)
	if err != nil {
		t.Fatalf("decorate: %v", err)
	}
	if stdout != "" {
		t.Fatalf("--output 时 stdout 应为空：%q", stdout)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	requireContains(t, string(b), heatGlow)

	if _, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "decorate", "testdata/heat.html", "-o", dst); err == nil {
		t.Fatalf("输出已存在时应报错")
	}
	if _, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "decorate", "testdata/heat.html", "-o", dst, "--force"); err != nil {
		t.Fatalf("--force 覆盖失败：%v", err)
	}
}

func TestDecorate_RejectsNonFilmURL(t *testing.T) {
	cfg := emptyConfig(t, "")
	_, _, err := runCLI(t, "", "-c", cfg, "decorate", "https://letterboxd.com/alice/")
	if err == nil || !strings.Contains(err.Error(), "letterboxd.com/film") {
		t.Fatalf("err=%v", err)
	}
}

func TestList_NonTTYOutputsJSON(t *testing.T) {
	srv := listServer(t, http.StatusOK, specialList)
	cfg := emptyConfig(t, "")

	out, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []domain.SpecialMovie
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, out)
	}
	if len(list) != 2 || list[1].ID != "51568" {
		t.Fatalf("list=%+v", list)
	}
}

func TestList_FetchErrorIsReported(t *testing.T) {
	srv := listServer(t, http.StatusNotFound, "")
	cfg := emptyConfig(t, "")

	_, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "list")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err=%v", err)
	}
}

func TestMatch(t *testing.T) {
	srv := listServer(t, http.StatusOK, specialList)
	cfg := emptyConfig(t, "")

	out, _, err := runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "match", "--id", "51568")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	var res matchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, out)
	}
	if res.Entry.Title != "Heat" || res.BoxShadow != "0 0 25px rgba(200, 10, 20, 0.75)" {
		t.Fatalf("res=%+v", res)
	}

	_, _, err = runCLI(t, "", "-c", cfg, "--list-url", srv.URL, "match", "--name", "Nope")
	if !errors.Is(err, errNoMatch) {
		t.Fatalf("err=%v, want errNoMatch", err)
	}
}

func TestConfigNotFound(t *testing.T) {
	_, _, err := runCLI(t, "", "-c", filepath.Join(t.TempDir(), "missing.toml"), "list")
	if err == nil || !strings.Contains(err.Error(), "config_not_found") {
		t.Fatalf("err=%v", err)
	}
}

func posterPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestUpdate_ApplyWritesListAndJSONReport(t *testing.T) {
	poster := posterPNG(t, color.NRGBA{R: 200, G: 10, B: 20, A: 255})
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alice/":
			fmt.Fprint(w, `<section id="favourites"><ul>
<li class="poster-container"><div class="film-poster" data-film-id="51568" data-film-slug="heat-1995"><img alt="Heat"></div></li>
</ul></section>`)
		case strings.TrimPrefix(letterboxd.PosterURL(srv.URL, "51568", "heat-1995"), srv.URL):
			_, _ = w.Write(poster)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := emptyConfig(t, fmt.Sprintf(`
[update]
profile_base_url = %q
poster_base_url = %q
retry_delay_seconds = 0
fallback_delay_seconds = 0
`, srv.URL, srv.URL))
	out := filepath.Join(dir, "list.json")

	stdout, stderr, err := runCLI(t, "", "-c", cfg, "update", "alice", "--apply", "-o", out)
	if err != nil {
		t.Fatalf("update: %v\nstderr=%s", err, stderr)
	}

	var rr domain.UpdateReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 UpdateReport JSON：%v\n%s", err, stdout)
	}
	if rr.DryRun || !rr.Saved || rr.Summary.Processed != 1 {
		t.Fatalf("report=%+v", rr)
	}
	requireContains(t, stderr, "完成：processed=1")

	list, err := favorites.ReadList(out)
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	if len(list) != 1 || list[0].ID != "51568" || list[0].RGB != (domain.RGB{200, 10, 20}) {
		t.Fatalf("list=%+v", list)
	}
}

func TestUpdate_RequiresUsername(t *testing.T) {
	cfg := emptyConfig(t, "")
	_, _, err := runCLI(t, "", "-c", cfg, "update")
	if err == nil || !strings.Contains(err.Error(), "用户名") {
		t.Fatalf("err=%v", err)
	}
}
