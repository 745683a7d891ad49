package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_RemovesMediaExtensionLinks(t *testing.T) {
	in := "[a](http://x/1.png) [b](http://x/2) [c](http://x/3)"

	out := Filter(in)

	assert.NotContains(t, out, "[a](http://x/1.png)")
	assert.Contains(t, out, "[b](http://x/2)")
	assert.Contains(t, out, "[c](http://x/3)")
}

func TestFilter_Idempotent(t *testing.T) {
	in := `# Daily digest
[](http://x/empty) [Login](http://x/user) [登录](http://x/cn)
Some prose with [a real article](http://news.example.com/story-1) inside.
[123](http://x/n) [repo](https://github.com/foo/bar) [feed](http://x/rss/all)
[track](http://x/p?utm_source=mail) [mail](mailto:a@b.c) [doc](http://x/file.pdf)`

	once := Filter(in)
	twice := Filter(once)

	assert.Equal(t, once, twice)
}

func TestFilter_NestedLinkRemovedCompletely(t *testing.T) {
	// Removing the inner link leaves "[login](http://x/login)" behind, which
	// is itself noise and must not survive a single Filter call.
	in := "[login[b](http://github.com/x)](http://x/login) and prose"

	out := Filter(in)

	assert.Equal(t, " and prose", out)
	assert.Equal(t, out, Filter(out))
}

func TestFilter_EmptyTitle(t *testing.T) {
	out := Filter("before [](http://x/a) after")
	assert.Equal(t, "before  after", out)
}

func TestFilter_KeywordTitles(t *testing.T) {
	cases := map[string]string{
		"login":            "[Login](http://x/a)",
		"trailing digits":  "[Comments 128](http://x/a)",
		"read more":        "[Read More](http://x/a)",
		"chinese login":    "[登录](http://x/a)",
		"chinese more":     "[更多](http://x/a)",
		"chinese trailing": "[评论23](http://x/a)",
	}
	for name, link := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "", Filter(link))
		})
	}
}

func TestFilter_KeepsRealTitles(t *testing.T) {
	links := []string{
		"[Login troubles plague new banking app](http://news.example.com/story)",
		"[A story about 128 ways to cook rice](http://news.example.com/rice)",
		"[Go 1.24 released](http://news.example.com/go)",
	}
	for _, link := range links {
		assert.Equal(t, link, Filter(link))
	}
}

func TestFilter_NumericAndPunctuationTitles(t *testing.T) {
	assert.Equal(t, "", Filter("[42](http://x/a)"))
	assert.Equal(t, "", Filter("[»»](http://x/a)"))
	assert.Equal(t, "", Filter("[...](http://x/a)"))
}

func TestFilter_CodeHostDomains(t *testing.T) {
	assert.Equal(t, "", Filter("[my repo](https://github.com/foo/bar)"))
	assert.Equal(t, "", Filter("[pkg](https://pypi.org/project/x)"))
	assert.Equal(t, "", Filter("[sub](https://gist.github.com/foo)"))
}

func TestFilter_NoisePathSegments(t *testing.T) {
	assert.Equal(t, "", Filter("[go here](http://x/login)"))
	assert.Equal(t, "", Filter("[topic](http://x/tag/golang)"))
	assert.Equal(t, "", Filter("[updates](http://x/feed/all)"))
	// "tag" only matches as a whole segment.
	got := Filter("[story](http://x/tagging-systems-explained)")
	assert.Equal(t, "[story](http://x/tagging-systems-explained)", got)
}

func TestFilter_TrackingParams(t *testing.T) {
	assert.Equal(t, "", Filter("[promo](http://x/a?utm_source=news)"))
	assert.Equal(t, "", Filter("[promo](http://x/a?fbclid=abc)"))
	got := Filter("[story](http://x/a?page=2)")
	assert.Equal(t, "[story](http://x/a?page=2)", got)
}

func TestFilter_MailtoAndTel(t *testing.T) {
	assert.Equal(t, "", Filter("[write us](mailto:tips@example.com)"))
	assert.Equal(t, "", Filter("[call](tel:+123456)"))
}

func TestFilter_PreservesSurroundingProse(t *testing.T) {
	in := "Read this [Login](http://x/a) and that."
	assert.Equal(t, "Read this  and that.", Filter(in))
}

func TestFilter_RemovesFilteredImageWhole(t *testing.T) {
	out := Filter("text ![](http://x/banner.png) more")
	assert.NotContains(t, out, "!")
	assert.NotContains(t, out, "banner.png")
}

func TestStripImagesAndDividers(t *testing.T) {
	in := "para one\n![logo](http://x/logo.png)\n---\npara two\n* * *\n[link](http://x/a)"

	out := StripImagesAndDividers(in)

	assert.NotContains(t, out, "logo.png")
	assert.NotContains(t, out, "---")
	assert.Contains(t, out, "para one")
	assert.Contains(t, out, "para two")
	assert.Contains(t, out, "[link](http://x/a)")
}
