package markdown

import (
	"net/url"
	"regexp"
	"strings"
)

// linkExpr matches one markdown link expression, including the leading "!"
// of an image embed so that a filtered image is removed whole.
var linkExpr = regexp.MustCompile(`!?\[([^\]\[]*)\]\(([^)]*)\)`)

var (
	imageExpr    = regexp.MustCompile(`!\[[^\]\[]*\]\([^)]*\)`)
	dividerLine  = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	numericTitle = regexp.MustCompile(`^[\d\s\p{P}\p{S}]+$`)
)

// noiseTitles is the bilingual keyword set for action, navigation,
// placeholder, account and e-commerce link titles. Titles are compared after
// lowercasing and stripping trailing digits, so "Comments 128" matches
// "comments".
var noiseTitles = map[string]struct{}{
	"login": {}, "log in": {}, "sign in": {}, "sign up": {}, "signup": {},
	"register": {}, "logout": {}, "log out": {}, "subscribe": {},
	"more": {}, "read more": {}, "learn more": {}, "view more": {},
	"next": {}, "next page": {}, "previous": {}, "prev": {}, "back": {},
	"home": {}, "about": {}, "about us": {}, "contact": {}, "contact us": {},
	"privacy": {}, "privacy policy": {}, "terms": {}, "terms of service": {},
	"cookie policy": {}, "share": {}, "comment": {}, "comments": {},
	"reply": {}, "link": {}, "here": {}, "click here": {}, "menu": {},
	"search": {}, "rss": {}, "feed": {}, "download": {}, "advertise": {},
	"cart": {}, "checkout": {}, "buy": {}, "buy now": {}, "add to cart": {},
	"登录": {}, "注册": {}, "退出": {}, "订阅": {}, "更多": {},
	"阅读更多": {}, "查看更多": {}, "下一页": {}, "上一页": {}, "首页": {},
	"关于": {}, "关于我们": {}, "联系我们": {}, "评论": {}, "回复": {},
	"分享": {}, "收藏": {}, "购物车": {}, "立即购买": {}, "购买": {},
	"下载": {}, "搜索": {}, "菜单": {}, "广告": {},
}

// codeHostDomains are code-hosting and package-registry domains whose landing
// pages never carry article content.
var codeHostDomains = []string{
	"github.com", "gitlab.com", "bitbucket.org", "gitee.com",
	"sourceforge.net", "npmjs.com", "pypi.org", "pkg.go.dev",
	"crates.io", "rubygems.org", "hub.docker.com",
}

// noisePathSegments are auth/search/tag/feed URL path segments.
var noisePathSegments = map[string]struct{}{
	"login": {}, "signin": {}, "signup": {}, "register": {}, "logout": {},
	"auth": {}, "oauth": {}, "account": {}, "search": {}, "tag": {},
	"tags": {}, "feed": {}, "feeds": {}, "rss": {}, "atom": {},
}

// trackingParams are query parameters that mark a tracking/redirect link.
var trackingParams = map[string]struct{}{
	"gclid": {}, "fbclid": {}, "spm": {}, "scm": {}, "ref_src": {},
	"share_token": {}, "from_source": {},
}

// mediaExtensions are file extensions of media, document and archive targets.
var mediaExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".ico": {}, ".bmp": {}, ".mp4": {}, ".mp3": {},
	".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".wav": {},
	".ogg": {}, ".m4a": {}, ".mkv": {}, ".pdf": {}, ".doc": {},
	".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {},
	".dmg": {}, ".exe": {}, ".apk": {}, ".iso": {},
}

// Filter removes boilerplate link expressions from crawled markdown while
// preserving the surrounding prose. Applying it twice yields the same result
// as applying it once: removing a nested link can expose a new link
// expression, so passes repeat until the text stops changing.
func Filter(raw string) string {
	for {
		out := filterOnce(raw)
		if out == raw {
			return out
		}
		raw = out
	}
}

func filterOnce(raw string) string {
	return linkExpr.ReplaceAllStringFunc(raw, func(match string) string {
		sub := linkExpr.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		if isNoiseLink(sub[1], sub[2]) {
			return ""
		}
		return match
	})
}

// StripImagesAndDividers removes plain image embeds and divider lines from
// markdown. Used when the extraction stage wants prose and links only.
func StripImagesAndDividers(text string) string {
	text = imageExpr.ReplaceAllString(text, "")
	return dividerLine.ReplaceAllString(text, "")
}

// isNoiseLink applies the filter rule categories in order: empty title,
// keyword title, numeric/punctuation title, code-hosting domain, noise path
// segment, tracking query parameter, mailto/tel scheme, media extension.
func isNoiseLink(title, target string) bool {
	title = strings.TrimSpace(title)
	target = strings.TrimSpace(target)

	if title == "" {
		return true
	}

	normalized := strings.ToLower(title)
	normalized = strings.TrimRight(normalized, "0123456789")
	normalized = strings.TrimSpace(normalized)
	if _, ok := noiseTitles[normalized]; ok {
		return true
	}

	if numericTitle.MatchString(title) {
		return true
	}

	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return true
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, domain := range codeHostDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	path := strings.ToLower(u.Path)
	for _, segment := range strings.Split(path, "/") {
		if _, ok := noisePathSegments[segment]; ok {
			return true
		}
	}

	for param := range u.Query() {
		key := strings.ToLower(param)
		if strings.HasPrefix(key, "utm_") {
			return true
		}
		if _, ok := trackingParams[key]; ok {
			return true
		}
	}

	if ext := extensionOf(path); ext != "" {
		if _, ok := mediaExtensions[ext]; ok {
			return true
		}
	}

	return false
}

func extensionOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 || idx < strings.LastIndex(path, "/") {
		return ""
	}
	return path[idx:]
}
