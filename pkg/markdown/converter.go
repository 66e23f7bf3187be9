package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	codeBlockRe = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	headingRe   = regexp.MustCompile(`(?s)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	orderedRe   = regexp.MustCompile(`(?s)<ol(?:\s[^>]*)?>\n?(.*?)</ol>`)
	itemRe      = regexp.MustCompile(`<li>`)
	startRe     = regexp.MustCompile(`^<ol start="(\d+)"`)
	tagRe       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?>`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Tags Telegram accepts with ParseMode HTML
var supportedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

// ToTelegramHTML converts markdown to Telegram-compatible HTML
func ToTelegramHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	// Smartypants stays off: Telegram rejects entities like &ldquo;
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML,
	})
	html := string(blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer),
	))
	return cleanHTMLForTelegram(html)
}

// numberItems keeps ordered list numbering, honouring a start attribute
func numberItems(list string) string {
	sub := orderedRe.FindStringSubmatch(list)
	n := 1
	if m := startRe.FindStringSubmatch(list); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
	}
	return itemRe.ReplaceAllStringFunc(sub[1], func(string) string {
		item := strconv.Itoa(n) + ". "
		n++
		return item
	})
}

func cleanHTMLForTelegram(html string) string {
	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = headingRe.ReplaceAllString(html, "<b>$1</b>\n")
	html = orderedRe.ReplaceAllStringFunc(html, numberItems)

	replacer := strings.NewReplacer(
		"<strong>", "<b>", "</strong>", "</b>",
		"<em>", "<i>", "</em>", "</i>",
		"<del>", "<s>", "</del>", "</s>",
		"<ul>\n", "", "</ul>", "",
		"<li>", "• ", "</li>", "",
		"<br />", "\n", "<br>", "\n",
		"<hr />", "",
	)
	html = replacer.Replace(html)
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")

	html = tagRe.ReplaceAllStringFunc(html, func(match string) string {
		sub := tagRe.FindStringSubmatch(match)
		if len(sub) > 1 && supportedTags[strings.ToLower(sub[1])] {
			return match
		}
		return ""
	})

	html = newlinesRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
