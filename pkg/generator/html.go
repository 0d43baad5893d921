package generator

import "strings"

// html builds a random rich-text fragment from a closed tag set and hands it
// to the sanitizer. Some of the attributes drawn here are unsafe on purpose;
// only what the policy keeps reaches the host.
func (g *Generator) html() string {
	var b strings.Builder
	for range g.IntRange(1, 3) {
		if g.src.Intn(3) == 0 {
			b.WriteString("<ul>")
			for range g.IntRange(1, 3) {
				b.WriteString("<li>")
				g.inline(&b)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
			continue
		}
		b.WriteString("<p>")
		g.inline(&b)
		b.WriteString("</p>")
	}
	return g.sanitizer.Sanitize(b.String())
}

func (g *Generator) inline(b *strings.Builder) {
	for i := range g.IntRange(1, 4) {
		if i > 0 {
			b.WriteByte(' ')
		}
		word := g.randomString(g.limits.MinString, g.limits.MaxString)
		switch g.src.Intn(4) {
		case 0:
			b.WriteString(word)
		case 1:
			g.wrap(b, "b", g.emphasisAttrs(), word)
		case 2:
			g.wrap(b, "i", g.emphasisAttrs(), word)
		default:
			g.wrap(b, "a", g.linkAttrs(), word)
		}
	}
}

func (g *Generator) wrap(b *strings.Builder, tag, attrs, text string) {
	b.WriteString("<" + tag + attrs + ">" + text + "</" + tag + ">")
}

var unsafeEmphasisAttrs = []string{
	` style="color:red"`,
	` onmouseover="alert(1)"`,
}

func (g *Generator) emphasisAttrs() string {
	switch g.src.Intn(3) {
	case 0:
		return ""
	case 1:
		return ` title="` + g.randomString(g.limits.MinString, g.limits.MaxString) + `"`
	default:
		return unsafeEmphasisAttrs[g.src.Intn(len(unsafeEmphasisAttrs))]
	}
}

func (g *Generator) linkAttrs() string {
	href := g.url()
	if g.src.Intn(4) == 0 {
		href = "javascript:alert(1)"
	}
	attrs := ` href="` + href + `"`
	if g.src.Intn(2) == 0 {
		attrs += ` title="` + g.randomString(g.limits.MinString, g.limits.MaxString) + `"`
	}
	if g.src.Intn(3) == 0 {
		attrs += ` onclick="alert(1)"`
	}
	return attrs
}
