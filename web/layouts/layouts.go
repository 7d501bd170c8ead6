package layouts

import (
	"github.com/debankfi/debank/internal/assets"
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/components"
	. "maragu.dev/gomponents/html"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v0.21.4/bundles/datastar.js"

// Default wraps the app fragment in a full document. updatesURL is the SSE
// endpoint the page listens on for re-renders.
func Default(title, updatesURL string, children ...Node) Node {
	return HTML5(HTML5Props{
		Title:       title + " | DeBank",
		Description: "Deposit ETH, borrow DBC against ETH collateral and repay the loan.",
		Language:    "en",
		Head: []Node{
			Link(Rel("stylesheet"), Href(assets.GetHashedAssetPath("/assets/styles.css"))),
			Script(Type("module"), Src(datastarScript)),
		},
		Body: []Node{
			If(updatesURL != "", Data("on-load", "@get('"+updatesURL+"')")),
			Group(children),
			footer(),
		},
	})
}

func footer() Node {
	type link struct {
		Href string
		Text string
	}
	links := []link{
		{
			Href: "/about",
			Text: "About",
		}, {
			Href: "/history",
			Text: "History",
		}, {
			Href: "/api/session",
			Text: "API",
		}}

	return Footer(
		Class("footer"),
		Span(Text("DeBank")),
		Map(links, func(l link) Node {
			return A(Href(l.Href), Text(l.Text))
		}),
	)
}
