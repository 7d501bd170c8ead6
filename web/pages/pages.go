package pages

import (
	"net/url"

	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/store"
	"github.com/debankfi/debank/web/components"
	"github.com/debankfi/debank/web/layouts"
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type Route string

const (
	RouteHome     Route = "home"
	RouteAbout    Route = "about"
	RouteHistory  Route = "history"
	RouteNotFound Route = "not-found"
)

// RouteFor maps a request path onto a page.
func RouteFor(path string) Route {
	switch path {
	case "/", "":
		return RouteHome
	case "/about":
		return RouteAbout
	case "/history":
		return RouteHistory
	default:
		return RouteNotFound
	}
}

// View is everything a page render needs.
type View struct {
	State   store.State
	Path    string
	Flashes []string
	History []events.Entry
}

func (v View) Route() Route {
	return RouteFor(v.Path)
}

// Document renders a full HTML page around App.
func Document(v View) Node {
	return layouts.Default(title(v.Route()), "/updates?path="+url.QueryEscape(v.Path), App(v))
}

// App is the fragment re-rendered on every state change.
func App(v View) Node {
	return Div(ID("app"), Class("app theme-"+string(v.State.Theme)),
		content(v),
	)
}

func content(v View) Node {
	s := v.State
	switch {
	case s.Alert != nil:
		return components.AlertBox(s.Alert)
	case s.AwaitingAuthorization:
		return components.ConnectPrompt()
	case s.Session == nil:
		return connecting(v.Flashes)
	}

	var page Node
	if s.Loading {
		page = components.Loader()
	} else {
		page = route(v)
	}
	return Group([]Node{
		components.TopBar(s),
		components.Flashes(v.Flashes),
		components.Failure(s.Failure),
		page,
	})
}

func title(r Route) string {
	switch r {
	case RouteHome:
		return "Home"
	case RouteAbout:
		return "About"
	case RouteHistory:
		return "History"
	default:
		return "Not found"
	}
}

func route(v View) Node {
	switch v.Route() {
	case RouteHome:
		return home(v.State)
	case RouteAbout:
		return about()
	case RouteHistory:
		return history(v.History)
	default:
		return notFound()
	}
}

func connecting(flashes []string) Node {
	return Main(Class("connect card"),
		H2(Text("Not connected")),
		components.Flashes(flashes),
		P(Text("DeBank could not load your account yet.")),
		Form(Method("post"), Action("/retry"),
			Button(Type("submit"), Text("Connect")),
		),
	)
}

func home(s store.State) Node {
	return Main(
		components.Banner(s.Session),
		components.Confirmation(s.Last),
		components.Forms(s.Session),
		Form(Class("reload"), Method("post"), Action("/reload"),
			Data("on-submit", "@post('/reload', {contentType: 'form'})"),
			Button(Type("submit"), Text("Refresh balances")),
		),
	)
}

func about() Node {
	return Main(Class("about card"),
		H1(Text("About DeBank")),
		P(Text(`DeBank is a small lending bank on Ethereum. Deposit ETH and withdraw it later
			together with interest paid out in DBC, the bank's own token.`)),
		P(Text(`You can also lock ETH as collateral and borrow DBC against it. The loan is 50% of
			the collateral. To get the collateral back, approve the bank to take the DBC back and
			return the loan. The bank keeps a 10% fee.`)),
		P(Text("Only one deposit and one loan per account can be open at a time.")),
		A(Href("/"), Text("Back to the bank")),
	)
}

func history(entries []events.Entry) Node {
	return Main(Class("card"),
		H1(Text("Transaction history")),
		components.HistoryTable(entries),
	)
}

func notFound() Node {
	return Main(Class("card"),
		H1(Text("Page not found")),
		P(Text("There is nothing here.")),
		A(Href("/"), Text("Back to the bank")),
	)
}
