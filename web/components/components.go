package components

import (
	"strings"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/debankfi/debank/internal/events"
	"github.com/debankfi/debank/internal/store"
	"github.com/debankfi/debank/web/helpers"
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// post renders a form that works without scripts and is taken over by
// datastar when it is loaded.
func post(action string, children ...Node) Node {
	return Form(
		Method("post"),
		Action(action),
		Data("on-submit", "@post('"+action+"', {contentType: 'form'})"),
		Group(children),
	)
}

// TopBar shows the connected user and the theme toggle.
func TopBar(s store.State) Node {
	var user store.User
	if s.Session != nil {
		user = s.Session.User
	}

	next := store.ThemeDark
	if s.Theme == store.ThemeDark {
		next = store.ThemeLight
	}

	return Header(
		Class("header"),
		Ul(
			Text("User:"),
			Li(Text("Address: "+helpers.Address(user.Address))),
			Li(Text("ETH: "+helpers.Eth(user.EthBalance))),
			Li(Text("DBC: "+helpers.Token(user.TokenBalance, ""))),
		),
		Nav(
			A(Href("/"), Text("Home")),
			A(Href("/about"), Text("About")),
		),
		post("/theme",
			Button(Type("submit"), Aria("label", "Switch to "+string(next)+" theme"), Text(string(s.Theme))),
		),
	)
}

func Loader() Node {
	return Div(Class("loader"), Attr("role", "status"),
		helpers.RenderStaticToRaw("loader.svg"),
		P(Text("Waiting for the transaction to be mined…")),
	)
}

// Banner describes the bank contract.
func Banner(sess *store.Session) Node {
	b := sess.Bank
	return Div(Class("banner"),
		Ul(
			Text("Welcome to DeBank"),
			Li(Text("Address: "+helpers.Address(b.Address))),
			Li(Text("ETH: "+helpers.Eth(b.EthBalance))),
			Li(Text(b.TokenSymbol+" (Total Supply/Minted): "+helpers.Token(b.TokenTotalSupply, b.TokenSymbol))),
			If(b.TokenName != "", Li(Text("Token: "+b.TokenName))),
			If(!b.IsMinter, Li(Class("warning"), Text("The bank is not the token minter, borrowing will fail."))),
		),
	)
}

func section(heading string, children ...Node) Node {
	return Section(Class("card"),
		H3(Text(heading)),
		Group(children),
	)
}

func amountInput(name string) Node {
	return Input(
		Type("number"),
		Name(name),
		Placeholder("amount"),
		Value("0.01"),
		Attr("min", "0.01"),
		Attr("step", "0.01"),
		Required(),
	)
}

func DepositForm() Node {
	return section("Deposit Form",
		H4(Text("How much you want to deposit? (Min 0.01 ETH)")),
		post("/actions/deposit",
			Label(Text("deposit amount: "), amountInput("amount")),
			Input(Type("submit"), Value("Submit")),
		),
	)
}

func WithdrawForm(acc *accounts.Account) Node {
	return section("Withdraw Form",
		H4(Text("Are you sure you want to withdraw ETH and gain DBC?")),
		If(acc != nil && acc.Balance != nil, P(Text("Deposited: "+helpers.Eth(acc.Balance)))),
		post("/actions/withdraw",
			Button(Type("submit"), Text("Withdraw Now")),
		),
	)
}

func BorrowForm() Node {
	return section("Borrow Form",
		H4(Text("How much you want to borrow? (Loan: 50% of collateral (min 0.01 ETH))")),
		post("/actions/borrow",
			Label(Text("collateral amount: "), amountInput("amount")),
			Input(Type("submit"), Value("Submit")),
		),
	)
}

// ReturnForm asks for the DBC allowance first when the bank cannot pull the
// loan back yet.
func ReturnForm(sess *store.Session) Node {
	acc := sess.User.Account
	collateral := acc.Collateral

	if store.NeedsApproval(sess) {
		return section("Return Form",
			H4(Text("Allow the bank to take back "+helpers.Token(accounts.ExpectedLoan(collateral), sess.Bank.TokenSymbol)+" before returning.")),
			post("/actions/approve",
				Button(Type("submit"), Text("Approve")),
			),
		)
	}

	return section("Return Form",
		H4(Text("Are you sure you want to return DBC and get back ETH (- 10% fee)?")),
		P(Text("Collateral: "+helpers.Eth(collateral))),
		P(Text("You get back: "+helpers.Eth(accounts.ExpectedRefund(collateral)))),
		post("/actions/return",
			Button(Type("submit"), Text("Return Now")),
		),
	)
}

// Forms picks the deposit side and the borrow side from the account.
func Forms(sess *store.Session) Node {
	f := store.SelectForms(sess)

	var deposit, borrow Node
	switch f.Deposit {
	case store.FormWithdraw:
		deposit = WithdrawForm(sess.User.Account)
	default:
		deposit = DepositForm()
	}
	switch f.Borrow {
	case store.FormReturn:
		borrow = ReturnForm(sess)
	default:
		borrow = BorrowForm()
	}
	return Div(Class("forms"), deposit, borrow)
}

func Flashes(msgs []string) Node {
	if len(msgs) == 0 {
		return nil
	}
	return Div(Class("flash"), Attr("role", "alert"),
		Map(msgs, func(m string) Node { return P(Text(m)) }),
	)
}

// Failure shows the last rejected or reverted transaction.
func Failure(f *store.Failure) Node {
	if f == nil {
		return nil
	}
	return Div(Class("flash error"), Attr("role", "alert"),
		P(Textf("The %s transaction failed: %s", f.Kind, f.Message)),
	)
}

func Confirmation(c *store.Confirmation) Node {
	if c == nil {
		return nil
	}
	return Div(Class("flash ok"),
		P(Textf("The %s transaction was mined in block %d (%s).", c.Kind, c.Block, helpers.ShortHash(c.TxHash))),
	)
}

// AlertBox blocks the page until the cause is fixed.
func AlertBox(a *store.Alert) Node {
	return Div(Class("alert"), Attr("role", "alertdialog"),
		H2(Text(alertTitle(a.Kind))),
		P(Text(a.Message)),
		post("/retry",
			Button(Type("submit"), Text("Try again")),
		),
	)
}

func alertTitle(k store.AlertKind) string {
	if k == store.AlertAuthorization {
		return "Authorization required"
	}
	return "Configuration problem"
}

// ConnectPrompt asks the user to unlock the wallet account.
func ConnectPrompt() Node {
	return Div(Class("connect card"),
		H2(Text("Connect your wallet")),
		P(Text("DeBank wants to use your account. Enter the keystore passphrase to approve.")),
		post("/connect",
			Label(Text("passphrase: "), Input(Type("password"), Name("passphrase"), Attr("autocomplete", "current-password"))),
			Button(Type("submit"), Text("Approve")),
		),
		post("/connect/reject",
			Button(Type("submit"), Text("Reject")),
		),
	)
}

func HistoryTable(entries []events.Entry) Node {
	if len(entries) == 0 {
		return P(Text("No transactions yet."))
	}
	return Table(Class("history"),
		THead(Tr(
			Th(Text("When")),
			Th(Text("Action")),
			Th(Text("Amount")),
			Th(Text("Status")),
			Th(Text("Block")),
			Th(Text("Tx")),
		)),
		TBody(Map(entries, func(e events.Entry) Node {
			amount := "-"
			if e.Amount != nil {
				amount = helpers.Eth(e.Amount)
				if e.Kind == accounts.TxApprove {
					amount = helpers.Token(e.Amount, "")
				}
			}
			status := string(e.Status)
			if e.Error != "" {
				status += ": " + e.Error
			}
			return Tr(
				Td(Text(e.At.Format("2006-01-02 15:04:05"))),
				Td(Text(strings.ToUpper(e.Kind.String()[:1])+e.Kind.String()[1:])),
				Td(Text(amount)),
				Td(Text(status)),
				Td(Textf("%d", e.Block)),
				Td(Code(Text(helpers.ShortHash(e.TxHash)))),
			)
		})),
	)
}
