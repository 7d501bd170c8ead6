package store

type Form string

const (
	FormDeposit  Form = "deposit"
	FormWithdraw Form = "withdraw"
	FormBorrow   Form = "borrow"
	FormReturn   Form = "return"
)

// Forms is the pair of affordances the home page shows.
type Forms struct {
	Deposit Form // FormDeposit or FormWithdraw
	Borrow  Form // FormBorrow or FormReturn
}

// SelectForms picks the affordances from the account mirror. A missing
// session or account selects deposit and borrow.
func SelectForms(s *Session) Forms {
	f := Forms{Deposit: FormDeposit, Borrow: FormBorrow}
	if s == nil {
		return f
	}
	if s.User.Account.Deposited() {
		f.Deposit = FormWithdraw
	}
	if s.User.Account.Borrowed() {
		f.Borrow = FormReturn
	}
	return f
}

// NeedsApproval reports whether the bank still lacks the allowance to pull
// the borrowed DBC back.
func NeedsApproval(s *Session) bool {
	if s == nil || !s.User.Account.Borrowed() {
		return false
	}
	debt := s.User.Account.Debt()
	if s.User.TokenAllowance == nil {
		return debt.Sign() > 0
	}
	return s.User.TokenAllowance.Cmp(debt) < 0
}
