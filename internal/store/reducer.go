package store

// Reduce is the only place state changes. It never blocks and never calls
// out, anything asynchronous happens before or after it.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetSession:
		s.Session = a.Session
		if a.Session != nil {
			s.AwaitingAuthorization = false
		}

	case SendStarted:
		// Unconditional, a send already in flight is replaced as the
		// tracked one. Callers serialize sends if they need to.
		s.Loading = true
		s.Pending = &Pending{
			ID:        a.ID,
			Kind:      a.Kind,
			Amount:    a.Amount,
			StartedAt: a.At,
		}
		s.Failure = nil

	case SendConfirmed:
		if s.Pending == nil || s.Pending.ID != a.ID {
			return s
		}
		s.Last = &Confirmation{
			ID:     a.ID,
			Kind:   s.Pending.Kind,
			TxHash: a.TxHash,
			Block:  a.Block,
		}
		s.Pending = nil
		s.Loading = false

	case SendFailed:
		if s.Pending == nil || s.Pending.ID != a.ID {
			return s
		}
		s.Failure = &Failure{
			ID:      a.ID,
			Kind:    s.Pending.Kind,
			Message: a.Err,
		}
		s.Pending = nil
		s.Loading = false

	case AuthorizationRequested:
		s.AwaitingAuthorization = true

	case AlertRaised:
		alert := a.Alert
		s.Alert = &alert
		s.AwaitingAuthorization = false

	case AlertCleared:
		s.Alert = nil

	case SetTheme:
		if a.Theme == ThemeLight || a.Theme == ThemeDark {
			s.Theme = a.Theme
		}

	case ToggleTheme:
		if s.Theme == ThemeDark {
			s.Theme = ThemeLight
		} else {
			s.Theme = ThemeDark
		}
	}
	return s
}
