package handlers

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/debankfi/debank/internal/accounts"
	"github.com/debankfi/debank/internal/debank"
	"github.com/debankfi/debank/internal/units"
	"github.com/go-chi/chi/v5"
)

var errBelowMinimum = errors.New("handlers: amount below minimum")

// parseAmount applies the form constraints: a decimal ETH amount of at least
// 0.01.
func parseAmount(raw string) (*big.Int, error) {
	amount, err := units.ParseEther(raw)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(units.MinAmount) < 0 {
		return nil, errBelowMinimum
	}
	return amount, nil
}

// Action starts the transaction named by the {action} URL parameter.
func Action(logger *slog.Logger, runner Runner, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var kind accounts.TxKind
		if err := kind.UnmarshalText([]byte(chi.URLParam(r, "action"))); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var amount *big.Int
		if kind.IsPayable() {
			var err error
			amount, err = parseAmount(r.PostForm.Get("amount"))
			if err != nil {
				rs.respond(w, r, "Enter an amount of at least 0.01 ETH.")
				return
			}
		}

		var (
			id  string
			err error
		)
		ctx := r.Context()
		switch kind {
		case accounts.TxDeposit:
			id, err = runner.DepositETH(ctx, amount)
		case accounts.TxBorrow:
			id, err = runner.BorrowDBC(ctx, amount)
		case accounts.TxWithdraw:
			id, err = runner.WithdrawETH(ctx)
		case accounts.TxReturn:
			id, err = runner.ReturnDBC(ctx)
		case accounts.TxApprove:
			id, err = runner.ApproveDBC(ctx)
		}
		if err != nil {
			logger.LogAttrs(
				ctx,
				slog.LevelWarn,
				"failed to start transaction",
				slog.String("kind", kind.String()),
				slog.String("error", err.Error()),
			)
			rs.respond(w, r, actionMessage(err))
			return
		}

		logger.LogAttrs(ctx, slog.LevelInfo, "transaction started",
			slog.String("id", id),
			slog.String("kind", kind.String()),
		)
		rs.respond(w, r, "")
	}
}

func actionMessage(err error) string {
	switch {
	case errors.Is(err, debank.ErrSendInFlight):
		return "Another transaction is still pending. Wait for it to be mined."
	case errors.Is(err, debank.ErrNotConnected):
		return "Connect your wallet first."
	case errors.Is(err, debank.ErrNoCollateral):
		return "There is no loan to repay."
	default:
		return "The transaction could not be sent."
	}
}

// Reload reads fresh balances from the chain.
func Reload(logger *slog.Logger, runner Runner, rs *Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := runner.Reload(r.Context()); err != nil {
			logger.LogAttrs(r.Context(), slog.LevelError, "failed to reload session", slog.String("error", err.Error()))
			rs.respond(w, r, "Balances could not be refreshed.")
			return
		}
		rs.respond(w, r, "")
	}
}
