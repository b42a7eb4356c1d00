// Package shop spends tokens on premium content and gates contest entry.
package shop

import (
	"context"
	"log/slog"
	"strconv"

	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
)

// SessionReader reports whether someone is signed in.
type SessionReader interface {
	IsAuthenticated() bool
}

// Debiter is the part of the ledger the shop spends through.
type Debiter interface {
	Debit(ctx context.Context, amount int64, description string) (bool, error)
	Balance() int64
}

// Unlocked describes a completed download.
type Unlocked struct {
	Content Content `json:"content"`
	Free    bool    `json:"free"`
	Charged int64   `json:"charged"`
	Balance int64   `json:"balance"`
}

type Shop struct {
	session SessionReader
	ledger  Debiter
	log     *slog.Logger
}

func New(sess SessionReader, ledger Debiter, log *slog.Logger) *Shop {
	if log == nil {
		log = slog.Default()
	}

	return &Shop{session: sess, ledger: ledger, log: log}
}

// Unlock downloads content. Free items need no session; premium items are
// debited at their token price on every unlock.
func (s *Shop) Unlock(ctx context.Context, contentID int) (Unlocked, error) {
	content, ok := FindContent(contentID)
	if !ok {
		return Unlocked{}, apperrors.NewUnknownItemError("content", strconv.Itoa(contentID))
	}
	if err := ctx.Err(); err != nil {
		return Unlocked{}, err
	}

	if !content.Premium() {
		s.log.InfoContext(ctx, "free content downloaded", slog.Int("content_id", content.ID))
		return Unlocked{Content: content, Free: true, Balance: s.ledger.Balance()}, nil
	}

	if !s.authenticated() {
		return Unlocked{}, apperrors.NewNotAuthenticatedError("unlocking premium content")
	}

	ok, err := s.ledger.Debit(ctx, content.Price, "Unlocked: "+content.Title)
	if err != nil {
		return Unlocked{}, err
	}
	if !ok {
		balance := s.ledger.Balance()
		s.log.InfoContext(ctx, "unlock refused",
			slog.Int("content_id", content.ID),
			slog.Int64("price", content.Price),
			slog.Int64("balance", balance),
		)
		return Unlocked{}, apperrors.NewInsufficientBalanceError(content.Price, balance)
	}

	s.log.InfoContext(ctx, "premium content unlocked",
		slog.Int("content_id", content.ID),
		slog.Int64("price", content.Price),
	)

	return Unlocked{Content: content, Charged: content.Price, Balance: s.ledger.Balance()}, nil
}

// JoinContest checks that the caller may enter the contest.
func (s *Shop) JoinContest(ctx context.Context, contestID int) (Contest, error) {
	contest, ok := FindContest(contestID)
	if !ok {
		return Contest{}, apperrors.NewUnknownItemError("contest", strconv.Itoa(contestID))
	}

	if contest.RequiresAuth && !s.authenticated() {
		return Contest{}, apperrors.NewNotAuthenticatedError("joining a members contest")
	}

	s.log.InfoContext(ctx, "contest joined", slog.Int("contest_id", contest.ID))
	return contest, nil
}

func (s *Shop) authenticated() bool {
	return s.session != nil && s.session.IsAuthenticated()
}
