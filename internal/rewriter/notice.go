package rewriter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// Actions during which the edit form shows the missing-user notice
const (
	ActionEdit   = "edit"
	ActionSubmit = "submit"
)

// NoticeRequest is rendered edit-form text for a page being edited or created
type NoticeRequest struct {
	Title  wiki.Title
	Action string
	Text   string
}

// EditNotice suppresses the "user does not exist" notice when someone edits
// the user page of a real name that belongs to an existing account. The
// lookup goes by real name, so it bypasses the resolver and is not memoized.
func (rw *Rewriter) EditNotice(ctx context.Context, req NoticeRequest) (Result, error) {
	if req.Action != ActionEdit && req.Action != ActionSubmit {
		return unchanged(), nil
	}
	if !req.Title.Namespace().IsUserSpace() {
		return unchanged(), nil
	}
	if rw.opts.UserNotExistMarker == "" || !strings.Contains(req.Text, rw.opts.UserNotExistMarker) {
		return unchanged(), nil
	}

	realName := req.Title.RootText()
	account, err := rw.accounts.AccountByRealName(ctx, realName)
	if errors.Is(err, wiki.ErrAccountNotFound) {
		return unchanged(), nil
	}
	if err != nil {
		return unchanged(), fmt.Errorf("failed to look up real name %q: %w", realName, err)
	}

	rw.logger.Debug().Str("real_name", realName).Str("username", account.Name).Msg("missing-user notice suppressed")
	return Result{Kind: Suppressed}, nil
}
