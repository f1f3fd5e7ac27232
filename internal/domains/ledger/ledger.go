package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

type sheetStore interface {
	Append(ctx context.Context, req backend.LogRequest) (*backend.LogResponse, error)
	ReadTokens(ctx context.Context, sessionID string, rowIndex int) (int, error)
	WriteTokens(ctx context.Context, sessionID string, rowIndex int, total int) error
}

// Ledger records conversation turns and token usage in the external
// spreadsheet-like store. Every operation is best-effort: failures are
// logged and swallowed, never propagated into the turn flow.
type Ledger struct {
	sheet  sheetStore
	logger *Logger.Logger

	// accrual is read-modify-write against a store with no compare-and-swap.
	// Serializing our own writers keeps the common case exact; concurrent
	// writers elsewhere can still under-count.
	accrualMu sync.Mutex
}

func NewLedger(sheet sheetStore, logger *Logger.Logger) *Ledger {
	return &Ledger{
		sheet:  sheet,
		logger: logger,
	}
}

// Record writes one row for a completed turn. The first successful write
// assigns the session its spreadsheet coordinates; once correlated, retries
// of the same turn update the row in place instead of appending a duplicate.
func (l *Ledger) Record(ctx context.Context, session *types.ConversationSession, turnNumber int, userText, answerText, systemPrompt string) {
	if l.sheet == nil || session == nil {
		return
	}

	req := backend.LogRequest{
		MessageNumber: turnNumber,
		UserMessage:   userText,
		AIMessage:     answerText,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SystemPrompt:  systemPrompt,
	}
	if session.Correlated() {
		req.SessionID = session.SessionID
		req.RowIndex = session.RowIndex
	}

	resp, err := l.sheet.Append(ctx, req)
	if err != nil {
		l.logger.Warnf("conversation log write failed for turn %d: %v", turnNumber, err)
		return
	}
	session.AdoptCoordinates(resp.SessionID, resp.RowIndex)
}

// AccrueTokens adds usage onto the session's running total in the store.
// No-op until the session is correlated or when the delta is empty.
func (l *Ledger) AccrueTokens(ctx context.Context, session *types.ConversationSession, delta types.TokenUsage) {
	if l.sheet == nil || session == nil || !session.Correlated() || delta.IsZero() {
		return
	}

	l.accrualMu.Lock()
	defer l.accrualMu.Unlock()

	current, err := l.sheet.ReadTokens(ctx, session.SessionID, session.RowIndex)
	if err != nil {
		l.logger.Warnf("token read failed, dropping accrual of %d: %v", delta.Total, err)
		return
	}
	if err := l.sheet.WriteTokens(ctx, session.SessionID, session.RowIndex, current+delta.Total); err != nil {
		l.logger.Warnf("token write failed, dropping accrual of %d: %v", delta.Total, err)
	}
}
