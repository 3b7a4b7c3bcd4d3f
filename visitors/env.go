package visitors

import (
	"errors"
	"io"
	"log/slog"

	"github.com/fxnatic/jsdeob-go/scope"
)

// Reasons a rewrite site is skipped. They are reported through the logger
// only, never returned: every pass always completes.
var (
	ErrPatternNotFound   = errors.New("pattern not found")
	ErrUnresolvedBinding = errors.New("unresolved binding")
	ErrAmbiguousLiteral  = errors.New("literal kind is not folded")
)

// Env is what every pass needs besides the tree itself.
type Env struct {
	Scope *scope.Index
	Log   *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Log
}
