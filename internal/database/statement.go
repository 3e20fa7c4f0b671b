package database

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// observer logs every statement at debug level and flags slow ones.
type observer struct {
	log       *zerolog.Logger
	slowQuery time.Duration
}

func (o observer) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if o.log != nil {
		return o.log
	}
	nop := zerolog.Nop()
	return &nop
}

func (o observer) done(ctx context.Context, query string, started time.Time, err error) {
	elapsed := time.Since(started)
	logger := o.logger(ctx)

	var event *zerolog.Event
	switch {
	case err != nil:
		event = logger.Error().Err(err)
	case o.slowQuery > 0 && elapsed >= o.slowQuery:
		event = logger.Warn().Dur("threshold", o.slowQuery)
	default:
		event = logger.Debug()
	}

	event.
		Str("component", "database").
		Str("sql", query).
		Dur("duration", elapsed).
		Msg("statement executed")
}

// withStatementTimeout applies StatementTimeout unless ctx already carries a deadline.
func withStatementTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, StatementTimeout)
}

// statementInfo extracts the verb and target table of a simple statement.
//
//	SELECT * FROM platform_user WHERE id = ?  -> SELECT, platform_user
//	INSERT INTO platform_user (...)           -> INSERT, platform_user
//	UPDATE platform_user SET ...              -> UPDATE, platform_user
func statementInfo(query string) (operation, collection string) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", ""
	}

	operation = strings.ToUpper(fields[0])

	var marker string
	switch operation {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(fields) > 1 {
			return operation, trimIdentifier(fields[1])
		}
		return operation, ""
	default:
		return operation, ""
	}

	for i := 1; i < len(fields)-1; i++ {
		if strings.EqualFold(fields[i], marker) {
			return operation, trimIdentifier(fields[i+1])
		}
	}
	return operation, ""
}

func trimIdentifier(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "`\"")
}
