package source

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/fundweb/fundsync/internal/domain"
)

const (
	channelFundChanged  = "fund_changed"
	channelEditAppended = "fund_edit_appended"

	listenRetryDelay = time.Second
)

// ErrChannelClosed indicates a change channel used after teardown.
var ErrChannelClosed = errors.New("change channel closed")

// ErrChannelOpen indicates a second Open on an already-open channel.
var ErrChannelOpen = errors.New("change channel already open")

// PgListener delivers change notifications via Postgres LISTEN/NOTIFY.
// Payload format on fund_changed is "id" or "id:deleted"; the edit
// channel payload is informational only.
type PgListener struct {
	pool   *pgxpool.Pool
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewPgListener creates a LISTEN/NOTIFY change channel over the pool.
func NewPgListener(pool *pgxpool.Pool) *PgListener {
	return &PgListener{pool: pool}
}

// Open starts delivering change events to onEvent. With a non-empty ids
// set only fund changes for those ids are delivered (targeted mode);
// otherwise all fund changes plus edit-log appends are delivered.
// Events are delivered from a single goroutine until Close or context
// cancellation.
func (l *PgListener) Open(ctx context.Context, ids []string, onEvent func(domain.ChangeEvent)) error {
	if l.closed {
		return ErrChannelClosed
	}
	if l.cancel != nil {
		return ErrChannelOpen
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	watch := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })

	go func() {
		defer close(l.done)
		for {
			if err := l.listen(runCtx, len(ids) == 0, watch, onEvent); err != nil {
				if runCtx.Err() != nil {
					return
				}
				slog.Warn("change listener lost connection, retrying", "error", err)
			}
			select {
			case <-runCtx.Done():
				return
			case <-time.After(listenRetryDelay):
			}
		}
	}()

	return nil
}

// listen holds one dedicated connection and blocks on notifications
// until the connection drops or the context is cancelled.
func (l *PgListener) listen(ctx context.Context, general bool, watch map[string]bool, onEvent func(domain.ChangeEvent)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channelFundChanged); err != nil {
		return err
	}
	if general {
		if _, err := conn.Exec(ctx, "LISTEN "+channelEditAppended); err != nil {
			return err
		}
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		switch n.Channel {
		case channelFundChanged:
			ev := parseFundPayload(n.Payload)
			if len(watch) > 0 && !watch[ev.ID] {
				continue
			}
			onEvent(ev)
		case channelEditAppended:
			onEvent(domain.ChangeEvent{Kind: domain.ChangeKindEdit})
		}
	}
}

// Close tears the channel down and waits for the delivery goroutine to
// stop. Closing twice is an error.
func (l *PgListener) Close() error {
	if l.closed {
		return ErrChannelClosed
	}
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
	return nil
}

func parseFundPayload(payload string) domain.ChangeEvent {
	id, flag, _ := strings.Cut(payload, ":")
	return domain.ChangeEvent{
		Kind:    domain.ChangeKindFund,
		ID:      id,
		Deleted: flag == "deleted",
	}
}
