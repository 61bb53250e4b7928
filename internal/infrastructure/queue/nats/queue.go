package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/resilience"
)

const (
	headerTenant = "Tenant-Id"
	headerUser   = "User-Id"
)

// Queue carries DecisionConfirmed events from the api to the task seeders.
// Every event goes to <prefix>.<tenant id>.
type Queue struct {
	conn     *nats.Conn
	prefix   string
	group    string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	Name               string
	QueueGroup         string
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func NewWithOptions(url, prefix string, options Options) (*Queue, error) {
	if options.Name == "" {
		options.Name = "legal-workflow"
	}
	if options.QueueGroup == "" {
		options.QueueGroup = "task-seeders"
	}
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = 2 * time.Second
	}
	if options.ReconnectWait <= 0 {
		options.ReconnectWait = 2 * time.Second
	}
	if options.MaxReconnects <= 0 {
		options.MaxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(options.Name),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		prefix:   strings.TrimSuffix(prefix, "."),
		group:    options.QueueGroup,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDecisionConfirmed(ctx context.Context, event domain.DecisionConfirmed) error {
	msg, err := decisionMessage(q.prefix, event)
	if err != nil {
		return err
	}
	call := func(context.Context) error {
		return q.conn.PublishMsg(msg)
	}
	if q.executor != nil {
		err = q.executor.Execute(ctx, resilience.OpPublishDecision, call, transient)
	} else if err = call(ctx); err != nil && transient(err) {
		err = domain.WrapError(domain.ErrTemporary, string(resilience.OpPublishDecision), err)
	}
	if err != nil {
		return fmt.Errorf("publish decision %s: %w", event.AuditID, err)
	}
	return nil
}

// SubscribeDecisionConfirmed consumes the events of every tenant. It blocks
// until ctx is done, then drains the subscription so in-flight messages finish.
func (q *Queue) SubscribeDecisionConfirmed(ctx context.Context, handler func(context.Context, domain.DecisionConfirmed) error) error {
	sub, err := q.conn.QueueSubscribe(q.prefix+".*", q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		q.handle(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.DecisionConfirmed) error) {
	event, err := decodeDecision(msg)
	if err != nil {
		q.logger.Error("decision_message_invalid", "subject", msg.Subject, "size", len(msg.Data), "error", err)
		return
	}
	if err := handler(ctx, event); err != nil {
		q.logger.Error("decision_handler_failed", "audit_id", event.AuditID, "tenant_id", event.TenantID, "error", err)
	}
}

func decisionMessage(prefix string, event domain.DecisionConfirmed) (*nats.Msg, error) {
	if event.TenantID == "" || event.AuditID == "" {
		return nil, fmt.Errorf("encode decision event: missing auditoria_id or tenant_id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode decision event: %w", err)
	}
	msg := nats.NewMsg(prefix + "." + event.TenantID)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.AuditID)
	msg.Header.Set(headerTenant, event.TenantID)
	if event.UserID != "" {
		msg.Header.Set(headerUser, event.UserID)
	}
	return msg, nil
}

// decodeDecision rejects events whose payload tenant differs from the subject
// and header they were routed under.
func decodeDecision(msg *nats.Msg) (domain.DecisionConfirmed, error) {
	var event domain.DecisionConfirmed
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return domain.DecisionConfirmed{}, fmt.Errorf("decode decision event: %w", err)
	}
	if event.AuditID == "" || event.TenantID == "" {
		return domain.DecisionConfirmed{}, fmt.Errorf("decode decision event: missing auditoria_id or tenant_id")
	}
	if tenant := msg.Header.Get(headerTenant); tenant != event.TenantID {
		return domain.DecisionConfirmed{}, fmt.Errorf("decode decision event: header tenant %q does not match payload", tenant)
	}
	if !strings.HasSuffix(msg.Subject, "."+event.TenantID) {
		return domain.DecisionConfirmed{}, fmt.Errorf("decode decision event: subject %q does not match tenant", msg.Subject)
	}
	return event, nil
}

func transient(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting)
}
