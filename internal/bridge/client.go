package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/marwan562/provisioning-bridge/internal/breaker"
	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
	"github.com/marwan562/provisioning-bridge/proto/account"
)

// Dial opens the long-lived channel to the account service. The connection
// is lazy; nothing is sent until the first call.
func Dial(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(account.CallOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service client for %s: %w", target, err)
	}
	return conn, nil
}

// Client issues one CreateAccount call per attempt, gated by the shared
// breaker. Every attempt resolves its breaker permit before returning.
type Client struct {
	api     account.AccountServiceClient
	breaker *breaker.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(api account.AccountServiceClient, b *breaker.Breaker, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     api,
		breaker: b,
		timeout: timeout,
		logger:  logger.With("component", "account-client"),
	}
}

// CreateAccount makes one attempt. Only the account service's own answers,
// and attempts that ran out of the per-attempt timeout, move the breaker;
// an attempt the caller cancelled or outlived is released uncounted. It still
// fails as transient, so the bridge falls back.
//
// A PENDING answer is returned as-is with no error: the account service
// accepted the request and owns finishing it.
func (c *Client) CreateAccount(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		metrics.RPCAttempts.WithLabelValues("abandoned").Inc()
		return Response{}, failure.Transient("account.CreateAccount", err)
	}

	permit, err := c.breaker.Allow()
	if err != nil {
		metrics.RPCAttempts.WithLabelValues("breaker_open").Inc()
		return Response{}, err
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	timer := metrics.StartRPCTimer()
	resp, err := c.api.CreateAccount(callCtx, &account.CreateAccountRequest{
		RecordId: req.RecordID,
		Name:     req.Name,
		Email:    req.Email,
	})
	timer.ObserveDuration()

	if err != nil {
		ferr := failure.FromRPC("account.CreateAccount", err)
		if failure.IsApplication(ferr) {
			// The service answered; it is healthy even if it said no.
			permit.Success()
			metrics.RPCAttempts.WithLabelValues("rejected").Inc()
			return Response{}, ferr
		}
		if ctx.Err() != nil {
			permit.Release()
			metrics.RPCAttempts.WithLabelValues("abandoned").Inc()
			c.logger.Warn("account service call abandoned by caller", "record_id", req.RecordID, "error", err)
			return Response{}, ferr
		}
		permit.Failure()
		metrics.RPCAttempts.WithLabelValues("transient").Inc()
		c.logger.Warn("account service call failed", "record_id", req.RecordID, "error", err)
		return Response{}, ferr
	}

	permit.Success()
	metrics.RPCAttempts.WithLabelValues("success").Inc()
	c.logger.Info("received response from account service", "record_id", req.RecordID, "response", resp.String())

	if resp.GetStatus() == account.AccountStatus_PENDING || resp.GetAccountId() == "" {
		return Pending(), nil
	}
	return Response{AccountID: resp.GetAccountId(), Status: StatusCreated}, nil
}
