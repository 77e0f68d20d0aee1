package provisioning

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
	"github.com/marwan562/provisioning-bridge/proto/account"
)

var tracer = otel.Tracer("github.com/marwan562/provisioning-bridge/internal/provisioning")

// Server implements account.AccountServiceServer on top of a Provisioner.
type Server struct {
	provisioner *Provisioner
	logger      *slog.Logger
}

func NewServer(p *Provisioner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{provisioner: p, logger: logger.With("component", "account-server")}
}

// CreateAccount answers CREATED for new and already provisioned records
// alike, so a retried call sees the same account id.
func (s *Server) CreateAccount(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
	ctx, span := tracer.Start(ctx, "AccountService.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", in.GetRecordId()))

	s.logger.Info("received create account request", "request", in.String())

	a, created, err := s.provisioner.Provision(ctx, in.GetRecordId(), in.GetName(), in.GetEmail())
	if err != nil {
		span.RecordError(err)
		metrics.AccountsProvisioned.WithLabelValues("rpc", "failed").Inc()
		if failure.IsApplication(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("failed to provision account", "record_id", in.GetRecordId(), "error", err)
		return nil, status.Error(codes.Unavailable, "account store unavailable")
	}

	metrics.AccountsProvisioned.WithLabelValues("rpc", resultLabel(created)).Inc()
	return &account.CreateAccountResponse{
		AccountId: a.ID,
		Status:    account.AccountStatus_CREATED,
	}, nil
}

func resultLabel(created bool) string {
	if created {
		return "created"
	}
	return "duplicate"
}
