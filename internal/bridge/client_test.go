package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/marwan562/provisioning-bridge/internal/breaker"
	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/proto/account"
)

type stubAccountServer struct {
	handle func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error)
}

func (s *stubAccountServer) CreateAccount(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
	return s.handle(ctx, in)
}

func startAccountServer(t *testing.T, srv account.AccountServiceServer) account.AccountServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	account.RegisterAccountServiceServer(s, srv)
	go func() {
		_ = s.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(account.CallOptions()...),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufconn: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
	})
	return account.NewAccountServiceClient(conn)
}

func testBreaker() *breaker.Breaker {
	return breaker.New(breaker.Config{
		Name:         "client-test",
		FailureRatio: 0.5,
		MinRequests:  10,
		Window:       time.Minute,
		Cooldown:     time.Minute,
	}, nil)
}

func TestClient_CreateAccount(t *testing.T) {
	tests := []struct {
		name         string
		handle       func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error)
		expectStatus Status
		expectID     string
		expectKind   failure.Kind
		expectFails  uint32
	}{
		{
			name: "Created",
			handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
				return &account.CreateAccountResponse{AccountId: "acc-" + in.GetRecordId(), Status: account.AccountStatus_CREATED}, nil
			},
			expectStatus: StatusCreated,
			expectID:     "acc-rec-1",
		},
		{
			name: "Server Reports Pending",
			handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
				return &account.CreateAccountResponse{Status: account.AccountStatus_PENDING}, nil
			},
			expectStatus: StatusPending,
		},
		{
			name: "Unavailable Is Transient",
			handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
				return nil, status.Error(codes.Unavailable, "store down")
			},
			expectKind:  failure.KindTransient,
			expectFails: 1,
		},
		{
			name: "Invalid Argument Is Application",
			handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
				return nil, status.Error(codes.InvalidArgument, "bad email")
			},
			expectKind: failure.KindApplication,
		},
		{
			name: "Slow Server Hits Attempt Timeout",
			handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Second):
					return &account.CreateAccountResponse{AccountId: "late", Status: account.AccountStatus_CREATED}, nil
				}
			},
			expectKind:  failure.KindTransient,
			expectFails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := startAccountServer(t, &stubAccountServer{handle: tt.handle})
			b := testBreaker()
			client := NewClient(api, b, 50*time.Millisecond, nil)

			resp, err := client.CreateAccount(context.Background(), validRequest())

			if tt.expectKind != failure.KindUnknown {
				if got := failure.KindOf(err); got != tt.expectKind {
					t.Fatalf("Expected %s failure, got %v", tt.expectKind, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if resp.Status != tt.expectStatus || resp.AccountID != tt.expectID {
					t.Errorf("Expected %s %q, got %+v", tt.expectStatus, tt.expectID, resp)
				}
			}

			if c := b.Counts(); c.TotalFailures != tt.expectFails {
				t.Errorf("Expected %d breaker failures, got %d", tt.expectFails, c.TotalFailures)
			}
			if c := b.Counts(); c.Requests != 1 {
				t.Errorf("Expected the attempt to be counted once, got %d", c.Requests)
			}
		})
	}
}

func TestClient_RequestFieldsReachServer(t *testing.T) {
	var got *account.CreateAccountRequest
	api := startAccountServer(t, &stubAccountServer{handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
		got = in
		return &account.CreateAccountResponse{AccountId: "acc-1", Status: account.AccountStatus_CREATED}, nil
	}})

	client := NewClient(api, testBreaker(), time.Second, nil)
	if _, err := client.CreateAccount(context.Background(), validRequest()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := validRequest()
	if got.GetRecordId() != want.RecordID || got.GetName() != want.Name || got.GetEmail() != want.Email {
		t.Errorf("Expected %+v on the server, got %s", want, got.String())
	}
}

func TestClient_OpenBreakerDeniesWithoutCalling(t *testing.T) {
	b := breaker.New(breaker.Config{
		Name:         "client-open",
		FailureRatio: 0.5,
		MinRequests:  1,
		Window:       time.Minute,
		Cooldown:     time.Minute,
	}, nil)
	permit, err := b.Allow()
	if err != nil {
		t.Fatalf("Expected first permit, got %v", err)
	}
	permit.Failure()

	calls := 0
	api := startAccountServer(t, &stubAccountServer{handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
		calls++
		return &account.CreateAccountResponse{AccountId: "acc-1", Status: account.AccountStatus_CREATED}, nil
	}})

	client := NewClient(api, b, time.Second, nil)
	_, err = client.CreateAccount(context.Background(), validRequest())
	if !failure.IsBreakerOpen(err) {
		t.Fatalf("Expected breaker open, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no server call, got %d", calls)
	}
}

func TestClient_CancelledCallerDoesNotTripBreaker(t *testing.T) {
	calls := 0
	api := startAccountServer(t, &stubAccountServer{handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
		calls++
		return &account.CreateAccountResponse{AccountId: "acc-1", Status: account.AccountStatus_CREATED}, nil
	}})
	b := breaker.New(breaker.Config{
		Name:         "client-cancelled",
		FailureRatio: 0.5,
		MinRequests:  3,
		Window:       time.Minute,
		Cooldown:     time.Minute,
	}, nil)
	client := NewClient(api, b, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 3; i++ {
		_, err := client.CreateAccount(ctx, validRequest())
		if !failure.IsTransient(err) {
			t.Fatalf("Expected a transient failure for a cancelled caller, got %v", err)
		}
	}

	if b.State() != breaker.StateClosed {
		t.Errorf("Expected breaker to stay closed against a healthy server, got %s", b.State())
	}
	if c := b.Counts(); c.Requests != 0 {
		t.Errorf("Expected no attempts counted, got %d", c.Requests)
	}
	if calls != 0 {
		t.Errorf("Expected no server call, got %d", calls)
	}
}

func TestClient_CallerGivesUpMidFlight(t *testing.T) {
	api := startAccountServer(t, &stubAccountServer{handle: func(ctx context.Context, in *account.CreateAccountRequest) (*account.CreateAccountResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	b := testBreaker()
	client := NewClient(api, b, time.Second, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CreateAccount(ctx, validRequest())
	if !failure.IsTransient(err) {
		t.Fatalf("Expected a transient failure, got %v", err)
	}
	if c := b.Counts(); c.TotalFailures != 0 {
		t.Errorf("Expected the caller's deadline not to count as a failure, got %d", c.TotalFailures)
	}
}
