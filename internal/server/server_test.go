package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/directory"
	"VestLedger/internal/query"
	"VestLedger/internal/server"
	"VestLedger/internal/store/memory"
)

const self asset.Name = "vestledger"

type harness struct {
	engine  *core.Engine
	clock   *core.ManualClock
	svc     *server.LedgerService
	keys    *server.KeyRing
	gateway http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memory.New()
	clock := core.NewManualClock(time.Unix(1_700_000_000, 0).UTC())
	engine := core.NewEngine(core.Config{Self: self, InvariantCheckInterval: 1}, core.Deps{
		Backend:   st,
		Directory: directory.NewStatic(self, "issuer", "alice", "bob"),
		Clock:     clock,
	})
	keys, err := server.ParseKeyRing("selfkey=vestledger, issuerkey=issuer,alicekey=alice,bobkey=bob")
	require.NoError(t, err)

	qs := query.NewQueryService(st, clock, engine, nil, nil)
	svc := server.NewLedgerService(engine, qs)
	gw, err := server.NewGateway(svc, keys)
	require.NoError(t, err)
	return &harness{engine: engine, clock: clock, svc: svc, keys: keys, gateway: gw}
}

// fund creates SYM and gives alice 100.0000.
func (h *harness) fund(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	amt := asset.MustParseAmount
	_, err := h.engine.Create(ctx, core.NewSigners(self), "issuer", amt("1000.0000 SYM"))
	require.NoError(t, err)
	_, err = h.engine.Issue(ctx, core.NewSigners("issuer"), "issuer", amt("500.0000 SYM"), "")
	require.NoError(t, err)
	_, err = h.engine.Transfer(ctx, core.NewSigners("issuer"), "issuer", "alice", amt("100.0000 SYM"), "")
	require.NoError(t, err)
}

func (h *harness) do(t *testing.T, method, path, key, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

// ============================================================================
// KeyRing
// ============================================================================

func TestParseKeyRing(t *testing.T) {
	kr, err := server.ParseKeyRing("a=alice,,b=bob")
	require.NoError(t, err)
	assert.Equal(t, 2, kr.Len())

	signers, err := kr.Resolve("a")
	require.NoError(t, err)
	assert.True(t, signers.HasAuth("alice"))

	anon, err := kr.Resolve("")
	require.NoError(t, err)
	assert.Empty(t, anon.Names())

	_, err = kr.Resolve("nope")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	for _, bad := range []string{"noequals", "=alice", "k=Not.Valid"} {
		_, err := server.ParseKeyRing(bad)
		assert.Error(t, err, bad)
	}
}

// ============================================================================
// HTTP gateway
// ============================================================================

func TestGateway_TransferAndQuery(t *testing.T) {
	h := newHarness(t)
	h.fund(t)

	rec, out := h.do(t, "POST", "/v1/actions/transfer", "alicekey",
		`{"request_id":"t-1","data":{"from":"alice","to":"bob","quantity":"25.0000 SYM","memo":"hi"}}`)
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.Equal(t, "transfer", out["action"])
	assert.Equal(t, "t-1", out["request_id"])

	rec, out = h.do(t, "GET", "/v1/accounts/bob/balances/SYM", "", "")
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.Equal(t, "25.0000 SYM", out["balance"])

	rec, out = h.do(t, "GET", "/v1/tokens/SYM/supply", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "500.0000 SYM", out["supply"])

	rec, out = h.do(t, "GET", "/v1/tokens", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["tokens"], 1)
}

func TestGateway_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	h.fund(t)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		body   string
		want   int
		code   string
	}{
		{"unknown key", "GET", "/v1/tokens", "bogus", "", http.StatusUnauthorized, "Unauthenticated"},
		{"missing authority", "POST", "/v1/actions/transfer", "",
			`{"data":{"from":"alice","to":"bob","quantity":"1.0000 SYM","memo":""}}`, http.StatusForbidden, "PermissionDenied"},
		{"overdrawn", "POST", "/v1/actions/transfer", "alicekey",
			`{"data":{"from":"alice","to":"bob","quantity":"101.0000 SYM","memo":""}}`, http.StatusBadRequest, "FailedPrecondition"},
		{"self transfer", "POST", "/v1/actions/transfer", "alicekey",
			`{"data":{"from":"alice","to":"alice","quantity":"1.0000 SYM","memo":""}}`, http.StatusBadRequest, "InvalidArgument"},
		{"unknown action", "POST", "/v1/actions/mint", "alicekey", `{"data":{}}`, http.StatusBadRequest, "InvalidArgument"},
		{"unknown token", "GET", "/v1/tokens/NOPE", "", "", http.StatusNotFound, "NotFound"},
		{"bad account", "GET", "/v1/accounts/BAD/balances", "", "", http.StatusBadRequest, "InvalidArgument"},
		{"bad vest id", "GET", "/v1/vests/x", "", "", http.StatusBadRequest, "InvalidArgument"},
		{"no history", "GET", "/v1/accounts/alice/history", "", "", http.StatusNotImplemented, "Unimplemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := h.do(t, tt.method, tt.path, tt.key, tt.body)
			assert.Equal(t, tt.want, rec.Code, out)
			assert.Equal(t, tt.code, out["code"])
		})
	}
}

func TestGateway_DuplicateRequest(t *testing.T) {
	h := newHarness(t)
	h.fund(t)

	body := `{"data":{"from":"alice","to":"bob","quantity":"1.0000 SYM","memo":""}}`
	req := httptest.NewRequest("POST", "/v1/actions/transfer", strings.NewReader(body))
	req.Header.Set("X-Api-Key", "alicekey")
	req.Header.Set("Idempotency-Key", "dup-1")
	rec := httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest("POST", "/v1/actions/transfer", strings.NewReader(body))
	req.Header.Set("X-Api-Key", "alicekey")
	req.Header.Set("Idempotency-Key", "dup-1")
	rec = httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, out := h.do(t, "GET", "/v1/accounts/bob/balances/SYM", "", "")
	assert.Equal(t, "1.0000 SYM", out["balance"])
}

func TestGateway_VestLifecycle(t *testing.T) {
	h := newHarness(t)
	h.fund(t)
	ctx := context.Background()
	_, err := h.engine.Transfer(ctx, core.NewSigners("issuer"), "issuer", self, asset.MustParseAmount("10.0000 SYM"), "")
	require.NoError(t, err)

	rec, out := h.do(t, "POST", "/v1/actions/vest", "selfkey",
		`{"data":{"to":"bob","quantity":"10.0000 SYM","vest_seconds":60,"memo":""}}`)
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.EqualValues(t, 0, out["vest_id"])

	rec, out = h.do(t, "GET", "/v1/vests/0", "", "")
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.Equal(t, false, out["matured"])

	rec, out = h.do(t, "POST", "/v1/actions/claimvest", "bobkey", `{"data":{"id":0,"quantity":"10.0000 SYM"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, out)
	assert.Equal(t, "FailedPrecondition", out["code"])

	h.clock.Advance(time.Minute)
	rec, out = h.do(t, "POST", "/v1/actions/claimvest", "bobkey", `{"data":{"id":0,"quantity":"10.0000 SYM"}}`)
	require.Equal(t, http.StatusOK, rec.Code, out)

	rec, out = h.do(t, "GET", "/v1/accounts/bob/vests", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["vests"])
}

// ============================================================================
// gRPC
// ============================================================================

func dialBuf(t *testing.T, h *harness) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, err := server.NewGRPCServer("bufnet", "", &server.ServerDeps{
		Service: h.svc,
		Keys:    h.keys,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		cancel()
	})
	return conn
}

func TestGRPC_ApplyAndQuery(t *testing.T) {
	h := newHarness(t)
	h.fund(t)
	conn := dialBuf(t, h)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer alicekey")
	var receipt map[string]interface{}
	err := conn.Invoke(ctx, "/"+server.ServiceName+"/Apply", &server.ApplyRequest{
		Action: "burn",
		Data:   json.RawMessage(`{"burner":"alice","quantity":"5.0000 SYM","memo":"gone"}`),
	}, &receipt, grpc.CallContentSubtype(server.CodecName))
	require.NoError(t, err)
	assert.Equal(t, "burn", receipt["action"])

	var supply query.SupplyResponse
	err = conn.Invoke(context.Background(), "/"+server.ServiceName+"/GetSupply",
		&server.SymbolRequest{Symbol: "SYM"}, &supply, grpc.CallContentSubtype(server.CodecName))
	require.NoError(t, err)
	assert.Equal(t, "495.0000 SYM", supply.Supply)

	var burns server.ListBurnsResponse
	err = conn.Invoke(context.Background(), "/"+server.ServiceName+"/ListBurns",
		&server.AccountRequest{Account: "alice"}, &burns, grpc.CallContentSubtype(server.CodecName))
	require.NoError(t, err)
	require.Len(t, burns.Burns, 1)
	assert.Equal(t, "gone", burns.Burns[0].LastMemo)
}

func TestGRPC_Errors(t *testing.T) {
	h := newHarness(t)
	h.fund(t)
	conn := dialBuf(t, h)

	var out map[string]interface{}
	err := conn.Invoke(context.Background(), "/"+server.ServiceName+"/Apply", &server.ApplyRequest{
		Action: "create",
		Data:   json.RawMessage(`{"issuer":"alice","maximum_supply":"1.00 ABC"}`),
	}, &out, grpc.CallContentSubtype(server.CodecName))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	badKey := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "bogus")
	err = conn.Invoke(badKey, "/"+server.ServiceName+"/ListStats", &server.Empty{}, &out,
		grpc.CallContentSubtype(server.CodecName))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = conn.Invoke(context.Background(), "/"+server.ServiceName+"/GetVest", &server.VestRequest{ID: 42}, &out,
		grpc.CallContentSubtype(server.CodecName))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_Health(t *testing.T) {
	h := newHarness(t)
	conn := dialBuf(t, h)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: server.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
