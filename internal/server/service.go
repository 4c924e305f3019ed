package server

import (
	"bytes"
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/query"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "vestledger.v1.LedgerService"

// Applier is the engine surface the service writes through.
type Applier interface {
	Apply(ctx context.Context, req core.Request) (*core.Receipt, error)
}

// ApplyRequest submits one action. The caller's signers come from its API
// key, never from the request body.
type ApplyRequest struct {
	RequestID string          `json:"request_id,omitempty"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
}

type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

type AccountRequest struct {
	Account string `json:"account"`
	Symbol  string `json:"symbol,omitempty"`
}

type VestRequest struct {
	ID uint64 `json:"id"`
}

type HistoryRequest struct {
	Account        string `json:"account"`
	BeforeSequence *int64 `json:"before_sequence,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type Empty struct{}

type ListStatsResponse struct {
	Tokens []query.StatsResponse `json:"tokens"`
}

type ListBalancesResponse struct {
	Balances []query.BalanceResponse `json:"balances"`
}

type ListVestsResponse struct {
	Vests []query.VestResponse `json:"vests"`
}

type ListBurnsResponse struct {
	Burns []query.BurnResponse `json:"burns"`
}

type HistoryResponse struct {
	Entries []query.HistoryEntry `json:"entries"`
}

// LedgerServer is the server API for LedgerService.
type LedgerServer interface {
	Apply(context.Context, *ApplyRequest) (*core.Receipt, error)
	GetSupply(context.Context, *SymbolRequest) (*query.SupplyResponse, error)
	GetStats(context.Context, *SymbolRequest) (*query.StatsResponse, error)
	ListStats(context.Context, *Empty) (*ListStatsResponse, error)
	GetBalance(context.Context, *AccountRequest) (*query.BalanceResponse, error)
	ListBalances(context.Context, *AccountRequest) (*ListBalancesResponse, error)
	GetVest(context.Context, *VestRequest) (*query.VestResponse, error)
	ListVests(context.Context, *AccountRequest) (*ListVestsResponse, error)
	ListBurns(context.Context, *AccountRequest) (*ListBurnsResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	VerifyIntegrity(context.Context, *Empty) (*query.IntegrityReport, error)
}

// LedgerService serves both the gRPC surface and the HTTP gateway. Errors it
// returns are gRPC status errors.
type LedgerService struct {
	engine Applier
	qs     *query.QueryService
}

func NewLedgerService(engine Applier, qs *query.QueryService) *LedgerService {
	return &LedgerService{engine: engine, qs: qs}
}

// Apply decodes and applies one action as the signers attached to ctx.
func (s *LedgerService) Apply(ctx context.Context, req *ApplyRequest) (*core.Receipt, error) {
	t, err := action.ParseType(req.Action)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(req.Data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "data is required")
	}
	act, err := action.New(t)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(req.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(act); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "parse %s: %v", t, err)
	}

	receipt, err := s.engine.Apply(ctx, core.Request{
		RequestID: req.RequestID,
		Auth:      SignersFrom(ctx),
		Action:    act,
	})
	return receipt, toStatus(err)
}

func (s *LedgerService) GetSupply(ctx context.Context, req *SymbolRequest) (*query.SupplyResponse, error) {
	code, err := parseCode(req.Symbol)
	if err != nil {
		return nil, err
	}
	resp, err := s.qs.GetSupply(ctx, code)
	return resp, toStatus(err)
}

func (s *LedgerService) GetStats(ctx context.Context, req *SymbolRequest) (*query.StatsResponse, error) {
	code, err := parseCode(req.Symbol)
	if err != nil {
		return nil, err
	}
	resp, err := s.qs.GetStats(ctx, code)
	return resp, toStatus(err)
}

func (s *LedgerService) ListStats(ctx context.Context, _ *Empty) (*ListStatsResponse, error) {
	tokens, err := s.qs.ListStats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListStatsResponse{Tokens: tokens}, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, req *AccountRequest) (*query.BalanceResponse, error) {
	owner, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	code, err := parseCode(req.Symbol)
	if err != nil {
		return nil, err
	}
	resp, err := s.qs.GetBalance(ctx, owner, code)
	return resp, toStatus(err)
}

func (s *LedgerService) ListBalances(ctx context.Context, req *AccountRequest) (*ListBalancesResponse, error) {
	owner, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	balances, err := s.qs.ListBalances(ctx, owner)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListBalancesResponse{Balances: balances}, nil
}

func (s *LedgerService) GetVest(ctx context.Context, req *VestRequest) (*query.VestResponse, error) {
	resp, err := s.qs.GetVest(ctx, req.ID)
	return resp, toStatus(err)
}

func (s *LedgerService) ListVests(ctx context.Context, req *AccountRequest) (*ListVestsResponse, error) {
	receiver, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	vests, err := s.qs.ListVests(ctx, receiver)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListVestsResponse{Vests: vests}, nil
}

func (s *LedgerService) ListBurns(ctx context.Context, req *AccountRequest) (*ListBurnsResponse, error) {
	burner, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	burns, err := s.qs.ListBurns(ctx, burner)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListBurnsResponse{Burns: burns}, nil
}

func (s *LedgerService) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	account, err := parseAccount(req.Account)
	if err != nil {
		return nil, err
	}
	before := int64(-1)
	if req.BeforeSequence != nil {
		before = *req.BeforeSequence
	}
	entries, err := s.qs.History(ctx, account, before, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &HistoryResponse{Entries: entries}, nil
}

func (s *LedgerService) VerifyIntegrity(ctx context.Context, _ *Empty) (*query.IntegrityReport, error) {
	resp, err := s.qs.VerifyIntegrity(ctx)
	return resp, toStatus(err)
}

func parseAccount(s string) (asset.Name, error) {
	n, err := asset.ParseName(s)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid account: %v", err)
	}
	return n, nil
}

func parseCode(s string) (asset.SymbolCode, error) {
	code, err := asset.ParseSymbolCode(s)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid symbol: %v", err)
	}
	return code, nil
}

// ============================================================================
// Service descriptor
// ============================================================================

// unary adapts a typed LedgerServer method to a grpc.MethodDesc.
func unary[Req any, Resp any](name string, call func(LedgerServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes LedgerService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Apply", LedgerServer.Apply),
		unary("GetSupply", LedgerServer.GetSupply),
		unary("GetStats", LedgerServer.GetStats),
		unary("ListStats", LedgerServer.ListStats),
		unary("GetBalance", LedgerServer.GetBalance),
		unary("ListBalances", LedgerServer.ListBalances),
		unary("GetVest", LedgerServer.GetVest),
		unary("ListVests", LedgerServer.ListVests),
		unary("ListBurns", LedgerServer.ListBurns),
		unary("History", LedgerServer.History),
		unary("VerifyIntegrity", LedgerServer.VerifyIntegrity),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vestledger/v1/ledger.proto",
}

var _ LedgerServer = (*LedgerService)(nil)
