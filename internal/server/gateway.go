package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// gatewayFunc serves one route. ctx carries the caller's signers.
type gatewayFunc func(ctx context.Context, r *http.Request, params map[string]string) (interface{}, error)

type gatewayRoute struct {
	method  string
	pattern string
	h       gatewayFunc
}

// applyBody is the HTTP form of ApplyRequest; the action comes from the path.
type applyBody struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// NewGateway builds the HTTP/JSON surface over svc.
func NewGateway(svc *LedgerService, keys *KeyRing) (http.Handler, error) {
	mux := runtime.NewServeMux()

	routes := []gatewayRoute{
		{"POST", "/v1/actions/{action}", func(ctx context.Context, r *http.Request, p map[string]string) (interface{}, error) {
			var body applyBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
			}
			if body.RequestID == "" {
				body.RequestID = r.Header.Get("Idempotency-Key")
			}
			return svc.Apply(ctx, &ApplyRequest{RequestID: body.RequestID, Action: p["action"], Data: body.Data})
		}},
		{"GET", "/v1/tokens", func(ctx context.Context, _ *http.Request, _ map[string]string) (interface{}, error) {
			return svc.ListStats(ctx, &Empty{})
		}},
		{"GET", "/v1/tokens/{symbol}", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.GetStats(ctx, &SymbolRequest{Symbol: p["symbol"]})
		}},
		{"GET", "/v1/tokens/{symbol}/supply", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.GetSupply(ctx, &SymbolRequest{Symbol: p["symbol"]})
		}},
		{"GET", "/v1/accounts/{account}/balances", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.ListBalances(ctx, &AccountRequest{Account: p["account"]})
		}},
		{"GET", "/v1/accounts/{account}/balances/{symbol}", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.GetBalance(ctx, &AccountRequest{Account: p["account"], Symbol: p["symbol"]})
		}},
		{"GET", "/v1/accounts/{account}/vests", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.ListVests(ctx, &AccountRequest{Account: p["account"]})
		}},
		{"GET", "/v1/accounts/{account}/burns", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			return svc.ListBurns(ctx, &AccountRequest{Account: p["account"]})
		}},
		{"GET", "/v1/accounts/{account}/history", func(ctx context.Context, r *http.Request, p map[string]string) (interface{}, error) {
			req := &HistoryRequest{Account: p["account"]}
			q := r.URL.Query()
			if v := q.Get("before"); v != "" {
				before, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "invalid before: %v", err)
				}
				req.BeforeSequence = &before
			}
			if v := q.Get("limit"); v != "" {
				limit, err := strconv.Atoi(v)
				if err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "invalid limit: %v", err)
				}
				req.Limit = limit
			}
			return svc.History(ctx, req)
		}},
		{"GET", "/v1/vests/{id}", func(ctx context.Context, _ *http.Request, p map[string]string) (interface{}, error) {
			id, err := strconv.ParseUint(p["id"], 10, 64)
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "invalid vest id: %v", err)
			}
			return svc.GetVest(ctx, &VestRequest{ID: id})
		}},
		{"GET", "/v1/admin/integrity", func(ctx context.Context, _ *http.Request, _ map[string]string) (interface{}, error) {
			return svc.VerifyIntegrity(ctx, &Empty{})
		}},
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, serve(keys, rt.h)); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func serve(keys *KeyRing, h gatewayFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		signers, err := keys.FromHTTP(r)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := h(WithSigners(r.Context(), signers), r, params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(toStatus(err))
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), errorBody{
		Code:    st.Code().String(),
		Message: st.Message(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
