package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"VestLedger/internal/core"
	"VestLedger/internal/ledger"
	"VestLedger/internal/query"
)

// toStatus maps ledger and infrastructure errors to gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, core.ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, query.ErrHistoryUnavailable):
		return codes.Unimplemented
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}

	switch ledger.CodeOf(err) {
	case ledger.CodeUnauthorized:
		return codes.PermissionDenied
	case ledger.CodeNotFound:
		return codes.NotFound
	case ledger.CodeAlreadyExists:
		return codes.AlreadyExists
	case ledger.CodeInvalidAmount, ledger.CodeSymbolMismatch, ledger.CodeInvalidArgument,
		ledger.CodeMemoTooLong, ledger.CodeSelfTransfer:
		return codes.InvalidArgument
	case ledger.CodeSupplyExceeded, ledger.CodeOverdrawn, ledger.CodeImmature, ledger.CodeNonZeroBalance:
		return codes.FailedPrecondition
	case ledger.CodeInvariant:
		return codes.Aborted
	default:
		return codes.Internal
	}
}
